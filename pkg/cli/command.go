// Copyright 2019 The Veil Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cli

import (
	"flag"
	"strings"
)

// A Command is one '<program> <command> ...' implementation. Commands with
// a nil Run are documentation pseudo-commands, reachable only through
// '<program> help <topic>'.
type Command struct {
	// Run executes the command with the arguments following the command
	// name; flag parsing failures should be returned through CmdParseError
	// so the driver can print usage.
	Run func(cmd *Command, args []string) error

	// UsageLine is the one-line usage message; its first word is the
	// command name.
	UsageLine string

	// Short is the description shown in the '<program> help' listing.
	Short string

	// Long is the description shown by '<program> help <command>'.
	Long string

	// FlagSet holds the command's flags; Run implementations typically
	// register and parse here. Its own output is discarded in favor of the
	// driver's.
	FlagSet flag.FlagSet
}

// Commands is a registration list, in display order.
type Commands []*Command

// Name returns the command name, the first word of the usage line.
func (c *Command) Name() string {
	name := c.UsageLine
	if i := strings.Index(name, " "); i >= 0 {
		name = name[:i]
	}
	return name
}

// Runnable reports whether the command executes or merely documents.
func (c *Command) Runnable() bool {
	return c.Run != nil
}

type cmdParseError struct {
	error
}

// CmdParseError marks err as a flag-parsing failure so Process prints the
// command's usage alongside it.
func CmdParseError(err error) error {
	return cmdParseError{err}
}
