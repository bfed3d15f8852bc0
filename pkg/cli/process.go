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
	"fmt"
	"io/ioutil"
	"os"
	"strings"
)

// Process is the CLI entry point: it routes os.Args through the registered
// commands. Invoked bare (or as 'help'/'-h') it prints the full usage;
// 'help <command>' prints one command's documentation. CLI-level mistakes
// print to os.Stderr and exit with status 2; command execution errors
// propagate to the caller.
func Process(abstract string, commands Commands) error {
	program, args := os.Args[0], os.Args[1:]

	for _, cmd := range commands {
		cmd.FlagSet.SetOutput(ioutil.Discard)
	}

	if len(args) == 0 || (len(args) == 1 && (args[0] == "help" || args[0] == "-h")) {
		printFullUsage(program, abstract, commands)
		return nil
	}

	if args[0] == "help" {
		if len(args) > 2 {
			fmt.Fprintf(os.Stderr, "Usage: %s help [command]\n\nToo many arguments given.\n", program)
			os.Exit(2)
		}
		if err := printCommandUsage(program, args[1], commands); err != nil {
			fmt.Fprintf(os.Stderr, "Unknown help topic '%s'\n\nRun '%s help' for available topics.\n",
				args[1], program)
			os.Exit(2)
		}
		return nil
	}

	for _, cmd := range commands {
		if cmd.Name() != args[0] || !cmd.Runnable() {
			continue
		}

		err := cmd.Run(cmd, args[1:])
		if _, ok := err.(cmdParseError); !ok {
			return err
		}

		// '-h' surfaces as a parse error from the flag package but is a
		// valid request for the command's flag listing.
		if strings.Contains(err.Error(), "help requested") {
			printCommandHelp(program, cmd)
			return nil
		}

		printCommandParsingError(program, cmd, err)
		os.Exit(2)
	}

	fmt.Fprintf(os.Stderr, "Unknown command '%s'\n\nRun '%s help' for available commands.\n",
		args[0], program)
	os.Exit(2)
	return nil
}
