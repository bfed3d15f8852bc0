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

package main

import (
	"os"

	"github.com/veilfs/veil/doc"
	"github.com/veilfs/veil/pkg/cli"

	vaultserver "github.com/veilfs/veil/cmd/vault-server"
)

func main() {
	// We aggregate the top-level commands (i.e. 'veil <command> ...') as
	// needed.
	var commands cli.Commands

	commands = append(commands, vaultserver.VaultServerCmd)

	// Documentation pseudo-commands.
	commands = append(commands, doc.ArchitectureCmd)

	abstract := "Veil is a user-space filesystem adapter with a macOS-flavored compatibility layer."
	if err := cli.Process(abstract, commands); err != nil {
		os.Exit(1)
	}
}
