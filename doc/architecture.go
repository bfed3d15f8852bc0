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

package doc

import "github.com/veilfs/veil/pkg/cli"

var ArchitectureCmd = &cli.Command{
	UsageLine: "architecture",
	Short:     "Veil system architecture overview",
	Long: `
Veil is a user-space filesystem adapter: it sits between the kernel's FUSE
interface and a user-supplied filesystem implementation (the delegate),
translating kernel requests into high-level delegate calls and delegate
answers back into POSIX return codes and byte buffers.

The layers, kernel down to storage:

    kernel FUSE driver
        |
    transport (cgofuse): raw operation table, event loop, buffers
        |
    pkg/userfs: request translator, delegate facade, attribute assembler,
                synthetic Finder metadata, mount state machine
        |
    delegate: any type opting into pkg/userfs capability interfaces
              (cmd/vault-server ships one: an encrypted bolt-backed vault)

pkg/vpath classifies the synthetic paths ("._" sidecars, "Icon\r" icon
slots); pkg/appledouble and pkg/resfork serialize the byte payloads the
Finder reads through them.

Mounting runs a state machine: not-mounted -> mounting -> initializing ->
mounted -> unmounting -> not-mounted, with a failure state entered when the
event loop returns while still mounting, before the init callback arrived. Lifecycle events
(did-mount, did-unmount, mount-failed) are delivered to an event sink
configured at construction.
`,
}
