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

// Package userfs adapts a user-supplied filesystem implementation (the
// delegate) to the kernel's FUSE interface. It translates each incoming
// kernel request into a high-level call against the delegate, translates
// the answer back into POSIX return codes and byte buffers, and fills the
// gaps a delegate leaves with standard errors.
//
// Delegates opt into capabilities piecemeal; see Delegate. A minimal
// read-only filesystem:
//
//      type hellofs struct{}
//
//      func (hellofs) ContentsOfDirectory(path string) ([]string, error) {
//              return []string{"hello"}, nil
//      }
//
//      func (hellofs) Contents(path string) ([]byte, error) {
//              if path == "/hello" {
//                      return []byte("hello, world\n"), nil
//              }
//              return nil, nil
//      }
//
//      fs := userfs.New(hellofs{}, userfs.WithLogger(logger))
//      fs.Mount("/mnt/hello") // blocks until unmounted
//
// On top of the plain translation the adapter synthesizes the Finder's
// metadata surface: "._" AppleDouble sidecars, "Icon\r" directory icon
// slots, and the com.apple.FinderInfo / com.apple.ResourceFork extended
// attributes, kept consistent across getattr, open/read, readdir and
// getxattr.
package userfs
