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

package userfs

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

// probeMountPoint is the default handshake probe: a mount point that has
// gone live sits on a different device than its parent directory. The
// transport owns the kernel channel descriptor, so the handshake ioctl
// (see HandshakeComplete on darwin) is not available to the poller.
func probeMountPoint(mountPath string) bool {
	var mnt, parent unix.Stat_t
	if err := unix.Stat(mountPath, &mnt); err != nil {
		return false
	}
	if err := unix.Stat(filepath.Dir(mountPath), &parent); err != nil {
		return false
	}
	return mnt.Dev != parent.Dev
}
