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
	"errors"
	"fmt"
	"time"

	"github.com/billziss-gh/cgofuse/fuse"
)

// The kernel handshake is polled rather than signalled: the init callback
// fires when the userspace side is ready, but the volume only becomes
// usable once the kernel reports handshake completion.
const (
	handshakeAttempts = 50
	handshakeInterval = 100 * time.Millisecond
)

// ErrMountLoop reports an event loop that returned while the mount was still
// in the mounting state, before the init callback arrived.
var ErrMountLoop = errors.New("userfs: fuse event loop exited before the volume mounted")

// Mount attaches the filesystem at mountPath and blocks inside the FUSE
// event loop until the volume is unmounted. Callers wanting a non-blocking
// mount run it on a goroutine of their own and watch the event sink.
func (f *FileSystem) Mount(mountPath string) error {
	f.mu.Lock()
	if f.status != StatusNotMounted && f.status != StatusFailure {
		status := f.status
		f.mu.Unlock()
		return fmt.Errorf("userfs: cannot mount while %v", status)
	}
	f.status = StatusMounting
	f.mountPath = mountPath
	f.mu.Unlock()

	f.facade.willMount()

	host := fuse.NewFileSystemHost(&translator{fs: f})
	host.Mount(mountPath, f.mountArgs())

	// The loop returning while the mount is still being established is the
	// one mount-failure signal available.
	f.mu.Lock()
	failed := f.status == StatusMounting
	if failed {
		f.status = StatusFailure
	} else {
		f.status = StatusNotMounted
	}
	f.mu.Unlock()

	if failed {
		f.sink.MountFailed(mountPath, ErrMountLoop)
		return ErrMountLoop
	}
	return nil
}

// mountArgs builds the option vector handed to the event loop: -s unless
// the delegate is thread safe, -f for foreground, then one -o token per
// user option. The transport supplies argv[0] and the mount path itself.
func (f *FileSystem) mountArgs() []string {
	var args []string
	if !f.threadSafe {
		args = append(args, "-s")
	}
	if f.foreground {
		args = append(args, "-f")
	}
	for _, option := range f.options {
		if option == "" {
			continue
		}
		args = append(args, "-o"+option)
	}
	return args
}

// beginInitializing runs on the transport's init callback: the userspace
// side of the handshake is up, the kernel side is awaited in the
// background.
func (f *FileSystem) beginInitializing() {
	f.setStatus(StatusInitializing)
	go f.awaitHandshake()
}

// awaitHandshake polls the mount until the kernel reports the volume
// usable, then flips to mounted and announces it. Polling gives up after
// handshakeAttempts rounds and leaves the status untouched; whether an
// abandoned handshake should force an unmount is unresolved.
func (f *FileSystem) awaitHandshake() {
	for i := 0; i < handshakeAttempts; i++ {
		if f.Status() != StatusInitializing {
			return
		}
		if f.probe(f.MountPath()) {
			f.mu.Lock()
			if f.status != StatusInitializing {
				f.mu.Unlock()
				return
			}
			f.status = StatusMounted
			mountPath := f.mountPath
			f.mu.Unlock()
			f.sink.DidMount(mountPath)
			return
		}
		time.Sleep(handshakeInterval)
	}
	f.logger.Warnf("handshake did not complete within %v", handshakeAttempts*handshakeInterval)
}

// beginUnmounting runs on the transport's destroy callback.
func (f *FileSystem) beginUnmounting() {
	f.facade.willUnmount()
	f.setStatus(StatusUnmounting)
	f.sink.DidUnmount(f.MountPath())
}

// Unmount detaches a mounted filesystem out-of-band through the platform
// unmount utility; the event loop observes the kernel teardown and winds
// the state machine down from there.
func (f *FileSystem) Unmount() error {
	f.mu.Lock()
	status, mountPath := f.status, f.mountPath
	f.mu.Unlock()
	if status != StatusMounted {
		return fmt.Errorf("userfs: cannot unmount while %v", status)
	}
	return Unmount(mountPath)
}
