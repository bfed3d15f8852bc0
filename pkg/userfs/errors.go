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

import "syscall"

// Error is a POSIX-domain error. It is the only error kind surfaced to the
// kernel; delegates return these (or plain syscall.Errno values) to control
// the exact errno a request fails with. Any other error a delegate returns
// is replaced by the failing operation's default errno.
type Error syscall.Errno

func (e Error) Error() string {
	return syscall.Errno(e).Error()
}

// Errno returns the wrapped error number.
func (e Error) Errno() syscall.Errno {
	return syscall.Errno(e)
}

var (
	EPERM   = Error(syscall.EPERM)
	ENOENT  = Error(syscall.ENOENT)
	EIO     = Error(syscall.EIO)
	EACCES  = Error(syscall.EACCES)
	EEXIST  = Error(syscall.EEXIST)
	ENODEV  = Error(syscall.ENODEV)
	EINVAL  = Error(syscall.EINVAL)
	ENOTSUP = Error(syscall.ENOTSUP)
)

// errc translates err into a kernel return code. POSIX-domain errors with a
// non-zero code pass through as -code; anything else collapses to the
// operation's default.
func errc(err error, def int) int {
	switch e := err.(type) {
	case Error:
		if e != 0 {
			return -int(e)
		}
	case syscall.Errno:
		if e != 0 {
			return -int(e)
		}
	}
	return def
}
