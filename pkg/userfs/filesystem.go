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
	"sync"

	"github.com/veilfs/veil/pkg/log"
)

// Status is the mount state of one FileSystem instance.
type Status int

const (
	StatusNotMounted Status = iota
	StatusMounting
	StatusInitializing
	StatusMounted
	StatusUnmounting
	StatusFailure
)

func (s Status) String() string {
	switch s {
	case StatusNotMounted:
		return "not-mounted"
	case StatusMounting:
		return "mounting"
	case StatusInitializing:
		return "initializing"
	case StatusMounted:
		return "mounted"
	case StatusUnmounting:
		return "unmounting"
	case StatusFailure:
		return "failure"
	default:
		return "invalid"
	}
}

// A FileSystem adapts a delegate to the kernel's FUSE interface. One
// instance serves one mount at a time.
type FileSystem struct {
	delegate Delegate
	facade   *facade
	logger   *log.Logger
	sink     EventSink
	handles  *handleTable

	threadSafe bool
	foreground bool
	options    []string
	listDouble bool

	// probe reports whether the kernel handshake for the mount point has
	// completed; replaceable for tests.
	probe func(mountPath string) bool

	mu        sync.Mutex
	status    Status
	mountPath string
}

// An Option configures a FileSystem at construction.
type Option func(*FileSystem)

// WithLogger routes the adapter's own logging to logger.
func WithLogger(logger *log.Logger) Option {
	return func(f *FileSystem) { f.logger = logger }
}

// WithEventSink delivers mount lifecycle events to sink.
func WithEventSink(sink EventSink) Option {
	return func(f *FileSystem) { f.sink = sink }
}

// WithThreadSafe declares the delegate safe for concurrent callbacks. The
// event loop is single-threaded otherwise.
func WithThreadSafe() Option {
	return func(f *FileSystem) { f.threadSafe = true }
}

// WithForeground keeps the event loop in the foreground.
func WithForeground() Option {
	return func(f *FileSystem) { f.foreground = true }
}

// WithMountOptions passes additional options to the mount, one -o each.
// Empty strings are skipped.
func WithMountOptions(options ...string) Option {
	return func(f *FileSystem) { f.options = append(f.options, options...) }
}

// WithDoubleFileListing overrides the host-version probe that decides
// whether directory listings include synthetic "._" entries.
func WithDoubleFileListing(enabled bool) Option {
	return func(f *FileSystem) { f.listDouble = enabled }
}

// New wraps delegate in a FileSystem. The zero configuration discards
// logs, drops events and assumes a single-threaded delegate.
func New(delegate Delegate, options ...Option) *FileSystem {
	f := &FileSystem{
		delegate: delegate,
		facade:   &facade{d: delegate},
		logger:   log.Discarder(),
		sink:     nopSink{},
		handles:  newHandleTable(),
		// Hosts whose FUSE layer maps Finder metadata onto xattrs list no
		// double files; older ones need them spliced into readdir.
		listDouble: hostFuseMajorVersion() < 9,
		probe:      probeMountPoint,
		status:     StatusNotMounted,
	}
	for _, option := range options {
		option(f)
	}
	return f
}

// Status reports the current mount status.
func (f *FileSystem) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *FileSystem) setStatus(s Status) {
	f.mu.Lock()
	f.status = s
	f.mu.Unlock()
}

// MountPath reports the path of the current (or last) mount.
func (f *FileSystem) MountPath() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mountPath
}
