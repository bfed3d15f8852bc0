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
	"io"
	"sync"
)

// noHandle is the kernel's "no open file" marker in the fh slot.
const noHandle = ^uint64(0)

// An openFile is the adapter's stake in one open: the path it was opened
// under and the owning reference to the handle. synthetic marks handles the
// adapter fabricated itself (icon slots, AppleDouble sidecars); those are
// dropped on release without consulting the delegate.
type openFile struct {
	path      string
	handle    interface{}
	synthetic bool
}

// handleTable maps the opaque ids threaded through the kernel's fh slot to
// open files. Ids are never reused within a mount.
type handleTable struct {
	mu   sync.Mutex
	next uint64
	m    map[uint64]*openFile
}

func newHandleTable() *handleTable {
	return &handleTable{m: make(map[uint64]*openFile)}
}

// put stores f and returns its id. The table holds the only owning
// reference until drop.
func (t *handleTable) put(f *openFile) uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.m[t.next] = f
	return t.next
}

func (t *handleTable) get(id uint64) (*openFile, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.m[id]
	return f, ok
}

// drop removes and returns the open file; the caller takes over the
// reference for the final release.
func (t *handleTable) drop(id uint64) (*openFile, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.m[id]
	if ok {
		delete(t.m, id)
	}
	return f, ok
}

func (t *handleTable) len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.m)
}

// byteHandle is a read-only, memory-backed file handle. Synthetic files and
// one-shot delegate contents are served through it.
type byteHandle []byte

func (b byteHandle) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
