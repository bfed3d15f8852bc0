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
	"testing"
)

func TestHandleTable(t *testing.T) {
	table := newHandleTable()

	a := table.put(&openFile{path: "/a"})
	b := table.put(&openFile{path: "/b"})
	if a == b || a == noHandle || b == noHandle {
		t.Fatalf("Expected distinct valid ids, got %d and %d", a, b)
	}

	if f, ok := table.get(a); !ok || f.path != "/a" {
		t.Error("Expected to retrieve /a")
	}
	if _, ok := table.get(noHandle); ok {
		t.Error("Expected the invalid id to resolve to nothing")
	}

	if f, ok := table.drop(a); !ok || f.path != "/a" {
		t.Error("Expected to drop /a")
	}
	if _, ok := table.drop(a); ok {
		t.Error("Expected the second drop to find nothing")
	}
	if table.len() != 1 {
		t.Errorf("Expected one open file left, got %d", table.len())
	}
}

func TestByteHandleReadAt(t *testing.T) {
	h := byteHandle("abcdef")
	{
		buf := make([]byte, 3)
		n, err := h.ReadAt(buf, 0)
		if n != 3 || err != nil || string(buf) != "abc" {
			t.Errorf("Expected \"abc\", got %d, %v, %q", n, err, buf)
		}
	}
	{
		buf := make([]byte, 10)
		n, err := h.ReadAt(buf, 2)
		if n != 4 || err != io.EOF || string(buf[:n]) != "cdef" {
			t.Errorf("Expected short read \"cdef\" with EOF, got %d, %v, %q", n, err, buf[:n])
		}
	}
	{
		n, err := h.ReadAt(make([]byte, 4), 6)
		if n != 0 || err != io.EOF {
			t.Errorf("Expected EOF past the end, got %d, %v", n, err)
		}
	}
	{
		var empty byteHandle
		n, err := empty.ReadAt(make([]byte, 4), 0)
		if n != 0 || err != io.EOF {
			t.Errorf("Expected EOF on the empty handle, got %d, %v", n, err)
		}
	}
}
