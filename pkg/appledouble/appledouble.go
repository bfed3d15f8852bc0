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

// Package appledouble serializes AppleDouble "._" sidecar files and the
// 32-byte FinderInfo blob they embed. An AppleDouble file is a header
// followed by a table of typed entries; the entries emitted here are
// FinderInfo and, optionally, a resource fork.
package appledouble

import (
	"bytes"
	"encoding/binary"
)

// Finder flag bits, as read by the Finder from FinderInfo.
const (
	FlagIsInvisible   uint16 = 0x4000
	FlagHasCustomIcon uint16 = 0x0400
)

// AppleDouble entry ids.
const (
	EntryResourceFork uint32 = 2
	EntryFinderInfo   uint32 = 9
)

const (
	magic   uint32 = 0x00051607
	version uint32 = 0x00020000
)

// finderInfoLen is fixed by the format: 16 bytes of Finder info plus 16
// bytes of extended Finder info.
const finderInfoLen = 32

// FinderInfo returns the 32-byte FinderInfo blob carrying the given flags.
// The flag word sits big-endian at offset 8; type, creator and location are
// left zero.
func FinderInfo(flags uint16) []byte {
	b := make([]byte, finderInfoLen)
	binary.BigEndian.PutUint16(b[8:10], flags)
	return b
}

type entry struct {
	id   uint32
	data []byte
}

// A Double accumulates entries for one AppleDouble file.
type Double struct {
	entries []entry
}

// Add appends an entry. Entries serialize in insertion order.
func (d *Double) Add(id uint32, data []byte) {
	d.entries = append(d.entries, entry{id: id, data: data})
}

// Bytes serializes the AppleDouble file: magic, version, 16 filler bytes,
// entry count, entry descriptors (id, offset, length), then the entry data.
func (d *Double) Bytes() []byte {
	var out bytes.Buffer
	var b [4]byte

	binary.BigEndian.PutUint32(b[:], magic)
	out.Write(b[:])
	binary.BigEndian.PutUint32(b[:], version)
	out.Write(b[:])
	out.Write(make([]byte, 16))

	var cnt [2]byte
	binary.BigEndian.PutUint16(cnt[:], uint16(len(d.entries)))
	out.Write(cnt[:])

	// Data begins immediately after the descriptor table.
	offset := out.Len() + 12*len(d.entries)
	for _, e := range d.entries {
		binary.BigEndian.PutUint32(b[:], e.id)
		out.Write(b[:])
		binary.BigEndian.PutUint32(b[:], uint32(offset))
		out.Write(b[:])
		binary.BigEndian.PutUint32(b[:], uint32(len(e.data)))
		out.Write(b[:])
		offset += len(e.data)
	}
	for _, e := range d.entries {
		out.Write(e.data)
	}
	return out.Bytes()
}

// Pack builds the conventional sidecar contents: a FinderInfo entry with
// the given flags and, when non-nil, a resource fork entry.
func Pack(flags uint16, resourceFork []byte) []byte {
	var d Double
	d.Add(EntryFinderInfo, FinderInfo(flags))
	if resourceFork != nil {
		d.Add(EntryResourceFork, resourceFork)
	}
	return d.Bytes()
}
