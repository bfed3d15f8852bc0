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

// Package resfork serializes classic Mac OS resource forks: typed,
// id-addressed binary resources laid out as a data section followed by a
// resource map. The layout follows the resource-file format the Finder and
// Resource Manager expect; it is sufficient for the 'icns' and 'url '
// resources synthesized for FUSE volumes.
package resfork

import (
	"bytes"
	"encoding/binary"
)

// Resource data starts at a fixed offset; the gap after the 16-byte header
// is reserved space in the on-disk format.
const dataSectionOffset = 256

// mapHeaderLen covers the header copy (16), the next-map handle (4), the
// file reference number (2), the fork attributes (2) and the two list
// offsets (2 + 2).
const mapHeaderLen = 28

type resource struct {
	kind string // four-character resource type, e.g. "icns"
	id   int16
	name string
	data []byte
}

// A Fork accumulates resources in insertion order and serializes them on
// demand. The zero value is an empty fork.
type Fork struct {
	resources []resource
}

// Add appends a resource. kind must be a four-character type code; longer
// values are truncated and shorter ones space-padded.
func (f *Fork) Add(kind string, id int16, name string, data []byte) {
	f.resources = append(f.resources, resource{
		kind: fourCC(kind),
		id:   id,
		name: name,
		data: data,
	})
}

// Empty reports whether no resources have been added.
func (f *Fork) Empty() bool {
	return len(f.resources) == 0
}

// Bytes serializes the fork. The result is deterministic for a given
// insertion sequence: types are emitted in order of first appearance, and
// resources of a type in insertion order.
func (f *Fork) Bytes() []byte {
	var data bytes.Buffer
	dataOffsets := make([]int, len(f.resources))
	for i, r := range f.resources {
		dataOffsets[i] = data.Len()
		putUint32(&data, uint32(len(r.data)))
		data.Write(r.data)
	}

	// Group indices by type, preserving first-appearance order.
	var kinds []string
	byKind := make(map[string][]int)
	for i, r := range f.resources {
		if _, ok := byKind[r.kind]; !ok {
			kinds = append(kinds, r.kind)
		}
		byKind[r.kind] = append(byKind[r.kind], i)
	}

	// The type list starts with its count word and holds one 8-byte entry
	// per type; reference-list offsets are measured from the start of the
	// type list, name offsets from the start of the name list.
	typeListLen := 2 + 8*len(kinds)
	refEntryLen := 12

	var refs bytes.Buffer
	var names bytes.Buffer
	refListOffsets := make(map[string]int)
	for _, kind := range kinds {
		refListOffsets[kind] = typeListLen + refs.Len()
		for _, i := range byKind[kind] {
			r := f.resources[i]
			putUint16(&refs, uint16(r.id))
			if r.name == "" {
				putUint16(&refs, 0xffff)
			} else {
				putUint16(&refs, uint16(names.Len()))
				names.WriteByte(byte(len(r.name)))
				names.WriteString(r.name)
			}
			refs.WriteByte(0) // resource attributes
			putUint24(&refs, uint32(dataOffsets[i]))
			putUint32(&refs, 0) // handle, zero on disk
		}
	}

	refsLen := len(f.resources) * refEntryLen
	mapLen := mapHeaderLen + typeListLen + refsLen + names.Len()
	mapOffset := dataSectionOffset + data.Len()

	var out bytes.Buffer
	putUint32(&out, dataSectionOffset)
	putUint32(&out, uint32(mapOffset))
	putUint32(&out, uint32(data.Len()))
	putUint32(&out, uint32(mapLen))
	out.Write(make([]byte, dataSectionOffset-out.Len()))
	out.Write(data.Bytes())

	// Resource map.
	out.Write(make([]byte, 16)) // reserved copy of the header
	putUint32(&out, 0)          // next resource map
	putUint16(&out, 0)          // file reference number
	putUint16(&out, 0)          // fork attributes
	putUint16(&out, mapHeaderLen)
	putUint16(&out, uint16(mapHeaderLen+typeListLen+refsLen))

	putUint16(&out, uint16(len(kinds)-1))
	for _, kind := range kinds {
		out.WriteString(kind)
		putUint16(&out, uint16(len(byKind[kind])-1))
		putUint16(&out, uint16(refListOffsets[kind]))
	}
	out.Write(refs.Bytes())
	out.Write(names.Bytes())

	return out.Bytes()
}

func fourCC(kind string) string {
	if len(kind) > 4 {
		return kind[:4]
	}
	for len(kind) < 4 {
		kind += " "
	}
	return kind
}

func putUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func putUint24(buf *bytes.Buffer, v uint32) {
	buf.Write([]byte{byte(v >> 16), byte(v >> 8), byte(v)})
}

func putUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
