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

import "time"

// EntryType is the kind of a filesystem entry.
type EntryType int

const (
	TypeUnknown EntryType = iota
	TypeDirectory
	TypeRegular
	TypeSymlink
)

func (t EntryType) String() string {
	switch t {
	case TypeDirectory:
		return "directory"
	case TypeRegular:
		return "regular"
	case TypeSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// Attr names a well-known attribute key.
type Attr string

const (
	// AttrPermissions holds the permission portion of the mode bits (uint32).
	AttrPermissions Attr = "posix-permissions"
	// AttrType holds the entry type (EntryType).
	AttrType Attr = "file-type"
	// AttrOwnerID holds the POSIX uid (uint32); the effective uid of the
	// process when unset.
	AttrOwnerID Attr = "owner-id"
	// AttrGroupID holds the POSIX gid (uint32); the effective gid of the
	// process when unset.
	AttrGroupID Attr = "group-id"
	// AttrReferenceCount holds st_nlink (uint32); 1 means "don't know".
	AttrReferenceCount Attr = "reference-count"
	// AttrModificationDate holds st_mtime (time.Time), mirrored into
	// st_atime.
	AttrModificationDate Attr = "modification-date"
	// AttrCreationDate holds the creation date (time.Time). It lands in
	// st_ctime; the name mismatch is historical and deliberately preserved.
	AttrCreationDate Attr = "creation-date"
	// AttrSize holds st_size (int64); meaningful for non-directories.
	AttrSize Attr = "size"
)

// Attributes maps well-known keys to typed values. Values of the wrong
// dynamic type are treated as unset.
type Attributes map[Attr]interface{}

// Merge copies every entry of over on top of a.
func (a Attributes) Merge(over Attributes) {
	for k, v := range over {
		a[k] = v
	}
}

// Uint32 fetches a uint32-valued attribute.
func (a Attributes) Uint32(k Attr) (uint32, bool) {
	v, ok := a[k].(uint32)
	return v, ok
}

// Int64 fetches an int64-valued attribute.
func (a Attributes) Int64(k Attr) (int64, bool) {
	v, ok := a[k].(int64)
	return v, ok
}

// Time fetches a time-valued attribute.
func (a Attributes) Time(k Attr) (time.Time, bool) {
	v, ok := a[k].(time.Time)
	return v, ok
}

// EntryType fetches the entry type, TypeUnknown when unset.
func (a Attributes) EntryType() EntryType {
	v, ok := a[AttrType].(EntryType)
	if !ok {
		return TypeUnknown
	}
	return v
}

// FSAttributes describes the filesystem as a whole, in bytes and node
// counts. All fields are always populated; the facade substitutes defaults
// for delegates that do not report them.
type FSAttributes struct {
	Size      uint64
	FreeSize  uint64
	Nodes     uint64
	FreeNodes uint64
}
