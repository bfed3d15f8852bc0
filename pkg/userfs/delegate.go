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

// A Delegate is the user-supplied filesystem implementation. Every
// capability is optional: the adapter probes the delegate with type
// assertions against the small interfaces below and answers with a standard
// POSIX error for whatever the delegate leaves out. A useful read-only
// delegate implements DirectoryLister, AttributeProvider and
// ContentsProvider; everything beyond that is opt-in.
//
// All paths handed to a delegate are absolute and slash-separated.
// Attribute, contents and open requests and the Finder flag, icon and webloc
// queries receive the real path, stripped of any synthetic "._" or "Icon\r"
// layer; every other operation receives the path the kernel sent.
type Delegate interface{}

// MountObserver is notified immediately before the event loop starts.
type MountObserver interface {
	WillMount()
}

// UnmountObserver is notified when the kernel tears the mount down, before
// the adapter leaves the mounted state.
type UnmountObserver interface {
	WillUnmount()
}

// DirectoryLister returns the names (not paths) of a directory's children.
type DirectoryLister interface {
	ContentsOfDirectory(path string) ([]string, error)
}

// AttributeProvider supplies attribute overrides for an entry. Returning a
// nil map without an error means the entry does not exist.
type AttributeProvider interface {
	AttributesOfItem(path string) (Attributes, error)
}

// FileSystemStater reports whole-filesystem attributes for statfs.
type FileSystemStater interface {
	AttributesOfFileSystem(path string) (FSAttributes, error)
}

// AttributeSetter applies attribute changes (chmod, chown, utimens, and
// size changes routed through setattr).
type AttributeSetter interface {
	SetAttributes(path string, attrs Attributes) error
}

// ContentsProvider returns an entry's full contents in one shot. Returning
// nil without an error means the entry does not exist. When implemented,
// open uses the returned bytes as the file handle and the delegate never
// sees per-handle reads.
type ContentsProvider interface {
	Contents(path string) ([]byte, error)
}

// FileOpener produces a file handle for an open. The handle is opaque to
// the adapter; it is retained until the matching release. Handles may
// additionally implement io.ReaderAt, io.WriterAt and Truncater to serve
// I/O directly.
type FileOpener interface {
	OpenFile(path string, flags int) (interface{}, error)
}

// FileReleaser reclaims a handle on the final release of an open file.
type FileReleaser interface {
	ReleaseFile(path string, handle interface{})
}

// FileReader serves reads for delegates whose handles do not implement
// io.ReaderAt.
type FileReader interface {
	ReadFile(path string, handle interface{}, buf []byte, offset int64) (int, error)
}

// FileWriter serves writes for delegates whose handles do not implement
// io.WriterAt.
type FileWriter interface {
	WriteFile(path string, handle interface{}, data []byte, offset int64) (int, error)
}

// FileTruncater serves truncates for delegates whose handles do not
// implement Truncater. handle is nil when truncate arrives without an open
// file.
type FileTruncater interface {
	TruncateFile(path string, handle interface{}, size int64) error
}

// FileCreator creates a regular file and may return a handle for it, under
// the same contract as FileOpener.
type FileCreator interface {
	CreateFile(path string, attrs Attributes) (interface{}, error)
}

// DirectoryCreator creates a directory.
type DirectoryCreator interface {
	CreateDirectory(path string, attrs Attributes) error
}

// ItemMover renames source to target. The adapter never recurses; moving a
// directory moves the subtree in one delegate call.
type ItemMover interface {
	MoveItem(source, target string) error
}

// ItemRemover removes a file or an (empty) directory.
type ItemRemover interface {
	RemoveItem(path string) error
}

// ItemLinker creates a hard link at path naming target.
type ItemLinker interface {
	LinkItem(path, target string) error
}

// SymlinkCreator creates a symbolic link at path pointing at target.
type SymlinkCreator interface {
	CreateSymbolicLink(path, target string) error
}

// SymlinkResolver reads a symbolic link.
type SymlinkResolver interface {
	DestinationOfSymbolicLink(path string) (string, error)
}

// XattrLister names an entry's extended attributes.
type XattrLister interface {
	ExtendedAttributesOfItem(path string) ([]string, error)
}

// XattrGetter reads one extended attribute. Returning nil without an error
// means the attribute does not exist.
type XattrGetter interface {
	ValueOfExtendedAttribute(path, name string) ([]byte, error)
}

// XattrSetter writes one extended attribute.
type XattrSetter interface {
	SetExtendedAttribute(path, name string, value []byte) error
}

// FinderFlagsProvider reports Finder flag bits for an entry. When present
// its word replaces the icon-data probe when flags are computed; icon slots
// still get the invisible bit on top of it.
type FinderFlagsProvider interface {
	FinderFlags(path string) uint16
}

// IconDataProvider returns custom icon bytes ('icns' data) for an entry,
// nil or empty for none.
type IconDataProvider interface {
	IconData(path string) []byte
}

// WeblocProvider returns the URL string a ".webloc" entry points at, empty
// for none.
type WeblocProvider interface {
	WeblocURL(path string) string
}

// Truncater is an optional file-handle capability.
type Truncater interface {
	Truncate(size int64) error
}
