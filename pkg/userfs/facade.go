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

import "io"

// facade probes the delegate for each capability and substitutes a standard
// POSIX answer when the delegate opts out. Every adapter call into the
// delegate goes through here.
type facade struct {
	d Delegate
}

// Reported for filesystems whose delegates do not stat themselves.
const defaultFSValue = 2 << 30

func (f *facade) willMount() {
	if o, ok := f.d.(MountObserver); ok {
		o.WillMount()
	}
}

func (f *facade) willUnmount() {
	if o, ok := f.d.(UnmountObserver); ok {
		o.WillUnmount()
	}
}

// contentsOfDirectory lists a directory. A delegate without a lister still
// serves an empty root so that a freshly mounted volume is browsable.
func (f *facade) contentsOfDirectory(path string) ([]string, error) {
	l, ok := f.d.(DirectoryLister)
	if !ok {
		if path == "/" {
			return []string{}, nil
		}
		return nil, ENOENT
	}
	names, err := l.ContentsOfDirectory(path)
	if err != nil {
		return nil, err
	}
	if names == nil {
		return nil, ENOENT
	}
	return names, nil
}

// attributesOfItem fetches delegate overrides. The bool reports whether the
// delegate implements the capability at all; absent capability is not an
// error. With the capability present, a nil map means the entry does not
// exist.
func (f *facade) attributesOfItem(path string) (Attributes, bool, error) {
	p, ok := f.d.(AttributeProvider)
	if !ok {
		return nil, false, nil
	}
	attrs, err := p.AttributesOfItem(path)
	if err != nil {
		return nil, true, err
	}
	if attrs == nil {
		return nil, true, ENOENT
	}
	return attrs, true, nil
}

func (f *facade) attributesOfFileSystem(path string) (FSAttributes, error) {
	if p, ok := f.d.(FileSystemStater); ok {
		return p.AttributesOfFileSystem(path)
	}
	return FSAttributes{
		Size:      defaultFSValue,
		FreeSize:  defaultFSValue,
		Nodes:     defaultFSValue,
		FreeNodes: defaultFSValue,
	}, nil
}

func (f *facade) setAttributes(path string, attrs Attributes) error {
	if s, ok := f.d.(AttributeSetter); ok {
		return s.SetAttributes(path, attrs)
	}
	return ENODEV
}

// contents returns the delegate's one-shot contents. The bool reports
// capability presence.
func (f *facade) contents(path string) ([]byte, bool, error) {
	p, ok := f.d.(ContentsProvider)
	if !ok {
		return nil, false, nil
	}
	data, err := p.Contents(path)
	return data, true, err
}

// openFile produces a handle for an ordinary open: one-shot contents win
// over a delegate opener, and a delegate without either cannot open
// anything.
func (f *facade) openFile(path string, flags int) (interface{}, error) {
	if data, ok, err := f.contents(path); ok {
		if err != nil {
			return nil, err
		}
		if data == nil {
			return nil, ENOENT
		}
		return byteHandle(data), nil
	}
	if o, ok := f.d.(FileOpener); ok {
		return o.OpenFile(path, flags)
	}
	return nil, ENOENT
}

func (f *facade) releaseFile(path string, handle interface{}) {
	if r, ok := f.d.(FileReleaser); ok {
		r.ReleaseFile(path, handle)
	}
}

// readFile serves a read through the handle when it can, through the
// delegate otherwise.
func (f *facade) readFile(path string, handle interface{}, buf []byte, offset int64) (int, error) {
	if r, ok := handle.(io.ReaderAt); ok {
		n, err := r.ReadAt(buf, offset)
		if err == io.EOF {
			err = nil
		}
		return n, err
	}
	if r, ok := f.d.(FileReader); ok {
		return r.ReadFile(path, handle, buf, offset)
	}
	return 0, EACCES
}

func (f *facade) writeFile(path string, handle interface{}, data []byte, offset int64) (int, error) {
	if w, ok := handle.(io.WriterAt); ok {
		return w.WriteAt(data, offset)
	}
	if w, ok := f.d.(FileWriter); ok {
		return w.WriteFile(path, handle, data, offset)
	}
	return 0, EACCES
}

func (f *facade) truncateFile(path string, handle interface{}, size int64) error {
	if t, ok := handle.(Truncater); ok {
		return t.Truncate(size)
	}
	if t, ok := f.d.(FileTruncater); ok {
		return t.TruncateFile(path, handle, size)
	}
	return EACCES
}

func (f *facade) createFile(path string, attrs Attributes) (interface{}, error) {
	if c, ok := f.d.(FileCreator); ok {
		return c.CreateFile(path, attrs)
	}
	return nil, EACCES
}

func (f *facade) createDirectory(path string, attrs Attributes) error {
	if c, ok := f.d.(DirectoryCreator); ok {
		return c.CreateDirectory(path, attrs)
	}
	return EACCES
}

func (f *facade) moveItem(source, target string) error {
	if m, ok := f.d.(ItemMover); ok {
		return m.MoveItem(source, target)
	}
	return EACCES
}

func (f *facade) removeItem(path string) error {
	if r, ok := f.d.(ItemRemover); ok {
		return r.RemoveItem(path)
	}
	return EACCES
}

func (f *facade) linkItem(path, target string) error {
	if l, ok := f.d.(ItemLinker); ok {
		return l.LinkItem(path, target)
	}
	return ENOTSUP
}

func (f *facade) createSymbolicLink(path, target string) error {
	if s, ok := f.d.(SymlinkCreator); ok {
		return s.CreateSymbolicLink(path, target)
	}
	return ENOTSUP
}

func (f *facade) destinationOfSymbolicLink(path string) (string, error) {
	if s, ok := f.d.(SymlinkResolver); ok {
		return s.DestinationOfSymbolicLink(path)
	}
	return "", ENOENT
}

func (f *facade) extendedAttributesOfItem(path string) ([]string, error) {
	if l, ok := f.d.(XattrLister); ok {
		return l.ExtendedAttributesOfItem(path)
	}
	return nil, ENOTSUP
}

// valueOfExtendedAttribute reads one xattr. The bool reports capability
// presence; synthetic fallbacks apply above this layer.
func (f *facade) valueOfExtendedAttribute(path, name string) ([]byte, bool, error) {
	g, ok := f.d.(XattrGetter)
	if !ok {
		return nil, false, nil
	}
	data, err := g.ValueOfExtendedAttribute(path, name)
	return data, true, err
}

func (f *facade) setExtendedAttribute(path, name string, value []byte) error {
	if s, ok := f.d.(XattrSetter); ok {
		return s.SetExtendedAttribute(path, name, value)
	}
	return ENOTSUP
}

func (f *facade) finderFlags(path string) (uint16, bool) {
	if p, ok := f.d.(FinderFlagsProvider); ok {
		return p.FinderFlags(path), true
	}
	return 0, false
}

func (f *facade) iconData(path string) []byte {
	if p, ok := f.d.(IconDataProvider); ok {
		return p.IconData(path)
	}
	return nil
}

func (f *facade) weblocURL(path string) string {
	if p, ok := f.d.(WeblocProvider); ok {
		return p.WeblocURL(path)
	}
	return ""
}
