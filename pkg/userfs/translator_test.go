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
	"bytes"
	"syscall"
	"testing"

	"github.com/billziss-gh/cgofuse/fuse"

	"github.com/veilfs/veil/pkg/appledouble"
	"github.com/veilfs/veil/pkg/resfork"
	"github.com/veilfs/veil/pkg/vpath"
)

// helloFS serves "/" containing a single regular file "/hello" with
// contents "Hi" and a 4-byte custom icon attached to "/hello". Optionally
// an icon on the root itself.
type helloFS struct {
	rootIcon bool
}

func (f *helloFS) ContentsOfDirectory(path string) ([]string, error) {
	if path == "/" {
		return []string{"hello"}, nil
	}
	return nil, ENOENT
}

func (f *helloFS) AttributesOfItem(path string) (Attributes, error) {
	switch path {
	case "/":
		return Attributes{AttrType: TypeDirectory}, nil
	case "/hello":
		return Attributes{AttrType: TypeRegular, AttrSize: int64(2)}, nil
	}
	return nil, nil
}

func (f *helloFS) Contents(path string) ([]byte, error) {
	if path == "/hello" {
		return []byte("Hi"), nil
	}
	return nil, nil
}

func (f *helloFS) IconData(path string) []byte {
	if path == "/hello" {
		return []byte("ICON")
	}
	if f.rootIcon && path == "/" {
		return []byte("ROOT")
	}
	return nil
}

func newHelloTranslator(listDouble bool) *translator {
	return &translator{fs: New(&helloFS{}, WithDoubleFileListing(listDouble))}
}

// helloDouble is the sidecar payload the adapter must serve for "/hello".
func helloDouble() []byte {
	var fork resfork.Fork
	fork.Add("icns", -16455, "", []byte("ICON"))
	return appledouble.Pack(appledouble.FlagHasCustomIcon, fork.Bytes())
}

func TestGetattrRoot(t *testing.T) {
	tr := newHelloTranslator(true)
	var st fuse.Stat_t
	if rc := tr.Getattr("/", &st, noHandle); rc != 0 {
		t.Fatalf("Expected 0, got %d", rc)
	}
	if st.Mode&syscall.S_IFMT != syscall.S_IFDIR {
		t.Errorf("Expected directory mode, got %#o", st.Mode)
	}
	if st.Mode&0777 != 0555 {
		t.Errorf("Expected permissions 0555, got %#o", st.Mode&0777)
	}
	if st.Nlink != 1 {
		t.Errorf("Expected nlink 1, got %d", st.Nlink)
	}
}

func TestGetattrFile(t *testing.T) {
	tr := newHelloTranslator(true)
	var st fuse.Stat_t
	if rc := tr.Getattr("/hello", &st, noHandle); rc != 0 {
		t.Fatalf("Expected 0, got %d", rc)
	}
	if st.Mode&syscall.S_IFMT != syscall.S_IFREG {
		t.Errorf("Expected regular mode, got %#o", st.Mode)
	}
	if st.Size != 2 {
		t.Errorf("Expected size 2, got %d", st.Size)
	}
	if st.Blocks != 1 {
		t.Errorf("Expected 1 block, got %d", st.Blocks)
	}
}

func TestGetattrAppleDouble(t *testing.T) {
	tr := newHelloTranslator(true)
	var st fuse.Stat_t
	if rc := tr.Getattr("/._hello", &st, noHandle); rc != 0 {
		t.Fatalf("Expected 0, got %d", rc)
	}
	if st.Mode&syscall.S_IFMT != syscall.S_IFREG {
		t.Errorf("Expected regular mode, got %#o", st.Mode)
	}
	if want := int64(len(helloDouble())); st.Size != want || st.Size == 0 {
		t.Errorf("Expected size %d (> 0), got %d", want, st.Size)
	}
}

func TestReadAppleDouble(t *testing.T) {
	// getattr and open+read must agree on the synthesized bytes.
	tr := newHelloTranslator(true)
	rc, fh := tr.Open("/._hello", 0)
	if rc != 0 {
		t.Fatalf("Expected open to succeed, got %d", rc)
	}
	defer tr.Release("/._hello", fh)

	buff := make([]byte, 4096)
	n := tr.Read("/._hello", buff, 0, fh)
	want := helloDouble()
	if n != len(want) {
		t.Fatalf("Expected %d bytes, got %d", len(want), n)
	}
	if !bytes.Equal(buff[:n], want) {
		t.Error("Expected read bytes to match the synthesized sidecar")
	}

	var st fuse.Stat_t
	if rc := tr.Getattr("/._hello", &st, noHandle); rc != 0 || st.Size != int64(n) {
		t.Errorf("Expected getattr size %d, got %d (rc %d)", n, st.Size, rc)
	}
}

func readdirNames(tr *translator, path string) []string {
	var names []string
	tr.Readdir(path, func(name string, stat *fuse.Stat_t, ofst int64) bool {
		names = append(names, name)
		return true
	}, 0, noHandle)
	return names
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestReaddirCompat(t *testing.T) {
	{
		tr := newHelloTranslator(true)
		names := readdirNames(tr, "/")
		if expected := []string{".", "..", "hello", "._hello"}; !equalStrings(names, expected) {
			t.Errorf("Expected %q, got %q", expected, names)
		}
	}
	{
		tr := newHelloTranslator(false)
		names := readdirNames(tr, "/")
		if expected := []string{".", "..", "hello"}; !equalStrings(names, expected) {
			t.Errorf("Expected %q, got %q", expected, names)
		}
	}
}

func TestReaddirRootIcon(t *testing.T) {
	// A directory with its own custom icon advertises the icon slot and its
	// sidecar, but only in double-file mode.
	{
		tr := &translator{fs: New(&helloFS{rootIcon: true}, WithDoubleFileListing(true))}
		names := readdirNames(tr, "/")
		expected := []string{".", "..", "hello", "._hello", "Icon\r", "._Icon\r"}
		if !equalStrings(names, expected) {
			t.Errorf("Expected %q, got %q", expected, names)
		}
	}
	{
		tr := &translator{fs: New(&helloFS{rootIcon: true}, WithDoubleFileListing(false))}
		names := readdirNames(tr, "/")
		if expected := []string{".", "..", "hello"}; !equalStrings(names, expected) {
			t.Errorf("Expected %q, got %q", expected, names)
		}
	}
}

func TestGetattrIconSlot(t *testing.T) {
	{
		// Root has no icon: the slot does not exist.
		tr := newHelloTranslator(true)
		var st fuse.Stat_t
		if rc := tr.Getattr("/Icon\r", &st, noHandle); rc != -int(ENOENT) {
			t.Errorf("Expected -ENOENT, got %d", rc)
		}
	}
	{
		tr := &translator{fs: New(&helloFS{rootIcon: true}, WithDoubleFileListing(true))}
		var st fuse.Stat_t
		if rc := tr.Getattr("/Icon\r", &st, noHandle); rc != 0 {
			t.Fatalf("Expected 0, got %d", rc)
		}
		if st.Mode&syscall.S_IFMT != syscall.S_IFREG || st.Size != 0 {
			t.Errorf("Expected empty regular file, got mode %#o size %d", st.Mode, st.Size)
		}
	}
}

func TestOpenIconSlotReadsEmpty(t *testing.T) {
	tr := &translator{fs: New(&helloFS{rootIcon: true})}
	rc, fh := tr.Open("/Icon\r", 0)
	if rc != 0 {
		t.Fatalf("Expected open to succeed, got %d", rc)
	}
	defer tr.Release("/Icon\r", fh)
	if n := tr.Read("/Icon\r", make([]byte, 16), 0, fh); n != 0 {
		t.Errorf("Expected empty read, got %d bytes", n)
	}
}

func TestRenameWithoutCapability(t *testing.T) {
	tr := newHelloTranslator(true)
	if rc := tr.Rename("/hello", "/bye"); rc != -int(EACCES) {
		t.Errorf("Expected -EACCES, got %d", rc)
	}
}

func TestDefaultErrnos(t *testing.T) {
	tr := newHelloTranslator(true)
	if rc := tr.Mkdir("/dir", 0755); rc != -int(EACCES) {
		t.Errorf("mkdir: expected -EACCES, got %d", rc)
	}
	if rc := tr.Unlink("/hello"); rc != -int(EACCES) {
		t.Errorf("unlink: expected -EACCES, got %d", rc)
	}
	if rc := tr.Rmdir("/hello"); rc != -int(EACCES) {
		t.Errorf("rmdir: expected -EACCES, got %d", rc)
	}
	if rc := tr.Link("/hello", "/link"); rc != -int(ENOTSUP) {
		t.Errorf("link: expected -ENOTSUP, got %d", rc)
	}
	if rc := tr.Symlink("/hello", "/sym"); rc != -int(ENOTSUP) {
		t.Errorf("symlink: expected -ENOTSUP, got %d", rc)
	}
	if rc, _ := tr.Readlink("/hello"); rc != -int(ENOENT) {
		t.Errorf("readlink: expected -ENOENT, got %d", rc)
	}
	if rc := tr.Truncate("/hello", 0, noHandle); rc != -int(EACCES) {
		t.Errorf("truncate: expected -EACCES, got %d", rc)
	}
	if rc, _ := tr.Create("/new", 0, 0644); rc != -int(EACCES) {
		t.Errorf("create: expected -EACCES, got %d", rc)
	}
	if rc := tr.Setxattr("/hello", "user.x", nil, 0); rc != -int(ENOTSUP) {
		t.Errorf("setxattr: expected -ENOTSUP, got %d", rc)
	}
	if rc := tr.Fsync("/hello", false, noHandle); rc != 0 {
		t.Errorf("fsync: expected 0, got %d", rc)
	}
}

func TestChmodWithoutSetterSucceeds(t *testing.T) {
	tr := newHelloTranslator(true)
	if rc := tr.Chmod("/hello", 0644); rc != 0 {
		t.Errorf("chmod: expected 0, got %d", rc)
	}
	if rc := tr.Chown("/hello", 501, 20); rc != 0 {
		t.Errorf("chown: expected 0, got %d", rc)
	}
	if rc := tr.Utimens("/hello", []fuse.Timespec{fuse.Now(), fuse.Now()}); rc != 0 {
		t.Errorf("utimens: expected 0, got %d", rc)
	}
}

func TestStatfsDefaults(t *testing.T) {
	tr := newHelloTranslator(true)
	var st fuse.Statfs_t
	if rc := tr.Statfs("/", &st); rc != 0 {
		t.Fatalf("Expected 0, got %d", rc)
	}
	if st.Namemax != 255 {
		t.Errorf("Expected namemax 255, got %d", st.Namemax)
	}
	if st.Bsize != 4096 || st.Frsize != 4096 {
		t.Errorf("Expected block sizes 4096, got %d/%d", st.Bsize, st.Frsize)
	}
	if want := uint64(2<<30) / 4096; st.Blocks != want || st.Bfree != want || st.Bavail != want {
		t.Errorf("Expected %d blocks, got %d/%d/%d", want, st.Blocks, st.Bfree, st.Bavail)
	}
}

func TestGetxattrFinderInfo(t *testing.T) {
	tr := newHelloTranslator(true)
	rc, data := tr.Getxattr("/hello", "com.apple.FinderInfo")
	if rc != 0 {
		t.Fatalf("Expected 0, got %d", rc)
	}
	if len(data) != 32 {
		t.Fatalf("Expected 32 bytes, got %d", len(data))
	}
	if !bytes.Equal(data, appledouble.FinderInfo(appledouble.FlagHasCustomIcon)) {
		t.Error("Expected FinderInfo with the custom icon flag")
	}
}

func TestGetxattrResourceFork(t *testing.T) {
	tr := newHelloTranslator(true)
	{
		rc, data := tr.Getxattr("/hello", "com.apple.ResourceFork")
		if rc != 0 || len(data) == 0 {
			t.Errorf("Expected resource fork bytes, got rc %d, %d bytes", rc, len(data))
		}
	}
	{
		// No icon, no fork.
		rc, _ := tr.Getxattr("/", "com.apple.ResourceFork")
		if rc != -int(ENOATTR) {
			t.Errorf("Expected -ENOATTR, got %d", rc)
		}
	}
	{
		rc, _ := tr.Getxattr("/hello", "user.unknown")
		if rc != -int(ENOTSUP) {
			t.Errorf("Expected -ENOTSUP, got %d", rc)
		}
	}
}

func TestListxattrWithoutCapability(t *testing.T) {
	tr := newHelloTranslator(true)
	rc := tr.Listxattr("/hello", func(name string) bool { return true })
	if rc != -int(ENOTSUP) {
		t.Errorf("Expected -ENOTSUP, got %d", rc)
	}
}

// xattrFS layers delegate-provided xattrs over helloFS.
type xattrFS struct {
	helloFS
	attrs map[string][]byte
}

func (f *xattrFS) ExtendedAttributesOfItem(path string) ([]string, error) {
	names := make([]string, 0, len(f.attrs))
	for name := range f.attrs {
		names = append(names, name)
	}
	return names, nil
}

func (f *xattrFS) ValueOfExtendedAttribute(path, name string) ([]byte, error) {
	return f.attrs[name], nil
}

func TestGetxattrDelegate(t *testing.T) {
	d := &xattrFS{attrs: map[string][]byte{"user.color": []byte("teal")}}
	tr := &translator{fs: New(d, WithDoubleFileListing(true))}
	{
		rc, data := tr.Getxattr("/hello", "user.color")
		if rc != 0 || string(data) != "teal" {
			t.Errorf("Expected teal, got rc %d, %q", rc, data)
		}
	}
	{
		// Capability present, attribute absent, no synthetic fallback.
		rc, _ := tr.Getxattr("/hello", "user.missing")
		if rc != -int(ENOATTR) {
			t.Errorf("Expected -ENOATTR, got %d", rc)
		}
	}
	{
		// The synthetic names still answer when the delegate has nothing.
		rc, data := tr.Getxattr("/hello", "com.apple.FinderInfo")
		if rc != 0 || len(data) != 32 {
			t.Errorf("Expected synthesized FinderInfo, got rc %d, %d bytes", rc, len(data))
		}
	}
	{
		var names []string
		rc := tr.Listxattr("/hello", func(name string) bool {
			names = append(names, name)
			return true
		})
		if rc != 0 || len(names) != 1 || names[0] != "user.color" {
			t.Errorf("Expected [user.color], got rc %d, %q", rc, names)
		}
	}
}

// panicFS panics on every probe-able call.
type panicFS struct{}

func (panicFS) ContentsOfDirectory(path string) ([]string, error) { panic("listing") }
func (panicFS) AttributesOfItem(path string) (Attributes, error)  { panic("attrs") }
func (panicFS) Contents(path string) ([]byte, error)              { panic("contents") }

func TestDelegatePanicsAreSwallowed(t *testing.T) {
	tr := &translator{fs: New(panicFS{}, WithDoubleFileListing(false))}
	if rc := tr.Readdir("/", func(string, *fuse.Stat_t, int64) bool { return true }, 0, noHandle); rc != -int(ENOENT) {
		t.Errorf("readdir: expected -ENOENT, got %d", rc)
	}
	var st fuse.Stat_t
	if rc := tr.Getattr("/x", &st, noHandle); rc != -int(ENOENT) {
		t.Errorf("getattr: expected -ENOENT, got %d", rc)
	}
	rc, fh := tr.Open("/x", 0)
	if rc != -int(ENOENT) || fh != noHandle {
		t.Errorf("open: expected -ENOENT and no handle, got %d, %d", rc, fh)
	}
}

// handleFS hands out identifiable handles and counts releases.
type handleFS struct {
	opened   int
	released []interface{}
}

type fakeHandle struct{ id int }

func (f *handleFS) OpenFile(path string, flags int) (interface{}, error) {
	f.opened++
	return &fakeHandle{id: f.opened}, nil
}

func (f *handleFS) ReadFile(path string, handle interface{}, buf []byte, offset int64) (int, error) {
	return copy(buf, "data"), nil
}

func (f *handleFS) ReleaseFile(path string, handle interface{}) {
	f.released = append(f.released, handle)
}

func TestHandleLifecycle(t *testing.T) {
	d := &handleFS{}
	tr := &translator{fs: New(d)}

	rc, fh := tr.Open("/file", 0)
	if rc != 0 || fh == noHandle {
		t.Fatalf("Expected open to succeed, got %d, %d", rc, fh)
	}
	if d.opened != 1 {
		t.Fatalf("Expected one delegate open, got %d", d.opened)
	}

	// Reads retrieve but never drop the handle.
	buf := make([]byte, 4)
	if n := tr.Read("/file", buf, 0, fh); n != 4 {
		t.Errorf("Expected 4 bytes, got %d", n)
	}
	if len(d.released) != 0 {
		t.Fatalf("Expected no release before the release call, got %d", len(d.released))
	}

	if rc := tr.Release("/file", fh); rc != 0 {
		t.Errorf("Expected release to succeed, got %d", rc)
	}
	if len(d.released) != 1 {
		t.Fatalf("Expected exactly one release, got %d", len(d.released))
	}
	if h, ok := d.released[0].(*fakeHandle); !ok || h.id != 1 {
		t.Error("Expected the released handle to be the opened one")
	}

	// A second release of the same id finds nothing to drop.
	if rc := tr.Release("/file", fh); rc != 0 {
		t.Errorf("Expected idempotent release, got %d", rc)
	}
	if len(d.released) != 1 {
		t.Errorf("Expected the delegate release count to stay 1, got %d", len(d.released))
	}
	if n := tr.fs.handles.len(); n != 0 {
		t.Errorf("Expected empty handle table, got %d entries", n)
	}
}

func TestOpenReadViaContents(t *testing.T) {
	tr := newHelloTranslator(true)
	rc, fh := tr.Open("/hello", 0)
	if rc != 0 {
		t.Fatalf("Expected open to succeed, got %d", rc)
	}
	defer tr.Release("/hello", fh)

	buf := make([]byte, 16)
	if n := tr.Read("/hello", buf, 0, fh); n != 2 || string(buf[:2]) != "Hi" {
		t.Errorf("Expected to read \"Hi\", got %d bytes %q", n, buf[:2])
	}
	if n := tr.Read("/hello", buf, 1, fh); n != 1 || buf[0] != 'i' {
		t.Errorf("Expected tail read \"i\", got %d bytes %q", n, buf[:1])
	}
	if rc, _ := tr.Open("/absent", 0); rc != -int(ENOENT) {
		t.Errorf("Expected -ENOENT for an absent file, got %d", rc)
	}
}

func TestGetattrContentsBackfillsSize(t *testing.T) {
	// Without a delegate-supplied size the assembler measures the one-shot
	// contents.
	f := New(sizelessFS{})
	attrs, err := f.attributesOfItem("/hello")
	if err != nil {
		t.Fatal(err)
	}
	if size, ok := attrs.Int64(AttrSize); !ok || size != 2 {
		t.Errorf("Expected backfilled size 2, got %d (%t)", size, ok)
	}
}

type sizelessFS struct{}

func (sizelessFS) AttributesOfItem(path string) (Attributes, error) {
	if path == "/hello" {
		return Attributes{AttrType: TypeRegular}, nil
	}
	return nil, nil
}

func (sizelessFS) Contents(path string) ([]byte, error) {
	if path == "/hello" {
		return []byte("Hi"), nil
	}
	return nil, nil
}

func TestGetattrAbsent(t *testing.T) {
	tr := newHelloTranslator(true)
	var st fuse.Stat_t
	if rc := tr.Getattr("/nope", &st, noHandle); rc != -int(ENOENT) {
		t.Errorf("Expected -ENOENT, got %d", rc)
	}
	// A sidecar for a file with no Finder metadata does not exist either.
	if rc := tr.Getattr("/._nope", &st, noHandle); rc != -int(ENOENT) {
		t.Errorf("Expected -ENOENT for a bare sidecar, got %d", rc)
	}
}

func TestResolverAgreesWithSynthesis(t *testing.T) {
	// The sidecar of the icon slot carries the directory's payload,
	// invisible bit included.
	fs := New(&helloFS{rootIcon: true})
	e := vpath.Resolve("/._Icon\r")
	data := fs.appleDouble(e)
	if data == nil {
		t.Fatal("Expected a sidecar payload for the icon slot")
	}
	var fork resfork.Fork
	fork.Add("icns", -16455, "", []byte("ROOT"))
	want := appledouble.Pack(appledouble.FlagIsInvisible|appledouble.FlagHasCustomIcon, fork.Bytes())
	if !bytes.Equal(data, want) {
		t.Error("Expected the icon slot sidecar to describe the directory icon")
	}
}
