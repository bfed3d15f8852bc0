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
	"os"
	"syscall"

	"github.com/billziss-gh/cgofuse/fuse"

	"github.com/veilfs/veil/pkg/appledouble"
	"github.com/veilfs/veil/pkg/vpath"
)

// translator is the kernel-facing side of the adapter: one method per FUSE
// operation, each decoding the transport's arguments, driving the facade
// and encoding the answer back into POSIX return codes and buffers.
// FileSystemBase answers every operation the adapter does not register
// with -ENOSYS.
//
// A delegate may panic; panics never cross back into the transport. Every
// callback runs under a recover boundary that converts a panic into the
// operation's default errno.
type translator struct {
	fuse.FileSystemBase
	fs *FileSystem
}

// protect is deferred at the top of every callback. It pins the return
// code to def when the body panicked.
func (t *translator) protect(op string, def int, rc *int) {
	if r := recover(); r != nil {
		t.fs.logger.Errorf("%s: delegate panic: %v", op, r)
		*rc = def
	}
}

func (t *translator) Init() {
	t.fs.beginInitializing()
}

func (t *translator) Destroy() {
	defer func() {
		if r := recover(); r != nil {
			t.fs.logger.Errorf("destroy: delegate panic: %v", r)
		}
	}()
	t.fs.beginUnmounting()
}

func (t *translator) Statfs(path string, stat *fuse.Statfs_t) (rc int) {
	defer t.protect("statfs", -int(ENOENT), &rc)

	fsattrs, err := t.fs.facade.attributesOfFileSystem(path)
	if err != nil {
		return errc(err, -int(ENOENT))
	}

	const frsize = 4096
	*stat = fuse.Statfs_t{}
	stat.Namemax = 255
	stat.Bsize = frsize
	stat.Frsize = frsize
	stat.Blocks = fsattrs.Size / frsize
	stat.Bfree = fsattrs.FreeSize / frsize
	stat.Bavail = stat.Bfree
	stat.Files = fsattrs.Nodes
	stat.Ffree = fsattrs.FreeNodes
	stat.Favail = stat.Ffree
	return 0
}

func (t *translator) Getattr(path string, stat *fuse.Stat_t, fh uint64) (rc int) {
	defer t.protect("getattr", -int(ENOENT), &rc)

	attrs, err := t.fs.attributesOfItem(path)
	if err != nil {
		return errc(err, -int(ENOENT))
	}
	return fillStat(stat, attrs)
}

func (t *translator) Readdir(path string,
	fill func(name string, stat *fuse.Stat_t, ofst int64) bool,
	ofst int64, fh uint64) (rc int) {
	defer t.protect("readdir", -int(ENOENT), &rc)

	names, err := t.fs.contentsOfDirectory(path)
	if err != nil {
		return errc(err, -int(ENOENT))
	}
	fill(".", nil, 0)
	fill("..", nil, 0)
	for _, name := range names {
		if !fill(name, nil, 0) {
			break
		}
	}
	return 0
}

func (t *translator) Open(path string, flags int) (rc int, fh uint64) {
	defer func() {
		if r := recover(); r != nil {
			t.fs.logger.Errorf("open: delegate panic: %v", r)
			rc, fh = -int(ENOENT), noHandle
		}
	}()

	e := vpath.Resolve(path)
	switch {
	case e.DirectoryIcon && !e.AppleDouble:
		// The icon slot reads as an empty file.
		return 0, t.fs.handles.put(&openFile{path: path, handle: byteHandle(nil), synthetic: true})
	case e.AppleDouble:
		data := t.fs.appleDouble(e)
		if data == nil {
			return -int(ENOENT), noHandle
		}
		return 0, t.fs.handles.put(&openFile{path: path, handle: byteHandle(data), synthetic: true})
	}

	h, err := t.fs.facade.openFile(path, flags)
	if err != nil {
		return errc(err, -int(ENOENT)), noHandle
	}
	return 0, t.fs.handles.put(&openFile{path: path, handle: h})
}

func (t *translator) Create(path string, flags int, mode uint32) (rc int, fh uint64) {
	defer func() {
		if r := recover(); r != nil {
			t.fs.logger.Errorf("create: delegate panic: %v", r)
			rc, fh = -int(EACCES), noHandle
		}
	}()

	h, err := t.fs.facade.createFile(path, Attributes{AttrPermissions: mode & 0777})
	if err != nil {
		return errc(err, -int(EACCES)), noHandle
	}
	return 0, t.fs.handles.put(&openFile{path: path, handle: h})
}

func (t *translator) Read(path string, buff []byte, ofst int64, fh uint64) (rc int) {
	defer t.protect("read", -int(EIO), &rc)

	of, ok := t.fs.handles.get(fh)
	if !ok {
		return -int(EIO)
	}
	n, err := t.fs.facade.readFile(of.path, of.handle, buff, ofst)
	if err != nil {
		return errc(err, -int(EIO))
	}
	return n
}

func (t *translator) Write(path string, buff []byte, ofst int64, fh uint64) (rc int) {
	defer t.protect("write", -int(EIO), &rc)

	of, ok := t.fs.handles.get(fh)
	if !ok {
		return -int(EIO)
	}
	n, err := t.fs.facade.writeFile(of.path, of.handle, buff, ofst)
	if err != nil {
		return errc(err, -int(EIO))
	}
	return n
}

func (t *translator) Truncate(path string, size int64, fh uint64) (rc int) {
	defer t.protect("truncate", -int(ENOTSUP), &rc)

	var handle interface{}
	if of, ok := t.fs.handles.get(fh); ok {
		path, handle = of.path, of.handle
	}
	if err := t.fs.facade.truncateFile(path, handle, size); err != nil {
		return errc(err, -int(ENOTSUP))
	}
	return 0
}

func (t *translator) Release(path string, fh uint64) (rc int) {
	defer t.protect("release", 0, &rc)

	if of, ok := t.fs.handles.drop(fh); ok && !of.synthetic {
		t.fs.facade.releaseFile(of.path, of.handle)
	}
	return 0
}

func (t *translator) Mkdir(path string, mode uint32) (rc int) {
	defer t.protect("mkdir", -int(EACCES), &rc)

	if err := t.fs.facade.createDirectory(path, Attributes{AttrPermissions: mode & 0777}); err != nil {
		return errc(err, -int(EACCES))
	}
	return 0
}

func (t *translator) Unlink(path string) (rc int) {
	defer t.protect("unlink", -int(EACCES), &rc)

	if err := t.fs.facade.removeItem(path); err != nil {
		return errc(err, -int(EACCES))
	}
	return 0
}

func (t *translator) Rmdir(path string) (rc int) {
	defer t.protect("rmdir", -int(EACCES), &rc)

	if err := t.fs.facade.removeItem(path); err != nil {
		return errc(err, -int(EACCES))
	}
	return 0
}

func (t *translator) Rename(oldpath string, newpath string) (rc int) {
	defer t.protect("rename", -int(EACCES), &rc)

	if err := t.fs.facade.moveItem(oldpath, newpath); err != nil {
		return errc(err, -int(EACCES))
	}
	return 0
}

func (t *translator) Link(oldpath string, newpath string) (rc int) {
	defer t.protect("link", -int(ENOTSUP), &rc)

	if err := t.fs.facade.linkItem(newpath, oldpath); err != nil {
		return errc(err, -int(ENOTSUP))
	}
	return 0
}

func (t *translator) Symlink(target string, newpath string) (rc int) {
	defer t.protect("symlink", -int(ENOTSUP), &rc)

	if err := t.fs.facade.createSymbolicLink(newpath, target); err != nil {
		return errc(err, -int(ENOTSUP))
	}
	return 0
}

func (t *translator) Readlink(path string) (rc int, target string) {
	defer func() {
		if r := recover(); r != nil {
			t.fs.logger.Errorf("readlink: delegate panic: %v", r)
			rc, target = -int(ENOENT), ""
		}
	}()

	target, err := t.fs.facade.destinationOfSymbolicLink(path)
	if err != nil {
		return errc(err, -int(ENOENT)), ""
	}
	return 0, target
}

// Chmod, Chown and Utimens deliberately report success for delegates
// without an attribute setter: POSIX tools like cp -p insist on these
// succeeding even on filesystems that do not track the attributes.
func (t *translator) Chmod(path string, mode uint32) (rc int) {
	defer t.protect("chmod", 0, &rc)
	return t.setAttributes(path, Attributes{AttrPermissions: mode & 0777})
}

func (t *translator) Chown(path string, uid uint32, gid uint32) (rc int) {
	defer t.protect("chown", 0, &rc)
	return t.setAttributes(path, Attributes{AttrOwnerID: uid, AttrGroupID: gid})
}

func (t *translator) Utimens(path string, tmsp []fuse.Timespec) (rc int) {
	defer t.protect("utimens", 0, &rc)

	attrs := Attributes{}
	if len(tmsp) > 1 {
		attrs[AttrModificationDate] = tmsp[1].Time()
	}
	return t.setAttributes(path, attrs)
}

func (t *translator) setAttributes(path string, attrs Attributes) int {
	err := t.fs.facade.setAttributes(path, attrs)
	if err == nil || err == ENODEV {
		return 0
	}
	return errc(err, 0)
}

func (t *translator) Fsync(path string, datasync bool, fh uint64) int {
	return 0
}

func (t *translator) Getxattr(path string, name string) (rc int, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			t.fs.logger.Errorf("getxattr: delegate panic: %v", r)
			rc, data = -int(ENOATTR), nil
		}
	}()

	value, implemented, err := t.fs.facade.valueOfExtendedAttribute(path, name)
	if len(value) > 0 {
		return 0, value
	}

	e := vpath.Resolve(path)
	switch name {
	case "com.apple.FinderInfo":
		return 0, appledouble.FinderInfo(t.fs.finderFlags(e.Real, e.DirectoryIcon))
	case "com.apple.ResourceFork":
		fork := t.fs.resourceFork(e.Real)
		if fork == nil {
			return -int(ENOATTR), nil
		}
		return 0, fork
	}

	if implemented {
		if err != nil {
			return errc(err, -int(ENOATTR)), nil
		}
		return -int(ENOATTR), nil
	}
	return -int(ENOTSUP), nil
}

func (t *translator) Setxattr(path string, name string, value []byte, flags int) (rc int) {
	defer t.protect("setxattr", -int(EPERM), &rc)

	if err := t.fs.facade.setExtendedAttribute(path, name, value); err != nil {
		return errc(err, -int(EPERM))
	}
	return 0
}

func (t *translator) Listxattr(path string, fill func(name string) bool) (rc int) {
	defer t.protect("listxattr", -int(ENOTSUP), &rc)

	names, err := t.fs.facade.extendedAttributesOfItem(path)
	if err != nil {
		return errc(err, -int(ENOTSUP))
	}
	for _, name := range names {
		if !fill(name) {
			return -int(syscall.ERANGE)
		}
	}
	return 0
}

// fillStat encodes an assembled attribute map into the kernel stat buffer.
func fillStat(stat *fuse.Stat_t, attrs Attributes) int {
	*stat = fuse.Stat_t{}

	var typeBits uint32
	switch attrs.EntryType() {
	case TypeDirectory:
		typeBits = syscall.S_IFDIR
	case TypeRegular:
		typeBits = syscall.S_IFREG
	case TypeSymlink:
		typeBits = syscall.S_IFLNK
	default:
		return -int(EFTYPE)
	}
	perm, _ := attrs.Uint32(AttrPermissions)
	stat.Mode = perm | typeBits

	if uid, ok := attrs.Uint32(AttrOwnerID); ok {
		stat.Uid = uid
	} else {
		stat.Uid = uint32(os.Geteuid())
	}
	if gid, ok := attrs.Uint32(AttrGroupID); ok {
		stat.Gid = gid
	} else {
		stat.Gid = uint32(os.Getegid())
	}

	stat.Nlink = 1
	if nlink, ok := attrs.Uint32(AttrReferenceCount); ok {
		stat.Nlink = nlink
	}

	if mtime, ok := attrs.Time(AttrModificationDate); ok {
		stat.Mtim = fuse.NewTimespec(mtime)
		stat.Atim = stat.Mtim
	}
	// The creation date intentionally lands in ctime.
	if ctime, ok := attrs.Time(AttrCreationDate); ok {
		stat.Ctim = fuse.NewTimespec(ctime)
	}

	if attrs.EntryType() != TypeDirectory {
		if size, ok := attrs.Int64(AttrSize); ok {
			stat.Size = size
			if size > 0 {
				stat.Blocks = (size + 511) / 512
			}
		}
	}
	return 0
}
