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
	gopath "path"
	"strings"

	"github.com/veilfs/veil/pkg/appledouble"
	"github.com/veilfs/veil/pkg/resfork"
	"github.com/veilfs/veil/pkg/vpath"
)

// The synthetic content provider: Finder flags, resource forks and
// AppleDouble payloads for entries the delegate never sees. Everything here
// is computed on demand so that getattr, open/read, readdir and getxattr
// observe consistent bytes.

// finderFlags computes the Finder flag word for an entity's real path. A
// delegate-provided flag word is authoritative for the custom-icon bit;
// only without one does the icon-data capability set it.
func (f *FileSystem) finderFlags(real string, directoryIcon bool) uint16 {
	var flags uint16
	if directoryIcon {
		flags |= appledouble.FlagIsInvisible
	}
	if v, ok := f.facade.finderFlags(real); ok {
		flags |= v
	} else if len(f.facade.iconData(real)) > 0 {
		flags |= appledouble.FlagHasCustomIcon
	}
	return flags
}

// hasCustomIcon reports whether the entry at path advertises a custom icon.
func (f *FileSystem) hasCustomIcon(path string) bool {
	return f.finderFlags(path, false)&appledouble.FlagHasCustomIcon != 0
}

// resourceFork serializes the resource fork for real, nil when no resource
// applies.
func (f *FileSystem) resourceFork(real string) []byte {
	var fork resfork.Fork
	if strings.HasSuffix(real, ".webloc") {
		if u := f.facade.weblocURL(real); u != "" {
			fork.Add("url ", 256, "", []byte(u))
		}
	}
	if icon := f.facade.iconData(real); len(icon) > 0 {
		fork.Add("icns", -16455, "", icon)
	}
	if fork.Empty() {
		return nil
	}
	return fork.Bytes()
}

// appleDouble serializes the "._" sidecar payload for an entity, nil when
// the sidecar would carry nothing. For "._Icon\r" the payload describes the
// enclosing directory's icon slot, invisible bit included.
func (f *FileSystem) appleDouble(e vpath.Entity) []byte {
	flags := f.finderFlags(e.Real, e.DirectoryIcon)
	fork := f.resourceFork(e.Real)
	if flags == 0 && fork == nil {
		return nil
	}
	return appledouble.Pack(flags, fork)
}

// contentsOfDirectory lists path and, in double-file compatibility mode,
// splices in the synthetic "._" sidecars and icon slots the Finder expects
// to see on hosts whose FUSE layer does not map them onto xattrs.
func (f *FileSystem) contentsOfDirectory(path string) ([]string, error) {
	names, err := f.facade.contentsOfDirectory(path)
	if err != nil {
		return nil, err
	}
	if !f.listDouble {
		return names, nil
	}

	augmented := names
	for _, n := range names {
		if f.hasCustomIcon(gopath.Join(path, n)) {
			augmented = append(augmented, vpath.DoublePrefix+n)
		}
	}
	if f.hasCustomIcon(path) {
		augmented = append(augmented, vpath.IconName, vpath.DoublePrefix+vpath.IconName)
	}
	return augmented, nil
}
