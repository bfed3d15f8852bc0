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

import "github.com/veilfs/veil/pkg/vpath"

// attributesOfItem assembles the attribute map for path: seeded defaults,
// delegate overrides for the underlying real path, then the synthetic
// overrides for icon slots and AppleDouble sidecars. Sizes missing after
// all of that are backfilled from one-shot contents.
func (f *FileSystem) attributesOfItem(path string) (Attributes, error) {
	e := vpath.Resolve(path)

	attrs := Attributes{
		AttrPermissions:    uint32(0555),
		AttrReferenceCount: uint32(1),
	}
	if path == "/" {
		attrs[AttrType] = TypeDirectory
	} else {
		attrs[AttrType] = TypeRegular
	}

	over, implemented, err := f.facade.attributesOfItem(e.Real)
	if err != nil {
		return nil, err
	}
	if implemented {
		attrs.Merge(over)
	}

	switch {
	case e.DirectoryIcon && !e.AppleDouble:
		// The icon slot itself is an empty regular file, present only when
		// the directory actually has a custom icon.
		if !f.hasCustomIcon(e.Real) {
			return nil, ENOENT
		}
		attrs[AttrType] = TypeRegular
		attrs[AttrSize] = int64(0)
		return attrs, nil

	case e.AppleDouble:
		data := f.appleDouble(e)
		if data == nil {
			return nil, ENOENT
		}
		attrs[AttrType] = TypeRegular
		attrs[AttrSize] = int64(len(data))
		return attrs, nil
	}

	if _, ok := attrs.Int64(AttrSize); !ok && attrs.EntryType() != TypeDirectory {
		if data, ok, err := f.facade.contents(e.Real); ok {
			if err != nil {
				return nil, err
			}
			if data == nil {
				return nil, ENOENT
			}
			attrs[AttrSize] = int64(len(data))
		}
	}
	return attrs, nil
}
