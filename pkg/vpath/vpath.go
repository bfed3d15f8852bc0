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

// Package vpath classifies paths that name the Finder's synthetic on-disk
// entities. Two families exist: directory icon slots, named "Icon\r", and
// AppleDouble sidecars, named "._<base>". Classification is pure string
// manipulation; no filesystem is consulted.
package vpath

import gopath "path"

// IconName is the name the Finder gives a directory's custom icon slot. The
// trailing byte is a literal carriage return.
const IconName = "Icon\r"

// DoublePrefix marks an AppleDouble sidecar file.
const DoublePrefix = "._"

// An Entity is the result of classifying a path. Real is the underlying path
// the synthetic entity derives from; for ordinary paths Real is the path
// itself. An AppleDouble sidecar may shadow a directory icon ("._Icon\r"), in
// which case both flags are set and Real names the enclosing directory.
type Entity struct {
	Path          string
	Real          string
	AppleDouble   bool
	DirectoryIcon bool
}

// Ordinary reports whether the path names no synthetic entity.
func (e Entity) Ordinary() bool {
	return !e.AppleDouble && !e.DirectoryIcon
}

// Resolve classifies path. Classification is applied to the last path
// component only, at most once per layer: the AppleDouble prefix is peeled
// first, then the icon name.
func Resolve(path string) Entity {
	e := Entity{Path: path, Real: path}

	dir, base := gopath.Split(path)
	switch {
	case base == IconName:
		e.DirectoryIcon = true
		e.Real = gopath.Clean(dir)
	case len(base) > len(DoublePrefix) && base[:len(DoublePrefix)] == DoublePrefix:
		e.AppleDouble = true
		inner := base[len(DoublePrefix):]
		if inner == IconName {
			e.DirectoryIcon = true
			e.Real = gopath.Clean(dir)
		} else {
			e.Real = gopath.Join(dir, inner)
		}
	}
	return e
}
