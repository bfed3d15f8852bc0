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

package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var program = "?"

func init() {
	program = filepath.Base(os.Args[0])
}

// DefaultWriter returns an os.Stderr writer that is safe for concurrent
// use.
func DefaultWriter() io.Writer {
	return SynchronizedWriter(os.Stderr)
}

// SynchronizedWriter wraps w with a mutex for concurrent access.
func SynchronizedWriter(w io.Writer) io.Writer {
	return &synchronizedWriter{w: w}
}

type synchronizedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *synchronizedWriter) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(b)
}

// MultiWriter multiplexes writes to multiple writers. Writes are best
// effort on each; the smallest byte count and the last error win.
func MultiWriter(w io.Writer, ws ...io.Writer) io.Writer {
	mw := &multiWriter{ws: append([]io.Writer{w}, ws...)}
	return mw
}

type multiWriter struct {
	ws []io.Writer
}

func (m *multiWriter) Write(b []byte) (n int, err error) {
	n = len(b)
	for _, w := range m.ws {
		nw, werr := w.Write(b)
		if nw < n {
			n = nw
		}
		if werr != nil {
			err = werr
		}
	}
	return n, err
}

// LogRotationWriter writes to rotating files under dirname, starting a new
// file once the current one crosses sizeThreshold bytes. A <program>.log
// symlink in the directory tracks the most recent file. A single write
// larger than the threshold still lands in one file.
func LogRotationWriter(dirname string, sizeThreshold int) io.Writer {
	os.MkdirAll(dirname, os.ModePerm)
	return &logRotationWriter{
		dirname:       dirname,
		symlink:       program + ".log",
		sizeThreshold: sizeThreshold,
	}
}

type logRotationWriter struct {
	dirname, symlink    string
	size, sizeThreshold int

	f *os.File
}

func (r *logRotationWriter) Write(b []byte) (int, error) {
	if r.f == nil || r.size+len(b) > r.sizeThreshold {
		name := fmt.Sprintf("%s.%s.log", program, time.Now().Format("2006-01-02.15:04:05.999"))
		f, err := os.Create(filepath.Join(r.dirname, name))
		if err != nil {
			return 0, err
		}
		r.f, r.size = f, 0
		os.Remove(filepath.Join(r.dirname, r.symlink))        // Stale symlink, if any.
		os.Symlink(name, filepath.Join(r.dirname, r.symlink)) // Best effort.
	}

	n, err := r.f.Write(b)
	r.size += n
	return n, err
}
