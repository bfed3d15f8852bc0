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
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"runtime"
	"time"
)

// Flag bits control the log header layout.
type Flag int

const (
	Ldate Flag = 1 << iota // the date in the local time zone: 190102
	Ltime                  // the time in the local time zone: 06:33:04
	Lmicroseconds          // microsecond resolution: 06:33:04.606396
	Llongfile              // full file name and line number
	Lshortfile             // final file name element and line number
	LUTC                   // dates and times in UTC
	Lmode                  // single-letter mode prefix: I, W, E, F, D

	LstdFlags = Lmode | Ldate | Ltime | Lmicroseconds | Lshortfile
)

// Logger writes leveled logs to an io.Writer with a header determined by
// the flag set. Construct one with New; concurrent use is safe when the
// configured writer is (see SynchronizedWriter).
type Logger struct {
	w    io.Writer
	flag Flag
}

type option func(*Logger)

// Writer directs the logger's output to w.
func Writer(w io.Writer) option {
	return func(l *Logger) { l.w = w }
}

// Flags sets the header layout.
func Flags(f Flag) option {
	return func(l *Logger) { l.flag = f }
}

// New returns a Logger configured with the provided options; the default
// writes LstdFlags headers to a synchronized os.Stderr.
func New(options ...option) *Logger {
	l := &Logger{w: DefaultWriter(), flag: LstdFlags}
	for _, option := range options {
		option(l)
	}
	return l
}

// Discarder returns a Logger that drops every write.
func Discarder() *Logger {
	return New(Writer(ioutil.Discard))
}

// Info logs to the INFO log in the manner of fmt.Println.
func (l *Logger) Info(v ...interface{}) {
	l.log(InfoMode, fmt.Sprintln(v...))
}

// Infof logs to the INFO log in the manner of fmt.Printf; a newline is
// appended.
func (l *Logger) Infof(format string, v ...interface{}) {
	l.log(InfoMode, fmt.Sprintf(format+"\n", v...))
}

// Warn logs to the WARN log in the manner of fmt.Println.
func (l *Logger) Warn(v ...interface{}) {
	l.log(WarnMode, fmt.Sprintln(v...))
}

// Warnf logs to the WARN log in the manner of fmt.Printf; a newline is
// appended.
func (l *Logger) Warnf(format string, v ...interface{}) {
	l.log(WarnMode, fmt.Sprintf(format+"\n", v...))
}

// Error logs to the ERROR log in the manner of fmt.Println.
func (l *Logger) Error(v ...interface{}) {
	l.log(ErrorMode, fmt.Sprintln(v...))
}

// Errorf logs to the ERROR log in the manner of fmt.Printf; a newline is
// appended.
func (l *Logger) Errorf(format string, v ...interface{}) {
	l.log(ErrorMode, fmt.Sprintf(format+"\n", v...))
}

// Debug logs to the DEBUG log in the manner of fmt.Println.
func (l *Logger) Debug(v ...interface{}) {
	l.log(DebugMode, fmt.Sprintln(v...))
}

// Debugf logs to the DEBUG log in the manner of fmt.Printf; a newline is
// appended.
func (l *Logger) Debugf(format string, v ...interface{}) {
	l.log(DebugMode, fmt.Sprintf(format+"\n", v...))
}

// Fatal logs to the FATAL log in the manner of fmt.Println, then calls
// os.Exit(255). Fatal statements bypass mode filtering.
func (l *Logger) Fatal(v ...interface{}) {
	l.log(FatalMode, fmt.Sprintln(v...))
	os.Exit(255)
}

// Fatalf logs to the FATAL log in the manner of fmt.Printf, then calls
// os.Exit(255). Fatal statements bypass mode filtering.
func (l *Logger) Fatalf(format string, v ...interface{}) {
	l.log(FatalMode, fmt.Sprintf(format+"\n", v...))
	os.Exit(255)
}

// log is only called from the public wrappers above; caller depth counts
// on that.
func (l *Logger) log(m Mode, data string) {
	if (GetGlobalLogMode()&m) == DisabledMode && (m&FatalMode) == DisabledMode {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if !ok {
		file, line = "[???]", -1
	}

	var buf bytes.Buffer
	l.header(&buf, m, time.Now(), file, line)
	buf.WriteString(data)
	l.w.Write(buf.Bytes())
}

// header renders "Myymmdd hh:mm:ss.micros file.go:42] " per the flag set.
func (l *Logger) header(buf *bytes.Buffer, m Mode, t time.Time, file string, line int) {
	if l.flag&Lmode != 0 {
		buf.WriteByte(m.byte())
	}
	if l.flag&LUTC != 0 {
		t = t.UTC()
	}
	if l.flag&Ldate != 0 {
		year, month, day := t.Date()
		fmt.Fprintf(buf, "%02d%02d%02d", year%100, int(month), day)
	}
	if l.flag&(Ltime|Lmicroseconds) != 0 {
		if l.flag&Ldate != 0 {
			buf.WriteByte(' ')
		}
		hour, min, sec := t.Clock()
		fmt.Fprintf(buf, "%02d:%02d:%02d", hour, min, sec)
		if l.flag&Lmicroseconds != 0 {
			fmt.Fprintf(buf, ".%06d", t.Nanosecond()/1e3)
		}
	}
	buf.WriteByte(' ')
	if l.flag&(Lshortfile|Llongfile) != 0 {
		if l.flag&Lshortfile != 0 {
			for i := len(file) - 1; i > 0; i-- {
				if file[i] == '/' {
					file = file[i+1:]
					break
				}
			}
		}
		fmt.Fprintf(buf, "%s:%d] ", file, line)
	}
}
