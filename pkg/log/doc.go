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

// Package log implements leveled execution logs with glog-style headers.
//
// Basic example:
//
//      logger := log.New()
//      logger.Info("hello, world")
//
// The logger is configured through variadic options at construction; the
// writer chain composes synchronization, multiplexing and rotation:
//
//      writer := ioutil.Discard
//      if dir != "" {
//              writer = log.LogRotationWriter(dir, 50<<20 /* 50 MiB */)
//      }
//      writer = log.MultiWriter(writer, os.Stderr)
//      writer = log.SynchronizedWriter(writer)
//
//      logf := log.Lmode | log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile
//      logger := log.New(log.Writer(writer), log.Flags(logf))
//
// Log modes gate emission globally: SetGlobalLogMode(log.DebugMode |
// log.DefaultMode) turns debug logging on for the whole process. Fatal
// statements are never filtered.
package log
