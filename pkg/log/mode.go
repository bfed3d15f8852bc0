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

import "sync/atomic"

// Mode is a bitfield of log levels. A statement is emitted when its level
// intersects the global mode.
type Mode int32

const (
	InfoMode Mode = 1 << iota
	WarnMode
	ErrorMode
	FatalMode
	DebugMode

	// The zero value doubles as the intersection check:
	// (m & gmode) != DisabledMode.
	DisabledMode Mode = 0
	DefaultMode       = InfoMode | WarnMode | ErrorMode
)

func (m Mode) byte() byte {
	switch m {
	case InfoMode:
		return 'I'
	case WarnMode:
		return 'W'
	case ErrorMode:
		return 'E'
	case FatalMode:
		return 'F'
	case DebugMode:
		return 'D'
	default:
		return '?'
	}
}

var gmode = int32(DefaultMode)

// SetGlobalLogMode sets the global log mode; logging outside the mode is
// suppressed.
func SetGlobalLogMode(m Mode) {
	atomic.StoreInt32(&gmode, int32(m))
}

// GetGlobalLogMode returns the currently set global log mode.
func GetGlobalLogMode() Mode {
	return Mode(atomic.LoadInt32(&gmode))
}
