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

import "github.com/veilfs/veil/pkg/log"

// An EventSink observes mount lifecycle events. Sinks are configured at
// construction; the adapter never posts to process-global state.
type EventSink interface {
	// MountFailed fires when the event loop returns while the mount is
	// still in the mounting state, before the init callback arrived.
	MountFailed(mountPath string, err error)
	// DidMount fires once the kernel handshake completes and the volume is
	// usable.
	DidMount(mountPath string)
	// DidUnmount fires when the kernel tears the mount down.
	DidUnmount(mountPath string)
}

type nopSink struct{}

func (nopSink) MountFailed(string, error) {}
func (nopSink) DidMount(string)           {}
func (nopSink) DidUnmount(string)         {}

// LogSink returns an EventSink that records lifecycle events on logger.
func LogSink(logger *log.Logger) EventSink {
	return logSink{logger}
}

type logSink struct {
	logger *log.Logger
}

func (s logSink) MountFailed(mountPath string, err error) {
	s.logger.Errorf("mount failed at %s: %v", mountPath, err)
}

func (s logSink) DidMount(mountPath string) {
	s.logger.Infof("mounted at %s", mountPath)
}

func (s logSink) DidUnmount(mountPath string) {
	s.logger.Infof("unmounted from %s", mountPath)
}
