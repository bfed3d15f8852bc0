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
	"sync"
	"testing"
	"time"
)

type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (s *recordingSink) record(e string) {
	s.mu.Lock()
	s.events = append(s.events, e)
	s.mu.Unlock()
}

func (s *recordingSink) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

func (s *recordingSink) MountFailed(mountPath string, err error) { s.record("mount-failed") }
func (s *recordingSink) DidMount(mountPath string)               { s.record("did-mount") }
func (s *recordingSink) DidUnmount(mountPath string)             { s.record("did-unmount") }

type hookFS struct {
	mu        sync.Mutex
	calls     []string
	statusNow func() Status
}

func (h *hookFS) WillMount() {
	h.mu.Lock()
	h.calls = append(h.calls, "will-mount")
	h.mu.Unlock()
}

func (h *hookFS) WillUnmount() {
	h.mu.Lock()
	h.calls = append(h.calls, "will-unmount:"+h.statusNow().String())
	h.mu.Unlock()
}

func waitForStatus(t *testing.T, f *FileSystem, want Status) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f.Status() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("Expected status %v, stuck at %v", want, f.Status())
}

func TestHandshakeDrivesMounted(t *testing.T) {
	sink := &recordingSink{}
	f := New(struct{}{}, WithEventSink(sink))

	// Probe succeeds on the third poll.
	polls := 0
	var mu sync.Mutex
	f.probe = func(string) bool {
		mu.Lock()
		defer mu.Unlock()
		polls++
		return polls >= 3
	}

	f.mu.Lock()
	f.status = StatusMounting
	f.mountPath = "/mnt/test"
	f.mu.Unlock()

	f.beginInitializing()
	waitForStatus(t, f, StatusMounted)

	events := sink.recorded()
	if len(events) != 1 || events[0] != "did-mount" {
		t.Errorf("Expected [did-mount], got %q", events)
	}
	mu.Lock()
	if polls < 3 {
		t.Errorf("Expected at least 3 polls, got %d", polls)
	}
	mu.Unlock()
}

func TestDestroyDrivesUnmounting(t *testing.T) {
	sink := &recordingSink{}
	d := &hookFS{}
	f := New(d, WithEventSink(sink))
	d.statusNow = f.Status

	f.mu.Lock()
	f.status = StatusMounted
	f.mountPath = "/mnt/test"
	f.mu.Unlock()

	f.beginUnmounting()

	if got := f.Status(); got != StatusUnmounting {
		t.Errorf("Expected unmounting, got %v", got)
	}
	if events := sink.recorded(); len(events) != 1 || events[0] != "did-unmount" {
		t.Errorf("Expected [did-unmount], got %q", events)
	}
	// The delegate hook runs before the status flips.
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.calls) != 1 || d.calls[0] != "will-unmount:mounted" {
		t.Errorf("Expected the hook before the transition, got %q", d.calls)
	}
}

func TestHandshakeAbandonedWhenStatusMoves(t *testing.T) {
	sink := &recordingSink{}
	f := New(struct{}{}, WithEventSink(sink))
	f.probe = func(string) bool { return true }

	f.mu.Lock()
	f.status = StatusUnmounting // teardown raced ahead of the poller
	f.mountPath = "/mnt/test"
	f.mu.Unlock()

	f.awaitHandshake()
	if events := sink.recorded(); len(events) != 0 {
		t.Errorf("Expected no events, got %q", events)
	}
	if got := f.Status(); got != StatusUnmounting {
		t.Errorf("Expected status to stay unmounting, got %v", got)
	}
}

func TestMountArgs(t *testing.T) {
	{
		f := New(struct{}{}, WithForeground(), WithMountOptions("volname=Test", "", "allow_other"))
		expected := []string{"-s", "-f", "-ovolname=Test", "-oallow_other"}
		if got := f.mountArgs(); !equalStrings(got, expected) {
			t.Errorf("Expected %q, got %q", expected, got)
		}
	}
	{
		f := New(struct{}{}, WithThreadSafe())
		if got := f.mountArgs(); len(got) != 0 {
			t.Errorf("Expected no args, got %q", got)
		}
	}
}

func TestMountStatusGuards(t *testing.T) {
	f := New(struct{}{})
	f.mu.Lock()
	f.status = StatusMounted
	f.mu.Unlock()

	if err := f.Mount("/mnt/test"); err == nil {
		t.Error("Expected mounting a mounted filesystem to fail")
	}
	if err := f.Unmount(); err == nil {
		// No real mount backs this instance; the unmount utility must
		// report failure.
		t.Error("Expected unmount of a fake mount point to fail")
	}
}

func TestStatusString(t *testing.T) {
	cases := map[Status]string{
		StatusNotMounted:   "not-mounted",
		StatusMounting:     "mounting",
		StatusInitializing: "initializing",
		StatusMounted:      "mounted",
		StatusUnmounting:   "unmounting",
		StatusFailure:      "failure",
		Status(42):         "invalid",
	}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Errorf("Expected %q, got %q", want, got)
		}
	}
}
