// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package armstate

import (
	"testing"

	"github.com/relabs-tech/flightcore/internal/state"
)

type fakeLoop struct{ zeroed int }

func (f *fakeLoop) ZeroOut() { f.zeroed++ }

type fakeLog struct {
	started, stopped int
	published        []state.ArmState
}

func (f *fakeLog) Start() { f.started++ }
func (f *fakeLog) Stop()  { f.stopped++ }
func (f *fakeLog) PublishArmState(s state.ArmState) { f.published = append(f.published, s) }

func TestArmStartsLogAndZeroesCompensators(t *testing.T) {
	loop := &fakeLoop{}
	lg := &fakeLog{}
	m := New(loop, lg, true, nil)

	if err := m.Arm(); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if m.Get() != state.Armed {
		t.Fatalf("state = %v, want Armed", m.Get())
	}
	if loop.zeroed != 1 {
		t.Fatalf("zeroed = %d, want 1", loop.zeroed)
	}
	if lg.started != 1 {
		t.Fatalf("started = %d, want 1", lg.started)
	}
	if len(lg.published) != 1 || lg.published[0] != state.Armed {
		t.Fatalf("published = %v, want [Armed]", lg.published)
	}
}

func TestArmTwiceIsNoopWithWarning(t *testing.T) {
	loop := &fakeLoop{}
	lg := &fakeLog{}
	m := New(loop, lg, true, nil)

	if err := m.Arm(); err != nil {
		t.Fatalf("Arm: %v", err)
	}
	if err := m.Arm(); err == nil {
		t.Fatalf("expected error arming twice")
	}
	if loop.zeroed != 1 {
		t.Fatalf("zeroed = %d, want 1 (second Arm must not reset again)", loop.zeroed)
	}
}

func TestDisarmWhenAlreadyDisarmedIsNoop(t *testing.T) {
	loop := &fakeLoop{}
	lg := &fakeLog{}
	m := New(loop, lg, true, nil)

	m.Disarm()
	if m.Get() != state.Disarmed {
		t.Fatalf("state = %v, want Disarmed", m.Get())
	}
	if lg.stopped != 0 {
		t.Fatalf("stopped = %d, want 0 (never armed)", lg.stopped)
	}
}

func TestArmDisarmArmRestoresCleanState(t *testing.T) {
	loop := &fakeLoop{}
	lg := &fakeLog{}
	m := New(loop, lg, true, nil)

	_ = m.Arm()
	m.Disarm()
	_ = m.Arm()

	if loop.zeroed != 2 {
		t.Fatalf("zeroed = %d, want 2", loop.zeroed)
	}
	if lg.started != 2 || lg.stopped != 1 {
		t.Fatalf("started=%d stopped=%d, want 2,1", lg.started, lg.stopped)
	}
}
