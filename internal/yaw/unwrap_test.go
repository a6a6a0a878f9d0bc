// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package yaw

import (
	"math"
	"testing"
)

func TestResetSeedsFromRawReading(t *testing.T) {
	var u Unwrapper
	u.Reset(0.3)
	if u.NumSpins != 0 {
		t.Fatalf("NumSpins after reset = %d, want 0", u.NumSpins)
	}
	if u.LastYaw != -0.3 {
		t.Fatalf("LastYaw after reset = %v, want -0.3", u.LastYaw)
	}
}

func TestUpdateNoCrossing(t *testing.T) {
	var u Unwrapper
	u.Reset(0)
	got := u.Update(0.1)
	want := -0.1
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("Update(0.1) = %v, want %v", got, want)
	}
	if u.NumSpins != 0 {
		t.Fatalf("NumSpins = %d, want 0", u.NumSpins)
	}
}

func TestUpdateCrossingSequenceS3(t *testing.T) {
	var u Unwrapper
	u.Reset(3.10)

	seq := []float64{3.10, 3.14, -3.10, -3.00}
	var prevSpins int
	var prevYaw float64
	crossed := false

	for i, raw := range seq {
		yaw := u.Update(raw)
		if i > 0 {
			dSpins := u.NumSpins - prevSpins
			if dSpins < -1 || dSpins > 1 {
				t.Fatalf("step %d: |delta NumSpins| = %d > 1", i, dSpins)
			}
			if dSpins != 0 {
				crossed = true
			}
			if math.Abs(yaw-prevYaw) > math.Pi+0.2 {
				t.Fatalf("step %d: yaw jumped by %v, exceeds pi+|delta imu_yaw| bound", i, yaw-prevYaw)
			}
		}
		prevSpins = u.NumSpins
		prevYaw = yaw
	}
	if !crossed {
		t.Fatalf("expected a +/-2pi crossing across the sequence")
	}
}

func TestDeltaNumSpinsBoundedPerTick(t *testing.T) {
	var u Unwrapper
	u.Reset(0)
	prev := u.NumSpins
	for _, raw := range []float64{0.1, 3.0, -3.0, 3.1, -3.1, 0.0} {
		u.Update(raw)
		if d := u.NumSpins - prev; d < -1 || d > 1 {
			t.Fatalf("delta NumSpins = %d, want within [-1,1]", d)
		}
		prev = u.NumSpins
	}
}
