// sim/violation_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"sync"
	"testing"
	"time"

	"github.com/humaa-taj/aircontrolx/atc"
)

// testSink collects offered violations; once full it rejects further
// ones without blocking.
type testSink struct {
	mu         sync.Mutex
	violations []atc.Violation
	capacity   int
}

func (s *testSink) Offer(v atc.Violation) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.capacity > 0 && len(s.violations) >= s.capacity {
		return false
	}
	s.violations = append(s.violations, v)
	return true
}

func (s *testSink) Violations() []atc.Violation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]atc.Violation(nil), s.violations...)
}

func makeTestEmitter(policy ViolationPolicy, sink Sink) *Emitter {
	e := NewEmitter(NewViolationLog(), sink, policy, nil, nil)
	issued := time.Unix(1700000000, 0)
	e.Now = func() time.Time { return issued }
	return e
}

func TestHoldingOverspeed(t *testing.T) {
	sink := &testSink{}
	e := makeTestEmitter(PerCheck, sink)

	f := makeTestFlight("PK301", atc.Commercial, atc.North, 1)
	f.Priority = 0
	f.Speed = 650

	v, ok := e.Check(f)
	if !ok {
		t.Fatalf("no violation issued for 650 in Holding")
	}
	if v.RecordedSpeed != 650 || v.PermissibleSpeed != 600 || v.FineAmount != 575000 {
		t.Errorf("unexpected violation %s", v)
	}
	if v.ID != "AVN-1" || v.FlightID != "PK301" || v.Airline != "PIA" || v.Paid {
		t.Errorf("unexpected violation %s", v)
	}
	if d := v.DueDate.Sub(v.IssueTime); d != 259200*time.Second {
		t.Errorf("due date %s after issue", d)
	}

	if got := sink.Violations(); len(got) != 1 || got[0] != v {
		t.Errorf("sink got %v", got)
	}
	if recs := e.Log.Records(); len(recs) != 1 || recs[0] != v {
		t.Errorf("log has %v", recs)
	}
}

func TestUnderspeedUsesMinimum(t *testing.T) {
	e := makeTestEmitter(PerCheck, nil)
	f := makeTestFlight("FX100", atc.Cargo, atc.East, 1)
	f.Phase = atc.Climb
	f.Speed = 250

	v, ok := e.Check(f)
	if !ok {
		t.Fatalf("no violation for 250 in Climb")
	}
	if v.PermissibleSpeed != 300 || v.FineAmount != 805000 || v.Category != atc.Cargo {
		t.Errorf("unexpected violation %s", v)
	}
}

func TestInsideEnvelope(t *testing.T) {
	e := makeTestEmitter(PerCheck, nil)
	for _, dir := range []atc.Direction{atc.North, atc.East} {
		for _, p := range atc.Chain(dir) {
			env, ok := atc.SpeedEnvelope(p)
			f := makeTestFlight("PK1", atc.Commercial, dir, 1)
			f.Phase = p
			f.Speed = env.Max
			if _, issued := e.Check(f); issued {
				t.Errorf("%s at %d (envelope %s, ok %v) issued a violation", p, f.Speed, env, ok)
			}
		}
	}
}

func TestExemptCategories(t *testing.T) {
	sink := &testSink{}
	e := makeTestEmitter(PerCheck, sink)
	for _, cat := range []atc.Category{atc.Military, atc.Medical} {
		for _, dir := range []atc.Direction{atc.North, atc.West} {
			for _, p := range atc.Chain(dir) {
				for _, speed := range []int{0, 1000, 100000} {
					f := makeTestFlight("X", cat, dir, 1)
					f.Phase, f.Speed = p, speed
					if _, ok := e.Check(f); ok {
						t.Errorf("%s flight issued a violation at %d in %s", cat, speed, p)
					}
				}
			}
		}
	}
	if len(sink.Violations()) != 0 || len(e.Log.Records()) != 0 {
		t.Errorf("exempt flights produced violations")
	}
}

func TestViolationPolicy(t *testing.T) {
	for _, tc := range []struct {
		policy ViolationPolicy
		want   int
	}{
		{PerCheck, 5},
		{PerExcursion, 2},
	} {
		e := makeTestEmitter(tc.policy, nil)
		f := makeTestFlight("PK301", atc.Commercial, atc.North, 1)

		// Two separate excursions: three checks over, one back inside,
		// two checks under.
		for _, speed := range []int{650, 660, 640, 500, 350, 320} {
			f.Speed = speed
			e.Check(f)
		}
		if n := len(e.Log.Records()); n != tc.want {
			t.Errorf("%s: %d violations, expected %d", tc.policy, n, tc.want)
		}
	}

	// A phase change ends an excursion.
	e := makeTestEmitter(PerExcursion, nil)
	f := makeTestFlight("PK301", atc.Commercial, atc.North, 1)
	f.Speed = 700
	e.Check(f)
	f.PhaseData.Ticks = 9
	f.PhaseData.ThresholdCrossed, f.PhaseData.SustainedSpeed = true, 700
	if change, _ := f.Tick(); change == nil {
		t.Fatalf("expected phase change")
	}
	f.Speed = 400 // over the Approach maximum
	e.Check(f)
	if n := len(e.Log.Records()); n != 2 {
		t.Errorf("%d violations across a phase change, expected 2", n)
	}
}

func TestParseViolationPolicy(t *testing.T) {
	for s, want := range map[string]ViolationPolicy{"": PerCheck, "per-check": PerCheck, "Per-Excursion": PerExcursion} {
		if p, err := ParseViolationPolicy(s); err != nil || p != want {
			t.Errorf("%q: got %s, %v", s, p, err)
		}
	}
	if _, err := ParseViolationPolicy("never"); err == nil {
		t.Errorf("expected error")
	}
}

func TestEmitterDoesNotBlock(t *testing.T) {
	sink := &testSink{capacity: 1}
	e := makeTestEmitter(PerCheck, sink)
	f := makeTestFlight("PK301", atc.Commercial, atc.North, 1)
	f.Speed = 900

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			e.Check(f)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Check blocked with a full sink")
	}

	// Everything is still in the log even though only one was delivered.
	if n := len(e.Log.Records()); n != 10 {
		t.Errorf("%d violations logged, expected 10", n)
	}
	if n := len(sink.Violations()); n != 1 {
		t.Errorf("%d violations delivered, expected 1", n)
	}
}

func TestViolationLogMarkPaid(t *testing.T) {
	vl := NewViolationLog()
	fp := FlightPlan{ID: "PK301", Airline: "PIA", Category: atc.Commercial}
	now := time.Now()
	a := vl.Issue(fp, 650, 600, now)
	b := vl.Issue(fp, 660, 600, now)
	if a.ID != "AVN-1" || b.ID != "AVN-2" {
		t.Fatalf("IDs %s %s", a.ID, b.ID)
	}

	v, ok := vl.MarkPaid("AVN-2", true)
	if !ok || !v.Paid {
		t.Fatalf("MarkPaid returned %v, %v", v, ok)
	}
	if _, ok := vl.MarkPaid("AVN-9", true); ok {
		t.Errorf("MarkPaid succeeded for unknown ID")
	}

	recs := vl.Records()
	if len(recs) != 2 || recs[0].Paid || !recs[1].Paid {
		t.Errorf("unexpected records %v", recs)
	}
	// Apart from the paid flag, the record is unchanged.
	recs[1].Paid = false
	if recs[1] != b {
		t.Errorf("MarkPaid changed more than the paid flag")
	}
	if issued, paid := vl.Counts(); issued != 2 || paid != 1 {
		t.Errorf("Counts = %d, %d", issued, paid)
	}
}
