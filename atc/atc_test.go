// atc/atc_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package atc

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseCategoryDirection(t *testing.T) {
	for s, want := range map[string]Category{"commercial": Commercial, "CARGO": Cargo, "Military": Military, "medical": Medical} {
		if c, err := ParseCategory(s); err != nil || c != want {
			t.Errorf("ParseCategory(%q) = %v, %v", s, c, err)
		}
	}
	if _, err := ParseCategory("glider"); !errors.Is(err, ErrUnknownCategory) {
		t.Errorf("expected ErrUnknownCategory, got %v", err)
	}

	for s, want := range map[string]Direction{"north": North, "South": South, "EAST": East, "west": West} {
		if d, err := ParseDirection(s); err != nil || d != want {
			t.Errorf("ParseDirection(%q) = %v, %v", s, d, err)
		}
	}
	if _, err := ParseDirection("up"); !errors.Is(err, ErrUnknownDirection) {
		t.Errorf("expected ErrUnknownDirection, got %v", err)
	}
}

func TestCategoryJSON(t *testing.T) {
	var v struct {
		Category  Category
		Direction Direction
	}
	if err := json.Unmarshal([]byte(`{"Category": "cargo", "Direction": "west"}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.Category != Cargo || v.Direction != West {
		t.Errorf("got %v %v", v.Category, v.Direction)
	}
	b, _ := json.Marshal(v)
	if string(b) != `{"Category":"cargo","Direction":"west"}` {
		t.Errorf("marshaled %s", b)
	}
}

func TestArrivalDeparture(t *testing.T) {
	for d, arr := range map[Direction]bool{North: true, South: true, East: false, West: false} {
		if d.IsArrival() != arr {
			t.Errorf("%s: IsArrival %v", d, d.IsArrival())
		}
		p, speed := InitialPhase(d)
		if arr && (p != Holding || speed != 600) {
			t.Errorf("%s: initial %s at %d", d, p, speed)
		} else if !arr && (p != AtGate || speed != 0) {
			t.Errorf("%s: initial %s at %d", d, p, speed)
		}
	}
}

func TestExemption(t *testing.T) {
	for c, exempt := range map[Category]bool{Commercial: false, Cargo: false, Military: true, Medical: true} {
		if c.Exempt() != exempt {
			t.Errorf("%s: Exempt %v", c, c.Exempt())
		}
	}
}

func TestEnvelope(t *testing.T) {
	env, ok := SpeedEnvelope(Holding)
	if !ok || env != (Envelope{400, 600}) {
		t.Fatalf("Holding envelope %v", env)
	}
	if !env.Contains(400) || !env.Contains(600) || env.Contains(399) || env.Contains(601) {
		t.Errorf("Contains is not inclusive")
	}
	if env.Nearest(650) != 600 || env.Nearest(350) != 400 || env.Nearest(500) != 500 {
		t.Errorf("Nearest bound wrong")
	}

	for _, p := range []Phase{Arrived, Departed, Phase(-1), Phase(42)} {
		if _, ok := SpeedEnvelope(p); ok {
			t.Errorf("%s should have no envelope", p)
		}
	}
}

func TestProfilesFollowChain(t *testing.T) {
	for _, d := range []Direction{North, East} {
		chain := Chain(d)
		if len(chain) != 6 || !chain[5].Terminal() {
			t.Fatalf("%s: unexpected chain %v", d, chain)
		}
		for i, p := range chain[:5] {
			prof, ok := Profile(d, p)
			if !ok {
				t.Fatalf("%s: no profile for %s", d, p)
			}
			if prof.Next != chain[i+1] {
				t.Errorf("%s %s: next %s, expected %s", d, p, prof.Next, chain[i+1])
			}
			// The reset speed always lands inside the next phase's envelope.
			if env, ok := SpeedEnvelope(prof.Next); ok && !env.Contains(prof.ResetSpeed) {
				t.Errorf("%s %s: reset speed %d outside %s envelope %s", d, p, prof.ResetSpeed, prof.Next, env)
			}
			if env, _ := SpeedEnvelope(p); !env.Contains(prof.Sustained) {
				t.Errorf("%s %s: sustained speed %d outside envelope %s", d, p, prof.Sustained, env)
			}
		}
	}
}

func TestFine(t *testing.T) {
	for c, want := range map[Category]float64{Commercial: 575000, Cargo: 805000, Military: 0, Medical: 0} {
		if got := Fine(c); got != want {
			t.Errorf("%s: fine %.2f, expected %.2f", c, got, want)
		}
	}
}

func TestNewViolation(t *testing.T) {
	issued := time.Date(2025, 3, 14, 10, 30, 15, 987654321, time.UTC)
	v := NewViolation(ViolationID(1), "PK301", "PIA", Commercial, 650, 600, issued)

	if v.ID != "AVN-1" {
		t.Errorf("ID %q", v.ID)
	}
	if v.IssueTime.Nanosecond() != 0 {
		t.Errorf("issue time not truncated: %v", v.IssueTime)
	}
	if d := v.DueDate.Unix() - v.IssueTime.Unix(); d != 259200 {
		t.Errorf("due date is %d seconds after issue", d)
	}
	if v.FineAmount != 575000 || v.Paid {
		t.Errorf("fine %.2f paid %v", v.FineAmount, v.Paid)
	}
	if !v.Overdue(issued.Add(73*time.Hour)) || v.Overdue(issued.Add(time.Hour)) {
		t.Errorf("Overdue wrong")
	}
}
