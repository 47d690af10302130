// sim/schedule_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/humaa-taj/aircontrolx/atc"
	"github.com/humaa-taj/aircontrolx/util"
	"github.com/humaa-taj/aircontrolx/wire"
)

const testScheduleJSON = `{
  "flights": [
    {"id": "PK301", "airline": "PIA", "category": "commercial", "direction": "north", "minute": 0, "priority": 10},
    {"id": "FX100", "airline": "FedEx", "category": "cargo", "direction": "south", "minute": 1, "priority": 3},
    {"id": "PAF7", "airline": "Pakistan Airforce", "category": "military", "direction": "west", "minute": 2},
    {"id": "EK601", "airline": "AirBlue", "category": "commercial", "direction": "east", "minute": 2,
     "priority": 1, "emergency": true}
  ]
}`

func TestReadSchedule(t *testing.T) {
	sc, err := ReadSchedule(strings.NewReader(testScheduleJSON))
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.Flights) != 4 {
		t.Fatalf("read %d flights", len(sc.Flights))
	}

	want := FlightPlan{ID: "EK601", Airline: "AirBlue", Category: atc.Commercial, Direction: atc.East,
		Minute: 2, Priority: 1, Emergency: true}
	if sc.Flights[3] != want {
		t.Errorf("got %+v, expected %+v", sc.Flights[3], want)
	}
	if sc.Flights[1].Category != atc.Cargo || sc.Flights[2].Direction != atc.West {
		t.Errorf("unexpected flights %+v", sc.Flights)
	}

	var e util.ErrorLogger
	sc.Validate(300, &e)
	if e.HaveErrors() || len(e.Warnings()) != 0 {
		t.Errorf("unexpected problems: %s", e.String())
	}
}

func TestReadScheduleBadCategory(t *testing.T) {
	_, err := ReadSchedule(strings.NewReader(`{"flights": [{"id": "X1", "category": "glider"}]}`))
	if !errors.Is(err, atc.ErrUnknownCategory) {
		t.Errorf("expected ErrUnknownCategory, got %v", err)
	}

	if _, err := ReadSchedule(strings.NewReader(`{"flights": [`)); err == nil {
		t.Errorf("expected syntax error")
	}
}

func TestValidateSchedule(t *testing.T) {
	sc := &Schedule{Flights: []FlightPlan{
		{ID: "PK301", Airline: "PIA", Minute: 0},
		{ID: "PK301", Airline: "PIA", Minute: 1},
		{ID: "", Airline: "PIA"},
		{ID: "BAD|ID", Airline: "PIA"},
		{ID: "PK302", Airline: "PIA", Priority: -1},
		{ID: "PK303", Airline: "PIA", Minute: -5},
		{ID: "PK304", Airline: "PIA", Minute: 500},
		{ID: "XY1", Airline: "Nowhere Air"},
		{ID: "PK305", Airline: "PIA", Category: atc.NumCategories},
	}}

	var e util.ErrorLogger
	sc.Validate(300, &e)

	err := e.Err()
	for _, target := range []error{ErrDuplicateFlight, ErrInvalidFlightID, ErrInvalidPriority, ErrInvalidMinute,
		atc.ErrUnknownCategory} {
		if !errors.Is(err, target) {
			t.Errorf("expected %v in %v", target, err)
		}
	}
	if w := e.Warnings(); len(w) != 2 {
		t.Errorf("expected 2 warnings, got %v", w)
	}
	if e.CurrentDepth() != 0 {
		t.Errorf("error logger left at depth %d", e.CurrentDepth())
	}
}

func TestValidateRecordLimits(t *testing.T) {
	for _, c := range []struct {
		fp     FlightPlan
		target error
	}{
		{FlightPlan{ID: strings.Repeat("K", wire.MaxFlightLength+1), Airline: "PIA"}, ErrInvalidFlightID},
		{FlightPlan{ID: "PK301", Airline: "Pipe|Air"}, ErrInvalidAirline},
		{FlightPlan{ID: "PK302", Airline: "Air\nLine"}, ErrInvalidAirline},
		{FlightPlan{ID: "PK303", Airline: strings.Repeat("A", wire.MaxAirlineLength+1)}, ErrInvalidAirline},
	} {
		var e util.ErrorLogger
		(&Schedule{Flights: []FlightPlan{c.fp}}).Validate(300, &e)
		if !errors.Is(e.Err(), c.target) {
			t.Errorf("%q/%q: expected %v, got %v", c.fp.ID, c.fp.Airline, c.target, e.Err())
		}
	}

	// Right at the limits is fine.
	var e util.ErrorLogger
	fp := FlightPlan{ID: strings.Repeat("K", wire.MaxFlightLength), Airline: strings.Repeat("A", wire.MaxAirlineLength)}
	(&Schedule{Flights: []FlightPlan{fp}}).Validate(300, &e)
	if err := e.Err(); err != nil {
		t.Errorf("flight at the limits: %v", err)
	}
}

func TestValidateEmptySchedule(t *testing.T) {
	var e util.ErrorLogger
	(&Schedule{}).Validate(300, &e)
	if !errors.Is(e.Err(), ErrEmptySchedule) {
		t.Errorf("expected ErrEmptySchedule, got %v", e.Err())
	}
}

func TestLoadSchedule(t *testing.T) {
	dir := t.TempDir()
	lg := makeTestLogger(t)

	good := filepath.Join(dir, "good.json")
	if err := os.WriteFile(good, []byte(testScheduleJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	sc, err := LoadSchedule(good, 300, lg)
	if err != nil {
		t.Fatal(err)
	}
	if len(sc.Flights) != 4 {
		t.Errorf("loaded %d flights", len(sc.Flights))
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"flights": [{"id": "A"}, {"id": "A"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSchedule(bad, 300, lg); !errors.Is(err, ErrDuplicateFlight) {
		t.Errorf("expected ErrDuplicateFlight, got %v", err)
	}

	if _, err := LoadSchedule(filepath.Join(dir, "missing.json"), 300, lg); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
