// sim/schedule.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/humaa-taj/aircontrolx/atc"
	"github.com/humaa-taj/aircontrolx/log"
	"github.com/humaa-taj/aircontrolx/util"
	"github.com/humaa-taj/aircontrolx/wire"
)

// Schedule is the list of flights to simulate, as read from a JSON file:
//
//	{"flights": [{"id": "PK301", "airline": "PIA", "category": "commercial",
//	              "direction": "north", "minute": 0, "priority": 10}]}
type Schedule struct {
	Flights []FlightPlan `json:"flights"`
}

func ReadSchedule(r io.Reader) (*Schedule, error) {
	var sc Schedule
	if err := util.UnmarshalJSON(r, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

// LoadSchedule reads and validates the schedule file at path. Warnings
// are logged; any errors are returned together.
func LoadSchedule(path string, horizon int, lg *log.Logger) (*Schedule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc, err := ReadSchedule(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var e util.ErrorLogger
	e.Push(path)
	sc.Validate(horizon, &e)
	e.Pop()

	for _, w := range e.Warnings() {
		lg.Warn(w)
	}
	if err := e.Err(); err != nil {
		return nil, err
	}
	lg.Infof("%s: loaded %d flights", path, len(sc.Flights))
	return sc, nil
}

// Validate checks the schedule for problems that would keep it from being
// simulated, reporting all of them to e. Flights that would never be
// released before the horizon, and airlines that don't operate at the
// airport, are reported as warnings.
func (sc *Schedule) Validate(horizon int, e *util.ErrorLogger) {
	defer e.CheckDepth(e.CurrentDepth())

	if len(sc.Flights) == 0 {
		e.Error(ErrEmptySchedule)
		return
	}

	seen := make(map[string]bool)
	for i, fp := range sc.Flights {
		e.Push(util.Select(fp.ID != "", fp.ID, fmt.Sprintf("flight #%d", i+1)))

		// Flight IDs and airlines go out in violation records, so they
		// must fit the legacy record format.
		if strings.TrimSpace(fp.ID) == "" || strings.ContainsAny(fp.ID, "|\n") {
			e.Error(ErrInvalidFlightID)
		} else if len(fp.ID) > wire.MaxFlightLength {
			e.ErrorString("longer than %d characters: %w", wire.MaxFlightLength, ErrInvalidFlightID)
		} else if seen[fp.ID] {
			e.Error(ErrDuplicateFlight)
		}
		seen[fp.ID] = true

		if fp.Priority < 0 || fp.Priority > 999 {
			e.ErrorString("%d: %w", fp.Priority, ErrInvalidPriority)
		}
		if fp.Minute < 0 {
			e.Error(ErrInvalidMinute)
		} else if fp.Minute > horizon {
			e.Warning("minute %d is past the %d minute horizon; flight will never be released", fp.Minute, horizon)
		}
		if fp.Category < 0 || fp.Category >= atc.NumCategories {
			e.Error(atc.ErrUnknownCategory)
		}
		if fp.Direction < 0 || fp.Direction >= atc.NumDirections {
			e.Error(atc.ErrUnknownDirection)
		}
		if strings.ContainsAny(fp.Airline, "|\n") {
			e.ErrorString("%q: %w", fp.Airline, ErrInvalidAirline)
		} else if len(fp.Airline) > wire.MaxAirlineLength {
			e.ErrorString("%q longer than %d characters: %w", fp.Airline, wire.MaxAirlineLength, ErrInvalidAirline)
		}
		if !atc.IsKnownAirline(fp.Airline) {
			e.Warning("airline %q does not operate at this airport", fp.Airline)
		}

		e.Pop()
	}
}
