// sim/runway.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"log/slog"

	"github.com/humaa-taj/aircontrolx/atc"
	"github.com/humaa-taj/aircontrolx/log"
	"github.com/humaa-taj/aircontrolx/util"
)

// Runway is the state of one runway; it is available exactly when
// Occupant is empty.
type Runway struct {
	ID       atc.RunwayID
	Occupant string
}

func (r Runway) Available() bool {
	return r.Occupant == ""
}

func (r Runway) LogValue() slog.Value {
	return slog.GroupValue(slog.String("id", r.ID.String()), slog.String("occupant", r.Occupant))
}

// RunwayPool arbitrates the airport's three runways. A single lock covers
// all of them so that concurrent acquisition attempts are decided one at
// a time.
type RunwayPool struct {
	mu      util.LoggingMutex
	runways [atc.NumRunways]Runway
	// freed is closed and replaced whenever a runway is released, waking
	// everyone waiting for one.
	freed chan struct{}
	lg    *log.Logger
}

func NewRunwayPool(lg *log.Logger) *RunwayPool {
	p := &RunwayPool{
		mu:    util.LoggingMutex{Name: "runways"},
		freed: make(chan struct{}),
		lg:    lg,
	}
	for i := range p.runways {
		p.runways[i].ID = atc.RunwayID(i)
	}
	return p
}

// Eligible returns the runways a flight may use, in the order they
// should be tried.
func Eligible(fp FlightPlan) []atc.RunwayID {
	arrival := fp.Direction.IsArrival()
	switch {
	case fp.Category == atc.Cargo:
		return []atc.RunwayID{atc.RunwayC}
	case fp.IsEmergency() && arrival:
		return []atc.RunwayID{atc.RunwayA, atc.RunwayC, atc.RunwayB}
	case fp.IsEmergency():
		return []atc.RunwayID{atc.RunwayB, atc.RunwayC, atc.RunwayA}
	case arrival:
		return []atc.RunwayID{atc.RunwayA, atc.RunwayC}
	default:
		return []atc.RunwayID{atc.RunwayB, atc.RunwayC}
	}
}

// TryAssign claims the first free eligible runway for the flight. If
// none is free, nothing changes and ok is false.
func (p *RunwayPool) TryAssign(fp FlightPlan) (id atc.RunwayID, ok bool) {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)

	for _, r := range p.runways {
		if r.Occupant == fp.ID {
			p.lg.Warn("flight already holds a runway", slog.String("flight", fp.ID), slog.Any("runway", r))
			return r.ID, true
		}
	}

	for _, id := range Eligible(fp) {
		if rwy := &p.runways[id]; rwy.Available() {
			rwy.Occupant = fp.ID
			return id, true
		}
	}
	return atc.NoRunway, false
}

// Free releases whichever runway the flight holds, if any, and wakes any
// flights waiting for a runway.
func (p *RunwayPool) Free(flightID string) (atc.RunwayID, bool) {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)

	for i := range p.runways {
		if rwy := &p.runways[i]; rwy.Occupant == flightID && flightID != "" {
			rwy.Occupant = ""
			close(p.freed)
			p.freed = make(chan struct{})
			return rwy.ID, true
		}
	}
	return atc.NoRunway, false
}

// Freed returns a channel that is closed the next time a runway is
// released. Callers should fetch it before calling TryAssign so that a
// release between the two isn't missed.
func (p *RunwayPool) Freed() <-chan struct{} {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)
	return p.freed
}

// Runways returns a copy of the current runway state.
func (p *RunwayPool) Runways() [atc.NumRunways]Runway {
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)
	return p.runways
}

// Occupant returns the flight holding the given runway, if any.
func (p *RunwayPool) Occupant(id atc.RunwayID) string {
	if !id.Valid() {
		return ""
	}
	p.mu.Lock(p.lg)
	defer p.mu.Unlock(p.lg)
	return p.runways[id].Occupant
}
