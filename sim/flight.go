// sim/flight.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/humaa-taj/aircontrolx/atc"
	"github.com/humaa-taj/aircontrolx/rand"
)

// FlightPlan is what the schedule says about a flight; it doesn't change
// once the flight has been created.
type FlightPlan struct {
	ID        string        `json:"id"`
	Airline   string        `json:"airline"`
	Category  atc.Category  `json:"category"`
	Direction atc.Direction `json:"direction"`
	Minute    int           `json:"minute"`
	Priority  int           `json:"priority"`
	Emergency bool          `json:"emergency,omitempty"`
}

// IsEmergency reports whether the flight gets emergency handling, either
// because it declared one or because of its category.
func (fp FlightPlan) IsEmergency() bool {
	return fp.Emergency || fp.Category == atc.Military || fp.Category == atc.Medical
}

// PhaseData tracks a flight's progress through its current phase.
type PhaseData struct {
	Ticks            int
	ThresholdCrossed bool
	SustainedSpeed   int
}

// FlightState is the part of a flight that changes as it is simulated.
type FlightState struct {
	Phase     atc.Phase
	Speed     int
	Runway    atc.RunwayID
	Completed bool
	Faulted   bool
	WaitTime  time.Duration
	PhaseData PhaseData

	// InExcursion is set while the speed is outside the phase envelope
	// and a violation has been issued for it.
	InExcursion bool
}

// Flight is a single simulated aircraft. Its FlightState is owned by the
// flight's lifecycle worker; everyone else sees the copies it publishes.
type Flight struct {
	FlightPlan
	FlightState

	// Entry is the flight's position in the order the schedule was taken
	// in, used to break dispatch ties.
	Entry     int
	EntryTime time.Time

	rand *rand.Rand
	view atomic.Pointer[FlightView]
}

// FlightView is a point-in-time copy of a flight, safe to read from any
// goroutine.
type FlightView struct {
	FlightPlan
	FlightState
}

func NewFlight(fp FlightPlan, entry int, r *rand.Rand) *Flight {
	phase, speed := atc.InitialPhase(fp.Direction)
	f := &Flight{
		FlightPlan: fp,
		FlightState: FlightState{
			Phase:  phase,
			Speed:  speed,
			Runway: atc.NoRunway,
		},
		Entry:     entry,
		EntryTime: time.Now(),
		rand:      r,
	}
	f.publish()
	return f
}

// publish makes the current state visible to snapshot readers; the
// worker calls it after every change.
func (f *Flight) publish() {
	f.view.Store(&FlightView{FlightPlan: f.FlightPlan, FlightState: f.FlightState})
}

// View returns the most recently published state of the flight.
func (f *Flight) View() FlightView {
	return *f.view.Load()
}

func (f *Flight) IsArrival() bool {
	return f.Direction.IsArrival()
}

func (fp FlightPlan) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", fp.ID),
		slog.String("airline", fp.Airline),
		slog.String("category", fp.Category.String()),
		slog.String("direction", fp.Direction.String()),
		slog.Int("minute", fp.Minute),
		slog.Int("priority", fp.Priority),
		slog.Bool("emergency", fp.IsEmergency()))
}

func (f *Flight) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", f.ID),
		slog.String("category", f.Category.String()),
		slog.String("phase", f.Phase.String()),
		slog.Int("speed", f.Speed),
		slog.String("runway", f.Runway.String()),
		slog.Int("phase_ticks", f.PhaseData.Ticks),
		slog.Bool("threshold_crossed", f.PhaseData.ThresholdCrossed),
		slog.Duration("wait", f.WaitTime))
}

// dispatchLess orders flights released in the same minute: emergencies
// first, then higher priority, then the order they were scheduled in.
func dispatchLess(a, b *Flight) bool {
	if ae, be := a.IsEmergency(), b.IsEmergency(); ae != be {
		return ae
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.Entry < b.Entry
}
