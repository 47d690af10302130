// atc/phase.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package atc

import "fmt"

type Phase int

const (
	Holding Phase = iota
	Approach
	Landing
	Taxi
	AtGate
	TakeoffRoll
	Climb
	Departure
	Arrived
	Departed
	NumPhases
)

func (p Phase) String() string {
	if p < 0 || p >= NumPhases {
		return fmt.Sprintf("Phase(%d)", int(p))
	}
	return [...]string{"Holding", "Approach", "Landing", "Taxi", "At-Gate", "Takeoff-Roll",
		"Climb", "Departure", "Arrived", "Departed"}[p]
}

func (p Phase) Terminal() bool {
	return p == Arrived || p == Departed
}

// OnGround reports whether a flight in this phase is on the airport
// surface; ground faults only happen there.
func (p Phase) OnGround() bool {
	return p == Taxi || p == AtGate
}

// PhaseTicks is the number of simulation ticks spent in each
// non-terminal phase.
const PhaseTicks = 10

///////////////////////////////////////////////////////////////////////////
// Speed envelopes

// Envelope is the inclusive range of permissible speeds in a phase.
type Envelope struct {
	Min, Max int
}

func (e Envelope) Contains(speed int) bool {
	return speed >= e.Min && speed <= e.Max
}

// Nearest returns the envelope bound closest to an out-of-envelope speed:
// the minimum if the speed is under, the maximum if it is over. Speeds
// inside the envelope are returned unchanged.
func (e Envelope) Nearest(speed int) int {
	if speed < e.Min {
		return e.Min
	} else if speed > e.Max {
		return e.Max
	}
	return speed
}

func (e Envelope) String() string {
	return fmt.Sprintf("%d-%d", e.Min, e.Max)
}

var envelopes = [...]Envelope{
	Holding:     {400, 600},
	Approach:    {240, 290},
	Landing:     {30, 240},
	Taxi:        {15, 30},
	AtGate:      {0, 5},
	TakeoffRoll: {50, 290},
	Climb:       {300, 463},
	Departure:   {800, 900},
}

// SpeedEnvelope returns the permissible speed range for the phase; there
// is none for terminal phases.
func SpeedEnvelope(p Phase) (Envelope, bool) {
	if p < 0 || int(p) >= len(envelopes) {
		return Envelope{}, false
	}
	return envelopes[p], true
}

///////////////////////////////////////////////////////////////////////////
// Phase profiles

// PhaseProfile describes how speed evolves while a flight is in a phase.
// Each tick the speed moves by a random step in [StepMin, StepMax],
// downward for arrivals and upward for departures, until it reaches
// Boundary; from then on it holds at Sustained. After PhaseTicks ticks
// the flight moves to Next with speed ResetSpeed.
type PhaseProfile struct {
	StepMin, StepMax int
	Boundary         int
	Sustained        int
	Next             Phase
	ResetSpeed       int
}

var arrivalProfiles = map[Phase]PhaseProfile{
	Holding:  {StepMin: 1, StepMax: 100, Boundary: 400, Sustained: 500, Next: Approach, ResetSpeed: 290},
	Approach: {StepMin: 1, StepMax: 5, Boundary: 240, Sustained: 270, Next: Landing, ResetSpeed: 240},
	Landing:  {StepMin: 1, StepMax: 30, Boundary: 30, Sustained: 100, Next: Taxi, ResetSpeed: 30},
	Taxi:     {StepMin: 1, StepMax: 2, Boundary: 15, Sustained: 20, Next: AtGate, ResetSpeed: 5},
	AtGate:   {StepMin: 0, StepMax: 1, Boundary: 0, Sustained: 3, Next: Arrived},
}

var departureProfiles = map[Phase]PhaseProfile{
	AtGate:      {StepMin: 0, StepMax: 1, Boundary: 5, Sustained: 1, Next: Taxi, ResetSpeed: 15},
	Taxi:        {StepMin: 1, StepMax: 2, Boundary: 30, Sustained: 20, Next: TakeoffRoll, ResetSpeed: 50},
	TakeoffRoll: {StepMin: 1, StepMax: 30, Boundary: 290, Sustained: 220, Next: Climb, ResetSpeed: 300},
	Climb:       {StepMin: 1, StepMax: 20, Boundary: 463, Sustained: 400, Next: Departure, ResetSpeed: 800},
	Departure:   {StepMin: 1, StepMax: 10, Boundary: 900, Sustained: 860, Next: Departed},
}

// Profile returns the speed profile for the phase in the given
// direction's chain.
func Profile(d Direction, p Phase) (PhaseProfile, bool) {
	if d.IsArrival() {
		prof, ok := arrivalProfiles[p]
		return prof, ok
	}
	prof, ok := departureProfiles[p]
	return prof, ok
}

// Crossed reports whether speed has reached the profile's boundary in the
// direction of travel for the chain.
func (p PhaseProfile) Crossed(arrival bool, speed int) bool {
	if arrival {
		return speed <= p.Boundary
	}
	return speed >= p.Boundary
}

// InitialPhase returns the phase and speed a flight starts with:
// arrivals are holding at 600, departures are parked at the gate.
func InitialPhase(d Direction) (Phase, int) {
	if d.IsArrival() {
		return Holding, 600
	}
	return AtGate, 0
}

// Chain returns the non-terminal phases a flight from the given direction
// passes through, in order, followed by its terminal phase.
func Chain(d Direction) []Phase {
	if d.IsArrival() {
		return []Phase{Holding, Approach, Landing, Taxi, AtGate, Arrived}
	}
	return []Phase{AtGate, Taxi, TakeoffRoll, Climb, Departure, Departed}
}
