// sim/phase.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"

	"github.com/humaa-taj/aircontrolx/atc"
)

// PhaseChange describes a flight's move from one phase to the next.
type PhaseChange struct {
	From, To atc.Phase
}

// Tick advances the flight's phase simulation by one step. The returned
// PhaseChange is non-nil if the flight moved to a new phase, which may be
// a terminal one. Tick does nothing for flights that have already
// completed.
func (f *Flight) Tick() (*PhaseChange, error) {
	if f.Completed || f.Phase.Terminal() {
		return nil, nil
	}

	prof, ok := atc.Profile(f.Direction, f.Phase)
	if !ok {
		return nil, fmt.Errorf("%s in %s: %w", f.Direction, f.Phase, ErrNoPhaseProfile)
	}

	arrival := f.IsArrival()
	pd := &f.PhaseData
	if pd.ThresholdCrossed {
		f.Speed = pd.SustainedSpeed
	} else {
		step := f.rand.IntRange(prof.StepMin, prof.StepMax)
		if arrival {
			f.Speed -= step
		} else {
			f.Speed += step
		}
		f.Speed = max(f.Speed, 0)

		// The speed that crossed the boundary stands for this tick; the
		// flight then holds the sustained speed until the phase ends.
		if prof.Crossed(arrival, f.Speed) {
			pd.ThresholdCrossed = true
			pd.SustainedSpeed = prof.Sustained
		}
	}

	pd.Ticks++
	if pd.Ticks < atc.PhaseTicks {
		return nil, nil
	}

	change := &PhaseChange{From: f.Phase, To: prof.Next}
	f.Phase = prof.Next
	f.PhaseData = PhaseData{}
	f.InExcursion = false
	if f.Phase.Terminal() {
		f.Completed = true
	} else {
		f.Speed = prof.ResetSpeed
	}
	return change, nil
}
