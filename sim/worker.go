// sim/worker.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"context"
	"log/slog"
	"time"

	"github.com/humaa-taj/aircontrolx/atc"
	"github.com/humaa-taj/aircontrolx/log"

	"github.com/goforj/godump"
)

// runFlight is the lifecycle worker for a single flight: it waits for a
// runway, then simulates the flight until it completes, faults, or ctx is
// canceled. The flight always leaves the active set with its runway
// released.
func (s *Sim) runFlight(ctx context.Context, f *Flight) {
	defer s.wg.Done()
	lg := s.lg.With(slog.String("flight", f.ID))

	rwy, ok := s.acquireRunway(ctx, f)
	if !ok {
		lg.Info("canceled while waiting for a runway", slog.Duration("wait", f.WaitTime))
		s.retire(f, FlightAbortedEvent)
		return
	}
	f.Runway = rwy
	f.publish()

	lg.Info("runway assigned", slog.String("runway", rwy.String()), slog.Duration("wait", f.WaitTime))
	s.eventStream.Post(Event{Type: RunwayAssignedEvent, FlightID: f.ID, Runway: rwy, Phase: f.Phase,
		Speed: f.Speed, Wait: f.WaitTime})

	ticker := time.NewTicker(s.cfg.StepInterval.D())
	defer ticker.Stop()

	for {
		if reason, done := s.step(f, lg); done {
			s.retire(f, reason)
			return
		}

		select {
		case <-ctx.Done():
			s.retire(f, FlightAbortedEvent)
			return
		case <-ticker.C:
		}
	}
}

// acquireRunway retries runway assignment until it succeeds or ctx is
// canceled. Between attempts it waits for a runway to be released or for
// the backoff interval, whichever comes first; all waiting flights race
// for a released runway, so priority plays no part here.
func (s *Sim) acquireRunway(ctx context.Context, f *Flight) (atc.RunwayID, bool) {
	start := time.Now()
	for {
		freed := s.Runways.Freed()
		if id, ok := s.Runways.TryAssign(f.FlightPlan); ok {
			f.WaitTime = time.Since(start)
			return id, true
		}

		f.WaitTime = time.Since(start)
		f.publish()

		select {
		case <-ctx.Done():
			return atc.NoRunway, false
		case <-freed:
		case <-time.After(s.cfg.BackoffInterval.D()):
		}
	}
}

// step runs one iteration of the flight's simulation: advance the phase,
// check the speed envelope, and roll for a ground fault. It returns true
// along with the reason if the flight is done.
func (s *Sim) step(f *Flight, lg *log.Logger) (EventType, bool) {
	defer f.publish()

	change, err := f.Tick()
	if err != nil {
		lg.Warn("unable to advance flight", slog.Any("error", err), slog.Any("state", f))
		return 0, false
	}
	if change != nil {
		lg.Debug("phase change", slog.String("from", change.From.String()), slog.String("to", change.To.String()),
			slog.Int("speed", f.Speed))
		s.eventStream.Post(Event{Type: PhaseChangedEvent, FlightID: f.ID, Runway: f.Runway,
			FromPhase: change.From, Phase: change.To, Speed: f.Speed})
		if f.Completed {
			return FlightCompletedEvent, true
		}
	}

	s.emitter.Check(f)

	if f.Phase.OnGround() && f.Runway.Valid() && f.rand.Chance(s.cfg.GroundFaultRate) {
		f.Faulted = true
		lg.Warn("ground fault", slog.Any("state", f))
		if lg != nil && lg.Enabled(context.Background(), slog.LevelDebug) {
			lg.Debug("ground fault flight dump", slog.String("dump", godump.DumpStr(f.FlightState)))
		}
		return GroundFaultEvent, true
	}
	return 0, false
}
