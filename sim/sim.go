// sim/sim.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/humaa-taj/aircontrolx/atc"
	"github.com/humaa-taj/aircontrolx/log"
	"github.com/humaa-taj/aircontrolx/rand"
	"github.com/humaa-taj/aircontrolx/util"

	"github.com/brunoga/deep"
)

// Config holds the simulation's timing and policy settings. The zero
// value of any field selects its default.
type Config struct {
	// TickInterval is the wall-clock length of one scheduled minute.
	TickInterval util.Duration `json:"tick_interval"`
	// Horizon is the last minute at which flights are released.
	Horizon         int           `json:"horizon"`
	StepInterval    util.Duration `json:"step_interval"`
	BackoffInterval util.Duration `json:"backoff_interval"`
	SpawnPacing     util.Duration `json:"spawn_pacing"`
	// GroundFaultRate is the per-tick probability of a ground fault for a
	// flight taxiing or at the gate.
	GroundFaultRate float32         `json:"ground_fault_rate"`
	ViolationPolicy ViolationPolicy `json:"violation_policy"`
	Seed            int64           `json:"seed,omitempty"`
	// StopWhenIdle ends the run early once every scheduled flight has
	// been dispatched and retired.
	StopWhenIdle bool `json:"stop_when_idle,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		TickInterval:    util.Duration(time.Second),
		Horizon:         300,
		StepInterval:    util.Duration(500 * time.Millisecond),
		BackoffInterval: util.Duration(500 * time.Millisecond),
		SpawnPacing:     util.Duration(50 * time.Millisecond),
		GroundFaultRate: 0.01,
		ViolationPolicy: PerCheck,
	}
}

// withDefaults returns the config with unset fields filled in.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TickInterval <= 0 {
		c.TickInterval = def.TickInterval
	}
	if c.Horizon <= 0 {
		c.Horizon = def.Horizon
	}
	if c.StepInterval <= 0 {
		c.StepInterval = def.StepInterval
	}
	if c.BackoffInterval <= 0 {
		c.BackoffInterval = def.BackoffInterval
	}
	if c.SpawnPacing < 0 {
		c.SpawnPacing = 0
	}
	c.GroundFaultRate = util.Clamp(c.GroundFaultRate, 0, 1)
	return c
}

func (c Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Duration("tick_interval", c.TickInterval.D()),
		slog.Int("horizon", c.Horizon),
		slog.Duration("step_interval", c.StepInterval.D()),
		slog.Duration("backoff_interval", c.BackoffInterval.D()),
		slog.Duration("spawn_pacing", c.SpawnPacing.D()),
		slog.Float64("ground_fault_rate", float64(c.GroundFaultRate)),
		slog.String("violation_policy", c.ViolationPolicy.String()),
		slog.Int64("seed", c.Seed))
}

// Stats counts what has happened to the flights so far.
type Stats struct {
	Dispatched int
	Arrived    int
	Departed   int
	Faulted    int
	Aborted    int
	MaxWait    time.Duration
}

// Sim runs the airport: it releases scheduled flights as their minute
// comes up and runs a lifecycle worker for each one until it completes,
// faults, or the simulation is canceled.
type Sim struct {
	cfg Config
	lg  *log.Logger

	Rand       *rand.Rand
	Runways    *RunwayPool
	Violations *ViolationLog

	emitter     *Emitter
	eventStream *EventStream

	// schedule is sorted by minute and then by entry order; it and
	// nextScheduled are only accessed by the Run goroutine.
	schedule      []*Flight
	nextScheduled int

	activeMu sync.Mutex
	active   map[string]*Flight
	stats    Stats

	running util.AtomicBool
	start   time.Time
	wg      sync.WaitGroup
}

// NewSim creates a simulation of the given flights. Issued violations are
// offered to sink, which may be nil.
func NewSim(cfg Config, plans []FlightPlan, sink Sink, lg *log.Logger) *Sim {
	cfg = cfg.withDefaults()

	s := &Sim{
		cfg:        cfg,
		lg:         lg,
		Runways:    NewRunwayPool(lg),
		Violations: NewViolationLog(),
		active:     make(map[string]*Flight),
	}
	if cfg.Seed != 0 {
		s.Rand = rand.MakeSeeded(cfg.Seed)
	} else {
		s.Rand = rand.Make()
	}
	s.eventStream = NewEventStream(lg)
	s.emitter = NewEmitter(s.Violations, sink, cfg.ViolationPolicy, s.eventStream, lg)

	for i, fp := range plans {
		s.schedule = append(s.schedule, NewFlight(fp, i, s.Rand.Fork()))
	}
	slices.SortStableFunc(s.schedule, func(a, b *Flight) int { return cmp.Compare(a.Minute, b.Minute) })

	return s
}

func (s *Sim) Config() Config {
	return s.cfg
}

func (s *Sim) EventStream() *EventStream {
	return s.eventStream
}

// Run releases flights minute by minute until the horizon passes or ctx
// is canceled, then waits for all lifecycle workers to finish. It returns
// ctx.Err() if the run was canceled.
func (s *Sim) Run(ctx context.Context) error {
	if s.running.Swap(true) {
		return ErrSimAlreadyRunning
	}
	defer s.running.Store(false)

	s.activeMu.Lock()
	s.start = time.Now()
	s.activeMu.Unlock()

	s.lg.Info("simulation starting", slog.Any("config", s.cfg), slog.Int("flights", len(s.schedule)))
	s.eventStream.Post(Event{Type: StatusMessageEvent, Runway: atc.NoRunway, Message: "simulation started"})

	tick := s.cfg.TickInterval.D()
	next := 0
run:
	for next <= s.cfg.Horizon {
		current := int(time.Since(s.start) / tick)
		if current-next > 10 {
			s.lg.Warn("unexpected hitch in scheduler", slog.Int("minute", current), slog.Int("next", next))
		}
		for ; next <= current && next <= s.cfg.Horizon; next++ {
			if err := s.dispatch(ctx, next); err != nil {
				break run
			}
		}
		if s.cfg.StopWhenIdle && s.idle() {
			break
		}

		wait := time.Until(s.start.Add(time.Duration(next) * tick))
		select {
		case <-ctx.Done():
			break run
		case <-time.After(wait):
		}
	}

	s.wg.Wait()

	stats := s.Stats()
	issued, paid := s.Violations.Counts()
	s.lg.Info("simulation finished", slog.Duration("elapsed", time.Since(s.start)),
		slog.Int("dispatched", stats.Dispatched), slog.Int("arrived", stats.Arrived),
		slog.Int("departed", stats.Departed), slog.Int("faulted", stats.Faulted),
		slog.Int("aborted", stats.Aborted), slog.Int("violations", issued), slog.Int("paid", paid))
	s.eventStream.Post(Event{Type: StatusMessageEvent, Runway: atc.NoRunway, Message: "simulation finished"})

	return ctx.Err()
}

// dispatch releases the flights scheduled for the given minute,
// emergencies first, then by priority, then in schedule order.
func (s *Sim) dispatch(ctx context.Context, minute int) error {
	var batch []*Flight
	for s.nextScheduled < len(s.schedule) && s.schedule[s.nextScheduled].Minute <= minute {
		batch = append(batch, s.schedule[s.nextScheduled])
		s.nextScheduled++
	}
	if len(batch) == 0 {
		return nil
	}

	slices.SortFunc(batch, func(a, b *Flight) int {
		if dispatchLess(a, b) {
			return -1
		} else if dispatchLess(b, a) {
			return 1
		}
		return 0
	})
	s.lg.Debug("dispatching flights", slog.Int("minute", minute), slog.Int("count", len(batch)))

	for i, f := range batch {
		if i > 0 && s.cfg.SpawnPacing > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.cfg.SpawnPacing.D()):
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.activate(ctx, f)
	}
	return nil
}

func (s *Sim) activate(ctx context.Context, f *Flight) {
	s.activeMu.Lock()
	s.active[f.ID] = f
	s.stats.Dispatched++
	s.activeMu.Unlock()

	s.lg.Info("flight activated", slog.Any("flight", f.FlightPlan))
	s.eventStream.Post(Event{Type: FlightActivatedEvent, FlightID: f.ID, Runway: atc.NoRunway,
		Phase: f.Phase, Speed: f.Speed})

	s.wg.Add(1)
	go s.runFlight(ctx, f)
}

// retire removes a flight from the active set, releasing its runway
// first so that every occupied runway always belongs to an active
// flight.
func (s *Sim) retire(f *Flight, reason EventType) {
	s.activeMu.Lock()
	rwy, _ := s.Runways.Free(f.ID)
	delete(s.active, f.ID)
	switch reason {
	case FlightCompletedEvent:
		if f.IsArrival() {
			s.stats.Arrived++
		} else {
			s.stats.Departed++
		}
	case GroundFaultEvent:
		s.stats.Faulted++
	default:
		s.stats.Aborted++
	}
	s.stats.MaxWait = max(s.stats.MaxWait, f.WaitTime)
	s.activeMu.Unlock()

	f.Runway = atc.NoRunway
	f.publish()

	s.lg.Info("flight retired", slog.Any("flight", f), slog.String("reason", reason.String()),
		slog.String("runway", rwy.String()))
	s.eventStream.Post(Event{Type: reason, FlightID: f.ID, Runway: rwy, Phase: f.Phase, Speed: f.Speed})
}

func (s *Sim) idle() bool {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	return s.nextScheduled == len(s.schedule) && len(s.active) == 0
}

func (s *Sim) Stats() Stats {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	return s.stats
}

// ApplyPayment records a payment update received from the violation
// ledger. Only the paid flag of the matching violation changes.
func (s *Sim) ApplyPayment(v atc.Violation) error {
	updated, ok := s.Violations.MarkPaid(v.ID, v.Paid)
	if !ok {
		s.lg.Warn("payment update for unknown violation", slog.Any("violation", v))
		return ErrUnknownViolation
	}
	s.lg.Info("payment update", slog.Any("violation", updated))
	s.eventStream.Post(Event{Type: PaymentUpdatedEvent, FlightID: updated.FlightID, Runway: atc.NoRunway,
		Violation: &updated})
	return nil
}

///////////////////////////////////////////////////////////////////////////
// Snapshots

// Snapshot is a consistent, independent copy of the simulation state for
// display and tests.
type Snapshot struct {
	Elapsed    time.Duration
	Flights    []FlightView
	Runways    [atc.NumRunways]Runway
	Violations []atc.Violation
	Stats      Stats
}

func (s *Sim) Snapshot() Snapshot {
	var snap Snapshot

	s.activeMu.Lock()
	for _, f := range s.active {
		snap.Flights = append(snap.Flights, f.View())
	}
	snap.Runways = s.Runways.Runways()
	snap.Stats = s.stats
	if !s.start.IsZero() {
		snap.Elapsed = time.Since(s.start)
	}
	s.activeMu.Unlock()

	slices.SortFunc(snap.Flights, func(a, b FlightView) int { return cmp.Compare(a.ID, b.ID) })
	snap.Violations = s.Violations.Records()

	return deep.MustCopy(snap)
}

func (s *Sim) LogValue() slog.Value {
	s.activeMu.Lock()
	defer s.activeMu.Unlock()
	return slog.GroupValue(
		slog.Any("config", s.cfg),
		slog.Int("scheduled", len(s.schedule)),
		slog.Int("active", len(s.active)),
		slog.Int("dispatched", s.stats.Dispatched))
}
