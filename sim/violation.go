// sim/violation.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/humaa-taj/aircontrolx/atc"
	"github.com/humaa-taj/aircontrolx/log"
)

// ViolationPolicy controls how many violations a flight gets for a
// stretch of time spent outside its speed envelope.
type ViolationPolicy int

const (
	// PerCheck issues a violation every time the envelope check finds
	// the flight outside its envelope.
	PerCheck ViolationPolicy = iota
	// PerExcursion issues a single violation until the flight is back
	// inside its envelope or changes phase.
	PerExcursion
)

func (p ViolationPolicy) String() string {
	return [...]string{"per-check", "per-excursion"}[p]
}

func ParseViolationPolicy(s string) (ViolationPolicy, error) {
	switch strings.ToLower(s) {
	case "per-check", "":
		return PerCheck, nil
	case "per-excursion":
		return PerExcursion, nil
	default:
		return PerCheck, fmt.Errorf("%q: %w", s, ErrUnknownViolationPolicy)
	}
}

func (p ViolationPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *ViolationPolicy) UnmarshalText(b []byte) error {
	v, err := ParseViolationPolicy(string(b))
	if err == nil {
		*p = v
	}
	return err
}

///////////////////////////////////////////////////////////////////////////
// ViolationLog

// ViolationLog is the record of every violation issued during a run.
// Records are only ever appended; the paid flag is the one field that
// changes afterward.
type ViolationLog struct {
	mu      sync.Mutex
	records []atc.Violation
	index   map[string]int
}

func NewViolationLog() *ViolationLog {
	return &ViolationLog{index: make(map[string]int)}
}

// Issue appends a new violation against the flight and returns it.
func (l *ViolationLog) Issue(fp FlightPlan, recorded, permissible int, now time.Time) atc.Violation {
	l.mu.Lock()
	defer l.mu.Unlock()

	v := atc.NewViolation(atc.ViolationID(len(l.records)+1), fp.ID, fp.Airline, fp.Category,
		recorded, permissible, now)
	l.index[v.ID] = len(l.records)
	l.records = append(l.records, v)
	return v
}

// MarkPaid updates the paid flag of an issued violation and returns the
// updated record.
func (l *ViolationLog) MarkPaid(id string, paid bool) (atc.Violation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	i, ok := l.index[id]
	if !ok {
		return atc.Violation{}, false
	}
	l.records[i].Paid = paid
	return l.records[i], true
}

func (l *ViolationLog) Records() []atc.Violation {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.records)
}

// Counts returns the number of violations issued and the number paid.
func (l *ViolationLog) Counts() (issued, paid int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, v := range l.records {
		if v.Paid {
			paid++
		}
	}
	return len(l.records), paid
}

///////////////////////////////////////////////////////////////////////////
// Emitter

// Sink receives violations as they are issued. Offer must not block; it
// returns false if the violation could not be queued.
type Sink interface {
	Offer(atc.Violation) bool
}

// Emitter runs the speed envelope check and issues violations.
type Emitter struct {
	Log    *ViolationLog
	Sink   Sink
	Policy ViolationPolicy
	Events *EventStream
	Now    func() time.Time
	lg     *log.Logger
}

func NewEmitter(vl *ViolationLog, sink Sink, policy ViolationPolicy, es *EventStream, lg *log.Logger) *Emitter {
	return &Emitter{
		Log:    vl,
		Sink:   sink,
		Policy: policy,
		Events: es,
		Now:    time.Now,
		lg:     lg,
	}
}

// Check compares the flight's speed against the envelope for its current
// phase and issues a violation if it's outside. Military and medical
// flights are exempt.
func (e *Emitter) Check(f *Flight) (atc.Violation, bool) {
	if f.Category.Exempt() {
		return atc.Violation{}, false
	}
	env, ok := atc.SpeedEnvelope(f.Phase)
	if !ok {
		return atc.Violation{}, false
	}
	if env.Contains(f.Speed) {
		f.InExcursion = false
		return atc.Violation{}, false
	}
	if e.Policy == PerExcursion && f.InExcursion {
		return atc.Violation{}, false
	}
	f.InExcursion = true

	v := e.Log.Issue(f.FlightPlan, f.Speed, env.Nearest(f.Speed), e.Now())

	// The log lock has been released; delivery must never wait on a slow
	// or absent reader.
	if e.Sink != nil && !e.Sink.Offer(v) {
		e.lg.Warn("outbound queue full, violation not forwarded", slog.Any("violation", v))
	}
	e.lg.Info("issued violation", slog.Any("violation", v), slog.String("phase", f.Phase.String()),
		slog.String("envelope", env.String()))
	if e.Events != nil {
		e.Events.Post(Event{Type: ViolationIssuedEvent, FlightID: f.ID, Runway: f.Runway, Phase: f.Phase,
			Speed: f.Speed, Violation: &v})
	}
	return v, true
}
