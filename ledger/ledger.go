// ledger/ledger.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package ledger keeps the authoritative list of issued violations. It
// receives new violations from the engine and forwards them to the portal
// and payment processor; payment updates are applied and forwarded to
// everyone.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/humaa-taj/aircontrolx/atc"
	"github.com/humaa-taj/aircontrolx/log"
	"github.com/humaa-taj/aircontrolx/util"
	"github.com/humaa-taj/aircontrolx/wire"

	"golang.org/x/sync/errgroup"
)

var ErrUnknownViolation = errors.New("Unknown violation")

type Ledger struct {
	mu      sync.Mutex
	records map[string]atc.Violation
	order   []string

	portal, payment, engine wire.Sender
	lg                      *log.Logger
}

// New returns a Ledger that forwards to the given senders; any of them
// may be nil.
func New(portal, payment, engine wire.Sender, lg *log.Logger) *Ledger {
	return &Ledger{
		records: make(map[string]atc.Violation),
		portal:  portal,
		payment: payment,
		engine:  engine,
		lg:      lg,
	}
}

// Record stores a violation received from the engine and forwards it to
// the portal and payment processor. A record with an ID that has been
// seen before replaces the earlier one.
func (l *Ledger) Record(ctx context.Context, v atc.Violation) {
	l.mu.Lock()
	if _, ok := l.records[v.ID]; !ok {
		l.order = append(l.order, v.ID)
	}
	l.records[v.ID] = v
	l.mu.Unlock()

	l.lg.Info("recorded violation", slog.Any("violation", v))
	l.forward(ctx, v, l.portal, l.payment)
}

// UpdatePayment applies a payment update; only the paid flag of the
// stored record changes. The updated record goes to the portal, the
// payment processor, and the engine.
func (l *Ledger) UpdatePayment(ctx context.Context, update atc.Violation) error {
	l.mu.Lock()
	v, ok := l.records[update.ID]
	if ok {
		v.Paid = update.Paid
		l.records[v.ID] = v
	}
	l.mu.Unlock()

	if !ok {
		l.lg.Warn("payment update for unknown violation", slog.Any("update", update))
		return ErrUnknownViolation
	}

	l.lg.Info("payment update", slog.Any("violation", v))
	l.forward(ctx, v, l.portal, l.payment, l.engine)
	return nil
}

func (l *Ledger) forward(ctx context.Context, v atc.Violation, to ...wire.Sender) {
	for _, s := range to {
		if s == nil {
			continue
		}
		if err := s.Send(ctx, wire.ViolationMessage(v)); errors.Is(err, wire.ErrNoReader) {
			l.lg.Debug("no reader, violation not forwarded", slog.String("id", v.ID))
		} else if err != nil {
			l.lg.Warn("unable to forward violation", slog.String("id", v.ID), slog.Any("error", err))
		}
	}
}

// Records returns the stored violations in the order they were first
// received.
func (l *Ledger) Records() []atc.Violation {
	l.mu.Lock()
	defer l.mu.Unlock()

	r := make([]atc.Violation, 0, len(l.order))
	for _, id := range l.order {
		r = append(r, l.records[id])
	}
	return r
}

// Outstanding returns the unpaid violations.
func (l *Ledger) Outstanding() []atc.Violation {
	return util.FilterSlice(l.Records(), func(v atc.Violation) bool { return !v.Paid })
}

// Run processes violations from the engine and payment updates until the
// engine sends an exit message or ctx is canceled. Either way, the portal
// and payment processor are then told to exit.
func (l *Ledger) Run(ctx context.Context, fromEngine, fromPayment wire.Source) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		if err := fromEngine.Listen(gctx, func(v atc.Violation) { l.Record(gctx, v) }); err != nil {
			return err
		}
		l.lg.Info("engine exited")
		return nil
	})
	if fromPayment != nil {
		g.Go(func() error {
			return fromPayment.Listen(gctx, func(v atc.Violation) { l.UpdatePayment(gctx, v) })
		})
	}

	err := g.Wait()

	exitCtx, exitCancel := context.WithTimeout(context.Background(), time.Second)
	defer exitCancel()
	for _, s := range []wire.Sender{l.portal, l.payment} {
		if s == nil {
			continue
		}
		if err := s.Send(exitCtx, wire.ExitMessage()); err != nil && !errors.Is(err, wire.ErrNoReader) {
			l.lg.Warn("unable to send exit", slog.Any("error", err))
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
