// payment/payment.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package payment settles violations on behalf of airlines and reports
// the payments back to the ledger.
package payment

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/humaa-taj/aircontrolx/atc"
	"github.com/humaa-taj/aircontrolx/log"
	"github.com/humaa-taj/aircontrolx/util"
	"github.com/humaa-taj/aircontrolx/wire"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

var (
	ErrAlreadyPaid = errors.New("Violation already paid")
	ErrNoViolation = errors.New("No outstanding violation")
)

const (
	settledCacheSize = 4096
	settledCacheTTL  = 24 * time.Hour
)

type Processor struct {
	// payMu serializes payments so that a violation is never reported
	// twice.
	payMu sync.Mutex

	mu      sync.Mutex
	pending map[string]atc.Violation

	// settled remembers recently paid violations so that copies of them
	// forwarded back to us aren't taken as new.
	settled *expirable.LRU[string, time.Time]

	ledger wire.Sender
	lg     *log.Logger
}

func New(ledger wire.Sender, lg *log.Logger) *Processor {
	return &Processor{
		pending: make(map[string]atc.Violation),
		settled: expirable.NewLRU[string, time.Time](settledCacheSize, nil, settledCacheTTL),
		ledger:  ledger,
		lg:      lg,
	}
}

// Receive takes a violation forwarded by the ledger. Unpaid violations
// are added to the pending list; paid ones, and ones we have already
// settled, are removed or ignored.
func (p *Processor) Receive(v atc.Violation) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.settled.Get(v.ID); ok {
		p.lg.Debug("ignoring settled violation", slog.String("id", v.ID))
		return
	}
	if v.Paid {
		delete(p.pending, v.ID)
		p.settled.Add(v.ID, time.Now())
		return
	}
	p.pending[v.ID] = v
	p.lg.Info("violation received", slog.String("id", v.ID), slog.String("flight", v.FlightID),
		slog.Float64("fine", v.FineAmount))
}

// Pay settles every outstanding violation of the given flight and
// returns them. A violation only counts as paid once the ledger has been
// told; if it can't be, the violations stay outstanding and the payment
// can be retried.
func (p *Processor) Pay(ctx context.Context, flightID string) ([]atc.Violation, error) {
	p.payMu.Lock()
	defer p.payMu.Unlock()

	vs := util.FilterSlice(p.Pending(), func(v atc.Violation) bool { return v.FlightID == flightID })
	if len(vs) == 0 {
		return nil, fmt.Errorf("%s: %w", flightID, ErrNoViolation)
	}
	return p.pay(ctx, vs)
}

// PayViolation settles a single violation.
func (p *Processor) PayViolation(ctx context.Context, id string) (atc.Violation, error) {
	p.payMu.Lock()
	defer p.payMu.Unlock()

	p.mu.Lock()
	v, ok := p.pending[id]
	_, settled := p.settled.Peek(id)
	p.mu.Unlock()

	if !ok {
		if settled {
			return atc.Violation{}, fmt.Errorf("%s: %w", id, ErrAlreadyPaid)
		}
		return atc.Violation{}, fmt.Errorf("%s: %w", id, ErrNoViolation)
	}
	paid, err := p.pay(ctx, []atc.Violation{v})
	if err != nil {
		return atc.Violation{}, err
	}
	return paid[0], nil
}

// pay reports the violations to the ledger as paid and then settles
// them. p.payMu must be held.
func (p *Processor) pay(ctx context.Context, vs []atc.Violation) ([]atc.Violation, error) {
	paid := slices.Clone(vs)
	for i := range paid {
		paid[i].Paid = true
	}

	if p.ledger != nil {
		if err := p.ledger.Send(ctx, wire.ViolationMessage(paid...)); err != nil {
			if errors.Is(err, wire.ErrNoReader) {
				p.lg.Warn("ledger not listening, payment not made", slog.Int("count", len(paid)))
			}
			return nil, err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, v := range paid {
		delete(p.pending, v.ID)
		p.settled.Add(v.ID, time.Now())
		p.lg.Info("payment processed", slog.String("id", v.ID), slog.String("flight", v.FlightID),
			slog.Float64("fine", v.FineAmount))
	}
	return paid, nil
}

// Pending returns the outstanding violations in the order they were
// issued.
func (p *Processor) Pending() []atc.Violation {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, vs := util.FlattenMap(p.pending)
	slices.SortFunc(vs, func(a, b atc.Violation) int {
		// AVN-2 before AVN-10.
		if c := cmp.Compare(len(a.ID), len(b.ID)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return vs
}

// Run receives violations from src until it sends an exit message or ctx
// is canceled. If autopay is positive, each violation received is paid
// after that delay.
func (p *Processor) Run(ctx context.Context, src wire.Source, autopay time.Duration) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	return src.Listen(runCtx, func(v atc.Violation) {
		p.Receive(v)
		if autopay <= 0 || v.Paid {
			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case <-runCtx.Done():
				return
			case <-time.After(autopay):
			}
			if _, err := p.PayViolation(runCtx, v.ID); err != nil && !errors.Is(err, ErrAlreadyPaid) {
				p.lg.Warn("autopay failed", slog.String("id", v.ID), slog.Any("error", err))
			}
		}()
	})
}
