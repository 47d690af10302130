// portal/portal.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package portal is the airline-facing view of issued violations,
// grouped by airline with running totals of what has been paid.
package portal

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/humaa-taj/aircontrolx/atc"
	"github.com/humaa-taj/aircontrolx/log"
	"github.com/humaa-taj/aircontrolx/util"
	"github.com/humaa-taj/aircontrolx/wire"
)

// Summary totals an airline's violations.
type Summary struct {
	Airline     string
	Total       int
	Paid        int
	Unpaid      int
	TotalFines  float64
	PaidFines   float64
	Outstanding float64
}

type Portal struct {
	mu       sync.Mutex
	airlines map[string]map[string]atc.Violation
	updated  time.Time
	lg       *log.Logger
}

func New(lg *log.Logger) *Portal {
	return &Portal{
		airlines: make(map[string]map[string]atc.Violation),
		lg:       lg,
	}
}

// Upsert adds a violation or replaces the one with the same ID.
func (p *Portal) Upsert(v atc.Violation) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.airlines[v.Airline]
	if !ok {
		m = make(map[string]atc.Violation)
		p.airlines[v.Airline] = m
	}
	_, existing := m[v.ID]
	m[v.ID] = v
	p.updated = time.Now()

	p.lg.Info("violation received", slog.String("id", v.ID), slog.String("flight", v.FlightID),
		slog.Bool("paid", v.Paid), slog.Bool("update", existing))
}

// Airlines returns the airlines with violations, sorted.
func (p *Portal) Airlines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return util.SortedMapKeys(p.airlines)
}

// Violations returns the airline's violations in the order they were
// issued.
func (p *Portal) Violations(airline string) []atc.Violation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return sortedViolations(p.airlines[airline])
}

func sortedViolations(m map[string]atc.Violation) []atc.Violation {
	_, vs := util.FlattenMap(m)
	slices.SortFunc(vs, func(a, b atc.Violation) int {
		if c := a.IssueTime.Compare(b.IssueTime); c != 0 {
			return c
		}
		if c := cmp.Compare(len(a.ID), len(b.ID)); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return vs
}

// Summary totals the airline's violations; it returns false if there
// are none.
func (p *Portal) Summary(airline string) (Summary, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	m, ok := p.airlines[airline]
	if !ok {
		return Summary{}, false
	}
	return summarize(airline, m), true
}

// Summaries returns the summary of every airline, sorted by airline.
func (p *Portal) Summaries() []Summary {
	p.mu.Lock()
	defer p.mu.Unlock()

	var s []Summary
	for _, airline := range util.SortedMapKeys(p.airlines) {
		s = append(s, summarize(airline, p.airlines[airline]))
	}
	return s
}

func summarize(airline string, m map[string]atc.Violation) Summary {
	s := Summary{Airline: airline}
	for _, v := range m {
		s.Total++
		s.TotalFines += v.FineAmount
		if v.Paid {
			s.Paid++
			s.PaidFines += v.FineAmount
		} else {
			s.Unpaid++
			s.Outstanding += v.FineAmount
		}
	}
	return s
}

// Run receives violations from src until it sends an exit message or ctx
// is canceled.
func (p *Portal) Run(ctx context.Context, src wire.Source) error {
	return src.Listen(ctx, p.Upsert)
}

// Dashboard writes a table of every airline's violations to w.
func (p *Portal) Dashboard(w io.Writer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.airlines) == 0 {
		fmt.Fprintln(w, "No violations received yet.")
		return
	}

	for _, airline := range util.SortedMapKeys(p.airlines) {
		fmt.Fprintf(w, "\n--- %s ---\n", airline)
		tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
		fmt.Fprintln(tw, "AVN\tFlight\tType\tSpeed/Limit\tFine (PKR)\tIssued\tDue\tStatus")
		for _, v := range sortedViolations(p.airlines[airline]) {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%.2f\t%s\t%s\t%s\n", v.ID, v.FlightID, v.Category,
				v.RecordedSpeed, v.PermissibleSpeed, v.FineAmount, v.IssueTime.Format(time.DateTime),
				v.DueDate.Format(time.DateOnly), util.Select(v.Paid, "PAID", "UNPAID"))
		}
		tw.Flush()

		s := summarize(airline, p.airlines[airline])
		fmt.Fprintf(w, "Total: %d  Paid: %d  Unpaid: %d  Outstanding: PKR %.2f\n", s.Total, s.Paid, s.Unpaid,
			s.Outstanding)
	}
	if !p.updated.IsZero() {
		fmt.Fprintf(w, "\nLast update %s\n", p.updated.Format(time.TimeOnly))
	}
}
