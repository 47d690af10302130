// cmd/aircontrolx/report.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/humaa-taj/aircontrolx/sim"
	"github.com/humaa-taj/aircontrolx/wire"
)

const reportInterval = 250 * time.Millisecond

// reporter prints the simulation's events to the console as they
// happen.
type reporter struct {
	w       io.Writer
	sub     *sim.EventsSubscription
	verbose bool
}

func newReporter(w io.Writer, s *sim.Sim, verbose bool) *reporter {
	return &reporter{w: w, sub: s.EventStream().Subscribe(), verbose: verbose}
}

func (r *reporter) Run(ctx context.Context) error {
	defer r.sub.Unsubscribe()

	ticker := time.NewTicker(reportInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.print()
			return nil
		case <-ticker.C:
			r.print()
		}
	}
}

func (r *reporter) print() {
	for _, e := range r.sub.Get() {
		switch e.Type {
		case sim.PhaseChangedEvent:
			if !r.verbose {
				continue
			}
		case sim.ViolationIssuedEvent:
			fmt.Fprintf(r.w, "%s  !! %s\n", time.Now().Format(time.TimeOnly), e)
			continue
		case sim.GroundFaultEvent:
			fmt.Fprintf(r.w, "%s  ** ground fault: %s removed in %s, runway %s released\n",
				time.Now().Format(time.TimeOnly), e.FlightID, e.Phase, e.Runway)
			continue
		}
		fmt.Fprintf(r.w, "%s  %s\n", time.Now().Format(time.TimeOnly), e)
	}
}

func printSummary(w io.Writer, s *sim.Sim, ob *wire.Outbox) {
	stats := s.Stats()
	issued, paid := s.Violations.Counts()

	fmt.Fprintln(w, "\nSimulation summary")
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "Dispatched\t%d\n", stats.Dispatched)
	fmt.Fprintf(tw, "Arrived\t%d\n", stats.Arrived)
	fmt.Fprintf(tw, "Departed\t%d\n", stats.Departed)
	fmt.Fprintf(tw, "Ground faults\t%d\n", stats.Faulted)
	fmt.Fprintf(tw, "Aborted\t%d\n", stats.Aborted)
	fmt.Fprintf(tw, "Longest runway wait\t%s\n", stats.MaxWait.Round(time.Millisecond))
	fmt.Fprintf(tw, "Violations issued\t%d\n", issued)
	fmt.Fprintf(tw, "Violations paid\t%d\n", paid)
	if ob != nil {
		sent, dropped := ob.Counts()
		fmt.Fprintf(tw, "Sent to ledger\t%d\n", sent)
		fmt.Fprintf(tw, "Dropped\t%d\n", dropped)
	}
	tw.Flush()
}
