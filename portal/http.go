// portal/http.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package portal

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/iancoleman/orderedmap"
)

// Handler returns the portal's read-only HTTP API:
//
//	GET /health
//	GET /airlines                          summaries of all airlines
//	GET /airlines/{airline}                summary of one airline
//	GET /airlines/{airline}/violations     the airline's violations
func (p *Portal) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/airlines", p.handleAirlines)
	r.Get("/airlines/{airline}", p.handleAirline)
	r.Get("/airlines/{airline}/violations", p.handleViolations)

	return r
}

func (p *Portal) handleAirlines(w http.ResponseWriter, r *http.Request) {
	summaries := []*orderedmap.OrderedMap{}
	for _, s := range p.Summaries() {
		summaries = append(summaries, s.orderedMap())
	}
	p.writeJSON(w, summaries)
}

func (p *Portal) handleAirline(w http.ResponseWriter, r *http.Request) {
	s, ok := p.Summary(chi.URLParam(r, "airline"))
	if !ok {
		http.Error(w, "unknown airline", http.StatusNotFound)
		return
	}
	p.writeJSON(w, s.orderedMap())
}

func (p *Portal) handleViolations(w http.ResponseWriter, r *http.Request) {
	airline := chi.URLParam(r, "airline")
	if _, ok := p.Summary(airline); !ok {
		http.Error(w, "unknown airline", http.StatusNotFound)
		return
	}
	p.writeJSON(w, p.Violations(airline))
}

func (p *Portal) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		p.lg.Warn("unable to encode response", slog.Any("error", err))
	}
}

// orderedMap returns the summary with its keys in a fixed order for
// display.
func (s Summary) orderedMap() *orderedmap.OrderedMap {
	o := orderedmap.New()
	o.Set("airline", s.Airline)
	o.Set("total", s.Total)
	o.Set("paid", s.Paid)
	o.Set("unpaid", s.Unpaid)
	o.Set("total_fines", s.TotalFines)
	o.Set("paid_fines", s.PaidFines)
	o.Set("outstanding", s.Outstanding)
	return o
}

// Serve runs the HTTP API on addr until ctx is canceled.
func (p *Portal) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           p.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)
	go func() { errs <- srv.ListenAndServe() }()
	p.lg.Info("serving portal", slog.String("addr", addr))

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
