// cmd/avnportal/main.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

// avnportal shows each airline its violations and what it owes, on the
// console and optionally over HTTP.

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/humaa-taj/aircontrolx/log"
	"github.com/humaa-taj/aircontrolx/portal"
	"github.com/humaa-taj/aircontrolx/wire"

	"golang.org/x/sync/errgroup"
)

var (
	pipeDir   = flag.String("pipedir", os.TempDir(), "directory for the named pipes")
	codecName = flag.String("codec", "legacy", "pipe message format: legacy, framed")
	httpAddr  = flag.String("http", "", "address to serve the portal's HTTP API on (e.g., :8080)")
	refresh   = flag.Duration("refresh", 5*time.Second, "how often to print the dashboard (0 to only print at exit)")
	logLevel  = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir    = flag.String("logdir", "", "log file directory")
)

func main() {
	flag.Parse()

	lg := log.New("avnportal", *logLevel, *logDir)
	defer lg.CatchAndReportCrash()

	codec, err := wire.CodecByName(*codecName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := wire.EnsurePipes(*pipeDir, wire.PipeLedgerToPortal); err != nil {
		lg.Errorf("%v", err)
		fmt.Fprintf(os.Stderr, "Unable to create pipes: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := portal.New(lg)
	src := wire.NewPipeReader(filepath.Join(*pipeDir, wire.PipeLedgerToPortal), codec, lg)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		defer cancel()
		return p.Run(gctx, src)
	})
	if *httpAddr != "" {
		g.Go(func() error { return p.Serve(gctx, *httpAddr) })
	}
	if *refresh > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(*refresh)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					p.Dashboard(os.Stdout)
				}
			}
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		lg.Errorf("%v", err)
		fmt.Fprintln(os.Stderr, err)
	}
	p.Dashboard(os.Stdout)
}
