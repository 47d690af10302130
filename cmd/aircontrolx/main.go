// cmd/aircontrolx/main.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

// aircontrolx simulates the airport's runways and issues speed violations
// to the violation ledger. The ledger, portal, and payment services run
// as separate processes connected by named pipes, or, with -standalone,
// within this one.

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/humaa-taj/aircontrolx/atc"
	"github.com/humaa-taj/aircontrolx/ledger"
	"github.com/humaa-taj/aircontrolx/log"
	"github.com/humaa-taj/aircontrolx/payment"
	"github.com/humaa-taj/aircontrolx/portal"
	"github.com/humaa-taj/aircontrolx/sim"
	"github.com/humaa-taj/aircontrolx/wire"

	"golang.org/x/sync/errgroup"
)

var (
	scheduleFile = flag.String("schedule", "", "JSON file with the flight schedule")
	configFile   = flag.String("config", "", "JSON file with simulation settings")
	saveConfig   = flag.Bool("saveconfig", false, "print the effective configuration and exit")
	pipeDir      = flag.String("pipedir", "", "directory for the named pipes")
	codecName    = flag.String("codec", "", "pipe message format: legacy, framed")
	policy       = flag.String("policy", "", "violation policy: per-check, per-excursion")
	seed         = flag.Int64("seed", 0, "random seed (0 for a random one)")
	logLevel     = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir       = flag.String("logdir", "", "log file directory")
	standalone   = flag.Bool("standalone", false, "run the ledger, portal, and payment services in-process")
	verbose      = flag.Bool("verbose", false, "report every phase change")
)

func main() {
	flag.Parse()

	lg := log.New("aircontrolx", *logLevel, *logDir)
	defer lg.CatchAndReportCrash()

	config, err := loadConfig(*configFile, lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", *configFile, err)
		os.Exit(1)
	}
	if err := config.applyFlags(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *saveConfig {
		if err := config.Encode(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	codec, err := wire.CodecByName(config.Codec)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if !*standalone {
		if err := wire.EnsurePipes(config.PipeDir, wire.AllPipes...); err != nil {
			lg.Errorf("%v", err)
			fmt.Fprintf(os.Stderr, "Unable to create pipes: %v\n", err)
			os.Exit(1)
		}
	}

	sc, err := sim.LoadSchedule(config.Schedule, config.Sim.Horizon, lg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var toLedger wire.Sender
	var fromLedger wire.Source
	var collaborators *standaloneServices
	if *standalone {
		collaborators = startStandalone(ctx, config, lg)
		toLedger, fromLedger = collaborators.engineToLedger, collaborators.ledgerToEngine
	} else {
		toLedger = wire.NewPipeWriter(filepath.Join(config.PipeDir, wire.PipeEngineToLedger), codec, lg)
		fromLedger = wire.NewPipeReader(filepath.Join(config.PipeDir, wire.PipeLedgerToEngine), codec, lg)
	}

	outbox := wire.NewOutbox(toLedger, config.OutboxSize, lg)
	s := sim.NewSim(config.Sim, sc.Flights, outbox, lg)
	defer s.EventStream().Destroy()
	rep := newReporter(os.Stdout, s, *verbose)

	fmt.Printf("Simulating %d flights; press Ctrl-C to stop.\n", len(sc.Flights))

	// Everything but the simulation itself runs until the simulation is
	// done.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		defer cancel()
		if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error { return outbox.Run(runCtx) })
	g.Go(func() error { return rep.Run(runCtx) })
	g.Go(func() error {
		err := fromLedger.Listen(runCtx, func(v atc.Violation) { s.ApplyPayment(v) })
		if err != nil && !errors.Is(err, context.Canceled) {
			lg.Warn("payment listener stopped", slog.Any("error", err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		lg.Errorf("%v", err)
		fmt.Fprintln(os.Stderr, err)
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), wire.DefaultPollInterval*10)
	if err := outbox.Close(closeCtx); err != nil {
		lg.Warn("unable to send exit to ledger", slog.Any("error", err))
	}
	closeCancel()

	if collaborators != nil {
		collaborators.wait(lg)
	}

	printSummary(os.Stdout, s, outbox)
	if collaborators != nil {
		fmt.Println()
		collaborators.portal.Dashboard(os.Stdout)
	}
}

// standaloneServices runs the ledger, portal, and payment processor in
// this process, linked to the engine and each other by loopbacks.
type standaloneServices struct {
	engineToLedger, ledgerToEngine *wire.Loopback

	ledger  *ledger.Ledger
	portal  *portal.Portal
	payment *payment.Processor
	g       errgroup.Group
}

func startStandalone(ctx context.Context, config Config, lg *log.Logger) *standaloneServices {
	const size = 256
	ss := &standaloneServices{
		engineToLedger: wire.NewLoopback(size),
		ledgerToEngine: wire.NewLoopback(size),
	}
	toPortal, toPayment, paymentToLedger := wire.NewLoopback(size), wire.NewLoopback(size), wire.NewLoopback(size)

	ss.ledger = ledger.New(toPortal, toPayment, ss.ledgerToEngine, lg.With(slog.String("service", "ledger")))
	ss.portal = portal.New(lg.With(slog.String("service", "portal")))
	ss.payment = payment.New(paymentToLedger, lg.With(slog.String("service", "payment")))

	ss.g.Go(func() error { return ss.ledger.Run(ctx, ss.engineToLedger, paymentToLedger) })
	ss.g.Go(func() error { return ss.portal.Run(ctx, toPortal) })
	ss.g.Go(func() error { return ss.payment.Run(ctx, toPayment, config.Autopay.D()) })

	return ss
}

func (ss *standaloneServices) wait(lg *log.Logger) {
	if err := ss.g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		lg.Errorf("%v", err)
	}
}
