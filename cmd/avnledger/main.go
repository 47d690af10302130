// cmd/avnledger/main.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

// avnledger keeps the record of issued violations, passing them on to
// the airline portal and payment service and relaying payments back to
// the engine.

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/humaa-taj/aircontrolx/ledger"
	"github.com/humaa-taj/aircontrolx/log"
	"github.com/humaa-taj/aircontrolx/wire"
)

var (
	pipeDir   = flag.String("pipedir", os.TempDir(), "directory for the named pipes")
	codecName = flag.String("codec", "legacy", "pipe message format: legacy, framed")
	logLevel  = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir    = flag.String("logdir", "", "log file directory")
)

func main() {
	flag.Parse()

	lg := log.New("avnledger", *logLevel, *logDir)
	defer lg.CatchAndReportCrash()

	codec, err := wire.CodecByName(*codecName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := wire.EnsurePipes(*pipeDir, wire.AllPipes...); err != nil {
		lg.Errorf("%v", err)
		fmt.Fprintf(os.Stderr, "Unable to create pipes: %v\n", err)
		os.Exit(1)
	}

	pipe := func(name string) string { return filepath.Join(*pipeDir, name) }
	l := ledger.New(
		wire.NewPipeWriter(pipe(wire.PipeLedgerToPortal), codec, lg),
		wire.NewPipeWriter(pipe(wire.PipeLedgerToPayment), codec, lg),
		wire.NewPipeWriter(pipe(wire.PipeLedgerToEngine), codec, lg),
		lg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Ledger listening on %s\n", *pipeDir)
	err = l.Run(ctx,
		wire.NewPipeReader(pipe(wire.PipeEngineToLedger), codec, lg),
		wire.NewPipeReader(pipe(wire.PipePaymentToLedger), codec, lg))
	if err != nil && !errors.Is(err, context.Canceled) {
		lg.Errorf("%v", err)
		fmt.Fprintln(os.Stderr, err)
	}

	records, outstanding := l.Records(), l.Outstanding()
	fmt.Printf("Ledger holds %d violations, %d outstanding\n", len(records), len(outstanding))
	for _, v := range outstanding {
		fmt.Printf("  %s\n", v)
	}
}
