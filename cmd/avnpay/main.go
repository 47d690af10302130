// cmd/avnpay/main.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

// avnpay pays airlines' violations. Enter a flight ID to pay all of that
// flight's outstanding violations, a violation ID (AVN-n) to pay just
// that one, or "list" to see what is outstanding.

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/humaa-taj/aircontrolx/log"
	"github.com/humaa-taj/aircontrolx/payment"
	"github.com/humaa-taj/aircontrolx/wire"

	"golang.org/x/sync/errgroup"
)

var (
	pipeDir   = flag.String("pipedir", os.TempDir(), "directory for the named pipes")
	codecName = flag.String("codec", "legacy", "pipe message format: legacy, framed")
	autopay   = flag.Duration("autopay", 0, "pay each violation automatically after this delay (0 to disable)")
	logLevel  = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir    = flag.String("logdir", "", "log file directory")
)

func main() {
	flag.Parse()

	lg := log.New("avnpay", *logLevel, *logDir)
	defer lg.CatchAndReportCrash()

	codec, err := wire.CodecByName(*codecName)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := wire.EnsurePipes(*pipeDir, wire.PipeLedgerToPayment, wire.PipePaymentToLedger); err != nil {
		lg.Errorf("%v", err)
		fmt.Fprintf(os.Stderr, "Unable to create pipes: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := payment.New(wire.NewPipeWriter(filepath.Join(*pipeDir, wire.PipePaymentToLedger), codec, lg), lg)
	src := wire.NewPipeReader(filepath.Join(*pipeDir, wire.PipeLedgerToPayment), codec, lg)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Reads from stdin can't be canceled, so the scanner runs on its own
	// and hands lines over.
	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- strings.TrimSpace(scanner.Text())
		}
		close(lines)
	}()

	var g errgroup.Group
	g.Go(func() error {
		defer cancel()
		return p.Run(runCtx, src, *autopay)
	})
	g.Go(func() error {
		for {
			fmt.Print("pay> ")
			select {
			case <-runCtx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					return nil
				}
				handleCommand(runCtx, p, line)
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		lg.Errorf("%v", err)
		fmt.Fprintln(os.Stderr, err)
	}
	fmt.Printf("\n%d violations outstanding\n", len(p.Pending()))
}

func handleCommand(ctx context.Context, p *payment.Processor, line string) {
	switch {
	case line == "":
		return

	case strings.EqualFold(line, "list"):
		pending := p.Pending()
		if len(pending) == 0 {
			fmt.Println("No outstanding violations.")
		}
		for _, v := range pending {
			fmt.Printf("  %s\n", v)
		}

	case strings.HasPrefix(line, "AVN-"):
		v, err := p.PayViolation(ctx, line)
		if err != nil {
			reportPaymentError(err)
			return
		}
		fmt.Printf("Paid %s: PKR %.2f\n", v.ID, v.FineAmount)

	default:
		vs, err := p.Pay(ctx, line)
		if err != nil {
			reportPaymentError(err)
			return
		}
		total := 0.
		for _, v := range vs {
			total += v.FineAmount
		}
		fmt.Printf("Paid %d violations of %s: PKR %.2f\n", len(vs), line, total)
	}
}

func reportPaymentError(err error) {
	if errors.Is(err, wire.ErrNoReader) {
		fmt.Println("The ledger isn't running; no payment was made. Try again once it is.")
	} else {
		fmt.Println(err)
	}
}
