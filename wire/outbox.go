// wire/outbox.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wire

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/humaa-taj/aircontrolx/atc"
	"github.com/humaa-taj/aircontrolx/log"
)

// Outbox queues violations for delivery so that the flights issuing them
// never wait on a collaborator. Offer never blocks; Run drains the queue
// and sends what has accumulated as a single message.
type Outbox struct {
	ch       chan atc.Violation
	sender   Sender
	maxBatch int

	sent    atomic.Int64
	dropped atomic.Int64
	lg      *log.Logger
}

func NewOutbox(sender Sender, size int, lg *log.Logger) *Outbox {
	return &Outbox{
		ch:       make(chan atc.Violation, max(size, 1)),
		sender:   sender,
		maxBatch: 64,
		lg:       lg,
	}
}

// Offer queues v for delivery, returning false if the queue is full.
func (o *Outbox) Offer(v atc.Violation) bool {
	select {
	case o.ch <- v:
		return true
	default:
		o.dropped.Add(1)
		return false
	}
}

// Run sends queued violations until ctx is canceled. Anything still
// queued at that point is flushed before Run returns.
func (o *Outbox) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
		case v := <-o.ch:
			o.send(ctx, o.batch(v))
		}
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	o.flush(flushCtx)
	return nil
}

func (o *Outbox) batch(first atc.Violation) []atc.Violation {
	b := []atc.Violation{first}
	for len(b) < o.maxBatch {
		select {
		case v := <-o.ch:
			b = append(b, v)
		default:
			return b
		}
	}
	return b
}

func (o *Outbox) flush(ctx context.Context) {
	for {
		select {
		case v := <-o.ch:
			o.send(ctx, o.batch(v))
		default:
			return
		}
	}
}

func (o *Outbox) send(ctx context.Context, vs []atc.Violation) {
	err := o.sender.Send(ctx, ViolationMessage(vs...))
	if len(vs) > 1 && isRecordError(err) {
		// A record the codec can't carry costs only that record; send the
		// rest of the batch one at a time.
		for _, v := range vs {
			o.send(ctx, []atc.Violation{v})
		}
		return
	}

	switch {
	case err == nil:
		o.sent.Add(int64(len(vs)))
	case errors.Is(err, ErrNoReader):
		o.dropped.Add(int64(len(vs)))
		o.lg.Debug("no reader, violations dropped", slog.Int("count", len(vs)))
	default:
		o.dropped.Add(int64(len(vs)))
		o.lg.Warn("unable to send violations", slog.Any("error", err), slog.Int("count", len(vs)))
	}
}

// isRecordError reports whether err is due to the contents of one of the
// records in a message rather than to the transport.
func isRecordError(err error) bool {
	return errors.Is(err, ErrFieldTooLong) || errors.Is(err, ErrInvalidField)
}

// Close tells the receiver to shut down.
func (o *Outbox) Close(ctx context.Context) error {
	err := o.sender.Send(ctx, ExitMessage())
	if err != nil && !errors.Is(err, ErrNoReader) {
		return err
	}
	return nil
}

// Counts returns the number of violations delivered and dropped so far.
func (o *Outbox) Counts() (sent, dropped int) {
	return int(o.sent.Load()), int(o.dropped.Load())
}
