// wire/listen.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wire

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/humaa-taj/aircontrolx/atc"
	"github.com/humaa-taj/aircontrolx/log"
)

// DefaultPollInterval is how long readers wait for data before checking
// for cancellation, and how long they sleep when the writer side is
// closed.
const DefaultPollInterval = 100 * time.Millisecond

// Listen decodes messages from r, calling handle for each violation
// record. It returns nil once an exit message is read and ctx.Err() if
// ctx is canceled first. Read timeouts (os.ErrDeadlineExceeded) and EOF
// are not errors: on EOF, Listen waits for the poll interval and tries
// again, so that a FIFO whose writers come and go can be read
// continuously. Records that decode with errors are still handed to
// handle and the problem is logged; data that can't be decoded at all is
// logged and discarded.
func Listen(ctx context.Context, r io.Reader, codec Codec, poll time.Duration, lg *log.Logger,
	handle func(atc.Violation)) error {
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	var pending []byte
	chunk := make([]byte, 4096)
	for {
		// Drain whatever complete messages we have.
		for len(pending) > 0 {
			m, n, err := codec.Next(pending)
			if n == 0 && err == nil {
				break
			}
			if err != nil {
				if n == 0 {
					// There's no telling where the next message starts;
					// drop what we have and resync on the next read.
					lg.Warn("unreadable data discarded", slog.Any("error", err), slog.String("codec", codec.Name()),
						slog.Int("bytes", len(pending)))
					pending = nil
					break
				}
				lg.Warn("malformed message", slog.Any("error", err), slog.String("codec", codec.Name()))
			}
			pending = pending[n:]

			if m.Kind == KindExit {
				lg.Info("received exit")
				return nil
			}
			for _, v := range m.Violations {
				handle(v)
			}
		}
		if len(pending) == 0 {
			pending = nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(chunk)
		pending = append(pending, chunk[:n]...)
		switch {
		case err == nil, errors.Is(err, os.ErrDeadlineExceeded):
		case errors.Is(err, io.EOF):
			if n == 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(poll):
				}
			}
		default:
			return err
		}
	}
}
