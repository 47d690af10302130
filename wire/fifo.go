// wire/fifo.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

//go:build unix

package wire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/humaa-taj/aircontrolx/atc"
	"github.com/humaa-taj/aircontrolx/log"

	"golang.org/x/sys/unix"
)

// EnsurePipes creates the named FIFOs in dir. FIFOs that already exist
// are fine; any other file at one of the paths is an error.
func EnsurePipes(dir string, names ...string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, name := range names {
		path := filepath.Join(dir, name)
		err := unix.Mkfifo(path, 0o666)
		if err == nil {
			continue
		}
		if !errors.Is(err, unix.EEXIST) {
			return fmt.Errorf("%s: %w", path, err)
		}
		if fi, err := os.Stat(path); err != nil {
			return err
		} else if fi.Mode()&os.ModeNamedPipe == 0 {
			return fmt.Errorf("%s: %w", path, ErrNotFIFO)
		}
	}
	return nil
}

///////////////////////////////////////////////////////////////////////////
// PipeWriter

// PipeWriter sends messages to a FIFO. Each message is written with its
// own open/write/close; if no one has the FIFO open for reading, the
// message is dropped and ErrNoReader returned.
type PipeWriter struct {
	Path    string
	Codec   Codec
	Timeout time.Duration

	mu sync.Mutex
	lg *log.Logger
}

func NewPipeWriter(path string, codec Codec, lg *log.Logger) *PipeWriter {
	return &PipeWriter{
		Path:    path,
		Codec:   codec,
		Timeout: time.Second,
		lg:      lg.With(slog.String("pipe", filepath.Base(path))),
	}
}

func (w *PipeWriter) Send(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b, err := w.Codec.Encode(m)
	if err != nil {
		return err
	}

	// Serialize messages so that frames larger than PIPE_BUF aren't
	// interleaved.
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := os.OpenFile(w.Path, os.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		if errors.Is(err, unix.ENXIO) {
			return ErrNoReader
		}
		return err
	}
	defer f.Close()

	deadline := time.Now().Add(w.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := f.SetWriteDeadline(deadline); err != nil {
		w.lg.Debug("unable to set write deadline", slog.Any("error", err))
	}

	if _, err := f.Write(b); err != nil {
		if errors.Is(err, unix.EPIPE) {
			return ErrNoReader
		}
		return err
	}
	w.lg.Debug("sent", slog.Any("message", m))
	return nil
}

///////////////////////////////////////////////////////////////////////////
// PipeReader

// PipeReader receives messages from a FIFO. The FIFO is opened without
// blocking, so a reader can start, and be shut down, before any writer
// shows up.
type PipeReader struct {
	Path  string
	Codec Codec
	Poll  time.Duration
	lg    *log.Logger
}

func NewPipeReader(path string, codec Codec, lg *log.Logger) *PipeReader {
	return &PipeReader{
		Path:  path,
		Codec: codec,
		Poll:  DefaultPollInterval,
		lg:    lg.With(slog.String("pipe", filepath.Base(path))),
	}
}

func (r *PipeReader) Listen(ctx context.Context, handle func(atc.Violation)) error {
	f, err := os.OpenFile(r.Path, os.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	r.lg.Info("listening", slog.String("codec", r.Codec.Name()))
	return Listen(ctx, &deadlineReader{f: f, timeout: r.Poll}, r.Codec, r.Poll, r.lg, handle)
}

// deadlineReader bounds each read so that Listen regularly gets a
// chance to check for cancellation.
type deadlineReader struct {
	f       *os.File
	timeout time.Duration
}

func (d *deadlineReader) Read(b []byte) (int, error) {
	if err := d.f.SetReadDeadline(time.Now().Add(d.timeout)); err != nil && !errors.Is(err, os.ErrNoDeadline) {
		return 0, err
	}
	return d.f.Read(b)
}

var (
	_ io.Reader = (*deadlineReader)(nil)
	_ Sender    = (*PipeWriter)(nil)
	_ Source    = (*PipeReader)(nil)
)
