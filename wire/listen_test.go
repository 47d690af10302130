// wire/listen_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wire

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/humaa-taj/aircontrolx/atc"
)

// fifoBuffer behaves like a FIFO with no writer attached: reads return
// EOF until data has been written.
type fifoBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (f *fifoBuffer) Write(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buf = append(f.buf, b...)
	return len(b), nil
}

func (f *fifoBuffer) Read(b []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.buf) == 0 {
		return 0, io.EOF
	}
	n := copy(b, f.buf)
	f.buf = f.buf[n:]
	return n, nil
}

type collector struct {
	mu sync.Mutex
	vs []atc.Violation
}

func (c *collector) handle(v atc.Violation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vs = append(c.vs, v)
}

func (c *collector) get() []atc.Violation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]atc.Violation(nil), c.vs...)
}

func TestListenStopsOnExit(t *testing.T) {
	framed, err := NewFramedCodec()
	if err != nil {
		t.Fatal(err)
	}

	for _, codec := range []Codec{LegacyCodec{}, framed} {
		var fifo fifoBuffer
		var col collector
		errs := make(chan error, 1)
		go func() {
			errs <- Listen(context.Background(), &fifo, codec, 20*time.Millisecond, nil, col.handle)
		}()

		vs := makeTestViolations(3)
		b, _ := codec.Encode(ViolationMessage(vs...))
		fifo.Write(b)

		// Let the reader go idle before sending the exit.
		time.Sleep(50 * time.Millisecond)
		b, _ = codec.Encode(ExitMessage())
		start := time.Now()
		fifo.Write(b)

		select {
		case err := <-errs:
			if err != nil {
				t.Errorf("%s: Listen returned %v", codec.Name(), err)
			}
			if d := time.Since(start); d > 100*time.Millisecond {
				t.Errorf("%s: exit took %s", codec.Name(), d)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("%s: Listen did not stop on exit", codec.Name())
		}

		if got := col.get(); len(got) != 3 || !sameViolation(got[2], vs[2]) {
			t.Errorf("%s: received %v", codec.Name(), got)
		}
	}
}

func TestListenCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		errs <- Listen(ctx, &fifoBuffer{}, LegacyCodec{}, DefaultPollInterval, nil, func(atc.Violation) {})
	}()

	time.Sleep(10 * time.Millisecond)
	start := time.Now()
	cancel()
	select {
	case err := <-errs:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if d := time.Since(start); d > DefaultPollInterval+50*time.Millisecond {
			t.Errorf("cancellation took %s", d)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Listen did not return after cancel")
	}
}

func TestListenMalformedRecord(t *testing.T) {
	var fifo fifoBuffer
	fifo.Write([]byte("AVN-1|PK301|PIA|zero\nAVN-2|PK302|PIA|0|650|600|1700000000|575000.00|0\nEXIT"))

	var col collector
	if err := Listen(context.Background(), &fifo, LegacyCodec{}, time.Millisecond, nil, col.handle); err != nil {
		t.Fatal(err)
	}
	got := col.get()
	if len(got) != 2 || got[0].ID != "AVN-1" || got[1].ID != "AVN-2" || got[1].FineAmount != 575000 {
		t.Errorf("received %v", got)
	}
}

func TestListenFramingError(t *testing.T) {
	c, err := NewFramedCodec()
	if err != nil {
		t.Fatal(err)
	}
	var fifo fifoBuffer
	fifo.Write([]byte{0xff, 0xff, 0xff, 0xff, 0, 1, 2, 3})

	var col collector
	errs := make(chan error, 1)
	go func() { errs <- Listen(context.Background(), &fifo, c, time.Millisecond, nil, col.handle) }()

	// Give the reader time to hit the bad header, then send good data.
	time.Sleep(50 * time.Millisecond)
	vs := makeTestViolations(2)
	b, _ := c.Encode(ViolationMessage(vs...))
	fifo.Write(b)
	b, _ = c.Encode(ExitMessage())
	fifo.Write(b)

	select {
	case err := <-errs:
		if err != nil {
			t.Errorf("Listen returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Listen did not recover from a bad frame header")
	}
	if got := col.get(); len(got) != 2 || !sameViolation(got[1], vs[1]) {
		t.Errorf("received %v", got)
	}
}
