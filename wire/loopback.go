// wire/loopback.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wire

import (
	"context"
	"slices"

	"github.com/humaa-taj/aircontrolx/atc"
)

// Loopback connects a Sender to a Source within a single process.
type Loopback struct {
	ch chan Message
}

func NewLoopback(size int) *Loopback {
	return &Loopback{ch: make(chan Message, size)}
}

func (l *Loopback) Send(ctx context.Context, m Message) error {
	m.Violations = slices.Clone(m.Violations)
	select {
	case l.ch <- m:
		return nil
	default:
	}
	select {
	case l.ch <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loopback) Listen(ctx context.Context, handle func(atc.Violation)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m := <-l.ch:
			if m.Kind == KindExit {
				return nil
			}
			for _, v := range m.Violations {
				handle(v)
			}
		}
	}
}

var (
	_ Sender = (*Loopback)(nil)
	_ Source = (*Loopback)(nil)
)
