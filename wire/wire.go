// wire/wire.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package wire carries violation records between the engine and the
// ledger, portal, and payment services. Messages are encoded by a Codec
// and moved over named pipes or, within a single process, a Loopback.
package wire

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/humaa-taj/aircontrolx/atc"
)

// Named pipes used between the engine and its collaborators.
const (
	PipeEngineToLedger  = "atc_to_avn"
	PipeLedgerToPortal  = "avn_to_portal"
	PipeLedgerToPayment = "avn_to_stripe"
	PipePaymentToLedger = "stripe_to_avn"
	PipeLedgerToEngine  = "avn_to_atc"
)

var AllPipes = []string{PipeEngineToLedger, PipeLedgerToPortal, PipeLedgerToPayment, PipePaymentToLedger,
	PipeLedgerToEngine}

type Kind uint8

const (
	// KindViolation messages carry one or more violation records, either
	// newly issued or with an updated paid flag.
	KindViolation Kind = iota
	// KindExit tells the receiver to shut down.
	KindExit
)

func (k Kind) String() string {
	switch k {
	case KindViolation:
		return "violation"
	case KindExit:
		return "exit"
	default:
		return fmt.Sprintf("kind(%d)", k)
	}
}

type Message struct {
	Kind       Kind            `msgpack:"kind"`
	Violations []atc.Violation `msgpack:"violations,omitempty"`
}

func ViolationMessage(v ...atc.Violation) Message {
	return Message{Kind: KindViolation, Violations: v}
}

func ExitMessage() Message {
	return Message{Kind: KindExit}
}

func (m Message) LogValue() slog.Value {
	var ids []string
	for _, v := range m.Violations {
		ids = append(ids, v.ID)
	}
	return slog.GroupValue(
		slog.String("kind", m.Kind.String()),
		slog.String("violations", strings.Join(ids, ",")))
}

// Codec converts messages to and from bytes.
type Codec interface {
	Name() string
	Encode(m Message) ([]byte, error)
	// Next decodes the first message in buf, returning the number of
	// bytes it used. If buf doesn't yet hold a complete message, Next
	// returns 0 and a nil error. A message may be returned along with an
	// error if it could only be partially decoded.
	Next(buf []byte) (Message, int, error)
}

// CodecByName returns the codec with the given name: "legacy" or
// "framed".
func CodecByName(name string) (Codec, error) {
	switch strings.ToLower(name) {
	case "", "legacy":
		return LegacyCodec{}, nil
	case "framed":
		return NewFramedCodec()
	default:
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownCodec)
	}
}

// Sender delivers messages to a collaborator.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// Source receives violation records from a collaborator. Listen calls
// handle for each record until an exit message arrives, in which case it
// returns nil, or ctx is canceled.
type Source interface {
	Listen(ctx context.Context, handle func(atc.Violation)) error
}
