// wire/framed.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	frameHeaderSize = 5
	// MaxFrameSize bounds the payload of a single frame.
	MaxFrameSize = 16 << 20
	// CompressThreshold is the payload size at which frames are zstd
	// compressed.
	CompressThreshold = 1024

	flagCompressed = 1 << 0
)

// FramedCodec encodes each message as a length-prefixed frame:
//
//	uint32 payload length (big endian) | uint8 flags | payload
//
// The payload is the msgpack-encoded Message, zstd compressed if the
// compressed flag is set.
type FramedCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func NewFramedCodec() (*FramedCodec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxFrameSize*4))
	if err != nil {
		return nil, err
	}
	return &FramedCodec{enc: enc, dec: dec}, nil
}

func (*FramedCodec) Name() string { return "framed" }

func (c *FramedCodec) Encode(m Message) ([]byte, error) {
	payload, err := msgpack.Marshal(m)
	if err != nil {
		return nil, err
	}

	var flags byte
	if len(payload) >= CompressThreshold {
		payload = c.enc.EncodeAll(payload, nil)
		flags |= flagCompressed
	}
	if len(payload) > MaxFrameSize {
		return nil, fmt.Errorf("%d bytes: %w", len(payload), ErrFrameTooLarge)
	}

	frame := make([]byte, frameHeaderSize, frameHeaderSize+len(payload))
	binary.BigEndian.PutUint32(frame, uint32(len(payload)))
	frame[4] = flags
	return append(frame, payload...), nil
}

func (c *FramedCodec) Next(buf []byte) (Message, int, error) {
	if len(buf) < frameHeaderSize {
		return Message{}, 0, nil
	}
	n := binary.BigEndian.Uint32(buf)
	if n > MaxFrameSize {
		return Message{}, 0, fmt.Errorf("%d bytes: %w", n, ErrFrameTooLarge)
	}
	size := frameHeaderSize + int(n)
	if len(buf) < size {
		return Message{}, 0, nil
	}

	flags, payload := buf[4], buf[frameHeaderSize:size]
	if flags&^flagCompressed != 0 {
		return Message{}, size, fmt.Errorf("flags %#x: %w", flags, ErrMalformedFrame)
	}
	if flags&flagCompressed != 0 {
		var err error
		if payload, err = c.dec.DecodeAll(payload, nil); err != nil {
			return Message{}, size, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
		}
	}

	var m Message
	if err := msgpack.Unmarshal(payload, &m); err != nil {
		return Message{}, size, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	return m, size, nil
}
