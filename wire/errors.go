// wire/errors.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wire

import "errors"

var (
	ErrFieldTooLong    = errors.New("Field too long for record")
	ErrFrameTooLarge   = errors.New("Frame exceeds maximum size")
	ErrInvalidField    = errors.New("Field contains a delimiter")
	ErrMalformedFrame  = errors.New("Malformed frame")
	ErrMalformedRecord = errors.New("Malformed violation record")
	ErrNoReader        = errors.New("No reader on pipe")
	ErrNotFIFO         = errors.New("Path exists and is not a FIFO")
	ErrUnknownCodec    = errors.New("Unknown codec")
)
