// atc/errors.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package atc

import "errors"

var (
	ErrUnknownCategory  = errors.New("Unknown aircraft category")
	ErrUnknownDirection = errors.New("Unknown direction")
)
