// sim/errors.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"errors"
)

var (
	ErrDuplicateFlight        = errors.New("Duplicate flight ID")
	ErrEmptySchedule          = errors.New("Schedule has no flights")
	ErrInvalidAirline         = errors.New("Invalid airline name")
	ErrInvalidFlightID        = errors.New("Invalid flight ID")
	ErrInvalidMinute          = errors.New("Scheduled minute must not be negative")
	ErrInvalidPriority        = errors.New("Priority must be between 0 and 999")
	ErrNoPhaseProfile         = errors.New("No speed profile for phase")
	ErrSimAlreadyRunning      = errors.New("Simulation already running")
	ErrUnknownViolation       = errors.New("Unknown violation ID")
	ErrUnknownViolationPolicy = errors.New("Unknown violation policy")
)
