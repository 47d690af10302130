// atc/atc.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package atc holds the vocabulary shared by the engine and the
// violation services: flight categories and directions, runways, flight
// phases with their speed envelopes, and violation records.
package atc

import (
	"fmt"
	"slices"
	"strings"
)

///////////////////////////////////////////////////////////////////////////
// Category

// Category is the kind of aircraft. The numeric values are used on the
// wire and must not change.
type Category int

const (
	Commercial Category = iota
	Cargo
	Military
	Medical
	NumCategories
)

func (c Category) String() string {
	if c < 0 || c >= NumCategories {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return [...]string{"Commercial", "Cargo", "Military", "Medical"}[c]
}

func ParseCategory(s string) (Category, error) {
	for c := Commercial; c < NumCategories; c++ {
		if strings.EqualFold(s, c.String()) {
			return c, nil
		}
	}
	return Commercial, fmt.Errorf("%q: %w", s, ErrUnknownCategory)
}

// Exempt reports whether flights of the category are exempt from speed
// envelope enforcement.
func (c Category) Exempt() bool {
	return c == Military || c == Medical
}

func (c Category) MarshalText() ([]byte, error) {
	if c < 0 || c >= NumCategories {
		return nil, ErrUnknownCategory
	}
	return []byte(strings.ToLower(c.String())), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	v, err := ParseCategory(string(b))
	if err == nil {
		*c = v
	}
	return err
}

///////////////////////////////////////////////////////////////////////////
// Direction

type Direction int

const (
	North Direction = iota
	South
	East
	West
	NumDirections
)

func (d Direction) String() string {
	if d < 0 || d >= NumDirections {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return [...]string{"North", "South", "East", "West"}[d]
}

func ParseDirection(s string) (Direction, error) {
	for d := North; d < NumDirections; d++ {
		if strings.EqualFold(s, d.String()) {
			return d, nil
		}
	}
	return North, fmt.Errorf("%q: %w", s, ErrUnknownDirection)
}

// IsArrival reports whether flights from this direction are arrivals;
// north and south traffic lands, east and west traffic departs.
func (d Direction) IsArrival() bool {
	return d == North || d == South
}

func (d Direction) MarshalText() ([]byte, error) {
	if d < 0 || d >= NumDirections {
		return nil, ErrUnknownDirection
	}
	return []byte(strings.ToLower(d.String())), nil
}

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err == nil {
		*d = v
	}
	return err
}

///////////////////////////////////////////////////////////////////////////
// Runways

type RunwayID int

const (
	NoRunway RunwayID = iota - 1
	RunwayA
	RunwayB
	RunwayC
	NumRunways = 3
)

func (r RunwayID) String() string {
	switch r {
	case RunwayA:
		return "A"
	case RunwayB:
		return "B"
	case RunwayC:
		return "C"
	default:
		return "-"
	}
}

func (r RunwayID) Valid() bool {
	return r >= RunwayA && r <= RunwayC
}

///////////////////////////////////////////////////////////////////////////
// Airlines

// KnownAirlines lists the carriers that operate at the airport. Flights
// from other airlines are accepted but flagged when the schedule is
// loaded.
var KnownAirlines = []string{
	"PIA",
	"AirBlue",
	"FedEx",
	"Pakistan Airforce",
	"Blue Dart",
	"Agha Khan Air Ambulance",
}

func IsKnownAirline(airline string) bool {
	return slices.ContainsFunc(KnownAirlines, func(a string) bool { return strings.EqualFold(a, airline) })
}
