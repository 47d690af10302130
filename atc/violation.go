// atc/violation.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package atc

import (
	"fmt"
	"log/slog"
	"time"
)

const (
	// PaymentWindow is the time between issuing a violation and its due
	// date.
	PaymentWindow = 72 * time.Hour

	// FineSurchargePercent is added to every nonzero base fine.
	FineSurchargePercent = 15
)

var baseFines = map[Category]int64{
	Commercial: 500000,
	Cargo:      700000,
}

// Fine returns the amount charged for a speed violation by a flight of
// the given category, surcharge included.
func Fine(c Category) float64 {
	base := baseFines[c]
	if base == 0 {
		return 0
	}
	return float64(base*(100+FineSurchargePercent)) / 100
}

// Violation is a speed violation notice (AVN) issued against a flight.
type Violation struct {
	ID               string    `json:"id"`
	FlightID         string    `json:"flight"`
	Airline          string    `json:"airline"`
	Category         Category  `json:"category"`
	RecordedSpeed    int       `json:"recorded_speed"`
	PermissibleSpeed int       `json:"permissible_speed"`
	IssueTime        time.Time `json:"issue_time"`
	FineAmount       float64   `json:"fine"`
	DueDate          time.Time `json:"due_date"`
	Paid             bool      `json:"paid"`
}

// ViolationID returns the identifier for the n'th violation (1-based).
func ViolationID(n int) string {
	return fmt.Sprintf("AVN-%d", n)
}

// NewViolation returns an unpaid violation with the fine and due date
// filled in. The issue time is truncated to whole seconds, the precision
// carried on the wire.
func NewViolation(id, flight, airline string, cat Category, recorded, permissible int, issued time.Time) Violation {
	issued = time.Unix(issued.Unix(), 0)
	return Violation{
		ID:               id,
		FlightID:         flight,
		Airline:          airline,
		Category:         cat,
		RecordedSpeed:    recorded,
		PermissibleSpeed: permissible,
		IssueTime:        issued,
		FineAmount:       Fine(cat),
		DueDate:          issued.Add(PaymentWindow),
	}
}

func (v Violation) Overdue(now time.Time) bool {
	return !v.Paid && now.After(v.DueDate)
}

func (v Violation) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", v.ID),
		slog.String("flight", v.FlightID),
		slog.String("airline", v.Airline),
		slog.String("category", v.Category.String()),
		slog.Int("recorded_speed", v.RecordedSpeed),
		slog.Int("permissible_speed", v.PermissibleSpeed),
		slog.Time("issued", v.IssueTime),
		slog.Float64("fine", v.FineAmount),
		slog.Bool("paid", v.Paid))
}

func (v Violation) String() string {
	return fmt.Sprintf("%s %s (%s, %s) speed %d, permitted %d, fine %.2f due %s paid=%v",
		v.ID, v.FlightID, v.Airline, v.Category, v.RecordedSpeed, v.PermissibleSpeed,
		v.FineAmount, v.DueDate.Format(time.DateOnly), v.Paid)
}
