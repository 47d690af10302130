// wire/legacy.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wire

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/humaa-taj/aircontrolx/atc"
)

// Field size limits of the legacy receivers, which read into fixed-size
// buffers (including the terminating NUL).
const (
	MaxIDLength      = 19
	MaxFlightLength  = 29
	MaxAirlineLength = 29
)

const legacyFields = 9

var exitSentinel = []byte("EXIT")

// LegacyCodec is the line-oriented text format the older services speak:
//
//	id|flight|airline|category|recorded|permissible|issued|fine|paid\n
//
// The issue time is in Unix seconds, the fine has two decimal places, and
// paid is 0 or 1. Shutdown is the bare 4 bytes "EXIT".
type LegacyCodec struct{}

func (LegacyCodec) Name() string { return "legacy" }

func (LegacyCodec) Encode(m Message) ([]byte, error) {
	if m.Kind == KindExit {
		return bytes.Clone(exitSentinel), nil
	}

	var buf bytes.Buffer
	for _, v := range m.Violations {
		if err := checkLegacyField("id", v.ID, MaxIDLength); err != nil {
			return nil, err
		}
		if err := checkLegacyField("flight", v.FlightID, MaxFlightLength); err != nil {
			return nil, err
		}
		if err := checkLegacyField("airline", v.Airline, MaxAirlineLength); err != nil {
			return nil, err
		}

		fmt.Fprintf(&buf, "%s|%s|%s|%d|%d|%d|%d|%.2f|%d\n", v.ID, v.FlightID, v.Airline, int(v.Category),
			v.RecordedSpeed, v.PermissibleSpeed, v.IssueTime.Unix(), v.FineAmount, boolInt(v.Paid))
	}
	return buf.Bytes(), nil
}

func checkLegacyField(name, s string, limit int) error {
	if strings.ContainsAny(s, "|\n") {
		return fmt.Errorf("%s %q: %w", name, s, ErrInvalidField)
	}
	if len(s) > limit {
		return fmt.Errorf("%s %q: %d bytes, limit %d: %w", name, s, len(s), limit, ErrFieldTooLong)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Next decodes a single record or the exit sentinel. Records are decoded
// leniently, as the older services do: missing or unparseable
// numbers become zero and long strings are truncated. Such records are
// still returned, along with an error wrapping ErrMalformedRecord.
func (LegacyCodec) Next(buf []byte) (Message, int, error) {
	if bytes.HasPrefix(buf, exitSentinel) {
		n := len(exitSentinel)
		if len(buf) > n && buf[n] == '\n' {
			n++
		}
		return ExitMessage(), n, nil
	}
	if len(buf) < len(exitSentinel) && bytes.HasPrefix(exitSentinel, buf) {
		return Message{}, 0, nil
	}

	idx := bytes.IndexByte(buf, '\n')
	if idx == -1 {
		return Message{}, 0, nil
	}

	v, err := ParseLegacyRecord(string(buf[:idx]))
	return ViolationMessage(v), idx + 1, err
}

// ParseLegacyRecord parses a single record line without its newline.
func ParseLegacyRecord(line string) (atc.Violation, error) {
	line = strings.TrimSuffix(line, "\r")
	f := strings.Split(line, "|")

	var errs []error
	field := func(i int) string {
		if i < len(f) {
			return f[i]
		}
		return ""
	}
	str := func(i int, name string, limit int) string {
		s := field(i)
		if len(s) > limit {
			errs = append(errs, fmt.Errorf("%s truncated to %d bytes", name, limit))
			s = s[:limit]
		}
		return s
	}
	num := func(i int, name string) int64 {
		n, err := strconv.ParseInt(field(i), 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %q", name, field(i)))
			return 0
		}
		return n
	}

	if len(f) != legacyFields {
		errs = append(errs, fmt.Errorf("%d fields, expected %d", len(f), legacyFields))
	}

	v := atc.Violation{
		ID:               str(0, "id", MaxIDLength),
		FlightID:         str(1, "flight", MaxFlightLength),
		Airline:          str(2, "airline", MaxAirlineLength),
		RecordedSpeed:    int(num(4, "recorded speed")),
		PermissibleSpeed: int(num(5, "permissible speed")),
		IssueTime:        time.Unix(num(6, "issue time"), 0),
		Paid:             field(8) == "1",
	}
	v.DueDate = v.IssueTime.Add(atc.PaymentWindow)

	if c := num(3, "category"); c >= 0 && c < int64(atc.NumCategories) {
		v.Category = atc.Category(c)
	} else {
		errs = append(errs, fmt.Errorf("category %d", c))
	}

	if fine, err := strconv.ParseFloat(field(7), 64); err == nil {
		v.FineAmount = fine
	} else {
		errs = append(errs, fmt.Errorf("fine %q", field(7)))
	}
	if p := field(8); p != "0" && p != "1" {
		errs = append(errs, fmt.Errorf("paid flag %q", p))
	}

	if len(errs) > 0 {
		return v, fmt.Errorf("%q: %w: %w", line, ErrMalformedRecord, errors.Join(errs...))
	}
	return v, nil
}
