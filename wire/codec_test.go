// wire/codec_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package wire

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/humaa-taj/aircontrolx/atc"
)

func makeTestViolations(n int) []atc.Violation {
	issued := time.Unix(1700000000, 0)
	var vs []atc.Violation
	for i := range n {
		cat := []atc.Category{atc.Commercial, atc.Cargo}[i%2]
		v := atc.NewViolation(atc.ViolationID(i+1), fmt.Sprintf("PK%d", 300+i), "PIA", cat, 650+i, 600,
			issued.Add(time.Duration(i)*time.Second))
		v.Paid = i%3 == 0
		vs = append(vs, v)
	}
	return vs
}

func sameViolation(a, b atc.Violation) bool {
	return a.ID == b.ID && a.FlightID == b.FlightID && a.Airline == b.Airline && a.Category == b.Category &&
		a.RecordedSpeed == b.RecordedSpeed && a.PermissibleSpeed == b.PermissibleSpeed &&
		a.IssueTime.Equal(b.IssueTime) && a.FineAmount == b.FineAmount && a.DueDate.Equal(b.DueDate) &&
		a.Paid == b.Paid
}

// decodeAll runs Next over b until it is consumed.
func decodeAll(t *testing.T, c Codec, b []byte) []Message {
	t.Helper()
	var msgs []Message
	for len(b) > 0 {
		m, n, err := c.Next(b)
		if err != nil {
			t.Fatalf("%s: %v", c.Name(), err)
		}
		if n == 0 {
			t.Fatalf("%s: %d bytes left undecoded", c.Name(), len(b))
		}
		msgs = append(msgs, m)
		b = b[n:]
	}
	return msgs
}

func TestLegacyRoundTrip(t *testing.T) {
	vs := makeTestViolations(5)
	c := LegacyCodec{}

	b, err := c.Encode(ViolationMessage(vs...))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(b), "AVN-1|PK300|PIA|0|650|600|1700000000|575000.00|1\n") {
		t.Errorf("unexpected encoding %q", b)
	}

	msgs := decodeAll(t, c, b)
	if len(msgs) != len(vs) {
		t.Fatalf("decoded %d messages, expected %d", len(msgs), len(vs))
	}
	for i, m := range msgs {
		if m.Kind != KindViolation || len(m.Violations) != 1 || !sameViolation(m.Violations[0], vs[i]) {
			t.Errorf("got %+v, expected %s", m, vs[i])
		}
	}
}

func TestLegacyExit(t *testing.T) {
	c := LegacyCodec{}
	b, err := c.Encode(ExitMessage())
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "EXIT" {
		t.Errorf("exit encoded as %q", b)
	}

	for _, tc := range []struct {
		in   string
		n    int
		kind Kind
	}{
		{"EXIT", 4, KindExit},
		{"EXIT\n", 5, KindExit},
		{"EXITAVN-1|", 4, KindExit},
		{"EX", 0, KindViolation},
		{"AVN-1|PK1|PIA|0|1|2|3|4.00|0", 0, KindViolation},
	} {
		m, n, err := c.Next([]byte(tc.in))
		if err != nil || n != tc.n || m.Kind != tc.kind {
			t.Errorf("%q: got %s, %d, %v", tc.in, m.Kind, n, err)
		}
	}
}

func TestLegacyEncodeRejects(t *testing.T) {
	for _, tc := range []struct {
		modify func(*atc.Violation)
		err    error
	}{
		{func(v *atc.Violation) { v.Airline = "Air|Blue" }, ErrInvalidField},
		{func(v *atc.Violation) { v.FlightID = "PK\n301" }, ErrInvalidField},
		{func(v *atc.Violation) { v.ID = strings.Repeat("X", MaxIDLength+1) }, ErrFieldTooLong},
		{func(v *atc.Violation) { v.FlightID = strings.Repeat("X", MaxFlightLength+1) }, ErrFieldTooLong},
		{func(v *atc.Violation) { v.Airline = strings.Repeat("X", MaxAirlineLength+1) }, ErrFieldTooLong},
	} {
		v := makeTestViolations(1)[0]
		tc.modify(&v)
		if _, err := (LegacyCodec{}).Encode(ViolationMessage(v)); !errors.Is(err, tc.err) {
			t.Errorf("%s: expected %v, got %v", v, tc.err, err)
		}
	}

	v := makeTestViolations(1)[0]
	v.Airline = strings.Repeat("X", MaxAirlineLength)
	if _, err := (LegacyCodec{}).Encode(ViolationMessage(v)); err != nil {
		t.Errorf("airline at the limit rejected: %v", err)
	}
}

func TestLegacyLenientDecode(t *testing.T) {
	long := strings.Repeat("F", 40)
	m, n, err := LegacyCodec{}.Next([]byte("AVN-7|" + long + "|PIA|1|abc|600\nAVN-8"))
	if !errors.Is(err, ErrMalformedRecord) {
		t.Errorf("expected ErrMalformedRecord, got %v", err)
	}
	if n != len("AVN-7|"+long+"|PIA|1|abc|600\n") {
		t.Errorf("consumed %d bytes", n)
	}
	if len(m.Violations) != 1 {
		t.Fatalf("no record returned with the error")
	}

	v := m.Violations[0]
	if v.ID != "AVN-7" || v.FlightID != long[:MaxFlightLength] || v.Airline != "PIA" || v.Category != atc.Cargo {
		t.Errorf("unexpected record %+v", v)
	}
	if v.RecordedSpeed != 0 || v.PermissibleSpeed != 600 || v.FineAmount != 0 || v.Paid {
		t.Errorf("missing fields not zeroed: %+v", v)
	}
}

func TestFramedRoundTrip(t *testing.T) {
	c, err := NewFramedCodec()
	if err != nil {
		t.Fatal(err)
	}

	small := ViolationMessage(makeTestViolations(1)...)
	large := ViolationMessage(makeTestViolations(200)...)

	var stream []byte
	for _, m := range []Message{small, large, ExitMessage()} {
		b, err := c.Encode(m)
		if err != nil {
			t.Fatal(err)
		}
		stream = append(stream, b...)
	}

	sb, _ := c.Encode(small)
	if sb[4]&flagCompressed != 0 {
		t.Errorf("small frame was compressed")
	}
	lb, _ := c.Encode(large)
	if lb[4]&flagCompressed == 0 {
		t.Errorf("large frame was not compressed")
	}

	// Partial frames wait for more data.
	for _, k := range []int{0, 3, 5, len(sb) - 1} {
		if _, n, err := c.Next(sb[:k]); n != 0 || err != nil {
			t.Errorf("partial frame of %d bytes: consumed %d, %v", k, n, err)
		}
	}

	msgs := decodeAll(t, c, stream)
	if len(msgs) != 3 {
		t.Fatalf("decoded %d messages", len(msgs))
	}
	for i, want := range []Message{small, large} {
		got := msgs[i]
		if got.Kind != KindViolation || len(got.Violations) != len(want.Violations) {
			t.Fatalf("message %d: got %s with %d records", i, got.Kind, len(got.Violations))
		}
		for j := range got.Violations {
			if !sameViolation(got.Violations[j], want.Violations[j]) {
				t.Errorf("got %s, expected %s", got.Violations[j], want.Violations[j])
			}
		}
	}
	if msgs[2].Kind != KindExit {
		t.Errorf("last message is %s", msgs[2].Kind)
	}
}

func TestFramedMalformed(t *testing.T) {
	c, err := NewFramedCodec()
	if err != nil {
		t.Fatal(err)
	}

	b, _ := c.Encode(ExitMessage())
	bad := bytes.Clone(b)
	bad[4] = 0x80
	if _, n, err := c.Next(bad); !errors.Is(err, ErrMalformedFrame) || n != len(bad) {
		t.Errorf("bad flags: consumed %d, %v", n, err)
	}

	garbage := []byte{0, 0, 0, 3, 0, 0xc1, 0xc1, 0xc1}
	if _, n, err := c.Next(garbage); !errors.Is(err, ErrMalformedFrame) || n != len(garbage) {
		t.Errorf("bad payload: consumed %d, %v", n, err)
	}

	huge := []byte{0xff, 0xff, 0xff, 0xff, 0}
	if _, _, err := c.Next(huge); !errors.Is(err, ErrFrameTooLarge) {
		t.Errorf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestCodecByName(t *testing.T) {
	for name, want := range map[string]string{"": "legacy", "legacy": "legacy", "Framed": "framed"} {
		c, err := CodecByName(name)
		if err != nil || c.Name() != want {
			t.Errorf("%q: got %v, %v", name, c, err)
		}
	}
	if _, err := CodecByName("gob"); !errors.Is(err, ErrUnknownCodec) {
		t.Errorf("expected ErrUnknownCodec, got %v", err)
	}
}
