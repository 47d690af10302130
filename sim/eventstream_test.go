// sim/eventstream_test.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"strings"
	"testing"
	"time"

	"github.com/humaa-taj/aircontrolx/atc"
)

func TestEventStream(t *testing.T) {
	es := NewEventStream(nil)
	defer es.Destroy()

	// Nobody is listening, so this is dropped.
	es.Post(Event{Type: StatusMessageEvent, Message: "lost"})

	a := es.Subscribe()
	es.Post(Event{Type: FlightActivatedEvent, FlightID: "PK301", Runway: atc.NoRunway})
	b := es.Subscribe()
	es.Post(Event{Type: RunwayAssignedEvent, FlightID: "PK301", Runway: atc.RunwayA})

	if ev := a.Get(); len(ev) != 2 || ev[0].Type != FlightActivatedEvent || ev[1].Type != RunwayAssignedEvent {
		t.Errorf("subscriber a got %v", ev)
	}
	if ev := b.Get(); len(ev) != 1 || ev[0].Runway != atc.RunwayA {
		t.Errorf("subscriber b got %v", ev)
	}
	if ev := a.Get(); len(ev) != 0 {
		t.Errorf("second Get returned %v", ev)
	}

	b.Unsubscribe()
	es.Post(Event{Type: FlightCompletedEvent, FlightID: "PK301", Runway: atc.RunwayA, Phase: atc.Arrived})
	if ev := a.Get(); len(ev) != 1 || ev[0].Phase != atc.Arrived {
		t.Errorf("subscriber a got %v", ev)
	}
	if ev := b.Get(); ev != nil {
		t.Errorf("unsubscribed Get returned %v", ev)
	}

	es.mu.Lock()
	es.compact()
	n := len(es.events)
	es.mu.Unlock()
	if n != 0 {
		t.Errorf("%d events left after compaction", n)
	}

	es.Destroy() // safe to call twice
}

func TestEventString(t *testing.T) {
	v := atc.NewViolation(atc.ViolationID(3), "PK301", "PIA", atc.Commercial, 650, 600, time.Unix(1700000000, 0))
	for _, tc := range []struct {
		e    Event
		want string
	}{
		{Event{Type: RunwayAssignedEvent, FlightID: "PK301", Runway: atc.RunwayC}, "on runway C"},
		{Event{Type: PhaseChangedEvent, FlightID: "PK301", FromPhase: atc.Holding, Phase: atc.Approach}, "Holding -> Approach"},
		{Event{Type: ViolationIssuedEvent, Violation: &v}, "AVN-3"},
		{Event{Type: StatusMessageEvent, Message: "simulation started"}, "simulation started"},
	} {
		if s := tc.e.String(); !strings.Contains(s, tc.want) {
			t.Errorf("%q does not contain %q", s, tc.want)
		}
	}
}
