package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/yegors/airport-sim/pkg/logger"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	fail   bool
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Handle(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	if s.fail {
		return errors.New("sink down")
	}
	return nil
}

func TestBusFansOutInOrder(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{fail: true}
	bus := NewBus(logger.NewNop(), 16, a)
	bus.AddSink(b)
	bus.Start(context.Background())

	for i := 0; i < 10; i++ {
		bus.Publish(Event{Type: Spawned, AirplaneID: i})
	}
	bus.Close()

	for _, s := range []*recordingSink{a, b} {
		if len(s.events) != 10 {
			t.Fatalf("got %d events, expected 10", len(s.events))
		}
		for i, e := range s.events {
			if e.AirplaneID != i {
				t.Errorf("event %d: got airplane %d", i, e.AirplaneID)
			}
			if e.Time.IsZero() {
				t.Errorf("event %d: time not stamped", i)
			}
		}
	}
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := NewBus(logger.NewNop(), 2)
	// Not started: nothing drains the buffer
	for i := 0; i < 5; i++ {
		bus.Publish(Event{Type: Spawned})
	}
	if got := bus.Dropped(); got != 3 {
		t.Errorf("got %d dropped, expected 3", got)
	}
	bus.Close()
	bus.Publish(Event{Type: Spawned})
	bus.Close()
}

func TestNATSSubjects(t *testing.T) {
	s := &NATSSink{prefix: "tower"}
	if got := s.Subject(RunwayAssigned); got != "tower.runway_assigned" {
		t.Errorf("got %s, expected tower.runway_assigned", got)
	}
}

func TestConnectNATSUnreachable(t *testing.T) {
	// Nothing listens on the discard port
	if _, err := ConnectNATS("nats://127.0.0.1:9", "", logger.NewNop()); err == nil {
		t.Errorf("connected to an unreachable server")
	}
}
