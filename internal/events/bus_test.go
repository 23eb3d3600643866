package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan ControlChangedEvent, 1)

	unsub := bus.Subscribe(func(e ControlChangedEvent) {
		received <- e
	})
	defer unsub()

	ev := ControlChangedEvent{
		Control:   "exposure",
		Value:     0x3fe,
		Applied:   true,
		Timestamp: "2026-01-27T10:30:00Z",
	}
	bus.Publish(ev)

	got := <-received
	if got != ev {
		t.Errorf("received %+v, want %+v", got, ev)
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan PowerStateChangedEvent, 1)

	unsub := bus.Subscribe(func(e PowerStateChangedEvent) {
		received <- e
	})

	bus.Publish(PowerStateChangedEvent{Powered: true})
	<-received

	unsub()

	bus.Publish(PowerStateChangedEvent{Powered: false})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	formatReceived := make(chan bool, 1)
	streamReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ FormatChangedEvent) {
		formatReceived <- true
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(_ StreamStateChangedEvent) {
		streamReceived <- true
	})
	defer unsub2()

	bus.Publish(FormatChangedEvent{Width: 1948, Height: 1097})
	<-formatReceived

	select {
	case <-streamReceived:
		t.Fatal("stream subscriber received a format event")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)

	unsub := bus.Subscribe(func(_ ControlChangedEvent) {
		receivedCh <- true
	})
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range eventsPerGoroutine {
				bus.Publish(ControlChangedEvent{Control: "analogue_gain", Value: int64(i)})
			}
		}()
	}

	wg.Wait()

	for range expected {
		<-receivedCh
	}
}

func TestBus_UnknownHandlerIsNoop(_ *testing.T) {
	bus := New()
	unsub := bus.Subscribe(func(string) {})
	unsub()
}

func TestEventJSONSerialization(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		field string
	}{
		{"FormatChanged", FormatChangedEvent{Code: 0x3012, Width: 1948, Height: 1097}, "width"},
		{"ControlChanged", ControlChangedEvent{Control: "exposure", Value: 2}, "control"},
		{"StreamStateChanged", StreamStateChangedEvent{Sensor: "m00_b_imx290 1-001a", Streaming: true}, "streaming"},
		{"PowerStateChanged", PowerStateChangedEvent{Powered: true}, "powered"},
		{"PresetApplied", PresetAppliedEvent{Preset: "night"}, "preset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("Failed to marshal: %v", err)
			}

			var result map[string]any
			if err := json.Unmarshal(data, &result); err != nil {
				t.Fatalf("Failed to unmarshal: %v", err)
			}
			if _, ok := result[tt.field]; !ok {
				t.Errorf("field %q missing from %s", tt.field, data)
			}
		})
	}
}

func TestSubscribeToChannel(t *testing.T) {
	bus := New()
	ch := make(chan any, 10)

	unsub := SubscribeToChannel[StreamStateChangedEvent](bus, ch)
	defer unsub()

	bus.Publish(StreamStateChangedEvent{Sensor: "cam", Streaming: true})

	received := <-ch
	ev, ok := received.(StreamStateChangedEvent)
	if !ok {
		t.Fatalf("Expected StreamStateChangedEvent, got %T", received)
	}
	if !ev.Streaming {
		t.Error("streaming flag lost")
	}
}

func TestSubscribeToChannel_NonBlocking(_ *testing.T) {
	bus := New()
	ch := make(chan any)

	unsub := SubscribeToChannel[PresetAppliedEvent](bus, ch)
	defer unsub()

	done := make(chan bool, 1)
	go func() {
		bus.Publish(PresetAppliedEvent{Preset: "day"})
		done <- true
	}()

	<-done
}
