package systemd

import (
	"log/slog"
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu     sync.Mutex
	states []string
}

func (r *recorder) notify(_ bool, state string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
	return true, nil
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.states...)
}

func TestNotifierSequence(t *testing.T) {
	t.Setenv("WATCHDOG_USEC", "")
	rec := &recorder{}
	n := NewNotifier(slog.Default())
	n.notify = rec.notify

	n.Ready()
	n.Status("streaming")
	n.Stopping()

	got := rec.snapshot()
	want := []string{"READY=1", "STATUS=streaming", "STOPPING=1"}
	if len(got) != len(want) {
		t.Fatalf("states = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("states[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNotifierWatchdog(t *testing.T) {
	rec := &recorder{}
	n := NewNotifier(slog.Default())
	n.notify = rec.notify

	n.startWatchdog(5 * time.Millisecond)
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if len(rec.snapshot()) > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	n.Stopping()

	states := rec.snapshot()
	if len(states) < 2 || states[0] != "WATCHDOG=1" {
		t.Fatalf("states = %v, want watchdog pings before STOPPING=1", states)
	}
	if states[len(states)-1] != "STOPPING=1" {
		t.Errorf("last state = %q, want STOPPING=1", states[len(states)-1])
	}
}

func TestNotifierWithoutSocket(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	t.Setenv("WATCHDOG_USEC", "")
	n := NewNotifier(slog.Default())
	n.Ready()
	n.Stopping()
}
