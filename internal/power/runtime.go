package power

import (
	"log/slog"
	"sync"
	"time"

	"github.com/smazurov/sensornode/internal/logging"
)

// Runtime reference-counts power usage over a Machine. The first
// Acquire powers the sensor on; the last Release powers it off, after
// the autosuspend delay when one is configured.
type Runtime struct {
	mu          sync.Mutex
	m           *Machine
	users       int
	autosuspend time.Duration
	timer       *time.Timer
	onChange    func(State)
	logger      *slog.Logger
}

// NewRuntime wraps m. An autosuspend of zero powers off immediately.
func NewRuntime(m *Machine, autosuspend time.Duration) *Runtime {
	return &Runtime{
		m:           m,
		autosuspend: autosuspend,
		logger:      logging.GetLogger("power"),
	}
}

// OnChange registers fn to run after every physical power transition.
// fn runs with the runtime lock held and must not call back into it.
func (r *Runtime) OnChange(fn func(State)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// Acquire takes a usage reference, powering on if needed. On failure no
// reference is held.
func (r *Runtime) Acquire() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancelSuspend()
	if r.m.State() == Off {
		if err := r.m.PowerOn(); err != nil {
			return err
		}
		r.notify(On)
	}
	r.users++
	users.Set(float64(r.users))
	return nil
}

// Release drops a usage reference. Releasing with no references held is
// logged and ignored.
func (r *Runtime) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.users == 0 {
		r.logger.Warn("power release without matching acquire")
		return
	}
	r.users--
	users.Set(float64(r.users))
	if r.users > 0 {
		return
	}

	if r.autosuspend <= 0 {
		r.powerOff()
		return
	}
	r.timer = time.AfterFunc(r.autosuspend, r.suspendIfIdle)
}

// GetIfInUse takes a reference only when one is already held, so a
// caller may touch registers without powering the sensor up. It returns
// false, taking nothing, when no reference is held.
func (r *Runtime) GetIfInUse() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.users == 0 || r.m.State() != On {
		return false
	}
	r.users++
	users.Set(float64(r.users))
	return true
}

// Powered reports whether the sensor is physically on.
func (r *Runtime) Powered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.m.State() == On
}

// Users returns the number of outstanding references.
func (r *Runtime) Users() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users
}

// Shutdown drops all references and powers off immediately.
func (r *Runtime) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancelSuspend()
	r.users = 0
	users.Set(0)
	r.powerOff()
}

func (r *Runtime) suspendIfIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.timer = nil
	if r.users == 0 {
		r.powerOff()
	}
}

func (r *Runtime) cancelSuspend() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Runtime) powerOff() {
	if r.m.State() == Off {
		return
	}
	r.m.PowerOff()
	r.notify(Off)
}

func (r *Runtime) notify(s State) {
	if r.onChange != nil {
		r.onChange(s)
	}
}
