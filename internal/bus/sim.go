package bus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
)

var (
	errSimInjected = errors.New("sim: injected failure")
	errSimNack     = errors.New("sim: address not acknowledged")
)

// SimWrite records one Send observed by a Sim.
type SimWrite struct {
	Addr uint16
	Data []byte
}

// Sim is an in-memory register file speaking the bus framing. Multi-byte
// writes and reads auto-increment the address, as the sensor does.
// Faults can be injected to exercise error paths.
type Sim struct {
	mu        sync.Mutex
	regs      map[uint16]byte
	history   []SimWrite
	sends     int
	failAfter int
	nack      map[uint16]bool
	shortAck  bool
}

// NewSim returns an empty simulated device.
func NewSim() *Sim {
	return &Sim{
		regs:      make(map[uint16]byte),
		failAfter: -1,
		nack:      make(map[uint16]bool),
	}
}

// Send implements Transport.
func (s *Sim) Send(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(b) < 2 {
		return 0, fmt.Errorf("sim: frame of %d bytes has no address", len(b))
	}
	addr := binary.BigEndian.Uint16(b)

	if s.failAfter >= 0 && s.sends >= s.failAfter {
		return 0, errSimInjected
	}
	s.sends++

	if s.nack[addr] {
		return 1, errSimNack
	}
	if s.shortAck {
		return len(b) - 1, nil
	}

	data := append([]byte(nil), b[2:]...)
	for i, v := range data {
		s.regs[addr+uint16(i)] = v
	}
	s.history = append(s.history, SimWrite{Addr: addr, Data: data})
	return len(b), nil
}

// Transfer implements Transport.
func (s *Sim) Transfer(w, r []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(w) != 2 {
		return fmt.Errorf("sim: address phase of %d bytes", len(w))
	}
	addr := binary.BigEndian.Uint16(w)
	if s.nack[addr] {
		return errSimNack
	}
	for i := range r {
		r[i] = s.regs[addr+uint16(i)]
	}
	return nil
}

// Poke sets a register without recording history.
func (s *Sim) Poke(addr uint16, val byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[addr] = val
}

// Peek returns the current register contents.
func (s *Sim) Peek(addr uint16) byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.regs[addr]
}

// History returns a copy of all successful sends in order.
func (s *Sim) History() []SimWrite {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SimWrite, len(s.history))
	copy(out, s.history)
	return out
}

// Writes returns how many sends to addr were recorded.
func (s *Sim) Writes(addr uint16) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, w := range s.history {
		if w.Addr == addr {
			n++
		}
	}
	return n
}

// ResetHistory forgets recorded sends and the send counter.
func (s *Sim) ResetHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.sends = 0
}

// FailAfter makes every send after the first n fail. Negative disables.
func (s *Sim) FailAfter(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends = 0
	s.failAfter = n
}

// Nack makes any access to addr fail.
func (s *Sim) Nack(addr uint16, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.nack[addr] = true
	} else {
		delete(s.nack, addr)
	}
}

// ShortAck makes sends acknowledge one byte fewer than transmitted.
func (s *Sim) ShortAck(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shortAck = on
}
