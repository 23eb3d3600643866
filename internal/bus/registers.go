// Package bus encodes sensor register transactions for a byte-oriented
// control bus (I2C in practice).
//
// Register addresses are 16-bit big-endian. Values are 1 to 4 bytes,
// right-aligned in a big-endian 32-bit word. The package performs no
// retries; a failed transaction is reported once to the caller.
package bus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"

	"github.com/smazurov/sensornode/internal/logging"
)

// Sentinel terminates a register Program. No real register lives there.
const Sentinel uint16 = 0xFFFF

// Transport is the minimal contract consumed from the bus driver.
type Transport interface {
	// Send transmits b and returns the number of bytes acknowledged.
	Send(b []byte) (int, error)
	// Transfer writes w then reads len(r) bytes into r as one exchange.
	Transfer(w, r []byte) error
}

// Entry is a single 8-bit register assignment.
type Entry struct {
	Addr uint16
	Val  uint8
}

// Program is an ordered register sequence terminated by Sentinel.
type Program []Entry

// Terminated reports whether the program ends with the sentinel entry.
func (p Program) Terminated() bool {
	return len(p) > 0 && p[len(p)-1].Addr == Sentinel
}

// Registers is the register codec bound to a transport.
type Registers struct {
	t      Transport
	logger *slog.Logger
}

// New returns a codec over t.
func New(t Transport) *Registers {
	return &Registers{
		t:      t,
		logger: logging.GetLogger("bus"),
	}
}

// Write stores the low length bytes of val at addr.
func (r *Registers) Write(addr uint16, val uint32, length int) error {
	err := r.write(addr, val, length)
	observe("write", err)
	return err
}

func (r *Registers) write(addr uint16, val uint32, length int) error {
	if length < 1 || length > 4 {
		return invalidLength("write", addr, length)
	}

	var word [4]byte
	binary.BigEndian.PutUint32(word[:], val)

	buf := make([]byte, 2+length)
	binary.BigEndian.PutUint16(buf, addr)
	copy(buf[2:], word[4-length:])

	n, err := r.t.Send(buf)
	if err != nil {
		return ioError("write", addr, err)
	}
	if n != len(buf) {
		return ioError("write", addr, fmt.Errorf("short write: %d of %d bytes acknowledged", n, len(buf)))
	}

	r.logger.Debug("register write", "addr", fmt.Sprintf("0x%04x", addr), "val", fmt.Sprintf("0x%x", val), "len", length)
	return nil
}

// Read fetches length bytes starting at addr, right-aligned into a uint32.
func (r *Registers) Read(addr uint16, length int) (uint32, error) {
	val, err := r.read(addr, length)
	observe("read", err)
	return val, err
}

func (r *Registers) read(addr uint16, length int) (uint32, error) {
	if length < 1 || length > 4 {
		return 0, invalidLength("read", addr, length)
	}

	var reg [2]byte
	binary.BigEndian.PutUint16(reg[:], addr)

	var word [4]byte
	if err := r.t.Transfer(reg[:], word[4-length:]); err != nil {
		return 0, ioError("read", addr, err)
	}

	return binary.BigEndian.Uint32(word[:]), nil
}

// WriteProgram writes p entry by entry until the sentinel. The first
// failure aborts the program; entries already written stay written.
func (r *Registers) WriteProgram(p Program) error {
	for i, e := range p {
		if e.Addr == Sentinel {
			break
		}
		if err := r.write(e.Addr, uint32(e.Val), 1); err != nil {
			observe("program", err)
			r.logger.Warn("register program aborted", "entry", i, "error", err)
			return err
		}
	}
	observe("program", nil)
	return nil
}

// codeOf extracts the error code label for metrics.
func codeOf(err error) string {
	var be *Error
	if errors.As(err, &be) {
		return string(be.Code)
	}
	return "unknown"
}
