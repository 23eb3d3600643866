package sensor

import (
	"errors"
	"fmt"

	"github.com/smazurov/sensornode/internal/bus"
	"github.com/smazurov/sensornode/internal/controls"
	"github.com/smazurov/sensornode/internal/power"
	"github.com/smazurov/sensornode/internal/stream"
)

// Kind classifies sensor errors.
type Kind string

// Error kinds.
const (
	KindBus      Kind = "BUS_ERROR"
	KindConfig   Kind = "CONFIG_ERROR"
	KindState    Kind = "STATE_ERROR"
	KindIdentity Kind = "IDENTITY_MISMATCH"
)

// Error is returned by every Sensor operation that fails.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new sensor error.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the kind of err, or "" when it is not a sensor error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return ""
}

// wrap classifies an error from a lower layer.
func wrap(message string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}

	kind := KindState
	switch {
	case errors.Is(err, bus.ErrIO), errors.Is(err, bus.ErrInvalidLength):
		kind = KindBus
	case errors.Is(err, power.ErrNoClock), errors.Is(err, power.ErrClockEnable), errors.Is(err, power.ErrRailsEnable):
		kind = KindConfig
	case errors.Is(err, controls.ErrUnknown), errors.Is(err, controls.ErrReadOnly),
		errors.Is(err, controls.ErrOutOfRange), errors.Is(err, stream.ErrNotPowered):
		kind = KindState
	}
	return NewError(kind, message, err)
}
