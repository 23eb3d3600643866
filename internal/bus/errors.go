package bus

import (
	"errors"
	"fmt"
)

// ErrorCode identifies the class of a bus failure.
type ErrorCode string

// Bus error codes.
const (
	CodeInvalidLength ErrorCode = "INVALID_LENGTH"
	CodeIO            ErrorCode = "IO"
)

// Sentinels for errors.Is matching against *Error.
var (
	ErrInvalidLength = errors.New("invalid transfer length")
	ErrIO            = errors.New("bus i/o failure")
)

// Error describes a failed register transaction.
type Error struct {
	Code  ErrorCode
	Op    string
	Addr  uint16
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s 0x%04x: %v", e.Code, e.Op, e.Addr, e.Cause)
	}
	return fmt.Sprintf("%s: %s 0x%04x", e.Code, e.Op, e.Addr)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel matching this error's code.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrInvalidLength:
		return e.Code == CodeInvalidLength
	case ErrIO:
		return e.Code == CodeIO
	}
	return false
}

func invalidLength(op string, addr uint16, length int) *Error {
	return &Error{
		Code:  CodeInvalidLength,
		Op:    op,
		Addr:  addr,
		Cause: fmt.Errorf("length %d outside 1..4", length),
	}
}

func ioError(op string, addr uint16, cause error) *Error {
	return &Error{Code: CodeIO, Op: op, Addr: addr, Cause: cause}
}
