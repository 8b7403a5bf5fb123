package blkproc

import (
	"errors"
	"fmt"
)

// Status is the integer-coded error kind surfaced by fallible block
// processor operations (spec §6/§7).
type Status int

const (
	StatusOK Status = iota
	StatusAlloc
	StatusSequence
	StatusUnsupported
	StatusIO
	StatusCompressor
	StatusCorrupted
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusAlloc:
		return "ALLOC"
	case StatusSequence:
		return "SEQUENCE"
	case StatusUnsupported:
		return "UNSUPPORTED"
	case StatusIO:
		return "IO"
	case StatusCompressor:
		return "COMPRESSOR"
	case StatusCorrupted:
		return "CORRUPTED"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// StatusError pairs a Status code with an optional underlying cause, so
// callers can use errors.Is against a *StatusError carrying the same Status
// and errors.As/Unwrap to reach the original I/O or compressor error.
type StatusError struct {
	Status Status
	Err    error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("squashfs block processor: %s: %s", e.Status, e.Err)
	}
	return fmt.Sprintf("squashfs block processor: %s", e.Status)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, target) match when target is a *StatusError with
// the same Status (e.g. ErrSequence), regardless of the wrapped cause.
func (e *StatusError) Is(target error) bool {
	var se *StatusError
	if errors.As(target, &se) {
		return se.Status == e.Status
	}
	return false
}

func newStatusError(status Status, err error) *StatusError {
	return &StatusError{Status: status, Err: err}
}

// Misuse errors (spec §7 class 1): detected and returned immediately,
// never latched into the processor.
var (
	ErrSequence    error = &StatusError{Status: StatusSequence}
	ErrUnsupported error = &StatusError{Status: StatusUnsupported}
	ErrAlloc       error = &StatusError{Status: StatusAlloc}
)
