package fitdecode

import (
	"errors"
	"fmt"
)

// Kind classifies a decode failure.
type Kind string

const (
	KindNoGPSData          Kind = "no_gps_data"
	KindMissingTimestamps  Kind = "missing_timestamps"
	KindMalformedContainer Kind = "malformed_container"
)

var (
	ErrNoGPSData          = errors.New("no GPS points found in FIT file")
	ErrMissingTimestamps  = errors.New("missing timestamps in FIT file")
	ErrMalformedContainer = errors.New("malformed FIT file")
)

func (k Kind) sentinel() error {
	switch k {
	case KindNoGPSData:
		return ErrNoGPSData
	case KindMissingTimestamps:
		return ErrMissingTimestamps
	default:
		return ErrMalformedContainer
	}
}

// DecodeError is a failure attributable to a single input file.
type DecodeError struct {
	File string
	Kind Kind
	// Err is the underlying parser error, if any.
	Err error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v: %v", e.File, e.Kind.sentinel(), e.Err)
	}
	return fmt.Sprintf("%s: %v", e.File, e.Kind.sentinel())
}

// Is matches the sentinel error for the failure kind.
func (e *DecodeError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Message is the text shown next to the file in the upload queue.
func (e *DecodeError) Message() string {
	switch e.Kind {
	case KindNoGPSData:
		return "No GPS points found in FIT file."
	case KindMissingTimestamps:
		return "Missing timestamps in FIT file."
	default:
		return "Could not parse " + e.File
	}
}
