package flite

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidString is returned when a string passed to the engine contains
	// an embedded NUL byte and cannot be represented as a C string.
	ErrInvalidString = errors.New("flite: string contains NUL byte")

	ErrLibraryNotFound     = errors.New("flite: shared library not found")
	ErrUnsupportedPlatform = errors.New("flite: dynamic loading not supported on this platform")
	ErrEngineInit          = errors.New("flite: engine initialization failed")
	ErrVoiceUnavailable    = errors.New("flite: voice could not be registered")
	ErrVoiceNotFound       = errors.New("flite: voice not found")
	ErrSynthesisFailed     = errors.New("flite: synthesis failed")
	ErrClosed              = errors.New("flite: handle already closed")
	ErrForeignVoice        = errors.New("flite: voice belongs to a different engine")
)

// StringError reports which argument failed C string conversion and where
// the first NUL byte sits.
type StringError struct {
	Field  string
	Offset int
}

func (e *StringError) Error() string {
	return fmt.Sprintf("flite: could not convert %s to C string: NUL byte at offset %d", e.Field, e.Offset)
}

func (e *StringError) Unwrap() error { return ErrInvalidString }
