// Package kerr defines the error kinds shared across the VibeOS core, and a
// small helper for rendering the subsystem-tagged diagnostic lines the
// kernel prints on the console/serial (see spec §7).
package kerr

import (
	"errors"
	"fmt"
)

// Sentinel errors. Components wrap one of these with fmt.Errorf("...: %w")
// so callers can still errors.Is against the kind.
var (
	ErrNotFound     = errors.New("not found")
	ErrNotADir      = errors.New("not a directory")
	ErrIsADir       = errors.New("is a directory")
	ErrOutOfSpace   = errors.New("out of space")
	ErrIO           = errors.New("i/o error")
	ErrInvalid      = errors.New("invalid")
	ErrTimeout      = errors.New("timeout")
	ErrWouldBlock   = errors.New("would block")
	ErrUnsupported  = errors.New("unsupported")
)

// Tagged wraps err with a bracketed subsystem tag, matching the console
// diagnostic format ("[FAT32] ...", "[NET] ...") spec'd for user-visible
// failures. The returned error still unwraps to err.
func Tagged(subsystem string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("[%s] %w", subsystem, err)
}

// Tagf is Tagged for a formatted message wrapping an existing kind.
func Tagf(subsystem string, kind error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("[%s] %s: %w", subsystem, msg, kind)
}
