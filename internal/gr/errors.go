package gr

import "errors"

var (
	// ErrInvalidConfiguration is returned by New for unusable constants.
	ErrInvalidConfiguration = errors.New("gr: invalid configuration")

	// ErrInvalidState reports a degenerate snapshot: coincident bodies,
	// negative masses, or a missing or massless source.
	ErrInvalidState = errors.New("gr: invalid particle state")

	// ErrUnsupportedOperation is returned when a variant has no
	// conserved quantity.
	ErrUnsupportedOperation = errors.New("gr: unsupported operation")
)
