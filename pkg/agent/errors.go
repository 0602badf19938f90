package agent

import "errors"

// Conflict errors: rejected before any state change.
var (
	// ErrRunActive is returned by Start when a run is already running.
	ErrRunActive = errors.New("a run is already active")

	// ErrNoActiveRun is returned by Stop when no run is running.
	ErrNoActiveRun = errors.New("no active run")
)

// ValidationError reports a rejected start input. No state changes when one
// is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid goal: " + e.Reason
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
