package hv

import "fmt"

// Error wraps a Status with an HM identifier and an optional cause, for the
// synchronous error path of spec §7: "all system-call argument errors are
// reported synchronously via the status return... the caller's state is
// unchanged on any synchronous error."
type Error struct {
	Status Status
	HM     HMErrorID
	Cause  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("hv: %s (hm=%d): %v", e.Status, e.HM, e.Cause)
	}
	return fmt.Sprintf("hv: %s (hm=%d)", e.Status, e.HM)
}

// Unwrap supports errors.Is/errors.As against the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error with the same Status, ignoring HM/Cause, so callers
// can write errors.Is(err, hv.New(hv.StatusLimit, 0)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Status == e.Status
}

// New constructs an *Error for the given status and HM identifier.
func New(status Status, hm HMErrorID) *Error {
	return &Error{Status: status, HM: hm}
}

// Wrap constructs an *Error carrying cause as the chained reason.
func Wrap(status Status, hm HMErrorID, cause error) *Error {
	return &Error{Status: status, HM: hm, Cause: cause}
}
