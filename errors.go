package probego

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyRun is returned when Run is called on an experiment that
	// has already started. Experiments are single-shot.
	ErrAlreadyRun = errors.New("experiment has already run")

	// ErrBusy is returned when an operation is attempted while the
	// experiment is running.
	ErrBusy = errors.New("experiment is running")
)

// CompatibilityError indicates that a device, measurement and contact
// array cannot work together. It is raised before any storage allocation.
type CompatibilityError struct {
	Reason string
}

func (e *CompatibilityError) Error() string {
	return fmt.Sprintf("incompatible setup: %s", e.Reason)
}

// ContactError indicates a failure confined to a single contact. It never
// aborts the surrounding run.
//
// The underlying cause can be accessed via errors.Unwrap.
type ContactError struct {
	Contact string
	cause   error
}

// NewContactError wraps a per-contact failure.
func NewContactError(contact string, cause error) *ContactError {
	return &ContactError{Contact: contact, cause: cause}
}

func (e *ContactError) Error() string {
	return fmt.Sprintf("contact %q: %v", e.Contact, e.cause)
}

func (e *ContactError) Unwrap() error { return e.cause }

// DeviceFaultError indicates the device itself is in a bad state.
// Measurements return it (wrapped in their iterator) to escalate: the run
// stops instead of moving to the next contact.
//
// The underlying cause can be accessed via errors.Unwrap.
type DeviceFaultError struct {
	Device string
	cause  error
}

// NewDeviceFaultError wraps a device-level failure.
func NewDeviceFaultError(device string, cause error) *DeviceFaultError {
	return &DeviceFaultError{Device: device, cause: cause}
}

func (e *DeviceFaultError) Error() string {
	return fmt.Sprintf("device fault on %q: %v", e.Device, e.cause)
}

func (e *DeviceFaultError) Unwrap() error { return e.cause }

// isFatal reports whether a measurement error must stop the whole run.
func isFatal(err error) bool {
	var df *DeviceFaultError
	return errors.As(err, &df)
}
