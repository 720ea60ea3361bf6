package main

import (
	"errors"
	"fmt"
)

// ErrInputCapture is returned when no frame is available. The triggering
// action aborts with a notice and prior state is left untouched.
var ErrInputCapture = errors.New("no frame available from capture source")

// ErrUnsupportedCapability is returned by optional integrations, such as
// speech I/O, that the current platform does not provide.
var ErrUnsupportedCapability = errors.New("capability not supported on this platform")

// QuotaExhaustedError reports that every candidate model was rate-limited.
type QuotaExhaustedError struct {
	Capability string
	LastErr    error
}

func (e *QuotaExhaustedError) Error() string {
	return fmt.Sprintf("%s: all candidate models rate-limited: %v", e.Capability, e.LastErr)
}

func (e *QuotaExhaustedError) Unwrap() error { return e.LastErr }

// ProviderError reports a non-rate failure (malformed output, timeout,
// server error) after every candidate was tried.
type ProviderError struct {
	Capability string
	LastErr    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: all candidate models failed: %v", e.Capability, e.LastErr)
}

func (e *ProviderError) Unwrap() error { return e.LastErr }

// IsQuotaExhausted reports whether err is a fully rate-limited invocation.
func IsQuotaExhausted(err error) bool {
	var qe *QuotaExhaustedError
	return errors.As(err, &qe)
}
