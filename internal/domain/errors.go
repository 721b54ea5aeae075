package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks a run that cannot start because required
	// settings or credentials are missing.
	ErrConfiguration = errors.New("configuration error")

	// ErrTransientFetch marks an upstream failure: a non-2xx response, a
	// transport error or a timeout.
	ErrTransientFetch = errors.New("transient fetch error")

	// ErrSampleDataDisallowed is returned when sample data is requested
	// without the run's explicit permission.
	ErrSampleDataDisallowed = errors.New("sample data disallowed by run policy")

	// ErrBackendUnavailable marks a store that failed its startup probe.
	ErrBackendUnavailable = errors.New("persistence backend unavailable")

	// ErrPersistence marks a failure inside the persist unit of work. The
	// unit has been rolled back when this is returned.
	ErrPersistence = errors.New("persistence error")
)

// FetchError describes a failed upstream page request.
type FetchError struct {
	Source     string
	Page       int
	StatusCode int // 0 for transport failures
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s page %d: status %d: %v", e.Source, e.Page, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s page %d: %v", e.Source, e.Page, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is reports every FetchError as transient so callers can use
// errors.Is(err, ErrTransientFetch).
func (e *FetchError) Is(target error) bool {
	return target == ErrTransientFetch
}
