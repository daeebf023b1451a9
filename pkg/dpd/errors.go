package dpd

import (
	"errors"
	"fmt"
)

// ServiceError represents an error from the carrier API or the local store.
type ServiceError struct {
	Service   string // e.g. "geography", "calculator", "store"
	Code      string
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Service, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Service, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ServiceError.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewServiceError creates a new ServiceError.
func NewServiceError(service, code, message string) *ServiceError {
	return &ServiceError{
		Service: service,
		Code:    code,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *ServiceError) WithCause(err error) *ServiceError {
	e.Cause = err
	return e
}

// WithRetryable marks the error as retryable.
func (e *ServiceError) WithRetryable(retryable bool) *ServiceError {
	e.Retryable = retryable
	return e
}

// Sentinel errors for the sync pipeline and the calculator.
var (
	// ErrRemoteUnavailable indicates the carrier API could not be reached.
	ErrRemoteUnavailable = errors.New("remote service unavailable")

	// ErrMalformedRecord indicates a source record misses required fields.
	// Such records are skipped, not fatal.
	ErrMalformedRecord = errors.New("malformed source record")

	// ErrPersistence indicates a local storage write failed.
	ErrPersistence = errors.New("persistence failure")

	// ErrFeedUnavailable indicates the geography feed could not be opened.
	ErrFeedUnavailable = errors.New("geography feed unavailable")

	// ErrLocationNotFound indicates no serviceable location matched.
	ErrLocationNotFound = errors.New("location not found")

	// ErrDeliveryImpossible indicates one of the shipment endpoints does not
	// resolve to a serviceable location.
	ErrDeliveryImpossible = errors.New("delivery impossible for shipment")

	// ErrNoTariffs indicates the carrier returned no usable tariffs.
	ErrNoTariffs = errors.New("no tariffs available")
)

// IsRetryable returns true if the error is worth retrying on the next
// invocation without operator intervention.
func IsRetryable(err error) bool {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Retryable
	}
	return errors.Is(err, ErrRemoteUnavailable)
}
