package licensing

import "errors"

// Every business-rule failure is an explicit return value from this
// package; callers match on the category and map it to a transport
// status. Anything outside these types is an internal failure.

// ErrUnauthorized is returned by Verify when the presented shared
// secret does not match the configured one.
var ErrUnauthorized = errors.New("unauthorized")

// State-conflict reasons, reused verbatim as wire messages.
const (
	ReasonDeactivated    = "License deactivated"
	ReasonExpired        = "License expired"
	ReasonInvalidProduct = "Invalid product"
	ReasonAlreadyFull    = "License is already full"
)

// ValidationError means the request was malformed or missing fields
// and was rejected before any store lookup.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError names the entity that failed to resolve: "Product",
// "Consumer", or "License".
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found"
}

// StateConflictError means the license resolved but its current state
// forbids the operation or fails verification.
type StateConflictError struct {
	Reason string
}

func (e *StateConflictError) Error() string {
	return e.Reason
}
