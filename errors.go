package gcsmock

import "fmt"

// APIError represents a simulated Cloud Storage API error with an HTTP status
// code and a human-readable message, mirroring the shape of the errors the
// real service returns.
type APIError struct {
	// Code is the HTTP status code the real service would return (e.g., 404).
	Code int
	// Message is a human-readable description of the error.
	Message string
}

// Error implements the error interface for APIError.
func (e *APIError) Error() string {
	return fmt.Sprintf("gcsmock: %s (HTTP %d)", e.Message, e.Code)
}

// Pre-defined errors for the simulated service's failure conditions. Errors
// injected via Object.FailNext are surfaced verbatim and never wrapped, so
// sentinel comparisons with errors.Is work for injected values too.
var (
	// ErrObjectNotExist is returned when an operation requires the object to
	// be present but it is not a member of its bucket.
	ErrObjectNotExist = &APIError{
		Code:    404,
		Message: "object doesn't exist",
	}

	// ErrInvalidDestination is returned by Object.Copy when the destination
	// cannot be classified as an object name, a bucket, or an object handle.
	ErrInvalidDestination = &APIError{
		Code:    400,
		Message: "copy destination must be an object name, a *Bucket, or an *Object",
	}

	// ErrUnsupportedDestination is returned by Bucket.Upload when the
	// destination is given as a rich handle instead of a plain name string.
	ErrUnsupportedDestination = &APIError{
		Code:    400,
		Message: "upload destination must be a plain object name",
	}
)
