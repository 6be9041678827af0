package pipeline

import (
	"errors"
	"fmt"
)

// ServiceUnavailableError wraps an external transport failure that survived
// the resilience layer. HTTP handlers map it to 503.
type ServiceUnavailableError struct {
	Err error
}

func (e *ServiceUnavailableError) Error() string {
	return fmt.Sprintf("pipeline: external service unavailable: %v", e.Err)
}

func (e *ServiceUnavailableError) Unwrap() error { return e.Err }

// IsServiceUnavailable reports whether err marks an external service failure.
func IsServiceUnavailable(err error) bool {
	var se *ServiceUnavailableError
	return errors.As(err, &se)
}
