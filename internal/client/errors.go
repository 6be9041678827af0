package client

import (
	"errors"
	"fmt"

	"github.com/innsight-labs/innsight/internal/resilience"
	"github.com/innsight-labs/innsight/pkg/nominatim"
	"github.com/innsight-labs/innsight/pkg/ors"
	"github.com/innsight-labs/innsight/pkg/overpass"
)

// UnavailableError marks a transport failure that survived retries and any
// fallback. Callers should surface it as a service-unavailable condition.
type UnavailableError struct {
	Service string
	Err     error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("client: %s unavailable: %v", e.Service, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err marks an exhausted external transport.
func IsUnavailable(err error) bool {
	var ue *UnavailableError
	return errors.As(err, &ue)
}

// shouldRetry classifies transport errors for the retry loop: network
// failures, retryable HTTP statuses, and malformed response bodies are
// transient; other API errors (bad request, auth) propagate immediately.
func shouldRetry(err error) bool {
	if err == nil {
		return false
	}

	if status, ok := httpStatus(err); ok {
		return resilience.IsTransientHTTPStatus(status)
	}
	if isDecodeError(err) {
		return true
	}
	return resilience.IsTransient(err)
}

func httpStatus(err error) (int, bool) {
	var nErr *nominatim.APIError
	if errors.As(err, &nErr) {
		return nErr.StatusCode, true
	}
	var oErr *ors.APIError
	if errors.As(err, &oErr) {
		return oErr.StatusCode, true
	}
	var pErr *overpass.APIError
	if errors.As(err, &pErr) {
		return pErr.StatusCode, true
	}
	return 0, false
}

func isDecodeError(err error) bool {
	var nDec *nominatim.DecodeError
	var oDec *ors.DecodeError
	var pDec *overpass.DecodeError
	return errors.As(err, &nDec) || errors.As(err, &oDec) || errors.As(err, &pDec)
}
