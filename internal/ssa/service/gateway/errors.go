package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned when credentials are missing.
	ErrNotConfigured = errors.New("sankhya gateway credentials not configured")
	// ErrAuth is returned when the gateway rejects authentication,
	// including after the single re-authentication retry.
	ErrAuth = errors.New("sankhya gateway authentication failed")
)

// FunctionalError is a business-level failure reported by the ERP with a
// successful HTTP exchange (status "0" or an unexpected status value).
type FunctionalError struct {
	Service string
	Status  string
	Message string
}

func (e *FunctionalError) Error() string {
	return fmt.Sprintf("Erro Funcional Sankhya: %s", e.Message)
}

// HTTPError is a non-2xx response that is not an authentication failure.
type HTTPError struct {
	Code int
	Body string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("sankhya gateway http %d: %s", e.Code, e.Body)
}

// StatusCode lets failover-style classifiers read the HTTP status.
func (e *HTTPError) StatusCode() int { return e.Code }

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool { return errors.Is(err, ErrAuth) }

// IsFunctional reports whether err is an ERP business error.
func IsFunctional(err error) bool {
	var fe *FunctionalError
	return errors.As(err, &fe)
}
