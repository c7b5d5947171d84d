package bluelink

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNotImplemented marks operations deliberately unported for a region. Calls fail fast
	// instead of silently doing nothing.
	ErrNotImplemented = errors.New("not implemented")

	// ErrNeedsLogin indicates no refresh token is held, so the caller must perform a full
	// login rather than a refresh.
	ErrNeedsLogin = errors.New("session has no refresh token, login required")
)

// HTTPError describes a failed vendor call: either a transport failure or a non-2xx response. The
// message is designed to be directly printable, carrying method, URL, status, and the raw body.
type HTTPError struct {
	Method string
	URL    string
	Code   int
	Status string
	Body   string
	Err    error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Err)
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Method, e.URL, e.Status, e.Body)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// Temporary reports whether the failure is a server-side condition worth retrying.
func (e *HTTPError) Temporary() bool {
	return e.Code == 502 || e.Code == 503 || e.Code == 504 || e.Code == 408
}

// ValidationError reports a client-side reject raised before any network call.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, a ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, a...)}
}

// WrapCommand annotates an error with its originating component and method, preserving call-site
// provenance in the style "@Component.method: cause".
func WrapCommand(err error, site string) error {
	if err == nil {
		return nil
	}
	return errors.WithMessage(err, "@"+site)
}
