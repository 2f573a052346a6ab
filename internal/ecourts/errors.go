package ecourts

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation means upstream answered with an explicit error marker.
	ErrValidation = errors.New("ecourts: upstream returned an error marker")
	// ErrCaptcha means upstream rejected the captcha or a challenge could not be decoded.
	ErrCaptcha = errors.New("ecourts: invalid captcha")
	// ErrBusiness means upstream redirected to its error page.
	ErrBusiness = errors.New("ecourts: upstream business error")
	// ErrTransient covers timeouts, connection failures and unexpected statuses.
	ErrTransient = errors.New("ecourts: transient upstream failure")
	// ErrRetryExhausted is terminal for an operation, see RetryExhaustedError.
	ErrRetryExhausted = errors.New("ecourts: retry attempts exhausted")
	// ErrCaptchaUnavailable means the ocr tooling is missing, it is never retried.
	ErrCaptchaUnavailable = errors.New("ecourts: captcha solving unavailable")
	// ErrSessionExpired means a detail document reported an expired session.
	ErrSessionExpired = errors.New("ecourts: session expired")
	// ErrParse marks a malformed individual record.
	ErrParse = errors.New("ecourts: malformed record")
	// ErrNotFound means upstream had no record for the query.
	ErrNotFound = errors.New("ecourts: case not found")
	// ErrInvalidCourt is returned by NewCourt for pairs outside the whitelist.
	ErrInvalidCourt = errors.New("ecourts: invalid court")
	// ErrInvalidCNR is returned by NewCase for identifiers that are not 16 characters.
	ErrInvalidCNR = errors.New("ecourts: invalid cnr number")
	// ErrMissingParams means an entity lacks the fields a follow up request needs.
	ErrMissingParams = errors.New("ecourts: missing request parameters")
)

// RetryExhaustedError is returned when an operation used up its attempt budget.
type RetryExhaustedError struct {
	Operation string
	Attempts  int
	Last      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s: ran out of %d attempts, still failed: %v", e.Operation, e.Attempts, e.Last)
}

func (e *RetryExhaustedError) Unwrap() []error {
	return []error{ErrRetryExhausted, e.Last}
}

// CaptchaFailureError is returned when the solver used up its own retry budget.
type CaptchaFailureError struct {
	Attempts int
	Last     error
}

func (e *CaptchaFailureError) Error() string {
	return fmt.Sprintf("couldn't solve captcha after %d attempts: %v", e.Attempts, e.Last)
}

func (e *CaptchaFailureError) Unwrap() []error {
	return []error{ErrCaptcha, e.Last}
}
