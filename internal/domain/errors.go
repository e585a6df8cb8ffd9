package domain

import "errors"

// AuthErrorKind classifies authentication failures.
type AuthErrorKind string

const (
	AuthMissing AuthErrorKind = "missing"
	AuthInvalid AuthErrorKind = "invalid"
	AuthExpired AuthErrorKind = "expired"
)

// AuthError is returned when a caller cannot be identified.
// Detail is the message surfaced to the caller.
type AuthError struct {
	Kind   AuthErrorKind
	Detail string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return e.Detail + ": " + e.Err.Error()
	}
	return e.Detail
}

func (e *AuthError) Unwrap() error { return e.Err }

// Is matches any AuthError of the same kind, so callers can test
// errors.Is(err, ErrAuthExpired).
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}

var (
	ErrAuthMissing = &AuthError{Kind: AuthMissing, Detail: "No authentication provided"}
	ErrAuthInvalid = &AuthError{Kind: AuthInvalid, Detail: "Invalid token"}
	ErrAuthExpired = &AuthError{Kind: AuthExpired, Detail: "Token has expired"}
)

// ErrUpstream marks failures talking to the completion service.
var ErrUpstream = errors.New("upstream error")

// RelayError wraps a failed upstream completion. Its message is the
// fault's own text.
type RelayError struct {
	Err error
}

func (e *RelayError) Error() string { return e.Err.Error() }

func (e *RelayError) Unwrap() []error { return []error{ErrUpstream, e.Err} }

// ErrorResponse is the JSON body of every failed HTTP request.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
