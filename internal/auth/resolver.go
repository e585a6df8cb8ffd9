package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/domain"
)

const (
	// HeaderMockUser carries a development identity with no proof attached.
	HeaderMockUser = "X-Mock-User"
	// HeaderAuthorization carries a bearer token.
	HeaderAuthorization = "Authorization"
)

// Headers are the request values the resolver looks at.
type Headers struct {
	MockUser      string
	Authorization string
}

// HeadersFrom extracts resolver input from an HTTP header set.
func HeadersFrom(h http.Header) Headers {
	return Headers{
		MockUser:      h.Get(HeaderMockUser),
		Authorization: h.Get(HeaderAuthorization),
	}
}

// Resolver decides caller identity. It holds only read-only state and is
// safe for concurrent use.
type Resolver struct {
	signer    *Signer
	issueMode domain.Mode
	now       func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock overrides the time source used for issuing and verifying tokens.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// NewResolver creates a resolver. issueMode is the mode claim embedded in
// tokens minted for mock-header callers.
func NewResolver(signer *Signer, issueMode domain.Mode, opts ...Option) *Resolver {
	r := &Resolver{
		signer:    signer,
		issueMode: issueMode,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the caller's credential. A non-empty mock header always
// wins and always gets a freshly signed token; otherwise a bearer token is
// required. Errors are *domain.AuthError.
func (r *Resolver) Resolve(h Headers) (*domain.SessionCredential, error) {
	now := r.now()

	if h.MockUser != "" {
		token, claims, err := r.signer.Issue(h.MockUser, r.issueMode, now)
		if err != nil {
			return nil, fmt.Errorf("mint development token: %w", err)
		}
		return &domain.SessionCredential{
			Identity:  h.MockUser,
			Mode:      domain.ModeDevelopment,
			Token:     token,
			IssuedAt:  claims.IssuedAt,
			ExpiresAt: claims.ExpiresAt,
		}, nil
	}

	if h.Authorization == "" {
		return nil, domain.ErrAuthMissing
	}

	fields := strings.Fields(h.Authorization)
	if len(fields) != 2 {
		return nil, &domain.AuthError{Kind: domain.AuthInvalid, Detail: "Invalid authorization header"}
	}
	scheme, token := fields[0], fields[1]
	if !strings.EqualFold(scheme, "bearer") {
		return nil, &domain.AuthError{Kind: domain.AuthInvalid, Detail: "Invalid authentication scheme"}
	}

	claims, err := r.signer.Verify(token, now)
	if err != nil {
		return nil, err
	}
	return &domain.SessionCredential{
		Identity:  claims.Subject,
		Mode:      claims.Mode,
		Token:     token,
		IssuedAt:  claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}
