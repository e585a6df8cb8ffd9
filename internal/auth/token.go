// Package auth resolves caller identity from request headers and issues
// the signed session tokens carried by resolved callers.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/domain"
)

// TokenTTL is the lifetime of every issued token.
const TokenTTL = 8 * time.Hour

// ModeClaim is the private claim carrying the authentication mode.
const ModeClaim = "mode"

// Claims is the verified content of a session token.
type Claims struct {
	Subject   string
	Mode      domain.Mode
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Signer issues and verifies HS256 session tokens with a shared secret.
type Signer struct {
	key []byte
}

// NewSigner creates a signer for the given secret.
func NewSigner(secret string) *Signer {
	return &Signer{key: []byte(secret)}
}

// Issue mints a token for subject, valid for TokenTTL from now.
func (s *Signer) Issue(subject string, mode domain.Mode, now time.Time) (string, Claims, error) {
	claims := Claims{
		Subject:   subject,
		Mode:      mode,
		IssuedAt:  now.Truncate(time.Second),
		ExpiresAt: now.Add(TokenTTL).Truncate(time.Second),
	}

	tok, err := jwt.NewBuilder().
		Subject(claims.Subject).
		IssuedAt(claims.IssuedAt).
		Expiration(claims.ExpiresAt).
		Claim(ModeClaim, string(claims.Mode)).
		Build()
	if err != nil {
		return "", Claims{}, fmt.Errorf("failed to build token: %w", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256(), s.key))
	if err != nil {
		return "", Claims{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return string(signed), claims, nil
}

// Verify checks the signature and expiry of token as of now.
// Failures are *domain.AuthError of kind expired or invalid.
func (s *Signer) Verify(token string, now time.Time) (Claims, error) {
	tok, err := jwt.ParseString(token,
		jwt.WithKey(jwa.HS256(), s.key),
		jwt.WithValidate(true),
		jwt.WithClock(jwt.ClockFunc(func() time.Time { return now })),
	)
	if err != nil {
		if errors.Is(err, jwt.TokenExpiredError()) {
			return Claims{}, &domain.AuthError{Kind: domain.AuthExpired, Detail: domain.ErrAuthExpired.Detail, Err: err}
		}
		return Claims{}, invalidToken(err)
	}

	subject, ok := tok.Subject()
	if !ok || subject == "" {
		return Claims{}, invalidToken(errors.New("missing subject claim"))
	}

	var rawMode string
	if tok.Has(ModeClaim) {
		if err := tok.Get(ModeClaim, &rawMode); err != nil {
			return Claims{}, invalidToken(fmt.Errorf("mode claim: %w", err))
		}
	}
	mode, ok := domain.ParseMode(rawMode)
	if !ok {
		return Claims{}, invalidToken(fmt.Errorf("unknown mode claim %q", rawMode))
	}

	claims := Claims{Subject: subject, Mode: mode}
	claims.IssuedAt, _ = tok.IssuedAt()
	claims.ExpiresAt, _ = tok.Expiration()
	return claims, nil
}

func invalidToken(err error) error {
	return &domain.AuthError{Kind: domain.AuthInvalid, Detail: domain.ErrAuthInvalid.Detail, Err: err}
}
