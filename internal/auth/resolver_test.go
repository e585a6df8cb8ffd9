package auth

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dstaulcu/skill-enabled-dept-website/internal/domain"
)

const testSecret = "test-secret"

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestResolver(now time.Time) *Resolver {
	return NewResolver(NewSigner(testSecret), domain.ModeDevelopment, WithClock(func() time.Time { return now }))
}

func bearer(t *testing.T, subject string, mode domain.Mode, issuedAt time.Time) string {
	t.Helper()
	token, _, err := NewSigner(testSecret).Issue(subject, mode, issuedAt)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestResolveMockHeader(t *testing.T) {
	r := newTestResolver(fixedNow)

	for _, identity := range []string{"alice", "CN=Bob Smith,OU=Dept", "  spaced  ", "ünïcode"} {
		cred, err := r.Resolve(Headers{MockUser: identity})
		require.NoError(t, err)
		assert.Equal(t, identity, cred.Identity)
		assert.Equal(t, domain.ModeDevelopment, cred.Mode)
		require.NotEmpty(t, cred.Token)

		claims, err := NewSigner(testSecret).Verify(cred.Token, fixedNow)
		require.NoError(t, err)
		assert.Equal(t, identity, claims.Subject)
		assert.Equal(t, fixedNow.Add(TokenTTL), claims.ExpiresAt.UTC())
	}
}

func TestResolveMockHeaderMintsFreshTokenEachCall(t *testing.T) {
	now := fixedNow
	r := NewResolver(NewSigner(testSecret), domain.ModeDevelopment, WithClock(func() time.Time { return now }))

	first, err := r.Resolve(Headers{MockUser: "alice"})
	require.NoError(t, err)
	now = now.Add(time.Minute)
	second, err := r.Resolve(Headers{MockUser: "alice"})
	require.NoError(t, err)

	assert.NotEqual(t, first.Token, second.Token)
	assert.True(t, second.IssuedAt.After(first.IssuedAt))
}

func TestResolveMockHeaderWinsOverAuthorization(t *testing.T) {
	r := newTestResolver(fixedNow)

	cred, err := r.Resolve(Headers{MockUser: "dev-user", Authorization: "Basic garbage"})
	require.NoError(t, err)
	assert.Equal(t, "dev-user", cred.Identity)
	assert.Equal(t, domain.ModeDevelopment, cred.Mode)
}

func TestResolveMockHeaderTokenCarriesIssueMode(t *testing.T) {
	r := NewResolver(NewSigner(testSecret), domain.ModeProduction, WithClock(func() time.Time { return fixedNow }))

	cred, err := r.Resolve(Headers{MockUser: "alice"})
	require.NoError(t, err)
	assert.Equal(t, domain.ModeDevelopment, cred.Mode)

	claims, err := NewSigner(testSecret).Verify(cred.Token, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeProduction, claims.Mode)
}

func TestResolveBearer(t *testing.T) {
	r := newTestResolver(fixedNow)

	tests := []struct {
		name     string
		header   string
		identity string
		mode     domain.Mode
	}{
		{"production token", bearer(t, "alice", domain.ModeProduction, fixedNow.Add(-time.Hour)), "alice", domain.ModeProduction},
		{"development token", bearer(t, "bob", domain.ModeDevelopment, fixedNow), "bob", domain.ModeDevelopment},
		{"lowercase scheme", "bearer " + bearer(t, "carol", domain.ModeProduction, fixedNow)[len("Bearer "):], "carol", domain.ModeProduction},
		{"uppercase scheme", "BEARER " + bearer(t, "dan", domain.ModeProduction, fixedNow)[len("Bearer "):], "dan", domain.ModeProduction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred, err := r.Resolve(Headers{Authorization: tt.header})
			require.NoError(t, err)
			assert.Equal(t, tt.identity, cred.Identity)
			assert.Equal(t, tt.mode, cred.Mode)
		})
	}
}

func TestResolveBearerWithoutModeDefaultsToProduction(t *testing.T) {
	tok, err := jwt.NewBuilder().Subject("svc-account").IssuedAt(fixedNow).Expiration(fixedNow.Add(time.Hour)).Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256(), []byte(testSecret)))
	require.NoError(t, err)

	cred, err := newTestResolver(fixedNow).Resolve(Headers{Authorization: "Bearer " + string(signed)})
	require.NoError(t, err)
	assert.Equal(t, "svc-account", cred.Identity)
	assert.Equal(t, domain.ModeProduction, cred.Mode)
}

func TestResolveMissing(t *testing.T) {
	r := newTestResolver(fixedNow)

	_, err := r.Resolve(Headers{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAuthMissing))
	assert.Equal(t, "No authentication provided", err.Error())
}

func TestResolveMalformedAuthorization(t *testing.T) {
	r := newTestResolver(fixedNow)
	valid := bearer(t, "alice", domain.ModeProduction, fixedNow)[len("Bearer "):]

	for _, header := range []string{"Bearer", valid, "Bearer " + valid + " extra", "Bearer a b c", "   "} {
		_, err := r.Resolve(Headers{Authorization: header})
		require.Error(t, err, header)
		var authErr *domain.AuthError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, domain.AuthInvalid, authErr.Kind)
		assert.Equal(t, "Invalid authorization header", authErr.Detail)
	}
}

func TestResolveWrongScheme(t *testing.T) {
	r := newTestResolver(fixedNow)

	_, err := r.Resolve(Headers{Authorization: "Basic dXNlcjpwYXNz"})
	var authErr *domain.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, domain.AuthInvalid, authErr.Kind)
	assert.Equal(t, "Invalid authentication scheme", authErr.Detail)
}

func TestResolveExpired(t *testing.T) {
	r := newTestResolver(fixedNow)

	for _, age := range []time.Duration{TokenTTL + time.Second, 24 * time.Hour, 30 * 24 * time.Hour} {
		_, err := r.Resolve(Headers{Authorization: bearer(t, "alice", domain.ModeProduction, fixedNow.Add(-age))})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrAuthExpired)
		assert.NotErrorIs(t, err, domain.ErrAuthInvalid)
	}
}

func TestResolveBrokenSignature(t *testing.T) {
	r := newTestResolver(fixedNow)

	forged, _, err := NewSigner("other-secret").Issue("mallory", domain.ModeProduction, fixedNow)
	require.NoError(t, err)
	good := strings.Split(bearer(t, "alice", domain.ModeProduction, fixedNow), ".")
	other := strings.Split(bearer(t, "mallory", domain.ModeProduction, fixedNow), ".")
	tampered := strings.Join([]string{good[0], other[1], good[2]}, ".")

	for _, header := range []string{"Bearer " + forged, tampered, "Bearer not.a.jwt", "Bearer garbage"} {
		_, err := r.Resolve(Headers{Authorization: header})
		require.Error(t, err, header)
		assert.ErrorIs(t, err, domain.ErrAuthInvalid)
	}
}

func TestResolveRejectsUnknownModeClaim(t *testing.T) {
	tok, err := jwt.NewBuilder().Subject("alice").Expiration(fixedNow.Add(time.Hour)).Claim(ModeClaim, "root").Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256(), []byte(testSecret)))
	require.NoError(t, err)

	_, err = newTestResolver(fixedNow).Resolve(Headers{Authorization: "Bearer " + string(signed)})
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
}

func TestResolveRejectsMissingSubject(t *testing.T) {
	tok, err := jwt.NewBuilder().Expiration(fixedNow.Add(time.Hour)).Build()
	require.NoError(t, err)
	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256(), []byte(testSecret)))
	require.NoError(t, err)

	_, err = newTestResolver(fixedNow).Resolve(Headers{Authorization: "Bearer " + string(signed)})
	assert.ErrorIs(t, err, domain.ErrAuthInvalid)
}

func TestHeadersFrom(t *testing.T) {
	h := http.Header{}
	h.Set("x-mock-user", "alice")
	h.Set("authorization", "Bearer abc")

	assert.Equal(t, Headers{MockUser: "alice", Authorization: "Bearer abc"}, HeadersFrom(h))
}
