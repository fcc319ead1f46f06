package token_test

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-credential-service/internal/errors"
	"github.com/jrsteele09/go-credential-service/token"
	"github.com/stretchr/testify/require"
)

const (
	secretStr = "1234"
	address   = "127.0.0.1:3001"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func newTestManager(t *testing.T, signer token.Signer, clock *testClock, options ...token.ManagerOption) *token.Manager {
	t.Helper()
	options = append([]token.ManagerOption{
		token.WithIssuer(address),
		token.WithAudience(address),
		token.WithNowFunc(clock.Now),
	}, options...)
	m, err := token.New(signer, options...)
	require.NoError(t, err)
	return m
}

func TestNew_RequiresSigner(t *testing.T) {
	_, err := token.New(nil)
	require.Error(t, err)
}

func TestManager_IssueAndVerify(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, token.NewHMACSigner(secretStr), clock)

	issued, err := m.Issue(1, "test@example.com")
	require.NoError(t, err)

	require.Len(t, strings.Split(issued.Token, "."), 3)
	require.Equal(t, "1", issued.Subject)
	require.Equal(t, address, issued.Issuer)
	require.Equal(t, address, issued.Audience)
	require.Equal(t, time.Hour, issued.ExpiresIn)
	require.Equal(t, clock.now.Add(time.Hour), issued.ExpiresAt)
	require.NotEmpty(t, issued.ID)

	claims, err := m.Verify(issued.Token)
	require.NoError(t, err)
	id, err := claims.SubjectID()
	require.NoError(t, err)
	require.Equal(t, int64(1), id)
	require.Equal(t, "test@example.com", claims.Email)
	require.Equal(t, issued.ID, claims.ID)
}

func TestManager_TokenPayload(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, token.NewHMACSigner(secretStr), clock)

	issued, err := m.Issue(7, "")
	require.NoError(t, err)

	payload, err := base64.RawURLEncoding.DecodeString(strings.Split(issued.Token, ".")[1])
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(payload, &raw))
	require.Equal(t, "7", raw["sub"])
	require.Equal(t, address, raw["iss"])
	require.EqualValues(t, clock.now.Unix(), raw["iat"])
	require.EqualValues(t, clock.now.Add(time.Hour).Unix(), raw["exp"])
	require.NotContains(t, raw, "email")
}

func TestManager_Expiry(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, token.NewHMACSigner(secretStr), clock, token.WithTokenExpiry(10*time.Minute))

	issued, err := m.Issue(1, "test@example.com")
	require.NoError(t, err)

	clock.now = clock.now.Add(10*time.Minute - time.Second)
	_, err = m.Verify(issued.Token)
	require.NoError(t, err)

	clock.now = clock.now.Add(time.Second)
	_, err = m.Verify(issued.Token)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)

	clock.now = clock.now.Add(24 * time.Hour)
	_, err = m.Verify(issued.Token)
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestManager_Rejects(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, token.NewHMACSigner(secretStr), clock)

	issued, err := m.Issue(1, "test@example.com")
	require.NoError(t, err)

	otherSecret := newTestManager(t, token.NewHMACSigner("other"), clock)
	forged, err := otherSecret.Issue(1, "test@example.com")
	require.NoError(t, err)

	otherIssuer := newTestManager(t, token.NewHMACSigner(secretStr), clock, token.WithIssuer("evil.example.com"))
	wrongIssuer, err := otherIssuer.Issue(1, "test@example.com")
	require.NoError(t, err)

	otherAudience := newTestManager(t, token.NewHMACSigner(secretStr), clock, token.WithAudience("elsewhere"))
	wrongAudience, err := otherAudience.Issue(1, "test@example.com")
	require.NoError(t, err)

	parts := strings.Split(issued.Token, ".")
	tampered := parts[0] + "." + base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"2","iss":"127.0.0.1:3001","aud":"127.0.0.1:3001","exp":9999999999}`)) + "." + parts[2]

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "1",
		Issuer:    address,
		Audience:  jwt.ClaimStrings{address},
		ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{
		Subject:   "1",
		Issuer:    address,
		Audience:  jwt.ClaimStrings{address},
		ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
	}).SignedString([]byte(secretStr))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:  "1",
		Issuer:   address,
		Audience: jwt.ClaimStrings{address},
	}).SignedString([]byte(secretStr))
	require.NoError(t, err)

	cases := map[string]string{
		"empty":          "",
		"garbage":        "not.a.token",
		"wrong secret":   forged.Token,
		"wrong issuer":   wrongIssuer.Token,
		"wrong audience": wrongAudience.Token,
		"tampered":       tampered,
		"alg none":       noneToken,
		"other alg":      hs512,
		"no expiry":      noExpiry,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := m.Verify(raw)
			require.ErrorIs(t, err, apperrors.ErrUnauthorized)
		})
	}
}

func TestManager_Introspect(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := newTestManager(t, token.NewHMACSigner(secretStr), clock)

	issued, err := m.Issue(5, "five@example.com")
	require.NoError(t, err)

	info := m.Introspect(issued.Token)
	require.True(t, info.Active)
	require.Equal(t, "5", *info.Sub)
	require.Equal(t, address, *info.Iss)
	require.Equal(t, address, *info.Aud)
	require.Equal(t, clock.now.Add(time.Hour).Unix(), *info.Exp)

	clock.now = clock.now.Add(2 * time.Hour)
	info = m.Introspect(issued.Token)
	require.False(t, info.Active)
	require.Nil(t, info.Sub)
}

func TestManager_KeyPairSigners(t *testing.T) {
	clock := &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}

	rsaPair, err := token.GenerateRSAKeyPair("rsa-1", "RS256", 2048)
	require.NoError(t, err)
	ecPair, err := token.GenerateECDSAKeyPair("ec-1", "ES256")
	require.NoError(t, err)

	for _, kp := range []*token.KeyPair{rsaPair, ecPair} {
		t.Run(kp.Algorithm, func(t *testing.T) {
			m := newTestManager(t, token.NewKeyPairSigner(kp), clock)

			issued, err := m.Issue(3, "three@example.com")
			require.NoError(t, err)

			parsed, _, err := jwt.NewParser().ParseUnverified(issued.Token, &token.Claims{})
			require.NoError(t, err)
			require.Equal(t, kp.KeyID, parsed.Header["kid"])
			require.Equal(t, kp.Algorithm, parsed.Header["alg"])

			claims, err := m.Verify(issued.Token)
			require.NoError(t, err)
			require.Equal(t, "3", claims.Subject)

			// An HMAC token signed with the public key must not verify.
			hmacManager := newTestManager(t, token.NewHMACSigner(secretStr), clock)
			hmacToken, err := hmacManager.Issue(3, "")
			require.NoError(t, err)
			_, err = m.Verify(hmacToken.Token)
			require.ErrorIs(t, err, apperrors.ErrUnauthorized)
		})
	}
}
