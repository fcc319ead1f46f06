package token

import (
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-credential-service/internal/errors"
	"github.com/jrsteele09/go-credential-service/internal/utils"
	"github.com/pkg/errors"
)

const DefaultAccessTokenExpiry = time.Hour

// Claims is the payload of an access token.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// AccessToken is a freshly minted, signed token and the values it carries.
type AccessToken struct {
	Token     string
	ID        string
	Subject   string
	Issuer    string
	Audience  string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ExpiresIn time.Duration
}

// TokenIntrospection represents the metadata of a token, RFC 7662 style.
// When Active is false no other field is populated.
type TokenIntrospection struct {
	Active bool    `json:"active"`        // True or false - Is the token valid
	Aud    *string `json:"aud,omitempty"` // Audience
	Exp    *int64  `json:"exp,omitempty"` // Expiration
	Iat    *int64  `json:"iat,omitempty"` // Issued at time
	Iss    *string `json:"iss,omitempty"` // Issuer of the token
	Sub    *string `json:"sub,omitempty"` // Users unique ID
	Jti    *string `json:"jti,omitempty"` // Token ID
}

// Manager mints and verifies self-contained access tokens. It holds no
// mutable state after construction and is safe for concurrent use.
type Manager struct {
	signer            Signer
	issuer            string
	audience          string
	accessTokenExpiry time.Duration
	nowFunc           func() time.Time
}

type ManagerOption func(*Manager)

func WithTokenExpiry(accessTokenExpiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = accessTokenExpiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func WithAudience(audience string) ManagerOption {
	return func(m *Manager) {
		m.audience = audience
	}
}

func New(signer Signer, options ...ManagerOption) (*Manager, error) {
	if signer == nil {
		return nil, errors.New("[token.New] signer is required")
	}

	m := &Manager{
		signer: signer,
	}
	for _, opt := range options {
		opt(m)
	}

	if m.accessTokenExpiry <= 0 {
		m.accessTokenExpiry = DefaultAccessTokenExpiry
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m, nil
}

func (m *Manager) Issuer() string {
	return m.issuer
}

func (m *Manager) Audience() string {
	return m.audience
}

func (m *Manager) Expiry() time.Duration {
	return m.accessTokenExpiry
}

func (m *Manager) Signer() Signer {
	return m.signer
}

// Issue mints a signed access token for the subject.
func (m *Manager) Issue(subject int64, email string) (*AccessToken, error) {
	// JWT numeric dates have second precision.
	issuedAt := m.nowFunc().Truncate(time.Second)
	expiresAt := issuedAt.Add(m.accessTokenExpiry)

	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   strconv.FormatInt(subject, 10),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.New().String(),
		},
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}

	signed, err := m.signer.Sign(claims)
	if err != nil {
		return nil, errors.Wrap(err, "[Manager.Issue] failed to sign access token")
	}

	return &AccessToken{
		Token:     signed,
		ID:        claims.ID,
		Subject:   claims.Subject,
		Issuer:    m.issuer,
		Audience:  m.audience,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
		ExpiresIn: m.accessTokenExpiry,
	}, nil
}

// Verify checks signature, algorithm, issuer, audience and expiry against the
// current clock. Every failure is reported as errors.ErrUnauthorized.
func (m *Manager) Verify(rawToken string) (*Claims, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, errors.Wrap(apperrors.ErrUnauthorized, "[Manager.Verify] empty token")
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.signer.GetSigningMethod().Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.nowFunc),
	}
	if m.issuer != "" {
		options = append(options, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		options = append(options, jwt.WithAudience(m.audience))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(rawToken, claims, m.signer.GetVerificationKey, options...)
	if err != nil {
		return nil, errors.Wrapf(apperrors.ErrUnauthorized, "[Manager.Verify] %v", err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, errors.Wrap(apperrors.ErrUnauthorized, "[Manager.Verify] invalid token")
	}
	return claims, nil
}

// SubjectID returns the numeric subject of verified claims.
func (c *Claims) SubjectID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(apperrors.ErrUnauthorized, "[Claims.SubjectID] subject %q is not an id", c.Subject)
	}
	return id, nil
}

// Introspect reports whether a token is currently active and, if so, its
// registered claims.
func (m *Manager) Introspect(rawToken string) *TokenIntrospection {
	claims, err := m.Verify(rawToken)
	if err != nil {
		return &TokenIntrospection{Active: false}
	}

	var aud *string
	if len(claims.Audience) > 0 {
		aud = utils.Ptr(claims.Audience[0])
	}

	return &TokenIntrospection{
		Active: true,
		Aud:    aud,
		Exp:    utils.Ptr(claims.ExpiresAt.Unix()),
		Iat:    utils.Ptr(claims.IssuedAt.Unix()),
		Iss:    utils.Ptr(claims.Issuer),
		Sub:    utils.Ptr(claims.Subject),
		Jti:    utils.Ptr(claims.ID),
	}
}
