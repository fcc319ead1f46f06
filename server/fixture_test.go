package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-credential-service/auth"
	fakepasswordchangerepo "github.com/jrsteele09/go-credential-service/auth/repofakes"
	"github.com/jrsteele09/go-credential-service/hashing"
	"github.com/jrsteele09/go-credential-service/internal/config"
	"github.com/jrsteele09/go-credential-service/mailer"
	"github.com/jrsteele09/go-credential-service/metrics"
	"github.com/jrsteele09/go-credential-service/server"
	"github.com/jrsteele09/go-credential-service/token"
	"github.com/jrsteele09/go-credential-service/users"
	fakeuserrepo "github.com/jrsteele09/go-credential-service/users/repofake"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	secretStr        = "1234"
	serviceAddress   = "127.0.0.1:3001"
	confirmURL       = "http://127.0.0.1:3001/api/auth/change-password/confirm"
	allowedOrigin    = "http://allowed.example"
	testUserEmail    = "test@example.com"
	testUserName     = "name #1"
	testUserPassword = "pass123"
)

var tokenPattern = regexp.MustCompile(`token=([0-9a-f]{64})`)

type testConfig struct {
	config.EnvVars
	config.Cors
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []mailer.Message
}

func (n *fakeNotifier) Dispatch(msg mailer.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func (n *fakeNotifier) lastToken(t *testing.T) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent)
	match := tokenPattern.FindStringSubmatch(n.sent[len(n.sent)-1].Body)
	require.Len(t, match, 2)
	return match[1]
}

// testFixture holds all test dependencies
type testFixture struct {
	userRepo *fakeuserrepo.FakeUserRepo
	hasher   hashing.Hasher
	tokens   *token.Manager
	notifier *fakeNotifier
	metrics  *metrics.Metrics
	server   *server.Server
}

// setupTestFixture creates a new test fixture with all dependencies
func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	return setupTestFixtureWithSigner(t, token.NewHMACSigner(secretStr))
}

func setupTestFixtureWithSigner(t *testing.T, signer token.Signer) *testFixture {
	t.Helper()

	f := &testFixture{
		userRepo: fakeuserrepo.NewFakeUserRepo(),
		hasher:   hashing.NewBcryptHasher(hashing.WithCost(bcrypt.MinCost)),
		notifier: &fakeNotifier{},
		metrics:  metrics.New(),
	}
	changeRepo := fakepasswordchangerepo.NewFakePasswordChangeRepo(f.userRepo)

	tokens, err := token.New(signer, token.WithIssuer(serviceAddress), token.WithAudience(serviceAddress))
	require.NoError(t, err)
	f.tokens = tokens

	options := []auth.Option{auth.WithRecorder(f.metrics)}

	credentials, err := auth.NewCredentialService(f.userRepo, f.hasher, tokens, options...)
	require.NoError(t, err)
	guard, err := auth.NewAccessGuard(tokens)
	require.NoError(t, err)
	flow, err := auth.NewPasswordChangeFlow(
		auth.Repos{Users: f.userRepo, PasswordChanges: changeRepo},
		f.hasher,
		f.notifier,
		auth.PasswordChangeConfig{ConfirmURL: confirmURL, ConfirmationTTL: time.Hour},
		options...,
	)
	require.NoError(t, err)
	userService, err := users.NewService(f.userRepo, f.hasher)
	require.NoError(t, err)

	cfg := testConfig{
		EnvVars: config.EnvVars{Env: "TEST", ServiceAddress: serviceAddress},
		Cors: config.Cors{
			Origins: []string{allowedOrigin},
			Methods: "GET, POST, OPTIONS",
			Headers: "Content-Type, Authorization",
		},
	}
	f.server, err = server.New(cfg, server.Services{
		Credentials:     credentials,
		Guard:           guard,
		PasswordChanges: flow,
		Users:           userService,
		Tokens:          tokens,
		Metrics:         f.metrics,
	})
	require.NoError(t, err)

	return f
}

func (f *testFixture) seedDefaultUser(t *testing.T) *users.User {
	t.Helper()
	digest, err := f.hasher.Hash(testUserPassword)
	require.NoError(t, err)
	u := &users.User{Name: testUserName, Email: testUserEmail, PasswordHash: digest}
	require.NoError(t, f.userRepo.Create(context.Background(), u))
	return u
}

// do sends a request through the server. A string body is sent verbatim,
// anything else is JSON encoded.
func (f *testFixture) do(t *testing.T, method, path string, body any, bearer string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

// postForm submits values the way the confirmation page's form does.
func postForm(t *testing.T, f *testFixture, target string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec
}

func (f *testFixture) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, server.RouteLogin, map[string]string{"email": email, "password": password}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp auth.LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.AccessToken
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}
