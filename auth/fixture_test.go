package auth_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-credential-service/auth"
	fakepasswordchangerepo "github.com/jrsteele09/go-credential-service/auth/repofakes"
	"github.com/jrsteele09/go-credential-service/hashing"
	"github.com/jrsteele09/go-credential-service/mailer"
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
	testUserEmail    = "test@example.com"
	testUserName     = "name #1"
	testUserPassword = "pass123"
)

var tokenPattern = regexp.MustCompile(`token=([0-9a-f]{64})`)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (n *fakeNotifier) Dispatch(msg mailer.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *fakeNotifier) messages() []mailer.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]mailer.Message(nil), n.sent...)
}

type fakeRecorder struct {
	mu        sync.Mutex
	logins    []string
	requests  []string
	confirmed []string
}

func (r *fakeRecorder) LoginAttempt(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logins = append(r.logins, outcome)
}

func (r *fakeRecorder) ChangeRequested(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, outcome)
}

func (r *fakeRecorder) ChangeConfirmed(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmed = append(r.confirmed, outcome)
}

// testFixture holds all test dependencies
type testFixture struct {
	clock       *testClock
	userRepo    *fakeuserrepo.FakeUserRepo
	changeRepo  *fakepasswordchangerepo.FakePasswordChangeRepo
	hasher      hashing.Hasher
	tokens      *token.Manager
	notifier    *fakeNotifier
	recorder    *fakeRecorder
	credentials *auth.CredentialService
	guard       *auth.AccessGuard
	flow        *auth.PasswordChangeFlow
}

// setupTestFixture creates a new test fixture with all dependencies
func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	f := &testFixture{
		clock:    &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		userRepo: fakeuserrepo.NewFakeUserRepo(),
		hasher:   hashing.NewBcryptHasher(hashing.WithCost(bcrypt.MinCost)),
		notifier: &fakeNotifier{},
		recorder: &fakeRecorder{},
	}
	f.changeRepo = fakepasswordchangerepo.NewFakePasswordChangeRepo(f.userRepo)

	tokens, err := token.New(
		token.NewHMACSigner(secretStr),
		token.WithIssuer(serviceAddress),
		token.WithAudience(serviceAddress),
		token.WithNowFunc(f.clock.Now),
	)
	require.NoError(t, err)
	f.tokens = tokens

	options := []auth.Option{auth.WithNowTime(f.clock.Now), auth.WithRecorder(f.recorder)}

	f.credentials, err = auth.NewCredentialService(f.userRepo, f.hasher, tokens, options...)
	require.NoError(t, err)

	f.guard, err = auth.NewAccessGuard(tokens)
	require.NoError(t, err)

	f.flow, err = auth.NewPasswordChangeFlow(
		auth.Repos{Users: f.userRepo, PasswordChanges: f.changeRepo},
		f.hasher,
		f.notifier,
		auth.PasswordChangeConfig{ConfirmURL: confirmURL, ConfirmationTTL: time.Hour},
		options...,
	)
	require.NoError(t, err)

	return f
}

func (f *testFixture) seedUser(t *testing.T, name, email, password string) *users.User {
	t.Helper()
	digest, err := f.hasher.Hash(password)
	require.NoError(t, err)
	u := &users.User{Name: name, Email: email, PasswordHash: digest}
	require.NoError(t, f.userRepo.Create(context.Background(), u))
	return u
}

func (f *testFixture) seedDefaultUser(t *testing.T) *users.User {
	t.Helper()
	return f.seedUser(t, testUserName, testUserEmail, testUserPassword)
}

func (f *testFixture) login(t *testing.T, email, password string) *auth.LoginResponse {
	t.Helper()
	resp, err := f.credentials.Login(context.Background(), auth.NewCredentials(email, password))
	require.NoError(t, err)
	return resp
}

// lastConfirmationToken extracts the token from the most recent mail.
func (f *testFixture) lastConfirmationToken(t *testing.T) string {
	t.Helper()
	msgs := f.notifier.messages()
	require.NotEmpty(t, msgs)
	match := tokenPattern.FindStringSubmatch(msgs[len(msgs)-1].Body)
	require.Len(t, match, 2)
	return match[1]
}

var errStorage = errors.New("storage unavailable")
