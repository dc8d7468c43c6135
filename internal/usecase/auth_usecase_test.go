package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/cagongu/blog-backend/internal/domain"
	"github.com/cagongu/blog-backend/internal/token"
)

var testStart = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

// testClock is a mutable clock safe for concurrent readers.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock { return &testClock{now: testStart} }

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

type memUserRepo struct {
	mu    sync.Mutex
	users map[int64]*domain.User
}

func newMemUserRepo(users ...*domain.User) *memUserRepo {
	r := &memUserRepo{users: make(map[int64]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id], nil
}

func (r *memUserRepo) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

// memTokenRepo mirrors the postgres repository's compare-and-swap rotation
// semantics under a mutex.
type memTokenRepo struct {
	mu      sync.Mutex
	nextID  int64
	records map[string]*domain.RefreshToken
	clock   *testClock
}

func newMemTokenRepo(clock *testClock) *memTokenRepo {
	return &memTokenRepo{records: make(map[string]*domain.RefreshToken), clock: clock}
}

func (r *memTokenRepo) Create(_ context.Context, t *domain.RefreshToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	t.ID = r.nextID
	cp := *t
	r.records[t.Token] = &cp
	return nil
}

func (r *memTokenRepo) GetByToken(_ context.Context, tok string) (*domain.RefreshToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[tok]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *memTokenRepo) Revoke(_ context.Context, tok string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[tok]; ok {
		rec.Revoked = true
	}
	return nil
}

func (r *memTokenRepo) Rotate(_ context.Context, oldToken, newToken string, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[oldToken]
	if !ok || rec.Revoked || !rec.ExpiresAt.After(r.clock.Now()) {
		return false, nil
	}
	delete(r.records, oldToken)
	rec.Token = newToken
	rec.ExpiresAt = expiresAt
	rec.Revoked = false
	r.records[newToken] = rec
	return true, nil
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

type fixture struct {
	auth   *AuthUsecase
	clock  *testClock
	users  *memUserRepo
	tokens *memTokenRepo
}

func newFixture(t *testing.T, users ...*domain.User) *fixture {
	t.Helper()
	clock := newTestClock()
	userRepo := newMemUserRepo(users...)
	tokenRepo := newMemTokenRepo(clock)

	secret := []byte("0123456789abcdef0123456789abcdef")
	codec := token.NewCodec(secret)
	issuer := token.NewIssuer(codec, token.IssuerConfig{
		Issuer:     "blog-backend",
		AccessTTL:  time.Hour,
		RefreshTTL: 168 * time.Hour,
		Now:        clock.Now,
	})
	verifier := token.NewVerifier(codec, token.VerifierConfig{
		Issuer: "blog-backend",
		Leeway: 5 * time.Second,
		Now:    clock.Now,
	})

	auth := NewAuthUsecase(userRepo, tokenRepo, issuer, verifier,
		AuthConfig{RefreshTTL: 168 * time.Hour, Now: clock.Now}, nil)
	return &fixture{auth: auth, clock: clock, users: userRepo, tokens: tokenRepo}
}

func alice(t *testing.T) *domain.User {
	return &domain.User{
		ID:           1,
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: hashPassword(t, "correct horse"),
		Active:       true,
		Roles:        []domain.Role{{Slug: "admin", Active: true}},
	}
}

func TestLoginSuccess(t *testing.T) {
	f := newFixture(t, alice(t))

	result, err := f.auth.Login(context.Background(), "alice", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
	assert.NotEmpty(t, result.RefreshToken)
	assert.Equal(t, int64(1), result.User.ID)
	assert.Equal(t, []string{"admin"}, result.User.RoleSlugs)

	assert.True(t, f.auth.Introspect(context.Background(), result.AccessToken))
}

func TestLoginUnknownUser(t *testing.T) {
	f := newFixture(t, alice(t))
	_, err := f.auth.Login(context.Background(), "mallory", "whatever")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.True(t, IsAuthFailure(err))
}

func TestLoginWrongPassword(t *testing.T) {
	f := newFixture(t, alice(t))
	_, err := f.auth.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginInactiveAccount(t *testing.T) {
	user := alice(t)
	user.Active = false
	f := newFixture(t, user)

	_, err := f.auth.Login(context.Background(), "alice", "correct horse")
	assert.ErrorIs(t, err, ErrInactiveAccount)
}

func TestIntrospectExpiredToken(t *testing.T) {
	f := newFixture(t, alice(t))
	result, err := f.auth.Login(context.Background(), "alice", "correct horse")
	require.NoError(t, err)

	assert.True(t, f.auth.Introspect(context.Background(), result.AccessToken))
	f.clock.Advance(2 * time.Hour)
	assert.False(t, f.auth.Introspect(context.Background(), result.AccessToken))
}

func TestIntrospectGarbage(t *testing.T) {
	f := newFixture(t, alice(t))
	assert.False(t, f.auth.Introspect(context.Background(), "not-a-token"))
	assert.False(t, f.auth.Introspect(context.Background(), ""))
}

func TestRefreshRotation(t *testing.T) {
	f := newFixture(t, alice(t))
	login, err := f.auth.Login(context.Background(), "alice", "correct horse")
	require.NoError(t, err)

	f.clock.Advance(time.Minute)
	first, err := f.auth.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, first.AccessToken)
	assert.NotEqual(t, login.RefreshToken, first.RefreshToken)

	// Single use: the rotated-out token no longer matches any record.
	_, err = f.auth.Refresh(context.Background(), login.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// The replacement still works.
	_, err = f.auth.Refresh(context.Background(), first.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshAfterLogout(t *testing.T) {
	f := newFixture(t, alice(t))
	login, err := f.auth.Login(context.Background(), "alice", "correct horse")
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(context.Background(), login.RefreshToken))

	_, err = f.auth.Refresh(context.Background(), login.RefreshToken)
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)
}

func TestRefreshExpiredRecord(t *testing.T) {
	f := newFixture(t, alice(t))
	login, err := f.auth.Login(context.Background(), "alice", "correct horse")
	require.NoError(t, err)

	f.clock.Advance(169 * time.Hour)
	_, err = f.auth.Refresh(context.Background(), login.RefreshToken)
	// The token's own expiry claim fires before the record check.
	assert.True(t, IsAuthFailure(err))
}

func TestRefreshWithAccessToken(t *testing.T) {
	f := newFixture(t, alice(t))
	login, err := f.auth.Login(context.Background(), "alice", "correct horse")
	require.NoError(t, err)

	_, err = f.auth.Refresh(context.Background(), login.AccessToken)
	assert.ErrorIs(t, err, token.ErrWrongKind)
}

func TestLogoutIdempotent(t *testing.T) {
	f := newFixture(t, alice(t))
	login, err := f.auth.Login(context.Background(), "alice", "correct horse")
	require.NoError(t, err)

	require.NoError(t, f.auth.Logout(context.Background(), login.RefreshToken))
	require.NoError(t, f.auth.Logout(context.Background(), login.RefreshToken))
	require.NoError(t, f.auth.Logout(context.Background(), "unknown-token"))
}

func TestConcurrentRefreshSingleWinner(t *testing.T) {
	f := newFixture(t, alice(t))
	login, err := f.auth.Login(context.Background(), "alice", "correct horse")
	require.NoError(t, err)

	const racers = 8
	results := make(chan error, racers)
	var start sync.WaitGroup
	start.Add(1)
	for i := 0; i < racers; i++ {
		go func() {
			start.Wait()
			_, err := f.auth.Refresh(context.Background(), login.RefreshToken)
			results <- err
		}()
	}
	start.Done()

	wins := 0
	for i := 0; i < racers; i++ {
		if err := <-results; err == nil {
			wins++
		} else {
			assert.True(t, IsAuthFailure(err))
		}
	}
	assert.Equal(t, 1, wins)

	// The losing calls must not have corrupted the store: exactly one live
	// record remains, and the original token is gone.
	rec, err := f.tokens.GetByToken(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.Nil(t, rec)
}
