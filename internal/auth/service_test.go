package auth

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"contacts/internal/config"
	"contacts/internal/model"
	"contacts/internal/repository"
	"contacts/internal/store"
)

// ----- fakes -----

type fakeUsers struct {
	byEmail map[string]*model.User
	nextID  uint64
}

func newFakeUsers() *fakeUsers { return &fakeUsers{byEmail: map[string]*model.User{}} }

func (f *fakeUsers) Create(_ context.Context, username, email, hash string) (model.User, error) {
	if _, ok := f.byEmail[email]; ok {
		return model.User{}, repository.ErrEmailExists
	}
	f.nextID++
	u := &model.User{ID: f.nextID, Username: username, Email: email, PasswordHash: hash, Role: model.RoleUser}
	f.byEmail[email] = u
	return *u, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return *u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) GetByRefreshToken(_ context.Context, token string) (model.User, error) {
	for _, u := range f.byEmail {
		if u.RefreshToken != nil && *u.RefreshToken == token {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) SetRefreshToken(_ context.Context, email string, token *string) error {
	u, ok := f.byEmail[email]
	if !ok {
		return repository.ErrNotFound
	}
	if token == nil {
		u.RefreshToken = nil
		return nil
	}
	cp := *token
	u.RefreshToken = &cp
	return nil
}

func (f *fakeUsers) SetAvatar(_ context.Context, id uint64, url, assetID string) (model.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			u.Avatar = url
			u.PublicID = assetID
			return *u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (f *fakeUsers) MarkConfirmed(_ context.Context, email string) error {
	u, ok := f.byEmail[email]
	if !ok {
		return repository.ErrNotFound
	}
	u.Confirmed = true
	return nil
}

func (f *fakeUsers) SetRole(_ context.Context, id uint64, role string) (model.User, error) {
	for _, u := range f.byEmail {
		if u.ID == id {
			u.Role = role
			return *u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

// SetPasswordHash mirrors the SQL repo: the refresh-token column is
// cleared by the same statement.
func (f *fakeUsers) SetPasswordHash(_ context.Context, email, hash string) error {
	u, ok := f.byEmail[email]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	u.RefreshToken = nil
	return nil
}

type fakeMail struct {
	resetTo     []string
	resetTokens []string
}

func (f *fakeMail) EnqueuePasswordReset(_ context.Context, email, token string) error {
	f.resetTo = append(f.resetTo, email)
	f.resetTokens = append(f.resetTokens, token)
	return nil
}

type fakeBlobs struct {
	deleted []string
}

func (f *fakeBlobs) Upload(_ context.Context, ownerID uint64, _ io.Reader, _ string) (string, string, error) {
	key := fmt.Sprintf("avatars/%d.png", ownerID)
	return "http://cdn.local/" + key, key, nil
}

func (f *fakeBlobs) Delete(_ context.Context, assetID string) error {
	f.deleted = append(f.deleted, assetID)
	return nil
}

// ----- harness -----

type testEnv struct {
	svc      *Service
	users    *fakeUsers
	mail     *fakeMail
	blobs    *fakeBlobs
	sessions store.SessionStore
	mr       *miniredis.Miniredis
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := config.Config{
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
		ResetTTL:   15 * time.Minute,
		ConfirmTTL: 7 * 24 * time.Hour,
		BcryptCost: bcrypt.MinCost,
	}
	env := &testEnv{
		users:    newFakeUsers(),
		mail:     &fakeMail{},
		blobs:    &fakeBlobs{},
		sessions: store.NewRedisSessionStore(client),
		mr:       mr,
	}
	env.svc = NewService(env.users, env.sessions, NewCodec("test-secret"), env.mail, env.blobs, cfg)
	return env
}

// registerConfirmed creates a confirmed account ready to log in.
func (e *testEnv) registerConfirmed(t *testing.T, email, password string) model.User {
	t.Helper()
	ctx := context.Background()
	u, err := e.svc.Register(ctx, "someone", email, password)
	require.NoError(t, err)
	token, err := e.svc.NewConfirmationToken(email)
	require.NoError(t, err)
	_, err = e.svc.ConfirmEmail(ctx, token)
	require.NoError(t, err)
	u, err = e.users.GetByEmail(ctx, email)
	require.NoError(t, err)
	return u
}

// ----- tests -----

func TestRegisterLoginFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.svc.Register(ctx, "alice", "  Alice@Example.COM ", "s3cret")
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", u.Email, "email is normalized before storage")
	require.False(t, u.Confirmed)
	require.Equal(t, model.RoleUser, u.Role)

	// Unconfirmed accounts cannot log in.
	_, err = env.svc.Login(ctx, "alice@example.com", "s3cret")
	require.ErrorIs(t, err, ErrEmailNotConfirmed)

	token, err := env.svc.NewConfirmationToken("alice@example.com")
	require.NoError(t, err)
	already, err := env.svc.ConfirmEmail(ctx, token)
	require.NoError(t, err)
	require.False(t, already)

	pair, err := env.svc.Login(ctx, "alice@example.com", "s3cret")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, "bearer", pair.TokenType)

	// Dual tracking: session store entry and user-row copy both present.
	ok, err := env.sessions.Exists(ctx, store.RefreshKey(pair.RefreshToken))
	require.NoError(t, err)
	require.True(t, ok)
	row, _ := env.users.GetByEmail(ctx, "alice@example.com")
	require.NotNil(t, row.RefreshToken)
	require.Equal(t, pair.RefreshToken, *row.RefreshToken)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)
	_, err = env.svc.Register(ctx, "other", "alice@example.com", "different")
	require.ErrorIs(t, err, ErrUserExists)
}

func TestLoginBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerConfirmed(t, "alice@example.com", "s3cret")

	_, err := env.svc.Login(ctx, "alice@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown account is indistinguishable from a wrong password.
	_, err = env.svc.Login(ctx, "nobody@example.com", "s3cret")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshDoesNotRotate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerConfirmed(t, "alice@example.com", "s3cret")

	pair, err := env.svc.Login(ctx, "alice@example.com", "s3cret")
	require.NoError(t, err)

	first, err := env.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	second, err := env.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	require.Equal(t, pair.RefreshToken, first.RefreshToken)
	require.Equal(t, pair.RefreshToken, second.RefreshToken)
	require.NotEmpty(t, first.AccessToken)
	require.NotEmpty(t, second.AccessToken)
}

func TestRefreshFallbackSelfHeals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerConfirmed(t, "alice@example.com", "s3cret")

	pair, err := env.svc.Login(ctx, "alice@example.com", "s3cret")
	require.NoError(t, err)

	// Simulate a store flush; the user-row copy keeps the token valid.
	env.mr.FlushAll()

	got, err := env.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, pair.RefreshToken, got.RefreshToken)

	// The fallback path re-registers the store entry.
	ok, err := env.sessions.Exists(ctx, store.RefreshKey(pair.RefreshToken))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRefreshRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Refresh(ctx, "junk")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerConfirmed(t, "alice@example.com", "s3cret")

	pair, err := env.svc.Login(ctx, "alice@example.com", "s3cret")
	require.NoError(t, err)

	_, err = env.svc.Refresh(ctx, pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogoutClearsRowCopyOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerConfirmed(t, "alice@example.com", "s3cret")

	pair, err := env.svc.Login(ctx, "alice@example.com", "s3cret")
	require.NoError(t, err)

	require.NoError(t, env.svc.Logout(ctx, "alice@example.com"))

	row, _ := env.users.GetByEmail(ctx, "alice@example.com")
	require.Nil(t, row.RefreshToken)

	// The store entry rides out its TTL; the fast path still accepts the
	// token until then.
	ok, err := env.sessions.Exists(ctx, store.RefreshKey(pair.RefreshToken))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestConfirmEmailIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Register(ctx, "alice", "alice@example.com", "s3cret")
	require.NoError(t, err)
	token, err := env.svc.NewConfirmationToken("alice@example.com")
	require.NoError(t, err)

	already, err := env.svc.ConfirmEmail(ctx, token)
	require.NoError(t, err)
	require.False(t, already)

	already, err = env.svc.ConfirmEmail(ctx, token)
	require.NoError(t, err)
	require.True(t, already)
}

func TestConfirmEmailRejectsOtherTokenTypes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerConfirmed(t, "alice@example.com", "s3cret")

	pair, err := env.svc.Login(ctx, "alice@example.com", "s3cret")
	require.NoError(t, err)

	_, err = env.svc.ConfirmEmail(ctx, pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerConfirmed(t, "alice@example.com", "old-pass")

	pair, err := env.svc.Login(ctx, "alice@example.com", "old-pass")
	require.NoError(t, err)

	require.NoError(t, env.svc.RequestPasswordReset(ctx, "alice@example.com"))
	require.Len(t, env.mail.resetTokens, 1)
	token := env.mail.resetTokens[0]

	require.NoError(t, env.svc.ResetPassword(ctx, token, "new-pass"))

	// Old password dead, new one live.
	_, err = env.svc.Login(ctx, "alice@example.com", "old-pass")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = env.svc.Login(ctx, "alice@example.com", "new-pass")
	require.NoError(t, err)

	// The pre-reset refresh token is revoked on both tracks.
	_, err = env.svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordResetSingleUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerConfirmed(t, "alice@example.com", "old-pass")

	require.NoError(t, env.svc.RequestPasswordReset(ctx, "alice@example.com"))
	token := env.mail.resetTokens[0]

	require.NoError(t, env.svc.ResetPassword(ctx, token, "new-pass"))
	err := env.svc.ResetPassword(ctx, token, "sneaky-pass")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = env.svc.Login(ctx, "alice@example.com", "new-pass")
	require.NoError(t, err)
}

func TestPasswordResetExpiresWithStoreEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.registerConfirmed(t, "alice@example.com", "old-pass")

	require.NoError(t, env.svc.RequestPasswordReset(ctx, "alice@example.com"))
	token := env.mail.resetTokens[0]

	env.mr.FastForward(16 * time.Minute)

	err := env.svc.ResetPassword(ctx, token, "new-pass")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRequestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.svc.RequestPasswordReset(ctx, "nobody@example.com"))
	require.Empty(t, env.mail.resetTokens)
}

func TestChangeRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.registerConfirmed(t, "alice@example.com", "s3cret")

	_, err := env.svc.ChangeRole(ctx, 9999, model.RoleAdmin)
	require.ErrorIs(t, err, ErrUserNotFound)

	got, err := env.svc.ChangeRole(ctx, u.ID, model.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, model.RoleAdmin, got.Role)

	// Same role again is a no-op success.
	got, err = env.svc.ChangeRole(ctx, u.ID, model.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, model.RoleAdmin, got.Role)
}

func TestUpdateAvatarReplacesOldAsset(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.registerConfirmed(t, "alice@example.com", "s3cret")

	got, err := env.svc.UpdateAvatar(ctx, u.ID, strings.NewReader("img-1"), "image/png")
	require.NoError(t, err)
	require.NotEmpty(t, got.Avatar)
	require.NotEmpty(t, got.PublicID)
	require.Empty(t, env.blobs.deleted, "first upload has nothing to clean up")

	// Same fixed key: re-upload overwrites, no delete needed.
	_, err = env.svc.UpdateAvatar(ctx, u.ID, strings.NewReader("img-2"), "image/png")
	require.NoError(t, err)
	require.Empty(t, env.blobs.deleted)
}
