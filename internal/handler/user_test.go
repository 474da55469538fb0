package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"contacts/internal/auth"
	"contacts/internal/config"
	"contacts/internal/model"
	"contacts/internal/repository"
	"contacts/internal/store"
)

// stubUsers is a map-backed auth.UserStore; only the lookups matter here.
type stubUsers struct {
	byEmail map[string]model.User
}

func (s *stubUsers) Create(_ context.Context, username, email, hash string) (model.User, error) {
	if _, ok := s.byEmail[email]; ok {
		return model.User{}, repository.ErrEmailExists
	}
	u := model.User{ID: uint64(len(s.byEmail) + 1), Username: username, Email: email, PasswordHash: hash, Role: model.RoleUser}
	s.byEmail[email] = u
	return u, nil
}

func (s *stubUsers) GetByEmail(_ context.Context, email string) (model.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *stubUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	for _, u := range s.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *stubUsers) GetByRefreshToken(_ context.Context, token string) (model.User, error) {
	for _, u := range s.byEmail {
		if u.RefreshToken != nil && *u.RefreshToken == token {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *stubUsers) SetRefreshToken(_ context.Context, email string, token *string) error {
	u, ok := s.byEmail[email]
	if !ok {
		return repository.ErrNotFound
	}
	u.RefreshToken = token
	s.byEmail[email] = u
	return nil
}

func (s *stubUsers) SetAvatar(_ context.Context, id uint64, url, assetID string) (model.User, error) {
	for email, u := range s.byEmail {
		if u.ID == id {
			u.Avatar, u.PublicID = url, assetID
			s.byEmail[email] = u
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *stubUsers) MarkConfirmed(_ context.Context, email string) error {
	u, ok := s.byEmail[email]
	if !ok {
		return repository.ErrNotFound
	}
	u.Confirmed = true
	s.byEmail[email] = u
	return nil
}

func (s *stubUsers) SetRole(_ context.Context, id uint64, role string) (model.User, error) {
	for email, u := range s.byEmail {
		if u.ID == id {
			u.Role = role
			s.byEmail[email] = u
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *stubUsers) SetPasswordHash(_ context.Context, email, hash string) error {
	u, ok := s.byEmail[email]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	u.RefreshToken = nil
	s.byEmail[email] = u
	return nil
}

// mailRecorder records verification enqueues in arrival order.
type mailRecorder struct {
	verifyTo []string
}

func (m *mailRecorder) EnqueueVerification(_ context.Context, email, _, _ string) error {
	m.verifyTo = append(m.verifyTo, email)
	return nil
}

// resetQueueStub satisfies auth.MailQueue for flows this file never drives.
type resetQueueStub struct{}

func (resetQueueStub) EnqueuePasswordReset(context.Context, string, string) error { return nil }

func newUserHandler(users *stubUsers) (*UserHandler, *mailRecorder) {
	svc := auth.NewService(
		users,
		store.NewRedisSessionStore(nil),
		auth.NewCodec("test-secret"),
		resetQueueStub{},
		nil,
		config.Config{ConfirmTTL: time.Hour},
	)
	mail := &mailRecorder{}
	return NewUserHandler(svc, mail), mail
}

func postRequestEmail(t *testing.T, h *UserHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/users/request_email", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h.RequestEmail(e.NewContext(req, rec)))
	return rec
}

func TestRequestEmailAlreadyConfirmedSendsNothing(t *testing.T) {
	users := &stubUsers{byEmail: map[string]model.User{
		"alice@example.com": {ID: 1, Username: "alice", Email: "alice@example.com", Confirmed: true},
	}}
	h, mail := newUserHandler(users)

	rec := postRequestEmail(t, h, `{"email":"alice@example.com"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "already confirmed")
	require.Empty(t, mail.verifyTo)
}

func TestRequestEmailUnconfirmedEnqueuesOnce(t *testing.T) {
	users := &stubUsers{byEmail: map[string]model.User{
		"bob@example.com": {ID: 2, Username: "bob", Email: "bob@example.com"},
	}}
	h, mail := newUserHandler(users)

	rec := postRequestEmail(t, h, `{"email":"bob@example.com"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, []string{"bob@example.com"}, mail.verifyTo)
}

func TestRequestEmailUnknownAddressStaysSilent(t *testing.T) {
	h, mail := newUserHandler(&stubUsers{byEmail: map[string]model.User{}})

	// Same status and body as the unconfirmed case; no mail leaves.
	rec := postRequestEmail(t, h, `{"email":"ghost@example.com"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Contains(t, rec.Body.String(), "Check your email")
	require.Empty(t, mail.verifyTo)
}

func TestRequestEmailMissingEmail(t *testing.T) {
	h, mail := newUserHandler(&stubUsers{byEmail: map[string]model.User{}})

	rec := postRequestEmail(t, h, `{"email":"  "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, mail.verifyTo)
}
