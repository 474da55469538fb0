package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"contacts/internal/config"
	"contacts/internal/model"
	"contacts/internal/repository"
	"contacts/internal/store"
)

// UserStore is the slice of the user repository the auth lifecycle needs.
// Implementations return repository.ErrNotFound / repository.ErrEmailExists
// for the corresponding failures.
type UserStore interface {
	Create(ctx context.Context, username, email, passwordHash string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByRefreshToken(ctx context.Context, token string) (model.User, error)
	SetRefreshToken(ctx context.Context, email string, token *string) error
	SetAvatar(ctx context.Context, id uint64, url, assetID string) (model.User, error)
	MarkConfirmed(ctx context.Context, email string) error
	SetRole(ctx context.Context, id uint64, role string) (model.User, error)
	SetPasswordHash(ctx context.Context, email, hash string) error
}

// MailQueue enqueues outbound mail for asynchronous best-effort delivery.
type MailQueue interface {
	EnqueuePasswordReset(ctx context.Context, email, token string) error
}

// BlobStorage stores avatar images with an external provider.
type BlobStorage interface {
	Upload(ctx context.Context, ownerID uint64, r io.Reader, contentType string) (url, assetID string, err error)
	Delete(ctx context.Context, assetID string) error
}

// TokenPair is the credential pair returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// Service owns the token lifecycle: issuance, refresh rotation, revocation
// tracking, email confirmation and the password-reset flow. Refresh-token
// validity is dual-tracked: the session store entry is the fast,
// authoritative check and the users.refresh_token column is a fallback
// that survives a store flush.
type Service struct {
	users    UserStore
	sessions store.SessionStore
	codec    *Codec
	mail     MailQueue
	blobs    BlobStorage
	cfg      config.Config
}

func NewService(users UserStore, sessions store.SessionStore, codec *Codec, mail MailQueue, blobs BlobStorage, cfg config.Config) *Service {
	return &Service{users: users, sessions: sessions, codec: codec, mail: mail, blobs: blobs, cfg: cfg}
}

// Register creates an unconfirmed USER account. The email is normalized to
// lowercase before storage so lookups are case-insensitive.
func (s *Service) Register(ctx context.Context, username, email, password string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	hash, err := HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return model.User{}, err
	}
	u, err := s.users.Create(ctx, username, email, hash)
	if errors.Is(err, repository.ErrEmailExists) {
		return model.User{}, ErrUserExists
	}
	if err != nil {
		return model.User{}, err
	}
	return u, nil
}

// Login verifies credentials, requires a confirmed email and mints an
// access/refresh pair. The refresh token is registered in the session
// store and mirrored onto the user row.
func (s *Service) Login(ctx context.Context, email, password string) (TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return TokenPair{}, err
	}
	if !VerifyPassword(u.PasswordHash, password) {
		return TokenPair{}, ErrInvalidCredentials
	}
	if !u.Confirmed {
		return TokenPair{}, ErrEmailNotConfirmed
	}

	access, err := s.codec.Encode(u.Email, s.cfg.AccessTTL, TokenAccess)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.codec.Encode(u.Email, s.cfg.RefreshTTL, TokenRefresh)
	if err != nil {
		return TokenPair{}, err
	}

	if err := s.users.SetRefreshToken(ctx, u.Email, &refresh); err != nil {
		return TokenPair{}, err
	}
	// The row copy above already makes the token refreshable; a store
	// outage only costs the fast path.
	if err := s.sessions.Set(ctx, store.RefreshKey(refresh), u.Email, s.cfg.RefreshTTL); err != nil {
		log.Printf("session store: register refresh token: %v", err)
	}

	return TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// Refresh mints a new access token against a still-valid refresh token.
// The refresh token is not rotated: repeated use of the same live token
// yields fresh access tokens and the same refresh token. Fast path: the
// session store knows the token. Fallback: the token matches the user-row
// copy, in which case it is re-registered into the store (self-healing
// after a store flush).
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	active, err := s.sessions.Exists(ctx, store.RefreshKey(refreshToken))
	if err != nil {
		// Store trouble degrades to the fallback row lookup.
		active = false
	}

	var u model.User
	if active {
		claims, err := s.codec.Decode(refreshToken, TokenRefresh)
		if err != nil {
			return TokenPair{}, ErrInvalidToken
		}
		u, err = s.users.GetByEmail(ctx, claims.Subject)
		if err != nil {
			return TokenPair{}, ErrInvalidToken
		}
	} else {
		u, err = s.users.GetByRefreshToken(ctx, refreshToken)
		if err != nil {
			return TokenPair{}, ErrInvalidToken
		}
		claims, err := s.codec.Decode(refreshToken, TokenRefresh)
		if err != nil {
			return TokenPair{}, ErrInvalidToken
		}
		if claims.Subject != u.Email {
			return TokenPair{}, ErrInvalidToken
		}
		// Recovered via the fallback path only: heal the store entry.
		_ = s.sessions.Set(ctx, store.RefreshKey(refreshToken), u.Email, s.cfg.RefreshTTL)
	}

	access, err := s.codec.Encode(u.Email, s.cfg.AccessTTL, TokenAccess)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refreshToken, TokenType: "bearer"}, nil
}

// Logout clears the fallback refresh-token copy on the user row. The
// session store entry is left to expire on its own TTL; only a password
// reset revokes it eagerly.
func (s *Service) Logout(ctx context.Context, email string) error {
	return s.users.SetRefreshToken(ctx, email, nil)
}

// ConfirmEmail marks the account behind an email-confirmation token as
// verified. Confirming an already-confirmed account is a no-op success;
// the returned flag reports that case.
func (s *Service) ConfirmEmail(ctx context.Context, token string) (alreadyConfirmed bool, err error) {
	claims, err := s.codec.Decode(token, TokenEmailConfirmation)
	if err != nil {
		return false, ErrInvalidToken
	}
	u, err := s.users.GetByEmail(ctx, claims.Subject)
	if errors.Is(err, repository.ErrNotFound) {
		return false, ErrUserNotFound
	}
	if err != nil {
		return false, err
	}
	if u.Confirmed {
		return true, nil
	}
	return false, s.users.MarkConfirmed(ctx, u.Email)
}

// NewConfirmationToken mints a single-purpose email-confirmation token.
func (s *Service) NewConfirmationToken(email string) (string, error) {
	return s.codec.Encode(strings.ToLower(strings.TrimSpace(email)), s.cfg.ConfirmTTL, TokenEmailConfirmation)
}

// RequestPasswordReset starts the two-step reset flow. An unknown email is
// a silent no-op so this layer never confirms whether an account exists.
// For a known account it mints a password_reset token, records it in the
// session store for early revocation and single-use enforcement, and
// enqueues the reset mail (fire-and-forget).
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	token, err := s.codec.Encode(u.Email, s.cfg.ResetTTL, TokenPasswordReset)
	if err != nil {
		return err
	}
	if err := s.sessions.Set(ctx, store.ResetKey(token), u.Email, s.cfg.ResetTTL); err != nil {
		return err
	}
	if err := s.mail.EnqueuePasswordReset(ctx, u.Email, token); err != nil {
		// Delivery is best-effort; the token stays valid for a retry.
		return nil
	}
	return nil
}

// ResetPassword completes the reset flow. The store entry is consumed
// atomically up front (GETDEL), so of two concurrent calls with the same
// token exactly one proceeds. An absent entry - a prior use, an explicit
// revocation or TTL expiry - reads as an invalid token. The token must
// decode as password_reset and its subject must match the consumed email.
// On success the password hash is overwritten, the fallback refresh token
// is cleared and any live session-store entry for that refresh token is
// revoked.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	email, ok, err := s.sessions.GetDel(ctx, store.ResetKey(token))
	if err != nil || !ok {
		return ErrInvalidToken
	}

	claims, err := s.codec.Decode(token, TokenPasswordReset)
	if err != nil {
		return ErrInvalidToken
	}
	if claims.Subject != email {
		return ErrInvalidToken
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}

	hash, err := HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.SetPasswordHash(ctx, u.Email, hash); err != nil {
		return err
	}
	if u.RefreshToken != nil {
		_ = s.sessions.Delete(ctx, store.RefreshKey(*u.RefreshToken))
	}
	return nil
}

// ChangeRole sets the target user's role. Setting the role a user already
// has returns the user unchanged.
func (s *Service) ChangeRole(ctx context.Context, targetID uint64, role string) (model.User, error) {
	u, err := s.users.GetByID(ctx, targetID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	if u.Role == role {
		return u, nil
	}
	return s.users.SetRole(ctx, targetID, role)
}

// UpdateAvatar uploads a new avatar, persists its URL and asset id, then
// best-effort deletes the previous asset. A failed cleanup never fails the
// request; the new avatar is already live.
func (s *Service) UpdateAvatar(ctx context.Context, userID uint64, r io.Reader, contentType string) (model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, err
	}

	oldAsset := u.PublicID
	url, assetID, err := s.blobs.Upload(ctx, userID, r, contentType)
	if err != nil {
		return model.User{}, fmt.Errorf("upload avatar: %w", err)
	}
	updated, err := s.users.SetAvatar(ctx, userID, url, assetID)
	if err != nil {
		return model.User{}, err
	}
	if oldAsset != "" && oldAsset != assetID {
		_ = s.blobs.Delete(ctx, oldAsset)
	}
	return updated, nil
}

// GetByEmail resolves a user for the authentication middleware.
func (s *Service) GetByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}
