package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"contacts/internal/model"
)

// UserRepo provides access to the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,username,email,password_hash,refresh_token,avatar,public_id,confirmed,role,created_at,updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u       model.User
		refresh sql.NullString
		avatar  sql.NullString
		pubID   sql.NullString
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &refresh,
		&avatar, &pubID, &u.Confirmed, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	if refresh.Valid {
		u.RefreshToken = &refresh.String
	}
	u.Avatar = avatar.String
	u.PublicID = pubID.String
	return u, nil
}

// Create inserts a user with defaults (unconfirmed, USER role) and returns
// the stored row.
func (r *UserRepo) Create(ctx context.Context, username, email, passwordHash string) (model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, confirmed, role) VALUES (?,?,?,FALSE,?)",
		username, email, passwordHash, model.RoleUser)
	if err != nil {
		if isDuplicate(err) {
			return model.User{}, ErrEmailExists
		}
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// GetByRefreshToken fetches the user whose row currently carries the given
// refresh token. This is the fallback lookup used when the session store
// has no entry for the token.
func (r *UserRepo) GetByRefreshToken(ctx context.Context, token string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE refresh_token=? LIMIT 1", token))
}

// SetRefreshToken stores (or clears, when nil) the fallback refresh-token
// copy on the user row.
func (r *UserRepo) SetRefreshToken(ctx context.Context, email string, token *string) error {
	var v sql.NullString
	if token != nil {
		v = sql.NullString{String: *token, Valid: true}
	}
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET refresh_token=? WHERE email=?", v, email)
	return err
}

// SetAvatar updates the avatar URL and storage asset id.
func (r *UserRepo) SetAvatar(ctx context.Context, id uint64, url, assetID string) (model.User, error) {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET avatar=?, public_id=? WHERE id=?", url, assetID, id)
	if err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

// MarkConfirmed flags the user's email address as verified.
func (r *UserRepo) MarkConfirmed(ctx context.Context, email string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET confirmed=TRUE WHERE email=?", email)
	return err
}

// SetRole changes the user's role and returns the updated row.
func (r *UserRepo) SetRole(ctx context.Context, id uint64, role string) (model.User, error) {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET role=? WHERE id=?", role, id)
	if err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}

// SetPasswordHash overwrites the password hash and clears the fallback
// refresh token in the same statement, forcing re-login everywhere.
func (r *UserRepo) SetPasswordHash(ctx context.Context, email, hash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE users SET password_hash=?, refresh_token=NULL WHERE email=?", hash, email)
	return err
}

// isDuplicate reports whether err is a MySQL duplicate-key violation (1062).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "1062")
}
