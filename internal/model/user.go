package model

import "time"

// Role values stored in users.role.  New accounts default to RoleUser; the
// admin role is granted only through the role-change endpoint.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents an application user record as stored in the `users`
// table.  RefreshToken holds the fallback copy of the currently issued
// refresh token (the authoritative liveness record lives in Redis); it is
// nil when the user is logged out.  PublicID is the storage-provider asset
// id of the avatar, kept so a replaced avatar can be cleaned up.
type User struct {
	ID           uint64     // users.id
	Username     string     // users.username (unique)
	Email        string     // users.email (unique, lowercase)
	PasswordHash string     // users.password_hash (bcrypt)
	RefreshToken *string    // users.refresh_token (nullable fallback copy)
	Avatar       string     // users.avatar (public URL, may be empty)
	PublicID     string     // users.public_id (storage asset id, may be empty)
	Confirmed    bool       // users.confirmed
	Role         string     // users.role (USER or ADMIN)
	CreatedAt    time.Time  // users.created_at
	UpdatedAt    time.Time  // users.updated_at
}
