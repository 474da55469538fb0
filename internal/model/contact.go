package model

import "time"

// Contact is a single address-book entry owned by one user.  The json tags
// are used both for API responses and for the cached representation in
// Redis, so cached entries deserialize back into the same shape handlers
// return.  Birthday carries only a calendar date; matching ignores the year.
type Contact struct {
	ID        uint64     `json:"id"`         // contacts.id
	UserID    uint64     `json:"user_id"`    // contacts.user_id (owner)
	FirstName string     `json:"first_name"` // contacts.first_name
	LastName  string     `json:"last_name"`  // contacts.last_name
	Email     string     `json:"email"`      // contacts.email (globally unique, see uq_contacts_email)
	Phone     string     `json:"phone"`      // contacts.phone
	Birthday  *time.Time `json:"birthday,omitempty"`   // contacts.birthday (nullable DATE)
	ExtraInfo *string    `json:"extra_info,omitempty"` // contacts.extra_info (nullable TEXT)
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
