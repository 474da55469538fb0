// Package cache provides the read-through query cache for contact
// searches and birthday lookups. Keys are namespaced per owner so a
// write by one user never has to touch another user's entries.
package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
)

// SearchKey derives the cache key for a contact search. Filters are
// trimmed and lowercased before hashing, so "Alice " and "alice" share an
// entry. The payload fields are concatenated in a fixed order; pagination
// is part of the identity, different pages cache separately.
func SearchKey(ownerID uint64, firstName, lastName, email string, skip, limit int) string {
	norm := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	payload := fmt.Sprintf("fn=%s|ln=%s|em=%s|s=%d|l=%d",
		norm(firstName), norm(lastName), norm(email), skip, limit)
	sum := sha1.Sum([]byte(payload))
	return fmt.Sprintf("contacts:search:%d:%s", ownerID, hex.EncodeToString(sum[:]))
}

// BirthdaysKey derives the cache key for an upcoming-birthdays lookup.
// The window length is the only parameter, so it stays readable.
func BirthdaysKey(ownerID uint64, days int) string {
	return fmt.Sprintf("contacts:birthdays:%d:%d", ownerID, days)
}
