package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearchKeyNormalization(t *testing.T) {
	// Case and surrounding whitespace must not change the key.
	a := SearchKey(7, "Alice", "Smith", "A@Example.com", 0, 100)
	b := SearchKey(7, "  alice ", "smith", "a@example.com  ", 0, 100)
	require.Equal(t, a, b)
}

func TestSearchKeyDistinguishesFilters(t *testing.T) {
	base := SearchKey(7, "alice", "", "", 0, 100)

	require.NotEqual(t, base, SearchKey(7, "bob", "", "", 0, 100))
	// Same value in a different filter slot is a different query.
	require.NotEqual(t, base, SearchKey(7, "", "alice", "", 0, 100))
	// Pagination is part of the identity.
	require.NotEqual(t, base, SearchKey(7, "alice", "", "", 10, 100))
	require.NotEqual(t, base, SearchKey(7, "alice", "", "", 0, 50))
}

func TestSearchKeyIsOwnerNamespaced(t *testing.T) {
	a := SearchKey(7, "alice", "", "", 0, 100)
	b := SearchKey(8, "alice", "", "", 0, 100)
	require.NotEqual(t, a, b)
	require.True(t, strings.HasPrefix(a, "contacts:search:7:"))
	require.True(t, strings.HasPrefix(b, "contacts:search:8:"))
}

func TestBirthdaysKey(t *testing.T) {
	require.Equal(t, "contacts:birthdays:7:7", BirthdaysKey(7, 7))
	require.Equal(t, "contacts:birthdays:7:30", BirthdaysKey(7, 30))
}
