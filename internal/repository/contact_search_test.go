package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func day(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return d
}

func TestMonthDayWindowPlain(t *testing.T) {
	start, end, wraps := monthDayWindow(day(t, "2025-06-01"), 7)
	require.Equal(t, "0601", start)
	require.Equal(t, "0608", end)
	require.False(t, wraps)

	// Boundary days are inclusive on both ends.
	require.True(t, start <= "0601" && "0601" <= end)
	require.True(t, start <= "0608" && "0608" <= end)
	require.False(t, start <= "0609" && "0609" <= end)
}

func TestMonthDayWindowWrapsAcrossNewYear(t *testing.T) {
	start, end, wraps := monthDayWindow(day(t, "2025-12-28"), 7)
	require.Equal(t, "1228", start)
	require.Equal(t, "0104", end)
	require.True(t, wraps)

	// In wrap mode the match is key >= start OR key <= end.
	inWindow := func(mmdd string) bool { return mmdd >= start || mmdd <= end }
	require.True(t, inWindow("1231"))
	require.True(t, inWindow("0102"))
	require.True(t, inWindow("1228"))
	require.True(t, inWindow("0104"))
	require.False(t, inWindow("1220"))
	require.False(t, inWindow("0105"))
}

func TestMonthDayWindowYearEndExactBoundary(t *testing.T) {
	// A window ending exactly on Dec 31 does not wrap.
	start, end, wraps := monthDayWindow(day(t, "2025-12-24"), 7)
	require.Equal(t, "1224", start)
	require.Equal(t, "1231", end)
	require.False(t, wraps)
}
