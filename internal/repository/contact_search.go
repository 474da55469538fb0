package repository

import (
	"context"
	"strings"
	"time"

	"contacts/internal/model"
)

// ContactSearchQuery defines filters & pagination for searching contacts.
// Empty filter strings are ignored; matching is case-insensitive substring.
type ContactSearchQuery struct {
	FirstName string
	LastName  string
	Email     string
	Skip      int
	Limit     int
}

// Search returns the owner's contacts matching the query filters.
func (r *ContactRepo) Search(ctx context.Context, ownerID uint64, q ContactSearchQuery) ([]model.Contact, error) {
	where := []string{"user_id=?"}
	args := []any{ownerID}

	if s := strings.TrimSpace(q.FirstName); s != "" {
		where = append(where, "LOWER(first_name) LIKE ?")
		args = append(args, "%"+strings.ToLower(s)+"%")
	}
	if s := strings.TrimSpace(q.LastName); s != "" {
		where = append(where, "LOWER(last_name) LIKE ?")
		args = append(args, "%"+strings.ToLower(s)+"%")
	}
	if s := strings.TrimSpace(q.Email); s != "" {
		where = append(where, "LOWER(email) LIKE ?")
		args = append(args, "%"+strings.ToLower(s)+"%")
	}

	sqlStr := "SELECT " + contactColumns + " FROM contacts WHERE " +
		strings.Join(where, " AND ") + " ORDER BY id LIMIT ? OFFSET ?"
	args = append(args, q.Limit, q.Skip)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	return scanContactRows(rows)
}

// UpcomingBirthdays returns the owner's contacts whose birthday month-day
// falls within the next `days` days, ordered by month-day ascending. Birth
// year is ignored entirely; contacts without a birthday are excluded. When
// the window crosses December 31 the match wraps into January.
func (r *ContactRepo) UpcomingBirthdays(ctx context.Context, ownerID uint64, days int) ([]model.Contact, error) {
	start, end, wraps := monthDayWindow(time.Now().UTC(), days)

	cond := "DATE_FORMAT(birthday, '%m%d') BETWEEN ? AND ?"
	args := []any{ownerID, start, end}
	if wraps {
		cond = "(DATE_FORMAT(birthday, '%m%d') >= ? OR DATE_FORMAT(birthday, '%m%d') <= ?)"
	}

	sqlStr := "SELECT " + contactColumns + " FROM contacts " +
		"WHERE user_id=? AND birthday IS NOT NULL AND " + cond +
		" ORDER BY DATE_FORMAT(birthday, '%m%d') ASC"

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	return scanContactRows(rows)
}

// monthDayWindow computes the inclusive [MMDD, MMDD] window starting today
// and ending days later. wraps is true when the window crosses December 31,
// in which case callers must match key >= start OR key <= end instead of a
// plain range.
func monthDayWindow(today time.Time, days int) (start, end string, wraps bool) {
	start = today.Format("0102")
	end = today.AddDate(0, 0, days).Format("0102")
	return start, end, start > end
}
