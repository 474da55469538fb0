package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"contacts/internal/model"
)

// ContactRepo provides access to the `contacts` table. Every operation is
// scoped to an owner; a contact belonging to another user behaves exactly
// like a missing row.
type ContactRepo struct{ DB *sql.DB }

func NewContactRepo(db *sql.DB) *ContactRepo { return &ContactRepo{DB: db} }

// ContactPatch carries a partial update. Nil fields are left untouched on
// the stored row; only set fields are merged in.
type ContactPatch struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
	Birthday  *time.Time
	ExtraInfo *string
}

const contactColumns = "id,user_id,first_name,last_name,email,phone,birthday,extra_info,created_at,updated_at"

func scanContact(row *sql.Row) (model.Contact, error) {
	var (
		ct       model.Contact
		birthday sql.NullTime
		extra    sql.NullString
	)
	err := row.Scan(&ct.ID, &ct.UserID, &ct.FirstName, &ct.LastName, &ct.Email,
		&ct.Phone, &birthday, &extra, &ct.CreatedAt, &ct.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Contact{}, ErrNotFound
	}
	if err != nil {
		return model.Contact{}, err
	}
	if birthday.Valid {
		ct.Birthday = &birthday.Time
	}
	if extra.Valid {
		ct.ExtraInfo = &extra.String
	}
	return ct, nil
}

func scanContactRows(rows *sql.Rows) ([]model.Contact, error) {
	defer rows.Close()
	out := []model.Contact{}
	for rows.Next() {
		var (
			ct       model.Contact
			birthday sql.NullTime
			extra    sql.NullString
		)
		if err := rows.Scan(&ct.ID, &ct.UserID, &ct.FirstName, &ct.LastName, &ct.Email,
			&ct.Phone, &birthday, &extra, &ct.CreatedAt, &ct.UpdatedAt); err != nil {
			return nil, err
		}
		if birthday.Valid {
			ct.Birthday = &birthday.Time
		}
		if extra.Valid {
			ct.ExtraInfo = &extra.String
		}
		out = append(out, ct)
	}
	return out, rows.Err()
}

// Create inserts a contact for the given owner and returns the stored row.
// The email is unique across ALL owners (uq_contacts_email carries no
// per-owner scoping), so two users cannot both hold a contact with the same
// address; violations surface as ErrEmailExists.
func (r *ContactRepo) Create(ctx context.Context, ownerID uint64, ct model.Contact) (model.Contact, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO contacts (user_id, first_name, last_name, email, phone, birthday, extra_info) VALUES (?,?,?,?,?,?,?)",
		ownerID, ct.FirstName, ct.LastName, ct.Email, ct.Phone, nullTime(ct.Birthday), nullStr(ct.ExtraInfo))
	if err != nil {
		if isDuplicate(err) {
			return model.Contact{}, ErrEmailExists
		}
		return model.Contact{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Contact{}, err
	}
	return r.GetByID(ctx, uint64(id), ownerID)
}

// GetByOwner returns the owner's contacts with skip/limit pagination.
func (r *ContactRepo) GetByOwner(ctx context.Context, ownerID uint64, skip, limit int) ([]model.Contact, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE user_id=? ORDER BY id LIMIT ? OFFSET ?",
		ownerID, limit, skip)
	if err != nil {
		return nil, err
	}
	return scanContactRows(rows)
}

// GetByID fetches one contact, owner-scoped.
func (r *ContactRepo) GetByID(ctx context.Context, id, ownerID uint64) (model.Contact, error) {
	return scanContact(r.DB.QueryRowContext(ctx,
		"SELECT "+contactColumns+" FROM contacts WHERE id=? AND user_id=? LIMIT 1", id, ownerID))
}

// Update merges the patch into the stored contact and returns the result.
// Omitted (nil) patch fields keep their current values.
func (r *ContactRepo) Update(ctx context.Context, id, ownerID uint64, patch ContactPatch) (model.Contact, error) {
	ct, err := r.GetByID(ctx, id, ownerID)
	if err != nil {
		return model.Contact{}, err
	}
	merged := applyPatch(ct, patch)

	_, err = r.DB.ExecContext(ctx,
		"UPDATE contacts SET first_name=?, last_name=?, email=?, phone=?, birthday=?, extra_info=? WHERE id=? AND user_id=?",
		merged.FirstName, merged.LastName, merged.Email, merged.Phone,
		nullTime(merged.Birthday), nullStr(merged.ExtraInfo), id, ownerID)
	if err != nil {
		if isDuplicate(err) {
			return model.Contact{}, ErrEmailExists
		}
		return model.Contact{}, err
	}
	return r.GetByID(ctx, id, ownerID)
}

// Delete removes the owner's contact.
func (r *ContactRepo) Delete(ctx context.Context, id, ownerID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"DELETE FROM contacts WHERE id=? AND user_id=?", id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// applyPatch clones the contact and overwrites only the fields the patch
// sets.
func applyPatch(ct model.Contact, p ContactPatch) model.Contact {
	if p.FirstName != nil {
		ct.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		ct.LastName = *p.LastName
	}
	if p.Email != nil {
		ct.Email = *p.Email
	}
	if p.Phone != nil {
		ct.Phone = *p.Phone
	}
	if p.Birthday != nil {
		ct.Birthday = p.Birthday
	}
	if p.ExtraInfo != nil {
		ct.ExtraInfo = p.ExtraInfo
	}
	return ct
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullStr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
