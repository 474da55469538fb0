// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios without inspecting driver errors. For example, ErrNotFound
// indicates that a row does not exist (or is not visible to the current
// owner), while ErrEmailExists signals a uniqueness violation on an
// email column.
package repository

import "errors"

// ErrNotFound is returned when a requested row does not exist, or when it
// exists but belongs to a different owner. Handlers should translate this
// into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when an insert or update violates an email
// uniqueness constraint (users.email, or the process-wide
// uq_contacts_email). Handlers should translate this into an HTTP 409
// response.
var ErrEmailExists = errors.New("email already exists")
