package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"contacts/internal/model"
	"contacts/internal/repository"
	"contacts/internal/service"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 500

	defaultBirthdayDays = 7
	maxBirthdayDays     = 365
)

// ContactHandler exposes the per-user address book.
type ContactHandler struct {
	Contacts *service.ContactService
}

func NewContactHandler(svc *service.ContactService) *ContactHandler {
	return &ContactHandler{Contacts: svc}
}

// Dates cross the API as plain YYYY-MM-DD strings.
const dateLayout = "2006-01-02"

type createContactReq struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     string  `json:"email"`
	Phone     string  `json:"phone"`
	Birthday  *string `json:"birthday"`
	ExtraInfo *string `json:"extra_info"`
}

type updateContactReq struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Birthday  *string `json:"birthday"`
	ExtraInfo *string `json:"extra_info"`
}

// Create adds a contact to the caller's address book.
func (h *ContactHandler) Create(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "could not validate credentials"})
	}

	var req createContactReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Phone == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "first_name/last_name/email/phone required"})
	}

	ct := model.Contact{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		ExtraInfo: req.ExtraInfo,
	}
	if req.Birthday != nil && *req.Birthday != "" {
		t, err := time.Parse(dateLayout, *req.Birthday)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "birthday must be YYYY-MM-DD"})
		}
		ct.Birthday = &t
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	created, err := h.Contacts.Create(ctx, u.ID, ct)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "contact with this email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create contact failed"})
	}
	return c.JSON(http.StatusCreated, created)
}

// List returns a page of the caller's contacts.
func (h *ContactHandler) List(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "could not validate credentials"})
	}
	skip, limit := pageParams(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	out, err := h.Contacts.List(ctx, u.ID, skip, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list contacts failed"})
	}
	return c.JSON(http.StatusOK, out)
}

// Get returns one contact by id. Another user's contact reads as missing.
func (h *ContactHandler) Get(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "could not validate credentials"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid contact id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ct, err := h.Contacts.Get(ctx, id, u.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "contact not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "get contact failed"})
	}
	return c.JSON(http.StatusOK, ct)
}

// Update applies a partial update; omitted fields keep their values.
func (h *ContactHandler) Update(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "could not validate credentials"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid contact id"})
	}

	var req updateContactReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	patch := repository.ContactPatch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		ExtraInfo: req.ExtraInfo,
	}
	if req.Birthday != nil {
		t, err := time.Parse(dateLayout, *req.Birthday)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "birthday must be YYYY-MM-DD"})
		}
		patch.Birthday = &t
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ct, err := h.Contacts.Update(ctx, id, u.ID, patch)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "contact not found"})
	case errors.Is(err, repository.ErrEmailExists):
		return c.JSON(http.StatusConflict, echo.Map{"error": "contact with this email already exists"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update contact failed"})
	}
	return c.JSON(http.StatusOK, ct)
}

// Delete removes a contact.
func (h *ContactHandler) Delete(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "could not validate credentials"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid contact id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Contacts.Delete(ctx, id, u.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "contact not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete contact failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Search filters contacts by first name, last name and/or email. At least
// one filter is required; an unfiltered search is just List.
func (h *ContactHandler) Search(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "could not validate credentials"})
	}

	q := repository.ContactSearchQuery{
		FirstName: strings.TrimSpace(c.QueryParam("first_name")),
		LastName:  strings.TrimSpace(c.QueryParam("last_name")),
		Email:     strings.TrimSpace(c.QueryParam("email")),
	}
	if q.FirstName == "" && q.LastName == "" && q.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "at least one of first_name/last_name/email is required"})
	}
	q.Skip, q.Limit = pageParams(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	out, err := h.Contacts.Search(ctx, u.ID, q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "search failed"})
	}
	return c.JSON(http.StatusOK, out)
}

// UpcomingBirthdays lists contacts whose birthday falls in the next `days`
// days (default 7), year ignored.
func (h *ContactHandler) UpcomingBirthdays(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "could not validate credentials"})
	}

	days := defaultBirthdayDays
	if raw := c.QueryParam("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxBirthdayDays {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "days must be between 1 and 365"})
		}
		days = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	out, err := h.Contacts.UpcomingBirthdays(ctx, u.ID, days)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "birthdays lookup failed"})
	}
	return c.JSON(http.StatusOK, out)
}

// pageParams reads skip/limit query params with clamping.
func pageParams(c echo.Context) (skip, limit int) {
	skip = 0
	limit = defaultPageLimit
	if raw := c.QueryParam("skip"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			skip = n
		}
	}
	if raw := c.QueryParam("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 && n <= maxPageLimit {
			limit = n
		}
	}
	return skip, limit
}
