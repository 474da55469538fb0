package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"contacts/internal/auth"
	"contacts/internal/model"
)

// VerificationMailer enqueues account-verification mail. Satisfied by
// *mailer.Publisher.
type VerificationMailer interface {
	EnqueueVerification(ctx context.Context, email, username, token string) error
}

// UserHandler covers account management beyond login: email confirmation,
// password reset, avatars and role administration.
type UserHandler struct {
	Auth *auth.Service
	Mail VerificationMailer
}

func NewUserHandler(svc *auth.Service, mail VerificationMailer) *UserHandler {
	return &UserHandler{Auth: svc, Mail: mail}
}

type requestEmailReq struct {
	Email string `json:"email"`
}
type forgotPasswordReq struct {
	Email string `json:"email"`
}
type resetPasswordReq struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}
type changeRoleReq struct {
	Role string `json:"role"`
}

// ConfirmEmail handles the link from the verification mail. Confirming
// twice is fine; the second call just reports the account is already
// confirmed.
func (h *UserHandler) ConfirmEmail(c echo.Context) error {
	token := c.Param("token")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	already, err := h.Auth.ConfirmEmail(ctx, token)
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "verification error"})
	case errors.Is(err, auth.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "confirmation failed"})
	}
	if already {
		return c.JSON(http.StatusOK, echo.Map{"message": "Your email is already confirmed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Email confirmed"})
}

// RequestEmail re-sends the verification mail. The response never reveals
// whether the address is registered, except for the harmless
// already-confirmed case.
func (h *UserHandler) RequestEmail(c echo.Context) error {
	var req requestEmailReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Auth.GetByEmail(ctx, req.Email)
	if err == nil && u.Confirmed {
		return c.JSON(http.StatusOK, echo.Map{"message": "Your email is already confirmed"})
	}
	if err == nil {
		if token, terr := h.Auth.NewConfirmationToken(u.Email); terr == nil {
			if qerr := h.Mail.EnqueueVerification(ctx, u.Email, u.Username, token); qerr != nil {
				log.Printf("request_email: enqueue for %s failed: %v", u.Email, qerr)
			}
		}
	}
	return c.JSON(http.StatusAccepted, echo.Map{"message": "Check your email for confirmation."})
}

// ForgotPassword starts the reset flow. Always 202 with the same body so
// the endpoint cannot be used to enumerate accounts.
func (h *UserHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Auth.RequestPasswordReset(ctx, req.Email); err != nil {
		log.Printf("forgot_password: %v", err)
	}
	return c.JSON(http.StatusAccepted, echo.Map{"message": "If the account exists, a reset link has been sent."})
}

// ResetPassword completes the reset flow with the mailed token.
func (h *UserHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Token == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token/new_password required"})
	}
	if len(req.NewPassword) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 6 characters"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err := h.Auth.ResetPassword(ctx, req.Token, req.NewPassword)
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid or expired token"})
	case errors.Is(err, auth.ErrUserNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "password reset failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdateAvatar replaces the authenticated user's avatar image. Multipart
// field name is "file"; only images are accepted.
func (h *UserHandler) UpdateAvatar(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "could not validate credentials"})
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file is required"})
	}
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file must be an image"})
	}

	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot read file"})
	}
	defer src.Close()

	// Uploads can be slower than DB calls; allow a wider timeout.
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	updated, err := h.Auth.UpdateAvatar(ctx, u.ID, src, contentType)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "avatar update failed"})
	}
	return c.JSON(http.StatusOK, toUserPart(updated))
}

// ChangeRole sets another user's role. Admin only; the gate sits in the
// router.
func (h *UserHandler) ChangeRole(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}

	var req changeRoleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role != model.RoleUser && role != model.RoleAdmin {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be USER or ADMIN"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Auth.ChangeRole(ctx, id, role)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "role change failed"})
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}
