// Package handler contains the HTTP endpoints. Handlers bind DTOs, take a
// short per-request timeout, call into the services and map sentinel
// errors onto HTTP statuses.
package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"contacts/internal/auth"
	"contacts/internal/model"
)

// AuthHandler bundles dependencies for the signup/login/token endpoints.
type AuthHandler struct {
	Auth *auth.Service
	Mail VerificationMailer
}

func NewAuthHandler(svc *auth.Service, mail VerificationMailer) *AuthHandler {
	return &AuthHandler{Auth: svc, Mail: mail}
}

// ----- DTOs -----

type signupReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type userPart struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Avatar    string `json:"avatar,omitempty"`
	Role      string `json:"role"`
	Confirmed bool   `json:"confirmed"`
}

func toUserPart(u model.User) userPart {
	return userPart{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Avatar:    u.Avatar,
		Role:      u.Role,
		Confirmed: u.Confirmed,
	}
}

// Signup creates an unconfirmed account and queues the verification mail.
// The account cannot log in until the mailed link is followed.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/email/password required"})
	}
	if len(req.Password) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "password must be at least 6 characters"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Auth.Register(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "account already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	// Verification mail is fire-and-forget; a broker hiccup never fails
	// the signup, the user can ask for a resend.
	if token, err := h.Auth.NewConfirmationToken(u.Email); err == nil {
		if err := h.Mail.EnqueueVerification(ctx, u.Email, u.Username, token); err != nil {
			log.Printf("signup: enqueue verification mail for %s failed: %v", u.Email, err)
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"user":   toUserPart(u),
		"detail": "User successfully created. Check your email for confirmation.",
	})
}

// Login exchanges credentials for an access/refresh token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pair, err := h.Auth.Login(ctx, req.Email, req.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid email or password"})
	case errors.Is(err, auth.ErrEmailNotConfirmed):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "email not confirmed"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	return c.JSON(http.StatusOK, pair)
}

// Refresh mints a new access token. The refresh token comes from the JSON
// body or, failing that, the Authorization header.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	_ = c.Bind(&req)
	if req.RefreshToken == "" {
		if header := c.Request().Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
			req.RefreshToken = strings.TrimPrefix(header, "Bearer ")
		}
	}
	if req.RefreshToken == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pair, err := h.Auth.Refresh(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired refresh token"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "refresh failed"})
	}
	return c.JSON(http.StatusOK, pair)
}

// Logout clears the stored refresh-token copy for the authenticated user.
func (h *AuthHandler) Logout(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "could not validate credentials"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Auth.Logout(ctx, u.Email); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	u, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "could not validate credentials"})
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}
