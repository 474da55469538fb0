// Package middleware provides reusable HTTP middleware: bearer-token
// authentication, role checks and rate limiting.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"contacts/internal/auth"
	"contacts/internal/model"
)

// userContextKey is where Auth stores the resolved user on the request
// context.
const userContextKey = "user"

// UserLoader resolves a token subject to a full user record.
type UserLoader interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

// Auth returns an Echo middleware that validates a Bearer access token and
// loads the full user row into the request context. Loading the row rather
// than trusting claims alone means a role change or account removal takes
// effect on the next request, not at token expiry. Protected handlers read
// the user back via CurrentUser.
func Auth(codec *auth.Codec, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims, err := codec.Decode(raw, auth.TokenAccess)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "could not validate credentials"})
			}

			u, err := users.GetByEmail(c.Request().Context(), claims.Subject)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "could not validate credentials"})
			}

			c.Set(userContextKey, u)
			return next(c)
		}
	}
}

// CurrentUser returns the authenticated user stored by Auth.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(userContextKey).(model.User)
	return u, ok
}
