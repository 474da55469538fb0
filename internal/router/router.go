// Package router wires handlers onto the Echo instance. Route groups keep
// the middleware story explicit: credential endpoints are rate limited,
// everything touching user data sits behind the access-token middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"contacts/internal/handler"
	"contacts/internal/middleware"
	"contacts/internal/model"
)

// Deps carries everything the routes need.
type Deps struct {
	Auth      *handler.AuthHandler
	Users     *handler.UserHandler
	Contacts  *handler.ContactHandler
	AuthGuard echo.MiddlewareFunc // bearer-token middleware
	RateLimit echo.MiddlewareFunc // token bucket for credential endpoints
}

// Register mounts all routes.
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	users := e.Group("/api/users")

	// Credential endpoints: public, rate limited.
	public := users.Group("", d.RateLimit)
	public.POST("/signup", d.Auth.Signup)
	public.POST("/login", d.Auth.Login)
	public.POST("/refresh-token", d.Auth.Refresh)
	public.GET("/confirmed_email/:token", d.Users.ConfirmEmail)
	public.POST("/request_email", d.Users.RequestEmail)
	public.POST("/password/forgot", d.Users.ForgotPassword)
	public.POST("/password/reset", d.Users.ResetPassword)

	// Account endpoints behind the access token.
	private := users.Group("", d.AuthGuard)
	private.POST("/logout", d.Auth.Logout)
	private.GET("/me", d.Auth.Me)
	private.PUT("/avatar", d.Users.UpdateAvatar)
	private.PATCH("/:id/role", d.Users.ChangeRole, middleware.RequireRole(model.RoleAdmin))

	// Address book, fully owner-scoped.
	contacts := e.Group("/api/contacts", d.AuthGuard)
	contacts.POST("", d.Contacts.Create)
	contacts.GET("", d.Contacts.List)
	contacts.GET("/search", d.Contacts.Search)
	contacts.GET("/upcoming_birthdays", d.Contacts.UpcomingBirthdays)
	contacts.GET("/:id", d.Contacts.Get)
	contacts.PUT("/:id", d.Contacts.Update)
	contacts.PATCH("/:id", d.Contacts.Update)
	contacts.DELETE("/:id", d.Contacts.Delete)
}
