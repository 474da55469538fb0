package handler

import (
	"github.com/labstack/echo/v4"

	"contacts/internal/middleware"
	"contacts/internal/model"
)

// currentUser reads the user placed on the context by the auth middleware.
func currentUser(c echo.Context) (model.User, bool) {
	return middleware.CurrentUser(c)
}
