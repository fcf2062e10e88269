package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/glowmart-app/storefront/internal/session"
	"github.com/glowmart-app/storefront/pkg/logging"
)

type AuthHTTP struct {
	Sessions *session.Manager
}

func (h *AuthHTTP) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.signup")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("invalid body"))
	}

	user, err := h.Sessions.Signup(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		status := httpStatus(err)
		l.Warn("signup failed", "status", status, "error", err)
		return c.JSON(status, errBody(err.Error()))
	}

	l.Info("user signed up", "user_id", user.ID)
	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("invalid body"))
	}

	user, err := h.Sessions.Login(ctx, req.Email, req.Password)
	if err != nil {
		status := httpStatus(err)
		l.Warn("login failed", "status", status, "error", err)
		return c.JSON(status, errBody(err.Error()))
	}

	l.Info("user logged in", "user_id", user.ID)
	return c.JSON(http.StatusOK, user)
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth.logout")

	if err := h.Sessions.Logout(); err != nil {
		l.Error("logout failed", "error", err)
		return c.JSON(http.StatusInternalServerError, errBody("logout failed"))
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHTTP) Me(c echo.Context) error {
	user := h.Sessions.Current()
	if user == nil {
		return c.JSON(http.StatusUnauthorized, errBody("not authenticated"))
	}
	return c.JSON(http.StatusOK, user)
}
