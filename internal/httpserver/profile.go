package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/glowmart-app/storefront/internal/profile"
	"github.com/glowmart-app/storefront/pkg/logging"
)

type ProfileHTTP struct {
	Svc *profile.Service
}

func (h *ProfileHTTP) Fetch(c echo.Context) error {
	ctx := c.Request().Context()

	user, err := h.Svc.Fetch(ctx)
	if err != nil {
		return c.JSON(httpStatus(err), errBody(err.Error()))
	}
	return c.JSON(http.StatusOK, user)
}

func (h *ProfileHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "profile.update")

	var req struct {
		Name    string `json:"name"`
		PhoneNo string `json:"phone_no"`
		Address string `json:"address"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("invalid body"))
	}

	user, err := h.Svc.Update(ctx, req.Name, req.PhoneNo, req.Address)
	if err != nil {
		l.Warn("profile update failed", "error", err)
		return c.JSON(httpStatus(err), errBody(err.Error()))
	}

	l.Info("profile updated", "user_id", user.ID)
	return c.JSON(http.StatusOK, user)
}
