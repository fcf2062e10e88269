package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/glowmart-app/storefront/internal/wishlist"
	"github.com/glowmart-app/storefront/pkg/logging"
)

type WishlistHTTP struct {
	Svc *wishlist.Service
}

func (h *WishlistHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()

	items, err := h.Svc.List(ctx)
	if err != nil {
		return c.JSON(httpStatus(err), errBody(err.Error()))
	}
	return c.JSON(http.StatusOK, items)
}

func (h *WishlistHTTP) Toggle(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "wishlist.toggle")

	var req struct {
		ProductID string `json:"product_id"`
	}
	if err := c.Bind(&req); err != nil || req.ProductID == "" {
		return c.JSON(http.StatusBadRequest, errBody("product_id required"))
	}

	status, err := h.Svc.Toggle(ctx, req.ProductID)
	if err != nil {
		code := httpStatus(err)
		l.Warn("wishlist toggle failed", "status", code, "product_id", req.ProductID, "error", err)
		return c.JSON(code, errBody(err.Error()))
	}

	l.Info("wishlist toggled", "product_id", req.ProductID, "wishlisted", status.Wishlisted)
	return c.JSON(http.StatusOK, status)
}

func (h *WishlistHTTP) Status(c echo.Context) error {
	status := h.Svc.IsWishlisted(c.Request().Context(), c.Param("productID"))
	return c.JSON(http.StatusOK, status)
}

func (h *WishlistHTTP) Remove(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "wishlist.remove")

	if err := h.Svc.Remove(ctx, c.Param("id")); err != nil {
		l.Error("wishlist remove failed", "entry_id", c.Param("id"), "error", err)
		return c.JSON(httpStatus(err), errBody(err.Error()))
	}
	return c.NoContent(http.StatusNoContent)
}
