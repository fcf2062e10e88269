package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/glowmart-app/storefront/internal/cart"
	"github.com/glowmart-app/storefront/pkg/logging"
)

type CartHTTP struct {
	Svc *cart.Service
}

func (h *CartHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.list")

	lines, err := h.Svc.ListLines(ctx)
	if err != nil {
		l.Error("cart list failed", "error", err)
		return c.JSON(httpStatus(err), errBody(err.Error()))
	}
	return c.JSON(http.StatusOK, lines)
}

func (h *CartHTTP) Add(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")

	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("invalid body"))
	}

	lines, err := h.Svc.AddLine(ctx, req.ProductID, req.Quantity)
	if err != nil {
		status := httpStatus(err)
		l.Warn("add to cart failed", "status", status, "product_id", req.ProductID, "error", err)
		return c.JSON(status, errBody(err.Error()))
	}

	l.Info("line added", "product_id", req.ProductID, "quantity", req.Quantity)
	return c.JSON(http.StatusCreated, lines)
}

func (h *CartHTTP) SetQuantity(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.set_quantity")

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("invalid body"))
	}

	lines, err := h.Svc.SetLineQuantity(ctx, c.Param("id"), req.Quantity)
	if err != nil {
		status := httpStatus(err)
		l.Warn("set quantity failed", "status", status, "line_id", c.Param("id"), "error", err)
		return c.JSON(status, errBody(err.Error()))
	}
	return c.JSON(http.StatusOK, lines)
}

func (h *CartHTTP) Remove(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove")

	lines, err := h.Svc.RemoveLine(ctx, c.Param("id"))
	if err != nil {
		l.Error("remove line failed", "line_id", c.Param("id"), "error", err)
		return c.JSON(httpStatus(err), errBody(err.Error()))
	}
	return c.JSON(http.StatusOK, lines)
}

func (h *CartHTTP) Clear(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.clear")

	if err := h.Svc.Clear(ctx); err != nil {
		l.Error("clear cart failed", "error", err)
		return c.JSON(httpStatus(err), errBody(err.Error()))
	}

	l.Info("cart cleared")
	return c.NoContent(http.StatusNoContent)
}
