package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/glowmart-app/storefront/internal/history"
	"github.com/glowmart-app/storefront/internal/order"
	"github.com/glowmart-app/storefront/pkg/logging"
)

// historyAttempts is the whole-fetch retry budget of the purchase
// history endpoint.
const historyAttempts = 3

type OrderHTTP struct {
	Svc     *order.Service
	History *history.Service
}

func (h *OrderHTTP) Place(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.place")

	var req struct {
		Items   []order.Item `json:"items"`
		Courier string       `json:"courier"`
		Payment string       `json:"payment"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("invalid body"))
	}

	receipt, err := h.Svc.Place(ctx, req.Items, req.Courier, req.Payment)
	if err != nil {
		status := httpStatus(err)
		l.Error("order placement failed", "status", status, "error", err)
		return c.JSON(status, errBody(err.Error()))
	}

	l.Info("order placed", "receipt_id", receipt.ID, "total", receipt.Total)
	return c.JSON(http.StatusCreated, receipt)
}

func (h *OrderHTTP) PurchaseHistory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.history")

	purchases, err := h.History.Fetch(ctx, historyAttempts)
	if err != nil {
		status := httpStatus(err)
		l.Warn("history fetch failed", "status", status, "error", err)
		return c.JSON(status, map[string]any{
			"error":     err.Error(),
			"purchases": purchases,
		})
	}
	return c.JSON(http.StatusOK, purchases)
}

func (h *OrderHTTP) Progress(c echo.Context) error {
	state, failedStep, ok := h.Svc.Progress(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, errBody("no checkout record"))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"receipt_id":  c.Param("id"),
		"state":       state,
		"failed_step": failedStep,
	})
}
