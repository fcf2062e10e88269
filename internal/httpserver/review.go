package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/glowmart-app/storefront/internal/review"
	"github.com/glowmart-app/storefront/pkg/logging"
)

type ReviewHTTP struct {
	Svc *review.Service
}

func (h *ReviewHTTP) ForProduct(c echo.Context) error {
	ctx := c.Request().Context()

	comments, err := h.Svc.ForProduct(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(httpStatus(err), errBody(err.Error()))
	}
	return c.JSON(http.StatusOK, comments)
}

func (h *ReviewHTTP) Submit(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "review.submit")

	var req struct {
		ProductID string `json:"product_id"`
		ReceiptID string `json:"receipt_id"`
		Comment   string `json:"comment"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("invalid body"))
	}

	if err := h.Svc.Submit(ctx, req.ProductID, req.ReceiptID, req.Comment); err != nil {
		status := httpStatus(err)
		l.Warn("review submit failed", "status", status, "product_id", req.ProductID, "error", err)
		return c.JSON(status, errBody(err.Error()))
	}

	l.Info("review submitted", "product_id", req.ProductID, "receipt_id", req.ReceiptID)
	return c.NoContent(http.StatusCreated)
}
