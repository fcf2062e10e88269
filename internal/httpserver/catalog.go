package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/glowmart-app/storefront/internal/catalog"
	"github.com/glowmart-app/storefront/internal/models"
	"github.com/glowmart-app/storefront/pkg/logging"
)

type CatalogHTTP struct {
	Svc *catalog.Service
}

// List filters by product type, category, or both via query params.
func (h *CatalogHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.list")

	productType := c.QueryParam("type")
	category := c.QueryParam("category")

	var (
		products []models.Product
		err      error
	)
	switch {
	case productType != "" && category != "":
		products, err = h.Svc.ByTypeAndCategory(ctx, productType, category)
	case productType != "":
		products, err = h.Svc.ByType(ctx, productType)
	case category != "":
		products, err = h.Svc.ByCategory(ctx, category)
	default:
		return c.JSON(http.StatusBadRequest, errBody("type or category required"))
	}
	if err != nil {
		l.Error("catalog list failed", "type", productType, "category", category, "error", err)
		return c.JSON(httpStatus(err), errBody(err.Error()))
	}
	return c.JSON(http.StatusOK, products)
}

func (h *CatalogHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.search")

	products, err := h.Svc.Search(ctx, c.QueryParam("q"))
	if err != nil {
		l.Error("search failed", "query", c.QueryParam("q"), "error", err)
		return c.JSON(httpStatus(err), errBody(err.Error()))
	}
	return c.JSON(http.StatusOK, products)
}

func (h *CatalogHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()

	product, err := h.Svc.Get(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(httpStatus(err), errBody(err.Error()))
	}
	return c.JSON(http.StatusOK, product)
}
