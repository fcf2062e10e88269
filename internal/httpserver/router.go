package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/glowmart-app/storefront/internal/cart"
	"github.com/glowmart-app/storefront/internal/gateway"
	"github.com/glowmart-app/storefront/internal/history"
	"github.com/glowmart-app/storefront/internal/order"
	"github.com/glowmart-app/storefront/internal/review"
	"github.com/glowmart-app/storefront/internal/session"
)

type Deps struct {
	Sessions *session.Manager

	Auth     *AuthHTTP
	Cart     *CartHTTP
	Order    *OrderHTTP
	Wishlist *WishlistHTTP
	Catalog  *CatalogHTTP
	Profile  *ProfileHTTP
	Review   *ReviewHTTP
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	auth := e.Group("/auth")
	auth.POST("/signup", d.Auth.Signup)
	auth.POST("/login", d.Auth.Login)
	auth.POST("/logout", d.Auth.Logout)
	auth.GET("/me", d.Auth.Me)

	products := e.Group("/products")
	products.GET("", d.Catalog.List)
	products.GET("/search", d.Catalog.Search)
	products.GET("/:id", d.Catalog.Get)
	products.GET("/:id/reviews", d.Review.ForProduct)

	requireSession := sessionMiddleware(d.Sessions)

	cartGroup := e.Group("/cart", requireSession)
	cartGroup.GET("", d.Cart.List)
	cartGroup.POST("", d.Cart.Add)
	cartGroup.PATCH("/:id", d.Cart.SetQuantity)
	cartGroup.DELETE("/:id", d.Cart.Remove)
	cartGroup.DELETE("", d.Cart.Clear)

	orders := e.Group("/orders", requireSession)
	orders.POST("", d.Order.Place)
	orders.GET("", d.Order.PurchaseHistory)
	orders.GET("/:id/progress", d.Order.Progress)

	wl := e.Group("/wishlist", requireSession)
	wl.GET("", d.Wishlist.List)
	wl.POST("/toggle", d.Wishlist.Toggle)
	wl.GET("/status/:productID", d.Wishlist.Status)
	wl.DELETE("/:id", d.Wishlist.Remove)

	prof := e.Group("/profile", requireSession)
	prof.GET("", d.Profile.Fetch)
	prof.PUT("", d.Profile.Update)

	e.POST("/reviews", d.Review.Submit, requireSession)
}

func sessionMiddleware(sessions *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if sessions.Current() == nil {
				return c.JSON(http.StatusUnauthorized, errBody("not authenticated"))
			}
			return next(c)
		}
	}
}

func errBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

// httpStatus maps service errors to response codes. Validation problems
// and the stock/profile gates are surfaced verbatim for direct display;
// anything else is a gateway failure.
func httpStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, session.ErrValidation),
		errors.Is(err, cart.ErrValidation),
		errors.Is(err, order.ErrValidation),
		errors.Is(err, review.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, cart.ErrOutOfStock),
		errors.Is(err, order.ErrInsufficientStock),
		errors.Is(err, review.ErrAlreadyReviewed):
		return http.StatusConflict
	case errors.Is(err, order.ErrIncompleteProfile):
		return http.StatusUnprocessableEntity
	case errors.Is(err, history.ErrUnavailable):
		return http.StatusServiceUnavailable
	case gateway.IsNotFound(err):
		return http.StatusNotFound
	}
	var ge *gateway.Error
	if errors.As(err, &ge) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
