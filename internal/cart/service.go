// Package cart is the in-memory view of a user's unpaid lines, derived
// from the record store on every call. Any mutation invalidates the
// previous snapshot, so every write returns a fresh one.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/glowmart-app/storefront/internal/gateway"
	"github.com/glowmart-app/storefront/internal/models"
	"github.com/glowmart-app/storefront/internal/session"
	"github.com/glowmart-app/storefront/pkg/logging"
)

var (
	ErrOutOfStock = errors.New("out of stock")
	ErrValidation = errors.New("validation")
)

const linesPerPage = 50

type Service struct {
	GW       gateway.Gateway
	Sessions *session.Manager
}

// AddLine puts quantity units of a product into the cart. If an unpaid
// line for the product already exists its quantity grows instead of a
// second line appearing. The requested amount plus anything already in the
// cart must fit in stock.
func (s *Service) AddLine(ctx context.Context, productID string, quantity int) ([]models.CartLine, error) {
	if productID == "" {
		return nil, fmt.Errorf("%w: product id required", ErrValidation)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}
	user, err := s.Sessions.Require()
	if err != nil {
		return nil, err
	}

	stock, err := s.productStock(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity > stock {
		return nil, fmt.Errorf("%w: only %d items available", ErrOutOfStock, stock)
	}

	existing, err := s.GW.List(ctx, gateway.CollectionCart, 1, 1, gateway.ListOptions{
		Filter: gateway.Filterf(`productID = %s && userID = %s && statusPayment = false`, productID, user.ID),
	})
	if err != nil {
		return nil, err
	}

	if len(existing.Items) > 0 {
		line := existing.Items[0]
		newQuantity := line.GetInt("quantity") + quantity
		if newQuantity > stock {
			return nil, fmt.Errorf("%w: only %d items available", ErrOutOfStock, stock)
		}
		if _, err := s.GW.Update(ctx, gateway.CollectionCart, line.ID(), map[string]any{"quantity": newQuantity}); err != nil {
			return nil, err
		}
	} else {
		_, err := s.GW.Create(ctx, gateway.CollectionCart, map[string]any{
			"productID":     productID,
			"userID":        user.ID,
			"quantity":      quantity,
			"statusPayment": false,
		})
		if err != nil {
			return nil, err
		}
	}

	return s.ListLines(ctx)
}

// ListLines returns the unpaid lines of the current user with product
// name, price and image resolved. Without a session the cart is simply
// empty; a remote failure degrades to empty as well.
func (s *Service) ListLines(ctx context.Context) ([]models.CartLine, error) {
	user := s.Sessions.Current()
	if user == nil {
		return []models.CartLine{}, nil
	}

	res, err := s.GW.List(ctx, gateway.CollectionCart, 1, linesPerPage, gateway.ListOptions{
		Filter: gateway.Filterf(`userID = %s && statusPayment = false`, user.ID),
		Expand: "productID",
	})
	if err != nil {
		logging.FromContext(ctx).Warn("cart fetch failed", "error", err)
		return []models.CartLine{}, nil
	}

	lines := make([]models.CartLine, 0, len(res.Items))
	for _, item := range res.Items {
		product := item.Expand("productID")
		if product == nil {
			continue
		}
		lines = append(lines, models.CartLine{
			ID:       item.ID(),
			Quantity: item.GetInt("quantity"),
			Product: models.ProductSummary{
				ID:       product.ID(),
				Name:     product.GetString("name"),
				Price:    product.GetFloat("price"),
				ImageURL: s.GW.FileURL(product, product.GetString("image")),
			},
		})
	}
	return lines, nil
}

// SetLineQuantity replaces a line's quantity after re-checking stock.
func (s *Service) SetLineQuantity(ctx context.Context, lineID string, quantity int) ([]models.CartLine, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
	}

	line, err := s.GW.GetOne(ctx, gateway.CollectionCart, lineID)
	if err != nil {
		return nil, err
	}
	stock, err := s.productStock(ctx, line.GetString("productID"))
	if err != nil {
		return nil, err
	}
	if quantity > stock {
		return nil, fmt.Errorf("%w: only %d items available", ErrOutOfStock, stock)
	}

	if _, err := s.GW.Update(ctx, gateway.CollectionCart, lineID, map[string]any{"quantity": quantity}); err != nil {
		return nil, err
	}
	return s.ListLines(ctx)
}

// RemoveLine deletes a line. Removing a line that is already gone is not
// an error.
func (s *Service) RemoveLine(ctx context.Context, lineID string) ([]models.CartLine, error) {
	if err := s.GW.Delete(ctx, gateway.CollectionCart, lineID); err != nil && !gateway.IsNotFound(err) {
		return nil, err
	}
	return s.ListLines(ctx)
}

// Clear deletes every unpaid line of the current user. Best effort: a
// failing delete mid-batch leaves earlier deletions in place.
func (s *Service) Clear(ctx context.Context) error {
	user := s.Sessions.Current()
	if user == nil {
		return nil
	}

	res, err := s.GW.List(ctx, gateway.CollectionCart, 1, linesPerPage, gateway.ListOptions{
		Filter: gateway.Filterf(`userID = %s && statusPayment = false`, user.ID),
	})
	if err != nil {
		return err
	}
	for _, item := range res.Items {
		if err := s.GW.Delete(ctx, gateway.CollectionCart, item.ID()); err != nil && !gateway.IsNotFound(err) {
			return err
		}
	}
	return nil
}

func (s *Service) productStock(ctx context.Context, productID string) (int, error) {
	product, err := s.GW.GetOne(ctx, gateway.CollectionProducts, productID)
	if err != nil {
		return 0, fmt.Errorf("verify product stock: %w", err)
	}
	return product.GetInt("quantity"), nil
}
