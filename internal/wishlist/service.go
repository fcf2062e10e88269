// Package wishlist is the saved-items set: existence of an entry per
// (user, product) is the only state.
package wishlist

import (
	"context"

	"github.com/glowmart-app/storefront/internal/gateway"
	"github.com/glowmart-app/storefront/internal/models"
	"github.com/glowmart-app/storefront/internal/session"
	"github.com/glowmart-app/storefront/pkg/logging"
)

type Service struct {
	GW       gateway.Gateway
	Sessions *session.Manager
}

// Status is the outcome of a membership check or a toggle.
type Status struct {
	Wishlisted bool   `json:"wishlisted"`
	EntryID    string `json:"entry_id,omitempty"`
}

// Toggle flips a product's wishlist membership. The lookup and the write
// are separate calls, so concurrent toggles from the same user are best
// effort, not linearizable.
func (s *Service) Toggle(ctx context.Context, productID string) (Status, error) {
	user, err := s.Sessions.Require()
	if err != nil {
		return Status{}, err
	}

	current, err := s.lookup(ctx, user.ID, productID)
	if err != nil {
		return Status{}, err
	}

	if current.Wishlisted {
		if err := s.GW.Delete(ctx, gateway.CollectionWishlist, current.EntryID); err != nil {
			return Status{}, err
		}
		return Status{Wishlisted: false}, nil
	}

	rec, err := s.GW.Create(ctx, gateway.CollectionWishlist, map[string]any{
		"userID":    user.ID,
		"productID": productID,
	})
	if err != nil {
		return Status{}, err
	}
	return Status{Wishlisted: true, EntryID: rec.ID()}, nil
}

// IsWishlisted reports membership for display badges. Without a session,
// or on a remote failure, it degrades to "not wishlisted".
func (s *Service) IsWishlisted(ctx context.Context, productID string) Status {
	user := s.Sessions.Current()
	if user == nil {
		return Status{}
	}
	status, err := s.lookup(ctx, user.ID, productID)
	if err != nil {
		logging.FromContext(ctx).Warn("wishlist status check failed", "product_id", productID, "error", err)
		return Status{}
	}
	return status
}

// List returns the current user's wishlist with product details resolved.
// Degrades to empty on remote failure.
func (s *Service) List(ctx context.Context) ([]models.WishlistItem, error) {
	user := s.Sessions.Current()
	if user == nil {
		return []models.WishlistItem{}, session.ErrNotAuthenticated
	}

	res, err := s.GW.List(ctx, gateway.CollectionWishlist, 1, 50, gateway.ListOptions{
		Filter: gateway.Filterf(`userID = %s`, user.ID),
		Expand: "productID",
	})
	if err != nil {
		logging.FromContext(ctx).Warn("wishlist fetch failed", "error", err)
		return []models.WishlistItem{}, nil
	}

	items := make([]models.WishlistItem, 0, len(res.Items))
	for _, rec := range res.Items {
		product := rec.Expand("productID")
		if product == nil {
			continue
		}
		items = append(items, models.WishlistItem{
			ID: rec.ID(),
			Product: models.ProductSummary{
				ID:       product.ID(),
				Name:     product.GetString("name"),
				Price:    product.GetFloat("price"),
				ImageURL: s.GW.FileURL(product, product.GetString("image")),
			},
		})
	}
	return items, nil
}

// Remove deletes an entry directly by id (the wishlist screen's trash
// action). Deleting an absent entry is not an error.
func (s *Service) Remove(ctx context.Context, entryID string) error {
	if err := s.GW.Delete(ctx, gateway.CollectionWishlist, entryID); err != nil && !gateway.IsNotFound(err) {
		return err
	}
	return nil
}

func (s *Service) lookup(ctx context.Context, userID, productID string) (Status, error) {
	res, err := s.GW.List(ctx, gateway.CollectionWishlist, 1, 1, gateway.ListOptions{
		Filter: gateway.Filterf(`userID = %s && productID = %s`, userID, productID),
	})
	if err != nil {
		return Status{}, err
	}
	if len(res.Items) == 0 {
		return Status{}, nil
	}
	return Status{Wishlisted: true, EntryID: res.Items[0].ID()}, nil
}
