// Package history assembles past orders from receipts, their line links
// and product snapshots, and keeps a best-effort local copy so the list
// still renders offline.
package history

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/glowmart-app/storefront/internal/gateway"
	"github.com/glowmart-app/storefront/internal/models"
	"github.com/glowmart-app/storefront/internal/session"
	"github.com/glowmart-app/storefront/internal/storage"
	"github.com/glowmart-app/storefront/pkg/logging"
)

// ErrUnavailable means every attempt failed and no cached snapshot
// exists. The message is meant for direct display.
var ErrUnavailable = errors.New("failed to fetch purchase history, check your network connection and try again")

const (
	snapshotKey  = "purchaseHistory"
	retryDelay   = 500 * time.Millisecond
	lineAttempts = 5
)

type Service struct {
	GW       gateway.Gateway
	Sessions *session.Manager
	Cache    *storage.Store
}

// Fetch retrieves the user's receipts with resolved products, retrying
// the whole fetch up to maxAttempts times with a fixed delay. When every
// attempt fails it falls back to the cached snapshot; without one it
// returns an empty list and ErrUnavailable. A successful fetch overwrites
// the cache unconditionally.
func (s *Service) Fetch(ctx context.Context, maxAttempts int) ([]models.Purchase, error) {
	if _, err := s.Sessions.Require(); err != nil {
		return []models.Purchase{}, err
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		purchases, err := s.fetchOnce(ctx)
		if err == nil {
			if err := s.Cache.PutJSON(snapshotKey, purchases); err != nil {
				logging.FromContext(ctx).Warn("history cache write failed", "error", err)
			}
			return purchases, nil
		}
		lastErr = err
		if attempt < maxAttempts {
			if serr := sleep(ctx, retryDelay); serr != nil {
				lastErr = serr
				break
			}
		}
	}
	logging.FromContext(ctx).Warn("history fetch failed, falling back to cache", "error", lastErr)

	if cached, ok := s.Cached(); ok {
		return cached, nil
	}
	return []models.Purchase{}, ErrUnavailable
}

// Cached returns the last stored snapshot without touching the network.
func (s *Service) Cached() ([]models.Purchase, bool) {
	var cached []models.Purchase
	ok, err := s.Cache.GetJSON(snapshotKey, &cached)
	if err != nil || !ok {
		return nil, false
	}
	return cached, true
}

func (s *Service) fetchOnce(ctx context.Context) ([]models.Purchase, error) {
	user := s.Sessions.Current()
	if user == nil {
		return nil, session.ErrNotAuthenticated
	}

	receipts, err := s.GW.List(ctx, gateway.CollectionReceipt, 1, 50, gateway.ListOptions{
		Filter: gateway.Filterf(`userID = %s`, user.ID),
		Sort:   "-created",
	})
	if err != nil {
		return nil, err
	}
	if len(receipts.Items) == 0 {
		return []models.Purchase{}, nil
	}

	// Line links are fetched per receipt in parallel; each sub-fetch has
	// its own retry budget and degrades to no products instead of failing
	// the whole history.
	products := make([][]models.PurchasedProduct, len(receipts.Items))
	var wg sync.WaitGroup
	for i, rec := range receipts.Items {
		wg.Add(1)
		go func(i int, receiptID string) {
			defer wg.Done()
			products[i] = s.fetchReceiptLines(ctx, receiptID)
		}(i, rec.ID())
	}
	wg.Wait()

	purchases := make([]models.Purchase, 0, len(receipts.Items))
	for i, rec := range receipts.Items {
		purchases = append(purchases, models.Purchase{
			Receipt: models.Receipt{
				ID:            rec.ID(),
				UserID:        rec.GetString("userID"),
				Total:         rec.GetFloat("totalAmount"),
				Courier:       rec.GetString("courier"),
				PaymentMethod: rec.GetString("paymentOption"),
				Created:       rec.GetTime("created"),
			},
			Products: products[i],
		})
	}
	return purchases, nil
}

// fetchReceiptLines resolves one receipt's lines to product snapshots.
// It retries on its own budget and gives up to an empty slice: a receipt
// with unresolved lines is shown bare rather than dropped.
func (s *Service) fetchReceiptLines(ctx context.Context, receiptID string) []models.PurchasedProduct {
	for attempt := 1; attempt <= lineAttempts; attempt++ {
		res, err := s.GW.List(ctx, gateway.CollectionReceiptCart, 1, 50, gateway.ListOptions{
			Filter: gateway.Filterf(`receiptID = %s`, receiptID),
			Expand: "cartID, cartID.productID",
		})
		if err != nil {
			if attempt < lineAttempts {
				if serr := sleep(ctx, retryDelay); serr != nil {
					return []models.PurchasedProduct{}
				}
				continue
			}
			return []models.PurchasedProduct{}
		}

		out := make([]models.PurchasedProduct, 0, len(res.Items))
		for _, link := range res.Items {
			line := link.Expand("cartID")
			if line == nil {
				continue
			}
			product := line.Expand("productID")
			if product == nil {
				continue
			}
			out = append(out, models.PurchasedProduct{
				ID:       product.ID(),
				Name:     product.GetString("name"),
				Price:    product.GetFloat("price"),
				ImageURL: s.GW.FileURL(product, product.GetString("image")),
				Quantity: line.GetInt("quantity"),
			})
		}
		return out
	}
	return []models.PurchasedProduct{}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
