// Package review submits and lists product reviews. Uniqueness per
// (receipt, product) is only tracked on this side, in the local snapshot
// store; the record store enforces nothing, so another device can still
// create a duplicate.
package review

import (
	"context"
	"errors"
	"fmt"

	"github.com/glowmart-app/storefront/internal/gateway"
	"github.com/glowmart-app/storefront/internal/models"
	"github.com/glowmart-app/storefront/internal/session"
	"github.com/glowmart-app/storefront/internal/storage"
)

var (
	ErrAlreadyReviewed = errors.New("already reviewed")
	ErrValidation      = errors.New("validation")
)

const snapshotKey = "reviewedPairs"

type Service struct {
	GW       gateway.Gateway
	Sessions *session.Manager
	Store    *storage.Store
}

// ForProduct lists a product's reviews with reviewer names resolved.
func (s *Service) ForProduct(ctx context.Context, productID string) ([]models.Comment, error) {
	res, err := s.GW.List(ctx, gateway.CollectionReview, 1, 50, gateway.ListOptions{
		Filter: gateway.Filterf(`productID = %s`, productID),
		Expand: "userID",
	})
	if err != nil {
		return nil, err
	}

	comments := make([]models.Comment, 0, len(res.Items))
	for _, rec := range res.Items {
		name := "Unknown User"
		if user := rec.Expand("userID"); user != nil && user.GetString("name") != "" {
			name = user.GetString("name")
		}
		comments = append(comments, models.Comment{
			UserName: name,
			Comment:  rec.GetString("comment"),
		})
	}
	return comments, nil
}

// Submit creates a review for a product bought in a given receipt. A
// (receipt, product) pair already recorded locally is rejected.
func (s *Service) Submit(ctx context.Context, productID, receiptID, comment string) error {
	user, err := s.Sessions.Require()
	if err != nil {
		return err
	}
	if productID == "" || receiptID == "" {
		return fmt.Errorf("%w: product and receipt ids required", ErrValidation)
	}
	if comment == "" {
		return fmt.Errorf("%w: comment required", ErrValidation)
	}

	pair := receiptID + "/" + productID
	reviewed, err := s.reviewedPairs()
	if err != nil {
		return err
	}
	if reviewed[pair] {
		return fmt.Errorf("%w: this product was already reviewed for this order", ErrAlreadyReviewed)
	}

	_, err = s.GW.Create(ctx, gateway.CollectionReview, map[string]any{
		"userID":    user.ID,
		"productID": productID,
		"receiptID": receiptID,
		"comment":   comment,
	})
	if err != nil {
		return err
	}

	reviewed[pair] = true
	return s.Store.PutJSON(snapshotKey, reviewed)
}

func (s *Service) reviewedPairs() (map[string]bool, error) {
	reviewed := make(map[string]bool)
	if _, err := s.Store.GetJSON(snapshotKey, &reviewed); err != nil {
		return nil, err
	}
	return reviewed, nil
}
