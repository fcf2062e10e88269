// Package catalog is read-only product browsing and search. The catalog
// itself is maintained by an external process; this side only reads.
package catalog

import (
	"context"
	"strings"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/glowmart-app/storefront/internal/gateway"
	"github.com/glowmart-app/storefront/internal/models"
	"github.com/glowmart-app/storefront/pkg/logging"
)

type Service struct {
	GW gateway.Gateway

	// ES is optional. When configured, Search goes to the index first and
	// falls back to a gateway filter query on error.
	ES      *elasticsearch.Client
	ESIndex string
}

func (s *Service) ByType(ctx context.Context, productType string) ([]models.Product, error) {
	return s.fullList(ctx, gateway.Filterf(`productType = %s`, productType))
}

func (s *Service) ByCategory(ctx context.Context, category string) ([]models.Product, error) {
	return s.fullList(ctx, gateway.Filterf(`category = %s`, category))
}

func (s *Service) ByTypeAndCategory(ctx context.Context, productType, category string) ([]models.Product, error) {
	return s.fullList(ctx, gateway.Filterf(`productType = %s && category = %s`, productType, category))
}

func (s *Service) Get(ctx context.Context, productID string) (*models.Product, error) {
	rec, err := s.GW.GetOne(ctx, gateway.CollectionProducts, productID)
	if err != nil {
		return nil, err
	}
	p := s.productFromRecord(rec)
	return &p, nil
}

// Search matches products by name or category, case-insensitively.
func (s *Service) Search(ctx context.Context, query string) ([]models.Product, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []models.Product{}, nil
	}

	if s.ES != nil {
		products, err := s.searchIndex(ctx, query)
		if err == nil {
			return products, nil
		}
		logging.FromContext(ctx).Warn("index search failed, falling back to gateway", "error", err)
	}

	res, err := s.GW.List(ctx, gateway.CollectionProducts, 1, 50, gateway.ListOptions{
		Filter: gateway.Filterf(`name ~ %s || category ~ %s`, query, query),
	})
	if err != nil {
		return nil, err
	}
	products := make([]models.Product, 0, len(res.Items))
	for _, rec := range res.Items {
		products = append(products, s.productFromRecord(rec))
	}
	return products, nil
}

func (s *Service) fullList(ctx context.Context, filter string) ([]models.Product, error) {
	recs, err := s.GW.FullList(ctx, gateway.CollectionProducts, 200, gateway.ListOptions{
		Filter: filter,
		Sort:   "-created",
	})
	if err != nil {
		return nil, err
	}
	products := make([]models.Product, 0, len(recs))
	for _, rec := range recs {
		products = append(products, s.productFromRecord(rec))
	}
	return products, nil
}

func (s *Service) productFromRecord(rec gateway.Record) models.Product {
	return models.Product{
		ID:          rec.ID(),
		Name:        rec.GetString("name"),
		Description: rec.GetString("description"),
		Price:       rec.GetFloat("price"),
		Quantity:    rec.GetInt("quantity"),
		Category:    rec.GetString("category"),
		ProductType: rec.GetString("productType"),
		ImageURL:    s.GW.FileURL(rec, rec.GetString("image")),
	}
}
