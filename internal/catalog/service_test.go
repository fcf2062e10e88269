package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowmart-app/storefront/internal/gateway"
	"github.com/glowmart-app/storefront/internal/gateway/gatewaytest"
)

func seedCatalog(mem *gatewaytest.InMem) {
	mem.Seed(gateway.CollectionProducts, gateway.Record{
		"name": "Ceramic Mug", "price": 12.5, "quantity": 10,
		"category": "kitchen", "productType": "popular", "image": "mug.png",
	})
	mem.Seed(gateway.CollectionProducts, gateway.Record{
		"name": "Cast Iron Pan", "price": 45.0, "quantity": 4,
		"category": "kitchen", "productType": "new",
	})
	mem.Seed(gateway.CollectionProducts, gateway.Record{
		"name": "Desk Lamp", "price": 30.0, "quantity": 7,
		"category": "home", "productType": "popular",
	})
}

func TestByType(t *testing.T) {
	t.Parallel()

	mem := gatewaytest.New()
	seedCatalog(mem)
	svc := &Service{GW: mem}

	products, err := svc.ByType(context.Background(), "popular")
	require.NoError(t, err)
	require.Len(t, products, 2)

	// Newest first.
	assert.Equal(t, "Desk Lamp", products[0].Name)
	assert.Equal(t, "Ceramic Mug", products[1].Name)
}

func TestByCategory(t *testing.T) {
	t.Parallel()

	mem := gatewaytest.New()
	seedCatalog(mem)
	svc := &Service{GW: mem}

	products, err := svc.ByCategory(context.Background(), "home")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Desk Lamp", products[0].Name)
}

func TestByTypeAndCategory(t *testing.T) {
	t.Parallel()

	mem := gatewaytest.New()
	seedCatalog(mem)
	svc := &Service{GW: mem}

	products, err := svc.ByTypeAndCategory(context.Background(), "popular", "kitchen")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Ceramic Mug", products[0].Name)
}

func TestGet(t *testing.T) {
	t.Parallel()

	mem := gatewaytest.New()
	rec := mem.Seed(gateway.CollectionProducts, gateway.Record{
		"name": "Ceramic Mug", "price": 12.5, "quantity": 10, "image": "mug.png",
	})
	svc := &Service{GW: mem}

	product, err := svc.Get(context.Background(), rec.ID())
	require.NoError(t, err)
	assert.Equal(t, "Ceramic Mug", product.Name)
	assert.Equal(t, 12.5, product.Price)
	assert.Equal(t, 10, product.Quantity)
	assert.NotEmpty(t, product.ImageURL)

	_, err = svc.Get(context.Background(), "missing")
	assert.True(t, gateway.IsNotFound(err))
}

func TestSearch(t *testing.T) {
	t.Parallel()

	mem := gatewaytest.New()
	seedCatalog(mem)
	svc := &Service{GW: mem}
	ctx := context.Background()

	byName, err := svc.Search(ctx, "  MUG ")
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, "Ceramic Mug", byName[0].Name)

	byCategory, err := svc.Search(ctx, "kitchen")
	require.NoError(t, err)
	assert.Len(t, byCategory, 2)

	none, err := svc.Search(ctx, "zzz")
	require.NoError(t, err)
	assert.Empty(t, none)

	blank, err := svc.Search(ctx, "   ")
	require.NoError(t, err)
	assert.Empty(t, blank)
}
