package wishlist

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowmart-app/storefront/internal/gateway"
	"github.com/glowmart-app/storefront/internal/gateway/gatewaytest"
	"github.com/glowmart-app/storefront/internal/session"
	"github.com/glowmart-app/storefront/internal/storage"
)

func newTestEnv(t *testing.T) (*Service, *gatewaytest.InMem, *session.Manager) {
	t.Helper()

	mem := gatewaytest.New()
	store, err := storage.Open(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sessions, err := session.NewManager(mem, store)
	require.NoError(t, err)

	return &Service{GW: mem, Sessions: sessions}, mem, sessions
}

func login(t *testing.T, mem *gatewaytest.InMem, sessions *session.Manager) string {
	t.Helper()

	user := mem.SeedUser("fan@example.com", "password123", gateway.Record{"name": "Fan"})
	_, err := sessions.Login(context.Background(), "fan@example.com", "password123")
	require.NoError(t, err)
	return user.ID()
}

func TestToggle_RequiresSession(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestEnv(t)

	_, err := svc.Toggle(context.Background(), "p1")
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestToggle_RoundTrip(t *testing.T) {
	t.Parallel()

	svc, mem, sessions := newTestEnv(t)
	login(t, mem, sessions)
	product := mem.Seed(gateway.CollectionProducts, gateway.Record{"name": "Serum", "price": 20.0})

	ctx := context.Background()

	added, err := svc.Toggle(ctx, product.ID())
	require.NoError(t, err)
	assert.True(t, added.Wishlisted)
	assert.NotEmpty(t, added.EntryID)
	assert.Len(t, mem.Dump(gateway.CollectionWishlist), 1)

	removed, err := svc.Toggle(ctx, product.ID())
	require.NoError(t, err)
	assert.False(t, removed.Wishlisted)
	assert.Empty(t, removed.EntryID)
	assert.Empty(t, mem.Dump(gateway.CollectionWishlist))
}

func TestToggle_NoDuplicateEntries(t *testing.T) {
	t.Parallel()

	svc, mem, sessions := newTestEnv(t)
	login(t, mem, sessions)
	product := mem.Seed(gateway.CollectionProducts, gateway.Record{"name": "Serum", "price": 20.0})

	ctx := context.Background()
	for i := 0; i < 4; i++ {
		_, err := svc.Toggle(ctx, product.ID())
		require.NoError(t, err)
	}
	// Even number of toggles lands back on empty.
	assert.Empty(t, mem.Dump(gateway.CollectionWishlist))
}

func TestIsWishlisted(t *testing.T) {
	t.Parallel()

	svc, mem, sessions := newTestEnv(t)
	login(t, mem, sessions)
	product := mem.Seed(gateway.CollectionProducts, gateway.Record{"name": "Serum", "price": 20.0})

	ctx := context.Background()
	assert.False(t, svc.IsWishlisted(ctx, product.ID()).Wishlisted)

	added, err := svc.Toggle(ctx, product.ID())
	require.NoError(t, err)

	status := svc.IsWishlisted(ctx, product.ID())
	assert.True(t, status.Wishlisted)
	assert.Equal(t, added.EntryID, status.EntryID)
}

func TestIsWishlisted_NoSession(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestEnv(t)
	assert.False(t, svc.IsWishlisted(context.Background(), "p1").Wishlisted)
}

func TestList_ResolvesProducts(t *testing.T) {
	t.Parallel()

	svc, mem, sessions := newTestEnv(t)
	login(t, mem, sessions)
	product := mem.Seed(gateway.CollectionProducts, gateway.Record{
		"name":  "Serum",
		"price": 20.0,
		"image": "serum.png",
	})

	ctx := context.Background()
	_, err := svc.Toggle(ctx, product.ID())
	require.NoError(t, err)

	items, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Serum", items[0].Product.Name)
	assert.Equal(t, 20.0, items[0].Product.Price)
	assert.Contains(t, items[0].Product.ImageURL, "serum.png")
}

func TestList_RemoteFailure_DegradesToEmpty(t *testing.T) {
	t.Parallel()

	svc, mem, sessions := newTestEnv(t)
	login(t, mem, sessions)

	mem.BeforeList = func(collection string) error {
		return &gateway.Error{Status: 500, Message: "boom"}
	}

	items, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRemove_Idempotent(t *testing.T) {
	t.Parallel()

	svc, mem, sessions := newTestEnv(t)
	login(t, mem, sessions)
	product := mem.Seed(gateway.CollectionProducts, gateway.Record{"name": "Serum", "price": 20.0})

	ctx := context.Background()
	added, err := svc.Toggle(ctx, product.ID())
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, added.EntryID))
	require.NoError(t, svc.Remove(ctx, added.EntryID))
	assert.Empty(t, mem.Dump(gateway.CollectionWishlist))
}
