package order

import (
	"context"
	"path/filepath"
	"sync"
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

	return &Service{GW: mem, Sessions: sessions, Journal: store}, mem, sessions
}

func loginWith(t *testing.T, mem *gatewaytest.InMem, sessions *session.Manager, fields gateway.Record) string {
	t.Helper()

	user := mem.SeedUser("buyer@example.com", "password123", fields)
	_, err := sessions.Login(context.Background(), "buyer@example.com", "password123")
	require.NoError(t, err)
	return user.ID()
}

func loginComplete(t *testing.T, mem *gatewaytest.InMem, sessions *session.Manager) string {
	return loginWith(t, mem, sessions, gateway.Record{
		"name":    "Buyer",
		"address": "12 Jalan Example",
		"phoneNo": "0123456789",
	})
}

// seedLine creates a product and an unpaid cart line for it, returning
// the checkout item.
func seedLine(mem *gatewaytest.InMem, userID string, price float64, stock, quantity int) Item {
	product := mem.Seed(gateway.CollectionProducts, gateway.Record{
		"name":     "Hair Oil",
		"price":    price,
		"quantity": stock,
	})
	line := mem.Seed(gateway.CollectionCart, gateway.Record{
		"userID":        userID,
		"productID":     product.ID(),
		"quantity":      quantity,
		"statusPayment": false,
	})
	return Item{
		LineID:    line.ID(),
		ProductID: product.ID(),
		Quantity:  quantity,
		UnitPrice: price,
	}
}

func TestTotal(t *testing.T) {
	t.Parallel()

	items := []Item{
		{Quantity: 2, UnitPrice: 30},
		{Quantity: 1, UnitPrice: 40},
	}

	total, err := Total(items, "ninjavan")
	require.NoError(t, err)
	// 100 subtotal, 6% tax, 6.50 courier fee.
	assert.InDelta(t, 112.50, total, 0.0001)
}

func TestTotal_UnknownCourier(t *testing.T) {
	t.Parallel()

	_, err := Total([]Item{{Quantity: 1, UnitPrice: 10}}, "pigeon")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPlace_RequiresSession(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestEnv(t)

	_, err := svc.Place(context.Background(), []Item{{LineID: "l", ProductID: "p", Quantity: 1}}, "jnt", "cod")
	require.Error(t, err)
	assert.ErrorIs(t, err, session.ErrNotAuthenticated)
}

func TestPlace_Validation(t *testing.T) {
	t.Parallel()

	svc, mem, sessions := newTestEnv(t)
	loginComplete(t, mem, sessions)
	ctx := context.Background()

	tests := []struct {
		name  string
		items []Item
	}{
		{name: "no items", items: nil},
		{name: "missing line id", items: []Item{{ProductID: "p", Quantity: 1}}},
		{name: "missing product id", items: []Item{{LineID: "l", Quantity: 1}}},
		{name: "zero quantity", items: []Item{{LineID: "l", ProductID: "p", Quantity: 0}}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Place(ctx, tt.items, "jnt", "cod")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestPlace_IncompleteProfile(t *testing.T) {
	t.Parallel()

	svc, mem, sessions := newTestEnv(t)
	userID := loginWith(t, mem, sessions, gateway.Record{"name": "Buyer"})
	item := seedLine(mem, userID, 10, 5, 1)

	_, err := svc.Place(context.Background(), []Item{item}, "jnt", "cod")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIncompleteProfile)
	// Nothing was written before the gate.
	assert.Empty(t, mem.Dump(gateway.CollectionReceipt))
}

func TestPlace_Succeeds(t *testing.T) {
	t.Parallel()

	svc, mem, sessions := newTestEnv(t)
	userID := loginComplete(t, mem, sessions)
	first := seedLine(mem, userID, 25, 5, 2)
	second := seedLine(mem, userID, 50, 3, 1)

	receipt, err := svc.Place(context.Background(), []Item{first, second}, "ninjavan", "credit")
	require.NoError(t, err)
	require.NotEmpty(t, receipt.ID)
	assert.Equal(t, userID, receipt.UserID)
	assert.InDelta(t, 100*1.06+6.50, receipt.Total, 0.0001)

	links := mem.Dump(gateway.CollectionReceiptCart)
	require.Len(t, links, 2)
	for _, link := range links {
		assert.Equal(t, receipt.ID, link.GetString("receiptID"))
	}

	for _, item := range []Item{first, second} {
		line, err := mem.GetOne(context.Background(), gateway.CollectionCart, item.LineID)
		require.NoError(t, err)
		assert.True(t, line.GetBool("statusPayment"))
	}

	firstProduct, err := mem.GetOne(context.Background(), gateway.CollectionProducts, first.ProductID)
	require.NoError(t, err)
	assert.Equal(t, 3, firstProduct.GetInt("quantity"))
	secondProduct, err := mem.GetOne(context.Background(), gateway.CollectionProducts, second.ProductID)
	require.NoError(t, err)
	assert.Equal(t, 2, secondProduct.GetInt("quantity"))

	state, failedStep, ok := svc.Progress(receipt.ID)
	require.True(t, ok)
	assert.Equal(t, StateCommitted, state)
	assert.Empty(t, failedStep)
}

func TestPlace_InsufficientStock_NoRollback(t *testing.T) {
	t.Parallel()

	svc, mem, sessions := newTestEnv(t)
	userID := loginComplete(t, mem, sessions)
	item := seedLine(mem, userID, 10, 1, 2)

	_, err := svc.Place(context.Background(), []Item{item}, "jnt", "cod")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepReserveStock, stepErr.Step)

	// Earlier steps stay applied: the receipt exists and the line is
	// already marked paid.
	receipts := mem.Dump(gateway.CollectionReceipt)
	require.Len(t, receipts, 1)
	line, err := mem.GetOne(context.Background(), gateway.CollectionCart, item.LineID)
	require.NoError(t, err)
	assert.True(t, line.GetBool("statusPayment"))

	state, failedStep, ok := svc.Progress(receipts[0].ID())
	require.True(t, ok)
	assert.Equal(t, StateFailed, state)
	assert.Equal(t, StepReserveStock, failedStep)
}

func TestPlace_LinkFailure_KeepsReceipt(t *testing.T) {
	t.Parallel()

	svc, mem, sessions := newTestEnv(t)
	userID := loginComplete(t, mem, sessions)
	item := seedLine(mem, userID, 10, 5, 1)

	mem.BeforeCreate = func(collection string) error {
		if collection == gateway.CollectionReceiptCart {
			return &gateway.Error{Status: 500, Message: "boom"}
		}
		return nil
	}

	_, err := svc.Place(context.Background(), []Item{item}, "jnt", "cod")
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepLinkLines, stepErr.Step)

	receipts := mem.Dump(gateway.CollectionReceipt)
	require.Len(t, receipts, 1)
	state, failedStep, ok := svc.Progress(receipts[0].ID())
	require.True(t, ok)
	assert.Equal(t, StateFailed, state)
	assert.Equal(t, StepLinkLines, failedStep)
}

// TestPlace_ConcurrentOversell pins the known lost-update race: stock is
// checked with a read and decremented with an unconditional write, so two
// checkouts of the last units can both pass the check. Both orders commit,
// four units are sold against a stock of three, and one decrement is
// silently lost. A correct design would fail one of them with an atomic
// reserve-and-decrement.
func TestPlace_ConcurrentOversell(t *testing.T) {
	t.Parallel()

	svc, mem, sessions := newTestEnv(t)
	userID := loginComplete(t, mem, sessions)

	product := mem.Seed(gateway.CollectionProducts, gateway.Record{
		"name":     "Hair Oil",
		"price":    10.0,
		"quantity": 3,
	})
	makeItem := func() Item {
		line := mem.Seed(gateway.CollectionCart, gateway.Record{
			"userID":        userID,
			"productID":     product.ID(),
			"quantity":      2,
			"statusPayment": false,
		})
		return Item{LineID: line.ID(), ProductID: product.ID(), Quantity: 2, UnitPrice: 10}
	}
	first, second := makeItem(), makeItem()

	// Barrier: both checkouts must read the product before either writes
	// the decrement.
	var reads sync.WaitGroup
	reads.Add(2)
	mem.AfterGetOne = func(collection, id string) {
		if collection == gateway.CollectionProducts {
			reads.Done()
		}
	}
	mem.BeforeUpdate = func(collection, id string) error {
		if collection == gateway.CollectionProducts {
			reads.Wait()
		}
		return nil
	}

	ctx := context.Background()
	errs := make(chan error, 2)
	go func() {
		_, err := svc.Place(ctx, []Item{first}, "jnt", "cod")
		errs <- err
	}()
	go func() {
		_, err := svc.Place(ctx, []Item{second}, "jnt", "cod")
		errs <- err
	}()

	require.NoError(t, <-errs)
	require.NoError(t, <-errs)
	mem.AfterGetOne = nil
	mem.BeforeUpdate = nil

	// Both writes land the same read-3-minus-2 result: stock shows 1
	// even though 4 units were sold. The second decrement is lost.
	after, err := mem.GetOne(ctx, gateway.CollectionProducts, product.ID())
	require.NoError(t, err)
	assert.Equal(t, 1, after.GetInt("quantity"), "both checkouts committed against stock 3")

	sold := 0
	for _, line := range mem.Dump(gateway.CollectionCart) {
		if line.GetBool("statusPayment") {
			sold += line.GetInt("quantity")
		}
	}
	assert.Equal(t, 4, sold)
}

func TestProgress_Unknown(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestEnv(t)

	_, _, ok := svc.Progress("nope")
	assert.False(t, ok)
}
