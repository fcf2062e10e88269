// Package order turns a set of selected cart lines into a receipt. The
// steps are independent remote writes with no cross-step transaction: a
// failure leaves earlier steps applied. Progress is journaled locally so
// a partial checkout is at least diagnosable, and the error names the
// step that broke.
package order

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/glowmart-app/storefront/internal/events"
	"github.com/glowmart-app/storefront/internal/gateway"
	"github.com/glowmart-app/storefront/internal/models"
	"github.com/glowmart-app/storefront/internal/session"
	"github.com/glowmart-app/storefront/internal/storage"
	"github.com/glowmart-app/storefront/pkg/logging"
)

var (
	ErrValidation        = errors.New("validation")
	ErrIncompleteProfile = errors.New("incomplete profile")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// TaxRate is applied to the subtotal of every order.
const TaxRate = 0.06

var courierFees = map[string]float64{
	"ninjavan": 6.50,
	"poslaju":  6.00,
	"flash":    5.27,
	"jnt":      5.00,
	"gdex":     7.00,
}

// CourierFee returns the flat delivery fee for a courier choice.
func CourierFee(courier string) (float64, bool) {
	fee, ok := courierFees[courier]
	return fee, ok
}

// Step identifies one of the independent remote writes of a checkout.
type Step string

const (
	StepCreateReceipt Step = "create_receipt"
	StepLinkLines     Step = "link_lines"
	StepReserveStock  Step = "reserve_stock"
)

// State is how far a checkout got. There is no compensation path; failed
// is terminal and records the broken step.
type State string

const (
	StateCreated       State = "created"
	StateLinesLinked   State = "lines_linked"
	StateStockReserved State = "stock_reserved"
	StateCommitted     State = "committed"
	StateFailed        State = "failed"
)

// StepError wraps a checkout failure with the step it happened in.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("checkout step %s: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

// Item is one selected cart line at checkout.
type Item struct {
	LineID    string  `json:"line_id"`
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Total computes subtotal plus tax plus the courier fee.
func Total(items []Item, courier string) (float64, error) {
	fee, ok := CourierFee(courier)
	if !ok {
		return 0, fmt.Errorf("%w: unknown courier %q", ErrValidation, courier)
	}
	var subtotal float64
	for _, it := range items {
		subtotal += it.UnitPrice * float64(it.Quantity)
	}
	return subtotal*(1+TaxRate) + fee, nil
}

type Service struct {
	GW       gateway.Gateway
	Sessions *session.Manager
	Journal  *storage.Store

	// Events is optional; nil disables publishing.
	Events *events.Producer
	Topic  string
}

// Place runs the checkout: create the receipt, link and mark the selected
// lines, then decrement stock per product. Line processing within a phase
// is parallel with no ordering between lines and no lock on a product, so
// two concurrent checkouts of the same product can both pass the stock
// check before either write lands.
func (s *Service) Place(ctx context.Context, items []Item, courier, payment string) (*models.Receipt, error) {
	user, err := s.Sessions.Require()
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: items required", ErrValidation)
	}
	for _, it := range items {
		if it.LineID == "" || it.ProductID == "" {
			return nil, fmt.Errorf("%w: line and product ids required", ErrValidation)
		}
		if it.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be > 0", ErrValidation)
		}
	}
	total, err := Total(items, courier)
	if err != nil {
		return nil, err
	}

	if err := s.checkProfile(ctx, user.ID); err != nil {
		return nil, err
	}

	rec, err := s.GW.Create(ctx, gateway.CollectionReceipt, map[string]any{
		"userID":        user.ID,
		"totalAmount":   total,
		"courier":       courier,
		"paymentOption": payment,
	})
	if err != nil {
		return nil, &StepError{Step: StepCreateReceipt, Err: err}
	}
	receiptID := rec.ID()
	s.journal(ctx, receiptID, StateCreated, "")

	if err := s.linkLines(ctx, receiptID, items); err != nil {
		s.journal(ctx, receiptID, StateFailed, StepLinkLines)
		return nil, &StepError{Step: StepLinkLines, Err: err}
	}
	s.journal(ctx, receiptID, StateLinesLinked, "")

	if err := s.reserveStock(ctx, items); err != nil {
		s.journal(ctx, receiptID, StateFailed, StepReserveStock)
		return nil, &StepError{Step: StepReserveStock, Err: err}
	}
	s.journal(ctx, receiptID, StateStockReserved, "")
	s.journal(ctx, receiptID, StateCommitted, "")

	receipt := &models.Receipt{
		ID:            receiptID,
		UserID:        user.ID,
		Total:         total,
		Courier:       courier,
		PaymentMethod: payment,
		Created:       rec.GetTime("created"),
	}
	s.publishPlaced(ctx, receipt, items)
	return receipt, nil
}

// checkProfile refuses checkout until the shipping address and phone
// number are filled in. The caller is expected to send the user to the
// profile screen, not to retry.
func (s *Service) checkProfile(ctx context.Context, userID string) error {
	rec, err := s.GW.GetOne(ctx, gateway.CollectionUsers, userID)
	if err != nil {
		return err
	}
	if rec.GetString("address") == "" || rec.GetString("phoneNo") == "" {
		return fmt.Errorf("%w: address and phone number required before checkout", ErrIncompleteProfile)
	}
	return nil
}

// linkLines joins every selected line to the receipt and flips it to
// paid. Lines are processed concurrently; there is no ordering guarantee
// between them.
func (s *Service) linkLines(ctx context.Context, receiptID string, items []Item) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, it := range items {
		it := it
		g.Go(func() error {
			_, err := s.GW.Create(ctx, gateway.CollectionReceiptCart, map[string]any{
				"receiptID": receiptID,
				"cartID":    it.LineID,
			})
			if err != nil {
				return err
			}
			_, err = s.GW.Update(ctx, gateway.CollectionCart, it.LineID, map[string]any{
				"statusPayment": true,
			})
			return err
		})
	}
	return g.Wait()
}

// reserveStock re-reads each product and writes the decremented quantity.
// Read and write are separate calls with no concurrency token, which is
// the documented lost-update window.
func (s *Service) reserveStock(ctx context.Context, items []Item) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, it := range items {
		it := it
		g.Go(func() error {
			product, err := s.GW.GetOne(ctx, gateway.CollectionProducts, it.ProductID)
			if err != nil {
				return err
			}
			newQuantity := product.GetInt("quantity") - it.Quantity
			if newQuantity < 0 {
				return fmt.Errorf("%w: %s has only %d left", ErrInsufficientStock,
					product.GetString("name"), product.GetInt("quantity"))
			}
			_, err = s.GW.Update(ctx, gateway.CollectionProducts, it.ProductID, map[string]any{
				"quantity": newQuantity,
			})
			return err
		})
	}
	return g.Wait()
}

type journalEntry struct {
	ReceiptID  string `json:"receipt_id"`
	State      State  `json:"state"`
	FailedStep Step   `json:"failed_step,omitempty"`
}

// journal persists how far a checkout got. Best effort: a journaling
// failure must not fail the checkout itself.
func (s *Service) journal(ctx context.Context, receiptID string, state State, failed Step) {
	if s.Journal == nil {
		return
	}
	entry := journalEntry{ReceiptID: receiptID, State: state, FailedStep: failed}
	if err := s.Journal.PutJSON("checkout:"+receiptID, entry); err != nil {
		logging.FromContext(ctx).Warn("checkout journal write failed", "receipt_id", receiptID, "error", err)
	}
}

// Progress reports the journaled state of a checkout, if any.
func (s *Service) Progress(receiptID string) (State, Step, bool) {
	if s.Journal == nil {
		return "", "", false
	}
	var entry journalEntry
	ok, err := s.Journal.GetJSON("checkout:"+receiptID, &entry)
	if err != nil || !ok {
		return "", "", false
	}
	return entry.State, entry.FailedStep, true
}

func (s *Service) publishPlaced(ctx context.Context, receipt *models.Receipt, items []Item) {
	if s.Events == nil {
		return
	}
	payload := map[string]any{
		"receipt": receipt,
		"items":   items,
	}
	if err := s.Events.Publish(ctx, s.Topic, "order.placed", payload); err != nil {
		logging.FromContext(ctx).Warn("order event publish failed", "receipt_id", receipt.ID, "error", err)
	}
}
