// Package gateway is the contract of the hosted record store the storefront
// is a client of. Collections are named sets of schemaless records reached
// over HTTP; queries are expressed as textual filter predicates.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	CollectionUsers       = "users"
	CollectionProducts    = "products"
	CollectionCart        = "cart"
	CollectionReceipt     = "receipt"
	CollectionReceiptCart = "receiptCart"
	CollectionWishlist    = "wishlist"
	CollectionReview      = "review"
)

// timeLayout is the timestamp format the record store emits.
const timeLayout = "2006-01-02 15:04:05.000Z"

type Record map[string]any

func (r Record) ID() string { return r.GetString("id") }

func (r Record) GetString(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

func (r Record) GetFloat(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func (r Record) GetInt(key string) int {
	return int(r.GetFloat(key))
}

func (r Record) GetBool(key string) bool {
	if v, ok := r[key].(bool); ok {
		return v
	}
	return false
}

func (r Record) GetTime(key string) time.Time {
	s := r.GetString(key)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// Expand returns the expanded relation record for a single-relation field,
// or nil when the expansion is absent.
func (r Record) Expand(field string) Record {
	exp, ok := r["expand"].(map[string]any)
	if !ok {
		return nil
	}
	if rec, ok := exp[field].(map[string]any); ok {
		return Record(rec)
	}
	return nil
}

type ListOptions struct {
	Filter string
	Sort   string
	Expand string
}

type ListResult struct {
	Page       int      `json:"page"`
	PerPage    int      `json:"perPage"`
	TotalItems int      `json:"totalItems"`
	TotalPages int      `json:"totalPages"`
	Items      []Record `json:"items"`
}

type Auth struct {
	Token  string
	Record Record
}

// TokenSource supplies the bearer token attached to authenticated calls.
// The zero token means anonymous.
type TokenSource interface {
	Token() string
}

type Gateway interface {
	List(ctx context.Context, collection string, page, perPage int, opts ListOptions) (*ListResult, error)
	FullList(ctx context.Context, collection string, batch int, opts ListOptions) ([]Record, error)
	GetOne(ctx context.Context, collection, id string) (Record, error)
	Create(ctx context.Context, collection string, data map[string]any) (Record, error)
	Update(ctx context.Context, collection, id string, data map[string]any) (Record, error)
	Delete(ctx context.Context, collection, id string) error

	AuthWithPassword(ctx context.Context, identity, password string) (*Auth, error)

	FileURL(rec Record, filename string, opts ...FileOption) string
}

// Error is a non-2xx response from the record store.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway: status %d: %s", e.Status, e.Message)
}

func IsNotFound(err error) bool {
	var ge *Error
	return errors.As(err, &ge) && ge.Status == 404
}

// Quote escapes v for use as a string literal inside a filter expression.
func Quote(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return `"` + v + `"`
}

// Filterf builds a filter string, quoting every string argument. Callers
// write placeholders as %s:
//
//	Filterf(`userID = %s && statusPayment = false`, userID)
func Filterf(format string, args ...any) string {
	quoted := make([]any, len(args))
	for i, a := range args {
		if s, ok := a.(string); ok {
			quoted[i] = Quote(s)
			continue
		}
		quoted[i] = a
	}
	return fmt.Sprintf(format, quoted...)
}
