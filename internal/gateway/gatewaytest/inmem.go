// Package gatewaytest provides an in-memory record store used by the
// service tests. It understands the subset of the filter grammar the
// storefront emits (equality, substring match, && and ||), relation
// expansion, and single-field sorting, and exposes hooks for fault and
// interleaving injection.
package gatewaytest

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/glowmart-app/storefront/internal/gateway"
)

const timeLayout = "2006-01-02 15:04:05.000Z"

type InMem struct {
	mu          sync.Mutex
	collections map[string]map[string]gateway.Record

	// Relations maps a record field to the collection it points at, so
	// expand expressions like "cartID.productID" can be resolved.
	Relations map[string]string

	// Hooks. A non-nil error from a Before hook is returned to the caller
	// without touching the store.
	BeforeList   func(collection string) error
	BeforeGetOne func(collection, id string) error
	AfterGetOne  func(collection, id string)
	BeforeCreate func(collection string) error
	BeforeUpdate func(collection, id string) error
	BeforeDelete func(collection, id string) error

	clock int64
}

func New() *InMem {
	return &InMem{
		collections: make(map[string]map[string]gateway.Record),
		Relations: map[string]string{
			"userID":    gateway.CollectionUsers,
			"productID": gateway.CollectionProducts,
			"cartID":    gateway.CollectionCart,
			"receiptID": gateway.CollectionReceipt,
		},
	}
}

// Seed inserts a record as-is, assigning an id and timestamps when absent.
func (m *InMem) Seed(collection string, rec gateway.Record) gateway.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert(collection, rec)
}

// SeedUser inserts a users record with a password usable by
// AuthWithPassword.
func (m *InMem) SeedUser(email, password string, fields gateway.Record) gateway.Record {
	rec := gateway.Record{"email": email, "password": password}
	for k, v := range fields {
		rec[k] = v
	}
	return m.Seed(gateway.CollectionUsers, rec)
}

func (m *InMem) insert(collection string, rec gateway.Record) gateway.Record {
	col := m.collections[collection]
	if col == nil {
		col = make(map[string]gateway.Record)
		m.collections[collection] = col
	}
	cp := clone(rec)
	if cp.ID() == "" {
		cp["id"] = strings.ReplaceAll(uuid.NewString(), "-", "")[:15]
	}
	m.clock++
	stamp := time.Now().UTC().Add(time.Duration(m.clock) * time.Millisecond).Format(timeLayout)
	if cp.GetString("created") == "" {
		cp["created"] = stamp
	}
	cp["updated"] = stamp
	cp["collectionName"] = collection
	col[cp.ID()] = cp
	return clone(cp)
}

// Dump returns a copy of every record in a collection, for assertions.
func (m *InMem) Dump(collection string) []gateway.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []gateway.Record
	for _, rec := range m.collections[collection] {
		out = append(out, clone(rec))
	}
	return out
}

func (m *InMem) List(ctx context.Context, collection string, page, perPage int, opts gateway.ListOptions) (*gateway.ListResult, error) {
	if m.BeforeList != nil {
		if err := m.BeforeList(collection); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []gateway.Record
	for _, rec := range m.collections[collection] {
		ok, err := matchFilter(rec, opts.Filter)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, clone(rec))
		}
	}
	sortRecords(matched, opts.Sort)
	for _, rec := range matched {
		m.expand(rec, opts.Expand)
	}

	total := len(matched)
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 30
	}
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	totalPages := (total + perPage - 1) / perPage
	if totalPages == 0 {
		totalPages = 1
	}
	return &gateway.ListResult{
		Page:       page,
		PerPage:    perPage,
		TotalItems: total,
		TotalPages: totalPages,
		Items:      matched[start:end],
	}, nil
}

func (m *InMem) FullList(ctx context.Context, collection string, batch int, opts gateway.ListOptions) ([]gateway.Record, error) {
	if batch <= 0 {
		batch = 200
	}
	var all []gateway.Record
	for page := 1; ; page++ {
		res, err := m.List(ctx, collection, page, batch, opts)
		if err != nil {
			return nil, err
		}
		all = append(all, res.Items...)
		if page >= res.TotalPages || len(res.Items) == 0 {
			return all, nil
		}
	}
}

func (m *InMem) GetOne(ctx context.Context, collection, id string) (gateway.Record, error) {
	if m.BeforeGetOne != nil {
		if err := m.BeforeGetOne(collection, id); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	rec, ok := m.collections[collection][id]
	var cp gateway.Record
	if ok {
		cp = clone(rec)
	}
	m.mu.Unlock()

	if !ok {
		return nil, &gateway.Error{Status: 404, Message: "The requested resource wasn't found."}
	}
	if m.AfterGetOne != nil {
		m.AfterGetOne(collection, id)
	}
	return cp, nil
}

func (m *InMem) Create(ctx context.Context, collection string, data map[string]any) (gateway.Record, error) {
	if m.BeforeCreate != nil {
		if err := m.BeforeCreate(collection); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert(collection, gateway.Record(data)), nil
}

func (m *InMem) Update(ctx context.Context, collection, id string, data map[string]any) (gateway.Record, error) {
	if m.BeforeUpdate != nil {
		if err := m.BeforeUpdate(collection, id); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.collections[collection][id]
	if !ok {
		return nil, &gateway.Error{Status: 404, Message: "The requested resource wasn't found."}
	}
	for k, v := range data {
		rec[k] = v
	}
	m.clock++
	rec["updated"] = time.Now().UTC().Format(timeLayout)
	return clone(rec), nil
}

func (m *InMem) Delete(ctx context.Context, collection, id string) error {
	if m.BeforeDelete != nil {
		if err := m.BeforeDelete(collection, id); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.collections[collection][id]; !ok {
		return &gateway.Error{Status: 404, Message: "The requested resource wasn't found."}
	}
	delete(m.collections[collection], id)
	return nil
}

func (m *InMem) AuthWithPassword(ctx context.Context, identity, password string) (*gateway.Auth, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, rec := range m.collections[gateway.CollectionUsers] {
		if rec.GetString("email") != identity {
			continue
		}
		if rec.GetString("password") != password {
			return nil, &gateway.Error{Status: 400, Message: "Failed to authenticate."}
		}
		token, err := signToken(rec.ID())
		if err != nil {
			return nil, err
		}
		return &gateway.Auth{Token: token, Record: clone(rec)}, nil
	}
	return nil, &gateway.Error{Status: 400, Message: "Failed to authenticate."}
}

func signToken(userID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("gatewaytest"))
}

// ExpiredToken builds a token whose exp claim is in the past.
func ExpiredToken(userID string) string {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	tok, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("gatewaytest"))
	return tok
}

func (m *InMem) FileURL(rec gateway.Record, filename string, opts ...gateway.FileOption) string {
	if filename == "" {
		return ""
	}
	u := "http://files.invalid/" + rec.GetString("collectionName") + "/" + rec.ID() + "/" + filename
	q := url.Values{}
	for _, opt := range opts {
		opt(q)
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func (m *InMem) expand(rec gateway.Record, expr string) {
	if expr == "" {
		return
	}
	for _, path := range strings.Split(expr, ",") {
		m.expandPath(rec, strings.TrimSpace(path))
	}
}

func (m *InMem) expandPath(rec gateway.Record, path string) {
	if path == "" {
		return
	}
	field, rest, _ := strings.Cut(path, ".")
	target := m.Relations[field]
	if target == "" {
		return
	}
	relID := rec.GetString(field)
	related, ok := m.collections[target][relID]
	if !ok {
		return
	}
	cp := clone(related)
	m.expandPath(cp, rest)

	exp, ok := rec["expand"].(map[string]any)
	if !ok {
		exp = make(map[string]any)
		rec["expand"] = exp
	}
	exp[field] = map[string]any(cp)
}

func clone(rec gateway.Record) gateway.Record {
	cp := make(gateway.Record, len(rec))
	for k, v := range rec {
		cp[k] = v
	}
	return cp
}

func sortRecords(recs []gateway.Record, field string) {
	if field == "" {
		field = "created"
	}
	desc := strings.HasPrefix(field, "-")
	field = strings.TrimPrefix(field, "-")
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := fmt.Sprint(recs[i][field]), fmt.Sprint(recs[j][field])
		if desc {
			return a > b
		}
		return a < b
	})
}

// matchFilter evaluates the filter grammar used by the storefront:
// clauses `field op value` with op in {=, !=, ~}, joined by && and ||
// (|| binds loosest). An empty filter matches everything.
func matchFilter(rec gateway.Record, filter string) (bool, error) {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		return true, nil
	}
	for _, orTerm := range strings.Split(filter, "||") {
		all := true
		for _, clause := range strings.Split(orTerm, "&&") {
			ok, err := matchClause(rec, strings.TrimSpace(clause))
			if err != nil {
				return false, err
			}
			if !ok {
				all = false
				break
			}
		}
		if all {
			return true, nil
		}
	}
	return false, nil
}

func matchClause(rec gateway.Record, clause string) (bool, error) {
	for _, op := range []string{"!=", "~", "="} {
		idx := strings.Index(clause, op)
		if idx < 0 {
			continue
		}
		field := strings.TrimSpace(clause[:idx])
		raw := strings.TrimSpace(clause[idx+len(op):])
		want, err := parseValue(raw)
		if err != nil {
			return false, err
		}
		switch op {
		case "=":
			return valuesEqual(rec[field], want), nil
		case "!=":
			return !valuesEqual(rec[field], want), nil
		case "~":
			got := fmt.Sprint(rec[field])
			return strings.Contains(strings.ToLower(got), strings.ToLower(fmt.Sprint(want))), nil
		}
	}
	return false, fmt.Errorf("gatewaytest: cannot parse clause %q", clause)
}

func parseValue(raw string) (any, error) {
	switch {
	case strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) && len(raw) >= 2:
		s := raw[1 : len(raw)-1]
		s = strings.ReplaceAll(s, `\"`, `"`)
		s = strings.ReplaceAll(s, `\\`, `\`)
		return s, nil
	case raw == "true":
		return true, nil
	case raw == "false":
		return false, nil
	default:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("gatewaytest: cannot parse value %q", raw)
		}
		return f, nil
	}
}

func valuesEqual(got, want any) bool {
	if got == nil {
		// Missing boolean fields compare equal to false, matching how the
		// record store treats unset fields.
		if b, ok := want.(bool); ok {
			return !b
		}
		return false
	}
	if wf, ok := want.(float64); ok {
		if gf, ok := toFloat(got); ok {
			return gf == wf
		}
	}
	return fmt.Sprint(got) == fmt.Sprint(want)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}
