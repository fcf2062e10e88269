// Package session owns the single authenticated identity of the client.
// The session is persisted in the local snapshot store so it survives
// restarts, and interested components subscribe to auth changes through
// the manager instead of a shared global list.
package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/glowmart-app/storefront/internal/gateway"
	"github.com/glowmart-app/storefront/internal/models"
	"github.com/glowmart-app/storefront/internal/storage"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrValidation       = errors.New("validation")
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const snapshotKey = "session"

type persisted struct {
	Token  string         `json:"token"`
	Record gateway.Record `json:"record"`
}

type Manager struct {
	gw    gateway.Gateway
	store *storage.Store

	mu        sync.Mutex
	token     string
	record    gateway.Record
	listeners map[int]func(*models.User)
	nextSub   int
}

func NewManager(gw gateway.Gateway, store *storage.Store) (*Manager, error) {
	m := &Manager{
		gw:        gw,
		store:     store,
		listeners: make(map[int]func(*models.User)),
	}
	var p persisted
	ok, err := store.GetJSON(snapshotKey, &p)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if ok {
		m.token = p.Token
		m.record = p.Record
	}
	return m, nil
}

// Token implements gateway.TokenSource. An expired token reads as empty so
// requests fall back to anonymous instead of failing with a stale header.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !tokenValid(m.token) {
		return ""
	}
	return m.token
}

// Current returns the authenticated user, or nil when there is no valid
// session.
func (m *Manager) Current() *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.record == nil || !tokenValid(m.token) {
		return nil
	}
	return userFromRecord(m.record)
}

// Require is Current for callers that need a session.
func (m *Manager) Require() (*models.User, error) {
	if u := m.Current(); u != nil {
		return u, nil
	}
	return nil, ErrNotAuthenticated
}

// Subscribe registers fn to be called on every auth change (login, logout,
// profile update). The returned func removes the subscription.
func (m *Manager) Subscribe(fn func(*models.User)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.listeners[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *Manager) notify(u *models.User) {
	m.mu.Lock()
	fns := make([]func(*models.User), 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(u)
	}
}

func (m *Manager) Login(ctx context.Context, email, password string) (*models.User, error) {
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password required", ErrValidation)
	}
	if !emailRe.MatchString(email) {
		return nil, fmt.Errorf("%w: invalid email address", ErrValidation)
	}

	auth, err := m.gw.AuthWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.token = auth.Token
	m.record = auth.Record
	m.mu.Unlock()

	if err := m.store.PutJSON(snapshotKey, persisted{Token: auth.Token, Record: auth.Record}); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	user := userFromRecord(auth.Record)
	m.notify(user)
	return user, nil
}

// Signup creates the account. The record store requires a confirmation
// field mirroring the password. The caller still has to log in afterwards.
func (m *Manager) Signup(ctx context.Context, email, password, name string) (*models.User, error) {
	if email == "" || password == "" || name == "" {
		return nil, fmt.Errorf("%w: email, password and name required", ErrValidation)
	}
	if !emailRe.MatchString(email) {
		return nil, fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	rec, err := m.gw.Create(ctx, gateway.CollectionUsers, map[string]any{
		"email":           email,
		"password":        password,
		"passwordConfirm": password,
		"name":            name,
		"emailVisibility": true,
		"isFirstLogin":    true,
	})
	if err != nil {
		return nil, err
	}
	return userFromRecord(rec), nil
}

func (m *Manager) Logout() error {
	m.mu.Lock()
	m.token = ""
	m.record = nil
	m.mu.Unlock()

	if err := m.store.Delete(snapshotKey); err != nil {
		return fmt.Errorf("drop session: %w", err)
	}
	m.notify(nil)
	return nil
}

// UpdateUser writes data to the user record and keeps the stored session
// copy in sync.
func (m *Manager) UpdateUser(ctx context.Context, data map[string]any) (*models.User, error) {
	user, err := m.Require()
	if err != nil {
		return nil, err
	}

	rec, err := m.gw.Update(ctx, gateway.CollectionUsers, user.ID, data)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	token := m.token
	m.record = rec
	m.mu.Unlock()

	if err := m.store.PutJSON(snapshotKey, persisted{Token: token, Record: rec}); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	updated := userFromRecord(rec)
	m.notify(updated)
	return updated, nil
}

// tokenValid checks the token's exp claim. The client has no server key,
// so the signature is not verified here; the record store rejects forged
// tokens on its side.
func tokenValid(token string) bool {
	if token == "" {
		return false
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.After(time.Now())
}

func userFromRecord(rec gateway.Record) *models.User {
	return &models.User{
		ID:         rec.ID(),
		Name:       rec.GetString("name"),
		Email:      rec.GetString("email"),
		PhoneNo:    rec.GetString("phoneNo"),
		Address:    rec.GetString("address"),
		FirstLogin: rec.GetBool("isFirstLogin"),
	}
}
