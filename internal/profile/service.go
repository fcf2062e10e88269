// Package profile reads and updates the user's own record, including the
// shipping details checkout depends on.
package profile

import (
	"context"

	"github.com/glowmart-app/storefront/internal/gateway"
	"github.com/glowmart-app/storefront/internal/models"
	"github.com/glowmart-app/storefront/internal/session"
)

type Service struct {
	GW       gateway.Gateway
	Sessions *session.Manager
}

// Fetch returns the full profile, with the avatar resolved to a
// 150x150 thumbnail URL.
func (s *Service) Fetch(ctx context.Context) (*models.User, error) {
	current, err := s.Sessions.Require()
	if err != nil {
		return nil, err
	}

	rec, err := s.GW.GetOne(ctx, gateway.CollectionUsers, current.ID)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		ID:         rec.ID(),
		Name:       rec.GetString("name"),
		Email:      rec.GetString("email"),
		PhoneNo:    rec.GetString("phoneNo"),
		Address:    rec.GetString("address"),
		FirstLogin: rec.GetBool("isFirstLogin"),
	}
	if avatar := rec.GetString("avatar"); avatar != "" {
		user.AvatarURL = s.GW.FileURL(rec, avatar, gateway.WithThumb("150x150"))
	}
	return user, nil
}

// Update writes name, phone and address through the session manager so
// the persisted session copy stays current.
func (s *Service) Update(ctx context.Context, name, phoneNo, address string) (*models.User, error) {
	return s.Sessions.UpdateUser(ctx, map[string]any{
		"name":    name,
		"phoneNo": phoneNo,
		"address": address,
	})
}
