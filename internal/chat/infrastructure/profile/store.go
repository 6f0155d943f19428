// Package profile exposes user timezone lookups to the scheduling context,
// with an optional Redis cache in front of the profile repository.
package profile

import (
	"context"
	"fmt"

	"github.com/harborchat/harbor/internal/chat/domain"
	"github.com/google/uuid"
)

// Store resolves user timezones from the profile repository.
type Store struct {
	profiles domain.ProfileRepository
}

// NewStore creates a store.
func NewStore(profiles domain.ProfileRepository) *Store {
	return &Store{profiles: profiles}
}

// Timezone returns the user's IANA zone identifier, or "" when the user has
// no profile or never set a zone.
func (s *Store) Timezone(ctx context.Context, userID uuid.UUID) (string, error) {
	p, err := s.profiles.FindByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("find profile: %w", err)
	}
	if p == nil {
		return "", nil
	}
	return p.Timezone(), nil
}
