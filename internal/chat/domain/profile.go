package domain

import (
	"strings"
	"time"

	sharedDomain "github.com/harborchat/harbor/internal/shared/domain"
	"github.com/google/uuid"
)

// UserProfile holds per-user settings relevant to scheduling. The timezone
// is an IANA identifier and may be empty when the user never set one.
type UserProfile struct {
	sharedDomain.BaseEntity
	displayName string
	timezone    string
}

// NewUserProfile creates a profile for a user.
func NewUserProfile(userID uuid.UUID, displayName, timezone string) *UserProfile {
	return &UserProfile{
		BaseEntity:  sharedDomain.NewBaseEntityWithID(userID),
		displayName: strings.TrimSpace(displayName),
		timezone:    strings.TrimSpace(timezone),
	}
}

// RehydrateUserProfile recreates a profile from persisted state.
func RehydrateUserProfile(userID uuid.UUID, displayName, timezone string, createdAt, updatedAt time.Time) *UserProfile {
	return &UserProfile{
		BaseEntity:  sharedDomain.RehydrateBaseEntity(userID, createdAt, updatedAt),
		displayName: displayName,
		timezone:    timezone,
	}
}

func (p *UserProfile) DisplayName() string { return p.displayName }

// Timezone returns the stored IANA zone identifier, or "" when unset.
func (p *UserProfile) Timezone() string { return p.timezone }

// SetTimezone updates the stored zone identifier.
func (p *UserProfile) SetTimezone(tz string) {
	p.timezone = strings.TrimSpace(tz)
	p.Touch()
}
