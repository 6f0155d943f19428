package domain

import (
	"time"

	"github.com/google/uuid"
)

// DefaultSlotDuration is used when a detection does not imply a duration.
const DefaultSlotDuration = 60 * time.Minute

// TimeSlot is a concrete scheduling candidate: an absolute start instant,
// a duration, and a localized display string per participant.
type TimeSlot struct {
	Start    time.Time            `json:"start"`
	Duration time.Duration        `json:"duration"`
	Displays map[uuid.UUID]string `json:"displays,omitempty"`
}

// End returns the slot's end instant.
func (s TimeSlot) End() time.Time {
	return s.Start.Add(s.Duration)
}

// Matches reports whether two slots denote the same interval. Display
// strings are presentation only and do not participate in identity.
func (s TimeSlot) Matches(other TimeSlot) bool {
	return s.Start.Equal(other.Start) && s.Duration == other.Duration
}

// DisplayFor returns the localized display string for a participant, or ""
// when none was generated.
func (s TimeSlot) DisplayFor(participantID uuid.UUID) string {
	return s.Displays[participantID]
}
