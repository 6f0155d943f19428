// Package domain contains the meeting-suggestion model: the Suggestion
// aggregate with its one-way lifecycle, candidate time slots, and the
// domain events the rest of the system consumes.
package domain

import (
	"errors"
	"strings"
	"time"

	sharedDomain "github.com/harborchat/harbor/internal/shared/domain"
	"github.com/google/uuid"
)

var (
	ErrSuggestionNotFound  = errors.New("suggestion not found")
	ErrSuggestionFinalized = errors.New("suggestion already finalized")
	ErrNotParticipant      = errors.New("user is not a participant of the suggestion")
	ErrSlotNotOffered      = errors.New("time slot was not offered by the suggestion")
	ErrInvalidConfidence   = errors.New("confidence must be between 0 and 1")
	ErrInvalidUrgency      = errors.New("invalid urgency")
	ErrNoParticipants      = errors.New("suggestion needs at least one participant")
	ErrNoTriggeringMessage = errors.New("suggestion needs a triggering message")
)

// StaleAfter is the age past which consumers treat a suggestion as stale.
const StaleAfter = 48 * time.Hour

// Urgency classifies how soon the meeting should happen. It drives how far
// out the candidate search window starts.
type Urgency string

const (
	UrgencyUrgent   Urgency = "urgent"
	UrgencyThisWeek Urgency = "this-week"
	UrgencyFlexible Urgency = "flexible"
)

// IsValid checks if the urgency is supported.
func (u Urgency) IsValid() bool {
	switch u {
	case UrgencyUrgent, UrgencyThisWeek, UrgencyFlexible:
		return true
	default:
		return false
	}
}

// LeadDays returns how many days out the candidate search window begins.
func (u Urgency) LeadDays() int {
	if u == UrgencyUrgent {
		return 1
	}
	return 2
}

// Status is the lifecycle state of a suggestion. Transitions are one-way:
// pending moves to accepted or dismissed, both terminal.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusDismissed Status = "dismissed"
)

// Suggestion is a persisted scheduling recommendation produced when the
// detector classifies a conversation as needing a meeting.
type Suggestion struct {
	sharedDomain.BaseAggregateRoot
	conversationID       uuid.UUID
	conversationName     string
	participantIDs       []uuid.UUID
	participantNames     map[uuid.UUID]string
	purpose              string
	urgency              Urgency
	confidence           float64
	status               Status
	triggeredByMessageID uuid.UUID
	suggestedSlots       []TimeSlot
	acceptedSlot         *TimeSlot
	acceptedAt           *time.Time
	dismissedAt          *time.Time
}

// NewSuggestion creates a pending suggestion from a detection result and a
// conversation snapshot. Candidate slots are attached later, asynchronously.
func NewSuggestion(
	conversationID uuid.UUID,
	conversationName string,
	participantNames map[uuid.UUID]string,
	purpose string,
	urgency Urgency,
	confidence float64,
	triggeredByMessageID uuid.UUID,
) (*Suggestion, error) {
	if len(participantNames) == 0 {
		return nil, ErrNoParticipants
	}
	if !urgency.IsValid() {
		return nil, ErrInvalidUrgency
	}
	if confidence < 0 || confidence > 1 {
		return nil, ErrInvalidConfidence
	}
	if triggeredByMessageID == uuid.Nil {
		return nil, ErrNoTriggeringMessage
	}

	ids := make([]uuid.UUID, 0, len(participantNames))
	names := make(map[uuid.UUID]string, len(participantNames))
	for id, n := range participantNames {
		ids = append(ids, id)
		names[id] = n
	}

	s := &Suggestion{
		BaseAggregateRoot:    sharedDomain.NewBaseAggregateRoot(),
		conversationID:       conversationID,
		conversationName:     conversationName,
		participantIDs:       ids,
		participantNames:     names,
		purpose:              strings.TrimSpace(purpose),
		urgency:              urgency,
		confidence:           confidence,
		status:               StatusPending,
		triggeredByMessageID: triggeredByMessageID,
		suggestedSlots:       make([]TimeSlot, 0),
	}

	s.AddDomainEvent(NewSuggestionCreated(s))
	return s, nil
}

// RehydrateSuggestion recreates a suggestion from persisted state.
func RehydrateSuggestion(
	id uuid.UUID,
	conversationID uuid.UUID,
	conversationName string,
	participantNames map[uuid.UUID]string,
	purpose string,
	urgency Urgency,
	confidence float64,
	status Status,
	triggeredByMessageID uuid.UUID,
	suggestedSlots []TimeSlot,
	acceptedSlot *TimeSlot,
	acceptedAt, dismissedAt *time.Time,
	createdAt, updatedAt time.Time,
) *Suggestion {
	ids := make([]uuid.UUID, 0, len(participantNames))
	for pid := range participantNames {
		ids = append(ids, pid)
	}
	if suggestedSlots == nil {
		suggestedSlots = make([]TimeSlot, 0)
	}
	return &Suggestion{
		BaseAggregateRoot:    sharedDomain.RehydrateBaseAggregateRoot(sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)),
		conversationID:       conversationID,
		conversationName:     conversationName,
		participantIDs:       ids,
		participantNames:     participantNames,
		purpose:              purpose,
		urgency:              urgency,
		confidence:           confidence,
		status:               status,
		triggeredByMessageID: triggeredByMessageID,
		suggestedSlots:       suggestedSlots,
		acceptedSlot:         acceptedSlot,
		acceptedAt:           acceptedAt,
		dismissedAt:          dismissedAt,
	}
}

// Getters
func (s *Suggestion) ConversationID() uuid.UUID       { return s.conversationID }
func (s *Suggestion) ConversationName() string        { return s.conversationName }
func (s *Suggestion) Purpose() string                 { return s.purpose }
func (s *Suggestion) Urgency() Urgency                { return s.urgency }
func (s *Suggestion) Confidence() float64             { return s.confidence }
func (s *Suggestion) Status() Status                  { return s.status }
func (s *Suggestion) TriggeredByMessageID() uuid.UUID { return s.triggeredByMessageID }
func (s *Suggestion) AcceptedSlot() *TimeSlot         { return s.acceptedSlot }
func (s *Suggestion) AcceptedAt() *time.Time          { return s.acceptedAt }
func (s *Suggestion) DismissedAt() *time.Time         { return s.dismissedAt }

// ParticipantIDs returns the participant ids. The order is unspecified.
func (s *Suggestion) ParticipantIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(s.participantIDs))
	copy(ids, s.participantIDs)
	return ids
}

// ParticipantNames returns a copy of the id-to-name map.
func (s *Suggestion) ParticipantNames() map[uuid.UUID]string {
	names := make(map[uuid.UUID]string, len(s.participantNames))
	for id, n := range s.participantNames {
		names[id] = n
	}
	return names
}

// SuggestedSlots returns the candidate slots in chronological order.
func (s *Suggestion) SuggestedSlots() []TimeSlot {
	slots := make([]TimeSlot, len(s.suggestedSlots))
	copy(slots, s.suggestedSlots)
	return slots
}

// HasParticipant reports whether the user may act on this suggestion.
func (s *Suggestion) HasParticipant(userID uuid.UUID) bool {
	_, ok := s.participantNames[userID]
	return ok
}

// IsPending reports whether the suggestion is still open.
func (s *Suggestion) IsPending() bool {
	return s.status == StatusPending
}

// IsStale reports whether the suggestion is older than StaleAfter.
func (s *Suggestion) IsStale() bool {
	return time.Since(s.CreatedAt()) > StaleAfter
}

// offeredSlot returns the stored slot matching the given interval, so the
// accepted slot carries the generated display strings even when the caller
// supplied a bare interval.
func (s *Suggestion) offeredSlot(slot TimeSlot) (TimeSlot, bool) {
	for _, offered := range s.suggestedSlots {
		if offered.Matches(slot) {
			return offered, true
		}
	}
	return TimeSlot{}, false
}

// AttachSlots records the asynchronously generated candidate slots. It is a
// no-op on a terminal suggestion: slot generation racing a fast dismissal
// must not resurrect the record.
func (s *Suggestion) AttachSlots(slots []TimeSlot) error {
	if s.status != StatusPending {
		return ErrSuggestionFinalized
	}
	s.suggestedSlots = make([]TimeSlot, len(slots))
	copy(s.suggestedSlots, slots)
	s.Touch()
	s.AddDomainEvent(NewSuggestionSlotsProposed(s))
	return nil
}

// Accept finalizes the suggestion with the chosen slot. The slot must be one
// of the offered candidates. Accepting an already-accepted suggestion with a
// matching slot is idempotent; any transition away from the other terminal
// state fails.
func (s *Suggestion) Accept(slot TimeSlot, at time.Time) error {
	switch s.status {
	case StatusAccepted:
		if s.acceptedSlot != nil && s.acceptedSlot.Matches(slot) {
			return nil
		}
		return ErrSuggestionFinalized
	case StatusDismissed:
		return ErrSuggestionFinalized
	}

	offered, ok := s.offeredSlot(slot)
	if !ok {
		return ErrSlotNotOffered
	}

	at = at.UTC()
	s.status = StatusAccepted
	s.acceptedSlot = &offered
	s.acceptedAt = &at
	s.Touch()
	s.AddDomainEvent(NewSuggestionAccepted(s))
	return nil
}

// Dismiss finalizes the suggestion without a slot. Dismissing twice is
// idempotent; dismissing an accepted suggestion fails.
func (s *Suggestion) Dismiss(at time.Time) error {
	switch s.status {
	case StatusDismissed:
		return nil
	case StatusAccepted:
		return ErrSuggestionFinalized
	}

	at = at.UTC()
	s.status = StatusDismissed
	s.dismissedAt = &at
	s.Touch()
	s.AddDomainEvent(NewSuggestionDismissed(s))
	return nil
}
