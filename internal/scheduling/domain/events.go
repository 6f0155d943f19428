package domain

import (
	"time"

	sharedDomain "github.com/harborchat/harbor/internal/shared/domain"
	"github.com/google/uuid"
)

const aggregateType = "Suggestion"

// SuggestionCreated is emitted when a pending suggestion is persisted.
type SuggestionCreated struct {
	sharedDomain.BaseEvent
	SuggestionID   uuid.UUID `json:"suggestion_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	Purpose        string    `json:"purpose"`
	Urgency        string    `json:"urgency"`
	Confidence     float64   `json:"confidence"`
}

// NewSuggestionCreated creates a SuggestionCreated event.
func NewSuggestionCreated(s *Suggestion) *SuggestionCreated {
	return &SuggestionCreated{
		BaseEvent:      sharedDomain.NewBaseEvent(s.ID(), aggregateType, "scheduling.suggestion.created"),
		SuggestionID:   s.ID(),
		ConversationID: s.ConversationID(),
		Purpose:        s.Purpose(),
		Urgency:        string(s.Urgency()),
		Confidence:     s.Confidence(),
	}
}

// SuggestionSlotsProposed is emitted when candidate slots are attached.
type SuggestionSlotsProposed struct {
	sharedDomain.BaseEvent
	SuggestionID   uuid.UUID `json:"suggestion_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SlotCount      int       `json:"slot_count"`
}

// NewSuggestionSlotsProposed creates a SuggestionSlotsProposed event.
func NewSuggestionSlotsProposed(s *Suggestion) *SuggestionSlotsProposed {
	return &SuggestionSlotsProposed{
		BaseEvent:      sharedDomain.NewBaseEvent(s.ID(), aggregateType, "scheduling.suggestion.slots_proposed"),
		SuggestionID:   s.ID(),
		ConversationID: s.ConversationID(),
		SlotCount:      len(s.SuggestedSlots()),
	}
}

// SuggestionAccepted is emitted when a participant confirms a slot.
type SuggestionAccepted struct {
	sharedDomain.BaseEvent
	SuggestionID   uuid.UUID `json:"suggestion_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SlotStart      time.Time `json:"slot_start"`
	DurationMins   int       `json:"duration_minutes"`
}

// NewSuggestionAccepted creates a SuggestionAccepted event.
func NewSuggestionAccepted(s *Suggestion) *SuggestionAccepted {
	event := &SuggestionAccepted{
		BaseEvent:      sharedDomain.NewBaseEvent(s.ID(), aggregateType, "scheduling.suggestion.accepted"),
		SuggestionID:   s.ID(),
		ConversationID: s.ConversationID(),
	}
	if slot := s.AcceptedSlot(); slot != nil {
		event.SlotStart = slot.Start
		event.DurationMins = int(slot.Duration.Minutes())
	}
	return event
}

// SuggestionDismissed is emitted when a suggestion is dismissed.
type SuggestionDismissed struct {
	sharedDomain.BaseEvent
	SuggestionID   uuid.UUID `json:"suggestion_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
}

// NewSuggestionDismissed creates a SuggestionDismissed event.
func NewSuggestionDismissed(s *Suggestion) *SuggestionDismissed {
	return &SuggestionDismissed{
		BaseEvent:      sharedDomain.NewBaseEvent(s.ID(), aggregateType, "scheduling.suggestion.dismissed"),
		SuggestionID:   s.ID(),
		ConversationID: s.ConversationID(),
	}
}
