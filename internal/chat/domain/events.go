package domain

import (
	"time"

	sharedDomain "github.com/harborchat/harbor/internal/shared/domain"
	"github.com/google/uuid"
)

// MessageCreated is emitted when a message is persisted in a conversation.
// The scheduling context consumes it to drive detection.
type MessageCreated struct {
	sharedDomain.BaseEvent
	MessageID      uuid.UUID `json:"message_id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	SenderName     string    `json:"sender_name"`
	Text           string    `json:"text"`
	System         bool      `json:"system"`
	SentAt         time.Time `json:"sent_at"`
}

// NewMessageCreated creates a MessageCreated event.
func NewMessageCreated(m *Message) *MessageCreated {
	return &MessageCreated{
		BaseEvent:      sharedDomain.NewBaseEvent(m.ID(), "Message", "chat.message.created"),
		MessageID:      m.ID(),
		ConversationID: m.ConversationID(),
		SenderID:       m.SenderID(),
		SenderName:     m.SenderName(),
		Text:           m.Text(),
		System:         m.IsSystem(),
		SentAt:         m.SentAt(),
	}
}
