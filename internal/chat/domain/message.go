// Package domain contains the chat collaborator model: conversations,
// messages, and user profiles. The scheduling context reads conversations
// and messages, and posts announcement messages back.
package domain

import (
	"errors"
	"strings"
	"time"

	sharedDomain "github.com/harborchat/harbor/internal/shared/domain"
	"github.com/google/uuid"
)

var (
	ErrMessageEmptyText      = errors.New("message text cannot be empty")
	ErrMessageNoConversation = errors.New("message must belong to a conversation")
)

// AssistantSenderID is the synthetic sender used for messages posted by the
// scheduling assistant rather than a human participant.
var AssistantSenderID = uuid.MustParse("00000000-0000-0000-0000-0000a551574e")

// AssistantSenderName is the display name of the synthetic sender.
const AssistantSenderName = "Harbor Assistant"

// Message represents a single chat message within a conversation.
type Message struct {
	sharedDomain.BaseEntity
	conversationID uuid.UUID
	senderID       uuid.UUID
	senderName     string
	text           string
	sentAt         time.Time
	system         bool
}

// NewMessage creates a message from a human sender.
func NewMessage(conversationID, senderID uuid.UUID, senderName, text string) (*Message, error) {
	return newMessage(conversationID, senderID, senderName, text, false)
}

// NewSystemMessage creates a message from the assistant identity. System
// messages are excluded from scheduling detection so the assistant never
// reacts to its own announcements.
func NewSystemMessage(conversationID uuid.UUID, text string) (*Message, error) {
	return newMessage(conversationID, AssistantSenderID, AssistantSenderName, text, true)
}

func newMessage(conversationID, senderID uuid.UUID, senderName, text string, system bool) (*Message, error) {
	if conversationID == uuid.Nil {
		return nil, ErrMessageNoConversation
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrMessageEmptyText
	}

	return &Message{
		BaseEntity:     sharedDomain.NewBaseEntity(),
		conversationID: conversationID,
		senderID:       senderID,
		senderName:     senderName,
		text:           text,
		sentAt:         time.Now().UTC(),
		system:         system,
	}, nil
}

// RehydrateMessage recreates a message from persisted state.
func RehydrateMessage(
	id, conversationID, senderID uuid.UUID,
	senderName, text string,
	sentAt time.Time,
	system bool,
	createdAt, updatedAt time.Time,
) *Message {
	return &Message{
		BaseEntity:     sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt),
		conversationID: conversationID,
		senderID:       senderID,
		senderName:     senderName,
		text:           text,
		sentAt:         sentAt,
		system:         system,
	}
}

func (m *Message) ConversationID() uuid.UUID { return m.conversationID }
func (m *Message) SenderID() uuid.UUID       { return m.senderID }
func (m *Message) SenderName() string        { return m.senderName }
func (m *Message) Text() string              { return m.text }
func (m *Message) SentAt() time.Time         { return m.sentAt }
func (m *Message) IsSystem() bool            { return m.system }
