package domain

import (
	"errors"
	"strings"
	"time"

	sharedDomain "github.com/harborchat/harbor/internal/shared/domain"
	"github.com/google/uuid"
)

var (
	ErrConversationEmptyName      = errors.New("conversation name cannot be empty")
	ErrConversationNoParticipants = errors.New("conversation needs at least one participant")
)

// Conversation represents a chat conversation and its membership snapshot.
type Conversation struct {
	sharedDomain.BaseAggregateRoot
	name               string
	participantIDs     []uuid.UUID
	participantNames   map[uuid.UUID]string
	lastMessagePreview string
	lastMessageAt      *time.Time
}

// NewConversation creates a conversation with the given participants.
func NewConversation(name string, participantNames map[uuid.UUID]string) (*Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrConversationEmptyName
	}
	if len(participantNames) == 0 {
		return nil, ErrConversationNoParticipants
	}

	ids := make([]uuid.UUID, 0, len(participantNames))
	names := make(map[uuid.UUID]string, len(participantNames))
	for id, n := range participantNames {
		ids = append(ids, id)
		names[id] = n
	}

	return &Conversation{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		name:              name,
		participantIDs:    ids,
		participantNames:  names,
	}, nil
}

// RehydrateConversation recreates a conversation from persisted state.
func RehydrateConversation(
	id uuid.UUID,
	name string,
	participantNames map[uuid.UUID]string,
	lastMessagePreview string,
	lastMessageAt *time.Time,
	createdAt, updatedAt time.Time,
) *Conversation {
	ids := make([]uuid.UUID, 0, len(participantNames))
	for pid := range participantNames {
		ids = append(ids, pid)
	}
	return &Conversation{
		BaseAggregateRoot:  sharedDomain.RehydrateBaseAggregateRoot(sharedDomain.RehydrateBaseEntity(id, createdAt, updatedAt)),
		name:               name,
		participantIDs:     ids,
		participantNames:   participantNames,
		lastMessagePreview: lastMessagePreview,
		lastMessageAt:      lastMessageAt,
	}
}

func (c *Conversation) Name() string                 { return c.name }
func (c *Conversation) LastMessagePreview() string   { return c.lastMessagePreview }
func (c *Conversation) LastMessageAt() *time.Time    { return c.lastMessageAt }

// ParticipantIDs returns the participant ids. The order is unspecified.
func (c *Conversation) ParticipantIDs() []uuid.UUID {
	ids := make([]uuid.UUID, len(c.participantIDs))
	copy(ids, c.participantIDs)
	return ids
}

// ParticipantNames returns a copy of the id-to-name map.
func (c *Conversation) ParticipantNames() map[uuid.UUID]string {
	names := make(map[uuid.UUID]string, len(c.participantNames))
	for id, n := range c.participantNames {
		names[id] = n
	}
	return names
}

// HasParticipant reports whether the user is a member of the conversation.
func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	_, ok := c.participantNames[userID]
	return ok
}

// RecordMessage updates the conversation's last-message preview metadata.
func (c *Conversation) RecordMessage(preview string, at time.Time) {
	const maxPreview = 120
	if len(preview) > maxPreview {
		preview = preview[:maxPreview]
	}
	c.lastMessagePreview = preview
	c.lastMessageAt = &at
	c.Touch()
}
