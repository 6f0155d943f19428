package domain

import (
	"context"

	"github.com/google/uuid"
)

// MessageRepository persists chat messages.
type MessageRepository interface {
	// Save persists a message.
	Save(ctx context.Context, message *Message) error

	// ListRecent returns up to limit messages of a conversation in
	// chronological order (oldest first).
	ListRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]*Message, error)
}

// ConversationRepository persists conversations.
type ConversationRepository interface {
	// Save persists a conversation.
	Save(ctx context.Context, conversation *Conversation) error

	// FindByID retrieves a conversation, or nil when not found.
	FindByID(ctx context.Context, id uuid.UUID) (*Conversation, error)
}

// ProfileRepository reads user profiles.
type ProfileRepository interface {
	// Save persists a profile.
	Save(ctx context.Context, profile *UserProfile) error

	// FindByID retrieves a profile, or nil when not found.
	FindByID(ctx context.Context, userID uuid.UUID) (*UserProfile, error)
}
