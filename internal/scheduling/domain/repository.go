package domain

import (
	"context"

	"github.com/google/uuid"
)

// SuggestionRepository persists suggestions. Records are append-only: save
// upserts, nothing deletes.
type SuggestionRepository interface {
	// Save persists a suggestion (insert or update by id).
	Save(ctx context.Context, suggestion *Suggestion) error

	// FindByID retrieves a suggestion, or nil when not found.
	FindByID(ctx context.Context, id uuid.UUID) (*Suggestion, error)

	// FindByTriggerMessage retrieves the suggestion created for a triggering
	// message, or nil when none exists. Used to deduplicate under
	// at-least-once event delivery.
	FindByTriggerMessage(ctx context.Context, messageID uuid.UUID) (*Suggestion, error)

	// ListByConversation returns suggestions of a conversation, newest
	// first. Stale suggestions are excluded unless includeStale is set.
	ListByConversation(ctx context.Context, conversationID uuid.UUID, includeStale bool) ([]*Suggestion, error)
}
