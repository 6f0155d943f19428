package queries

import (
	"context"
	"fmt"

	"github.com/harborchat/harbor/internal/scheduling/domain"
	"github.com/google/uuid"
)

// ListSuggestionsQuery lists the suggestions of a conversation, newest
// first. Suggestions older than the staleness window are hidden unless
// IncludeStale is set.
type ListSuggestionsQuery struct {
	ConversationID uuid.UUID
	IncludeStale   bool
}

// ListSuggestionsHandler handles suggestion listing.
type ListSuggestionsHandler struct {
	suggestions domain.SuggestionRepository
}

// NewListSuggestionsHandler creates a new handler.
func NewListSuggestionsHandler(suggestions domain.SuggestionRepository) *ListSuggestionsHandler {
	return &ListSuggestionsHandler{suggestions: suggestions}
}

// Handle returns the conversation's suggestions. An empty slice is a valid
// result.
func (h *ListSuggestionsHandler) Handle(ctx context.Context, query ListSuggestionsQuery) ([]*domain.Suggestion, error) {
	suggestions, err := h.suggestions.ListByConversation(ctx, query.ConversationID, query.IncludeStale)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	return suggestions, nil
}
