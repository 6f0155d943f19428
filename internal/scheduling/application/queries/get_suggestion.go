// Package queries contains the read-side operations of the scheduling
// context.
package queries

import (
	"context"
	"fmt"

	"github.com/harborchat/harbor/internal/scheduling/domain"
	"github.com/google/uuid"
)

// GetSuggestionQuery retrieves a single suggestion by id.
type GetSuggestionQuery struct {
	SuggestionID uuid.UUID
}

// GetSuggestionHandler handles suggestion lookups.
type GetSuggestionHandler struct {
	suggestions domain.SuggestionRepository
}

// NewGetSuggestionHandler creates a new handler.
func NewGetSuggestionHandler(suggestions domain.SuggestionRepository) *GetSuggestionHandler {
	return &GetSuggestionHandler{suggestions: suggestions}
}

// Handle returns the suggestion or ErrSuggestionNotFound.
func (h *GetSuggestionHandler) Handle(ctx context.Context, query GetSuggestionQuery) (*domain.Suggestion, error) {
	suggestion, err := h.suggestions.FindByID(ctx, query.SuggestionID)
	if err != nil {
		return nil, fmt.Errorf("find suggestion: %w", err)
	}
	if suggestion == nil {
		return nil, domain.ErrSuggestionNotFound
	}
	return suggestion, nil
}
