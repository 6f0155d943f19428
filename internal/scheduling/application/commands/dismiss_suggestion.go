package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/harborchat/harbor/internal/scheduling/domain"
	"github.com/harborchat/harbor/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
)

// DismissSuggestionCommand closes a suggestion without scheduling anything.
type DismissSuggestionCommand struct {
	SuggestionID uuid.UUID
	UserID       uuid.UUID
}

// DismissSuggestionHandler handles suggestion dismissal.
type DismissSuggestionHandler struct {
	suggestions domain.SuggestionRepository
	publisher   eventbus.Publisher
	logger      *slog.Logger
	now         func() time.Time
}

// NewDismissSuggestionHandler creates a new handler.
func NewDismissSuggestionHandler(
	suggestions domain.SuggestionRepository,
	publisher eventbus.Publisher,
	logger *slog.Logger,
) *DismissSuggestionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DismissSuggestionHandler{
		suggestions: suggestions,
		publisher:   publisher,
		logger:      logger,
		now:         time.Now,
	}
}

// Handle dismisses the suggestion. Dismissing twice succeeds without a
// second write; dismissing an accepted suggestion fails.
func (h *DismissSuggestionHandler) Handle(ctx context.Context, cmd DismissSuggestionCommand) error {
	suggestion, err := h.suggestions.FindByID(ctx, cmd.SuggestionID)
	if err != nil {
		return fmt.Errorf("find suggestion: %w", err)
	}
	if suggestion == nil {
		return domain.ErrSuggestionNotFound
	}
	if !suggestion.HasParticipant(cmd.UserID) {
		return domain.ErrNotParticipant
	}

	alreadyDismissed := suggestion.Status() == domain.StatusDismissed
	if err := suggestion.Dismiss(h.now()); err != nil {
		return err
	}
	if alreadyDismissed {
		return nil
	}

	if err := h.suggestions.Save(ctx, suggestion); err != nil {
		return fmt.Errorf("save suggestion: %w", err)
	}

	publishDomainEvents(ctx, h.publisher, h.logger, suggestion)

	h.logger.Info("suggestion dismissed",
		"suggestion_id", suggestion.ID(),
		"conversation_id", suggestion.ConversationID(),
		"user_id", cmd.UserID,
	)
	return nil
}
