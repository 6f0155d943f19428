// Package commands contains the write-side operations of the scheduling
// context: confirming and dismissing meeting suggestions.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	chatDomain "github.com/harborchat/harbor/internal/chat/domain"
	"github.com/harborchat/harbor/internal/scheduling/domain"
	sharedDomain "github.com/harborchat/harbor/internal/shared/domain"
	"github.com/harborchat/harbor/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
)

// ConfirmSuggestionCommand finalizes a suggestion with the chosen slot. The
// slot is re-validated against the stored candidates, never trusted from the
// caller.
type ConfirmSuggestionCommand struct {
	SuggestionID uuid.UUID
	UserID       uuid.UUID
	Slot         domain.TimeSlot
}

// ConfirmSuggestionHandler handles suggestion confirmation.
type ConfirmSuggestionHandler struct {
	suggestions   domain.SuggestionRepository
	conversations chatDomain.ConversationRepository
	messages      chatDomain.MessageRepository
	publisher     eventbus.Publisher
	logger        *slog.Logger
	now           func() time.Time
}

// NewConfirmSuggestionHandler creates a new handler.
func NewConfirmSuggestionHandler(
	suggestions domain.SuggestionRepository,
	conversations chatDomain.ConversationRepository,
	messages chatDomain.MessageRepository,
	publisher eventbus.Publisher,
	logger *slog.Logger,
) *ConfirmSuggestionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfirmSuggestionHandler{
		suggestions:   suggestions,
		conversations: conversations,
		messages:      messages,
		publisher:     publisher,
		logger:        logger,
		now:           time.Now,
	}
}

// Handle confirms the suggestion: it validates the caller and the slot,
// posts the announcement into the conversation, updates the conversation
// preview, and persists the accepted state. A record loaded already accepted
// with the same slot returns success without repeating any side effect. The
// transition runs first and is idempotent, so a retry after a partial
// failure (record still pending in storage) completes the remaining side
// effects without double-accepting.
func (h *ConfirmSuggestionHandler) Handle(ctx context.Context, cmd ConfirmSuggestionCommand) error {
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

	alreadyAccepted := suggestion.Status() == domain.StatusAccepted

	if err := suggestion.Accept(cmd.Slot, h.now()); err != nil {
		return err
	}

	// The stored record was already accepted with this slot; the
	// announcement and the write happened on the first confirmation.
	if alreadyAccepted {
		h.logger.Debug("suggestion already confirmed, skipping side effects",
			"suggestion_id", suggestion.ID(),
			"user_id", cmd.UserID,
		)
		return nil
	}

	announcement, err := h.postAnnouncement(ctx, suggestion)
	if err != nil {
		return err
	}

	if err := h.suggestions.Save(ctx, suggestion); err != nil {
		return fmt.Errorf("save suggestion: %w", err)
	}

	publishDomainEvents(ctx, h.publisher, h.logger, suggestion)

	h.logger.Info("suggestion confirmed",
		"suggestion_id", suggestion.ID(),
		"conversation_id", suggestion.ConversationID(),
		"user_id", cmd.UserID,
		"announcement_id", announcement.ID(),
	)
	return nil
}

// postAnnouncement writes the system message into the conversation and
// refreshes the conversation's last-message preview.
func (h *ConfirmSuggestionHandler) postAnnouncement(ctx context.Context, suggestion *domain.Suggestion) (*chatDomain.Message, error) {
	text := announcementText(suggestion)

	announcement, err := chatDomain.NewSystemMessage(suggestion.ConversationID(), text)
	if err != nil {
		return nil, fmt.Errorf("build announcement: %w", err)
	}
	if err := h.messages.Save(ctx, announcement); err != nil {
		return nil, fmt.Errorf("save announcement: %w", err)
	}

	conversation, err := h.conversations.FindByID(ctx, suggestion.ConversationID())
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	if conversation != nil {
		conversation.RecordMessage(announcement.Text(), announcement.SentAt())
		if err := h.conversations.Save(ctx, conversation); err != nil {
			return nil, fmt.Errorf("save conversation: %w", err)
		}
	}

	return announcement, nil
}

// announcementText renders the confirmation message: purpose, the chosen
// time in every participant's zone (deduplicated), duration, and who is
// attending.
func announcementText(suggestion *domain.Suggestion) string {
	var b strings.Builder

	b.WriteString("Meeting scheduled")
	if purpose := suggestion.Purpose(); purpose != "" {
		b.WriteString(": ")
		b.WriteString(purpose)
	}
	b.WriteString("\n")

	slot := suggestion.AcceptedSlot()
	if slot != nil {
		b.WriteString("When: ")
		b.WriteString(strings.Join(uniqueDisplays(slot), " / "))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("Duration: %d minutes\n", int(slot.Duration.Minutes())))
	}

	names := make([]string, 0, len(suggestion.ParticipantNames()))
	for _, n := range suggestion.ParticipantNames() {
		names = append(names, n)
	}
	sort.Strings(names)
	b.WriteString("Participants: ")
	b.WriteString(strings.Join(names, ", "))

	return b.String()
}

// uniqueDisplays collapses per-participant display strings so participants
// sharing a zone appear once. Falls back to UTC when the slot carries no
// displays.
func uniqueDisplays(slot *domain.TimeSlot) []string {
	seen := make(map[string]struct{}, len(slot.Displays))
	displays := make([]string, 0, len(slot.Displays))
	for _, d := range slot.Displays {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		displays = append(displays, d)
	}
	if len(displays) == 0 {
		return []string{slot.Start.UTC().Format("Monday, Jan 2 at 3:04 PM MST")}
	}
	sort.Strings(displays)
	return displays
}

// publishDomainEvents publishes the aggregate's uncommitted events
// best-effort. The state change is already persisted; a broker outage must
// not fail the command.
func publishDomainEvents(ctx context.Context, publisher eventbus.Publisher, logger *slog.Logger, aggregate sharedDomain.AggregateRoot) {
	if publisher == nil {
		return
	}
	for _, event := range aggregate.DomainEvents() {
		payload, err := eventbus.MarshalDomainEvent(event)
		if err != nil {
			logger.Error("failed to marshal domain event",
				"routing_key", event.RoutingKey(),
				"error", err,
			)
			continue
		}
		if err := publisher.Publish(ctx, event.RoutingKey(), payload); err != nil {
			logger.Warn("failed to publish domain event",
				"routing_key", event.RoutingKey(),
				"event_id", event.EventID(),
				"error", err,
			)
		}
	}
	aggregate.ClearDomainEvents()
}
