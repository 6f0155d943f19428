// Package commands contains the write-side operations of the chat context.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/harborchat/harbor/internal/chat/domain"
	"github.com/harborchat/harbor/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrSenderNotParticipant = errors.New("sender is not a participant of the conversation")
)

// SendMessageCommand posts a message into a conversation.
type SendMessageCommand struct {
	ConversationID uuid.UUID
	SenderID       uuid.UUID
	Text           string
}

// SendMessageHandler handles message posting.
type SendMessageHandler struct {
	conversations domain.ConversationRepository
	messages      domain.MessageRepository
	publisher     eventbus.Publisher
	logger        *slog.Logger
}

// NewSendMessageHandler creates a new handler.
func NewSendMessageHandler(
	conversations domain.ConversationRepository,
	messages domain.MessageRepository,
	publisher eventbus.Publisher,
	logger *slog.Logger,
) *SendMessageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SendMessageHandler{
		conversations: conversations,
		messages:      messages,
		publisher:     publisher,
		logger:        logger,
	}
}

// Handle persists the message, refreshes the conversation preview, and
// publishes chat.message.created. The publish is best-effort: the message is
// already written, and downstream consumers tolerate gaps.
func (h *SendMessageHandler) Handle(ctx context.Context, cmd SendMessageCommand) (*domain.Message, error) {
	conversation, err := h.conversations.FindByID(ctx, cmd.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	if conversation == nil {
		return nil, ErrConversationNotFound
	}
	if !conversation.HasParticipant(cmd.SenderID) {
		return nil, ErrSenderNotParticipant
	}

	senderName := conversation.ParticipantNames()[cmd.SenderID]
	message, err := domain.NewMessage(cmd.ConversationID, cmd.SenderID, senderName, cmd.Text)
	if err != nil {
		return nil, err
	}

	if err := h.messages.Save(ctx, message); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}

	conversation.RecordMessage(message.Text(), message.SentAt())
	if err := h.conversations.Save(ctx, conversation); err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}

	h.publishCreated(ctx, message)
	return message, nil
}

func (h *SendMessageHandler) publishCreated(ctx context.Context, message *domain.Message) {
	if h.publisher == nil {
		return
	}
	event := domain.NewMessageCreated(message)
	payload, err := eventbus.MarshalDomainEvent(event)
	if err != nil {
		h.logger.Error("failed to marshal message event", "message_id", message.ID(), "error", err)
		return
	}
	if err := h.publisher.Publish(ctx, event.RoutingKey(), payload); err != nil {
		h.logger.Warn("failed to publish message event",
			"message_id", message.ID(),
			"conversation_id", message.ConversationID(),
			"error", err,
		)
	}
}
