// Package subscribers wires the scheduling context to the event bus. The
// message subscriber is the entry point of the proactive pipeline: it
// watches new chat messages and turns scheduling intent into suggestions.
package subscribers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	chatDomain "github.com/harborchat/harbor/internal/chat/domain"
	"github.com/harborchat/harbor/internal/scheduling/application/services"
	"github.com/harborchat/harbor/internal/scheduling/domain"
	"github.com/harborchat/harbor/internal/shared/infrastructure/eventbus"
	"github.com/google/uuid"
)

// Detector classifies a message for scheduling intent.
type Detector interface {
	Classify(ctx context.Context, message *chatDomain.Message, history []*chatDomain.Message) (*services.Detection, error)
}

// SlotGenerator computes candidate meeting slots.
type SlotGenerator interface {
	Generate(ctx context.Context, participantIDs []uuid.UUID, duration time.Duration, urgency domain.Urgency) ([]domain.TimeSlot, error)
}

// MessageSubscriberConfig tunes the pipeline.
type MessageSubscriberConfig struct {
	// ConfidenceThreshold gates suggestion creation. Detections below it
	// are discarded.
	ConfidenceThreshold float64

	// ContextMessages is how much recent history accompanies the
	// classification.
	ContextMessages int

	// SlotDuration is the meeting length proposed for generated slots.
	SlotDuration time.Duration
}

// DefaultMessageSubscriberConfig returns sensible defaults.
func DefaultMessageSubscriberConfig() MessageSubscriberConfig {
	return MessageSubscriberConfig{
		ConfidenceThreshold: 0.7,
		ContextMessages:     10,
		SlotDuration:        domain.DefaultSlotDuration,
	}
}

// MessageSubscriber consumes chat.message.created events and runs the
// detection pipeline. The pipeline is strictly best-effort: every failure is
// logged and swallowed, because a scheduling hiccup must never disturb
// message delivery or poison the queue.
type MessageSubscriber struct {
	suggestions   domain.SuggestionRepository
	conversations chatDomain.ConversationRepository
	messages      chatDomain.MessageRepository
	detector      Detector
	generator     SlotGenerator
	publisher     eventbus.Publisher
	config        MessageSubscriberConfig
	logger        *slog.Logger
}

// NewMessageSubscriber creates a subscriber.
func NewMessageSubscriber(
	suggestions domain.SuggestionRepository,
	conversations chatDomain.ConversationRepository,
	messages chatDomain.MessageRepository,
	detector Detector,
	generator SlotGenerator,
	publisher eventbus.Publisher,
	config MessageSubscriberConfig,
	logger *slog.Logger,
) *MessageSubscriber {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultMessageSubscriberConfig()
	if config.ConfidenceThreshold <= 0 || config.ConfidenceThreshold > 1 {
		config.ConfidenceThreshold = defaults.ConfidenceThreshold
	}
	if config.ContextMessages <= 0 {
		config.ContextMessages = defaults.ContextMessages
	}
	if config.SlotDuration <= 0 {
		config.SlotDuration = defaults.SlotDuration
	}
	return &MessageSubscriber{
		suggestions:   suggestions,
		conversations: conversations,
		messages:      messages,
		detector:      detector,
		generator:     generator,
		publisher:     publisher,
		config:        config,
		logger:        logger,
	}
}

// EventTypes returns the routing keys this subscriber handles.
func (s *MessageSubscriber) EventTypes() []string {
	return []string{"chat.message.created"}
}

// Handle runs the pipeline for one message event. It always returns nil:
// under at-least-once delivery a redelivered event is deduplicated by the
// triggering message id, and a failed detection is simply a missed
// suggestion.
func (s *MessageSubscriber) Handle(ctx context.Context, event *eventbus.ConsumedEvent) error {
	var payload chatDomain.MessageCreated
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		s.logger.Error("malformed message event payload",
			"event_id", event.EventID,
			"error", err,
		)
		return nil
	}

	// Assistant announcements never trigger detection
	if payload.System || payload.SenderID == chatDomain.AssistantSenderID {
		return nil
	}
	if payload.Text == "" || payload.MessageID == uuid.Nil {
		return nil
	}

	if err := s.process(ctx, &payload); err != nil {
		s.logger.Warn("scheduling pipeline failed",
			"message_id", payload.MessageID,
			"conversation_id", payload.ConversationID,
			"error", err,
		)
	}
	return nil
}

func (s *MessageSubscriber) process(ctx context.Context, payload *chatDomain.MessageCreated) error {
	// Dedupe before spending a model call: redelivery is routine
	existing, err := s.suggestions.FindByTriggerMessage(ctx, payload.MessageID)
	if err != nil {
		return err
	}
	if existing != nil {
		s.logger.Debug("suggestion already exists for message",
			"message_id", payload.MessageID,
			"suggestion_id", existing.ID(),
		)
		return nil
	}

	conversation, err := s.conversations.FindByID(ctx, payload.ConversationID)
	if err != nil {
		return err
	}
	if conversation == nil {
		s.logger.Debug("conversation gone, skipping detection", "conversation_id", payload.ConversationID)
		return nil
	}

	history, err := s.messages.ListRecent(ctx, payload.ConversationID, s.config.ContextMessages)
	if err != nil {
		// Detection still works on the lone message
		s.logger.Warn("history lookup failed, classifying without context",
			"conversation_id", payload.ConversationID,
			"error", err,
		)
		history = nil
	}

	message := chatDomain.RehydrateMessage(
		payload.MessageID,
		payload.ConversationID,
		payload.SenderID,
		payload.SenderName,
		payload.Text,
		payload.SentAt,
		payload.System,
		payload.SentAt,
		payload.SentAt,
	)

	detection, err := s.detector.Classify(ctx, message, history)
	if err != nil {
		if errors.Is(err, services.ErrNoDetection) {
			return nil
		}
		return err
	}

	if !detection.NeedsMeeting || detection.Confidence < s.config.ConfidenceThreshold {
		s.logger.Debug("detection below threshold",
			"conversation_id", payload.ConversationID,
			"needs_meeting", detection.NeedsMeeting,
			"confidence", detection.Confidence,
			"threshold", s.config.ConfidenceThreshold,
		)
		return nil
	}

	suggestion, err := domain.NewSuggestion(
		conversation.ID(),
		conversation.Name(),
		conversation.ParticipantNames(),
		detection.Purpose,
		detection.Urgency,
		detection.Confidence,
		payload.MessageID,
	)
	if err != nil {
		return err
	}
	if err := s.suggestions.Save(ctx, suggestion); err != nil {
		return err
	}
	s.publish(ctx, suggestion)

	s.logger.Info("suggestion created",
		"suggestion_id", suggestion.ID(),
		"conversation_id", conversation.ID(),
		"confidence", detection.Confidence,
		"urgency", detection.Urgency,
	)

	// Slot generation runs after the pending record is visible, so a slow
	// timezone lookup never delays the suggestion itself
	slots, err := s.generator.Generate(ctx, suggestion.ParticipantIDs(), s.config.SlotDuration, suggestion.Urgency())
	if err != nil {
		return err
	}
	if err := suggestion.AttachSlots(slots); err != nil {
		if errors.Is(err, domain.ErrSuggestionFinalized) {
			return nil
		}
		return err
	}
	if err := s.suggestions.Save(ctx, suggestion); err != nil {
		return err
	}
	s.publish(ctx, suggestion)

	return nil
}

func (s *MessageSubscriber) publish(ctx context.Context, suggestion *domain.Suggestion) {
	if s.publisher == nil {
		suggestion.ClearDomainEvents()
		return
	}
	for _, event := range suggestion.DomainEvents() {
		payload, err := eventbus.MarshalDomainEvent(event)
		if err != nil {
			s.logger.Error("failed to marshal suggestion event", "routing_key", event.RoutingKey(), "error", err)
			continue
		}
		if err := s.publisher.Publish(ctx, event.RoutingKey(), payload); err != nil {
			s.logger.Warn("failed to publish suggestion event",
				"routing_key", event.RoutingKey(),
				"suggestion_id", suggestion.ID(),
				"error", err,
			)
		}
	}
	suggestion.ClearDomainEvents()
}
