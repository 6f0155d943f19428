// Package services contains the scheduling domain services: the
// language-model backed detector and the multi-timezone slot generator.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	chatDomain "github.com/harborchat/harbor/internal/chat/domain"
	"github.com/harborchat/harbor/internal/scheduling/domain"
)

// ErrNoDetection signals that the classifier produced nothing usable. The
// caller treats it the same as a negative classification.
var ErrNoDetection = errors.New("no scheduling detection")

// CompletionService is the language-model collaborator. The instruction
// carries the classification task, the input carries the conversation
// transcript.
type CompletionService interface {
	Complete(ctx context.Context, instruction, input string) (string, error)
}

// Detection is the structured classification result for a message.
type Detection struct {
	NeedsMeeting bool           `json:"needsMeeting"`
	Confidence   float64        `json:"confidence"`
	Purpose      string         `json:"purpose"`
	Urgency      domain.Urgency `json:"urgency"`
}

// DetectorConfig configures the scheduling detector.
type DetectorConfig struct {
	// Timeout bounds the model call so a hung request cannot stall the
	// background queue.
	Timeout time.Duration

	// ContextMessages is how many recent messages accompany the new one.
	ContextMessages int
}

// DefaultDetectorConfig returns sensible defaults.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		Timeout:         3 * time.Second,
		ContextMessages: 10,
	}
}

// SchedulingDetector classifies messages for meeting-scheduling intent.
// It is strictly best-effort: every failure mode collapses into
// ErrNoDetection and must never disturb message delivery.
type SchedulingDetector struct {
	completions CompletionService
	config      DetectorConfig
	logger      *slog.Logger
}

// NewSchedulingDetector creates a detector.
func NewSchedulingDetector(completions CompletionService, config DetectorConfig, logger *slog.Logger) *SchedulingDetector {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultDetectorConfig().Timeout
	}
	if config.ContextMessages <= 0 {
		config.ContextMessages = DefaultDetectorConfig().ContextMessages
	}
	return &SchedulingDetector{
		completions: completions,
		config:      config,
		logger:      logger,
	}
}

const classifyInstruction = `You analyze a chat conversation and decide whether the latest message indicates the participants want to schedule a meeting.
Respond with ONLY a JSON object of this exact shape:
{"needsMeeting": true|false, "confidence": 0.0-1.0, "purpose": "<short meeting purpose>", "urgency": "urgent"|"this-week"|"flexible"}
Do not include any other text.`

// Classify runs the model classification over the new message plus recent
// history. The confidence gate is applied by the caller, not here.
func (d *SchedulingDetector) Classify(ctx context.Context, message *chatDomain.Message, history []*chatDomain.Message) (*Detection, error) {
	ctx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	transcript := d.buildTranscript(message, history)

	raw, err := d.completions.Complete(ctx, classifyInstruction, transcript)
	if err != nil {
		d.logger.Warn("completion call failed, treating as no detection",
			"conversation_id", message.ConversationID(),
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", ErrNoDetection, err)
	}

	detection, err := parseDetection(raw)
	if err != nil {
		d.logger.Warn("unparseable classification output, treating as no detection",
			"conversation_id", message.ConversationID(),
			"error", err,
		)
		return nil, fmt.Errorf("%w: %v", ErrNoDetection, err)
	}

	return detection, nil
}

// buildTranscript renders the recent conversation oldest-first, with the new
// message last and marked.
func (d *SchedulingDetector) buildTranscript(message *chatDomain.Message, history []*chatDomain.Message) string {
	var b strings.Builder

	start := 0
	if len(history) > d.config.ContextMessages {
		start = len(history) - d.config.ContextMessages
	}
	for _, m := range history[start:] {
		if m.ID() == message.ID() {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", m.SenderName(), m.Text())
	}
	fmt.Fprintf(&b, "[latest] %s: %s\n", message.SenderName(), message.Text())

	return b.String()
}

// parseDetection decodes the model output, tolerating markdown code fences.
// Anything that does not produce the expected shape is an error.
func parseDetection(raw string) (*Detection, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	// Models occasionally wrap the object in prose; take the outermost braces.
	if start := strings.Index(raw, "{"); start > 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}

	var detection Detection
	if err := json.Unmarshal([]byte(raw), &detection); err != nil {
		return nil, fmt.Errorf("decode classification: %w", err)
	}

	if detection.Confidence < 0 || detection.Confidence > 1 {
		return nil, fmt.Errorf("confidence %v out of range", detection.Confidence)
	}
	if !detection.Urgency.IsValid() {
		// Lenient on urgency only: an unknown label degrades to flexible
		detection.Urgency = domain.UrgencyFlexible
	}

	return &detection, nil
}
