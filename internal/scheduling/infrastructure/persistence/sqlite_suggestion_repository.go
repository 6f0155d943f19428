// Package persistence provides the suggestion repository implementations:
// Postgres for server deployments, SQLite for local single-binary mode.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/harborchat/harbor/internal/scheduling/domain"
	"github.com/google/uuid"
)

// SQLiteSuggestionRepository persists suggestions in SQLite.
type SQLiteSuggestionRepository struct {
	db *sql.DB
}

// NewSQLiteSuggestionRepository creates a repository.
func NewSQLiteSuggestionRepository(db *sql.DB) *SQLiteSuggestionRepository {
	return &SQLiteSuggestionRepository{db: db}
}

// Save upserts the suggestion by id.
func (r *SQLiteSuggestionRepository) Save(ctx context.Context, suggestion *domain.Suggestion) error {
	row, err := newSuggestionRow(suggestion)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO suggestions (
			id, conversation_id, conversation_name, participants, purpose,
			urgency, confidence, status, triggered_by_message_id,
			suggested_slots, accepted_slot, accepted_at, dismissed_at,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			conversation_name = excluded.conversation_name,
			participants = excluded.participants,
			purpose = excluded.purpose,
			urgency = excluded.urgency,
			confidence = excluded.confidence,
			status = excluded.status,
			suggested_slots = excluded.suggested_slots,
			accepted_slot = excluded.accepted_slot,
			accepted_at = excluded.accepted_at,
			dismissed_at = excluded.dismissed_at,
			updated_at = excluded.updated_at`,
		row.id, row.conversationID, row.conversationName, row.participants,
		row.purpose, row.urgency, row.confidence, row.status,
		row.triggeredByMessageID, row.suggestedSlots, row.acceptedSlot,
		row.acceptedAt, row.dismissedAt, row.createdAt, row.updatedAt,
	)
	if err != nil {
		return fmt.Errorf("save suggestion: %w", err)
	}
	return nil
}

const suggestionColumns = `id, conversation_id, conversation_name, participants, purpose,
	urgency, confidence, status, triggered_by_message_id, suggested_slots,
	accepted_slot, accepted_at, dismissed_at, created_at, updated_at`

// FindByID retrieves a suggestion, or nil when not found.
func (r *SQLiteSuggestionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Suggestion, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+suggestionColumns+` FROM suggestions WHERE id = ?`, id.String())
	return scanSuggestion(row)
}

// FindByTriggerMessage retrieves the suggestion created for a triggering
// message, or nil when none exists.
func (r *SQLiteSuggestionRepository) FindByTriggerMessage(ctx context.Context, messageID uuid.UUID) (*domain.Suggestion, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+suggestionColumns+` FROM suggestions WHERE triggered_by_message_id = ?`, messageID.String())
	return scanSuggestion(row)
}

// ListByConversation returns suggestions of a conversation, newest first.
func (r *SQLiteSuggestionRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID, includeStale bool) ([]*domain.Suggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM suggestions WHERE conversation_id = ?`
	args := []any{conversationID.String()}
	if !includeStale {
		query += ` AND created_at > ?`
		args = append(args, time.Now().UTC().Add(-domain.StaleAfter))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()

	suggestions := make([]*domain.Suggestion, 0)
	for rows.Next() {
		suggestion, err := scanSuggestion(rows)
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, suggestion)
	}
	return suggestions, rows.Err()
}

// suggestionRow is the flat persisted form shared by both engines.
type suggestionRow struct {
	id                   string
	conversationID       string
	conversationName     string
	participants         []byte
	purpose              string
	urgency              string
	confidence           float64
	status               string
	triggeredByMessageID string
	suggestedSlots       []byte
	acceptedSlot         []byte
	acceptedAt           sql.NullTime
	dismissedAt          sql.NullTime
	createdAt            time.Time
	updatedAt            time.Time
}

func newSuggestionRow(s *domain.Suggestion) (*suggestionRow, error) {
	participants, err := json.Marshal(participantsDoc(s.ParticipantNames()))
	if err != nil {
		return nil, fmt.Errorf("marshal participants: %w", err)
	}
	slots, err := json.Marshal(s.SuggestedSlots())
	if err != nil {
		return nil, fmt.Errorf("marshal slots: %w", err)
	}

	var accepted []byte
	if slot := s.AcceptedSlot(); slot != nil {
		accepted, err = json.Marshal(slot)
		if err != nil {
			return nil, fmt.Errorf("marshal accepted slot: %w", err)
		}
	}

	row := &suggestionRow{
		id:                   s.ID().String(),
		conversationID:       s.ConversationID().String(),
		conversationName:     s.ConversationName(),
		participants:         participants,
		purpose:              s.Purpose(),
		urgency:              string(s.Urgency()),
		confidence:           s.Confidence(),
		status:               string(s.Status()),
		triggeredByMessageID: s.TriggeredByMessageID().String(),
		suggestedSlots:       slots,
		acceptedSlot:         accepted,
		createdAt:            s.CreatedAt().UTC(),
		updatedAt:            s.UpdatedAt().UTC(),
	}
	if at := s.AcceptedAt(); at != nil {
		row.acceptedAt = sql.NullTime{Time: at.UTC(), Valid: true}
	}
	if at := s.DismissedAt(); at != nil {
		row.dismissedAt = sql.NullTime{Time: at.UTC(), Valid: true}
	}
	return row, nil
}

// participantsDoc keys the name map by string for stable JSON.
func participantsDoc(names map[uuid.UUID]string) map[string]string {
	doc := make(map[string]string, len(names))
	for id, n := range names {
		doc[id.String()] = n
	}
	return doc
}

func parseParticipantsDoc(data []byte) (map[uuid.UUID]string, error) {
	var doc map[string]string
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal participants: %w", err)
	}
	names := make(map[uuid.UUID]string, len(doc))
	for raw, n := range doc {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse participant id %q: %w", raw, err)
		}
		names[id] = n
	}
	return names, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSuggestion(scanner rowScanner) (*domain.Suggestion, error) {
	var row suggestionRow
	err := scanner.Scan(
		&row.id, &row.conversationID, &row.conversationName, &row.participants,
		&row.purpose, &row.urgency, &row.confidence, &row.status,
		&row.triggeredByMessageID, &row.suggestedSlots, &row.acceptedSlot,
		&row.acceptedAt, &row.dismissedAt, &row.createdAt, &row.updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan suggestion: %w", err)
	}
	return rehydrateSuggestion(&row)
}

func rehydrateSuggestion(row *suggestionRow) (*domain.Suggestion, error) {
	id, err := uuid.Parse(row.id)
	if err != nil {
		return nil, fmt.Errorf("parse suggestion id: %w", err)
	}
	conversationID, err := uuid.Parse(row.conversationID)
	if err != nil {
		return nil, fmt.Errorf("parse conversation id: %w", err)
	}
	triggerID, err := uuid.Parse(row.triggeredByMessageID)
	if err != nil {
		return nil, fmt.Errorf("parse trigger message id: %w", err)
	}
	participants, err := parseParticipantsDoc(row.participants)
	if err != nil {
		return nil, err
	}

	var slots []domain.TimeSlot
	if len(row.suggestedSlots) > 0 {
		if err := json.Unmarshal(row.suggestedSlots, &slots); err != nil {
			return nil, fmt.Errorf("unmarshal slots: %w", err)
		}
	}

	var acceptedSlot *domain.TimeSlot
	if len(row.acceptedSlot) > 0 {
		acceptedSlot = &domain.TimeSlot{}
		if err := json.Unmarshal(row.acceptedSlot, acceptedSlot); err != nil {
			return nil, fmt.Errorf("unmarshal accepted slot: %w", err)
		}
	}

	var acceptedAt, dismissedAt *time.Time
	if row.acceptedAt.Valid {
		at := row.acceptedAt.Time.UTC()
		acceptedAt = &at
	}
	if row.dismissedAt.Valid {
		at := row.dismissedAt.Time.UTC()
		dismissedAt = &at
	}

	return domain.RehydrateSuggestion(
		id, conversationID, row.conversationName, participants,
		row.purpose, domain.Urgency(row.urgency), row.confidence,
		domain.Status(row.status), triggerID, slots, acceptedSlot,
		acceptedAt, dismissedAt, row.createdAt.UTC(), row.updatedAt.UTC(),
	), nil
}
