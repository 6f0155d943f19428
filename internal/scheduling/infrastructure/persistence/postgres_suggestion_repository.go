package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/harborchat/harbor/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSuggestionRepository persists suggestions in Postgres.
type PostgresSuggestionRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresSuggestionRepository creates a repository.
func NewPostgresSuggestionRepository(pool *pgxpool.Pool) *PostgresSuggestionRepository {
	return &PostgresSuggestionRepository{pool: pool}
}

// Save upserts the suggestion by id.
func (r *PostgresSuggestionRepository) Save(ctx context.Context, suggestion *domain.Suggestion) error {
	row, err := newSuggestionRow(suggestion)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO suggestions (
			id, conversation_id, conversation_name, participants, purpose,
			urgency, confidence, status, triggered_by_message_id,
			suggested_slots, accepted_slot, accepted_at, dismissed_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			conversation_name = EXCLUDED.conversation_name,
			participants = EXCLUDED.participants,
			purpose = EXCLUDED.purpose,
			urgency = EXCLUDED.urgency,
			confidence = EXCLUDED.confidence,
			status = EXCLUDED.status,
			suggested_slots = EXCLUDED.suggested_slots,
			accepted_slot = EXCLUDED.accepted_slot,
			accepted_at = EXCLUDED.accepted_at,
			dismissed_at = EXCLUDED.dismissed_at,
			updated_at = EXCLUDED.updated_at`,
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

// FindByID retrieves a suggestion, or nil when not found.
func (r *PostgresSuggestionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Suggestion, error) {
	return r.findOne(ctx,
		`SELECT `+suggestionColumns+` FROM suggestions WHERE id = $1`, id)
}

// FindByTriggerMessage retrieves the suggestion created for a triggering
// message, or nil when none exists.
func (r *PostgresSuggestionRepository) FindByTriggerMessage(ctx context.Context, messageID uuid.UUID) (*domain.Suggestion, error) {
	return r.findOne(ctx,
		`SELECT `+suggestionColumns+` FROM suggestions WHERE triggered_by_message_id = $1`, messageID)
}

// ListByConversation returns suggestions of a conversation, newest first.
func (r *PostgresSuggestionRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID, includeStale bool) ([]*domain.Suggestion, error) {
	query := `SELECT ` + suggestionColumns + ` FROM suggestions WHERE conversation_id = $1`
	args := []any{conversationID}
	if !includeStale {
		query += ` AND created_at > $2`
		args = append(args, time.Now().UTC().Add(-domain.StaleAfter))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list suggestions: %w", err)
	}
	defer rows.Close()

	suggestions := make([]*domain.Suggestion, 0)
	for rows.Next() {
		suggestion, err := scanSuggestionPgx(rows)
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, suggestion)
	}
	return suggestions, rows.Err()
}

func (r *PostgresSuggestionRepository) findOne(ctx context.Context, query string, args ...any) (*domain.Suggestion, error) {
	suggestion, err := scanSuggestionPgx(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return suggestion, err
}

func scanSuggestionPgx(scanner rowScanner) (*domain.Suggestion, error) {
	var row suggestionRow
	err := scanner.Scan(
		&row.id, &row.conversationID, &row.conversationName, &row.participants,
		&row.purpose, &row.urgency, &row.confidence, &row.status,
		&row.triggeredByMessageID, &row.suggestedSlots, &row.acceptedSlot,
		&row.acceptedAt, &row.dismissedAt, &row.createdAt, &row.updatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan suggestion: %w", err)
	}
	return rehydrateSuggestion(&row)
}
