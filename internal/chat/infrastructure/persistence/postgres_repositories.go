package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/harborchat/harbor/internal/chat/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConversationRepository persists conversations in Postgres.
type PostgresConversationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresConversationRepository creates a repository.
func NewPostgresConversationRepository(pool *pgxpool.Pool) *PostgresConversationRepository {
	return &PostgresConversationRepository{pool: pool}
}

// Save upserts the conversation by id.
func (r *PostgresConversationRepository) Save(ctx context.Context, conversation *domain.Conversation) error {
	participants, err := json.Marshal(participantsDoc(conversation.ParticipantNames()))
	if err != nil {
		return fmt.Errorf("marshal participants: %w", err)
	}

	var lastAt sql.NullTime
	if at := conversation.LastMessageAt(); at != nil {
		lastAt = sql.NullTime{Time: at.UTC(), Valid: true}
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO conversations (id, name, participants, last_message_preview, last_message_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			participants = EXCLUDED.participants,
			last_message_preview = EXCLUDED.last_message_preview,
			last_message_at = EXCLUDED.last_message_at,
			updated_at = EXCLUDED.updated_at`,
		conversation.ID(), conversation.Name(), participants,
		conversation.LastMessagePreview(), lastAt,
		conversation.CreatedAt().UTC(), conversation.UpdatedAt().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

// FindByID retrieves a conversation, or nil when not found.
func (r *PostgresConversationRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	var (
		name, preview        string
		participants         []byte
		lastAt               sql.NullTime
		createdAt, updatedAt time.Time
	)
	err := r.pool.QueryRow(ctx,
		`SELECT name, participants, last_message_preview, last_message_at, created_at, updated_at
		 FROM conversations WHERE id = $1`, id,
	).Scan(&name, &participants, &preview, &lastAt, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan conversation: %w", err)
	}

	names, err := parseParticipantsDoc(participants)
	if err != nil {
		return nil, err
	}

	var lastMessageAt *time.Time
	if lastAt.Valid {
		at := lastAt.Time.UTC()
		lastMessageAt = &at
	}

	return domain.RehydrateConversation(id, name, names, preview, lastMessageAt, createdAt.UTC(), updatedAt.UTC()), nil
}

// PostgresMessageRepository persists messages in Postgres.
type PostgresMessageRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresMessageRepository creates a repository.
func NewPostgresMessageRepository(pool *pgxpool.Pool) *PostgresMessageRepository {
	return &PostgresMessageRepository{pool: pool}
}

// Save persists a message.
func (r *PostgresMessageRepository) Save(ctx context.Context, message *domain.Message) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, sender_name, text, is_system, sent_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		message.ID(), message.ConversationID(), message.SenderID(),
		message.SenderName(), message.Text(), message.IsSystem(),
		message.SentAt().UTC(), message.CreatedAt().UTC(), message.UpdatedAt().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

// ListRecent returns up to limit messages in chronological order, oldest
// first.
func (r *PostgresMessageRepository) ListRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]*domain.Message, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, conversation_id, sender_id, sender_name, text, is_system, sent_at, created_at, updated_at
		FROM (
			SELECT * FROM messages WHERE conversation_id = $1
			ORDER BY sent_at DESC LIMIT $2
		) recent ORDER BY sent_at ASC`,
		conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*domain.Message, 0, limit)
	for rows.Next() {
		var (
			id, convID, senderID         uuid.UUID
			senderName, text             string
			system                       bool
			sentAt, createdAt, updatedAt time.Time
		)
		if err := rows.Scan(&id, &convID, &senderID, &senderName, &text, &system, &sentAt, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, domain.RehydrateMessage(
			id, convID, senderID, senderName, text,
			sentAt.UTC(), system, createdAt.UTC(), updatedAt.UTC(),
		))
	}
	return messages, rows.Err()
}

// PostgresProfileRepository persists user profiles in Postgres.
type PostgresProfileRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresProfileRepository creates a repository.
func NewPostgresProfileRepository(pool *pgxpool.Pool) *PostgresProfileRepository {
	return &PostgresProfileRepository{pool: pool}
}

// Save upserts the profile by user id.
func (r *PostgresProfileRepository) Save(ctx context.Context, profile *domain.UserProfile) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO profiles (user_id, display_name, timezone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			timezone = EXCLUDED.timezone,
			updated_at = EXCLUDED.updated_at`,
		profile.ID(), profile.DisplayName(), profile.Timezone(),
		profile.CreatedAt().UTC(), profile.UpdatedAt().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// FindByID retrieves a profile, or nil when not found.
func (r *PostgresProfileRepository) FindByID(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	var (
		displayName, timezone string
		createdAt, updatedAt  time.Time
	)
	err := r.pool.QueryRow(ctx,
		`SELECT display_name, timezone, created_at, updated_at FROM profiles WHERE user_id = $1`,
		userID,
	).Scan(&displayName, &timezone, &createdAt, &updatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	return domain.RehydrateUserProfile(userID, displayName, timezone, createdAt.UTC(), updatedAt.UTC()), nil
}
