// Package persistence provides the chat repositories: Postgres for server
// deployments, SQLite for local single-binary mode.
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
)

// SQLiteConversationRepository persists conversations in SQLite.
type SQLiteConversationRepository struct {
	db *sql.DB
}

// NewSQLiteConversationRepository creates a repository.
func NewSQLiteConversationRepository(db *sql.DB) *SQLiteConversationRepository {
	return &SQLiteConversationRepository{db: db}
}

// Save upserts the conversation by id.
func (r *SQLiteConversationRepository) Save(ctx context.Context, conversation *domain.Conversation) error {
	participants, err := json.Marshal(participantsDoc(conversation.ParticipantNames()))
	if err != nil {
		return fmt.Errorf("marshal participants: %w", err)
	}

	var lastAt sql.NullTime
	if at := conversation.LastMessageAt(); at != nil {
		lastAt = sql.NullTime{Time: at.UTC(), Valid: true}
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO conversations (id, name, participants, last_message_preview, last_message_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			participants = excluded.participants,
			last_message_preview = excluded.last_message_preview,
			last_message_at = excluded.last_message_at,
			updated_at = excluded.updated_at`,
		conversation.ID().String(), conversation.Name(), participants,
		conversation.LastMessagePreview(), lastAt,
		conversation.CreatedAt().UTC(), conversation.UpdatedAt().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

// FindByID retrieves a conversation, or nil when not found.
func (r *SQLiteConversationRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	var (
		rawID, name, preview string
		participants         []byte
		lastAt               sql.NullTime
		createdAt, updatedAt time.Time
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, participants, last_message_preview, last_message_at, created_at, updated_at
		 FROM conversations WHERE id = ?`, id.String(),
	).Scan(&rawID, &name, &participants, &preview, &lastAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
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

// SQLiteMessageRepository persists messages in SQLite.
type SQLiteMessageRepository struct {
	db *sql.DB
}

// NewSQLiteMessageRepository creates a repository.
func NewSQLiteMessageRepository(db *sql.DB) *SQLiteMessageRepository {
	return &SQLiteMessageRepository{db: db}
}

// Save persists a message.
func (r *SQLiteMessageRepository) Save(ctx context.Context, message *domain.Message) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO messages (id, conversation_id, sender_id, sender_name, text, is_system, sent_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING`,
		message.ID().String(), message.ConversationID().String(),
		message.SenderID().String(), message.SenderName(), message.Text(),
		message.IsSystem(), message.SentAt().UTC(),
		message.CreatedAt().UTC(), message.UpdatedAt().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

// ListRecent returns up to limit messages in chronological order, oldest
// first.
func (r *SQLiteMessageRepository) ListRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]*domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, conversation_id, sender_id, sender_name, text, is_system, sent_at, created_at, updated_at
		FROM (
			SELECT * FROM messages WHERE conversation_id = ?
			ORDER BY sent_at DESC LIMIT ?
		) ORDER BY sent_at ASC`,
		conversationID.String(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*domain.Message, 0, limit)
	for rows.Next() {
		var (
			rawID, rawConvID, rawSenderID string
			senderName, text              string
			system                        bool
			sentAt, createdAt, updatedAt  time.Time
		)
		if err := rows.Scan(&rawID, &rawConvID, &rawSenderID, &senderName, &text, &system, &sentAt, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("parse message id: %w", err)
		}
		convID, err := uuid.Parse(rawConvID)
		if err != nil {
			return nil, fmt.Errorf("parse conversation id: %w", err)
		}
		senderID, err := uuid.Parse(rawSenderID)
		if err != nil {
			return nil, fmt.Errorf("parse sender id: %w", err)
		}
		messages = append(messages, domain.RehydrateMessage(
			id, convID, senderID, senderName, text,
			sentAt.UTC(), system, createdAt.UTC(), updatedAt.UTC(),
		))
	}
	return messages, rows.Err()
}

// SQLiteProfileRepository persists user profiles in SQLite.
type SQLiteProfileRepository struct {
	db *sql.DB
}

// NewSQLiteProfileRepository creates a repository.
func NewSQLiteProfileRepository(db *sql.DB) *SQLiteProfileRepository {
	return &SQLiteProfileRepository{db: db}
}

// Save upserts the profile by user id.
func (r *SQLiteProfileRepository) Save(ctx context.Context, profile *domain.UserProfile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, display_name, timezone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = excluded.display_name,
			timezone = excluded.timezone,
			updated_at = excluded.updated_at`,
		profile.ID().String(), profile.DisplayName(), profile.Timezone(),
		profile.CreatedAt().UTC(), profile.UpdatedAt().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// FindByID retrieves a profile, or nil when not found.
func (r *SQLiteProfileRepository) FindByID(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	var (
		rawID, displayName, timezone string
		createdAt, updatedAt         time.Time
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT user_id, display_name, timezone, created_at, updated_at FROM profiles WHERE user_id = ?`,
		userID.String(),
	).Scan(&rawID, &displayName, &timezone, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan profile: %w", err)
	}
	return domain.RehydrateUserProfile(userID, displayName, timezone, createdAt.UTC(), updatedAt.UTC()), nil
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
