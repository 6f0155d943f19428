package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/harborchat/harbor/internal/chat/domain"
	"github.com/harborchat/harbor/internal/shared/infrastructure/migrations"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, migrations.RunSQLite(context.Background(), db))
	return db
}

func TestSQLiteConversationRepository_SaveAndFind(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteConversationRepository(db)
	ctx := context.Background()

	alice := uuid.New()
	conversation, err := domain.NewConversation("platform-team", map[uuid.UUID]string{alice: "Alice"})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, conversation))

	found, err := repo.FindByID(ctx, conversation.ID())
	require.NoError(t, err)
	require.NotNil(t, found)

	assert.Equal(t, "platform-team", found.Name())
	assert.Equal(t, "Alice", found.ParticipantNames()[alice])
	assert.True(t, found.HasParticipant(alice))
	assert.Empty(t, found.LastMessagePreview())
	assert.Nil(t, found.LastMessageAt())
}

func TestSQLiteConversationRepository_UpsertPreview(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteConversationRepository(db)
	ctx := context.Background()

	conversation, err := domain.NewConversation("platform-team", map[uuid.UUID]string{uuid.New(): "Alice"})
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, conversation))

	at := time.Now().UTC().Truncate(time.Second)
	conversation.RecordMessage("Meeting scheduled: sprint planning", at)
	require.NoError(t, repo.Save(ctx, conversation))

	found, err := repo.FindByID(ctx, conversation.ID())
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Meeting scheduled: sprint planning", found.LastMessagePreview())
	require.NotNil(t, found.LastMessageAt())
	assert.True(t, found.LastMessageAt().Equal(at))
}

func TestSQLiteConversationRepository_NotFound(t *testing.T) {
	repo := NewSQLiteConversationRepository(newTestDB(t))

	found, err := repo.FindByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestSQLiteMessageRepository_ListRecent(t *testing.T) {
	db := newTestDB(t)
	conversations := NewSQLiteConversationRepository(db)
	messages := NewSQLiteMessageRepository(db)
	ctx := context.Background()

	alice := uuid.New()
	conversation, err := domain.NewConversation("platform-team", map[uuid.UUID]string{alice: "Alice"})
	require.NoError(t, err)
	require.NoError(t, conversations.Save(ctx, conversation))

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		msg := domain.RehydrateMessage(
			uuid.New(), conversation.ID(), alice, "Alice",
			fmt.Sprintf("message %d", i),
			base.Add(time.Duration(i)*time.Minute), false,
			base, base,
		)
		require.NoError(t, messages.Save(ctx, msg))
	}

	recent, err := messages.ListRecent(ctx, conversation.ID(), 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)

	// The window holds the newest three, returned oldest first
	assert.Equal(t, "message 2", recent[0].Text())
	assert.Equal(t, "message 3", recent[1].Text())
	assert.Equal(t, "message 4", recent[2].Text())
}

func TestSQLiteMessageRepository_SystemFlagRoundTrip(t *testing.T) {
	db := newTestDB(t)
	conversations := NewSQLiteConversationRepository(db)
	messages := NewSQLiteMessageRepository(db)
	ctx := context.Background()

	conversation, err := domain.NewConversation("platform-team", map[uuid.UUID]string{uuid.New(): "Alice"})
	require.NoError(t, err)
	require.NoError(t, conversations.Save(ctx, conversation))

	announcement, err := domain.NewSystemMessage(conversation.ID(), "Meeting scheduled")
	require.NoError(t, err)
	require.NoError(t, messages.Save(ctx, announcement))

	recent, err := messages.ListRecent(ctx, conversation.ID(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.True(t, recent[0].IsSystem())
	assert.Equal(t, domain.AssistantSenderID, recent[0].SenderID())
	assert.Equal(t, domain.AssistantSenderName, recent[0].SenderName())
}

func TestSQLiteProfileRepository_SaveAndFind(t *testing.T) {
	repo := NewSQLiteProfileRepository(newTestDB(t))
	ctx := context.Background()

	profile := domain.NewUserProfile(uuid.New(), "Alice", "America/New_York")
	require.NoError(t, repo.Save(ctx, profile))

	found, err := repo.FindByID(ctx, profile.ID())
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Alice", found.DisplayName())
	assert.Equal(t, "America/New_York", found.Timezone())

	// Updating the timezone upserts
	profile.SetTimezone("Europe/Berlin")
	require.NoError(t, repo.Save(ctx, profile))

	found, err = repo.FindByID(ctx, profile.ID())
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", found.Timezone())
}

func TestSQLiteProfileRepository_NotFound(t *testing.T) {
	repo := NewSQLiteProfileRepository(newTestDB(t))

	found, err := repo.FindByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, found)
}
