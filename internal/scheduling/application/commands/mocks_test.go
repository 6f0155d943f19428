package commands

import (
	"context"
	"testing"
	"time"

	chatDomain "github.com/harborchat/harbor/internal/chat/domain"
	"github.com/harborchat/harbor/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSuggestionRepository struct {
	mock.Mock
}

func (m *mockSuggestionRepository) Save(ctx context.Context, suggestion *domain.Suggestion) error {
	args := m.Called(ctx, suggestion)
	return args.Error(0)
}

func (m *mockSuggestionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Suggestion, error) {
	args := m.Called(ctx, id)
	if s := args.Get(0); s != nil {
		return s.(*domain.Suggestion), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSuggestionRepository) FindByTriggerMessage(ctx context.Context, messageID uuid.UUID) (*domain.Suggestion, error) {
	args := m.Called(ctx, messageID)
	if s := args.Get(0); s != nil {
		return s.(*domain.Suggestion), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockSuggestionRepository) ListByConversation(ctx context.Context, conversationID uuid.UUID, includeStale bool) ([]*domain.Suggestion, error) {
	args := m.Called(ctx, conversationID, includeStale)
	if s := args.Get(0); s != nil {
		return s.([]*domain.Suggestion), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockConversationRepository struct {
	mock.Mock
}

func (m *mockConversationRepository) Save(ctx context.Context, conversation *chatDomain.Conversation) error {
	args := m.Called(ctx, conversation)
	return args.Error(0)
}

func (m *mockConversationRepository) FindByID(ctx context.Context, id uuid.UUID) (*chatDomain.Conversation, error) {
	args := m.Called(ctx, id)
	if c := args.Get(0); c != nil {
		return c.(*chatDomain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockMessageRepository struct {
	mock.Mock
}

func (m *mockMessageRepository) Save(ctx context.Context, message *chatDomain.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *mockMessageRepository) ListRecent(ctx context.Context, conversationID uuid.UUID, limit int) ([]*chatDomain.Message, error) {
	args := m.Called(ctx, conversationID, limit)
	if msgs := args.Get(0); msgs != nil {
		return msgs.([]*chatDomain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// mockPublisher records published routing keys.
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	args := m.Called(ctx, routingKey, payload)
	return args.Error(0)
}

func (m *mockPublisher) Close() error {
	args := m.Called()
	return args.Error(0)
}

// newPendingSuggestion builds a pending suggestion with attached slots and
// no uncommitted events.
func newPendingSuggestion(t *testing.T, participants map[uuid.UUID]string, slots []domain.TimeSlot) *domain.Suggestion {
	t.Helper()
	s, err := domain.NewSuggestion(
		uuid.New(),
		"platform-team",
		participants,
		"sprint planning",
		domain.UrgencyThisWeek,
		0.9,
		uuid.New(),
	)
	require.NoError(t, err)
	if len(slots) > 0 {
		require.NoError(t, s.AttachSlots(slots))
	}
	s.ClearDomainEvents()
	return s
}

func testSlots(participants map[uuid.UUID]string) []domain.TimeSlot {
	start := time.Date(2026, time.March, 3, 17, 0, 0, 0, time.UTC)
	slots := make([]domain.TimeSlot, 0, 3)
	for i := 0; i < 3; i++ {
		displays := make(map[uuid.UUID]string, len(participants))
		for id := range participants {
			displays[id] = start.Add(time.Duration(i) * 24 * time.Hour).Format("Monday, Jan 2 at 3:04 PM MST")
		}
		slots = append(slots, domain.TimeSlot{
			Start:    start.Add(time.Duration(i) * 24 * time.Hour),
			Duration: time.Hour,
			Displays: displays,
		})
	}
	return slots
}
