package queries

import (
	"context"
	"errors"
	"testing"

	"github.com/harborchat/harbor/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
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

func newSuggestion(t *testing.T) *domain.Suggestion {
	t.Helper()
	s, err := domain.NewSuggestion(
		uuid.New(),
		"platform-team",
		map[uuid.UUID]string{uuid.New(): "Alice"},
		"retro",
		domain.UrgencyFlexible,
		0.8,
		uuid.New(),
	)
	require.NoError(t, err)
	return s
}

func TestGetSuggestion(t *testing.T) {
	suggestion := newSuggestion(t)
	repo := new(mockSuggestionRepository)
	repo.On("FindByID", mock.Anything, suggestion.ID()).Return(suggestion, nil)

	handler := NewGetSuggestionHandler(repo)
	got, err := handler.Handle(context.Background(), GetSuggestionQuery{SuggestionID: suggestion.ID()})

	require.NoError(t, err)
	assert.Equal(t, suggestion.ID(), got.ID())
}

func TestGetSuggestion_NotFound(t *testing.T) {
	repo := new(mockSuggestionRepository)
	repo.On("FindByID", mock.Anything, mock.Anything).Return(nil, nil)

	handler := NewGetSuggestionHandler(repo)
	_, err := handler.Handle(context.Background(), GetSuggestionQuery{SuggestionID: uuid.New()})

	assert.ErrorIs(t, err, domain.ErrSuggestionNotFound)
}

func TestGetSuggestion_RepositoryFailure(t *testing.T) {
	repo := new(mockSuggestionRepository)
	repo.On("FindByID", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))

	handler := NewGetSuggestionHandler(repo)
	_, err := handler.Handle(context.Background(), GetSuggestionQuery{SuggestionID: uuid.New()})

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSuggestionNotFound)
}

func TestListSuggestions(t *testing.T) {
	conversationID := uuid.New()
	expected := []*domain.Suggestion{newSuggestion(t), newSuggestion(t)}

	repo := new(mockSuggestionRepository)
	repo.On("ListByConversation", mock.Anything, conversationID, false).Return(expected, nil)

	handler := NewListSuggestionsHandler(repo)
	got, err := handler.Handle(context.Background(), ListSuggestionsQuery{ConversationID: conversationID})

	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestListSuggestions_IncludeStale(t *testing.T) {
	conversationID := uuid.New()
	repo := new(mockSuggestionRepository)
	repo.On("ListByConversation", mock.Anything, conversationID, true).Return([]*domain.Suggestion{}, nil)

	handler := NewListSuggestionsHandler(repo)
	got, err := handler.Handle(context.Background(), ListSuggestionsQuery{ConversationID: conversationID, IncludeStale: true})

	require.NoError(t, err)
	assert.Empty(t, got)
	repo.AssertExpectations(t)
}
