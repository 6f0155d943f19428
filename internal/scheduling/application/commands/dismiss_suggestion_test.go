package commands

import (
	"context"
	"testing"
	"time"

	"github.com/harborchat/harbor/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDismissSuggestion_HappyPath(t *testing.T) {
	alice := uuid.New()
	participants := map[uuid.UUID]string{alice: "Alice"}
	suggestion := newPendingSuggestion(t, participants, testSlots(participants))

	suggestions := new(mockSuggestionRepository)
	publisher := new(mockPublisher)
	suggestions.On("FindByID", mock.Anything, suggestion.ID()).Return(suggestion, nil)
	suggestions.On("Save", mock.Anything, suggestion).Return(nil)
	publisher.On("Publish", mock.Anything, "scheduling.suggestion.dismissed", mock.Anything).Return(nil)

	handler := NewDismissSuggestionHandler(suggestions, publisher, nil)
	err := handler.Handle(context.Background(), DismissSuggestionCommand{
		SuggestionID: suggestion.ID(),
		UserID:       alice,
	})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusDismissed, suggestion.Status())
	require.NotNil(t, suggestion.DismissedAt())
	suggestions.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestDismissSuggestion_NotFound(t *testing.T) {
	suggestions := new(mockSuggestionRepository)
	suggestions.On("FindByID", mock.Anything, mock.Anything).Return(nil, nil)

	handler := NewDismissSuggestionHandler(suggestions, nil, nil)
	err := handler.Handle(context.Background(), DismissSuggestionCommand{
		SuggestionID: uuid.New(),
		UserID:       uuid.New(),
	})

	assert.ErrorIs(t, err, domain.ErrSuggestionNotFound)
}

func TestDismissSuggestion_NotParticipant(t *testing.T) {
	alice := uuid.New()
	participants := map[uuid.UUID]string{alice: "Alice"}
	suggestion := newPendingSuggestion(t, participants, nil)

	suggestions := new(mockSuggestionRepository)
	suggestions.On("FindByID", mock.Anything, suggestion.ID()).Return(suggestion, nil)

	handler := NewDismissSuggestionHandler(suggestions, nil, nil)
	err := handler.Handle(context.Background(), DismissSuggestionCommand{
		SuggestionID: suggestion.ID(),
		UserID:       uuid.New(),
	})

	assert.ErrorIs(t, err, domain.ErrNotParticipant)
	assert.Equal(t, domain.StatusPending, suggestion.Status())
}

func TestDismissSuggestion_IdempotentSkipsWrite(t *testing.T) {
	alice := uuid.New()
	participants := map[uuid.UUID]string{alice: "Alice"}
	suggestion := newPendingSuggestion(t, participants, nil)
	require.NoError(t, suggestion.Dismiss(time.Now()))
	suggestion.ClearDomainEvents()

	suggestions := new(mockSuggestionRepository)
	suggestions.On("FindByID", mock.Anything, suggestion.ID()).Return(suggestion, nil)

	handler := NewDismissSuggestionHandler(suggestions, nil, nil)
	err := handler.Handle(context.Background(), DismissSuggestionCommand{
		SuggestionID: suggestion.ID(),
		UserID:       alice,
	})

	require.NoError(t, err)
	suggestions.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestDismissSuggestion_AcceptedFails(t *testing.T) {
	alice := uuid.New()
	participants := map[uuid.UUID]string{alice: "Alice"}
	slots := testSlots(participants)
	suggestion := newPendingSuggestion(t, participants, slots)
	require.NoError(t, suggestion.Accept(slots[0], time.Now()))
	suggestion.ClearDomainEvents()

	suggestions := new(mockSuggestionRepository)
	suggestions.On("FindByID", mock.Anything, suggestion.ID()).Return(suggestion, nil)

	handler := NewDismissSuggestionHandler(suggestions, nil, nil)
	err := handler.Handle(context.Background(), DismissSuggestionCommand{
		SuggestionID: suggestion.ID(),
		UserID:       alice,
	})

	assert.ErrorIs(t, err, domain.ErrSuggestionFinalized)
	assert.Equal(t, domain.StatusAccepted, suggestion.Status())
}
