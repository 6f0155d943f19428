package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSuggestion(t *testing.T) *Suggestion {
	t.Helper()

	s, err := NewSuggestion(
		uuid.New(),
		"Platform Team",
		map[uuid.UUID]string{uuid.New(): "Alice", uuid.New(): "Bob"},
		"Sprint planning",
		UrgencyThisWeek,
		0.9,
		uuid.New(),
	)
	require.NoError(t, err)
	return s
}

func testSlots() []TimeSlot {
	base := time.Date(2026, time.March, 3, 16, 0, 0, 0, time.UTC)
	return []TimeSlot{
		{Start: base, Duration: time.Hour},
		{Start: base.Add(time.Hour), Duration: time.Hour},
		{Start: base.Add(24 * time.Hour), Duration: time.Hour},
	}
}

func TestNewSuggestion(t *testing.T) {
	s := newTestSuggestion(t)

	assert.Equal(t, StatusPending, s.Status())
	assert.True(t, s.IsPending())
	assert.False(t, s.IsStale())
	assert.Empty(t, s.SuggestedSlots())
	assert.Nil(t, s.AcceptedSlot())
	assert.Len(t, s.DomainEvents(), 1)
	assert.IsType(t, &SuggestionCreated{}, s.DomainEvents()[0])
}

func TestNewSuggestion_Validation(t *testing.T) {
	participants := map[uuid.UUID]string{uuid.New(): "Alice"}

	tests := []struct {
		name         string
		participants map[uuid.UUID]string
		urgency      Urgency
		confidence   float64
		trigger      uuid.UUID
		wantErr      error
	}{
		{"no participants", nil, UrgencyFlexible, 0.8, uuid.New(), ErrNoParticipants},
		{"bad urgency", participants, Urgency("someday"), 0.8, uuid.New(), ErrInvalidUrgency},
		{"confidence above one", participants, UrgencyUrgent, 1.2, uuid.New(), ErrInvalidConfidence},
		{"negative confidence", participants, UrgencyUrgent, -0.1, uuid.New(), ErrInvalidConfidence},
		{"no trigger", participants, UrgencyUrgent, 0.8, uuid.Nil, ErrNoTriggeringMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSuggestion(uuid.New(), "Team", tt.participants, "sync", tt.urgency, tt.confidence, tt.trigger)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUrgency_LeadDays(t *testing.T) {
	assert.Equal(t, 1, UrgencyUrgent.LeadDays())
	assert.Equal(t, 2, UrgencyThisWeek.LeadDays())
	assert.Equal(t, 2, UrgencyFlexible.LeadDays())
}

func TestSuggestion_AttachSlots(t *testing.T) {
	s := newTestSuggestion(t)
	slots := testSlots()

	require.NoError(t, s.AttachSlots(slots))
	assert.Len(t, s.SuggestedSlots(), 3)

	// An empty slot list is a valid outcome, not an error
	require.NoError(t, s.AttachSlots(nil))
	assert.Empty(t, s.SuggestedSlots())
}

func TestSuggestion_AttachSlots_AfterDismiss(t *testing.T) {
	s := newTestSuggestion(t)
	require.NoError(t, s.Dismiss(time.Now()))

	err := s.AttachSlots(testSlots())
	assert.ErrorIs(t, err, ErrSuggestionFinalized)
	assert.Empty(t, s.SuggestedSlots())
}

func TestSuggestion_Accept(t *testing.T) {
	s := newTestSuggestion(t)
	slots := testSlots()
	require.NoError(t, s.AttachSlots(slots))

	now := time.Now()
	require.NoError(t, s.Accept(slots[1], now))

	assert.Equal(t, StatusAccepted, s.Status())
	require.NotNil(t, s.AcceptedSlot())
	assert.True(t, s.AcceptedSlot().Matches(slots[1]))
	require.NotNil(t, s.AcceptedAt())
}

func TestSuggestion_Accept_SlotNotOffered(t *testing.T) {
	s := newTestSuggestion(t)
	require.NoError(t, s.AttachSlots(testSlots()))

	rogue := TimeSlot{Start: time.Date(2026, time.March, 10, 3, 0, 0, 0, time.UTC), Duration: time.Hour}
	err := s.Accept(rogue, time.Now())

	assert.ErrorIs(t, err, ErrSlotNotOffered)
	assert.Equal(t, StatusPending, s.Status())
}

func TestSuggestion_Accept_Idempotent(t *testing.T) {
	s := newTestSuggestion(t)
	slots := testSlots()
	require.NoError(t, s.AttachSlots(slots))
	require.NoError(t, s.Accept(slots[0], time.Now()))

	acceptedAt := *s.AcceptedAt()
	eventCount := len(s.DomainEvents())

	// Same slot again: same terminal state, no new side effects
	require.NoError(t, s.Accept(slots[0], time.Now().Add(time.Minute)))
	assert.Equal(t, acceptedAt, *s.AcceptedAt())
	assert.Len(t, s.DomainEvents(), eventCount)

	// A different slot cannot overwrite the terminal state
	err := s.Accept(slots[1], time.Now())
	assert.ErrorIs(t, err, ErrSuggestionFinalized)
}

func TestSuggestion_Dismiss_Idempotent(t *testing.T) {
	s := newTestSuggestion(t)

	require.NoError(t, s.Dismiss(time.Now()))
	dismissedAt := *s.DismissedAt()
	eventCount := len(s.DomainEvents())

	require.NoError(t, s.Dismiss(time.Now().Add(time.Minute)))
	assert.Equal(t, StatusDismissed, s.Status())
	assert.Equal(t, dismissedAt, *s.DismissedAt())
	assert.Len(t, s.DomainEvents(), eventCount)
}

func TestSuggestion_TerminalStatesAreExclusive(t *testing.T) {
	s := newTestSuggestion(t)
	slots := testSlots()
	require.NoError(t, s.AttachSlots(slots))
	require.NoError(t, s.Accept(slots[0], time.Now()))

	assert.ErrorIs(t, s.Dismiss(time.Now()), ErrSuggestionFinalized)

	s2 := newTestSuggestion(t)
	require.NoError(t, s2.AttachSlots(slots))
	require.NoError(t, s2.Dismiss(time.Now()))
	assert.ErrorIs(t, s2.Accept(slots[0], time.Now()), ErrSuggestionFinalized)
}

func TestSuggestion_IsStale(t *testing.T) {
	fresh := newTestSuggestion(t)
	assert.False(t, fresh.IsStale())

	old := RehydrateSuggestion(
		uuid.New(), uuid.New(), "Team",
		map[uuid.UUID]string{uuid.New(): "Alice"},
		"sync", UrgencyFlexible, 0.8, StatusPending, uuid.New(),
		nil, nil, nil, nil,
		time.Now().UTC().Add(-49*time.Hour), time.Now().UTC().Add(-49*time.Hour),
	)
	assert.True(t, old.IsStale())
}

func TestTimeSlot_End(t *testing.T) {
	start := time.Date(2026, time.March, 3, 16, 0, 0, 0, time.UTC)
	slot := TimeSlot{Start: start, Duration: 45 * time.Minute}

	assert.Equal(t, start.Add(45*time.Minute), slot.End())
}

func TestTimeSlot_Matches_IgnoresDisplays(t *testing.T) {
	start := time.Date(2026, time.March, 3, 16, 0, 0, 0, time.UTC)
	a := TimeSlot{Start: start, Duration: time.Hour}
	b := TimeSlot{Start: start.In(time.FixedZone("PST", -8*3600)), Duration: time.Hour,
		Displays: map[uuid.UUID]string{uuid.New(): "Tue, Mar 3 at 8:00 AM PST"}}

	assert.True(t, a.Matches(b))
	assert.False(t, a.Matches(TimeSlot{Start: start, Duration: 30 * time.Minute}))
}
