package profile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harborchat/harbor/internal/chat/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockProfileRepository struct {
	mock.Mock
}

func (m *mockProfileRepository) Save(ctx context.Context, profile *domain.UserProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

func (m *mockProfileRepository) FindByID(ctx context.Context, userID uuid.UUID) (*domain.UserProfile, error) {
	args := m.Called(ctx, userID)
	if p := args.Get(0); p != nil {
		return p.(*domain.UserProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

// memoryCache is a map-backed Cache with injectable failures.
type memoryCache struct {
	entries map[string]string
	getErr  error
	setErr  error
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]string{}}
}

func (c *memoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	if c.getErr != nil {
		return "", false, c.getErr
	}
	value, ok := c.entries[key]
	return value, ok, nil
}

func (c *memoryCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.sets++
	c.entries[key] = value
	return nil
}

func TestStore_Timezone(t *testing.T) {
	userID := uuid.New()
	repo := new(mockProfileRepository)
	repo.On("FindByID", mock.Anything, userID).
		Return(domain.NewUserProfile(userID, "Alice", "Europe/Berlin"), nil)

	store := NewStore(repo)
	zone, err := store.Timezone(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", zone)
}

func TestStore_Timezone_NoProfile(t *testing.T) {
	repo := new(mockProfileRepository)
	repo.On("FindByID", mock.Anything, mock.Anything).Return(nil, nil)

	store := NewStore(repo)
	zone, err := store.Timezone(context.Background(), uuid.New())

	require.NoError(t, err)
	assert.Empty(t, zone)
}

func TestCachedStore_MissThenHit(t *testing.T) {
	userID := uuid.New()
	repo := new(mockProfileRepository)
	repo.On("FindByID", mock.Anything, userID).
		Return(domain.NewUserProfile(userID, "Alice", "Asia/Tokyo"), nil).Once()

	cache := newMemoryCache()
	store := NewCachedStore(NewStore(repo), cache, time.Hour, nil)

	zone, err := store.Timezone(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", zone)

	// Second lookup is served from the cache; the repo mock allows one call
	zone, err = store.Timezone(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", zone)

	repo.AssertNumberOfCalls(t, "FindByID", 1)
}

func TestCachedStore_CachesEmptyZone(t *testing.T) {
	userID := uuid.New()
	repo := new(mockProfileRepository)
	repo.On("FindByID", mock.Anything, userID).Return(nil, nil).Once()

	cache := newMemoryCache()
	store := NewCachedStore(NewStore(repo), cache, time.Hour, nil)

	for i := 0; i < 3; i++ {
		zone, err := store.Timezone(context.Background(), userID)
		require.NoError(t, err)
		assert.Empty(t, zone)
	}
	repo.AssertNumberOfCalls(t, "FindByID", 1)
}

func TestCachedStore_CacheFailureDegradesToStore(t *testing.T) {
	userID := uuid.New()
	repo := new(mockProfileRepository)
	repo.On("FindByID", mock.Anything, userID).
		Return(domain.NewUserProfile(userID, "Alice", "Europe/Berlin"), nil)

	cache := newMemoryCache()
	cache.getErr = errors.New("connection refused")
	cache.setErr = errors.New("connection refused")

	store := NewCachedStore(NewStore(repo), cache, time.Hour, nil)
	zone, err := store.Timezone(context.Background(), userID)

	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", zone)
}

func TestCachedStore_StoreFailurePropagates(t *testing.T) {
	repo := new(mockProfileRepository)
	repo.On("FindByID", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	store := NewCachedStore(NewStore(repo), newMemoryCache(), time.Hour, nil)
	_, err := store.Timezone(context.Background(), uuid.New())

	require.Error(t, err)
}
