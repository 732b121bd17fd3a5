package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-bot/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (that *fakeClock) Now() time.Time {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.now
}

func (that *fakeClock) Advance(d time.Duration) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.now = that.now.Add(d)
}

func newMemoryRepo(expiry Expiry) (*MemorySessions, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	repo := NewMemorySessionRepository(expiry)
	repo.now = clock.Now

	return repo, clock
}

func TestMemorySessionRepository(t *testing.T) {
	runSessionRepositoryTests(t, func(*testing.T) SessionRepository {
		repo, _ := newMemoryRepo(testExpiry)
		return repo
	})
}

func TestMemorySessionRepository_Expiry(t *testing.T) {
	t.Run("Live game expires after the TTL", func(t *testing.T) {
		ctx := context.Background()
		repo, clock := newMemoryRepo(testExpiry)
		require.NoError(t, repo.Replace(ctx, "user-1", entity.NewGame("g", entity.ModeClassic, entity.PlayerX)))

		clock.Advance(23 * time.Hour)
		_, err := repo.Get(ctx, "user-1")
		require.NoError(t, err)

		clock.Advance(time.Hour)
		_, err = repo.Get(ctx, "user-1")
		require.ErrorIs(t, err, apperror.ErrGameNotFound)
	})

	t.Run("Finished game expires after the finished TTL", func(t *testing.T) {
		ctx := context.Background()
		repo, clock := newMemoryRepo(testExpiry)
		require.NoError(t, repo.Replace(ctx, "user-1", finishedGame("g")))

		clock.Advance(59 * time.Minute)
		game, err := repo.Get(ctx, "user-1")
		require.NoError(t, err)
		assert.True(t, game.IsFinished())

		clock.Advance(time.Minute)
		_, err = repo.Get(ctx, "user-1")
		require.ErrorIs(t, err, apperror.ErrGameNotFound)
	})

	t.Run("GetOrCreate replaces an expired game", func(t *testing.T) {
		ctx := context.Background()
		repo, clock := newMemoryRepo(testExpiry)
		require.NoError(t, repo.Replace(ctx, "user-1", finishedGame("old")))
		clock.Advance(2 * time.Hour)

		game, created, err := repo.GetOrCreate(ctx, "user-1", func() *entity.Game {
			return entity.NewGame("new", entity.ModeClassic, entity.PlayerX)
		})

		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "new", game.ID)
	})

	t.Run("Zero TTL never expires", func(t *testing.T) {
		ctx := context.Background()
		repo, clock := newMemoryRepo(Expiry{})
		require.NoError(t, repo.Replace(ctx, "user-1", finishedGame("g")))

		clock.Advance(24 * 365 * time.Hour)

		_, err := repo.Get(ctx, "user-1")
		require.NoError(t, err)
	})
}

func TestMemorySessionRepository_Cleanup(t *testing.T) {
	// Given: one expired and one live session
	ctx := context.Background()
	repo, clock := newMemoryRepo(testExpiry)
	require.NoError(t, repo.Replace(ctx, "done", finishedGame("a")))
	require.NoError(t, repo.Replace(ctx, "live", entity.NewGame("b", entity.ModeClassic, entity.PlayerX)))
	clock.Advance(2 * time.Hour)

	// When: Cleanup runs
	removed := repo.Cleanup()

	// Then: only the expired session is gone
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, repo.Len())
	_, err := repo.Get(ctx, "live")
	require.NoError(t, err)
}

func TestMemorySessionRepository_Isolation(t *testing.T) {
	// Given: a stored game
	ctx := context.Background()
	repo, _ := newMemoryRepo(testExpiry)
	original := entity.NewGame("g", entity.ModeClassic, entity.PlayerX)
	require.NoError(t, repo.Replace(ctx, "user-1", original))

	// When: the caller's copies are modified
	original.Board[0][0] = entity.PlayerX
	fetched, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	fetched.Board[2][2] = entity.PlayerO

	// Then: the stored game does not change
	again, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, entity.Board{}, again.Board)
}

func TestMemorySessionRepository_DeletedKeysAreForgotten(t *testing.T) {
	ctx := context.Background()
	repo, _ := newMemoryRepo(testExpiry)
	require.NoError(t, repo.Replace(ctx, "user-1", entity.NewGame("g", entity.ModeClassic, entity.PlayerX)))

	require.NoError(t, repo.Delete(ctx, "user-1"))
	_, _ = repo.Get(ctx, "user-2")

	assert.Zero(t, repo.Len())
}

func TestMemorySessionRepository_SerializesUpdates(t *testing.T) {
	// Given: a stored game and many writers
	ctx := context.Background()
	repo, _ := newMemoryRepo(testExpiry)
	require.NoError(t, repo.Replace(ctx, "user-1", entity.NewGame("", entity.ModeClassic, entity.PlayerX)))

	var (
		wg     sync.WaitGroup
		inside int
		mu     sync.Mutex
		peak   int
	)

	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Update(ctx, "user-1", func(game *entity.Game) error {
				mu.Lock()
				inside++
				peak = max(peak, inside)
				mu.Unlock()

				time.Sleep(time.Millisecond)
				game.ID += "."

				mu.Lock()
				inside--
				mu.Unlock()

				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Then: at most one update ran at a time and all of them landed
	game, err := repo.Get(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 1, peak)
	assert.Len(t, game.ID, 16)
}
