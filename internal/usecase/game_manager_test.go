package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/tictactoe-bot/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
	"github.com/rocketscienceinc/tictactoe-bot/internal/repository"
	"github.com/rocketscienceinc/tictactoe-bot/internal/tictactoe"
)

var errRedisDown = errors.New("redis down")

type mockSessionRepo struct {
	mock.Mock
}

func (that *mockSessionRepo) Get(ctx context.Context, key string) (*entity.Game, error) {
	args := that.Called(ctx, key)
	game, _ := args.Get(0).(*entity.Game)
	return game, args.Error(1)
}

func (that *mockSessionRepo) GetOrCreate(ctx context.Context, key string, create func() *entity.Game) (*entity.Game, bool, error) {
	args := that.Called(ctx, key, create)
	game, _ := args.Get(0).(*entity.Game)
	return game, args.Bool(1), args.Error(2)
}

func (that *mockSessionRepo) Replace(ctx context.Context, key string, game *entity.Game) error {
	return that.Called(ctx, key, game).Error(0)
}

func (that *mockSessionRepo) Delete(ctx context.Context, key string) error {
	return that.Called(ctx, key).Error(0)
}

func (that *mockSessionRepo) Update(ctx context.Context, key string, fn func(game *entity.Game) error) (*entity.Game, error) {
	args := that.Called(ctx, key, fn)
	game, _ := args.Get(0).(*entity.Game)
	return game, args.Error(1)
}

type seqRandomizer struct {
	value int
}

func (that seqRandomizer) IntN(n int) int {
	return that.value % n
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestManager() *GameManager {
	sessions := repository.NewMemorySessionRepository(repository.Expiry{})
	manager := NewGameManager(testLogger(), sessions, tictactoe.NewGameController(seqRandomizer{value: 1}))

	ids := 0
	manager.newID = func() string {
		ids++
		return "game-" + strconv.Itoa(ids)
	}

	return manager
}

func TestGameManager_NewGame(t *testing.T) {
	ctx := context.Background()

	t.Run("Stores a new classic game", func(t *testing.T) {
		manager := newTestManager()

		// When: a classic game is requested
		game, err := manager.NewGame(ctx, "user-1", entity.ModeClassic)

		// Then: it is stored under the session key
		require.NoError(t, err)
		assert.Equal(t, "game-1", game.ID)

		stored, err := manager.GetGame(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, game.ID, stored.ID)
		assert.Equal(t, entity.PlayerX, stored.HumanSide)
	})

	t.Run("Replaces a game in progress", func(t *testing.T) {
		manager := newTestManager()
		_, err := manager.NewGame(ctx, "user-1", entity.ModeClassic)
		require.NoError(t, err)
		_, err = manager.MakeTurn(ctx, "user-1", entity.Position{Row: 1, Col: 1})
		require.NoError(t, err)

		game, err := manager.NewGame(ctx, "user-1", entity.ModeRandom)

		require.NoError(t, err)
		assert.Equal(t, entity.Board{}, game.Board)
		assert.Equal(t, entity.ModeRandom, game.Mode)
		assert.Equal(t, entity.PlayerO, game.HumanSide)
	})

	t.Run("Returns storage errors", func(t *testing.T) {
		sessions := &mockSessionRepo{}
		sessions.On("Replace", mock.Anything, "user-1", mock.AnythingOfType("*entity.Game")).Return(errRedisDown).Once()
		manager := NewGameManager(testLogger(), sessions, tictactoe.NewGameController(seqRandomizer{}))

		_, err := manager.NewGame(ctx, "user-1", entity.ModeClassic)

		require.ErrorIs(t, err, errRedisDown)
		sessions.AssertExpectations(t)
	})
}

func TestGameManager_RestartGame(t *testing.T) {
	ctx := context.Background()

	t.Run("Keeps the previous mode", func(t *testing.T) {
		manager := newTestManager()
		_, err := manager.NewGame(ctx, "user-1", entity.ModeRandom)
		require.NoError(t, err)

		game, err := manager.RestartGame(ctx, "user-1")

		require.NoError(t, err)
		assert.Equal(t, entity.ModeRandom, game.Mode)
		assert.Equal(t, "game-2", game.ID)
	})

	t.Run("Defaults to classic", func(t *testing.T) {
		manager := newTestManager()

		game, err := manager.RestartGame(ctx, "user-1")

		require.NoError(t, err)
		assert.Equal(t, entity.ModeClassic, game.Mode)
	})

	t.Run("Does not hide storage errors", func(t *testing.T) {
		sessions := &mockSessionRepo{}
		sessions.On("Get", mock.Anything, "user-1").Return(nil, errRedisDown).Once()
		manager := NewGameManager(testLogger(), sessions, tictactoe.NewGameController(seqRandomizer{}))

		_, err := manager.RestartGame(ctx, "user-1")

		require.ErrorIs(t, err, errRedisDown)
		sessions.AssertNotCalled(t, "Replace", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestGameManager_MakeTurn(t *testing.T) {
	ctx := context.Background()

	t.Run("Human move and bot answer are stored together", func(t *testing.T) {
		// Given: a classic game
		manager := newTestManager()
		_, err := manager.NewGame(ctx, "user-1", entity.ModeClassic)
		require.NoError(t, err)

		// When: the human takes the centre
		game, err := manager.MakeTurn(ctx, "user-1", entity.Position{Row: 1, Col: 1})

		// Then: both marks are stored
		require.NoError(t, err)
		stored, err := manager.GetGame(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, game.Board, stored.Board)
		assert.Equal(t, 1, stored.Board.Count(entity.PlayerX))
		assert.Equal(t, 1, stored.Board.Count(entity.PlayerO))
	})

	t.Run("Move without a game starts a classic one", func(t *testing.T) {
		manager := newTestManager()

		game, err := manager.MakeTurn(ctx, "user-1", entity.Position{Row: 0, Col: 0})

		require.NoError(t, err)
		assert.Equal(t, entity.ModeClassic, game.Mode)
		assert.Equal(t, entity.PlayerX, game.Board[0][0])
	})

	t.Run("Illegal move returns the unchanged game", func(t *testing.T) {
		// Given: a game where the centre is taken
		manager := newTestManager()
		_, err := manager.NewGame(ctx, "user-1", entity.ModeClassic)
		require.NoError(t, err)
		before, err := manager.MakeTurn(ctx, "user-1", entity.Position{Row: 1, Col: 1})
		require.NoError(t, err)

		// When: the centre is clicked again
		game, err := manager.MakeTurn(ctx, "user-1", entity.Position{Row: 1, Col: 1})

		// Then: ErrIllegalMove comes back with the stored game
		require.ErrorIs(t, err, apperror.ErrIllegalMove)
		require.NotNil(t, game)
		assert.Equal(t, before.Board, game.Board)
		assert.Equal(t, before.UpdatedAt, game.UpdatedAt)
	})

	t.Run("Move after the end reports game over", func(t *testing.T) {
		// Given: a finished game
		manager := newTestManager()
		finished := entity.NewGame("done", entity.ModeClassic, entity.PlayerX)
		finished.Board = entity.Board{
			{entity.PlayerO, entity.PlayerO, entity.PlayerO},
			{entity.PlayerX, entity.PlayerX, entity.EmptyCell},
			{entity.PlayerX, entity.EmptyCell, entity.EmptyCell},
		}
		require.NoError(t, manager.sessions.Replace(ctx, "user-1", finished))

		// When: another move arrives
		game, err := manager.MakeTurn(ctx, "user-1", entity.Position{Row: 2, Col: 2})

		// Then: ErrGameOver with the finished game
		require.ErrorIs(t, err, apperror.ErrGameOver)
		assert.Equal(t, entity.ResultBot, game.Result())
	})

	t.Run("Storage failure is wrapped", func(t *testing.T) {
		sessions := &mockSessionRepo{}
		sessions.On("GetOrCreate", mock.Anything, "user-1", mock.Anything).Return(entity.NewGame("g", entity.ModeClassic, entity.PlayerX), false, nil).Once()
		sessions.On("Update", mock.Anything, "user-1", mock.Anything).Return(nil, errRedisDown).Once()
		manager := NewGameManager(testLogger(), sessions, tictactoe.NewGameController(seqRandomizer{}))

		game, err := manager.MakeTurn(ctx, "user-1", entity.Position{})

		require.ErrorIs(t, err, errRedisDown)
		assert.Nil(t, game)
		sessions.AssertExpectations(t)
	})

	t.Run("A full game never ends with a human win", func(t *testing.T) {
		manager := newTestManager()
		game, err := manager.NewGame(ctx, "user-1", entity.ModeClassic)
		require.NoError(t, err)

		for !game.IsFinished() {
			moves := game.Board.AvailableMoves()
			game, err = manager.MakeTurn(ctx, "user-1", moves[len(moves)-1])
			require.NoError(t, err)
		}

		assert.NotEqual(t, entity.ResultHuman, game.Result())
	})
}

func TestGameManager_EndGame(t *testing.T) {
	ctx := context.Background()
	manager := newTestManager()
	_, err := manager.NewGame(ctx, "user-1", entity.ModeClassic)
	require.NoError(t, err)

	require.NoError(t, manager.EndGame(ctx, "user-1"))

	_, err = manager.GetGame(ctx, "user-1")
	require.ErrorIs(t, err, apperror.ErrGameNotFound)
}
