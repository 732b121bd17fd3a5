package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/tictactoe-bot/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
)

type sessionRepo interface {
	Get(ctx context.Context, key string) (*entity.Game, error)
	GetOrCreate(ctx context.Context, key string, create func() *entity.Game) (*entity.Game, bool, error)
	Replace(ctx context.Context, key string, game *entity.Game) error
	Delete(ctx context.Context, key string) error
	Update(ctx context.Context, key string, fn func(game *entity.Game) error) (*entity.Game, error)
}

type gameController interface {
	NewGame(id string, mode entity.Mode) *entity.Game
	MakeTurn(game *entity.Game, pos entity.Position) error
}

// GameManager is the entry point for every transport: it binds session keys to
// games and runs moves through the session store.
type GameManager struct {
	logger     *slog.Logger
	sessions   sessionRepo
	controller gameController
	newID      func() string
}

func NewGameManager(logger *slog.Logger, sessions sessionRepo, controller gameController) *GameManager {
	return &GameManager{
		logger:     logger.With("component", "game_manager"),
		sessions:   sessions,
		controller: controller,
		newID:      uuid.NewString,
	}
}

// NewGame starts a fresh game for key, replacing whatever was stored.
func (that *GameManager) NewGame(ctx context.Context, key string, mode entity.Mode) (*entity.Game, error) {
	game := that.controller.NewGame(that.newID(), mode)

	if err := that.sessions.Replace(ctx, key, game); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	that.logger.Info("game created", "session", key, "game_id", game.ID, "mode", mode.String(), "human_side", game.HumanSide.String())

	return game, nil
}

// RestartGame starts a new game in the mode of the previous one, classic if there was none.
func (that *GameManager) RestartGame(ctx context.Context, key string) (*entity.Game, error) {
	mode := entity.ModeClassic

	previous, err := that.sessions.Get(ctx, key)
	switch {
	case err == nil:
		mode = previous.Mode
	case !errors.Is(err, apperror.ErrGameNotFound):
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return that.NewGame(ctx, key, mode)
}

func (that *GameManager) GetGame(ctx context.Context, key string) (*entity.Game, error) {
	game, err := that.sessions.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

// GetOrCreateGame returns the stored game or starts one in mode.
func (that *GameManager) GetOrCreateGame(ctx context.Context, key string, mode entity.Mode) (*entity.Game, error) {
	game, created, err := that.sessions.GetOrCreate(ctx, key, func() *entity.Game {
		return that.controller.NewGame(that.newID(), mode)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get or create game: %w", err)
	}

	if created {
		that.logger.Info("game created", "session", key, "game_id", game.ID, "mode", mode.String())
	}

	return game, nil
}

// MakeTurn plays the human move at pos and the bot's answer. A move for a key
// without a game starts a classic one first.
//
// Rule violations (ErrIllegalMove, ErrGameOver, ErrNotYourTurn) come back together
// with the unchanged stored game so the caller can show it again.
func (that *GameManager) MakeTurn(ctx context.Context, key string, pos entity.Position) (*entity.Game, error) {
	log := that.logger.With("method", "MakeTurn", "session", key)

	if _, err := that.GetOrCreateGame(ctx, key, entity.ModeClassic); err != nil {
		return nil, err
	}

	game, err := that.sessions.Update(ctx, key, func(game *entity.Game) error {
		return that.controller.MakeTurn(game, pos)
	})
	if err != nil {
		if isRuleViolation(err) {
			log.Debug("turn rejected", "position", pos.String(), "error", err)
			return game, err
		}

		return nil, fmt.Errorf("failed to make turn: %w", err)
	}

	if game.IsFinished() {
		log.Info("game finished", "game_id", game.ID, "status", game.Status().String(), "result", string(game.Result()))
	}

	return game, nil
}

// EndGame forgets the game stored for key.
func (that *GameManager) EndGame(ctx context.Context, key string) error {
	if err := that.sessions.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	that.logger.Info("game deleted", "session", key)

	return nil
}

func isRuleViolation(err error) bool {
	return errors.Is(err, apperror.ErrIllegalMove) ||
		errors.Is(err, apperror.ErrGameOver) ||
		errors.Is(err, apperror.ErrNotYourTurn)
}
