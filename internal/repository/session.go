package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rocketscienceinc/tictactoe-bot/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
)

const maxTxRetries = 16

var ErrTooManyConflicts = errors.New("session is being modified concurrently")

// SessionRepository maps an opaque session key to at most one game.
//
// Update is the only way to mutate a stored game: fn runs on a private copy, the
// copy is stored only when fn returns nil, and calls for the same key never
// interleave. When fn fails, the stored game is returned alongside fn's error.
type SessionRepository interface {
	Get(ctx context.Context, key string) (*entity.Game, error)
	GetOrCreate(ctx context.Context, key string, create func() *entity.Game) (*entity.Game, bool, error)
	Replace(ctx context.Context, key string, game *entity.Game) error
	Delete(ctx context.Context, key string) error
	Update(ctx context.Context, key string, fn func(game *entity.Game) error) (*entity.Game, error)
}

// Expiry decides how long a session lives. Zero durations never expire.
type Expiry struct {
	TTL         time.Duration
	FinishedTTL time.Duration
}

// For returns the lifetime of game: finished games are kept only for FinishedTTL.
func (that Expiry) For(game *entity.Game) time.Duration {
	if game.IsFinished() && that.FinishedTTL > 0 {
		return that.FinishedTTL
	}

	return that.TTL
}

type redisSessions struct {
	client *redis.Client
	expiry Expiry
}

func NewRedisSessionRepository(client *redis.Client, expiry Expiry) SessionRepository {
	return &redisSessions{
		client: client,
		expiry: expiry,
	}
}

func sessionKey(key string) string {
	return "game:" + key
}

func (that *redisSessions) Get(ctx context.Context, key string) (*entity.Game, error) {
	response, err := that.client.Get(ctx, sessionKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.ErrGameNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return decodeGame(response)
}

func (that *redisSessions) GetOrCreate(ctx context.Context, key string, create func() *entity.Game) (*entity.Game, bool, error) {
	for range maxTxRetries {
		game := create()

		gameJSON, err := json.Marshal(game)
		if err != nil {
			return nil, false, fmt.Errorf("could not marshal game: %w", err)
		}

		created, err := that.client.SetNX(ctx, sessionKey(key), gameJSON, that.expiry.For(game)).Result()
		if err != nil {
			return nil, false, fmt.Errorf("failed to create game: %w", err)
		}

		if created {
			return game, true, nil
		}

		existing, err := that.Get(ctx, key)
		if errors.Is(err, apperror.ErrGameNotFound) {
			// expired between SETNX and GET
			continue
		}

		if err != nil {
			return nil, false, err
		}

		return existing, false, nil
	}

	return nil, false, ErrTooManyConflicts
}

func (that *redisSessions) Replace(ctx context.Context, key string, game *entity.Game) error {
	gameJSON, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("could not marshal game: %w", err)
	}

	if err = that.client.Set(ctx, sessionKey(key), gameJSON, that.expiry.For(game)).Err(); err != nil {
		return fmt.Errorf("failed to set game: %w", err)
	}

	return nil
}

func (that *redisSessions) Delete(ctx context.Context, key string) error {
	if err := that.client.Del(ctx, sessionKey(key)).Err(); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}

	return nil
}

// Update runs fn under WATCH and writes the result in MULTI/EXEC. A concurrent
// write aborts the transaction and the whole read-modify-write is retried.
func (that *redisSessions) Update(ctx context.Context, key string, fn func(game *entity.Game) error) (*entity.Game, error) {
	gameKey := sessionKey(key)

	for range maxTxRetries {
		var result *entity.Game

		err := that.client.Watch(ctx, func(tx *redis.Tx) error {
			response, err := tx.Get(ctx, gameKey).Bytes()
			if errors.Is(err, redis.Nil) {
				return apperror.ErrGameNotFound
			}

			if err != nil {
				return fmt.Errorf("failed to get game: %w", err)
			}

			stored, err := decodeGame(response)
			if err != nil {
				return err
			}

			next := stored.Clone()
			if err = fn(next); err != nil {
				result = stored
				return err
			}

			gameJSON, err := json.Marshal(next)
			if err != nil {
				return fmt.Errorf("could not marshal game: %w", err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, gameKey, gameJSON, that.expiry.For(next))
				return nil
			})
			if err != nil {
				return err
			}

			result = next

			return nil
		}, gameKey)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}

		return result, err
	}

	return nil, ErrTooManyConflicts
}

func decodeGame(data []byte) (*entity.Game, error) {
	var game entity.Game
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}

	return &game, nil
}
