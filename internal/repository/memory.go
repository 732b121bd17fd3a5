package repository

import (
	"context"
	"sync"
	"time"

	"github.com/rocketscienceinc/tictactoe-bot/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
)

type memoryEntry struct {
	mu        sync.Mutex
	refs      int
	game      *entity.Game
	expiresAt time.Time
}

// MemorySessions keeps sessions in process memory. Every key has its own lock,
// held for the whole of an operation on that key.
type MemorySessions struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	expiry  Expiry
	now     func() time.Time
}

func NewMemorySessionRepository(expiry Expiry) *MemorySessions {
	return &MemorySessions{
		entries: make(map[string]*memoryEntry),
		expiry:  expiry,
		now:     time.Now,
	}
}

func (that *MemorySessions) Get(_ context.Context, key string) (*entity.Game, error) {
	entry := that.acquire(key)
	defer that.release(key, entry)

	game := that.load(entry)
	if game == nil {
		return nil, apperror.ErrGameNotFound
	}

	return game.Clone(), nil
}

func (that *MemorySessions) GetOrCreate(_ context.Context, key string, create func() *entity.Game) (*entity.Game, bool, error) {
	entry := that.acquire(key)
	defer that.release(key, entry)

	if game := that.load(entry); game != nil {
		return game.Clone(), false, nil
	}

	game := create()
	that.store(entry, game)

	return game.Clone(), true, nil
}

func (that *MemorySessions) Replace(_ context.Context, key string, game *entity.Game) error {
	entry := that.acquire(key)
	defer that.release(key, entry)

	that.store(entry, game)

	return nil
}

func (that *MemorySessions) Delete(_ context.Context, key string) error {
	entry := that.acquire(key)
	defer that.release(key, entry)

	entry.game = nil

	return nil
}

func (that *MemorySessions) Update(_ context.Context, key string, fn func(game *entity.Game) error) (*entity.Game, error) {
	entry := that.acquire(key)
	defer that.release(key, entry)

	stored := that.load(entry)
	if stored == nil {
		return nil, apperror.ErrGameNotFound
	}

	next := stored.Clone()
	if err := fn(next); err != nil {
		return stored.Clone(), err
	}

	that.store(entry, next)

	return next.Clone(), nil
}

// Cleanup drops expired sessions nobody is working on and returns how many were removed.
func (that *MemorySessions) Cleanup() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	now := that.now()
	removed := 0

	for key, entry := range that.entries {
		if entry.refs > 0 {
			continue
		}

		if entry.game == nil || expired(entry, now) {
			delete(that.entries, key)
			removed++
		}
	}

	return removed
}

// Len returns the number of tracked keys, including expired ones not yet cleaned up.
func (that *MemorySessions) Len() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.entries)
}

func (that *MemorySessions) acquire(key string) *memoryEntry {
	that.mu.Lock()
	entry, ok := that.entries[key]
	if !ok {
		entry = &memoryEntry{}
		that.entries[key] = entry
	}
	entry.refs++
	that.mu.Unlock()

	entry.mu.Lock()

	return entry
}

func (that *MemorySessions) release(key string, entry *memoryEntry) {
	entry.mu.Unlock()

	that.mu.Lock()
	defer that.mu.Unlock()

	entry.refs--
	if entry.refs == 0 && entry.game == nil {
		delete(that.entries, key)
	}
}

func (that *MemorySessions) load(entry *memoryEntry) *entity.Game {
	if entry.game != nil && expired(entry, that.now()) {
		entry.game = nil
	}

	return entry.game
}

func (that *MemorySessions) store(entry *memoryEntry, game *entity.Game) {
	entry.game = game.Clone()
	entry.expiresAt = time.Time{}

	if ttl := that.expiry.For(game); ttl > 0 {
		entry.expiresAt = that.now().Add(ttl)
	}
}

func expired(entry *memoryEntry, now time.Time) bool {
	return !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt)
}
