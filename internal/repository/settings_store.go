package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/table-booking/internal/model"
)

// Settings writes are single-writer-at-a-time: Put succeeds only when the
// incoming Version equals the stored one, and the stored version is then
// incremented.  A stale writer receives ErrConflict and must re-read.

// MemorySettingsStore keeps the settings document in process memory.
type MemorySettingsStore struct {
	mu       sync.RWMutex
	settings model.Settings
}

// NewMemorySettingsStore starts from initial.
func NewMemorySettingsStore(initial model.Settings) *MemorySettingsStore {
	return &MemorySettingsStore{settings: initial.Clone()}
}

func (s *MemorySettingsStore) Get(ctx context.Context) (model.Settings, error) {
	if err := ctx.Err(); err != nil {
		return model.Settings{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Clone(), nil
}

func (s *MemorySettingsStore) Put(ctx context.Context, next model.Settings) (model.Settings, error) {
	if err := ctx.Err(); err != nil {
		return model.Settings{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if next.Version != s.settings.Version {
		return model.Settings{}, ErrConflict
	}
	stored := next.Clone()
	stored.Version = s.settings.Version + 1
	stored.UpdatedAt = time.Now().UTC()
	s.settings = stored
	return stored.Clone(), nil
}

// RedisSettingsStore keeps the settings document as JSON under one key so
// every instance of the service reads the same opening hours and caps.
// Put uses WATCH/MULTI so the version check and the write are atomic.
type RedisSettingsStore struct {
	rdb      *redis.Client
	key      string
	defaults model.Settings
}

// NewRedisSettingsStore returns a store that falls back to defaults until
// the first successful Put.
func NewRedisSettingsStore(rdb *redis.Client, key string, defaults model.Settings) *RedisSettingsStore {
	if key == "" {
		key = "booking:settings"
	}
	return &RedisSettingsStore{rdb: rdb, key: key, defaults: defaults.Clone()}
}

func (s *RedisSettingsStore) Get(ctx context.Context) (model.Settings, error) {
	return s.read(ctx, s.rdb)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisSettingsStore) read(ctx context.Context, cmd getter) (model.Settings, error) {
	raw, err := cmd.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return s.defaults.Clone(), nil
	}
	if err != nil {
		return model.Settings{}, fmt.Errorf("read settings: %w", err)
	}
	var out model.Settings
	if err := json.Unmarshal(raw, &out); err != nil {
		return model.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return out, nil
}

func (s *RedisSettingsStore) Put(ctx context.Context, next model.Settings) (model.Settings, error) {
	var stored model.Settings
	txf := func(tx *redis.Tx) error {
		current, err := s.read(ctx, tx)
		if err != nil {
			return err
		}
		if next.Version != current.Version {
			return ErrConflict
		}
		stored = next.Clone()
		stored.Version = current.Version + 1
		stored.UpdatedAt = time.Now().UTC()
		payload, err := json.Marshal(stored)
		if err != nil {
			return fmt.Errorf("encode settings: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, s.key, payload, 0)
			return nil
		})
		return err
	}
	err := s.rdb.Watch(ctx, txf, s.key)
	if errors.Is(err, redis.TxFailedErr) {
		return model.Settings{}, ErrConflict
	}
	if err != nil {
		return model.Settings{}, err
	}
	return stored, nil
}
