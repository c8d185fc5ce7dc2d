package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/table-booking/internal/model"
)

func TestMemorySettingsStoreVersioning(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySettingsStore(model.DefaultSettings())

	cur, err := s.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cur.Version != 1 {
		t.Fatalf("initial version = %d", cur.Version)
	}

	next := cur.Clone()
	next.Capacity[model.SourceDesktop] = 80
	stored, err := s.Put(ctx, next)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Version != 2 || stored.Capacity[model.SourceDesktop] != 80 || stored.UpdatedAt.IsZero() {
		t.Fatalf("unexpected stored settings %+v", stored)
	}

	// A second writer still holding version 1 loses.
	stale := cur.Clone()
	stale.Capacity[model.SourceWebsite] = 10
	if _, err := s.Put(ctx, stale); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	got, _ := s.Get(ctx)
	if got.Capacity[model.SourceWebsite] != 50 {
		t.Fatal("stale write was applied")
	}
}

func TestMemorySettingsStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySettingsStore(model.DefaultSettings())
	a, _ := s.Get(ctx)
	a.Capacity[model.SourceWebsite] = 1
	b, _ := s.Get(ctx)
	if b.Capacity[model.SourceWebsite] != 50 {
		t.Fatal("Get returned shared maps")
	}
}

func newRedisSettingsStore(t *testing.T) (*RedisSettingsStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisSettingsStore(rdb, "", model.DefaultSettings()), mr
}

func TestRedisSettingsStoreVersioning(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisSettingsStore(t)

	cur, err := s.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cur.Version != 1 || cur.Capacity[model.SourceWebsite] != 50 {
		t.Fatalf("expected defaults before the first write, got %+v", cur)
	}
	if mr.Exists("booking:settings") {
		t.Fatal("Get must not write the defaults")
	}

	next := cur.Clone()
	next.Capacity[model.SourceDesktop] = 80
	stored, err := s.Put(ctx, next)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Version != 2 || stored.Capacity[model.SourceDesktop] != 80 {
		t.Fatalf("unexpected stored settings %+v", stored)
	}

	got, err := s.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if got.Version != 2 || got.Capacity[model.SourceDesktop] != 80 {
		t.Fatalf("Get after Put = %+v", got)
	}

	stale := cur.Clone()
	stale.Capacity[model.SourceWebsite] = 10
	if _, err := s.Put(ctx, stale); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	got, _ = s.Get(ctx)
	if got.Version != 2 || got.Capacity[model.SourceWebsite] != 50 {
		t.Fatal("stale write was applied")
	}
}

func TestRedisSettingsStoreConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	s, _ := newRedisSettingsStore(t)
	cur, _ := s.Get(ctx)

	const writers = 8
	results := make(chan error, writers)
	for i := 0; i < writers; i++ {
		go func(i int) {
			next := cur.Clone()
			next.Capacity[model.SourcePhone] = 10 + i
			_, err := s.Put(ctx, next)
			results <- err
		}(i)
	}
	won := 0
	for i := 0; i < writers; i++ {
		switch err := <-results; {
		case err == nil:
			won++
		case errors.Is(err, ErrConflict):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 {
		t.Fatalf("%d writers won from the same version, want 1", won)
	}
	if got, _ := s.Get(ctx); got.Version != 2 {
		t.Fatalf("version = %d, want 2", got.Version)
	}
}

func TestRedisSettingsStoreCorruptDocument(t *testing.T) {
	s, mr := newRedisSettingsStore(t)
	if err := mr.Set("booking:settings", "{not json"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(context.Background()); err == nil {
		t.Fatal("expected a decode error")
	}
}
