package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/iliyamo/table-booking/internal/model"
)

// MemoryReservationStore keeps reservations in process memory.  It backs
// STORE_DRIVER=memory for local runs and the service and handler tests.
type MemoryReservationStore struct {
	mu    sync.RWMutex
	items map[string]*model.Reservation
}

// NewMemoryReservationStore returns an empty store.
func NewMemoryReservationStore() *MemoryReservationStore {
	return &MemoryReservationStore{items: make(map[string]*model.Reservation)}
}

func (s *MemoryReservationStore) Find(ctx context.Context, f ReservationFilter) ([]*model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Reservation, 0, len(s.items))
	for _, r := range s.items {
		if f.matches(r) {
			out = append(out, r.Clone())
		}
	}
	SortReservations(out)
	return out, nil
}

func (s *MemoryReservationStore) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (s *MemoryReservationStore) Insert(ctx context.Context, r *model.Reservation) error {
	if r == nil {
		return fmt.Errorf("reservation is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.items[r.ID]; exists {
		return fmt.Errorf("reservation %s already exists", r.ID)
	}
	s.items[r.ID] = r.Clone()
	return nil
}

func (s *MemoryReservationStore) UpdateByID(ctx context.Context, id string, r *model.Reservation) (*model.Reservation, error) {
	if r == nil {
		return nil, fmt.Errorf("reservation is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return nil, ErrNotFound
	}
	stored := r.Clone()
	stored.ID = id
	s.items[id] = stored
	return stored.Clone(), nil
}

// Ping always succeeds.
func (s *MemoryReservationStore) Ping(context.Context) error { return nil }
