package memory

import (
	"context"
	"sort"
	"sync"

	"solana-migration-sniper/internal/domain"
	"solana-migration-sniper/internal/storage"
)

// MigrationEventStore is an in-memory implementation of storage.MigrationEventStore.
type MigrationEventStore struct {
	mu   sync.RWMutex
	data map[string]*domain.MigrationEvent // keyed by initialize signature
}

// NewMigrationEventStore creates a new in-memory migration event store.
func NewMigrationEventStore() *MigrationEventStore {
	return &MigrationEventStore{
		data: make(map[string]*domain.MigrationEvent),
	}
}

var _ storage.MigrationEventStore = (*MigrationEventStore)(nil)

// Insert adds a new event. Returns ErrDuplicateKey if the initialize
// signature was recorded before.
func (s *MigrationEventStore) Insert(_ context.Context, e *domain.MigrationEvent) error {
	if e == nil || e.InitializeSignature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.InitializeSignature]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *e
	s.data[e.InitializeSignature] = &copy
	return nil
}

// GetByMint retrieves all events for a mint, ordered by detected_at ASC.
func (s *MigrationEventStore) GetByMint(_ context.Context, mint string) ([]*domain.MigrationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MigrationEvent
	for _, e := range s.data {
		if e.Mint == mint {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].DetectedAt < result[j].DetectedAt
	})

	return result, nil
}

// GetByTimeRange retrieves events detected within [start, end] (inclusive).
func (s *MigrationEventStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.MigrationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.MigrationEvent
	for _, e := range s.data {
		if e.DetectedAt >= start && e.DetectedAt <= end {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].DetectedAt < result[j].DetectedAt
	})

	return result, nil
}
