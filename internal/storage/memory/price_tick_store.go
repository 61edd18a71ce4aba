package memory

import (
	"context"
	"sort"
	"sync"

	"solana-migration-sniper/internal/domain"
	"solana-migration-sniper/internal/storage"
)

// PriceTickStore is an in-memory implementation of storage.PriceTickStore.
type PriceTickStore struct {
	mu   sync.RWMutex
	data map[tickKey]*domain.PriceTick
}

type tickKey struct {
	mint        string
	timestampMs int64
}

// NewPriceTickStore creates a new in-memory price tick store.
func NewPriceTickStore() *PriceTickStore {
	return &PriceTickStore{
		data: make(map[tickKey]*domain.PriceTick),
	}
}

var _ storage.PriceTickStore = (*PriceTickStore)(nil)

// InsertBulk adds multiple ticks. Fails the entire batch on a duplicate
// (mint, timestamp_ms).
func (s *PriceTickStore) InsertBulk(_ context.Context, ticks []*domain.PriceTick) error {
	if len(ticks) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: check for duplicates (existing + intra-batch)
	batchKeys := make(map[tickKey]struct{}, len(ticks))
	for _, t := range ticks {
		if t == nil || t.Mint == "" {
			return storage.ErrInvalidInput
		}
		k := tickKey{t.Mint, t.TimestampMs}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[k]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[k] = struct{}{}
	}

	// Second pass: insert all
	for _, t := range ticks {
		copy := *t
		s.data[tickKey{t.Mint, t.TimestampMs}] = &copy
	}

	return nil
}

// GetByMint retrieves all ticks for a mint, ordered by timestamp ASC.
func (s *PriceTickStore) GetByMint(_ context.Context, mint string) ([]*domain.PriceTick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceTick
	for _, t := range s.data {
		if t.Mint == mint {
			copy := *t
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

// GetByTimeRange retrieves ticks for a mint within [start, end] (inclusive).
func (s *PriceTickStore) GetByTimeRange(_ context.Context, mint string, start, end int64) ([]*domain.PriceTick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PriceTick
	for _, t := range s.data {
		if t.Mint == mint && t.TimestampMs >= start && t.TimestampMs <= end {
			copy := *t
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}
