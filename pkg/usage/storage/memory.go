package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/RelientS/cursor-api/pkg/usage"
)

// MemoryStorage implements the usage.Storage interface using an
// in-memory map. Intended for tests and ephemeral deployments; records
// do not survive a restart.
type MemoryStorage struct {
	records map[string]*usage.Record
	mu      sync.RWMutex
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*usage.Record),
	}
}

// Store persists a usage record to memory.
func (s *MemoryStorage) Store(ctx context.Context, record *usage.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Copy so later caller mutations do not reach the store.
	recordCopy := *record
	s.records[record.ID] = &recordCopy

	return nil
}

// Query retrieves usage records matching the query filters, newest
// first.
func (s *MemoryStorage) Query(ctx context.Context, query *usage.Query) ([]*usage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*usage.Record
	for _, record := range s.records {
		if matchesQuery(record, query) {
			recordCopy := *record
			results = append(results, &recordCopy)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Timestamp.After(results[j].Timestamp)
	})

	start := query.Offset
	if start > len(results) {
		return []*usage.Record{}, nil
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}
	end := start + limit
	if end > len(results) {
		end = len(results)
	}

	return results[start:end], nil
}

// Count returns the number of usage records matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, query *usage.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, record := range s.records {
		if matchesQuery(record, query) {
			count++
		}
	}

	return count, nil
}

// Delete removes usage records matching the query filters.
func (s *MemoryStorage) Delete(ctx context.Context, query *usage.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	toDelete := []string{}
	for id, record := range s.records {
		if matchesQuery(record, query) {
			toDelete = append(toDelete, id)
		}
	}

	for _, id := range toDelete {
		delete(s.records, id)
		deleted++
	}

	return deleted, nil
}

// Ping always succeeds for the in-memory backend.
func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

// Close releases resources held by the storage backend.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*usage.Record)
	return nil
}

// matchesQuery checks if a record matches the query filters.
func matchesQuery(record *usage.Record, query *usage.Query) bool {
	if query.StartTime != nil && record.Timestamp.Before(*query.StartTime) {
		return false
	}
	if query.EndTime != nil && record.Timestamp.After(*query.EndTime) {
		return false
	}

	if query.RequestID != "" && record.RequestID != query.RequestID {
		return false
	}
	if query.Dialect != "" && record.Dialect != query.Dialect {
		return false
	}
	if query.Model != "" && record.Model != query.Model {
		return false
	}
	if query.Status != "" && record.Status != query.Status {
		return false
	}

	if query.Stream != nil && record.Stream != *query.Stream {
		return false
	}

	if query.HasError != nil && record.HasError() != *query.HasError {
		return false
	}

	if query.MinTokens != nil && record.TotalTokens() < *query.MinTokens {
		return false
	}
	if query.MaxTokens != nil && record.TotalTokens() > *query.MaxTokens {
		return false
	}

	return true
}

// Clear removes all records from storage (for testing).
func (s *MemoryStorage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*usage.Record)
}

// GetByID retrieves a single usage record by ID (for testing).
func (s *MemoryStorage) GetByID(id string) *usage.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[id]
	if !ok {
		return nil
	}

	recordCopy := *record
	return &recordCopy
}

// Size returns the number of records in storage (for testing).
func (s *MemoryStorage) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}
