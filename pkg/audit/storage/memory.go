package storage

import (
	"context"
	"sort"
	"sync"

	"newnan/cbfirewall/pkg/audit"
)

// MemoryStorage implements audit.Storage in memory. Records are lost on
// restart.
type MemoryStorage struct {
	records map[string]*audit.Record
	mu      sync.RWMutex
	closed  bool
}

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*audit.Record),
	}
}

// Store persists a copy of the record.
func (s *MemoryStorage) Store(ctx context.Context, record *audit.Record) error {
	if err := ctx.Err(); err != nil {
		return audit.NewStorageError("memory", "store", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return audit.NewStorageError("memory", "store", errStorageClosed)
	}
	s.records[record.ID] = copyRecord(record)
	return nil
}

// Get returns a copy of the record with the given ID.
func (s *MemoryStorage) Get(ctx context.Context, id string) (*audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[id]
	if !ok {
		return nil, audit.ErrNotFound
	}
	return copyRecord(r), nil
}

// Query retrieves records matching the query filters, sorted by timestamp.
func (s *MemoryStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	results := s.matching(query)
	s.mu.RUnlock()

	asc := query.Ascending()
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			if asc {
				return a.Timestamp.Before(b.Timestamp)
			}
			return a.Timestamp.After(b.Timestamp)
		}
		if asc {
			return a.ID < b.ID
		}
		return a.ID > b.ID
	})

	start := query.Offset
	if start > len(results) {
		return []*audit.Record{}, nil
	}
	end := start + query.EffectiveLimit()
	if end > len(results) {
		end = len(results)
	}
	return results[start:end], nil
}

// Count returns the number of records matching the query filters.
func (s *MemoryStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, r := range s.records {
		if query.Matches(r) {
			count++
		}
	}
	return count, nil
}

// Delete removes records matching the query filters.
func (s *MemoryStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, r := range s.records {
		if query.Matches(r) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Close marks the storage closed. Later writes fail.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

func (s *MemoryStorage) matching(query *audit.Query) []*audit.Record {
	results := []*audit.Record{}
	for _, r := range s.records {
		if query.Matches(r) {
			results = append(results, copyRecord(r))
		}
	}
	return results
}

func copyRecord(r *audit.Record) *audit.Record {
	c := *r
	if r.Position != nil {
		pos := *r.Position
		c.Position = &pos
	}
	return &c
}

// Ping reports an error once the storage is closed.
func (s *MemoryStorage) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return audit.NewStorageError("memory", "ping", errStorageClosed)
	}
	return nil
}
