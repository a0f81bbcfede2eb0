package store

import (
	"context"
	"io"
	"sync"

	"watchdesk/internal/screening/models"
	id "watchdesk/pkg/domain"
	"watchdesk/pkg/platform/sentinel"
)

// InMemory serves searches from records held in dataset order.
type InMemory struct {
	mu      sync.RWMutex
	records []models.Record
}

// NewInMemory builds a store over records; the slice is copied.
func NewInMemory(records []models.Record) *InMemory {
	s := &InMemory{}
	s.Replace(records)
	return s
}

// LoadInMemory reads an NDJSON dataset into a new store.
func LoadInMemory(r io.Reader, opts LoadOptions) (*InMemory, LoadStats, error) {
	records, stats, err := ReadNDJSON(r, opts)
	if err != nil {
		return nil, stats, err
	}
	return NewInMemory(records), stats, nil
}

// Replace swaps the whole dataset, e.g. after a reload.
func (s *InMemory) Replace(records []models.Record) {
	cp := make([]models.Record, len(records))
	for i, r := range records {
		cp[i] = r.Clone()
	}
	s.mu.Lock()
	s.records = cp
	s.mu.Unlock()
}

// ByName returns up to limit records whose caption contains q.
func (s *InMemory) ByName(_ context.Context, q string, limit int) ([]models.Record, error) {
	return s.scan(limit, func(r models.Record) bool { return r.NameContains(q) }), nil
}

// ByNationality returns up to limit records with a nationality containing q.
func (s *InMemory) ByNationality(_ context.Context, q string, limit int) ([]models.Record, error) {
	return s.scan(limit, func(r models.Record) bool { return r.NationalityContains(q) }), nil
}

// ByID returns the record with entityID or sentinel.ErrNotFound.
func (s *InMemory) ByID(_ context.Context, entityID id.EntityID) (models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.EntityID == entityID {
			return r.Clone(), nil
		}
	}
	return models.Record{}, sentinel.ErrNotFound
}

// Count is the number of records held.
func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *InMemory) scan(limit int, match func(models.Record) bool) []models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Record, 0)
	for _, r := range s.records {
		if limit > 0 && len(out) >= limit {
			break
		}
		if match(r) {
			out = append(out, r.Clone())
		}
	}
	return out
}
