package store

import (
	"context"
	"sync"

	"watchdesk/internal/archive/models"
	id "watchdesk/pkg/domain"
	"watchdesk/pkg/platform/sentinel"
)

// InMemory is an append-only list of history records.
type InMemory struct {
	mu      sync.RWMutex
	records []*models.HistoryRecord
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, rec *models.HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec.Clone())
	return nil
}

// ListByOfficer returns, in clearing order, the records of cases the officer
// owned or cleared.
func (s *InMemory) ListByOfficer(_ context.Context, officerID id.UserID) ([]*models.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.HistoryRecord, 0)
	for _, r := range s.records {
		if r.OfficerID == officerID || r.ClearedBy == officerID {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

// Remove deletes every record of entityID held for officerID and reports how
// many went. Returns sentinel.ErrNotFound when there were none.
func (s *InMemory) Remove(_ context.Context, entityID id.EntityID, officerID id.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.records[:0]
	removed := 0
	for _, r := range s.records {
		if r.EntityID == entityID && r.OfficerID == officerID {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	clear(s.records[len(kept):])
	s.records = kept
	if removed == 0 {
		return 0, sentinel.ErrNotFound
	}
	return removed, nil
}
