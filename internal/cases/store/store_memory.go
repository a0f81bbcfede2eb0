package store

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"watchdesk/internal/cases/models"
	"watchdesk/pkg/platform/sentinel"
)

type entry struct {
	seq uint64
	c   *models.Case
}

// InMemory keeps active cases in a map and remembers insertion order.
// Every method is atomic; callers that need several calls to act as one
// unit wrap them in the service's transaction runner.
type InMemory struct {
	mu    sync.RWMutex
	cases map[models.Key]*entry
	seq   uint64
}

func NewInMemory() *InMemory {
	return &InMemory{cases: make(map[models.Key]*entry)}
}

// Create inserts c. Returns sentinel.ErrAlreadyUsed when the key is taken.
func (s *InMemory) Create(_ context.Context, c *models.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := c.Key()
	if _, ok := s.cases[key]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.seq++
	stored := c.Clone()
	stored.Version = 1
	c.Version = 1
	s.cases[key] = &entry{seq: s.seq, c: stored}
	return nil
}

func (s *InMemory) Find(_ context.Context, key models.Key) (*models.Case, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.cases[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return e.c.Clone(), nil
}

// List returns every active case in creation order.
func (s *InMemory) List(_ context.Context) ([]*models.Case, error) {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.cases))
	for _, e := range s.cases {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	slices.SortFunc(entries, func(a, b *entry) int { return cmp.Compare(a.seq, b.seq) })
	out := make([]*models.Case, len(entries))
	for i, e := range entries {
		out[i] = e.c.Clone()
	}
	return out, nil
}

// Update applies fn to a copy of the stored case and writes it back unless
// fn fails. The key fields may not be changed through Update.
func (s *InMemory) Update(_ context.Context, key models.Key, fn func(*models.Case) error) (*models.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.cases[key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	next := e.c.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.EntityID, next.OfficerID = key.EntityID, key.OfficerID
	next.Version = e.c.Version + 1
	e.c = next
	return next.Clone(), nil
}

// Rekey moves the case at from to to.OfficerID, applying fn on the way.
// Returns sentinel.ErrNotFound when from is absent and
// sentinel.ErrAlreadyUsed when to is occupied. Creation order is kept.
func (s *InMemory) Rekey(_ context.Context, from, to models.Key, fn func(*models.Case) error) (*models.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.cases[from]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if _, taken := s.cases[to]; taken && to != from {
		return nil, sentinel.ErrAlreadyUsed
	}
	next := e.c.Clone()
	if err := fn(next); err != nil {
		return nil, err
	}
	next.EntityID, next.OfficerID = to.EntityID, to.OfficerID
	next.Version = e.c.Version + 1
	delete(s.cases, from)
	s.cases[to] = &entry{seq: e.seq, c: next}
	return next.Clone(), nil
}

func (s *InMemory) Delete(_ context.Context, key models.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cases[key]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.cases, key)
	return nil
}

// Count is the number of active cases.
func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cases), nil
}
