package user

import (
	"context"
	"strings"
	"sync"

	"watchdesk/internal/auth/models"
	id "watchdesk/pkg/domain"
	"watchdesk/pkg/platform/sentinel"
)

// InMemoryUserStore keeps users in maps keyed by id and lower-cased email.
type InMemoryUserStore struct {
	mu      sync.RWMutex
	users   map[id.UserID]*models.User
	byEmail map[string]id.UserID
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:   make(map[id.UserID]*models.User),
		byEmail: make(map[string]id.UserID),
	}
}

// Save inserts a new user. Returns sentinel.ErrAlreadyUsed when the email
// is taken by a different user.
func (s *InMemoryUserStore) Save(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(u.Email)
	if owner, ok := s.byEmail[email]; ok && owner != u.ID {
		return sentinel.ErrAlreadyUsed
	}
	if existing, ok := s.users[u.ID]; ok {
		delete(s.byEmail, strings.ToLower(existing.Email))
	}
	cp := *u
	s.users[u.ID] = &cp
	s.byEmail[email] = u.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

// FindByEmail matches case-insensitively.
func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.users[userID]
	return &cp, nil
}

// CountByRole reports how many users hold role.
func (s *InMemoryUserStore) CountByRole(_ context.Context, role id.Role) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, u := range s.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}
