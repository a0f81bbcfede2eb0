package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"watchdesk/internal/auth/models"
	id "watchdesk/pkg/domain"
	"watchdesk/pkg/platform/sentinel"
)

type InMemoryUserStoreSuite struct {
	suite.Suite
	store *InMemoryUserStore
}

func (s *InMemoryUserStoreSuite) SetupTest() {
	s.store = New()
}

func TestInMemoryUserStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryUserStoreSuite))
}

func newUser(email string, role id.Role) *models.User {
	return &models.User{
		ID:        id.UserID(uuid.New()),
		Name:      "Jane Doe",
		Email:     email,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
}

func (s *InMemoryUserStoreSuite) TestLookup() {
	ctx := context.Background()
	u := newUser("Jane.Doe@example.com", id.RoleOfficer)
	s.Require().NoError(s.store.Save(ctx, u))

	s.Run("by id", func() {
		found, err := s.store.FindByID(ctx, u.ID)
		s.Require().NoError(err)
		s.Equal(u, found)
	})

	s.Run("by email ignores case", func() {
		found, err := s.store.FindByEmail(ctx, " jane.doe@EXAMPLE.com")
		s.Require().NoError(err)
		s.Equal(u.ID, found.ID)
	})

	s.Run("missing id", func() {
		_, err := s.store.FindByID(ctx, id.UserID(uuid.New()))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("missing email", func() {
		_, err := s.store.FindByEmail(ctx, "missing@example.com")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned users are copies", func() {
		found, err := s.store.FindByID(ctx, u.ID)
		s.Require().NoError(err)
		found.Name = "changed"
		again, err := s.store.FindByID(ctx, u.ID)
		s.Require().NoError(err)
		s.Equal("Jane Doe", again.Name)
	})
}

func (s *InMemoryUserStoreSuite) TestEmailIsUnique() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, newUser("dup@example.com", id.RoleOfficer)))

	err := s.store.Save(ctx, newUser("DUP@example.com", id.RoleManager))
	s.ErrorIs(err, sentinel.ErrAlreadyUsed)
}

func (s *InMemoryUserStoreSuite) TestUpdateChangesEmail() {
	ctx := context.Background()
	u := newUser("old@example.com", id.RoleOfficer)
	s.Require().NoError(s.store.Save(ctx, u))

	u.Email = "new@example.com"
	s.Require().NoError(s.store.Save(ctx, u))

	_, err := s.store.FindByEmail(ctx, "old@example.com")
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByEmail(ctx, "new@example.com")
	s.NoError(err)
}

func (s *InMemoryUserStoreSuite) TestCountByRole() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, newUser("a@example.com", id.RoleOfficer)))
	s.Require().NoError(s.store.Save(ctx, newUser("b@example.com", id.RoleOfficer)))
	s.Require().NoError(s.store.Save(ctx, newUser("m@example.com", id.RoleManager)))

	n, err := s.store.CountByRole(ctx, id.RoleOfficer)
	s.Require().NoError(err)
	s.Equal(2, n)
	n, err = s.store.CountByRole(ctx, id.RoleManager)
	s.Require().NoError(err)
	s.Equal(1, n)
}
