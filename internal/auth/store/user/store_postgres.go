package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"watchdesk/internal/auth/models"
	"watchdesk/internal/platform/postgres"
	id "watchdesk/pkg/domain"
	"watchdesk/pkg/platform/sentinel"
	"watchdesk/pkg/platform/tx"
)

const userColumns = `id, name, email, role, gender, password_hash, created_at`

// PostgresUserStore persists users in the users table.
type PostgresUserStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

func (s *PostgresUserStore) Save(ctx context.Context, u *models.User) error {
	_, err := tx.Pick(ctx, s.db).ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			role = EXCLUDED.role,
			gender = EXCLUDED.gender,
			password_hash = EXCLUDED.password_hash`,
		uuid.UUID(u.ID), u.Name, u.Email, u.Role.String(), u.Gender, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *PostgresUserStore) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	row := tx.Pick(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, uuid.UUID(userID))
	return scanUser(row)
}

func (s *PostgresUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	row := tx.Pick(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = $1`, strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

func (s *PostgresUserStore) CountByRole(ctx context.Context, role id.Role) (int, error) {
	var n int
	err := tx.Pick(ctx, s.db).QueryRowContext(ctx,
		`SELECT count(*) FROM users WHERE role = $1`, role.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		u      models.User
		userID uuid.UUID
		role   string
	)
	err := row.Scan(&userID, &u.Name, &u.Email, &role, &u.Gender, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	parsed, err := id.ParseRole(role)
	if err != nil {
		return nil, fmt.Errorf("scan user %s: %w", userID, err)
	}
	u.ID = id.UserID(userID)
	u.Role = parsed
	return &u, nil
}
