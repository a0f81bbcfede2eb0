package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"watchdesk/internal/cases/models"
	"watchdesk/internal/platform/postgres"
	id "watchdesk/pkg/domain"
	"watchdesk/pkg/platform/sentinel"
	"watchdesk/pkg/platform/tx"
)

// PostgresStore persists active cases in the cases table. Writes are
// compare-and-swap on the version column; inside a transaction Find takes a
// row lock so read-check-write sequences cannot interleave.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const caseColumns = `entity_id, officer_id, officer_name, entity, status, notes, version, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, c *models.Case) error {
	entity, err := json.Marshal(c.Entity)
	if err != nil {
		return fmt.Errorf("marshal entity snapshot: %w", err)
	}
	_, err = tx.Pick(ctx, s.db).ExecContext(ctx, `
		INSERT INTO cases (`+caseColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $8)`,
		c.EntityID.String(), c.OfficerID.String(), c.OfficerName, entity, c.Status.String(), c.Notes,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert case: %w", err)
	}
	c.Version = 1
	return nil
}

// Find loads one case. Called inside a transaction it locks the row.
func (s *PostgresStore) Find(ctx context.Context, key models.Key) (*models.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM cases WHERE entity_id = $1 AND officer_id = $2`
	if _, inTx := tx.From(ctx); inTx {
		query += ` FOR UPDATE`
	}
	row := tx.Pick(ctx, s.db).QueryRowContext(ctx, query, key.EntityID.String(), key.OfficerID.String())
	c, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find case: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Case, error) {
	rows, err := tx.Pick(ctx, s.db).QueryContext(ctx, `SELECT `+caseColumns+` FROM cases ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Case, 0)
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cases: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, key models.Key, fn func(*models.Case) error) (*models.Case, error) {
	return s.Rekey(ctx, key, key, fn)
}

// Rekey moves a case to a new officer, or updates it in place when from
// equals to. A taken target key is reported as sentinel.ErrAlreadyUsed.
func (s *PostgresStore) Rekey(ctx context.Context, from, to models.Key, fn func(*models.Case) error) (*models.Case, error) {
	var out *models.Case
	err := tx.Run(ctx, s.db, func(ctx context.Context) error {
		current, err := s.Find(ctx, from)
		if err != nil {
			return err
		}
		next := current.Clone()
		if err := fn(next); err != nil {
			return err
		}
		entity, err := json.Marshal(next.Entity)
		if err != nil {
			return fmt.Errorf("marshal entity snapshot: %w", err)
		}
		res, err := tx.Pick(ctx, s.db).ExecContext(ctx, `
			UPDATE cases
			SET officer_id = $1, officer_name = $2, entity = $3, status = $4, notes = $5,
				updated_at = $6, version = version + 1
			WHERE entity_id = $7 AND officer_id = $8 AND version = $9`,
			to.OfficerID.String(), next.OfficerName, entity, next.Status.String(), next.Notes,
			next.UpdatedAt, from.EntityID.String(), from.OfficerID.String(), current.Version,
		)
		if err != nil {
			if postgres.IsUniqueViolation(err) {
				return sentinel.ErrAlreadyUsed
			}
			return fmt.Errorf("update case: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return sentinel.ErrConflict
		}
		next.EntityID, next.OfficerID = to.EntityID, to.OfficerID
		next.Version = current.Version + 1
		out = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, key models.Key) error {
	res, err := tx.Pick(ctx, s.db).ExecContext(ctx,
		`DELETE FROM cases WHERE entity_id = $1 AND officer_id = $2`,
		key.EntityID.String(), key.OfficerID.String())
	if err != nil {
		return fmt.Errorf("delete case: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := tx.Pick(ctx, s.db).QueryRowContext(ctx, `SELECT count(*) FROM cases`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cases: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCase(row scanner) (*models.Case, error) {
	var (
		c         models.Case
		entityID  string
		officerID uuid.UUID
		entity    []byte
		status    string
	)
	if err := row.Scan(&entityID, &officerID, &c.OfficerName, &entity, &status, &c.Notes,
		&c.Version, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(entity, &c.Entity); err != nil {
		return nil, fmt.Errorf("decode entity snapshot: %w", err)
	}
	st, err := models.ParseStatus(status)
	if err != nil {
		return nil, fmt.Errorf("decode status %q: %w", status, err)
	}
	c.EntityID = id.EntityID(entityID)
	c.OfficerID = id.UserID(officerID)
	c.Status = st
	return &c, nil
}
