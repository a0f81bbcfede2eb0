package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"watchdesk/internal/screening/models"
	id "watchdesk/pkg/domain"
	"watchdesk/pkg/platform/sentinel"
	"watchdesk/pkg/platform/tx"
)

// PostgresStore searches the name_entities table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed entity source.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const entityColumns = `entity_id, caption, schema, nationality, birth_date, gender,
	first_name, last_name, aliases, position, address, topics, datasets, properties, created_at`

func (s *PostgresStore) ByName(ctx context.Context, q string, limit int) ([]models.Record, error) {
	query := `SELECT ` + entityColumns + ` FROM name_entities
		WHERE caption ILIKE $1
		ORDER BY id
		LIMIT $2`
	return s.query(ctx, query, containsPattern(q), limit)
}

func (s *PostgresStore) ByNationality(ctx context.Context, q string, limit int) ([]models.Record, error) {
	query := `SELECT ` + entityColumns + ` FROM name_entities
		WHERE EXISTS (SELECT 1 FROM unnest(nationality) AS n WHERE n ILIKE $1)
		ORDER BY id
		LIMIT $2`
	return s.query(ctx, query, containsPattern(q), limit)
}

// ByID returns one record or sentinel.ErrNotFound.
func (s *PostgresStore) ByID(ctx context.Context, entityID id.EntityID) (models.Record, error) {
	records, err := s.query(ctx, `SELECT `+entityColumns+` FROM name_entities WHERE entity_id = $1`, entityID.String())
	if err != nil {
		return models.Record{}, err
	}
	if len(records) == 0 {
		return models.Record{}, sentinel.ErrNotFound
	}
	return records[0], nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM name_entities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entities: %w", err)
	}
	return n, nil
}

// Import inserts records in one transaction, skipping ids already present.
// It returns how many rows were inserted.
func (s *PostgresStore) Import(ctx context.Context, records []models.Record) (int, error) {
	inserted := 0
	err := tx.Run(ctx, s.db, func(ctx context.Context) error {
		q := tx.Pick(ctx, s.db)
		for _, r := range records {
			props, err := encodeProperties(r.Properties)
			if err != nil {
				return fmt.Errorf("insert entity %s: %w", r.EntityID, err)
			}
			res, err := q.ExecContext(ctx, `
				INSERT INTO name_entities (`+entityColumns+`)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14::jsonb, $15)
				ON CONFLICT (entity_id) DO NOTHING`,
				r.EntityID.String(), r.Caption, r.Schema, pq.Array(r.Nationality), r.BirthDate, r.Gender,
				r.FirstName, r.LastName, pq.Array(r.Aliases), r.Position, r.Address,
				pq.Array(r.Topics), pq.Array(r.Datasets), props, createdAtOrNow(r.CreatedAt),
			)
			if err != nil {
				return fmt.Errorf("insert entity %s: %w", r.EntityID, err)
			}
			if n, _ := res.RowsAffected(); n > 0 {
				inserted++
			}
		}
		return nil
	})
	return inserted, err
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]models.Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search entities: %w", err)
	}
	defer rows.Close()

	out := make([]models.Record, 0)
	for rows.Next() {
		var (
			r                                      models.Record
			entityID                               string
			nationality, aliases, topics, datasets pq.StringArray
			props                                  []byte
		)
		if err := rows.Scan(&entityID, &r.Caption, &r.Schema, &nationality, &r.BirthDate, &r.Gender,
			&r.FirstName, &r.LastName, &aliases, &r.Position, &r.Address, &topics, &datasets,
			&props, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		if r.Properties, err = decodeProperties(props); err != nil {
			return nil, fmt.Errorf("scan entity %s: %w", entityID, err)
		}
		r.CreatedAt = r.CreatedAt.UTC()
		r.EntityID = id.EntityID(entityID)
		r.Nationality = models.NormalizeCodeList(nationality)
		r.Aliases = []string(aliases)
		r.Topics = []string(topics)
		r.Datasets = []string(datasets)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return out, nil
}
