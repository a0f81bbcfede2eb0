package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"watchdesk/internal/screening/models"
	id "watchdesk/pkg/domain"
	"watchdesk/pkg/platform/sentinel"
	"watchdesk/pkg/platform/tx"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS name_entities (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	entity_id   TEXT NOT NULL UNIQUE,
	caption     TEXT NOT NULL,
	schema      TEXT NOT NULL DEFAULT '',
	nationality TEXT NOT NULL DEFAULT '',
	birth_date  TEXT NOT NULL DEFAULT '',
	gender      TEXT NOT NULL DEFAULT '',
	first_name  TEXT NOT NULL DEFAULT '',
	last_name   TEXT NOT NULL DEFAULT '',
	aliases     TEXT NOT NULL DEFAULT '',
	position    TEXT NOT NULL DEFAULT '',
	address     TEXT NOT NULL DEFAULT '',
	topics      TEXT NOT NULL DEFAULT '',
	datasets    TEXT NOT NULL DEFAULT '',
	properties  TEXT NOT NULL DEFAULT '{}' CHECK (json_valid(properties)),
	created_at  TEXT NOT NULL DEFAULT ''
);`

// listSep joins aliases and topics; names themselves contain commas.
const listSep = "\x1f"

// SQLiteStore reads a local snapshot of the dataset. Nationality is stored
// as comma-joined codes and matched by substring on that text; other lists
// are joined with listSep. Properties are a JSON object and created_at is
// RFC 3339 text.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a snapshot file.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ByName(ctx context.Context, q string, limit int) ([]models.Record, error) {
	return s.query(ctx, `SELECT `+entityColumns+` FROM name_entities
		WHERE caption LIKE ? ESCAPE '\'
		ORDER BY id LIMIT ?`, containsPattern(q), limit)
}

func (s *SQLiteStore) ByNationality(ctx context.Context, q string, limit int) ([]models.Record, error) {
	return s.query(ctx, `SELECT `+entityColumns+` FROM name_entities
		WHERE nationality LIKE ? ESCAPE '\'
		ORDER BY id LIMIT ?`, containsPattern(q), limit)
}

// ByID returns one record or sentinel.ErrNotFound.
func (s *SQLiteStore) ByID(ctx context.Context, entityID id.EntityID) (models.Record, error) {
	records, err := s.query(ctx, `SELECT `+entityColumns+` FROM name_entities WHERE entity_id = ?`, entityID.String())
	if err != nil {
		return models.Record{}, err
	}
	if len(records) == 0 {
		return models.Record{}, sentinel.ErrNotFound
	}
	return records[0], nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM name_entities`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count entities: %w", err)
	}
	return n, nil
}

// Import inserts records, skipping entity ids already present.
func (s *SQLiteStore) Import(ctx context.Context, records []models.Record) (int, error) {
	inserted := 0
	err := tx.Run(ctx, s.db, func(ctx context.Context) error {
		q := tx.Pick(ctx, s.db)
		for _, r := range records {
			props, err := encodeProperties(r.Properties)
			if err != nil {
				return fmt.Errorf("insert entity %s: %w", r.EntityID, err)
			}
			res, err := q.ExecContext(ctx, `INSERT OR IGNORE INTO name_entities (`+entityColumns+`)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				r.EntityID.String(), r.Caption, r.Schema, strings.Join(r.Nationality, ","), r.BirthDate, r.Gender,
				r.FirstName, r.LastName, strings.Join(r.Aliases, listSep), r.Position, r.Address,
				strings.Join(r.Topics, listSep), strings.Join(r.Datasets, listSep),
				props, createdAtOrNow(r.CreatedAt).Format(time.RFC3339Nano),
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

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]models.Record, error) {
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
			nationality, aliases, topics, datasets string
			props, createdAt                       string
		)
		if err := rows.Scan(&entityID, &r.Caption, &r.Schema, &nationality, &r.BirthDate, &r.Gender,
			&r.FirstName, &r.LastName, &aliases, &r.Position, &r.Address, &topics, &datasets,
			&props, &createdAt); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		if r.Properties, err = decodeProperties([]byte(props)); err != nil {
			return nil, fmt.Errorf("scan entity %s: %w", entityID, err)
		}
		if createdAt != "" {
			if r.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
				return nil, fmt.Errorf("scan entity %s: created_at: %w", entityID, err)
			}
		}
		r.EntityID = id.EntityID(entityID)
		r.Nationality = models.NormalizeCodes(nationality)
		r.Aliases = splitNonEmpty(aliases)
		r.Topics = splitNonEmpty(topics)
		r.Datasets = splitNonEmpty(datasets)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return out, nil
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, listSep)
}
