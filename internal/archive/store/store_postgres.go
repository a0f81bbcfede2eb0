package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"watchdesk/internal/archive/models"
	casemodels "watchdesk/internal/cases/models"
	id "watchdesk/pkg/domain"
	"watchdesk/pkg/platform/sentinel"
	"watchdesk/pkg/platform/tx"
)

// PostgresStore keeps history in history_records. It joins any transaction
// carried by the context, which is how a clear commits the case removal and
// the history row together.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, rec *models.HistoryRecord) error {
	snapshot, err := json.Marshal(rec.Snapshot)
	if err != nil {
		return fmt.Errorf("marshal history snapshot: %w", err)
	}
	_, err = tx.Pick(ctx, s.db).ExecContext(ctx, `
		INSERT INTO history_records
			(id, entity_id, officer_id, officer_name, cleared_by, cleared_by_name, status, snapshot, cleared_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID.String(), rec.EntityID.String(), rec.OfficerID.String(), rec.OfficerName,
		rec.ClearedBy.String(), rec.ClearedByName, rec.Status.String(), snapshot, rec.ClearedAt,
	)
	if err != nil {
		return fmt.Errorf("insert history record: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByOfficer(ctx context.Context, officerID id.UserID) ([]*models.HistoryRecord, error) {
	rows, err := tx.Pick(ctx, s.db).QueryContext(ctx, `
		SELECT id, entity_id, officer_id, officer_name, cleared_by, cleared_by_name, status, snapshot, cleared_at
		FROM history_records
		WHERE officer_id = $1 OR cleared_by = $1
		ORDER BY seq`, officerID.String())
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	out := make([]*models.HistoryRecord, 0)
	for rows.Next() {
		var (
			rec                       models.HistoryRecord
			recID, officer, clearedBy uuid.UUID
			entityID, status          string
			snapshot                  []byte
		)
		if err := rows.Scan(&recID, &entityID, &officer, &rec.OfficerName, &clearedBy, &rec.ClearedByName,
			&status, &snapshot, &rec.ClearedAt); err != nil {
			return nil, fmt.Errorf("scan history record: %w", err)
		}
		if err := json.Unmarshal(snapshot, &rec.Snapshot); err != nil {
			return nil, fmt.Errorf("decode history snapshot: %w", err)
		}
		st, err := casemodels.ParseStatus(status)
		if err != nil {
			return nil, fmt.Errorf("decode history status %q: %w", status, err)
		}
		rec.ID = id.HistoryID(recID)
		rec.EntityID = id.EntityID(entityID)
		rec.OfficerID = id.UserID(officer)
		rec.ClearedBy = id.UserID(clearedBy)
		rec.Status = st
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Remove(ctx context.Context, entityID id.EntityID, officerID id.UserID) (int, error) {
	res, err := tx.Pick(ctx, s.db).ExecContext(ctx,
		`DELETE FROM history_records WHERE entity_id = $1 AND officer_id = $2`,
		entityID.String(), officerID.String())
	if err != nil {
		return 0, fmt.Errorf("remove history: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return 0, sentinel.ErrNotFound
	}
	return int(n), nil
}
