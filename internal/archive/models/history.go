package models

import (
	"time"

	casemodels "watchdesk/internal/cases/models"
	id "watchdesk/pkg/domain"
)

// HistoryRecord is the frozen state of a case at the moment it was cleared.
// Records are never edited; the only permitted change is removing one.
type HistoryRecord struct {
	ID            id.HistoryID      `json:"id"`
	EntityID      id.EntityID       `json:"entity_id"`
	OfficerID     id.UserID         `json:"officer_id"`
	OfficerName   string            `json:"officer_name"`
	ClearedBy     id.UserID         `json:"cleared_by"`
	ClearedByName string            `json:"cleared_by_name"`
	Status        casemodels.Status `json:"status"`
	Snapshot      casemodels.Case   `json:"snapshot"`
	ClearedAt     time.Time         `json:"cleared_at"`
}

// Actor is who cleared the case.
type Actor struct {
	ID   id.UserID
	Name string
}

// NewHistoryRecord deep-copies c into a record.
func NewHistoryRecord(c *casemodels.Case, by Actor, at time.Time) *HistoryRecord {
	snap := c.Clone()
	return &HistoryRecord{
		ID:            id.NewHistoryID(),
		EntityID:      snap.EntityID,
		OfficerID:     snap.OfficerID,
		OfficerName:   snap.OfficerName,
		ClearedBy:     by.ID,
		ClearedByName: by.Name,
		Status:        snap.Status,
		Snapshot:      *snap,
		ClearedAt:     at,
	}
}

// Clone returns a deep copy so callers cannot reach stored state.
func (h *HistoryRecord) Clone() *HistoryRecord {
	if h == nil {
		return nil
	}
	cp := *h
	cp.Snapshot = *h.Snapshot.Clone()
	return &cp
}
