package models

import (
	"time"

	screening "watchdesk/internal/screening/models"
	id "watchdesk/pkg/domain"
)

// Key identifies an active case. An entity may be worked by several
// officers, but each officer holds at most one case per entity.
type Key struct {
	EntityID  id.EntityID
	OfficerID id.UserID
}

func (k Key) String() string {
	return k.EntityID.String() + "/" + k.OfficerID.String()
}

// EntitySnapshot is the part of the screened record copied onto the case
// when it is opened, so the case renders without a dataset lookup.
type EntitySnapshot struct {
	Caption     string   `json:"caption"`
	Schema      string   `json:"schema,omitempty"`
	Nationality []string `json:"nationality,omitempty"`
	BirthDate   string   `json:"birth_date,omitempty"`
	Topics      []string `json:"topics,omitempty"`
	Datasets    []string `json:"datasets,omitempty"`
}

// SnapshotOf copies the display fields of a record.
func SnapshotOf(r screening.Record) EntitySnapshot {
	c := r.Clone()
	return EntitySnapshot{
		Caption:     c.Caption,
		Schema:      c.Schema,
		Nationality: c.Nationality,
		BirthDate:   c.BirthDate,
		Topics:      c.Topics,
		Datasets:    c.Datasets,
	}
}

// Case is one officer's investigation of one entity.
type Case struct {
	EntityID    id.EntityID    `json:"entity_id"`
	OfficerID   id.UserID      `json:"officer_id"`
	OfficerName string         `json:"officer_name"`
	Entity      EntitySnapshot `json:"entity"`
	Status      Status         `json:"status"`
	Notes       string         `json:"notes"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	// Version increases on every write; stores use it to detect lost updates.
	Version int64 `json:"version"`
}

func (c *Case) Key() Key {
	return Key{EntityID: c.EntityID, OfficerID: c.OfficerID}
}

// Clone returns a deep copy.
func (c *Case) Clone() *Case {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Entity.Nationality = append([]string(nil), c.Entity.Nationality...)
	cp.Entity.Topics = append([]string(nil), c.Entity.Topics...)
	cp.Entity.Datasets = append([]string(nil), c.Entity.Datasets...)
	return &cp
}
