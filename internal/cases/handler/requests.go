package handler

import (
	"strings"

	"watchdesk/internal/cases/models"
	id "watchdesk/pkg/domain"
	dErrors "watchdesk/pkg/domain-errors"
)

// OpenCaseRequest opens a case on a screened entity for the caller.
type OpenCaseRequest struct {
	EntityID string `json:"entity_id"`
}

func (r *OpenCaseRequest) Validate() error {
	r.EntityID = strings.TrimSpace(r.EntityID)
	if r.EntityID == "" {
		return dErrors.New(dErrors.CodeValidation, "entity_id is required")
	}
	if _, err := id.ParseEntityID(r.EntityID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid entity_id")
	}
	return nil
}

// SetStatusRequest carries one of the status labels
// "Select Status", "Pending" or "Flag:1".."Flag:5".
type SetStatusRequest struct {
	Status string `json:"status"`

	parsed models.Status
}

func (r *SetStatusRequest) Validate() error {
	if r.Status == "" {
		return dErrors.New(dErrors.CodeValidation, "status is required")
	}
	st, err := models.ParseStatus(r.Status)
	if err != nil {
		return err
	}
	r.parsed = st
	return nil
}

type SetNotesRequest struct {
	Notes string `json:"notes"`
}

const maxNotesLength = 10000

func (r *SetNotesRequest) Validate() error {
	if len(r.Notes) > maxNotesLength {
		return dErrors.New(dErrors.CodeValidation, "notes are too long")
	}
	return nil
}

type ReassignRequest struct {
	OfficerID string `json:"officer_id"`

	parsed id.UserID
}

func (r *ReassignRequest) Validate() error {
	if strings.TrimSpace(r.OfficerID) == "" {
		return dErrors.New(dErrors.CodeValidation, "officer_id is required")
	}
	officerID, err := id.ParseUserID(r.OfficerID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid officer_id")
	}
	r.parsed = officerID
	return nil
}

type CaseListResponse struct {
	Cases []*models.Case `json:"cases"`
	Count int            `json:"count"`
}

type QueueResponse struct {
	Officers []models.OfficerQueue `json:"officers"`
}
