package handler

import (
	"strings"

	"watchdesk/internal/screening/models"
	dErrors "watchdesk/pkg/domain-errors"
)

// SearchRequest is the query string of GET /search.
type SearchRequest struct {
	Name        string
	Nationality string
}

// Validate trims the inputs and rejects an empty query before it reaches
// the matcher.
func (r *SearchRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Nationality = strings.TrimSpace(r.Nationality)
	if r.Name == "" && r.Nationality == "" {
		return dErrors.New(dErrors.CodeValidation, "name or nationality is required")
	}
	return nil
}

func (r *SearchRequest) Query() models.Query {
	return models.Query{Name: r.Name, Nationality: r.Nationality}
}

// RecordResponse is a record plus display names for its nationality codes.
type RecordResponse struct {
	models.Record
	NationalityNames []string `json:"nationality_names,omitempty"`
}

// SearchResponse is the body of a successful search.
type SearchResponse struct {
	Results         []RecordResponse `json:"results"`
	Count           int              `json:"count"`
	NationalityCode string           `json:"nationality_code,omitempty"`
	Resolved        bool             `json:"resolved"`
}
