package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"watchdesk/internal/screening/models"
	id "watchdesk/pkg/domain"
	dErrors "watchdesk/pkg/domain-errors"
	"watchdesk/pkg/platform/httputil"
	"watchdesk/pkg/requestcontext"
)

// Service is the search surface the handler needs.
type Service interface {
	Search(ctx context.Context, q models.Query) (models.Result, error)
	Lookup(ctx context.Context, entityID id.EntityID) (models.Record, error)
}

// CountryNamer renders country codes for display.
type CountryNamer interface {
	Name(code string) string
}

// Handler serves entity search.
type Handler struct {
	service   Service
	countries CountryNamer
	logger    *slog.Logger
}

// New creates a search Handler. countries may be nil, in which case
// responses carry codes only.
func New(service Service, countries CountryNamer, logger *slog.Logger) *Handler {
	return &Handler{service: service, countries: countries, logger: logger}
}

// Register mounts the search route. Authentication and rate limiting are
// applied by the caller's router group.
func (h *Handler) Register(r chi.Router) {
	r.Get("/search", h.HandleSearch)
	r.Get("/entities/{entityID}", h.HandleGetEntity)
}

// HandleSearch handles GET /search?name=&nationality=.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req := &SearchRequest{
		Name:        r.URL.Query().Get("name"),
		Nationality: r.URL.Query().Get("nationality"),
	}
	if err := req.Validate(); err != nil {
		h.logger.WarnContext(ctx, "invalid search request",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.Search(ctx, req.Query())
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) {
			httputil.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "entity search failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "search failed"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, h.toResponse(res))
}

// HandleGetEntity handles GET /entities/{entityID}.
func (h *Handler) HandleGetEntity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entityID := id.EntityID(chi.URLParam(r, "entityID"))

	rec, err := h.service.Lookup(ctx, entityID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "entity lookup failed",
				"request_id", requestcontext.RequestID(ctx),
				"entity_id", entityID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.toRecord(rec))
}

func (h *Handler) toRecord(rec models.Record) RecordResponse {
	item := RecordResponse{Record: rec}
	if h.countries != nil {
		for _, code := range rec.Nationality {
			item.NationalityNames = append(item.NationalityNames, h.countries.Name(code))
		}
	}
	return item
}

func (h *Handler) toResponse(res models.Result) *SearchResponse {
	out := &SearchResponse{
		Results:         make([]RecordResponse, 0, len(res.Records)),
		NationalityCode: res.NationalityCode,
		Resolved:        res.Resolved,
	}
	for _, rec := range res.Records {
		out.Results = append(out.Results, h.toRecord(rec))
	}
	out.Count = len(out.Results)
	return out
}
