package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"watchdesk/internal/archive/models"
	"watchdesk/internal/policy"
	id "watchdesk/pkg/domain"
	dErrors "watchdesk/pkg/domain-errors"
	"watchdesk/pkg/platform/httputil"
	"watchdesk/pkg/requestcontext"
)

type Service interface {
	List(ctx context.Context, requester policy.Principal, officerID id.UserID) ([]*models.HistoryRecord, error)
	Remove(ctx context.Context, requester policy.Principal, entityID id.EntityID, officerID id.UserID) error
}

// Handler serves the cleared-case history.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/history", h.HandleList)
	r.Delete("/history/{entityID}", h.HandleRemove)
}

type HistoryResponse struct {
	Records []*models.HistoryRecord `json:"records"`
	Count   int                     `json:"count"`
}

// HandleList handles GET /history?officer_id=. Without officer_id the
// caller's own history is returned.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requester, officerID, ok := h.resolve(w, r)
	if !ok {
		return
	}
	records, err := h.service.List(ctx, requester, officerID)
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &HistoryResponse{Records: records, Count: len(records)})
}

// HandleRemove handles DELETE /history/{entityID}?officer_id=.
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requester, officerID, ok := h.resolve(w, r)
	if !ok {
		return
	}
	entityID, err := id.ParseEntityID(chi.URLParam(r, "entityID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid entity id"))
		return
	}
	if err := h.service.Remove(ctx, requester, entityID, officerID); err != nil {
		h.writeError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (policy.Principal, id.UserID, bool) {
	ctx := r.Context()
	requester := policy.Principal{ID: requestcontext.UserID(ctx), Role: requestcontext.Role(ctx)}
	if requester.ID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return policy.Principal{}, id.UserID{}, false
	}
	raw := r.URL.Query().Get("officer_id")
	if raw == "" {
		return requester, requester.ID, true
	}
	officerID, err := id.ParseUserID(raw)
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid officer_id"))
		return policy.Principal{}, id.UserID{}, false
	}
	return requester, officerID, true
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "history request failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
