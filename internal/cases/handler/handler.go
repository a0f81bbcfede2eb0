package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	archivemodels "watchdesk/internal/archive/models"
	"watchdesk/internal/cases/models"
	"watchdesk/internal/policy"
	id "watchdesk/pkg/domain"
	dErrors "watchdesk/pkg/domain-errors"
	"watchdesk/pkg/platform/httputil"
	"watchdesk/pkg/requestcontext"
)

// Service is the case surface exposed over HTTP.
type Service interface {
	Open(ctx context.Context, requester policy.Principal, entityID id.EntityID) (*models.Case, error)
	Get(ctx context.Context, requester policy.Principal, key models.Key) (*models.Case, error)
	ListVisible(ctx context.Context, requester policy.Principal) ([]*models.Case, error)
	Queue(ctx context.Context, requester policy.Principal) ([]models.OfficerQueue, error)
	SetStatus(ctx context.Context, requester policy.Principal, key models.Key, status models.Status) (*models.Case, error)
	SetNotes(ctx context.Context, requester policy.Principal, key models.Key, notes string) (*models.Case, error)
	Reassign(ctx context.Context, requester policy.Principal, key models.Key, newOfficerID id.UserID) (*models.Case, error)
	Delete(ctx context.Context, requester policy.Principal, key models.Key) error
	Clear(ctx context.Context, requester policy.Principal, key models.Key) (*archivemodels.HistoryRecord, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the case routes. The caller's router group must already
// require authentication.
func (h *Handler) Register(r chi.Router) {
	r.Route("/cases", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleOpen)
		r.Get("/queue", h.HandleQueue)
		r.Route("/{entityID}/{officerID}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Delete("/", h.HandleDelete)
			r.Put("/status", h.HandleSetStatus)
			r.Put("/notes", h.HandleSetNotes)
			r.Post("/reassign", h.HandleReassign)
			r.Post("/clear", h.HandleClear)
		})
	})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requester, ok := h.principal(w, r)
	if !ok {
		return
	}
	cases, err := h.service.ListVisible(ctx, requester)
	if err != nil {
		h.writeError(ctx, w, "list cases", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &CaseListResponse{Cases: cases, Count: len(cases)})
}

func (h *Handler) HandleQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requester, ok := h.principal(w, r)
	if !ok {
		return
	}
	queue, err := h.service.Queue(ctx, requester)
	if err != nil {
		h.writeError(ctx, w, "load queue", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, &QueueResponse{Officers: queue})
}

// HandleOpen handles POST /cases.
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requester, ok := h.principal(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[OpenCaseRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.Open(ctx, requester, id.EntityID(req.EntityID))
	if err != nil {
		h.writeError(ctx, w, "open case", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requester, key, ok := h.target(w, r)
	if !ok {
		return
	}
	c, err := h.service.Get(ctx, requester, key)
	if err != nil {
		h.writeError(ctx, w, "get case", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

// HandleSetStatus handles PUT /cases/{entityID}/{officerID}/status.
func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requester, key, ok := h.target(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetStatusRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.SetStatus(ctx, requester, key, req.parsed)
	if err != nil {
		h.writeError(ctx, w, "set status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) HandleSetNotes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requester, key, ok := h.target(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SetNotesRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.SetNotes(ctx, requester, key, req.Notes)
	if err != nil {
		h.writeError(ctx, w, "set notes", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) HandleReassign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requester, key, ok := h.target(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReassignRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.Reassign(ctx, requester, key, req.parsed)
	if err != nil {
		h.writeError(ctx, w, "reassign case", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requester, key, ok := h.target(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(ctx, requester, key); err != nil {
		h.writeError(ctx, w, "delete case", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleClear handles POST /cases/{entityID}/{officerID}/clear and returns
// the archived record.
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requester, key, ok := h.target(w, r)
	if !ok {
		return
	}
	rec, err := h.service.Clear(ctx, requester, key)
	if err != nil {
		h.writeError(ctx, w, "clear case", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) (policy.Principal, bool) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		// RequireAuth sets the principal; reaching here means the route was
		// mounted outside the authenticated group.
		h.logger.ErrorContext(ctx, "principal missing from context",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return policy.Principal{}, false
	}
	return policy.Principal{ID: userID, Role: requestcontext.Role(ctx)}, true
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (policy.Principal, models.Key, bool) {
	requester, ok := h.principal(w, r)
	if !ok {
		return policy.Principal{}, models.Key{}, false
	}
	entityID, err := id.ParseEntityID(chi.URLParam(r, "entityID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid entity id"))
		return policy.Principal{}, models.Key{}, false
	}
	officerID, err := id.ParseUserID(chi.URLParam(r, "officerID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeValidation, "invalid officer id"))
		return policy.Principal{}, models.Key{}, false
	}
	return requester, models.Key{EntityID: entityID, OfficerID: officerID}, true
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, action string, err error) {
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "failed to "+action,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	} else {
		h.logger.WarnContext(ctx, "case request rejected",
			"request_id", requestcontext.RequestID(ctx),
			"action", action,
			"code", code,
		)
	}
	httputil.WriteError(w, err)
}
