package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"watchdesk/internal/auth/models"
	id "watchdesk/pkg/domain"
	dErrors "watchdesk/pkg/domain-errors"
	"watchdesk/pkg/platform/httputil"
	authmw "watchdesk/pkg/platform/middleware/auth"
	"watchdesk/pkg/requestcontext"
)

type Service interface {
	Login(ctx context.Context, email, password string) (*models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, userID id.UserID, accessJTI, refreshToken string) error
	Register(ctx context.Context, requester id.Role, reg models.Registration) (*models.User, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the routes reachable without a token.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/refresh", h.HandleRefresh)
}

// RegisterAuthenticated mounts the routes that need a bearer token.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/auth/logout", h.HandleLogout)
	r.Post("/auth/register", h.HandleRegister)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	pair, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.writeError(ctx, w, "login", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pair)
}

func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[RefreshRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	pair, err := h.service.Refresh(ctx, req.RefreshToken)
	if err != nil {
		h.writeError(ctx, w, "refresh token", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, pair)
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[LogoutRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	if err := h.service.Logout(ctx, userID, authmw.TokenID(ctx), req.RefreshToken); err != nil {
		h.writeError(ctx, w, "logout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	user, err := h.service.Register(ctx, requestcontext.Role(ctx), models.Registration{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.role,
		Gender:   req.Gender,
	})
	if err != nil {
		h.writeError(ctx, w, "register user", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user)
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, action string, err error) {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "failed to "+action,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}
