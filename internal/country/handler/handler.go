// Package handler exposes the country directory over HTTP.
package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"watchdesk/internal/country"
	"watchdesk/pkg/platform/httputil"
)

// Directory is the read side of the country table.
type Directory interface {
	List() []country.Entry
	Search(term string) []country.Entry
}

type Handler struct {
	directory Directory
}

func New(directory Directory) *Handler {
	return &Handler{directory: directory}
}

// Register mounts GET /countries and GET /countries/search.
func (h *Handler) Register(r chi.Router) {
	r.Get("/countries", h.HandleList)
	r.Get("/countries/search", h.HandleSearch)
}

type listResponse struct {
	Countries []country.Entry `json:"countries"`
	Count     int             `json:"count"`
}

func (h *Handler) HandleList(w http.ResponseWriter, _ *http.Request) {
	entries := h.directory.List()
	httputil.WriteJSON(w, http.StatusOK, listResponse{Countries: entries, Count: len(entries)})
}

// HandleSearch filters by ?q=. An empty term lists everything, matching the
// directory's own behaviour.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	entries := h.directory.Search(strings.TrimSpace(r.URL.Query().Get("q")))
	httputil.WriteJSON(w, http.StatusOK, listResponse{Countries: entries, Count: len(entries)})
}
