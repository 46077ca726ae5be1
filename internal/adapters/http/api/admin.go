// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"crypto/subtle"
	"net/http"
)

// adminTokenHeader carries the shared admin token on maintenance calls.
const adminTokenHeader = "X-Admin-Token"

// AdminDependencies defines the interface for maintenance operations.
type AdminDependencies interface {
	RevalidateAll(ctx context.Context) (map[string]int, error)
	ForcePruneAll(ctx context.Context) (int, error)
	CleanupStats(ctx context.Context) (int, error)
}

// AdminHandler handles token-guarded maintenance requests.
type AdminHandler struct {
	deps  AdminDependencies
	token string
}

// NewAdminHandler creates a new admin handler. The surface stays
// disabled until a token is configured.
func NewAdminHandler(deps AdminDependencies) *AdminHandler {
	return &AdminHandler{deps: deps}
}

// authorize rejects the request unless it carries the configured token.
func (h *AdminHandler) authorize(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return false
	}
	if h.token == "" {
		writeError(w, http.StatusForbidden, "admin_disabled", ErrAdminDisabled)
		return false
	}
	got := r.Header.Get(adminTokenHeader)
	if subtle.ConstantTimeCompare([]byte(got), []byte(h.token)) != 1 {
		writeError(w, http.StatusForbidden, "forbidden", ErrForbidden)
		return false
	}
	return true
}

type revalidateResponse struct {
	Status  string         `json:"status"`
	Removed map[string]int `json:"removed"`
}

// HandleRevalidate handles POST /api/admin/revalidate requests.
func (h *AdminHandler) HandleRevalidate(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	removed, err := h.deps.RevalidateAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, revalidateResponse{Status: "ok", Removed: removed})
}

type removedResponse struct {
	Status  string `json:"status"`
	Removed int    `json:"removed"`
}

// HandlePrune handles POST /api/admin/prune requests.
func (h *AdminHandler) HandlePrune(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	removed, err := h.deps.ForcePruneAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, removedResponse{Status: "ok", Removed: removed})
}

// HandleCleanupStats handles POST /api/admin/cleanup-stats requests.
func (h *AdminHandler) HandleCleanupStats(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	removed, err := h.deps.CleanupStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}
	writeJSON(w, http.StatusOK, removedResponse{Status: "ok", Removed: removed})
}
