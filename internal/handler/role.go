package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/globalmoves/community/internal/middleware"
	"github.com/globalmoves/community/internal/service"
)

type RoleHandler struct {
	roles *service.RoleService
}

func NewRoleHandler(roles *service.RoleService) *RoleHandler {
	return &RoleHandler{roles: roles}
}

type GrantRoleRequest struct {
	Role string `json:"role"`
}

// GrantRole gives a user a community-wide role. Admin only.
func (h *RoleHandler) GrantRole(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "userId")
	var req GrantRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	userID := middleware.GetUserID(r.Context())
	if err := h.roles.Grant(r.Context(), userID, targetID, req.Role); err != nil {
		writeServiceError(w, "role grant", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "granted"})
}

// RevokeRole removes a community-wide role from a user. Admin only.
func (h *RoleHandler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "userId")
	roleName := chi.URLParam(r, "role")
	userID := middleware.GetUserID(r.Context())
	if err := h.roles.Revoke(r.Context(), userID, targetID, roleName); err != nil {
		writeServiceError(w, "role revoke", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}
