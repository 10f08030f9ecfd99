package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/globalmoves/community/internal/middleware"
	"github.com/globalmoves/community/internal/service"
)

type InvitationHandler struct {
	members *service.MembershipService
}

func NewInvitationHandler(members *service.MembershipService) *InvitationHandler {
	return &InvitationHandler{members: members}
}

type InviteRequest struct {
	Email   string `json:"email"`
	Message string `json:"message,omitempty"`
}

type RespondRequest struct {
	Action string `json:"action"`
}

// Invite invites a community member to a private room by email.
func (h *InvitationHandler) Invite(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	var req InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	userID := middleware.GetUserID(r.Context())
	inv, err := h.members.Invite(r.Context(), userID, roomID, req.Email, req.Message)
	if err != nil {
		writeServiceError(w, "invitation create", err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// Inbox lists the caller's pending invitations, newest first.
func (h *InvitationHandler) Inbox(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	invs, err := h.members.Inbox(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "invitation inbox", err)
		return
	}
	writeJSON(w, http.StatusOK, invs)
}

// Respond accepts or declines a pending invitation addressed to the caller.
func (h *InvitationHandler) Respond(w http.ResponseWriter, r *http.Request) {
	invitationID := chi.URLParam(r, "id")
	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	var accept bool
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "accept":
		accept = true
	case "decline":
		accept = false
	default:
		writeError(w, http.StatusBadRequest, "action must be accept or decline")
		return
	}
	userID := middleware.GetUserID(r.Context())
	inv, err := h.members.Respond(r.Context(), userID, invitationID, accept)
	if err != nil {
		writeServiceError(w, "invitation respond", err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}
