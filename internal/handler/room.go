package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/globalmoves/community/internal/middleware"
	"github.com/globalmoves/community/internal/service"
	"github.com/globalmoves/community/internal/ws"
)

type RoomHandler struct {
	rooms   *service.RoomService
	members *service.MembershipService
	hub     *ws.Hub
}

func NewRoomHandler(rooms *service.RoomService, members *service.MembershipService, hub *ws.Hub) *RoomHandler {
	return &RoomHandler{rooms: rooms, members: members, hub: hub}
}

type CreateRoomRequest struct {
	Name        string `json:"name"`
	Field       string `json:"field"`
	Description string `json:"description"`
	MaxMembers  *int   `json:"max_members,omitempty"`
}

// ListRooms returns every room the caller may see: all public rooms plus
// the private rooms they belong to.
func (h *RoomHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	rooms, err := h.rooms.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, "room list", err)
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

// CreateRoom creates a private room owned by the caller.
func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	userID := middleware.GetUserID(r.Context())
	room, err := h.rooms.CreatePrivate(r.Context(), userID, req.Name, req.Field, req.Description, req.MaxMembers)
	if err != nil {
		writeServiceError(w, "room create", err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

// CreatePublicRoom creates an open community room. Admin only.
func (h *RoomHandler) CreatePublicRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	userID := middleware.GetUserID(r.Context())
	room, err := h.rooms.CreatePublic(r.Context(), userID, req.Name, req.Field, req.Description)
	if err != nil {
		writeServiceError(w, "room create public", err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

// DeleteRoom deletes a private room. Owner only; connected clients are
// notified through the realtime stream before the subscriptions drop.
func (h *RoomHandler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	userID := middleware.GetUserID(r.Context())
	room, err := h.rooms.Delete(r.Context(), userID, roomID)
	if err != nil {
		writeServiceError(w, "room delete", err)
		return
	}
	h.hub.CloseRoom(room.ID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ListMembers returns the member roster of a room.
func (h *RoomHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	userID := middleware.GetUserID(r.Context())
	members, err := h.members.Members(r.Context(), userID, roomID)
	if err != nil {
		writeServiceError(w, "room members", err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// LeaveRoom removes the caller's own membership and drops their live
// subscriptions to the room.
func (h *RoomHandler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	userID := middleware.GetUserID(r.Context())
	if err := h.members.Leave(r.Context(), userID, roomID); err != nil {
		writeServiceError(w, "room leave", err)
		return
	}
	h.hub.EvictUser(roomID, userID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

// RemoveMember kicks another member out of a private room. Owner only.
// The target's live subscriptions are dropped so they stop receiving the
// room's events immediately.
func (h *RoomHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	targetID := chi.URLParam(r, "userId")
	userID := middleware.GetUserID(r.Context())
	if err := h.members.RemoveMember(r.Context(), userID, roomID, targetID); err != nil {
		writeServiceError(w, "room remove member", err)
		return
	}
	h.hub.EvictUser(roomID, targetID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
