package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/globalmoves/community/internal/middleware"
	"github.com/globalmoves/community/internal/service"
	"github.com/globalmoves/community/internal/ws"
)

type BoardHandler struct {
	board *service.BoardService
	hub   *ws.Hub
}

func NewBoardHandler(board *service.BoardService, hub *ws.Hub) *BoardHandler {
	return &BoardHandler{board: board, hub: hub}
}

type ShareRequest struct {
	OpportunityID string `json:"opportunity_id"`
	Message       string `json:"message,omitempty"`
}

// ListOpportunities returns the active opportunity catalog.
func (h *BoardHandler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	items, err := h.board.Catalog(r.Context())
	if err != nil {
		writeServiceError(w, "opportunity catalog", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// GetOpportunity returns a single catalog entry.
func (h *BoardHandler) GetOpportunity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	item, err := h.board.CatalogItem(r.Context(), id)
	if err != nil {
		writeServiceError(w, "opportunity get", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// ListShares returns the opportunities shared to a room, newest first.
func (h *BoardHandler) ListShares(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	userID := middleware.GetUserID(r.Context())
	shares, err := h.board.List(r.Context(), userID, roomID)
	if err != nil {
		writeServiceError(w, "share list", err)
		return
	}
	writeJSON(w, http.StatusOK, shares)
}

// ShareOpportunity pins a catalog entry to a room's board and mirrors it
// into the realtime stream.
func (h *BoardHandler) ShareOpportunity(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	var req ShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	userID := middleware.GetUserID(r.Context())
	share, err := h.board.Share(r.Context(), userID, roomID, req.OpportunityID, req.Message)
	if err != nil {
		writeServiceError(w, "share create", err)
		return
	}
	h.hub.BroadcastToRoom(roomID, ws.OutgoingMessage{
		Type:    ws.EventOpportunityShared,
		Payload: ws.SharedOpportunityPayload{RoomID: roomID, Share: share},
	})
	writeJSON(w, http.StatusCreated, share)
}
