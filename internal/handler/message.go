package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/globalmoves/community/internal/middleware"
	"github.com/globalmoves/community/internal/service"
	"github.com/globalmoves/community/internal/ws"
)

type MessageHandler struct {
	chat *service.ChatService
	hub  *ws.Hub
}

func NewMessageHandler(chat *service.ChatService, hub *ws.Hub) *MessageHandler {
	return &MessageHandler{chat: chat, hub: hub}
}

type PostMessageRequest struct {
	Content string `json:"content"`
}

// GetMessages returns the full message history of a room in chronological order.
func (h *MessageHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	userID := middleware.GetUserID(r.Context())
	messages, err := h.chat.History(r.Context(), userID, roomID)
	if err != nil {
		writeServiceError(w, "message history", err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// PostMessage appends a message to a room and mirrors it into the
// realtime stream.
func (h *MessageHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	userID := middleware.GetUserID(r.Context())
	msg, err := h.chat.Post(r.Context(), userID, roomID, req.Content)
	if err != nil {
		writeServiceError(w, "message post", err)
		return
	}
	h.hub.BroadcastToRoom(roomID, ws.OutgoingMessage{Type: ws.EventMessageNew, Payload: msg})
	writeJSON(w, http.StatusCreated, msg)
}
