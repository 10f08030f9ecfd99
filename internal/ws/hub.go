package ws

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/globalmoves/community/internal/logger"
	"github.com/globalmoves/community/internal/model"
	"github.com/globalmoves/community/internal/service"
)

const (
	defaultMaxConns = 10000
	opQueueSize     = 256
	registerBufSize = 64
)

// Config holds the hub and per-connection tunables. Zero values fall
// back to the defaults in client.go.
type Config struct {
	MaxConns       int
	SendBufferSize int
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	MaxMessageSize int64
}

// ChatBackend is the slice of the chat service the hub needs:
// room access checks, message persistence and display names.
type ChatBackend interface {
	Authorize(ctx context.Context, userID, roomID string) error
	Post(ctx context.Context, userID, roomID, content string) (*model.Message, error)
	SenderName(ctx context.Context, userID string) string
}

type registration struct {
	client *Client
	ok     chan bool
}

// Hub routes realtime events between connected clients.
//
// All room state (subscriptions and the presence roster) is owned by the
// Run loop and mutated only there. External callers submit work through
// the ops channel, which also gives every room a single fan-out order:
// two events enqueued for the same room reach every subscriber in the
// same sequence.
type Hub struct {
	chat ChatBackend

	register   chan registration
	unregister chan *Client
	ops        chan func()
	done       chan struct{}

	// Run-loop state. Never touched outside the loop.
	clients     map[*Client]struct{}
	rooms       map[string]map[*Client]struct{}
	clientRooms map[*Client]map[string]struct{}
	presence    *presenceTable

	cfg Config
}

func NewHub(chat ChatBackend, cfg Config) *Hub {
	if cfg.MaxConns <= 0 {
		cfg.MaxConns = defaultMaxConns
	}
	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = defaultSendBufSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteWait
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = defaultPongWait
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}
	return &Hub{
		chat:        chat,
		register:    make(chan registration, registerBufSize),
		unregister:  make(chan *Client, registerBufSize),
		ops:         make(chan func(), opQueueSize),
		done:        make(chan struct{}),
		clients:     make(map[*Client]struct{}),
		rooms:       make(map[string]map[*Client]struct{}),
		clientRooms: make(map[*Client]map[string]struct{}),
		presence:    newPresenceTable(),
		cfg:         cfg,
	}
}

// Run processes hub events until ctx is cancelled. It must run in exactly
// one goroutine.
func (h *Hub) Run(ctx context.Context) {
	logger.Info("ws hub started")
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case reg := <-h.register:
			reg.ok <- h.addClient(reg.client)
		case c := <-h.unregister:
			h.removeClient(c)
		case op := <-h.ops:
			op()
		}
	}
}

// Register adds a client to the hub. It returns false when the hub is
// shutting down or the connection limit is reached; the caller must then
// close the connection itself.
func (h *Hub) Register(c *Client) bool {
	reg := registration{client: c, ok: make(chan bool, 1)}
	select {
	case h.register <- reg:
	case <-h.done:
		return false
	}
	select {
	case ok := <-reg.ok:
		return ok
	case <-h.done:
		return false
	}
}

// Unregister detaches a client from the hub, leaving every room it had
// joined. Called from the client's read pump on disconnect.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// do submits fn to the run loop. Dropped silently during shutdown.
func (h *Hub) do(fn func()) {
	select {
	case h.ops <- fn:
	case <-h.done:
	}
}

// HandleMessage dispatches a client command. It runs on the client's read
// pump goroutine, so database work happens here and only the resulting
// state change is handed to the run loop.
func (h *Hub) HandleMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	switch msg.Type {
	case CommandJoinRoom:
		h.handleJoin(ctx, c, msg.RoomID)
	case CommandLeaveRoom:
		h.handleLeave(c, msg.RoomID)
	case CommandSendMessage:
		h.handleSend(ctx, c, msg.RoomID, msg.Content)
	default:
		h.sendError(c, "unknown command type")
	}
}

func (h *Hub) handleJoin(ctx context.Context, c *Client, roomID string) {
	if roomID == "" {
		h.sendError(c, "room_id is required")
		return
	}
	if err := h.chat.Authorize(ctx, c.userID, roomID); err != nil {
		h.sendError(c, userFacing(err))
		return
	}
	name := h.chat.SenderName(ctx, c.userID)
	h.do(func() {
		rooms, ok := h.clientRooms[c]
		if !ok {
			// Client disconnected before the op ran.
			return
		}
		if _, joined := rooms[roomID]; joined {
			h.sendToClient(c, OutgoingMessage{
				Type:    EventPresenceSync,
				Payload: PresenceSyncPayload{RoomID: roomID, Users: h.presence.Snapshot(roomID)},
			})
			return
		}
		rooms[roomID] = struct{}{}
		subs := h.rooms[roomID]
		if subs == nil {
			subs = make(map[*Client]struct{})
			h.rooms[roomID] = subs
		}
		subs[c] = struct{}{}

		first := h.presence.Join(roomID, c.userID, name)
		h.sendToClient(c, OutgoingMessage{
			Type:    EventPresenceSync,
			Payload: PresenceSyncPayload{RoomID: roomID, Users: h.presence.Snapshot(roomID)},
		})
		if first {
			join := OutgoingMessage{
				Type:    EventPresenceJoin,
				Payload: PresenceJoinPayload{RoomID: roomID, User: PresenceEntry{UserID: c.userID, DisplayName: name}},
			}
			for sub := range subs {
				if sub == c {
					continue
				}
				h.sendToClient(sub, join)
			}
		}
	})
}

func (h *Hub) handleLeave(c *Client, roomID string) {
	if roomID == "" {
		h.sendError(c, "room_id is required")
		return
	}
	h.do(func() {
		h.leaveRoom(c, roomID)
	})
}

func (h *Hub) handleSend(ctx context.Context, c *Client, roomID, content string) {
	if roomID == "" {
		h.sendError(c, "room_id is required")
		return
	}
	msg, err := h.chat.Post(ctx, c.userID, roomID, content)
	if err != nil {
		h.sendError(c, userFacing(err))
		return
	}
	h.BroadcastToRoom(roomID, OutgoingMessage{Type: EventMessageNew, Payload: msg})
}

// BroadcastToRoom fans an event out to every client subscribed to roomID.
// Safe to call from any goroutine; REST handlers use it to mirror writes
// into the realtime stream.
func (h *Hub) BroadcastToRoom(roomID string, msg OutgoingMessage) {
	h.do(func() {
		h.broadcast(roomID, msg)
	})
}

// CloseRoom notifies a room's subscribers that the room is gone and tears
// down its subscriptions and presence. Called after a room is deleted.
func (h *Hub) CloseRoom(roomID string) {
	h.do(func() {
		h.broadcast(roomID, OutgoingMessage{
			Type:    EventRoomDeleted,
			Payload: RoomDeletedPayload{RoomID: roomID},
		})
		for c := range h.rooms[roomID] {
			delete(h.clientRooms[c], roomID)
		}
		delete(h.rooms, roomID)
		h.presence.Drop(roomID)
	})
}

// EvictUser unsubscribes every connection userID has in roomID, so realtime
// delivery stops the moment the membership is revoked. Remaining subscribers
// get a presence_leave if the user was present.
func (h *Hub) EvictUser(roomID, userID string) {
	h.do(func() {
		subs := h.rooms[roomID]
		var present bool
		for c := range subs {
			if c.userID != userID {
				continue
			}
			delete(h.clientRooms[c], roomID)
			delete(subs, c)
			if h.presence.Leave(roomID, userID) {
				present = true
			}
		}
		if len(subs) == 0 {
			delete(h.rooms, roomID)
		}
		if present {
			h.broadcast(roomID, OutgoingMessage{
				Type:    EventPresenceLeave,
				Payload: PresenceLeavePayload{RoomID: roomID, UserID: userID},
			})
		}
	})
}

// --- run-loop internals ---

func (h *Hub) addClient(c *Client) bool {
	if len(h.clients) >= h.cfg.MaxConns {
		logger.Errorf("ws connection limit reached (%d), rejecting user=%s", h.cfg.MaxConns, c.userID)
		return false
	}
	h.clients[c] = struct{}{}
	h.clientRooms[c] = make(map[string]struct{})
	return true
}

func (h *Hub) removeClient(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	for roomID := range h.clientRooms[c] {
		h.leaveRoom(c, roomID)
	}
	delete(h.clientRooms, c)
	delete(h.clients, c)
	c.Close()
}

// leaveRoom drops one client from one room and broadcasts the presence
// change if the user has no other connection left in it.
func (h *Hub) leaveRoom(c *Client, roomID string) {
	rooms := h.clientRooms[c]
	if _, ok := rooms[roomID]; !ok {
		return
	}
	delete(rooms, roomID)
	subs := h.rooms[roomID]
	delete(subs, c)
	if len(subs) == 0 {
		delete(h.rooms, roomID)
	}
	if h.presence.Leave(roomID, c.userID) {
		h.broadcast(roomID, OutgoingMessage{
			Type:    EventPresenceLeave,
			Payload: PresenceLeavePayload{RoomID: roomID, UserID: c.userID},
		})
	}
}

func (h *Hub) broadcast(roomID string, msg OutgoingMessage) {
	for c := range h.rooms[roomID] {
		h.sendToClient(c, msg)
	}
}

// sendToClient enqueues msg without blocking the run loop. A client whose
// send buffer is full is disconnected rather than allowed to stall the
// whole room.
func (h *Hub) sendToClient(c *Client, msg OutgoingMessage) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		logger.Errorf("ws send buffer full, dropping client user=%s", c.userID)
		c.Close()
	}
}

func (h *Hub) sendError(c *Client, message string) {
	h.do(func() {
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: ErrorPayload{Message: message}})
	})
}

func (h *Hub) shutdown() {
	close(h.done)
	logger.Infof("ws hub shutting down, closing %d connections", len(h.clients))
	for c := range h.clients {
		c.Close()
	}
	for c := range h.clients {
		c.Wait()
	}
	h.clients = make(map[*Client]struct{})
	h.rooms = make(map[string]map[*Client]struct{})
	h.clientRooms = make(map[*Client]map[string]struct{})
	h.presence = newPresenceTable()
	logger.Info("ws hub stopped")
}

// userFacing extracts a message suitable for the error event. Service
// errors carry user-facing text; anything else is masked.
func userFacing(err error) string {
	var serr *service.Error
	if errors.As(err, &serr) {
		return strings.TrimSpace(serr.Msg)
	}
	return "internal error"
}
