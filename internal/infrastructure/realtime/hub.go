package realtime

import (
	"sync"

	"marketchat/internal/metrics"
)

// Hub coordinates websocket sessions and conversation rooms. Fan-out is scoped
// server-side: an inserted-message event reaches only sessions joined to that
// conversation id, so clients never see traffic for conversations they are not
// viewing. One active connection is kept per user; detaching a session
// releases every room membership it held.
type Hub struct {
	mu           sync.RWMutex
	sessions     map[string]*Connection            // sessionID -> connection
	userSessions map[string]string                 // userID -> sessionID
	rooms        map[string]map[string]*Connection // conversationID -> sessionID -> connection
	sessionRooms map[string]map[string]struct{}    // sessionID -> set of conversationIDs
}

// NewHub constructs an initialized Hub.
func NewHub() *Hub {
	return &Hub{
		sessions:     make(map[string]*Connection),
		userSessions: make(map[string]string),
		rooms:        make(map[string]map[string]*Connection),
		sessionRooms: make(map[string]map[string]struct{}),
	}
}

// Attach registers a connection for the given user. If a previous session
// exists, it is removed and closed after the swap to enforce one active socket
// per user.
func (h *Hub) Attach(conn *Connection) {
	var previous *Connection

	h.mu.Lock()
	if existingID, ok := h.userSessions[conn.UserID]; ok {
		if existing := h.sessions[existingID]; existing != nil {
			previous = existing
			h.detachLocked(existingID)
		}
	}

	h.sessions[conn.ID] = conn
	h.userSessions[conn.UserID] = conn.ID
	h.sessionRooms[conn.ID] = make(map[string]struct{})
	h.mu.Unlock()

	metrics.WSSessions.Inc()
	conn.Start()

	if previous != nil {
		// The replaced session left tracking under the lock, so its own
		// Detach will skip the decrement.
		metrics.WSSessions.Dec()
		previous.Close(4001, "session replaced")
	}
}

// Detach removes a connection if it is still tracked.
func (h *Hub) Detach(conn *Connection) {
	h.mu.Lock()
	_, tracked := h.sessions[conn.ID]
	h.detachLocked(conn.ID)
	h.mu.Unlock()
	if tracked {
		metrics.WSSessions.Dec()
	}
}

// Join adds the connection to the conversation room.
func (h *Hub) Join(conversationID string, conn *Connection) {
	h.mu.Lock()
	if _, ok := h.sessions[conn.ID]; !ok {
		h.mu.Unlock()
		return
	}

	room := h.rooms[conversationID]
	if room == nil {
		room = make(map[string]*Connection)
		h.rooms[conversationID] = room
	}
	room[conn.ID] = conn

	memberships := h.sessionRooms[conn.ID]
	if memberships == nil {
		memberships = make(map[string]struct{})
		h.sessionRooms[conn.ID] = memberships
	}
	memberships[conversationID] = struct{}{}
	h.mu.Unlock()
}

// Leave removes the connection from the conversation room.
func (h *Hub) Leave(conversationID string, conn *Connection) {
	h.mu.Lock()
	h.leaveLocked(conversationID, conn.ID)
	h.mu.Unlock()
}

// Broadcast writes payload to members of the conversation room. eventID keys
// per-session delivery dedup: a session that already received this event id
// is skipped. Returns the number of sessions delivered to.
func (h *Hub) Broadcast(conversationID string, eventID string, payload []byte) int {
	h.mu.RLock()
	room := h.rooms[conversationID]
	if len(room) == 0 {
		h.mu.RUnlock()
		return 0
	}

	delivered := 0
	for _, conn := range room {
		if !conn.MarkDelivered(eventID) {
			continue
		}
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	h.mu.RUnlock()

	metrics.WSBroadcasts.Add(float64(delivered))
	return delivered
}

// NotifyUser delivers payload to the current connection of the given user,
// regardless of room membership.
func (h *Hub) NotifyUser(userID string, payload []byte) bool {
	h.mu.RLock()
	sessionID, ok := h.userSessions[userID]
	if !ok {
		h.mu.RUnlock()
		return false
	}
	conn := h.sessions[sessionID]
	h.mu.RUnlock()
	if conn == nil {
		return false
	}
	return conn.Send(payload) == nil
}

// Close terminates all tracked connections and clears hub state.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := make([]*Connection, 0, len(h.sessions))
	for _, conn := range h.sessions {
		sessions = append(sessions, conn)
	}
	h.sessions = make(map[string]*Connection)
	h.userSessions = make(map[string]string)
	h.rooms = make(map[string]map[string]*Connection)
	h.sessionRooms = make(map[string]map[string]struct{})
	h.mu.Unlock()

	for _, conn := range sessions {
		conn.Close(1001, "hub shutdown")
	}
	metrics.WSSessions.Set(0)
}

func (h *Hub) detachLocked(sessionID string) {
	conn, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	delete(h.sessions, sessionID)

	if current, ok := h.userSessions[conn.UserID]; ok && current == sessionID {
		delete(h.userSessions, conn.UserID)
	}

	for roomID := range h.sessionRooms[sessionID] {
		h.leaveLocked(roomID, sessionID)
	}
	delete(h.sessionRooms, sessionID)
}

func (h *Hub) leaveLocked(conversationID string, sessionID string) {
	if sessionID == "" {
		return
	}
	room := h.rooms[conversationID]
	if room == nil {
		return
	}
	delete(room, sessionID)
	if len(room) == 0 {
		delete(h.rooms, conversationID)
	}
	if memberships, ok := h.sessionRooms[sessionID]; ok {
		delete(memberships, conversationID)
		if len(memberships) == 0 {
			delete(h.sessionRooms, sessionID)
		}
	}
}
