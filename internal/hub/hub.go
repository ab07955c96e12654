// Package hub fans typed game events out to the connections of a session
// room. It knows nothing about websockets: members implement Conn, so tests
// drive it with fakes and the transport layer adapts real sockets.
package hub

import (
	"log"
	"sync"
)

// Role is advisory membership metadata. Authorization happens before an
// action ever reaches the hub.
type Role string

const (
	RoleModerator Role = "admin"
	RolePlayer    Role = "player"
)

// Event is the broadcast envelope.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Conn is one room member. Send must not block indefinitely; returning an
// error removes the member from its room.
type Conn interface {
	Send(Event) error
	Close() error
}

type member struct {
	sessionID int64
	role      Role
	groupID   int64
}

// Hub tracks one room per session and broadcasts to every member.
type Hub struct {
	mu    sync.RWMutex
	rooms map[int64]map[Conn]member
	conns map[Conn]int64
}

func New() *Hub {
	return &Hub{
		rooms: make(map[int64]map[Conn]member),
		conns: make(map[Conn]int64),
	}
}

// Join places conn in the session's room. A conn joins at most one room;
// rejoining moves it.
func (h *Hub) Join(conn Conn, sessionID int64, role Role, groupID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.conns[conn]; ok {
		h.removeLocked(conn, prev)
	}
	room, ok := h.rooms[sessionID]
	if !ok {
		room = make(map[Conn]member)
		h.rooms[sessionID] = room
	}
	room[conn] = member{sessionID: sessionID, role: role, groupID: groupID}
	h.conns[conn] = sessionID
	log.Printf("ws: %s joined session %d (members: %d)", role, sessionID, len(room))
}

// Leave removes conn from its room, if any.
func (h *Hub) Leave(conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sessionID, ok := h.conns[conn]; ok {
		h.removeLocked(conn, sessionID)
	}
}

func (h *Hub) removeLocked(conn Conn, sessionID int64) {
	if room, ok := h.rooms[sessionID]; ok {
		delete(room, conn)
		if len(room) == 0 {
			delete(h.rooms, sessionID)
		}
	}
	delete(h.conns, conn)
}

// Members returns the current size of a session's room.
func (h *Hub) Members(sessionID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[sessionID])
}

// Emit delivers the event to every member of the session's room, the sender
// included. Delivery is fire-and-forget: a member whose Send fails is
// dropped and closed so it cannot stall the game for others.
func (h *Hub) Emit(sessionID int64, event string, payload any) {
	ev := Event{Type: event, Payload: payload}

	h.mu.RLock()
	targets := make([]Conn, 0, len(h.rooms[sessionID]))
	for conn := range h.rooms[sessionID] {
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	var dead []Conn
	for _, conn := range targets {
		if err := conn.Send(ev); err != nil {
			log.Printf("ws: dropping member of session %d: %v", sessionID, err)
			dead = append(dead, conn)
		}
	}
	if len(dead) == 0 {
		return
	}

	h.mu.Lock()
	for _, conn := range dead {
		if sid, ok := h.conns[conn]; ok {
			h.removeLocked(conn, sid)
		}
	}
	h.mu.Unlock()
	for _, conn := range dead {
		_ = conn.Close()
	}
}
