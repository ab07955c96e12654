package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"camembert-game-service/internal/app"
	"camembert-game-service/internal/domain"
	"camembert-game-service/internal/hub"
)

// WSHandler upgrades connections and translates the wire protocol into game
// service calls. Every state change comes back through the hub; errors go
// only to the offending sender.
type WSHandler struct {
	service  *app.GameService
	rooms    *hub.Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService, rooms *hub.Hub) *WSHandler {
	return &WSHandler{
		service: service,
		rooms:   rooms,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	SessionID int64  `json:"sessionId"`
	Role      string `json:"role"`
	GroupID   int64  `json:"groupId"`
}

type sessionPayload struct {
	SessionID int64 `json:"sessionId"`
}

type submitPayload struct {
	SessionID    int64  `json:"sessionId"`
	GroupID      int64  `json:"groupId"`
	QuestionID   int64  `json:"questionId"`
	Answer       string `json:"answer"`
	StoppedTimer bool   `json:"stoppedTimer"`
}

type validatePayload struct {
	SessionID    int64 `json:"sessionId"`
	GroupID      int64 `json:"groupId"`
	QuestionID   int64 `json:"questionId"`
	IsCorrect    bool  `json:"isCorrect"`
	StoppedTimer bool  `json:"stoppedTimer"`
}

type revealPayload struct {
	SessionID int64  `json:"sessionId"`
	Answer    string `json:"answer"`
}

type adjustPayload struct {
	SessionID int64  `json:"sessionId"`
	GroupID   int64  `json:"groupId"`
	Category  string `json:"category"`
	Delta     int    `json:"delta"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS handles one client connection for its lifetime.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade failed: %v", err)
		return
	}

	client := newWSClient(conn)
	defer client.Close()
	defer h.rooms.Leave(client)

	joined := false
	ctx := r.Context()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}

		if inbound.Type == "joinSession" {
			var payload joinPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.SessionID == 0 {
				client.sendError("invalid joinSession payload")
				continue
			}
			role := hub.RolePlayer
			if payload.Role == string(hub.RoleModerator) {
				role = hub.RoleModerator
			}
			h.rooms.Join(client, payload.SessionID, role, payload.GroupID)
			joined = true
			continue
		}
		if !joined {
			client.sendError("join a session first")
			continue
		}

		var opErr error
		switch inbound.Type {
		case "startGame":
			var payload sessionPayload
			if opErr = json.Unmarshal(inbound.Payload, &payload); opErr == nil {
				opErr = h.service.Start(ctx, payload.SessionID)
			}
		case "nextQuestion":
			var payload sessionPayload
			if opErr = json.Unmarshal(inbound.Payload, &payload); opErr == nil {
				opErr = h.service.Advance(ctx, payload.SessionID)
			}
		case "endGame":
			var payload sessionPayload
			if opErr = json.Unmarshal(inbound.Payload, &payload); opErr == nil {
				opErr = h.service.End(ctx, payload.SessionID)
			}
		case "resetGame":
			var payload sessionPayload
			if opErr = json.Unmarshal(inbound.Payload, &payload); opErr == nil {
				opErr = h.service.Reset(ctx, payload.SessionID)
			}
		case "submitAnswer":
			var payload submitPayload
			if opErr = json.Unmarshal(inbound.Payload, &payload); opErr == nil {
				opErr = h.service.SubmitAnswer(ctx, domain.AnswerSubmission{
					SessionID:    payload.SessionID,
					GroupID:      payload.GroupID,
					QuestionID:   payload.QuestionID,
					Answer:       payload.Answer,
					StoppedTimer: payload.StoppedTimer,
				})
			}
		case "validateAnswer":
			var payload validatePayload
			if opErr = json.Unmarshal(inbound.Payload, &payload); opErr == nil {
				opErr = h.service.ValidateAnswer(ctx, payload.SessionID, payload.GroupID, payload.QuestionID,
					payload.IsCorrect, payload.StoppedTimer, true)
			}
		case "validateAnswerNoPoints":
			var payload validatePayload
			if opErr = json.Unmarshal(inbound.Payload, &payload); opErr == nil {
				opErr = h.service.ValidateAnswer(ctx, payload.SessionID, payload.GroupID, payload.QuestionID,
					payload.IsCorrect, payload.StoppedTimer, false)
			}
		case "revealAnswer":
			var payload revealPayload
			if opErr = json.Unmarshal(inbound.Payload, &payload); opErr == nil {
				opErr = h.service.RevealAnswer(ctx, payload.SessionID, payload.Answer)
			}
		case "adjustCamembert":
			var payload adjustPayload
			if opErr = json.Unmarshal(inbound.Payload, &payload); opErr == nil {
				opErr = h.service.AdjustPoints(ctx, payload.SessionID, payload.GroupID,
					domain.Category(payload.Category), payload.Delta)
			}
		default:
			client.sendError("unsupported message type")
			continue
		}
		if opErr != nil {
			log.Printf("ws: %s failed: %v", inbound.Type, opErr)
			client.sendError(opErr.Error())
		}
	}
}

// wsClient adapts a gorilla connection to hub.Conn. Writes go through a
// buffered channel drained by one writer goroutine; a full buffer fails the
// Send so the hub drops the client instead of the room stalling behind it.
type wsClient struct {
	conn *websocket.Conn
	send chan hub.Event
	done chan struct{}
	once sync.Once
}

func newWSClient(conn *websocket.Conn) *wsClient {
	c := &wsClient{
		conn: conn,
		send: make(chan hub.Event, 32),
		done: make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

func (c *wsClient) writeLoop() {
	for {
		select {
		case ev := <-c.send:
			if err := c.conn.WriteJSON(ev); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *wsClient) Send(ev hub.Event) error {
	select {
	case <-c.done:
		return errors.New("connection closed")
	default:
	}
	select {
	case c.send <- ev:
		return nil
	default:
		return errors.New("send buffer full")
	}
}

func (c *wsClient) Close() error {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
	return nil
}

func (c *wsClient) sendError(message string) {
	_ = c.Send(hub.Event{Type: "error", Payload: errorPayload{Message: message}})
}
