package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"ai-or-not-service/internal/broadcast"
	"ai-or-not-service/internal/domain"
	"ai-or-not-service/internal/game"

	"github.com/gorilla/websocket"
)

// WSHandler upgrades connections and wires inbound game events to the engine
// and outbound room events to the subscriber's socket.
type WSHandler struct {
	games    *game.Service
	caster   *broadcast.Broadcaster
	upgrader websocket.Upgrader
}

func NewWSHandler(games *game.Service, caster *broadcast.Broadcaster) *WSHandler {
	return &WSHandler{
		games:  games,
		caster: caster,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinRoomPayload struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

type hostJoinPayload struct {
	RoomCode string `json:"roomCode"`
}

type hostActionPayload struct {
	RoomCode string `json:"roomCode"`
	Action   string `json:"action"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS handles one realtime participant for the lifetime of its socket.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sess := &wsSession{
		handler: h,
		conn:    conn,
		send:    make(chan broadcast.Event, 16),
		done:    make(chan struct{}),
	}
	sess.run(r.Context())
}

// wsSession is the per-connection state: at most one room subscription plus
// the outbound queue drained by a single writer goroutine.
type wsSession struct {
	handler *WSHandler
	conn    *websocket.Conn
	send    chan broadcast.Event
	done    chan struct{}

	roomCode    string
	unsubscribe func()
	pumps       sync.WaitGroup
}

func (s *wsSession) run(ctx context.Context) {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for event := range s.send {
			if err := s.conn.WriteJSON(event); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	for {
		var inbound inboundEvent
		if err := s.conn.ReadJSON(&inbound); err != nil {
			break
		}
		s.dispatch(ctx, inbound)
	}

	close(s.done)
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.pumps.Wait()
	close(s.send)
	<-writerDone
}

func (s *wsSession) dispatch(ctx context.Context, inbound inboundEvent) {
	switch inbound.Type {
	case "join:room":
		var payload joinRoomPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			s.sendError("invalid join payload")
			return
		}
		s.joinRoom(ctx, payload)
	case "host:join":
		var payload hostJoinPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			s.sendError("invalid host join payload")
			return
		}
		s.hostJoin(ctx, payload)
	case "player:answer":
		var payload domain.AnswerSubmission
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			s.sendError("invalid answer payload")
			return
		}
		s.playerAnswer(ctx, payload)
	case "host:action":
		var payload hostActionPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			s.sendError("invalid host action payload")
			return
		}
		s.hostAction(ctx, payload)
	default:
		s.sendError("unsupported event type")
	}
}

func (s *wsSession) joinRoom(ctx context.Context, payload joinRoomPayload) {
	code := normalizeCode(payload.RoomCode)
	exists, err := s.handler.games.RoomExists(ctx, code)
	if err != nil || !exists {
		s.sendError("room not found")
		return
	}

	role := broadcast.RolePlayer
	if payload.PlayerID == "" {
		// The projector screen subscribes with no player identity.
		role = broadcast.RoleSpectator
	}

	// Announce before this socket subscribes: the join event is for the
	// participants already in the room, the joiner gets the snapshot.
	if payload.PlayerID != "" {
		if state, err := s.handler.games.RoomState(ctx, code); err == nil {
			for _, p := range state.Players {
				if p.ID == payload.PlayerID {
					s.handler.caster.PlayerJoined(code, p)
					break
				}
			}
		}
	}

	s.subscribe(code, role)
	s.handler.caster.RoomState(ctx, code)
}

func (s *wsSession) hostJoin(ctx context.Context, payload hostJoinPayload) {
	code := normalizeCode(payload.RoomCode)
	exists, err := s.handler.games.RoomExists(ctx, code)
	if err != nil || !exists {
		s.sendError("room not found")
		return
	}
	s.subscribe(code, broadcast.RoleHost)

	state, err := s.handler.games.RoomState(ctx, code)
	if err != nil {
		s.sendError(err.Error())
		return
	}
	s.sendEvent(broadcast.Event{Type: broadcast.EventRoomState, Payload: state})
}

func (s *wsSession) playerAnswer(ctx context.Context, payload domain.AnswerSubmission) {
	payload.RoomCode = normalizeCode(payload.RoomCode)
	if _, err := s.handler.games.SubmitAnswer(ctx, payload); err != nil {
		s.sendError(err.Error())
		return
	}
	// The submitter gets the full refresh; the room only learns the
	// aggregate progress, never who answered or whether they were right.
	if state, err := s.handler.games.RoomState(ctx, payload.RoomCode); err == nil {
		s.sendEvent(broadcast.Event{Type: broadcast.EventRoomState, Payload: state})
	}
	s.handler.caster.AnswerProgress(ctx, payload.RoomCode)
}

func (s *wsSession) hostAction(ctx context.Context, payload hostActionPayload) {
	code := normalizeCode(payload.RoomCode)
	switch payload.Action {
	case "start":
		if err := s.handler.games.Start(ctx, code); err != nil {
			s.sendError(err.Error())
			return
		}
	case "next":
		hasNext, err := s.handler.games.NextQuestion(ctx, code)
		if err != nil {
			s.sendError(err.Error())
			return
		}
		if !hasNext {
			ranking, err := s.handler.games.FinalRanking(ctx, code)
			if err != nil {
				s.sendError(err.Error())
				return
			}
			s.handler.caster.GameEnded(code, ranking)
		}
	case "reveal":
		if err := s.handler.games.Reveal(ctx, code); err != nil {
			s.sendError(err.Error())
			return
		}
	case "end":
		ranking, err := s.handler.games.FinalRanking(ctx, code)
		if err != nil {
			s.sendError(err.Error())
			return
		}
		s.handler.caster.GameEnded(code, ranking)
		if err := s.handler.games.End(ctx, code); err != nil {
			s.sendError(err.Error())
		}
		// The room is gone; there is no state left to broadcast.
		return
	default:
		s.sendError("unknown host action")
		return
	}
	s.handler.caster.RoomState(ctx, code)
}

func (s *wsSession) subscribe(code string, role broadcast.Role) {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.roomCode = code
	events, cancel := s.handler.caster.Hub().Subscribe(code, role)
	s.unsubscribe = cancel

	s.pumps.Add(1)
	go func() {
		defer s.pumps.Done()
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				select {
				case s.send <- event:
				case <-s.done:
					return
				}
			case <-s.done:
				return
			}
		}
	}()
}

func (s *wsSession) sendEvent(event broadcast.Event) {
	select {
	case s.send <- event:
	case <-s.done:
	}
}

func (s *wsSession) sendError(message string) {
	s.sendEvent(broadcast.Event{Type: broadcast.EventError, Payload: errorPayload{Message: message}})
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
