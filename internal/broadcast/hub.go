package broadcast

import (
	"sync"

	"ai-or-not-service/internal/domain"
)

// Role classifies a subscriber. All roles share the room's channel today;
// the role is kept per subscription so payload redaction can diverge later
// without changing the transport.
type Role string

const (
	RoleHost      Role = "host"
	RolePlayer    Role = "player"
	RoleSpectator Role = "spectator"
)

// Outbound event types.
const (
	EventRoomState      = "room:state"
	EventPlayerJoined   = "player:joined"
	EventPlayerAnswered = "player:answered"
	EventGameEnded      = "game:ended"
	EventError          = "error"
)

// Event is the envelope delivered to every subscriber of a room.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Progress is the aggregate published after each answer. It deliberately
// carries no player identity and no correctness.
type Progress struct {
	AnsweredCount int `json:"answeredCount"`
	TotalPlayers  int `json:"totalPlayers"`
}

// FinalRanking is the terminal event payload; the room is deleted right
// after it is published, so clients cannot query state afterwards.
type FinalRanking struct {
	Ranking []domain.PlayerInfo `json:"ranking"`
}

type subscriber struct {
	ch   chan Event
	role Role
}

// Hub fans events out to every party subscribed to a room's channel. It is
// transport-agnostic: the game engine never sees a socket.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*subscriber]struct{})}
}

// Subscribe registers a listener on a room's channel. The returned cancel
// function must be called to release the subscription.
func (h *Hub) Subscribe(roomCode string, role Role) (<-chan Event, func()) {
	sub := &subscriber{ch: make(chan Event, 8), role: role}

	h.mu.Lock()
	if h.rooms[roomCode] == nil {
		h.rooms[roomCode] = make(map[*subscriber]struct{})
	}
	h.rooms[roomCode][sub] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		subs, ok := h.rooms[roomCode]
		if !ok {
			return
		}
		if _, ok := subs[sub]; ok {
			delete(subs, sub)
			close(sub.ch)
		}
		if len(subs) == 0 {
			delete(h.rooms, roomCode)
		}
	}
	return sub.ch, cancel
}

// Publish delivers an event to every subscriber of a room. A slow consumer
// loses its oldest pending event rather than blocking the whole room.
func (h *Hub) Publish(roomCode string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.rooms[roomCode] {
		select {
		case sub.ch <- event:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- event:
			default:
			}
		}
	}
}

// SubscriberCount reports how many parties are on a room's channel.
func (h *Hub) SubscriberCount(roomCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomCode])
}
