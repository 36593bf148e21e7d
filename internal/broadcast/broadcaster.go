package broadcast

import (
	"context"
	"log"

	"ai-or-not-service/internal/domain"
	"ai-or-not-service/internal/game"
)

// Broadcaster glues the game engine to the hub: after a mutation it projects
// fresh room state and publishes it to the room's subscribers.
type Broadcaster struct {
	hub   *Hub
	games *game.Service
}

func NewBroadcaster(hub *Hub, games *game.Service) *Broadcaster {
	return &Broadcaster{hub: hub, games: games}
}

func (b *Broadcaster) Hub() *Hub {
	return b.hub
}

// RoomState publishes the recomputed projection to the whole room.
func (b *Broadcaster) RoomState(ctx context.Context, roomCode string) {
	state, err := b.games.RoomState(ctx, roomCode)
	if err != nil {
		log.Printf("broadcast state for room %s: %v", roomCode, err)
		return
	}
	b.hub.Publish(roomCode, Event{Type: EventRoomState, Payload: state})
}

// PlayerJoined announces a new player ahead of the full state refresh so
// clients can animate the join before the heavier payload lands.
func (b *Broadcaster) PlayerJoined(roomCode string, player domain.PlayerInfo) {
	b.hub.Publish(roomCode, Event{Type: EventPlayerJoined, Payload: player})
}

// AnswerProgress publishes only the aggregate answered/total tuple; who
// answered, and whether they were right, stays server-side until reveal.
func (b *Broadcaster) AnswerProgress(ctx context.Context, roomCode string) {
	state, err := b.games.RoomState(ctx, roomCode)
	if err != nil {
		log.Printf("broadcast progress for room %s: %v", roomCode, err)
		return
	}
	b.hub.Publish(roomCode, Event{Type: EventPlayerAnswered, Payload: Progress{
		AnsweredCount: state.AnsweredCount,
		TotalPlayers:  state.TotalPlayers,
	}})
}

// GameEnded publishes the final ranking. Distinct from RoomState because the
// room ceases to exist immediately after.
func (b *Broadcaster) GameEnded(roomCode string, ranking []domain.PlayerInfo) {
	b.hub.Publish(roomCode, Event{Type: EventGameEnded, Payload: FinalRanking{Ranking: ranking}})
}
