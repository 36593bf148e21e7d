package redis

import (
	"context"
	"time"

	"ai-or-not-service/internal/domain"
	"ai-or-not-service/internal/game"

	"github.com/redis/go-redis/v9"
)

// RoomIndex decorates a RoomStore with Redis liveness keys, one per active
// room code. The keys carry a TTL matching the room's expiry, so code
// allocation can answer CodeInUse without touching the primary store, and
// stale entries vanish on their own even if a delete marker is lost.
type RoomIndex struct {
	game.RoomStore
	client *redis.Client
	clock  func() time.Time
}

func NewRoomIndex(inner game.RoomStore, client *redis.Client) *RoomIndex {
	return &RoomIndex{RoomStore: inner, client: client, clock: time.Now}
}

func (s *RoomIndex) InsertRoom(ctx context.Context, room *domain.Room) error {
	if err := s.RoomStore.InsertRoom(ctx, room); err != nil {
		return err
	}
	ttl := room.ExpiresAt.Sub(s.clock())
	if ttl > 0 {
		// best-effort marker; the primary store stays authoritative
		_ = s.client.Set(ctx, s.key(room.Code), "1", ttl).Err()
	}
	return nil
}

func (s *RoomIndex) DeleteRoom(ctx context.Context, code string) error {
	if err := s.RoomStore.DeleteRoom(ctx, code); err != nil {
		return err
	}
	_ = s.client.Del(ctx, s.key(code)).Err()
	return nil
}

func (s *RoomIndex) CodeInUse(ctx context.Context, code string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(code)).Result()
	if err == nil && n > 0 {
		return true, nil
	}
	// Miss or Redis outage: the primary store decides.
	return s.RoomStore.CodeInUse(ctx, code)
}

func (s *RoomIndex) key(code string) string {
	return "room:active:" + code
}
