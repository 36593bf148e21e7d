package redis

import (
	"context"
	"testing"
	"time"

	"ai-or-not-service/internal/domain"
	"ai-or-not-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestRoomIndexTracksActiveCodes(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewRoomIndex(memory.NewRoomStore(), newClient(mr))

	room := &domain.Room{
		ID:        "room-1",
		Code:      "GHJ234",
		Status:    domain.StatusLobby,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := store.InsertRoom(ctx, room); err != nil {
		t.Fatalf("insert room: %v", err)
	}
	if !mr.Exists("room:active:GHJ234") {
		t.Fatalf("expected a liveness key for the new room")
	}

	inUse, err := store.CodeInUse(ctx, "GHJ234")
	if err != nil {
		t.Fatalf("code in use: %v", err)
	}
	if !inUse {
		t.Fatalf("active code reported free")
	}

	if err := store.DeleteRoom(ctx, "GHJ234"); err != nil {
		t.Fatalf("delete room: %v", err)
	}
	if mr.Exists("room:active:GHJ234") {
		t.Fatalf("liveness key survived room deletion")
	}
	inUse, err = store.CodeInUse(ctx, "GHJ234")
	if err != nil {
		t.Fatalf("code in use: %v", err)
	}
	if inUse {
		t.Fatalf("deleted code still reported in use")
	}
}

func TestRoomIndexFallsBackToPrimaryStore(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	inner := memory.NewRoomStore()
	store := NewRoomIndex(inner, newClient(mr))

	// Seed the primary store directly, bypassing the index.
	room := &domain.Room{ID: "room-2", Code: "KLM567", Status: domain.StatusLobby, ExpiresAt: time.Now().Add(time.Hour)}
	if err := inner.InsertRoom(ctx, room); err != nil {
		t.Fatalf("insert room: %v", err)
	}

	inUse, err := store.CodeInUse(ctx, "KLM567")
	if err != nil {
		t.Fatalf("code in use: %v", err)
	}
	if !inUse {
		t.Fatalf("expected primary store to decide on an index miss")
	}
}

func TestRoomIndexKeyExpiresWithRoom(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewRoomIndex(memory.NewRoomStore(), newClient(mr))

	room := &domain.Room{ID: "room-3", Code: "NPQ892", Status: domain.StatusLobby, ExpiresAt: time.Now().Add(time.Minute)}
	if err := store.InsertRoom(ctx, room); err != nil {
		t.Fatalf("insert room: %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if mr.Exists("room:active:NPQ892") {
		t.Fatalf("liveness key outlived the room TTL")
	}
}
