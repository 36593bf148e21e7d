package game

import (
	"context"
	"time"

	"ai-or-not-service/internal/domain"
)

// RoomStore is the session store port: the single source of truth for rooms,
// their bound questions, players and answers. Implementations must enforce
// two things the engine cannot do race-free on its own:
//
//   - at most one answer per (room, player, question), surfaced as
//     domain.ErrDuplicateAnswer from InsertAnswer;
//   - IncrementScore applied as an atomic delta, never read-modify-write.
type RoomStore interface {
	// InsertRoom persists a room together with its bound question sequence.
	// A code collision with an existing room yields domain.ErrCodeTaken.
	InsertRoom(ctx context.Context, room *domain.Room) error
	// GetRoom returns the room header (no owned collections) or
	// domain.ErrRoomNotFound.
	GetRoom(ctx context.Context, code string) (*domain.Room, error)
	// RoomView returns the room with questions (in bound order), players and
	// answers populated. Player ordering is not part of the contract; the
	// engine ranks them itself.
	RoomView(ctx context.Context, code string) (*domain.Room, error)
	// SetPhase updates status, question index and question start time in one
	// mutation.
	SetPhase(ctx context.Context, code string, status domain.RoomStatus, questionIndex int, startedAt *time.Time) error
	// InsertPlayer adds a player; a nickname collision within the room yields
	// domain.ErrNicknameTaken.
	InsertPlayer(ctx context.Context, player *domain.Player) error
	// FindPlayerByNickname returns the room's player with that nickname or
	// domain.ErrPlayerNotFound.
	FindPlayerByNickname(ctx context.Context, roomID, nickname string) (*domain.Player, error)
	// FindPlayer returns the room's player with that id or
	// domain.ErrPlayerNotFound.
	FindPlayer(ctx context.Context, roomID, playerID string) (*domain.Player, error)
	InsertAnswer(ctx context.Context, answer *domain.Answer) error
	IncrementScore(ctx context.Context, playerID string, delta int) error
	// DeleteRoom removes the room and cascades to players, bound questions
	// and answers. Returns domain.ErrRoomNotFound when absent.
	DeleteRoom(ctx context.Context, code string) error
	// DeleteExpired removes every room whose expiry precedes cutoff and
	// reports how many were swept.
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, error)
	// CodeInUse reports whether a room with this code physically exists,
	// expired or not. Used by code allocation.
	CodeInUse(ctx context.Context, code string) (bool, error)
}

// QuestionSource supplies read-only question content from the bank owned by
// the admin subsystem.
type QuestionSource interface {
	// ActiveQuestions returns every active question in catalog order.
	ActiveQuestions(ctx context.Context) ([]domain.Question, error)
	// QuestionsByID resolves specific ids, keeping only active questions.
	QuestionsByID(ctx context.Context, ids []string) ([]domain.Question, error)
}
