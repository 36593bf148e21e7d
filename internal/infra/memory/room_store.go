package memory

import (
	"context"
	"sync"
	"time"

	"ai-or-not-service/internal/domain"
)

// RoomStore is an in-memory implementation of game.RoomStore. A single mutex
// serializes every mutation, which gives the same guarantees the Postgres
// store gets from its constraints: unique nicknames per room, at most one
// answer per (room, player, question), and lost-update-free score deltas.
type RoomStore struct {
	mu         sync.RWMutex
	rooms      map[string]*domain.Room // key: room code
	playerRoom map[string]string       // player id -> room code
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms:      make(map[string]*domain.Room),
		playerRoom: make(map[string]string),
	}
}

func (s *RoomStore) InsertRoom(_ context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.Code]; ok {
		return domain.ErrCodeTaken
	}
	s.rooms[room.Code] = copyRoom(room)
	return nil
}

func (s *RoomStore) GetRoom(_ context.Context, code string) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	header := *room
	header.Questions, header.Players, header.Answers = nil, nil, nil
	return &header, nil
}

func (s *RoomStore) RoomView(_ context.Context, code string) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return copyRoom(room), nil
}

func (s *RoomStore) SetPhase(_ context.Context, code string, status domain.RoomStatus, questionIndex int, startedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return domain.ErrRoomNotFound
	}
	room.Status = status
	room.CurrentQuestionIndex = questionIndex
	if startedAt != nil {
		t := *startedAt
		room.QuestionStartedAt = &t
	} else {
		room.QuestionStartedAt = nil
	}
	return nil
}

func (s *RoomStore) InsertPlayer(_ context.Context, player *domain.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.roomByID(player.RoomID)
	if !ok {
		return domain.ErrRoomNotFound
	}
	for _, p := range room.Players {
		if p.Nickname == player.Nickname {
			return domain.ErrNicknameTaken
		}
	}
	room.Players = append(room.Players, *player)
	s.playerRoom[player.ID] = room.Code
	return nil
}

func (s *RoomStore) FindPlayerByNickname(_ context.Context, roomID, nickname string) (*domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.roomByID(roomID)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	for _, p := range room.Players {
		if p.Nickname == nickname {
			found := p
			return &found, nil
		}
	}
	return nil, domain.ErrPlayerNotFound
}

func (s *RoomStore) FindPlayer(_ context.Context, roomID, playerID string) (*domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.roomByID(roomID)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	for _, p := range room.Players {
		if p.ID == playerID {
			found := p
			return &found, nil
		}
	}
	return nil, domain.ErrPlayerNotFound
}

func (s *RoomStore) InsertAnswer(_ context.Context, answer *domain.Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.roomByID(answer.RoomID)
	if !ok {
		return domain.ErrRoomNotFound
	}
	member := false
	for _, p := range room.Players {
		if p.ID == answer.PlayerID {
			member = true
			break
		}
	}
	if !member {
		return domain.ErrPlayerNotFound
	}
	for _, a := range room.Answers {
		if a.PlayerID == answer.PlayerID && a.QuestionID == answer.QuestionID {
			return domain.ErrDuplicateAnswer
		}
	}
	room.Answers = append(room.Answers, *answer)
	return nil
}

func (s *RoomStore) IncrementScore(_ context.Context, playerID string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.playerRoom[playerID]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	room, ok := s.rooms[code]
	if !ok {
		return domain.ErrPlayerNotFound
	}
	for i := range room.Players {
		if room.Players[i].ID == playerID {
			room.Players[i].Score += delta
			return nil
		}
	}
	return domain.ErrPlayerNotFound
}

func (s *RoomStore) DeleteRoom(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return domain.ErrRoomNotFound
	}
	s.dropLocked(room)
	return nil
}

func (s *RoomStore) DeleteExpired(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for _, room := range s.rooms {
		if room.ExpiresAt.Before(cutoff) {
			s.dropLocked(room)
			removed++
		}
	}
	return removed, nil
}

func (s *RoomStore) CodeInUse(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[code]
	return ok, nil
}

func (s *RoomStore) roomByID(roomID string) (*domain.Room, bool) {
	for _, room := range s.rooms {
		if room.ID == roomID {
			return room, true
		}
	}
	return nil, false
}

func (s *RoomStore) dropLocked(room *domain.Room) {
	for _, p := range room.Players {
		delete(s.playerRoom, p.ID)
	}
	delete(s.rooms, room.Code)
}

func copyRoom(room *domain.Room) *domain.Room {
	dup := *room
	if room.QuestionStartedAt != nil {
		t := *room.QuestionStartedAt
		dup.QuestionStartedAt = &t
	}
	dup.Questions = append([]domain.BoundQuestion(nil), room.Questions...)
	dup.Players = append([]domain.Player(nil), room.Players...)
	dup.Answers = append([]domain.Answer(nil), room.Answers...)
	return &dup
}
