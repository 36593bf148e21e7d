package game

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sort"
	"strings"
	"time"

	"ai-or-not-service/internal/domain"

	"github.com/google/uuid"
)

const (
	// DefaultRoomTTL bounds how long an abandoned room survives.
	DefaultRoomTTL = 24 * time.Hour

	// maxCodeAttempts caps collision retries during code allocation. At the
	// chosen alphabet and length this only trips when the code space is
	// effectively saturated.
	maxCodeAttempts = 25

	maxNicknameLen = 30
)

// Service is the game engine: it validates facilitator and player actions
// against current room state and mutates the store accordingly.
type Service struct {
	store     RoomStore
	questions QuestionSource
	roomTTL   time.Duration
	now       func() time.Time
}

func NewService(store RoomStore, questions QuestionSource, roomTTL time.Duration) *Service {
	return NewServiceWithClock(store, questions, roomTTL, time.Now)
}

// NewServiceWithClock allows deterministic timestamps in tests.
func NewServiceWithClock(store RoomStore, questions QuestionSource, roomTTL time.Duration, now func() time.Time) *Service {
	if roomTTL <= 0 {
		roomTTL = DefaultRoomTTL
	}
	return &Service{
		store:     store,
		questions: questions,
		roomTTL:   roomTTL,
		now:       now,
	}
}

// CreateRoom allocates a unique code and binds a shuffled question sequence.
// An explicit id list restricts the selection; otherwise every active
// question is used. An empty resolved set is rejected rather than producing
// a room that could never leave the lobby.
func (s *Service) CreateRoom(ctx context.Context, questionIDs []string) (string, time.Time, error) {
	var selected []domain.Question
	var err error
	if len(questionIDs) > 0 {
		selected, err = s.questions.QuestionsByID(ctx, questionIDs)
	} else {
		selected, err = s.questions.ActiveQuestions(ctx)
	}
	if err != nil {
		return "", time.Time{}, err
	}
	if len(selected) == 0 {
		return "", time.Time{}, domain.ErrNoQuestionsAvailable
	}

	// Shuffle a copy; the source may hand out a shared cached slice.
	selected = append([]domain.Question(nil), selected...)
	rand.Shuffle(len(selected), func(i, j int) {
		selected[i], selected[j] = selected[j], selected[i]
	})

	now := s.now()
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := GenerateRoomCode()
		taken, err := s.store.CodeInUse(ctx, code)
		if err != nil {
			return "", time.Time{}, err
		}
		if taken {
			continue
		}

		room := &domain.Room{
			ID:        uuid.NewString(),
			Code:      code,
			Status:    domain.StatusLobby,
			ExpiresAt: now.Add(s.roomTTL),
			CreatedAt: now,
		}
		room.Questions = make([]domain.BoundQuestion, len(selected))
		for i, q := range selected {
			room.Questions[i] = domain.BoundQuestion{RoomID: room.ID, OrderIndex: i, Question: q}
		}

		err = s.store.InsertRoom(ctx, room)
		if errors.Is(err, domain.ErrCodeTaken) {
			// Lost the race between CodeInUse and the insert; new code.
			continue
		}
		if err != nil {
			return "", time.Time{}, err
		}
		log.Printf("room %s created with %d questions, expires %s", code, len(selected), room.ExpiresAt.Format(time.RFC3339))
		return code, room.ExpiresAt, nil
	}
	return "", time.Time{}, domain.ErrCodeSpaceExhausted
}

// Join adds a player to a room, or returns the existing player when the
// nickname is already present. The rejoin path is a reconnection affordance
// for dropped clients, not authentication: no secret is checked.
func (s *Service) Join(ctx context.Context, code, nickname string) (playerID string, err error) {
	room, err := s.liveRoom(ctx, code)
	if err != nil {
		return "", err
	}

	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		return "", domain.ErrInvalidNickname
	}
	if runes := []rune(nickname); len(runes) > maxNicknameLen {
		nickname = string(runes[:maxNicknameLen])
	}

	if existing, err := s.store.FindPlayerByNickname(ctx, room.ID, nickname); err == nil {
		return existing.ID, nil
	} else if !errors.Is(err, domain.ErrPlayerNotFound) {
		return "", err
	}

	player := &domain.Player{
		ID:       uuid.NewString(),
		RoomID:   room.ID,
		Nickname: nickname,
		JoinedAt: s.now(),
	}
	err = s.store.InsertPlayer(ctx, player)
	if errors.Is(err, domain.ErrNicknameTaken) {
		// A concurrent join with the same nickname beat us; adopt that player.
		existing, ferr := s.store.FindPlayerByNickname(ctx, room.ID, nickname)
		if ferr != nil {
			return "", ferr
		}
		return existing.ID, nil
	}
	if err != nil {
		return "", err
	}
	log.Printf("player %q joined room %s", nickname, room.Code)
	return player.ID, nil
}

// Start moves a lobby room to its first question.
func (s *Service) Start(ctx context.Context, code string) error {
	room, err := s.store.GetRoom(ctx, code)
	if err != nil {
		return err
	}
	if room.Status != domain.StatusLobby {
		return domain.ErrAlreadyStarted
	}
	now := s.now()
	if err := s.store.SetPhase(ctx, room.Code, domain.StatusAsking, 0, &now); err != nil {
		return err
	}
	log.Printf("game started in room %s", room.Code)
	return nil
}

// NextQuestion advances the room to the following question and reports
// whether one existed. When the sequence is exhausted it mutates nothing and
// returns false so the caller can finalize instead.
func (s *Service) NextQuestion(ctx context.Context, code string) (bool, error) {
	room, err := s.store.RoomView(ctx, code)
	if err != nil {
		return false, err
	}
	next := room.CurrentQuestionIndex + 1
	if next >= len(room.Questions) {
		return false, nil
	}
	now := s.now()
	if err := s.store.SetPhase(ctx, room.Code, domain.StatusAsking, next, &now); err != nil {
		return false, err
	}
	log.Printf("room %s: question %d/%d", room.Code, next+1, len(room.Questions))
	return true, nil
}

// Reveal shows the current question's result. The index does not advance.
func (s *Service) Reveal(ctx context.Context, code string) error {
	room, err := s.store.GetRoom(ctx, code)
	if err != nil {
		return err
	}
	if room.Status != domain.StatusAsking {
		return domain.ErrNoActiveQuestion
	}
	return s.store.SetPhase(ctx, room.Code, domain.StatusRevealed, room.CurrentQuestionIndex, room.QuestionStartedAt)
}

// SubmitAnswer validates, scores and persists a single answer. The insert is
// the serialization point for duplicates: the store's uniqueness constraint,
// not the preceding state checks, is what makes double submissions safe.
func (s *Service) SubmitAnswer(ctx context.Context, sub domain.AnswerSubmission) (domain.AnswerResult, error) {
	room, err := s.store.RoomView(ctx, sub.RoomCode)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	if room.Status != domain.StatusAsking {
		return domain.AnswerResult{}, domain.ErrNotAcceptingAnswers
	}
	if room.CurrentQuestionIndex < 0 || room.CurrentQuestionIndex >= len(room.Questions) {
		return domain.AnswerResult{}, domain.ErrNoActiveQuestion
	}
	if _, err := s.store.FindPlayer(ctx, room.ID, sub.PlayerID); err != nil {
		return domain.AnswerResult{}, err
	}

	question := room.Questions[room.CurrentQuestionIndex].Question
	if sub.QuestionID != "" && sub.QuestionID != question.ID {
		// Stale client answering a question that is no longer on screen.
		return domain.AnswerResult{}, domain.ErrQuestionNotFound
	}
	if sub.SelectedOption < 0 || sub.SelectedOption >= len(question.Options) {
		return domain.AnswerResult{}, domain.ErrInvalidOption
	}

	correct := sub.SelectedOption == question.CorrectOption
	points := Score(correct, sub.TimeMs)

	answer := &domain.Answer{
		RoomID:         room.ID,
		PlayerID:       sub.PlayerID,
		QuestionID:     question.ID,
		SelectedOption: sub.SelectedOption,
		Correct:        correct,
		TimeMs:         sub.TimeMs,
		CreatedAt:      s.now(),
	}
	if err := s.store.InsertAnswer(ctx, answer); err != nil {
		return domain.AnswerResult{}, err
	}
	if points > 0 {
		if err := s.store.IncrementScore(ctx, sub.PlayerID, points); err != nil {
			return domain.AnswerResult{}, err
		}
	}
	return domain.AnswerResult{Correct: correct, Points: points}, nil
}

// End deletes the room and everything it owns. Ending a missing room is an
// error; the caller is expected to have checked existence.
func (s *Service) End(ctx context.Context, code string) error {
	if err := s.store.DeleteRoom(ctx, code); err != nil {
		return err
	}
	log.Printf("room %s ended, data removed", code)
	return nil
}

// CleanupExpired sweeps rooms whose expiry has passed and reports the count.
func (s *Service) CleanupExpired(ctx context.Context) (int, error) {
	removed, err := s.store.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		log.Printf("removed %d expired rooms", removed)
	}
	return removed, nil
}

// RoomExists reports whether a room is joinable: present, not ended and not
// past its expiry. Expired rooms read as absent even before a sweep runs.
func (s *Service) RoomExists(ctx context.Context, code string) (bool, error) {
	room, err := s.store.GetRoom(ctx, code)
	if errors.Is(err, domain.ErrRoomNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return room.Status != domain.StatusEnded && !room.Expired(s.now()), nil
}

// FinalRanking returns the top players of a room by score.
func (s *Service) FinalRanking(ctx context.Context, code string) ([]domain.PlayerInfo, error) {
	room, err := s.store.RoomView(ctx, code)
	if err != nil {
		return nil, err
	}
	players := rankedPlayers(room)
	if len(players) > 10 {
		players = players[:10]
	}
	ranking := make([]domain.PlayerInfo, len(players))
	for i, p := range players {
		ranking[i] = domain.PlayerInfo{ID: p.ID, Nickname: p.Nickname, Score: p.Score}
	}
	return ranking, nil
}

func (s *Service) liveRoom(ctx context.Context, code string) (*domain.Room, error) {
	room, err := s.store.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	if room.Status == domain.StatusEnded {
		return nil, domain.ErrRoomEnded
	}
	if room.Expired(s.now()) {
		return nil, domain.ErrRoomExpired
	}
	return room, nil
}

func rankedPlayers(room *domain.Room) []domain.Player {
	players := make([]domain.Player, len(room.Players))
	copy(players, room.Players)
	sort.SliceStable(players, func(i, j int) bool {
		if players[i].Score != players[j].Score {
			return players[i].Score > players[j].Score
		}
		return players[i].JoinedAt.Before(players[j].JoinedAt)
	})
	return players
}
