package game_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-or-not-service/internal/domain"
	"ai-or-not-service/internal/game"
	"ai-or-not-service/internal/infra/memory"
)

func testQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:            "q1",
			Type:          domain.TypeImageClassify,
			Prompt:        "Which image is generated?",
			Options:       []string{"Image A", "Image B"},
			CorrectOption: 1,
			Explanation:   "B has six fingers.",
			Active:        true,
			OrderIndex:    1,
		},
		{
			ID:            "q2",
			Type:          domain.TypeTextClassify,
			Prompt:        "Which text is generated?",
			Options:       []string{"Text A", "Text B"},
			CorrectOption: 0,
			Explanation:   "A never commits to a concrete fact.",
			Active:        true,
			OrderIndex:    2,
		},
		{
			ID:            "q3",
			Type:          domain.TypeHallucinationCheck,
			Prompt:        "Is the claim reliable?",
			Options:       []string{"Reliable", "Hallucination"},
			CorrectOption: 1,
			Explanation:   "The cited law does not exist.",
			Active:        true,
			OrderIndex:    3,
		},
	}
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestService(t *testing.T) (*game.Service, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2025, 7, 1, 9, 0, 0, 0, time.UTC)}
	store := memory.NewRoomStore()
	questions := memory.NewQuestionBank(memory.NewStaticQuestionLoader(testQuestions()), time.Minute)
	return game.NewServiceWithClock(store, questions, 24*time.Hour, clock.Now), clock
}

// currentQuestion resolves the question on screen via the projection, which is
// the same view clients act on.
func currentQuestion(t *testing.T, service *game.Service, code string) domain.Question {
	t.Helper()
	state, err := service.RoomState(context.Background(), code)
	if err != nil {
		t.Fatalf("room state failed: %v", err)
	}
	if state.CurrentQuestion == nil {
		t.Fatalf("no current question in status %s", state.Status)
	}
	for _, q := range testQuestions() {
		if q.ID == state.CurrentQuestion.ID {
			return q
		}
	}
	t.Fatalf("unknown question %s", state.CurrentQuestion.ID)
	return domain.Question{}
}

func TestFullGameFlow(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	code, expiresAt, err := service.CreateRoom(ctx, nil)
	if err != nil {
		t.Fatalf("create room failed: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("unexpected room code %q", code)
	}
	if expiresAt.IsZero() {
		t.Fatalf("expected an expiry timestamp")
	}

	aliceID, err := service.Join(ctx, code, "Alice")
	if err != nil {
		t.Fatalf("alice join failed: %v", err)
	}
	bobID, err := service.Join(ctx, code, "Bob")
	if err != nil {
		t.Fatalf("bob join failed: %v", err)
	}

	if err := service.Start(ctx, code); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := service.Start(ctx, code); !errors.Is(err, domain.ErrAlreadyStarted) {
		t.Fatalf("second start returned %v, want ErrAlreadyStarted", err)
	}

	q := currentQuestion(t, service, code)

	res, err := service.SubmitAnswer(ctx, domain.AnswerSubmission{
		RoomCode:       code,
		PlayerID:       aliceID,
		QuestionID:     q.ID,
		SelectedOption: q.CorrectOption,
		TimeMs:         5000,
	})
	if err != nil {
		t.Fatalf("alice submit failed: %v", err)
	}
	if !res.Correct || res.Points != 138 {
		t.Fatalf("alice got %+v, want correct with 138 points", res)
	}

	wrong := (q.CorrectOption + 1) % len(q.Options)
	res, err = service.SubmitAnswer(ctx, domain.AnswerSubmission{
		RoomCode:       code,
		PlayerID:       bobID,
		SelectedOption: wrong,
		TimeMs:         3000,
	})
	if err != nil {
		t.Fatalf("bob submit failed: %v", err)
	}
	if res.Correct || res.Points != 0 {
		t.Fatalf("bob got %+v, want incorrect with 0 points", res)
	}

	state, err := service.RoomState(ctx, code)
	if err != nil {
		t.Fatalf("room state failed: %v", err)
	}
	if state.AnsweredCount != 2 || state.TotalPlayers != 2 {
		t.Fatalf("progress %d/%d, want 2/2", state.AnsweredCount, state.TotalPlayers)
	}
	if state.Players[0].Nickname != "Alice" || state.Players[0].Score != 138 {
		t.Fatalf("expected Alice leading with 138, got %+v", state.Players[0])
	}

	if err := service.Reveal(ctx, code); err != nil {
		t.Fatalf("reveal failed: %v", err)
	}
	state, err = service.RoomState(ctx, code)
	if err != nil {
		t.Fatalf("room state failed: %v", err)
	}
	if state.RevealedQuestion == nil {
		t.Fatalf("expected revealed question in status %s", state.Status)
	}
	if state.RevealedQuestion.CorrectOption != q.CorrectOption {
		t.Fatalf("revealed option %d, want %d", state.RevealedQuestion.CorrectOption, q.CorrectOption)
	}
	for _, st := range state.RevealedQuestion.Stats {
		if st.Count == 1 && st.Percentage != 50 {
			t.Fatalf("option %d has %d%%, want 50%%", st.Option, st.Percentage)
		}
	}

	for i := 0; i < 2; i++ {
		hasNext, err := service.NextQuestion(ctx, code)
		if err != nil {
			t.Fatalf("next failed: %v", err)
		}
		if !hasNext {
			t.Fatalf("expected question %d to exist", i+2)
		}
	}
	hasNext, err := service.NextQuestion(ctx, code)
	if err != nil {
		t.Fatalf("next failed: %v", err)
	}
	if hasNext {
		t.Fatalf("expected the sequence to be exhausted")
	}

	ranking, err := service.FinalRanking(ctx, code)
	if err != nil {
		t.Fatalf("final ranking failed: %v", err)
	}
	if len(ranking) != 2 || ranking[0].ID != aliceID {
		t.Fatalf("unexpected final ranking %+v", ranking)
	}

	if err := service.End(ctx, code); err != nil {
		t.Fatalf("end failed: %v", err)
	}
	exists, err := service.RoomExists(ctx, code)
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if exists {
		t.Fatalf("ended room still reported as existing")
	}
}

func TestJoinIsIdempotentPerNickname(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	code, _, err := service.CreateRoom(ctx, nil)
	if err != nil {
		t.Fatalf("create room failed: %v", err)
	}
	first, err := service.Join(ctx, code, "Maria")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	second, err := service.Join(ctx, code, "  Maria ")
	if err != nil {
		t.Fatalf("rejoin failed: %v", err)
	}
	if first != second {
		t.Fatalf("rejoin returned a new player id")
	}

	otherCode, _, err := service.CreateRoom(ctx, nil)
	if err != nil {
		t.Fatalf("create room failed: %v", err)
	}
	third, err := service.Join(ctx, otherCode, "Maria")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if third == first {
		t.Fatalf("same nickname in a different room reused the player id")
	}
}

func TestJoinValidatesNickname(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	code, _, err := service.CreateRoom(ctx, nil)
	if err != nil {
		t.Fatalf("create room failed: %v", err)
	}
	if _, err := service.Join(ctx, code, "   "); !errors.Is(err, domain.ErrInvalidNickname) {
		t.Fatalf("blank nickname returned %v, want ErrInvalidNickname", err)
	}

	long := "abcdefghijklmnopqrstuvwxyz-0123456789"
	first, err := service.Join(ctx, code, long)
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	// Truncation happens before uniqueness, so the capped form rejoins.
	second, err := service.Join(ctx, code, long[:30])
	if err != nil {
		t.Fatalf("rejoin failed: %v", err)
	}
	if first != second {
		t.Fatalf("truncated nickname did not resolve to the same player")
	}
}

func TestCreateRoomRejectsEmptySelection(t *testing.T) {
	ctx := context.Background()
	clock := &testClock{now: time.Now()}
	store := memory.NewRoomStore()
	questions := memory.NewQuestionBank(memory.NewStaticQuestionLoader(nil), time.Minute)
	service := game.NewServiceWithClock(store, questions, time.Hour, clock.Now)

	if _, _, err := service.CreateRoom(ctx, nil); !errors.Is(err, domain.ErrNoQuestionsAvailable) {
		t.Fatalf("empty bank returned %v, want ErrNoQuestionsAvailable", err)
	}
}

func TestCreateRoomRejectsUnknownIDs(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	if _, _, err := service.CreateRoom(ctx, []string{"nope"}); !errors.Is(err, domain.ErrNoQuestionsAvailable) {
		t.Fatalf("unknown ids returned %v, want ErrNoQuestionsAvailable", err)
	}
}

func TestSubmitAnswerGuards(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	code, _, err := service.CreateRoom(ctx, nil)
	if err != nil {
		t.Fatalf("create room failed: %v", err)
	}
	playerID, err := service.Join(ctx, code, "Alice")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}

	_, err = service.SubmitAnswer(ctx, domain.AnswerSubmission{RoomCode: code, PlayerID: playerID, SelectedOption: 0})
	if !errors.Is(err, domain.ErrNotAcceptingAnswers) {
		t.Fatalf("lobby submit returned %v, want ErrNotAcceptingAnswers", err)
	}

	if err := service.Start(ctx, code); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	q := currentQuestion(t, service, code)

	_, err = service.SubmitAnswer(ctx, domain.AnswerSubmission{
		RoomCode: code, PlayerID: playerID, QuestionID: "stale", SelectedOption: 0,
	})
	if !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("stale question returned %v, want ErrQuestionNotFound", err)
	}

	_, err = service.SubmitAnswer(ctx, domain.AnswerSubmission{
		RoomCode: code, PlayerID: playerID, SelectedOption: len(q.Options),
	})
	if !errors.Is(err, domain.ErrInvalidOption) {
		t.Fatalf("out-of-range option returned %v, want ErrInvalidOption", err)
	}

	if _, err = service.SubmitAnswer(ctx, domain.AnswerSubmission{
		RoomCode: code, PlayerID: playerID, SelectedOption: q.CorrectOption, TimeMs: 1000,
	}); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	_, err = service.SubmitAnswer(ctx, domain.AnswerSubmission{
		RoomCode: code, PlayerID: playerID, SelectedOption: q.CorrectOption, TimeMs: 2000,
	})
	if !errors.Is(err, domain.ErrDuplicateAnswer) {
		t.Fatalf("second submit returned %v, want ErrDuplicateAnswer", err)
	}

	if err := service.Reveal(ctx, code); err != nil {
		t.Fatalf("reveal failed: %v", err)
	}
	_, err = service.SubmitAnswer(ctx, domain.AnswerSubmission{
		RoomCode: code, PlayerID: playerID, SelectedOption: 0,
	})
	if !errors.Is(err, domain.ErrNotAcceptingAnswers) {
		t.Fatalf("revealed submit returned %v, want ErrNotAcceptingAnswers", err)
	}
}

func TestSubmitAnswerRequiresJoinedPlayer(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	code, _, err := service.CreateRoom(ctx, nil)
	if err != nil {
		t.Fatalf("create room failed: %v", err)
	}
	if _, err := service.Join(ctx, code, "Alice"); err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if err := service.Start(ctx, code); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	q := currentQuestion(t, service, code)

	// Neither a correct nor an incorrect submission from a player who never
	// joined may persist anything.
	for _, option := range []int{q.CorrectOption, (q.CorrectOption + 1) % len(q.Options)} {
		_, err := service.SubmitAnswer(ctx, domain.AnswerSubmission{
			RoomCode: code, PlayerID: "p-unknown", SelectedOption: option, TimeMs: 1000,
		})
		if !errors.Is(err, domain.ErrPlayerNotFound) {
			t.Fatalf("unjoined submit returned %v, want ErrPlayerNotFound", err)
		}
	}

	state, err := service.RoomState(ctx, code)
	if err != nil {
		t.Fatalf("room state failed: %v", err)
	}
	if state.AnsweredCount != 0 {
		t.Fatalf("answered count %d after rejected submissions, want 0", state.AnsweredCount)
	}
	if state.AnsweredCount > state.TotalPlayers {
		t.Fatalf("answered count %d exceeds player count %d", state.AnsweredCount, state.TotalPlayers)
	}
}

// racingStore simulates another instance grabbing the code between the
// availability check and the insert.
type racingStore struct {
	game.RoomStore
	races int
}

func (s *racingStore) InsertRoom(ctx context.Context, room *domain.Room) error {
	if s.races > 0 {
		s.races--
		return domain.ErrCodeTaken
	}
	return s.RoomStore.InsertRoom(ctx, room)
}

func TestCreateRoomRetriesOnInsertRace(t *testing.T) {
	ctx := context.Background()
	store := &racingStore{RoomStore: memory.NewRoomStore(), races: 2}
	questions := memory.NewQuestionBank(memory.NewStaticQuestionLoader(testQuestions()), time.Minute)
	service := game.NewService(store, questions, time.Hour)

	code, _, err := service.CreateRoom(ctx, nil)
	if err != nil {
		t.Fatalf("create room failed: %v", err)
	}
	if store.races != 0 {
		t.Fatalf("expected both races consumed, %d left", store.races)
	}
	exists, err := service.RoomExists(ctx, code)
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if !exists {
		t.Fatalf("room missing after retried create")
	}
}

func TestProjectionHidesAnswerWhileAsking(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(t)

	code, _, err := service.CreateRoom(ctx, nil)
	if err != nil {
		t.Fatalf("create room failed: %v", err)
	}
	if err := service.Start(ctx, code); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	state, err := service.RoomState(ctx, code)
	if err != nil {
		t.Fatalf("room state failed: %v", err)
	}
	if state.CurrentQuestion == nil {
		t.Fatalf("expected a current question while asking")
	}
	if state.RevealedQuestion != nil {
		t.Fatalf("revealed payload leaked while asking")
	}
}

func TestRoomExpiry(t *testing.T) {
	ctx := context.Background()
	service, clock := newTestService(t)

	code, _, err := service.CreateRoom(ctx, nil)
	if err != nil {
		t.Fatalf("create room failed: %v", err)
	}

	clock.Advance(25 * time.Hour)

	exists, err := service.RoomExists(ctx, code)
	if err != nil {
		t.Fatalf("exists failed: %v", err)
	}
	if exists {
		t.Fatalf("expired room reported as joinable")
	}
	if _, err := service.Join(ctx, code, "Late"); !errors.Is(err, domain.ErrRoomExpired) {
		t.Fatalf("join on expired room returned %v, want ErrRoomExpired", err)
	}

	removed, err := service.CleanupExpired(ctx)
	if err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("cleanup removed %d rooms, want 1", removed)
	}
	if _, err := service.RoomState(ctx, code); !errors.Is(err, domain.ErrRoomNotFound) {
		t.Fatalf("state after sweep returned %v, want ErrRoomNotFound", err)
	}
}
