package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ai-or-not-service/internal/domain"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type roomRow struct {
	bun.BaseModel `bun:"table:rooms,alias:r"`

	ID                   string     `bun:"id,pk"`
	Code                 string     `bun:"code"`
	Status               string     `bun:"status"`
	CurrentQuestionIndex int        `bun:"current_question_index"`
	QuestionStartedAt    *time.Time `bun:"question_started_at"`
	ExpiresAt            time.Time  `bun:"expires_at"`
	CreatedAt            time.Time  `bun:"created_at"`
}

type roomQuestionRow struct {
	bun.BaseModel `bun:"table:room_questions,alias:rq"`

	RoomID     string `bun:"room_id"`
	QuestionID string `bun:"question_id"`
	OrderIndex int    `bun:"order_index"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID            string          `bun:"id,pk"`
	Type          string          `bun:"type"`
	Prompt        string          `bun:"prompt"`
	ImageURL      sql.NullString  `bun:"image_url"`
	ImageURL2     sql.NullString  `bun:"image_url2"`
	Options       json.RawMessage `bun:"options"`
	CorrectOption int             `bun:"correct_option"`
	Explanation   string          `bun:"explanation"`
	IsActive      bool            `bun:"is_active"`
	OrderIndex    int             `bun:"order_index"`
}

type playerRow struct {
	bun.BaseModel `bun:"table:players,alias:p"`

	ID       string    `bun:"id,pk"`
	RoomID   string    `bun:"room_id"`
	Nickname string    `bun:"nickname"`
	Score    int       `bun:"score"`
	JoinedAt time.Time `bun:"joined_at"`
}

type answerRow struct {
	bun.BaseModel `bun:"table:answers,alias:a"`

	RoomID         string    `bun:"room_id"`
	PlayerID       string    `bun:"player_id"`
	QuestionID     string    `bun:"question_id"`
	SelectedOption int       `bun:"selected_option"`
	IsCorrect      bool      `bun:"is_correct"`
	TimeMs         int       `bun:"time_ms"`
	CreatedAt      time.Time `bun:"created_at"`
}

// RoomStore is the Postgres implementation of game.RoomStore. The schema
// carries the engine's hard guarantees: the (room, player, question) primary
// key on answers serializes duplicate submissions, score updates run as SQL
// deltas, and ON DELETE CASCADE implements room teardown.
type RoomStore struct {
	db *bun.DB
}

func NewRoomStore(db *bun.DB) *RoomStore {
	return &RoomStore{db: db}
}

func (s *RoomStore) InsertRoom(ctx context.Context, room *domain.Room) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := &roomRow{
			ID:                   room.ID,
			Code:                 room.Code,
			Status:               string(room.Status),
			CurrentQuestionIndex: room.CurrentQuestionIndex,
			QuestionStartedAt:    room.QuestionStartedAt,
			ExpiresAt:            room.ExpiresAt,
			CreatedAt:            room.CreatedAt,
		}
		if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrCodeTaken
			}
			return fmt.Errorf("insert room: %w", err)
		}
		if len(room.Questions) == 0 {
			return nil
		}
		bindings := make([]roomQuestionRow, len(room.Questions))
		for i, bq := range room.Questions {
			bindings[i] = roomQuestionRow{
				RoomID:     room.ID,
				QuestionID: bq.Question.ID,
				OrderIndex: bq.OrderIndex,
			}
		}
		if _, err := tx.NewInsert().Model(&bindings).Exec(ctx); err != nil {
			return fmt.Errorf("bind questions: %w", err)
		}
		return nil
	})
}

func (s *RoomStore) GetRoom(ctx context.Context, code string) (*domain.Room, error) {
	row := new(roomRow)
	err := s.db.NewSelect().Model(row).Where("code = ?", code).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room: %w", err)
	}
	return roomFromRow(row), nil
}

func (s *RoomStore) RoomView(ctx context.Context, code string) (*domain.Room, error) {
	room, err := s.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}

	var bindings []roomQuestionRow
	if err := s.db.NewSelect().Model(&bindings).
		Where("room_id = ?", room.ID).
		Order("order_index ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("load bound questions: %w", err)
	}

	if len(bindings) > 0 {
		ids := make([]string, len(bindings))
		for i, b := range bindings {
			ids[i] = b.QuestionID
		}
		var qRows []questionRow
		if err := s.db.NewSelect().Model(&qRows).
			Where("id IN (?)", bun.In(ids)).
			Scan(ctx); err != nil {
			return nil, fmt.Errorf("load questions: %w", err)
		}
		byID := make(map[string]questionRow, len(qRows))
		for _, q := range qRows {
			byID[q.ID] = q
		}
		room.Questions = make([]domain.BoundQuestion, 0, len(bindings))
		for _, b := range bindings {
			q, ok := byID[b.QuestionID]
			if !ok {
				continue
			}
			dq, err := questionFromRow(&q)
			if err != nil {
				return nil, err
			}
			room.Questions = append(room.Questions, domain.BoundQuestion{
				RoomID:     room.ID,
				OrderIndex: b.OrderIndex,
				Question:   dq,
			})
		}
	}

	var pRows []playerRow
	if err := s.db.NewSelect().Model(&pRows).
		Where("room_id = ?", room.ID).
		Order("score DESC", "joined_at ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	room.Players = make([]domain.Player, len(pRows))
	for i, p := range pRows {
		room.Players[i] = domain.Player{
			ID:       p.ID,
			RoomID:   p.RoomID,
			Nickname: p.Nickname,
			Score:    p.Score,
			JoinedAt: p.JoinedAt,
		}
	}

	var aRows []answerRow
	if err := s.db.NewSelect().Model(&aRows).
		Where("room_id = ?", room.ID).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	room.Answers = make([]domain.Answer, len(aRows))
	for i, a := range aRows {
		room.Answers[i] = domain.Answer{
			RoomID:         a.RoomID,
			PlayerID:       a.PlayerID,
			QuestionID:     a.QuestionID,
			SelectedOption: a.SelectedOption,
			Correct:        a.IsCorrect,
			TimeMs:         a.TimeMs,
			CreatedAt:      a.CreatedAt,
		}
	}
	return room, nil
}

func (s *RoomStore) SetPhase(ctx context.Context, code string, status domain.RoomStatus, questionIndex int, startedAt *time.Time) error {
	res, err := s.db.NewUpdate().Model((*roomRow)(nil)).
		Set("status = ?", string(status)).
		Set("current_question_index = ?", questionIndex).
		Set("question_started_at = ?", startedAt).
		Where("code = ?", code).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set phase: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (s *RoomStore) InsertPlayer(ctx context.Context, player *domain.Player) error {
	row := &playerRow{
		ID:       player.ID,
		RoomID:   player.RoomID,
		Nickname: player.Nickname,
		Score:    player.Score,
		JoinedAt: player.JoinedAt,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrNicknameTaken
		}
		return fmt.Errorf("insert player: %w", err)
	}
	return nil
}

func (s *RoomStore) FindPlayerByNickname(ctx context.Context, roomID, nickname string) (*domain.Player, error) {
	row := new(playerRow)
	err := s.db.NewSelect().Model(row).
		Where("room_id = ?", roomID).
		Where("nickname = ?", nickname).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find player: %w", err)
	}
	return &domain.Player{
		ID:       row.ID,
		RoomID:   row.RoomID,
		Nickname: row.Nickname,
		Score:    row.Score,
		JoinedAt: row.JoinedAt,
	}, nil
}

func (s *RoomStore) InsertAnswer(ctx context.Context, answer *domain.Answer) error {
	row := &answerRow{
		RoomID:         answer.RoomID,
		PlayerID:       answer.PlayerID,
		QuestionID:     answer.QuestionID,
		SelectedOption: answer.SelectedOption,
		IsCorrect:      answer.Correct,
		TimeMs:         answer.TimeMs,
		CreatedAt:      answer.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateAnswer
		}
		if isForeignKeyViolation(err, "player_id") {
			return domain.ErrPlayerNotFound
		}
		return fmt.Errorf("insert answer: %w", err)
	}
	return nil
}

func (s *RoomStore) FindPlayer(ctx context.Context, roomID, playerID string) (*domain.Player, error) {
	row := new(playerRow)
	err := s.db.NewSelect().Model(row).
		Where("room_id = ?", roomID).
		Where("id = ?", playerID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find player: %w", err)
	}
	return &domain.Player{
		ID:       row.ID,
		RoomID:   row.RoomID,
		Nickname: row.Nickname,
		Score:    row.Score,
		JoinedAt: row.JoinedAt,
	}, nil
}

func (s *RoomStore) IncrementScore(ctx context.Context, playerID string, delta int) error {
	res, err := s.db.NewUpdate().Model((*playerRow)(nil)).
		Set("score = score + ?", delta).
		Where("id = ?", playerID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("increment score: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrPlayerNotFound
	}
	return nil
}

func (s *RoomStore) DeleteRoom(ctx context.Context, code string) error {
	res, err := s.db.NewDelete().Model((*roomRow)(nil)).
		Where("code = ?", code).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete room: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrRoomNotFound
	}
	return nil
}

func (s *RoomStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.NewDelete().Model((*roomRow)(nil)).
		Where("expires_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete expired rooms: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *RoomStore) CodeInUse(ctx context.Context, code string) (bool, error) {
	exists, err := s.db.NewSelect().Model((*roomRow)(nil)).
		Where("code = ?", code).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check code: %w", err)
	}
	return exists, nil
}

func roomFromRow(row *roomRow) *domain.Room {
	return &domain.Room{
		ID:                   row.ID,
		Code:                 row.Code,
		Status:               domain.RoomStatus(row.Status),
		CurrentQuestionIndex: row.CurrentQuestionIndex,
		QuestionStartedAt:    row.QuestionStartedAt,
		ExpiresAt:            row.ExpiresAt,
		CreatedAt:            row.CreatedAt,
	}
}

func questionFromRow(row *questionRow) (domain.Question, error) {
	q := domain.Question{
		ID:            row.ID,
		Type:          domain.QuestionType(row.Type),
		Prompt:        row.Prompt,
		ImageURL:      row.ImageURL.String,
		ImageURL2:     row.ImageURL2.String,
		CorrectOption: row.CorrectOption,
		Explanation:   row.Explanation,
		Active:        row.IsActive,
		OrderIndex:    row.OrderIndex,
	}
	if err := json.Unmarshal(row.Options, &q.Options); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal options for question %s: %w", row.ID, err)
	}
	return q, nil
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == pgUniqueViolation
}

// isForeignKeyViolation matches SQLSTATE 23503 raised by the constraint on
// the given column.
func isForeignKeyViolation(err error, column string) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == pgForeignKeyViolation &&
		strings.Contains(pgErr.Field('n'), column)
}
