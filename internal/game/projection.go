package game

import (
	"context"
	"math"

	"ai-or-not-service/internal/domain"
)

// RoomState reconstructs the client-facing view of a room. This is the only
// shape that ever crosses the realtime boundary: while the room is asking,
// the projection simply has no place to carry the correct option or the
// explanation, so they cannot reach a client early.
func (s *Service) RoomState(ctx context.Context, code string) (*domain.RoomState, error) {
	room, err := s.store.RoomView(ctx, code)
	if err != nil {
		return nil, err
	}

	var current *domain.BoundQuestion
	if (room.Status == domain.StatusAsking || room.Status == domain.StatusRevealed) &&
		room.CurrentQuestionIndex >= 0 && room.CurrentQuestionIndex < len(room.Questions) {
		current = &room.Questions[room.CurrentQuestionIndex]
	}

	players := make([]domain.PlayerInfo, 0, len(room.Players))
	for _, p := range rankedPlayers(room) {
		players = append(players, domain.PlayerInfo{
			ID:          p.ID,
			Nickname:    p.Nickname,
			Score:       p.Score,
			HasAnswered: current != nil && hasAnswered(room.Answers, p.ID, current.Question.ID),
		})
	}

	state := &domain.RoomState{
		Code:         room.Code,
		Status:       room.Status,
		Players:      players,
		TotalPlayers: len(players),
	}
	if room.QuestionStartedAt != nil {
		ms := room.QuestionStartedAt.UnixMilli()
		state.QuestionStartedAt = &ms
	}

	ranking := players
	if len(ranking) > 5 {
		ranking = ranking[:5]
	}
	state.Ranking = ranking

	if current != nil {
		view := questionView(current, len(room.Questions))
		state.AnsweredCount = countAnswers(room.Answers, current.Question.ID)
		switch room.Status {
		case domain.StatusAsking:
			state.CurrentQuestion = &view
		case domain.StatusRevealed:
			state.RevealedQuestion = &domain.RevealedQuestion{
				QuestionView:  view,
				CorrectOption: current.Question.CorrectOption,
				Explanation:   current.Question.Explanation,
				Stats:         optionStats(current.Question, room.Answers),
			}
		}
	}
	return state, nil
}

func questionView(bq *domain.BoundQuestion, total int) domain.QuestionView {
	q := bq.Question
	return domain.QuestionView{
		ID:        q.ID,
		Type:      q.Type,
		Prompt:    q.Prompt,
		ImageURL:  q.ImageURL,
		ImageURL2: q.ImageURL2,
		Options:   q.Options,
		Index:     bq.OrderIndex,
		Total:     total,
	}
}

func optionStats(q domain.Question, answers []domain.Answer) []domain.OptionStats {
	total := countAnswers(answers, q.ID)
	stats := make([]domain.OptionStats, len(q.Options))
	for i := range q.Options {
		count := 0
		for _, a := range answers {
			if a.QuestionID == q.ID && a.SelectedOption == i {
				count++
			}
		}
		stats[i] = domain.OptionStats{Option: i, Count: count}
		if total > 0 {
			stats[i].Percentage = int(math.Round(float64(count) / float64(total) * 100))
		}
	}
	return stats
}

func countAnswers(answers []domain.Answer, questionID string) int {
	n := 0
	for _, a := range answers {
		if a.QuestionID == questionID {
			n++
		}
	}
	return n
}

func hasAnswered(answers []domain.Answer, playerID, questionID string) bool {
	for _, a := range answers {
		if a.PlayerID == playerID && a.QuestionID == questionID {
			return true
		}
	}
	return false
}
