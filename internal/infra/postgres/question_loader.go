package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-or-not-service/internal/domain"

	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionLoader reads the question bank maintained by the admin subsystem.
// The game only ever selects; it never validates or mutates the content.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadActive(ctx context.Context) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, type, prompt, COALESCE(image_url, ''), COALESCE(image_url2, ''),
		       options, correct_option, explanation, order_index
		FROM questions
		WHERE is_active
		ORDER BY order_index`)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		var optionsJSON []byte
		if err := rows.Scan(&q.ID, &q.Type, &q.Prompt, &q.ImageURL, &q.ImageURL2,
			&optionsJSON, &q.CorrectOption, &q.Explanation, &q.OrderIndex); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(optionsJSON, &q.Options); err != nil {
			return nil, fmt.Errorf("unmarshal options for question %s: %w", q.ID, err)
		}
		q.Active = true
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
