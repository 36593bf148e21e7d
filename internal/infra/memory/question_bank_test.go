package memory

import (
	"context"
	"testing"
	"time"

	"ai-or-not-service/internal/domain"
)

func TestQuestionBankCaches(t *testing.T) {
	loader := &countingLoader{
		QuestionLoader: NewStaticQuestionLoader(sampleBank()),
	}
	bank := NewQuestionBank(loader, time.Minute)

	first, err := bank.ActiveQuestions(context.Background())
	if err != nil {
		t.Fatalf("active questions: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}
	if len(first) != 2 {
		t.Fatalf("expected 2 active questions, got %d", len(first))
	}

	if _, err := bank.ActiveQuestions(context.Background()); err != nil {
		t.Fatalf("active questions 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuestionsByIDFiltersInactive(t *testing.T) {
	bank := NewQuestionBank(NewStaticQuestionLoader(sampleBank()), time.Minute)

	selected, err := bank.QuestionsByID(context.Background(), []string{"q1", "q-inactive", "q-missing"})
	if err != nil {
		t.Fatalf("questions by id: %v", err)
	}
	if len(selected) != 1 || selected[0].ID != "q1" {
		t.Fatalf("expected only q1, got %+v", selected)
	}
}

func TestStaticLoaderOrdersByIndex(t *testing.T) {
	loader := NewStaticQuestionLoader([]domain.Question{
		{ID: "b", Active: true, OrderIndex: 2},
		{ID: "a", Active: true, OrderIndex: 1},
	})
	questions, err := loader.LoadActive(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if questions[0].ID != "a" || questions[1].ID != "b" {
		t.Fatalf("unexpected order %+v", questions)
	}
}

type countingLoader struct {
	QuestionLoader
	calls int
}

func (l *countingLoader) LoadActive(ctx context.Context) ([]domain.Question, error) {
	l.calls++
	return l.QuestionLoader.LoadActive(ctx)
}

func sampleBank() []domain.Question {
	return []domain.Question{
		{ID: "q1", Type: domain.TypeImageClassify, Prompt: "Which is generated?", Options: []string{"A", "B"}, CorrectOption: 1, Active: true, OrderIndex: 1},
		{ID: "q2", Type: domain.TypeTextClassify, Prompt: "Which is generated?", Options: []string{"A", "B"}, CorrectOption: 0, Active: true, OrderIndex: 2},
		{ID: "q-inactive", Type: domain.TypeTextClassify, Prompt: "Retired", Options: []string{"A", "B"}, Active: false, OrderIndex: 3},
	}
}
