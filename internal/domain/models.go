package domain

import "time"

// RoomStatus is the lifecycle phase of a game room.
type RoomStatus string

const (
	StatusLobby    RoomStatus = "lobby"
	StatusAsking   RoomStatus = "asking"
	StatusRevealed RoomStatus = "revealed"
	StatusEnded    RoomStatus = "ended"
)

// QuestionType tags the classification scenario a question belongs to.
type QuestionType string

const (
	TypeImageClassify      QuestionType = "IMAGE_CLASSIFY"
	TypeTextClassify       QuestionType = "TEXT_CLASSIFY"
	TypeHallucinationCheck QuestionType = "HALLUCINATION_DETECT"
	TypeTrafficLight       QuestionType = "LGPD_TRAFFIC_LIGHT"
)

// Question is canonical quiz content. The game treats it as read-only;
// authoring lives in the admin subsystem.
type Question struct {
	ID            string       `json:"id"`
	Type          QuestionType `json:"type"`
	Prompt        string       `json:"prompt"`
	ImageURL      string       `json:"imageUrl,omitempty"`
	ImageURL2     string       `json:"imageUrl2,omitempty"`
	Options       []string     `json:"options"`
	CorrectOption int          `json:"correctOption"`
	Explanation   string       `json:"explanation"`
	Active        bool         `json:"active"`
	OrderIndex    int          `json:"orderIndex"`
}

// BoundQuestion associates a question snapshot with its position in a
// room's sequence. The sequence is fixed at room creation.
type BoundQuestion struct {
	RoomID     string
	OrderIndex int
	Question   Question
}

// Player is an ephemeral participant scoped to a single room.
type Player struct {
	ID       string
	RoomID   string
	Nickname string
	Score    int
	JoinedAt time.Time
}

// Answer records one player's response to one bound question. At most one
// answer may exist per (room, player, question); stores enforce this as a
// uniqueness constraint, not application logic.
type Answer struct {
	RoomID         string
	PlayerID       string
	QuestionID     string
	SelectedOption int
	Correct        bool
	TimeMs         int
	CreatedAt      time.Time
}

// Room is a single game session together with everything it owns.
// Stores may return it with or without the owned collections populated.
type Room struct {
	ID                   string
	Code                 string
	Status               RoomStatus
	CurrentQuestionIndex int
	QuestionStartedAt    *time.Time
	ExpiresAt            time.Time
	CreatedAt            time.Time

	Questions []BoundQuestion
	Players   []Player
	Answers   []Answer
}

// Expired reports whether the room's lifetime has passed at the given instant.
func (r *Room) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// AnswerSubmission is the scoring signal from a player's client.
type AnswerSubmission struct {
	RoomCode       string `json:"roomCode"`
	PlayerID       string `json:"playerId"`
	QuestionID     string `json:"questionId"`
	SelectedOption int    `json:"selectedOption"`
	TimeMs         int    `json:"timeMs"`
}

// AnswerResult summarizes the outcome of a submission for the answering player.
type AnswerResult struct {
	Correct bool `json:"isCorrect"`
	Points  int  `json:"points"`
}
