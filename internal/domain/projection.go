package domain

// PlayerInfo is a wire-friendly view of a player.
type PlayerInfo struct {
	ID          string `json:"id"`
	Nickname    string `json:"nickname"`
	Score       int    `json:"score"`
	HasAnswered bool   `json:"hasAnswered"`
}

// QuestionView is the redacted question sent while answers are open. It
// deliberately has no field for the correct option or the explanation, so
// they cannot leak before reveal.
type QuestionView struct {
	ID        string       `json:"id"`
	Type      QuestionType `json:"type"`
	Prompt    string       `json:"prompt"`
	ImageURL  string       `json:"imageUrl,omitempty"`
	ImageURL2 string       `json:"imageUrl2,omitempty"`
	Options   []string     `json:"options"`
	Index     int          `json:"index"`
	Total     int          `json:"total"`
}

// OptionStats counts how a single option was chosen for the current question.
type OptionStats struct {
	Option     int `json:"option"`
	Count      int `json:"count"`
	Percentage int `json:"percentage"`
}

// RevealedQuestion extends QuestionView with the answer, explanation and
// per-option statistics. Only built once the room status is revealed.
type RevealedQuestion struct {
	QuestionView
	CorrectOption int           `json:"correctOption"`
	Explanation   string        `json:"explanation"`
	Stats         []OptionStats `json:"stats"`
}

// RoomState is the only representation of a room that crosses the realtime
// boundary. Exactly one of CurrentQuestion/RevealedQuestion is set while a
// question is on screen; both are nil in the lobby.
type RoomState struct {
	Code              string            `json:"code"`
	Status            RoomStatus        `json:"status"`
	Players           []PlayerInfo      `json:"players"`
	CurrentQuestion   *QuestionView     `json:"currentQuestion"`
	RevealedQuestion  *RevealedQuestion `json:"revealedQuestion"`
	QuestionStartedAt *int64            `json:"questionStartedAt"`
	Ranking           []PlayerInfo      `json:"ranking"`
	AnsweredCount     int               `json:"answeredCount"`
	TotalPlayers      int               `json:"totalPlayers"`
}
