package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room code is unknown.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomEnded is returned when acting on a room that was explicitly ended.
	ErrRoomEnded = errors.New("room already ended")
	// ErrRoomExpired is returned when a room's lifetime has passed.
	ErrRoomExpired = errors.New("room expired")
	// ErrAlreadyStarted is returned when starting a room that left the lobby.
	ErrAlreadyStarted = errors.New("room already started")
	// ErrNoActiveQuestion is returned when revealing outside the asking phase.
	ErrNoActiveQuestion = errors.New("no active question")
	// ErrNotAcceptingAnswers is returned when answering outside the asking phase.
	ErrNotAcceptingAnswers = errors.New("room is not accepting answers")
	// ErrDuplicateAnswer is returned when a player answers the same question twice.
	ErrDuplicateAnswer = errors.New("answer already submitted")
	// ErrNoQuestionsAvailable rejects room creation with an empty question set.
	ErrNoQuestionsAvailable = errors.New("no questions available")
	// ErrCodeTaken is a store-level signal that another room grabbed the code
	// between the availability check and the insert; the engine retries with a
	// fresh code.
	ErrCodeTaken = errors.New("room code already in use")
	// ErrCodeSpaceExhausted signals the code generator gave up after too many
	// collisions. A capacity problem, not an expected runtime condition.
	ErrCodeSpaceExhausted = errors.New("room code space exhausted")
	// ErrPlayerNotFound is returned when a player id is unknown within a room.
	ErrPlayerNotFound = errors.New("player not found")
	// ErrNicknameTaken is a store-level signal that a concurrent join won the
	// nickname; the engine resolves it to the existing player.
	ErrNicknameTaken = errors.New("nickname already taken in room")
	// ErrQuestionNotFound is returned when a submitted question id does not
	// match the room's active question.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidNickname rejects empty or whitespace-only nicknames.
	ErrInvalidNickname = errors.New("invalid nickname")
	// ErrInvalidOption rejects an option index outside the question's options.
	ErrInvalidOption = errors.New("invalid option index")
)
