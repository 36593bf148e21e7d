package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"ai-or-not-service/internal/broadcast"
	"ai-or-not-service/internal/domain"
	"ai-or-not-service/internal/game"
)

// APIHandler exposes the engine's operations over plain request/response for
// the facilitator panel and for clients that have not upgraded to a socket.
type APIHandler struct {
	games  *game.Service
	caster *broadcast.Broadcaster
}

func NewAPIHandler(games *game.Service, caster *broadcast.Broadcaster) *APIHandler {
	return &APIHandler{games: games, caster: caster}
}

// Register mounts the REST routes on a mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/rooms", h.createRoom)
	mux.HandleFunc("POST /api/rooms/{code}/join", h.joinRoom)
	mux.HandleFunc("POST /api/rooms/{code}/start", h.startGame)
	mux.HandleFunc("POST /api/rooms/{code}/next", h.nextQuestion)
	mux.HandleFunc("POST /api/rooms/{code}/reveal", h.revealQuestion)
	mux.HandleFunc("POST /api/rooms/{code}/end", h.endGame)
	mux.HandleFunc("GET /api/rooms/{code}/state", h.roomState)
	mux.HandleFunc("GET /api/rooms/{code}/exists", h.roomExists)
}

type createRoomRequest struct {
	QuestionIDs []string `json:"questionIds"`
}

type joinRoomRequest struct {
	Nickname string `json:"nickname"`
}

func (h *APIHandler) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	code, expiresAt, err := h.games.CreateRoom(r.Context(), req.QuestionIDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"code":      code,
		"expiresAt": expiresAt,
	})
}

func (h *APIHandler) joinRoom(w http.ResponseWriter, r *http.Request) {
	code := normalizeCode(r.PathValue("code"))
	var req joinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	playerID, err := h.games.Join(r.Context(), code, req.Nickname)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	h.caster.RoomState(r.Context(), code)
	writeJSON(w, http.StatusOK, map[string]any{
		"playerId": playerID,
		"roomCode": code,
	})
}

func (h *APIHandler) startGame(w http.ResponseWriter, r *http.Request) {
	code := normalizeCode(r.PathValue("code"))
	if err := h.games.Start(r.Context(), code); err != nil {
		writeDomainError(w, err)
		return
	}
	h.caster.RoomState(r.Context(), code)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *APIHandler) nextQuestion(w http.ResponseWriter, r *http.Request) {
	code := normalizeCode(r.PathValue("code"))
	hasNext, err := h.games.NextQuestion(r.Context(), code)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if hasNext {
		h.caster.RoomState(r.Context(), code)
	} else if ranking, err := h.games.FinalRanking(r.Context(), code); err == nil {
		h.caster.GameEnded(code, ranking)
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "hasNext": hasNext})
}

func (h *APIHandler) revealQuestion(w http.ResponseWriter, r *http.Request) {
	code := normalizeCode(r.PathValue("code"))
	if err := h.games.Reveal(r.Context(), code); err != nil {
		writeDomainError(w, err)
		return
	}
	h.caster.RoomState(r.Context(), code)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *APIHandler) endGame(w http.ResponseWriter, r *http.Request) {
	code := normalizeCode(r.PathValue("code"))
	if ranking, err := h.games.FinalRanking(r.Context(), code); err == nil {
		h.caster.GameEnded(code, ranking)
	}
	if err := h.games.End(r.Context(), code); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "room ended and data removed"})
}

func (h *APIHandler) roomState(w http.ResponseWriter, r *http.Request) {
	code := normalizeCode(r.PathValue("code"))
	state, err := h.games.RoomState(r.Context(), code)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *APIHandler) roomExists(w http.ResponseWriter, r *http.Request) {
	code := normalizeCode(r.PathValue("code"))
	exists, err := h.games.RoomExists(r.Context(), code)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"exists": exists})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrRoomNotFound),
		errors.Is(err, domain.ErrPlayerNotFound),
		errors.Is(err, domain.ErrQuestionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidNickname),
		errors.Is(err, domain.ErrInvalidOption):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrRoomEnded),
		errors.Is(err, domain.ErrRoomExpired),
		errors.Is(err, domain.ErrAlreadyStarted),
		errors.Is(err, domain.ErrNoActiveQuestion),
		errors.Is(err, domain.ErrNotAcceptingAnswers),
		errors.Is(err, domain.ErrDuplicateAnswer):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNoQuestionsAvailable):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrCodeSpaceExhausted):
		log.Printf("room code allocation failed: %v", err)
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
