package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/livequiz/session-engine/internal/domain"
	"github.com/livequiz/session-engine/internal/game"
)

// NewRouter builds the HTTP surface: health, question-set preview,
// leaderboard reads, and the websocket endpoint.
func NewRouter(h *WSHandler, service *game.Service) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/quizzes/{id}", func(w http.ResponseWriter, req *http.Request) {
		set, err := service.QuestionSetPreview(req.Context(), mux.Vars(req)["id"])
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, set)
	}).Methods(http.MethodGet)

	r.HandleFunc("/sessions/{code}/leaderboard", func(w http.ResponseWriter, req *http.Request) {
		entries, err := service.Leaderboard(mux.Vars(req)["code"], 0)
		if err != nil {
			writeAPIError(w, err)
			return
		}
		writeJSON(w, entries)
	}).Methods(http.MethodGet)

	r.HandleFunc("/ws", h.ServeWS)

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrQuestionSetNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidQuestionSet):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}
