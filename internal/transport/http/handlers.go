package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
)

// Handler serves the REST API.
type Handler struct {
	quiz     *app.QuizService
	accounts *app.AccountService
	logger   *slog.Logger
}

type registerRequest struct {
	UserID   string `json:"userId"`
	Nickname string `json:"nickname"`
}

type loginRequest struct {
	UserID     string `json:"userId"`
	Passphrase string `json:"passphrase"`
}

type startRequest struct {
	Category string `json:"category"`
}

type answerRequest struct {
	Choice string `json:"choice"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return
	}
	user, err := h.accounts.Register(r.Context(), req.UserID, req.Nickname)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) NicknameAvailable(w http.ResponseWriter, r *http.Request) {
	available, err := h.accounts.NicknameAvailable(r.Context(), r.URL.Query().Get("nickname"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": available})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return
	}
	result, err := h.accounts.Login(r.Context(), req.UserID, req.Passphrase)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"categories": h.quiz.Categories(r.Context())})
}

func (h *Handler) Rankings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]domain.Ranking{"rankings": h.accounts.Rankings(r.Context())})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.Profile(r.Context(), UserFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) Accuracy(w http.ResponseWriter, r *http.Request) {
	accuracy := h.accounts.Accuracy(r.Context(), UserFromContext(r.Context()))
	writeJSON(w, http.StatusOK, map[string]any{
		"accuracy":   accuracy,
		"clearCount": accuracy.ClearCount(),
	})
}

func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"nickname":   nicknameFromContext(r.Context()),
		"categories": h.accounts.Progress(r.Context(), UserFromContext(r.Context())),
	})
}

func (h *Handler) LastResult(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	records := h.accounts.LastResult(r.Context(), UserFromContext(r.Context()), category)
	writeJSON(w, http.StatusOK, map[string]any{
		"category": category,
		"records":  records,
		"score":    domain.CountCorrect(records),
		"total":    len(records),
	})
}

func (h *Handler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Category == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "category is required"})
		return
	}
	view, err := h.quiz.StartQuiz(r.Context(), UserFromContext(r.Context()), req.Category)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) StartReview(w http.ResponseWriter, r *http.Request) {
	view, err := h.quiz.StartReview(r.Context(), UserFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	view, err := h.quiz.Snapshot(r.Context(), chi.URLParam(r, "sessionID"), UserFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) Answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid json"})
		return
	}
	view, err := h.quiz.Answer(r.Context(), chi.URLParam(r, "sessionID"), UserFromContext(r.Context()), req.Choice)
	h.writeView(w, view, err)
}

func (h *Handler) Next(w http.ResponseWriter, r *http.Request) {
	view, err := h.quiz.Next(r.Context(), chi.URLParam(r, "sessionID"), UserFromContext(r.Context()))
	h.writeView(w, view, err)
}

func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	result, err := h.quiz.Result(r.Context(), chi.URLParam(r, "sessionID"), UserFromContext(r.Context()))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if _, err := h.quiz.Snapshot(r.Context(), sessionID, UserFromContext(r.Context())); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.quiz.Leave(r.Context(), sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// writeView answers a rejected input with 409 and the current view so the
// client can resync.
func (h *Handler) writeView(w http.ResponseWriter, view app.View, err error) {
	if errors.Is(err, domain.ErrNotAccepting) {
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error(), "view": view})
		return
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
