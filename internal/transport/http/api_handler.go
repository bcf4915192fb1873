package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"quizcraze/internal/app"
	"quizcraze/internal/domain"
	"quizcraze/internal/logging"
)

// StatsAPI is the subset of app.StatsService served over HTTP.
type StatsAPI interface {
	Submit(ctx context.Context, userID, quizID string, answers []domain.SubmittedAnswer) (app.Submission, error)
	UserStats(ctx context.Context, userID string) (app.UserStatsReport, error)
	UserAchievements(ctx context.Context, userID string) ([]domain.Achievement, error)
}

// APIHandler serves leaderboards and per-user stats as JSON.
type APIHandler struct {
	rankings app.RankingSource
	stats    StatsAPI
}

func NewAPIHandler(rankings app.RankingSource, stats StatsAPI) *APIHandler {
	return &APIHandler{rankings: rankings, stats: stats}
}

// Routes mounts under /api.
func (h *APIHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/ranking/{amount}", h.GlobalRanking)
	r.Get("/ranking/{quizId}/{amount}", h.QuizRanking)
	r.Route("/users/{userId}", func(r chi.Router) {
		r.Get("/stats", h.UserStats)
		r.Post("/stats", h.SubmitStats)
		r.Get("/achievements", h.UserAchievements)
	})
	return r
}

type rankingResponse struct {
	Entries []domain.RankingEntry `json:"entries"`
	Stale   bool                  `json:"stale"`
}

type submitRequest struct {
	QuizID  string                   `json:"quizId"`
	Answers []domain.SubmittedAnswer `json:"answers"`
}

func (h *APIHandler) GlobalRanking(w http.ResponseWriter, r *http.Request) {
	h.ranking(w, r, "")
}

func (h *APIHandler) QuizRanking(w http.ResponseWriter, r *http.Request) {
	h.ranking(w, r, chi.URLParam(r, "quizId"))
}

func (h *APIHandler) ranking(w http.ResponseWriter, r *http.Request, quizID string) {
	log := logging.WithContext(r.Context())

	amount, err := strconv.Atoi(chi.URLParam(r, "amount"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a number")
		return
	}

	entries, err := h.rankings.GetRanking(r.Context(), quizID, amount)
	stale := errors.Is(err, domain.ErrStaleRankingRead)
	if err != nil && !stale {
		log.WithError(err).WithField("quiz_id", quizID).Error("ranking failed")
		writeDomainError(w, err)
		return
	}
	if entries == nil {
		entries = []domain.RankingEntry{}
	}
	writeJSON(w, http.StatusOK, rankingResponse{Entries: entries, Stale: stale})
}

func (h *APIHandler) UserStats(w http.ResponseWriter, r *http.Request) {
	report, err := h.stats.UserStats(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *APIHandler) SubmitStats(w http.ResponseWriter, r *http.Request) {
	log := logging.WithContext(r.Context())
	userID := chi.URLParam(r, "userId")

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.WithError(err).Warn("invalid stats body")
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.QuizID == "" {
		writeError(w, http.StatusBadRequest, "quizId is required")
		return
	}

	sub, err := h.stats.Submit(r.Context(), userID, req.QuizID, req.Answers)
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("stats submission rejected")
		writeDomainError(w, err)
		return
	}
	status := http.StatusOK
	if sub.Status == domain.StatsCreated {
		status = http.StatusCreated
	}
	writeJSON(w, status, sub)
}

func (h *APIHandler) UserAchievements(w http.ResponseWriter, r *http.Request) {
	earned, err := h.stats.UserAchievements(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, earned)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidAttempt),
		errors.Is(err, domain.ErrEmptyQuiz),
		errors.Is(err, domain.ErrInvalidQuestion),
		errors.Is(err, domain.ErrUnknownAnswer):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSubmissionFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	writeError(w, status, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorPayload{Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
