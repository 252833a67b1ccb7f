package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/habitloop/habitloop/internal/app/engagement"
	"github.com/habitloop/habitloop/internal/domain"
)

const (
	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
	notificationPageSize    = 20
)

type logCompletionRequest struct {
	Completed *bool `json:"completed" validate:"required"`
}

func (s *Server) handleLogCompletion(w http.ResponseWriter, r *http.Request) {
	day, err := s.parseDay(chi.URLParam(r, "date"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	var req logCompletionRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	out, err := s.tracker.LogCompletion(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "habitID"), day, *req.Completed)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	out, err := s.tracker.Refresh(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.tracker.Stats(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.tracker.Achievements(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	unlocked := 0
	for _, st := range statuses {
		if st.Completed {
			unlocked++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"achievements": statuses,
		"unlocked":     unlocked,
		"total":        len(statuses),
	})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if _, err := s.habits.GetUser(r.Context(), userID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	pending, err := s.notifier.Pending(r.Context(), userID, notificationPageSize)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if pending == nil {
		pending = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": pending})
}

func (s *Server) handleNotificationShown(w http.ResponseWriter, r *http.Request) {
	err := s.notifier.MarkShown(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeDomainError(w, r, fmt.Errorf("%w: limit must be a positive integer", errBadRequest))
			return
		}
		limit = min(n, maxLeaderboardLimit)
	}

	entries, err := s.tracker.Leaderboard(r.Context(), limit)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"achievements": s.tracker.Catalog()})
}

// handleLevel exposes the level resolver for a raw XP total.
func (s *Server) handleLevel(w http.ResponseWriter, r *http.Request) {
	xp, err := strconv.ParseInt(r.URL.Query().Get("xp"), 10, 64)
	if err != nil {
		s.writeDomainError(w, r, fmt.Errorf("%w: xp must be an integer", errBadRequest))
		return
	}
	state, err := engagement.ResolveLevel(xp)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"level":                state.Level,
		"current_xp":           state.CurrentXP,
		"xp_to_next_level":     state.XPToNextLevel,
		"xp_for_current_level": state.XPForCurrentLevel,
		"progress_pct":         state.ProgressPct(),
		"title":                engagement.TitleForLevel(state.Level),
	})
}

// handleGoal exposes the goal evaluator.
func (s *Server) handleGoal(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	current, err := strconv.Atoi(q.Get("current"))
	if err != nil {
		s.writeDomainError(w, r, fmt.Errorf("%w: current must be an integer", errBadRequest))
		return
	}
	target, err := strconv.Atoi(q.Get("target"))
	if err != nil {
		s.writeDomainError(w, r, fmt.Errorf("%w: target must be an integer", errBadRequest))
		return
	}
	goal, err := engagement.EvaluateGoal(current, target)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goal)
}

// parseDay accepts YYYY-MM-DD or "today".
func (s *Server) parseDay(v string) (time.Time, error) {
	if v == "today" {
		y, m, d := s.now().Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
	}
	day, err := time.Parse(domain.DayLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD or today", errBadRequest)
	}
	return day, nil
}
