package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type createUserRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type createHabitRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=500"`
	TargetDays  int    `json:"target_days" validate:"gte=0,lte=3650"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	u, err := s.habits.CreateUser(r.Context(), req.Name)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.habits.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	var req createHabitRequest
	if err := s.decodeAndValidate(r, &req); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	h, err := s.habits.CreateHabit(r.Context(), chi.URLParam(r, "userID"), req.Name, req.Description, req.TargetDays)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h)
}

func (s *Server) handleListHabits(w http.ResponseWriter, r *http.Request) {
	includeArchived := r.URL.Query().Get("archived") == "true"
	habits, err := s.habits.ListHabits(r.Context(), chi.URLParam(r, "userID"), includeArchived)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"habits": habits})
}

func (s *Server) handleArchiveHabit(w http.ResponseWriter, r *http.Request) {
	err := s.habits.ArchiveHabit(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "habitID"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
