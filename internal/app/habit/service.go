// Package habit manages users and the habits they track.
package habit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/habitloop/habitloop/internal/domain"
	"github.com/habitloop/habitloop/internal/infra/sqlite"
)

const maxNameLen = 100

// Service creates and lists users and habits.
type Service struct {
	db  *sqlite.DB
	log *slog.Logger
	now func() time.Time
}

// NewService creates a habit service.
func NewService(db *sqlite.DB, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, log: logger.With("component", "habits"), now: time.Now}
}

// CreateUser registers a new user.
func (s *Service) CreateUser(ctx context.Context, name string) (*domain.User, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	u := domain.User{ID: uuid.NewString(), Name: name, CreatedAt: s.now()}
	if err := s.db.InsertUser(ctx, u); err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	s.log.Info("user created", slog.String("user", u.ID))
	return &u, nil
}

// GetUser returns a user by id.
func (s *Service) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.db.GetUser(ctx, id)
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.db.ListUsers(ctx)
}

// CreateHabit adds a habit for a user. targetDays of 0 means no streak goal.
func (s *Service) CreateHabit(ctx context.Context, userID, name, description string, targetDays int) (*domain.Habit, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	if targetDays < 0 {
		return nil, fmt.Errorf("%w: target days must not be negative, got %d", domain.ErrInvalidArgument, targetDays)
	}
	if _, err := s.db.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	h := domain.Habit{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(description),
		TargetDays:  targetDays,
		CreatedAt:   s.now(),
	}
	if err := s.db.InsertHabit(ctx, h); err != nil {
		return nil, fmt.Errorf("insert habit: %w", err)
	}
	s.log.Info("habit created", slog.String("user", userID), slog.String("habit", h.ID))
	return &h, nil
}

// ListHabits returns a user's habits.
func (s *Service) ListHabits(ctx context.Context, userID string, includeArchived bool) ([]domain.Habit, error) {
	if _, err := s.db.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.db.ListHabits(ctx, userID, includeArchived)
}

// ArchiveHabit hides a habit from scoring. History and XP are kept.
func (s *Service) ArchiveHabit(ctx context.Context, userID, habitID string) error {
	h, err := s.db.GetHabit(ctx, habitID)
	if err != nil {
		return err
	}
	if h.UserID != userID {
		return domain.ErrHabitNotFound
	}
	if err := s.db.ArchiveHabit(ctx, habitID); err != nil {
		return err
	}
	s.log.Info("habit archived", slog.String("user", userID), slog.String("habit", habitID))
	return nil
}

// FindHabit resolves a habit of userID by id or, failing that, by exact name.
// Used by the CLI so people can type "read" instead of a UUID.
func (s *Service) FindHabit(ctx context.Context, userID, ref string) (*domain.Habit, error) {
	if h, err := s.db.GetHabit(ctx, ref); err == nil && h.UserID == userID {
		return h, nil
	}
	habits, err := s.ListHabits(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	for i := range habits {
		if strings.EqualFold(habits[i].Name, ref) {
			return &habits[i], nil
		}
	}
	return nil, domain.ErrHabitNotFound
}

// FindUser resolves a user by id or, failing that, by exact name.
func (s *Service) FindUser(ctx context.Context, ref string) (*domain.User, error) {
	if u, err := s.db.GetUser(ctx, ref); err == nil {
		return u, nil
	}
	users, err := s.db.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if strings.EqualFold(users[i].Name, ref) {
			return &users[i], nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", domain.ErrInvalidArgument)
	}
	if len(name) > maxNameLen {
		return "", fmt.Errorf("%w: name longer than %d characters", domain.ErrInvalidArgument, maxNameLen)
	}
	return name, nil
}
