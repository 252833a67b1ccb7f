package engagement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/habitloop/habitloop/internal/domain"
	"github.com/habitloop/habitloop/internal/infra/metrics"
	"github.com/habitloop/habitloop/internal/infra/sqlite"
)

// TrackerConfig tunes the Tracker.
type TrackerConfig struct {
	XPPerCompletion int64 // XP for a habit's first completion on a day
	LookbackDays    int   // History window loaded for scoring
	StatsWindowDays int   // Window for completion-rate stats
}

// DefaultTrackerConfig returns the default tuning.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		XPPerCompletion: 10,
		LookbackDays:    MaxStreakLookback,
		StatsWindowDays: 30,
	}
}

// Tracker runs the progression engine against stored history.
// Each scoring pass reads state, computes, and writes achievement updates
// plus XP in one transaction, so concurrent requests never grant the same
// XP twice.
type Tracker struct {
	db       *sqlite.DB
	catalog  []domain.AchievementDef
	scorer   *Scorer
	notifier *NotificationService
	cfg      TrackerConfig
	log      *slog.Logger
	now      func() time.Time
}

// NewTracker creates a tracker. notifier may be nil to disable notifications.
func NewTracker(db *sqlite.DB, catalog []domain.AchievementDef, notifier *NotificationService, cfg TrackerConfig, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.LookbackDays <= 0 || cfg.LookbackDays > MaxStreakLookback {
		cfg.LookbackDays = MaxStreakLookback
	}
	if cfg.StatsWindowDays <= 0 {
		cfg.StatsWindowDays = 30
	}
	return &Tracker{
		db:       db,
		catalog:  catalog,
		scorer:   NewScorer(logger),
		notifier: notifier,
		cfg:      cfg,
		log:      logger.With("component", "tracker"),
		now:      time.Now,
	}
}

// SetClock replaces the time source. Used by tests.
func (t *Tracker) SetClock(now func() time.Time) { t.now = now }

// Catalog returns the achievement catalog in use.
func (t *Tracker) Catalog() []domain.AchievementDef { return t.catalog }

// Outcome is everything a completion write or refresh changed.
type Outcome struct {
	HabitID        string                  `json:"habit_id,omitempty"`
	Streak         int                     `json:"streak"`
	Goal           *domain.GoalProgress    `json:"goal,omitempty"`
	CompletionXP   int64                   `json:"completion_xp"`
	Metrics        domain.ProgressMetrics  `json:"metrics"`
	NewlyCompleted []domain.AchievementDef `json:"newly_completed"`
	XPAwarded      int64                   `json:"xp_awarded"`
	TotalXP        int64                   `json:"total_xp"`
	Level          domain.XPLevelState     `json:"level"`
	LeveledUp      bool                    `json:"leveled_up"`

	goalJustReached bool
	habit           domain.Habit
}

// LogCompletion marks a habit done or undone for a calendar day and rescores
// the user. XP for a completion is granted at most once per habit per day;
// undoing does not take it back. Days after today are rejected.
func (t *Tracker) LogCompletion(ctx context.Context, userID, habitID string, day time.Time, completed bool) (*Outcome, error) {
	now := t.now()
	if dayKey(day).After(dayKey(now)) {
		return nil, fmt.Errorf("%w: %s is in the future", domain.ErrInvalidArgument, day.Format(domain.DayLayout))
	}
	out := &Outcome{HabitID: habitID}

	err := t.db.WithTx(ctx, func(q *sqlite.Queries) error {
		habit, err := q.GetHabit(ctx, habitID)
		if err != nil {
			return err
		}
		if habit.UserID != userID {
			return domain.ErrHabitNotFound
		}
		if habit.Archived {
			return domain.ErrHabitArchived
		}
		out.habit = *habit

		before, err := q.TotalXP(ctx, userID)
		if err != nil {
			return fmt.Errorf("total xp: %w", err)
		}

		var goalBefore bool
		if habit.TargetDays > 0 {
			prev, err := q.ListCompletions(ctx, habitID, t.since(now))
			if err != nil {
				return fmt.Errorf("list completions: %w", err)
			}
			goalBefore = ComputeStreak(prev, now) >= habit.TargetDays
		}

		if err := q.UpsertCompletion(ctx, habitID, day, completed); err != nil {
			return fmt.Errorf("upsert completion: %w", err)
		}
		if completed && t.cfg.XPPerCompletion > 0 {
			granted, err := q.InsertXP(ctx, domain.XPEntry{
				UserID:    userID,
				Source:    domain.XPCompletion,
				SourceKey: completionKey(habitID, day),
				Amount:    t.cfg.XPPerCompletion,
				CreatedAt: now,
			})
			if err != nil {
				return fmt.Errorf("grant completion xp: %w", err)
			}
			if granted {
				out.CompletionXP = t.cfg.XPPerCompletion
			}
		}

		histories, err := t.score(ctx, q, userID, now, out)
		if err != nil {
			return err
		}

		out.Streak = ComputeStreak(histories[habitID], now)
		if habit.TargetDays > 0 {
			goal, err := EvaluateGoal(out.Streak, habit.TargetDays)
			if err != nil {
				return err
			}
			out.Goal = &goal
			out.goalJustReached = goal.Achieved && !goalBefore
		}

		return t.resolve(ctx, q, userID, before, out)
	})
	if err != nil {
		return nil, err
	}

	status := "completed"
	if !completed {
		status = "undone"
	}
	metrics.CompletionsLogged.WithLabelValues(status).Inc()
	if out.CompletionXP > 0 {
		metrics.XPAwarded.WithLabelValues(string(domain.XPCompletion)).Add(float64(out.CompletionXP))
	}
	t.afterCommit(ctx, userID, out)
	return out, nil
}

// Refresh rescores a user without writing a completion. Running it again
// with unchanged history changes nothing and grants nothing.
func (t *Tracker) Refresh(ctx context.Context, userID string) (*Outcome, error) {
	now := t.now()
	out := &Outcome{}

	err := t.db.WithTx(ctx, func(q *sqlite.Queries) error {
		if _, err := q.GetUser(ctx, userID); err != nil {
			return err
		}
		before, err := q.TotalXP(ctx, userID)
		if err != nil {
			return fmt.Errorf("total xp: %w", err)
		}
		if _, err := t.score(ctx, q, userID, now, out); err != nil {
			return err
		}
		return t.resolve(ctx, q, userID, before, out)
	})
	if err != nil {
		return nil, err
	}

	t.afterCommit(ctx, userID, out)
	return out, nil
}

// score loads the user's active histories, scores the catalog against them,
// and persists state updates and achievement XP through q.
func (t *Tracker) score(ctx context.Context, q *sqlite.Queries, userID string, now time.Time, out *Outcome) (map[string][]domain.CompletionRecord, error) {
	habits, err := q.ListHabits(ctx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}

	histories := make(map[string][]domain.CompletionRecord, len(habits))
	for _, h := range habits {
		records, err := q.ListCompletions(ctx, h.ID, t.since(now))
		if err != nil {
			return nil, fmt.Errorf("list completions %s: %w", h.ID, err)
		}
		histories[h.ID] = records
	}
	out.Metrics = BuildMetrics(histories, now)

	prior, err := q.ListAchievementProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list achievement progress: %w", err)
	}

	result, err := t.scorer.Score(out.Metrics, t.catalog, prior, now)
	if err != nil {
		return nil, err
	}

	for _, st := range result.Updates {
		if err := q.UpsertAchievementProgress(ctx, userID, st); err != nil {
			return nil, fmt.Errorf("save achievement %s: %w", st.AchievementID, err)
		}
	}
	for _, def := range result.NewlyCompleted {
		granted, err := q.InsertXP(ctx, domain.XPEntry{
			UserID:    userID,
			Source:    domain.XPAchievement,
			SourceKey: "achievement:" + def.ID,
			Amount:    def.RewardXP,
			CreatedAt: now,
		})
		if err != nil {
			return nil, fmt.Errorf("grant achievement xp %s: %w", def.ID, err)
		}
		if !granted {
			// Ledger already holds this reward; progress rows were out of sync.
			t.log.Warn("achievement reward already granted", slog.String("user", userID), slog.String("achievement", def.ID))
			continue
		}
		out.NewlyCompleted = append(out.NewlyCompleted, def)
		out.XPAwarded += def.RewardXP
	}
	return histories, nil
}

// resolve fills total XP and level fields after all grants.
func (t *Tracker) resolve(ctx context.Context, q *sqlite.Queries, userID string, before int64, out *Outcome) error {
	after, err := q.TotalXP(ctx, userID)
	if err != nil {
		return fmt.Errorf("total xp: %w", err)
	}
	prev, err := ResolveLevel(before)
	if err != nil {
		return err
	}
	out.Level, err = ResolveLevel(after)
	if err != nil {
		return err
	}
	out.TotalXP = after
	out.LeveledUp = out.Level.Level > prev.Level
	return nil
}

// afterCommit records metrics and sends notifications. Failures here are
// logged: the progression itself is already durable.
func (t *Tracker) afterCommit(ctx context.Context, userID string, out *Outcome) {
	for _, def := range out.NewlyCompleted {
		metrics.AchievementsUnlocked.WithLabelValues(string(def.Category)).Inc()
	}
	if out.XPAwarded > 0 {
		metrics.XPAwarded.WithLabelValues(string(domain.XPAchievement)).Add(float64(out.XPAwarded))
	}
	if out.LeveledUp {
		metrics.LevelUps.Inc()
	}

	if len(out.NewlyCompleted) > 0 || out.LeveledUp {
		t.log.Info("progression",
			slog.String("user", userID),
			slog.Int("unlocked", len(out.NewlyCompleted)),
			slog.Int64("xp_awarded", out.XPAwarded),
			slog.Int("level", out.Level.Level))
	}

	if t.notifier == nil {
		return
	}
	for _, def := range out.NewlyCompleted {
		if _, err := t.notifier.AchievementUnlocked(ctx, userID, def); err != nil {
			t.log.Error("notify achievement", slog.String("user", userID), slog.String("error", err.Error()))
		}
	}
	if out.LeveledUp {
		if _, err := t.notifier.LevelUp(ctx, userID, out.Level.Level); err != nil {
			t.log.Error("notify level up", slog.String("user", userID), slog.String("error", err.Error()))
		}
	}
	if out.goalJustReached {
		if _, err := t.notifier.GoalReached(ctx, userID, out.habit); err != nil {
			t.log.Error("notify goal", slog.String("user", userID), slog.String("error", err.Error()))
		}
	}
}

// since returns the first day of the scoring window.
func (t *Tracker) since(now time.Time) time.Time {
	return dayKey(now).AddDate(0, 0, -(t.cfg.LookbackDays - 1))
}

func completionKey(habitID string, day time.Time) string {
	return "completion:" + habitID + ":" + day.Format(domain.DayLayout)
}

// ─── Read Models ────────────────────────────────────────────────────────────

// Stats returns a user's level, metrics and per-habit statistics.
func (t *Tracker) Stats(ctx context.Context, userID string) (*domain.UserStats, error) {
	now := t.now()

	user, err := t.db.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	total, err := t.db.TotalXP(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("total xp: %w", err)
	}
	level, err := ResolveLevel(total)
	if err != nil {
		return nil, err
	}

	habits, err := t.db.ListHabits(ctx, userID, false)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}

	stats := &domain.UserStats{
		User:    *user,
		TotalXP: total,
		Level:   level,
		Title:   TitleForLevel(level.Level),
		Habits:  make([]domain.HabitStats, 0, len(habits)),
	}

	histories := make(map[string][]domain.CompletionRecord, len(habits))
	for _, h := range habits {
		records, err := t.db.ListCompletions(ctx, h.ID, time.Time{})
		if err != nil {
			return nil, fmt.Errorf("list completions %s: %w", h.ID, err)
		}
		histories[h.ID] = records

		hs := domain.HabitStats{
			Habit:            h,
			CurrentStreak:    ComputeStreak(records, now),
			LongestStreak:    LongestRun(records),
			TotalCompletions: len(completedDays(records)),
		}
		hs.CompletionRate, err = CompletionRate(records, t.cfg.StatsWindowDays, now)
		if err != nil {
			return nil, err
		}
		if h.TargetDays > 0 {
			goal, err := EvaluateGoal(hs.CurrentStreak, h.TargetDays)
			if err != nil {
				return nil, err
			}
			hs.Goal = &goal
		}
		stats.Habits = append(stats.Habits, hs)
	}
	stats.Metrics = BuildMetrics(histories, now)
	return stats, nil
}

// Achievements returns the catalog joined with a user's stored progress.
func (t *Tracker) Achievements(ctx context.Context, userID string) ([]domain.AchievementStatus, error) {
	if _, err := t.db.GetUser(ctx, userID); err != nil {
		return nil, err
	}
	states, err := t.db.ListAchievementProgress(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list achievement progress: %w", err)
	}
	byID := make(map[string]domain.AchievementState, len(states))
	for _, st := range states {
		byID[st.AchievementID] = st
	}

	out := make([]domain.AchievementStatus, 0, len(t.catalog))
	for _, def := range t.catalog {
		st := byID[def.ID]
		out = append(out, domain.AchievementStatus{
			AchievementDef: def,
			Progress:       st.Progress,
			Completed:      st.Completed,
			UnlockedAt:     st.UnlockedAt,
		})
	}
	return out, nil
}

// Leaderboard ranks users by lifetime XP.
func (t *Tracker) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", domain.ErrInvalidArgument, limit)
	}
	entries, err := t.db.TopUsersByXP(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("top users: %w", err)
	}
	for i := range entries {
		level, err := ResolveLevel(entries[i].TotalXP)
		if err != nil {
			return nil, err
		}
		entries[i].Rank = i + 1
		entries[i].Level = level.Level
	}
	return entries, nil
}
