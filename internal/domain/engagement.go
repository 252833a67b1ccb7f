// Package domain holds the pure types shared by the habitloop engine,
// storage and transport layers. Nothing here touches I/O.
package domain

import "time"

// ─── Completion History ─────────────────────────────────────────────────────

// CompletionRecord is one habit's status for one calendar day.
// Only the year/month/day of Date are meaningful.
type CompletionRecord struct {
	Date      time.Time `json:"date"`
	Completed bool      `json:"completed"`
}

// DayLayout is the wire and storage format for calendar days.
const DayLayout = "2006-01-02"

// ─── Level / XP Types ───────────────────────────────────────────────────────

// XPLevelState is a lifetime XP total resolved against the level curve.
// XPForCurrentLevel == CurrentXP + XPToNextLevel always holds.
type XPLevelState struct {
	Level             int   `json:"level"`
	CurrentXP         int64 `json:"current_xp"`
	XPToNextLevel     int64 `json:"xp_to_next_level"`
	XPForCurrentLevel int64 `json:"xp_for_current_level"`
}

// ProgressPct returns progress through the current level (0.0–100.0).
func (s XPLevelState) ProgressPct() float64 {
	if s.XPForCurrentLevel <= 0 {
		return 0
	}
	return float64(s.CurrentXP) / float64(s.XPForCurrentLevel) * 100.0
}

// XPSource categorizes how XP was earned.
type XPSource string

const (
	XPCompletion  XPSource = "COMPLETION"
	XPAchievement XPSource = "ACHIEVEMENT"
)

// XPEntry is one append-only row of a user's XP ledger.
// SourceKey is unique per user; it makes every grant at-most-once.
type XPEntry struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Source    XPSource  `json:"source"`
	SourceKey string    `json:"source_key"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// ─── Goal Types ─────────────────────────────────────────────────────────────

// GoalProgress reports how far a value is toward a positive target.
type GoalProgress struct {
	CurrentValue       int     `json:"current_value"`
	TargetValue        int     `json:"target_value"`
	ProgressPercentage float64 `json:"progress_percentage"`
	Achieved           bool    `json:"achieved"`
}

// ─── Achievement Types ──────────────────────────────────────────────────────

// AchievementCategory selects which metric an achievement tracks.
type AchievementCategory string

const (
	CatStreak      AchievementCategory = "STREAK"
	CatHabits      AchievementCategory = "HABITS"
	CatConsistency AchievementCategory = "CONSISTENCY"
)

// Known reports whether c is one of the categories the scorer understands.
func (c AchievementCategory) Known() bool {
	switch c {
	case CatStreak, CatHabits, CatConsistency:
		return true
	}
	return false
}

// AchievementDef defines a single achievement's requirement and reward.
type AchievementDef struct {
	ID          string              `json:"id" toml:"id"`
	Name        string              `json:"name" toml:"name"`
	Description string              `json:"description" toml:"description"`
	Icon        string              `json:"icon" toml:"icon"`
	Category    AchievementCategory `json:"category" toml:"category"`
	Requirement int                 `json:"requirement" toml:"requirement"`
	RewardXP    int64               `json:"reward_xp" toml:"reward_xp"`
}

// AchievementState is a user's progress toward one achievement.
// Once Completed is true it never reverts, and UnlockedAt never changes.
type AchievementState struct {
	AchievementID string     `json:"achievement_id"`
	Progress      int        `json:"progress"`
	Completed     bool       `json:"completed"`
	UnlockedAt    *time.Time `json:"unlocked_at,omitempty"`
}

// ProgressMetrics is the aggregate snapshot achievements are scored against.
type ProgressMetrics struct {
	MaxStreak       int `json:"max_streak"`
	TotalHabits     int `json:"total_habits"`
	ConsecutiveDays int `json:"consecutive_days"`
}

// Value returns the metric tracked by category c.
// ok is false for categories the scorer does not know.
func (m ProgressMetrics) Value(c AchievementCategory) (v int, ok bool) {
	switch c {
	case CatStreak:
		v = m.MaxStreak
	case CatHabits:
		v = m.TotalHabits
	case CatConsistency:
		v = m.ConsecutiveDays
	}
	return v, c.Known()
}

// ScoreResult is the output of one achievement scoring pass.
// Updates holds only states that changed; the caller persists them
// together with XPAwarded in a single transaction.
type ScoreResult struct {
	Updates        []AchievementState `json:"updates"`
	NewlyCompleted []AchievementDef   `json:"newly_completed"`
	XPAwarded      int64              `json:"xp_awarded"`
}

// AchievementStatus joins a catalog entry with a user's stored progress.
type AchievementStatus struct {
	AchievementDef
	Progress   int        `json:"progress"`
	Completed  bool       `json:"completed"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// ─── Notification Types ─────────────────────────────────────────────────────

// NotificationType categorizes notifications.
type NotificationType string

const (
	NotifyAchievement NotificationType = "achievement"
	NotifyLevelUp     NotificationType = "level_up"
	NotifyGoal        NotificationType = "goal_reached"
)

// Notification is a user-facing message.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Body      string           `json:"body"`
	CreatedAt time.Time        `json:"created_at"`
	Shown     bool             `json:"shown"`
}

// NotificationPolicy governs how often notifications are created.
type NotificationPolicy struct {
	MaxPerDay  int    `json:"max_per_day"`
	QuietStart string `json:"quiet_start"` // "22:00"
	QuietEnd   string `json:"quiet_end"`   // "08:00"
}

// DefaultNotificationPolicy returns the default policy.
func DefaultNotificationPolicy() NotificationPolicy {
	return NotificationPolicy{
		MaxPerDay:  3,
		QuietStart: "22:00",
		QuietEnd:   "08:00",
	}
}
