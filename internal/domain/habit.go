package domain

import "time"

// User owns habits, XP and achievement progress.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Habit is something a user tries to do every day.
// TargetDays is an optional streak goal; 0 means no goal.
type Habit struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	TargetDays  int       `json:"target_days,omitempty"`
	Archived    bool      `json:"archived"`
	CreatedAt   time.Time `json:"created_at"`
}

// HabitStats is the derived view of one habit's history.
type HabitStats struct {
	Habit            Habit         `json:"habit"`
	CurrentStreak    int           `json:"current_streak"`
	LongestStreak    int           `json:"longest_streak"`
	TotalCompletions int           `json:"total_completions"`
	CompletionRate   float64       `json:"completion_rate"`
	Goal             *GoalProgress `json:"goal,omitempty"`
}

// UserStats is the progression dashboard for a user.
type UserStats struct {
	User    User            `json:"user"`
	TotalXP int64           `json:"total_xp"`
	Level   XPLevelState    `json:"level"`
	Title   string          `json:"title"`
	Metrics ProgressMetrics `json:"metrics"`
	Habits  []HabitStats    `json:"habits"`
}

// LeaderboardEntry ranks a user by lifetime XP.
type LeaderboardEntry struct {
	Rank    int    `json:"rank"`
	UserID  string `json:"user_id"`
	Name    string `json:"name"`
	TotalXP int64  `json:"total_xp"`
	Level   int    `json:"level"`
}
