package engagement

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/habitloop/habitloop/internal/domain"
	"github.com/habitloop/habitloop/internal/infra/metrics"
	"github.com/habitloop/habitloop/internal/infra/sqlite"
)

// NotificationService turns engine output into user-facing notifications.
// Policy:
//   - At most MaxPerDay notifications per user per day
//   - Nothing between QuietStart and QuietEnd
//
// Suppressed notifications are dropped, not queued.
type NotificationService struct {
	db     *sqlite.DB
	policy domain.NotificationPolicy
	now    func() time.Time
}

// NewNotificationService creates a notification service with default policy.
func NewNotificationService(db *sqlite.DB) *NotificationService {
	return NewNotificationServiceWithPolicy(db, domain.DefaultNotificationPolicy())
}

// NewNotificationServiceWithPolicy creates a notification service with custom policy.
func NewNotificationServiceWithPolicy(db *sqlite.DB, policy domain.NotificationPolicy) *NotificationService {
	return &NotificationService{db: db, policy: policy, now: time.Now}
}

// SetClock replaces the time source. Used by tests.
func (n *NotificationService) SetClock(now func() time.Time) { n.now = now }

// Create stores a notification if policy allows it.
// Returns the notification ID ("" if suppressed by policy) and any error.
func (n *NotificationService) Create(ctx context.Context, notif domain.Notification) (string, error) {
	now := n.now()

	if n.isQuietHour(now) {
		metrics.NotificationsSuppressed.WithLabelValues("quiet_hours").Inc()
		return "", nil
	}

	y, m, d := now.Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	todayCount, err := n.db.NotificationCountSince(ctx, notif.UserID, startOfDay)
	if err != nil {
		return "", fmt.Errorf("count today: %w", err)
	}
	if todayCount >= n.policy.MaxPerDay {
		metrics.NotificationsSuppressed.WithLabelValues("daily_limit").Inc()
		return "", nil
	}

	notif.ID = uuid.NewString()
	notif.CreatedAt = now
	notif.Shown = false
	if err := n.db.InsertNotification(ctx, notif); err != nil {
		return "", fmt.Errorf("insert notification: %w", err)
	}
	metrics.NotificationsCreated.WithLabelValues(string(notif.Type)).Inc()
	return notif.ID, nil
}

// AchievementUnlocked notifies about a newly completed achievement.
func (n *NotificationService) AchievementUnlocked(ctx context.Context, userID string, def domain.AchievementDef) (string, error) {
	return n.Create(ctx, domain.Notification{
		UserID: userID,
		Type:   domain.NotifyAchievement,
		Title:  strings.TrimSpace(def.Icon + " Achievement unlocked: " + def.Name),
		Body:   fmt.Sprintf("%s (+%d XP)", def.Description, def.RewardXP),
	})
}

// LevelUp notifies about reaching a new level.
func (n *NotificationService) LevelUp(ctx context.Context, userID string, level int) (string, error) {
	return n.Create(ctx, domain.Notification{
		UserID: userID,
		Type:   domain.NotifyLevelUp,
		Title:  fmt.Sprintf("Level %d reached", level),
		Body:   fmt.Sprintf("You are now a %s.", TitleForLevel(level)),
	})
}

// GoalReached notifies that a habit hit its streak goal.
func (n *NotificationService) GoalReached(ctx context.Context, userID string, habit domain.Habit) (string, error) {
	return n.Create(ctx, domain.Notification{
		UserID: userID,
		Type:   domain.NotifyGoal,
		Title:  "Goal reached: " + habit.Name,
		Body:   fmt.Sprintf("%d days in a row.", habit.TargetDays),
	})
}

// Pending returns a user's unshown notifications.
func (n *NotificationService) Pending(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	return n.db.ListPendingNotifications(ctx, userID, limit)
}

// MarkShown marks a notification as shown.
func (n *NotificationService) MarkShown(ctx context.Context, userID, id string) error {
	return n.db.MarkNotificationShown(ctx, userID, id)
}

// Policy returns the current notification policy.
func (n *NotificationService) Policy() domain.NotificationPolicy {
	return n.policy
}

// isQuietHour returns true if the given time falls within quiet hours.
func (n *NotificationService) isQuietHour(t time.Time) bool {
	startHour, startMin := parseHHMM(n.policy.QuietStart)
	endHour, endMin := parseHHMM(n.policy.QuietEnd)

	timeMinutes := t.Hour()*60 + t.Minute()
	startMinutes := startHour*60 + startMin
	endMinutes := endHour*60 + endMin

	if startMinutes == endMinutes {
		return false // Quiet hours disabled
	}
	if startMinutes > endMinutes {
		// Wraps midnight: e.g., 22:00 – 08:00
		return timeMinutes >= startMinutes || timeMinutes < endMinutes
	}
	return timeMinutes >= startMinutes && timeMinutes < endMinutes
}

// parseHHMM parses "HH:MM" into hour and minute.
func parseHHMM(s string) (int, int) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0
	}
	h, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	return h, m
}

// ValidHHMM reports whether s is a well-formed "HH:MM" clock time.
func ValidHHMM(s string) bool {
	t, err := time.Parse("15:04", s)
	return err == nil && t.Format("15:04") == s
}
