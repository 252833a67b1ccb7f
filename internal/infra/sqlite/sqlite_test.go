package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/habitloop/habitloop/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUserHabit(t *testing.T, db *DB) (domain.User, domain.Habit) {
	t.Helper()
	ctx := context.Background()
	u := domain.User{ID: "u1", Name: "Ada", CreatedAt: time.Unix(1_700_000_000, 0)}
	require.NoError(t, db.InsertUser(ctx, u))
	h := domain.Habit{ID: "h1", UserID: u.ID, Name: "Read", TargetDays: 7, CreatedAt: u.CreatedAt}
	require.NoError(t, db.InsertHabit(ctx, h))
	return u, h
}

func day(s string) time.Time {
	d, err := time.Parse(domain.DayLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

// ─── Database Lifecycle ─────────────────────────────────────────────────────

func TestOpen_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	require.NoError(t, err)
	defer db.Close()

	_, err = os.Stat(filepath.Join(dir, "habitloop.db"))
	assert.NoError(t, err)
	assert.NoError(t, db.Ping(context.Background()))
}

func TestOpen_MigrationsIdempotent(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(dir)
	require.NoError(t, err)
	defer db.Close()
	assert.NoError(t, db.migrate())
}

// ─── Users & Habits ─────────────────────────────────────────────────────────

func TestUsers_RoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u, _ := seedUserHabit(t, db)

	got, err := db.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Name, got.Name)
	assert.Equal(t, u.CreatedAt.Unix(), got.CreatedAt.Unix())

	_, err = db.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	users, err := db.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestHabits_ListAndArchive(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u, h := seedUserHabit(t, db)

	got, err := db.GetHabit(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.TargetDays)

	require.NoError(t, db.ArchiveHabit(ctx, h.ID))

	active, err := db.ListHabits(ctx, u.ID, false)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := db.ListHabits(ctx, u.ID, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Archived)

	assert.ErrorIs(t, db.ArchiveHabit(ctx, "missing"), domain.ErrHabitNotFound)
	_, err = db.GetHabit(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrHabitNotFound)
}

// ─── Completions ────────────────────────────────────────────────────────────

func TestCompletions_UpsertAndWindow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	_, h := seedUserHabit(t, db)

	require.NoError(t, db.UpsertCompletion(ctx, h.ID, day("2024-01-01"), true))
	require.NoError(t, db.UpsertCompletion(ctx, h.ID, day("2024-01-02"), true))
	require.NoError(t, db.UpsertCompletion(ctx, h.ID, day("2024-01-03"), true))
	// Undo keeps a row with completed=false.
	require.NoError(t, db.UpsertCompletion(ctx, h.ID, day("2024-01-02"), false))

	all, err := db.ListCompletions(ctx, h.ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].Completed)
	assert.False(t, all[1].Completed)
	assert.Equal(t, day("2024-01-03"), all[2].Date)

	windowed, err := db.ListCompletions(ctx, h.ID, day("2024-01-02"))
	require.NoError(t, err)
	assert.Len(t, windowed, 2)
}

// ─── Achievement Progress ───────────────────────────────────────────────────

func TestAchievementProgress_CompletionIsSticky(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u, _ := seedUserHabit(t, db)

	unlocked := time.Unix(1_700_100_000, 0)
	require.NoError(t, db.UpsertAchievementProgress(ctx, u.ID, domain.AchievementState{
		AchievementID: "streak_7", Progress: 7, Completed: true, UnlockedAt: &unlocked,
	}))
	// A stale write must not revert completion or move unlocked_at.
	later := unlocked.Add(time.Hour)
	require.NoError(t, db.UpsertAchievementProgress(ctx, u.ID, domain.AchievementState{
		AchievementID: "streak_7", Progress: 2, Completed: false, UnlockedAt: &later,
	}))

	states, err := db.ListAchievementProgress(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.True(t, states[0].Completed)
	assert.Equal(t, 7, states[0].Progress)
	require.NotNil(t, states[0].UnlockedAt)
	assert.Equal(t, unlocked.Unix(), states[0].UnlockedAt.Unix())
}

func TestAchievementProgress_WatermarkReplaced(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u, _ := seedUserHabit(t, db)

	require.NoError(t, db.UpsertAchievementProgress(ctx, u.ID, domain.AchievementState{AchievementID: "streak_30", Progress: 12}))
	require.NoError(t, db.UpsertAchievementProgress(ctx, u.ID, domain.AchievementState{AchievementID: "streak_30", Progress: 3}))

	states, err := db.ListAchievementProgress(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, 3, states[0].Progress)
	assert.Nil(t, states[0].UnlockedAt)
}

// ─── XP Ledger & Leaderboard ────────────────────────────────────────────────

func TestInsertXP_AtMostOncePerSourceKey(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u, _ := seedUserHabit(t, db)

	entry := domain.XPEntry{UserID: u.ID, Source: domain.XPAchievement, SourceKey: "achievement:streak_7", Amount: 100, CreatedAt: time.Now()}
	granted, err := db.InsertXP(ctx, entry)
	require.NoError(t, err)
	assert.True(t, granted)

	granted, err = db.InsertXP(ctx, entry)
	require.NoError(t, err)
	assert.False(t, granted)

	total, err := db.TotalXP(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), total)
}

func TestTopUsersByXP(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	for i, name := range []string{"Ada", "Grace", "Linus"} {
		require.NoError(t, db.InsertUser(ctx, domain.User{ID: name, Name: name, CreatedAt: now.Add(time.Duration(i) * time.Minute)}))
	}
	_, err := db.InsertXP(ctx, domain.XPEntry{UserID: "Grace", Source: domain.XPCompletion, SourceKey: "a", Amount: 50, CreatedAt: now})
	require.NoError(t, err)
	_, err = db.InsertXP(ctx, domain.XPEntry{UserID: "Linus", Source: domain.XPCompletion, SourceKey: "a", Amount: 20, CreatedAt: now})
	require.NoError(t, err)

	top, err := db.TopUsersByXP(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Grace", top[0].UserID)
	assert.Equal(t, int64(50), top[0].TotalXP)
	assert.Equal(t, "Linus", top[1].UserID)
}

// ─── Transactions ───────────────────────────────────────────────────────────

func TestWithTx_RollbackOnError(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u, _ := seedUserHabit(t, db)

	boom := errors.New("boom")
	err := db.WithTx(ctx, func(q *Queries) error {
		if _, err := q.InsertXP(ctx, domain.XPEntry{UserID: u.ID, Source: domain.XPCompletion, SourceKey: "k", Amount: 10, CreatedAt: time.Now()}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	total, err := db.TotalXP(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestWithTx_Commit(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u, _ := seedUserHabit(t, db)

	require.NoError(t, db.WithTx(ctx, func(q *Queries) error {
		_, err := q.InsertXP(ctx, domain.XPEntry{UserID: u.ID, Source: domain.XPCompletion, SourceKey: "k", Amount: 10, CreatedAt: time.Now()})
		return err
	}))

	total, err := db.TotalXP(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), total)
}

// ─── Notifications ──────────────────────────────────────────────────────────

func TestNotifications_PendingAndShown(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u, _ := seedUserHabit(t, db)
	now := time.Unix(1_700_000_000, 0)

	require.NoError(t, db.InsertNotification(ctx, domain.Notification{ID: "n1", UserID: u.ID, Type: domain.NotifyAchievement, Title: "t", Body: "b", CreatedAt: now}))
	require.NoError(t, db.InsertNotification(ctx, domain.Notification{ID: "n2", UserID: u.ID, Type: domain.NotifyLevelUp, Title: "t", Body: "b", CreatedAt: now.Add(time.Minute)}))

	count, err := db.NotificationCountSince(ctx, u.ID, now)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	pending, err := db.ListPendingNotifications(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "n2", pending[0].ID)

	require.NoError(t, db.MarkNotificationShown(ctx, u.ID, "n2"))
	pending, err = db.ListPendingNotifications(ctx, u.ID, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	assert.ErrorIs(t, db.MarkNotificationShown(ctx, "someone-else", "n1"), domain.ErrNotificationNotFound)
}
