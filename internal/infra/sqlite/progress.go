package sqlite

import (
	"context"
	"database/sql"

	"github.com/habitloop/habitloop/internal/domain"
)

// ─── Achievement Progress ───────────────────────────────────────────────────

// ListAchievementProgress returns a user's stored achievement states.
func (q *Queries) ListAchievementProgress(ctx context.Context, userID string) ([]domain.AchievementState, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT achievement_id, progress, completed, unlocked_at
		 FROM achievement_progress WHERE user_id = ? ORDER BY achievement_id`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var states []domain.AchievementState
	for rows.Next() {
		var st domain.AchievementState
		var unlockedAt sql.NullInt64
		if err := rows.Scan(&st.AchievementID, &st.Progress, &st.Completed, &unlockedAt); err != nil {
			return nil, err
		}
		st.UnlockedAt = timePtr(unlockedAt)
		states = append(states, st)
	}
	return states, rows.Err()
}

// UpsertAchievementProgress stores an achievement state.
// Completion is sticky at the storage level too: a completed row never
// reverts and keeps its first unlocked_at.
func (q *Queries) UpsertAchievementProgress(ctx context.Context, userID string, st domain.AchievementState) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO achievement_progress (user_id, achievement_id, progress, completed, unlocked_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id, achievement_id) DO UPDATE SET
			progress    = CASE WHEN achievement_progress.completed THEN achievement_progress.progress ELSE excluded.progress END,
			completed   = MAX(achievement_progress.completed, excluded.completed),
			unlocked_at = COALESCE(achievement_progress.unlocked_at, excluded.unlocked_at)`,
		userID, st.AchievementID, st.Progress, st.Completed, nullableUnix(st.UnlockedAt),
	)
	return err
}

// ─── XP Ledger ──────────────────────────────────────────────────────────────

// InsertXP appends a ledger entry unless one with the same source key
// already exists for the user. Returns true if the XP was granted.
func (q *Queries) InsertXP(ctx context.Context, e domain.XPEntry) (bool, error) {
	result, err := q.q.ExecContext(ctx,
		`INSERT OR IGNORE INTO xp_ledger (user_id, source, source_key, amount, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.UserID, string(e.Source), e.SourceKey, e.Amount, e.CreatedAt.Unix(),
	)
	if err != nil {
		return false, err
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// TotalXP returns a user's lifetime XP.
func (q *Queries) TotalXP(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := q.q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM xp_ledger WHERE user_id = ?`, userID,
	).Scan(&total)
	return total, err
}

// ─── Leaderboard ────────────────────────────────────────────────────────────

// TopUsersByXP returns up to limit users ordered by lifetime XP; ties go to
// the earlier account. Rank and Level are left for the caller to fill.
func (q *Queries) TopUsersByXP(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT u.id, u.name, COALESCE(SUM(x.amount), 0) AS total
		 FROM users u LEFT JOIN xp_ledger x ON x.user_id = u.id
		 GROUP BY u.id, u.name, u.created_at
		 ORDER BY total DESC, u.created_at ASC, u.id ASC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.LeaderboardEntry
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(&e.UserID, &e.Name, &e.TotalXP); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
