package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/habitloop/habitloop/internal/domain"
)

// ─── Users ──────────────────────────────────────────────────────────────────

// InsertUser creates a user.
func (q *Queries) InsertUser(ctx context.Context, u domain.User) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO users (id, name, created_at) VALUES (?, ?, ?)`,
		u.ID, u.Name, u.CreatedAt.Unix(),
	)
	return err
}

// GetUser retrieves a user by id.
func (q *Queries) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	var createdAt int64
	err := q.q.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM users WHERE id = ?`, id,
	).Scan(&u.ID, &u.Name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(createdAt, 0)
	return &u, nil
}

// ListUsers returns all users ordered by creation time.
func (q *Queries) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT id, name, created_at FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		var createdAt int64
		if err := rows.Scan(&u.ID, &u.Name, &createdAt); err != nil {
			return nil, err
		}
		u.CreatedAt = time.Unix(createdAt, 0)
		users = append(users, u)
	}
	return users, rows.Err()
}

// ─── Habits ─────────────────────────────────────────────────────────────────

const habitColumns = `id, user_id, name, description, target_days, archived, created_at`

// InsertHabit creates a habit.
func (q *Queries) InsertHabit(ctx context.Context, h domain.Habit) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO habits (`+habitColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.ID, h.UserID, h.Name, h.Description, h.TargetDays, h.Archived, h.CreatedAt.Unix(),
	)
	return err
}

// GetHabit retrieves a habit by id.
func (q *Queries) GetHabit(ctx context.Context, id string) (*domain.Habit, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = ?`, id)
	h, err := scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrHabitNotFound
	}
	return h, err
}

// ListHabits returns a user's habits, oldest first.
func (q *Queries) ListHabits(ctx context.Context, userID string, includeArchived bool) ([]domain.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE user_id = ?`
	if !includeArchived {
		query += ` AND archived = 0`
	}
	query += ` ORDER BY created_at, id`

	rows, err := q.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var habits []domain.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, *h)
	}
	return habits, rows.Err()
}

// ArchiveHabit hides a habit from scoring while keeping its history.
func (q *Queries) ArchiveHabit(ctx context.Context, id string) error {
	result, err := q.q.ExecContext(ctx, `UPDATE habits SET archived = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return domain.ErrHabitNotFound
	}
	return nil
}

func scanHabit(s scanner) (*domain.Habit, error) {
	var h domain.Habit
	var createdAt int64
	if err := s.Scan(&h.ID, &h.UserID, &h.Name, &h.Description, &h.TargetDays, &h.Archived, &createdAt); err != nil {
		return nil, err
	}
	h.CreatedAt = time.Unix(createdAt, 0)
	return &h, nil
}

// ─── Completions ────────────────────────────────────────────────────────────

// UpsertCompletion sets a habit's status for one calendar day.
func (q *Queries) UpsertCompletion(ctx context.Context, habitID string, day time.Time, completed bool) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO completions (habit_id, day, completed, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(habit_id, day) DO UPDATE SET
			completed=excluded.completed,
			updated_at=excluded.updated_at`,
		habitID, day.Format(domain.DayLayout), completed, time.Now().Unix(),
	)
	return err
}

// ListCompletions returns a habit's records on or after since, oldest first.
// A zero since returns the full history.
func (q *Queries) ListCompletions(ctx context.Context, habitID string, since time.Time) ([]domain.CompletionRecord, error) {
	from := ""
	if !since.IsZero() {
		from = since.Format(domain.DayLayout)
	}
	rows, err := q.q.QueryContext(ctx,
		`SELECT day, completed FROM completions WHERE habit_id = ? AND day >= ? ORDER BY day`,
		habitID, from,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.CompletionRecord
	for rows.Next() {
		var day string
		var r domain.CompletionRecord
		if err := rows.Scan(&day, &r.Completed); err != nil {
			return nil, err
		}
		r.Date, err = time.Parse(domain.DayLayout, day)
		if err != nil {
			return nil, fmt.Errorf("parse completion day %q: %w", day, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}
