// Package engagement implements the habitloop progression engine:
// streaks, the XP level curve, goal progress and achievement scoring,
// plus the Tracker that runs them against stored history.
package engagement

import (
	"fmt"
	"sort"
	"time"

	"github.com/habitloop/habitloop/internal/domain"
)

// MaxStreakLookback bounds the backward walk in ComputeStreak to one year.
const MaxStreakLookback = 366

// ComputeStreak returns the length of the run of consecutive completed days
// ending at the anchor day. The anchor is today if today is completed,
// otherwise the most recent completed day; a habit the user stopped doing
// still reports the run that ended at its last completion.
//
// Duplicate records for a day are OR-ed together. records is not modified.
func ComputeStreak(records []domain.CompletionRecord, now time.Time) int {
	days := completedDays(records)
	if len(days) == 0 {
		return 0
	}

	anchor := dayKey(now)
	if !days[anchor] {
		anchor = latestDay(days)
	}

	streak := 0
	for i := 0; i < MaxStreakLookback; i++ {
		if !days[anchor.AddDate(0, 0, -i)] {
			break
		}
		streak++
	}
	return streak
}

// LongestRun returns the longest run of consecutive completed days anywhere
// in the history.
func LongestRun(records []domain.CompletionRecord) int {
	days := completedDays(records)
	if len(days) == 0 {
		return 0
	}

	sorted := make([]time.Time, 0, len(days))
	for d := range days {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	longest, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i-1].AddDate(0, 0, 1).Equal(sorted[i]) {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// CompletionRate returns the fraction (0.0–1.0) of the trailing window of
// days, ending today, that have a completed record.
func CompletionRate(records []domain.CompletionRecord, window int, now time.Time) (float64, error) {
	if window <= 0 {
		return 0, fmt.Errorf("%w: window must be positive, got %d", domain.ErrInvalidArgument, window)
	}

	days := completedDays(records)
	today := dayKey(now)
	hits := 0
	for i := 0; i < window; i++ {
		if days[today.AddDate(0, 0, -i)] {
			hits++
		}
	}
	return float64(hits) / float64(window), nil
}

// BuildMetrics aggregates per-habit histories into the snapshot the
// achievement scorer consumes. Every active habit must have an entry in
// histories, even if it has no records.
func BuildMetrics(histories map[string][]domain.CompletionRecord, now time.Time) domain.ProgressMetrics {
	m := domain.ProgressMetrics{TotalHabits: len(histories)}

	var union []domain.CompletionRecord
	for _, records := range histories {
		if s := ComputeStreak(records, now); s > m.MaxStreak {
			m.MaxStreak = s
		}
		union = append(union, records...)
	}
	m.ConsecutiveDays = ComputeStreak(union, now)
	return m
}

// completedDays returns the set of calendar days with a completed record.
func completedDays(records []domain.CompletionRecord) map[time.Time]bool {
	days := make(map[time.Time]bool, len(records))
	for _, r := range records {
		if r.Completed {
			days[dayKey(r.Date)] = true
		}
	}
	return days
}

// dayKey maps t to UTC midnight of its own calendar date, so day arithmetic
// is free of DST shifts.
func dayKey(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func latestDay(days map[time.Time]bool) time.Time {
	var latest time.Time
	for d := range days {
		if d.After(latest) {
			latest = d
		}
	}
	return latest
}
