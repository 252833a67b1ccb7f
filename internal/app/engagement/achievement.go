package engagement

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/habitloop/habitloop/internal/domain"
	"github.com/habitloop/habitloop/internal/infra/metrics"
)

// Scorer evaluates an achievement catalog against a metrics snapshot.
// It holds no state between calls and is safe for concurrent use.
type Scorer struct {
	log *slog.Logger
}

// NewScorer creates a scorer that reports catalog problems to logger.
func NewScorer(logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{log: logger.With("component", "scorer")}
}

// ScoreAchievements scores with the default logger. See Scorer.Score.
func ScoreAchievements(m domain.ProgressMetrics, catalog []domain.AchievementDef, prior []domain.AchievementState, now time.Time) (domain.ScoreResult, error) {
	return NewScorer(nil).Score(m, catalog, prior, now)
}

// Score computes which achievements changed progress or newly crossed their
// requirement. Progress is a watermark: it is replaced by the current metric,
// never accumulated. Completed achievements are skipped entirely, so scoring
// the same inputs twice never pays the same reward twice.
//
// Entries with an unknown category are logged and left untouched.
func (s *Scorer) Score(m domain.ProgressMetrics, catalog []domain.AchievementDef, prior []domain.AchievementState, now time.Time) (domain.ScoreResult, error) {
	var result domain.ScoreResult
	if m.MaxStreak < 0 || m.TotalHabits < 0 || m.ConsecutiveDays < 0 {
		return result, fmt.Errorf("%w: metrics must be non-negative, got %+v", domain.ErrInvalidArgument, m)
	}

	priorByID := make(map[string]domain.AchievementState, len(prior))
	for _, st := range prior {
		priorByID[st.AchievementID] = st
	}

	for _, def := range catalog {
		state, ok := priorByID[def.ID]
		if !ok {
			state = domain.AchievementState{AchievementID: def.ID}
		}
		if state.Completed {
			continue
		}

		progress, known := m.Value(def.Category)
		if !known {
			s.log.Warn("skipping achievement",
				slog.String("achievement", def.ID),
				slog.String("category", string(def.Category)),
				slog.String("error", domain.ErrUnrecognizedCategory.Error()))
			metrics.CatalogUnrecognized.Inc()
			continue
		}

		completed := progress >= def.Requirement
		if progress == state.Progress && !completed {
			continue
		}

		next := domain.AchievementState{
			AchievementID: def.ID,
			Progress:      progress,
			Completed:     completed,
		}
		if completed {
			unlockedAt := now
			next.UnlockedAt = &unlockedAt
			result.NewlyCompleted = append(result.NewlyCompleted, def)
			result.XPAwarded += def.RewardXP
		}
		result.Updates = append(result.Updates, next)
	}

	return result, nil
}

// ─── Achievement Catalog ────────────────────────────────────────────────────

// DefaultCatalog returns the built-in achievement catalog.
func DefaultCatalog() []domain.AchievementDef {
	return []domain.AchievementDef{
		// ── Streaks ────────────────────────────────────────────────────
		{ID: "streak_3", Name: "Warming Up", Description: "Keep a habit going for 3 days", Icon: "🔥", Category: domain.CatStreak, Requirement: 3, RewardXP: 30},
		{ID: "streak_7", Name: "Week Warrior", Description: "Keep a habit going for 7 days", Icon: "📅", Category: domain.CatStreak, Requirement: 7, RewardXP: 100},
		{ID: "streak_14", Name: "Fortnight Focus", Description: "Keep a habit going for 14 days", Icon: "🎯", Category: domain.CatStreak, Requirement: 14, RewardXP: 200},
		{ID: "streak_30", Name: "Monthly Master", Description: "Keep a habit going for 30 days", Icon: "🏅", Category: domain.CatStreak, Requirement: 30, RewardXP: 500},
		{ID: "streak_100", Name: "Centurion", Description: "Keep a habit going for 100 days", Icon: "👑", Category: domain.CatStreak, Requirement: 100, RewardXP: 2000},

		// ── Habits ─────────────────────────────────────────────────────
		{ID: "habits_1", Name: "First Step", Description: "Create your first habit", Icon: "🌱", Category: domain.CatHabits, Requirement: 1, RewardXP: 10},
		{ID: "habits_3", Name: "Routine Builder", Description: "Track 3 habits", Icon: "🧱", Category: domain.CatHabits, Requirement: 3, RewardXP: 50},
		{ID: "habits_5", Name: "Juggler", Description: "Track 5 habits", Icon: "🤹", Category: domain.CatHabits, Requirement: 5, RewardXP: 100},
		{ID: "habits_10", Name: "Life Architect", Description: "Track 10 habits", Icon: "🏛️", Category: domain.CatHabits, Requirement: 10, RewardXP: 250},

		// ── Consistency ────────────────────────────────────────────────
		{ID: "consistency_7", Name: "Showing Up", Description: "Complete something 7 days in a row", Icon: "✅", Category: domain.CatConsistency, Requirement: 7, RewardXP: 75},
		{ID: "consistency_30", Name: "Unbroken", Description: "Complete something 30 days in a row", Icon: "⛓️", Category: domain.CatConsistency, Requirement: 30, RewardXP: 400},
		{ID: "consistency_100", Name: "Way of Life", Description: "Complete something 100 days in a row", Icon: "🌟", Category: domain.CatConsistency, Requirement: 100, RewardXP: 1500},
	}
}

// catalogFile is the TOML layout of a catalog override:
//
//	[[achievement]]
//	id = "streak_7"
//	name = "Week Warrior"
//	category = "STREAK"
//	requirement = 7
//	reward_xp = 100
type catalogFile struct {
	Achievements []domain.AchievementDef `toml:"achievement"`
}

// LoadCatalog reads an achievement catalog from a TOML file.
func LoadCatalog(path string) ([]domain.AchievementDef, error) {
	var f catalogFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if err := ValidateCatalog(f.Achievements); err != nil {
		return nil, err
	}
	return f.Achievements, nil
}

// ValidateCatalog rejects empty or duplicate ids and non-positive
// requirements or rewards. Unknown categories are allowed; the scorer skips
// them so catalogs can grow ahead of the code.
func ValidateCatalog(defs []domain.AchievementDef) error {
	if len(defs) == 0 {
		return fmt.Errorf("%w: no achievements defined", domain.ErrInvalidCatalog)
	}
	seen := make(map[string]bool, len(defs))
	for i, def := range defs {
		switch {
		case def.ID == "":
			return fmt.Errorf("%w: entry %d has no id", domain.ErrInvalidCatalog, i)
		case seen[def.ID]:
			return fmt.Errorf("%w: duplicate id %q", domain.ErrInvalidCatalog, def.ID)
		case def.Requirement <= 0:
			return fmt.Errorf("%w: %q requirement must be positive", domain.ErrInvalidCatalog, def.ID)
		case def.RewardXP <= 0:
			return fmt.Errorf("%w: %q reward must be positive", domain.ErrInvalidCatalog, def.ID)
		}
		seen[def.ID] = true
	}
	return nil
}
