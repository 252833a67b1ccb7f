package engagement

import (
	"fmt"

	"github.com/habitloop/habitloop/internal/domain"
)

// XPRequiredForLevel returns the XP needed to advance from level to level+1.
// Triangular curve: 100 * L * (L+1) / 2.
func XPRequiredForLevel(level int) int64 {
	if level < 1 {
		return 0
	}
	l := int64(level)
	return 100 * l * (l + 1) / 2
}

// CumulativeXPForLevel returns the lifetime XP at which level is reached,
// the sum of the requirements for levels 1..level-1.
func CumulativeXPForLevel(level int) int64 {
	var total int64
	for l := 1; l < level; l++ {
		total += XPRequiredForLevel(l)
	}
	return total
}

// ResolveLevel maps a lifetime XP total onto the level curve.
// Landing exactly on a threshold resolves to CurrentXP 0 of the new level.
func ResolveLevel(totalXP int64) (domain.XPLevelState, error) {
	if totalXP < 0 {
		return domain.XPLevelState{}, fmt.Errorf("%w: total xp must be non-negative, got %d", domain.ErrInvalidArgument, totalXP)
	}

	level := 1
	var consumed int64
	for {
		required := XPRequiredForLevel(level)
		if required > totalXP-consumed {
			break
		}
		consumed += required
		level++
	}

	current := totalXP - consumed
	forLevel := XPRequiredForLevel(level)
	return domain.XPLevelState{
		Level:             level,
		CurrentXP:         current,
		XPForCurrentLevel: forLevel,
		XPToNextLevel:     forLevel - current,
	}, nil
}

// levelTitles marks the level at which each display title begins.
var levelTitles = []struct {
	from  int
	title string
}{
	{1, "Beginner"},
	{3, "Apprentice"},
	{5, "Regular"},
	{10, "Devoted"},
	{15, "Disciplined"},
	{25, "Master"},
	{50, "Legend"},
}

// TitleForLevel returns the display title for a level.
func TitleForLevel(level int) string {
	title := levelTitles[0].title
	for _, lt := range levelTitles {
		if level >= lt.from {
			title = lt.title
		}
	}
	return title
}
