package engagement

import (
	"fmt"

	"github.com/habitloop/habitloop/internal/domain"
)

// EvaluateGoal reports progress of current toward target, capped at 100%.
func EvaluateGoal(current, target int) (domain.GoalProgress, error) {
	if target <= 0 {
		return domain.GoalProgress{}, fmt.Errorf("%w: goal target must be positive, got %d", domain.ErrInvalidArgument, target)
	}
	if current < 0 {
		return domain.GoalProgress{}, fmt.Errorf("%w: goal value must be non-negative, got %d", domain.ErrInvalidArgument, current)
	}

	pct := float64(current) / float64(target) * 100.0
	if pct > 100.0 {
		pct = 100.0
	}
	return domain.GoalProgress{
		CurrentValue:       current,
		TargetValue:        target,
		ProgressPercentage: pct,
		Achieved:           current >= target,
	}, nil
}
