package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/habitloop/habitloop/internal/daemon"
	"github.com/habitloop/habitloop/internal/domain"
)

func init() {
	logCmd.Flags().StringVar(&logDate, "date", "today", "Day to log (YYYY-MM-DD, today, yesterday)")
	logCmd.Flags().BoolVar(&logUndo, "undo", false, "Mark the day as not done")
	rootCmd.AddCommand(logCmd)
}

var (
	logDate string
	logUndo bool
)

var logCmd = &cobra.Command{
	Use:   "log <user> <habit>",
	Short: "Mark a habit done for a day",
	Args:  cobra.ExactArgs(2),
	RunE:  runLog,
}

func runLog(cmd *cobra.Command, args []string) error {
	day, err := parseDay(logDate, time.Now())
	if err != nil {
		return err
	}

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	ctx := cmd.Context()
	u, err := d.Habits.FindUser(ctx, args[0])
	if err != nil {
		return err
	}
	h, err := d.Habits.FindHabit(ctx, u.ID, args[1])
	if err != nil {
		return err
	}

	out, err := d.Tracker.LogCompletion(ctx, u.ID, h.ID, day, !logUndo)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	verb := "Logged"
	if logUndo {
		verb = "Undid"
	}
	fmt.Fprintf(w, "%s %q for %s", verb, h.Name, day.Format(domain.DayLayout))
	if out.CompletionXP > 0 {
		fmt.Fprintf(w, " (+%d XP)", out.CompletionXP)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Streak: %s\n", plural(out.Streak, "day"))
	if out.Goal != nil {
		fmt.Fprintf(w, "Goal:   %s %.0f%% of %s\n", progressBar(out.Goal.ProgressPercentage), out.Goal.ProgressPercentage, plural(out.Goal.TargetValue, "day"))
	}
	for _, def := range out.NewlyCompleted {
		fmt.Fprintf(w, "%s Achievement unlocked: %s (+%d XP)\n", def.Icon, def.Name, def.RewardXP)
	}
	if out.LeveledUp {
		fmt.Fprintf(w, "Level up! You are now level %d.\n", out.Level.Level)
	}
	return nil
}
