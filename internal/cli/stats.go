package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/habitloop/habitloop/internal/daemon"
)

func init() {
	rootCmd.AddCommand(statsCmd, achievementsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats <user>",
	Short: "Show level, XP and habit streaks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		u, err := d.Habits.FindUser(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		stats, err := d.Tracker.Stats(cmd.Context(), u.ID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		lvl := stats.Level
		fmt.Fprintf(out, "%s: level %d %s (%d XP total)\n", stats.User.Name, lvl.Level, stats.Title, stats.TotalXP)
		fmt.Fprintf(out, "%s %d / %d XP to level %d\n", progressBar(lvl.ProgressPct()), lvl.CurrentXP, lvl.XPForCurrentLevel, lvl.Level+1)
		fmt.Fprintf(out, "Best streak %s · active days in a row %s\n\n",
			plural(stats.Metrics.MaxStreak, "day"), plural(stats.Metrics.ConsecutiveDays, "day"))

		if len(stats.Habits) == 0 {
			fmt.Fprintln(out, "No active habits.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "HABIT\tSTREAK\tLONGEST\tTOTAL\t30-DAY\tGOAL")
		for _, h := range stats.Habits {
			goal := "-"
			if h.Goal != nil {
				goal = fmt.Sprintf("%.0f%%", h.Goal.ProgressPercentage)
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.0f%%\t%s\n",
				h.Habit.Name, h.CurrentStreak, h.LongestStreak, h.TotalCompletions, h.CompletionRate*100, goal)
		}
		return w.Flush()
	},
}

var achievementsCmd = &cobra.Command{
	Use:   "achievements <user>",
	Short: "List achievements and progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := daemon.New()
		if err != nil {
			return err
		}
		defer d.Close()

		u, err := d.Habits.FindUser(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		statuses, err := d.Tracker.Achievements(cmd.Context(), u.ID)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "\tACHIEVEMENT\tPROGRESS\tREWARD")
		for _, st := range statuses {
			mark := "  "
			if st.Completed {
				mark = "✓ "
			}
			progress := fmt.Sprintf("%d/%d", min(st.Progress, st.Requirement), st.Requirement)
			fmt.Fprintf(w, "%s%s\t%s\t%s\t%d XP\n", mark, st.Icon, st.Name, progress, st.RewardXP)
		}
		return w.Flush()
	},
}
