package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/habitloop/habitloop/internal/daemon"
)

func init() {
	habitAddCmd.Flags().IntVar(&habitTarget, "target", 0, "Streak goal in days (0 = none)")
	habitAddCmd.Flags().StringVar(&habitDesc, "desc", "", "Description")
	habitListCmd.Flags().BoolVar(&habitListAll, "all", false, "Include archived habits")
	habitCmd.AddCommand(habitAddCmd, habitListCmd, habitArchiveCmd)
	rootCmd.AddCommand(habitCmd)
}

var (
	habitTarget  int
	habitDesc    string
	habitListAll bool
)

var habitCmd = &cobra.Command{
	Use:   "habit",
	Short: "Manage habits",
}

var habitAddCmd = &cobra.Command{
	Use:   "add <user> <name>",
	Short: "Add a habit for a user",
	Args:  cobra.ExactArgs(2),
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
		h, err := d.Habits.CreateHabit(cmd.Context(), u.ID, args[1], habitDesc, habitTarget)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added habit %q for %s (%s)\n", h.Name, u.Name, h.ID)
		return nil
	},
}

var habitListCmd = &cobra.Command{
	Use:     "list <user>",
	Aliases: []string{"ls"},
	Short:   "List a user's habits",
	Args:    cobra.ExactArgs(1),
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
		habits, err := d.Habits.ListHabits(cmd.Context(), u.ID, habitListAll)
		if err != nil {
			return err
		}
		if len(habits) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "%s has no habits. Run 'habitloop habit add %s <name>'.\n", u.Name, u.Name)
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tGOAL\tSTATUS")
		for _, h := range habits {
			goal := "-"
			if h.TargetDays > 0 {
				goal = plural(h.TargetDays, "day")
			}
			status := "active"
			if h.Archived {
				status = "archived"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", h.ID, h.Name, goal, status)
		}
		return w.Flush()
	},
}

var habitArchiveCmd = &cobra.Command{
	Use:   "archive <user> <habit>",
	Short: "Archive a habit",
	Args:  cobra.ExactArgs(2),
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
		h, err := d.Habits.FindHabit(cmd.Context(), u.ID, args[1])
		if err != nil {
			return err
		}
		if err := d.Habits.ArchiveHabit(cmd.Context(), u.ID, h.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Archived %q\n", h.Name)
		return nil
	},
}
