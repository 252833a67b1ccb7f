package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/habitloop/habitloop/internal/app/engagement"
)

func init() {
	rootCmd.AddCommand(levelCmd)
}

// levelCmd is pure: it resolves an XP total without touching storage.
var levelCmd = &cobra.Command{
	Use:   "level <xp>",
	Short: "Show the level for an XP total",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var xp int64
		if _, err := fmt.Sscan(args[0], &xp); err != nil {
			return fmt.Errorf("invalid xp %q", args[0])
		}
		lvl, err := engagement.ResolveLevel(xp)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Level %d %s: %d / %d XP (%d to next)\n",
			lvl.Level, engagement.TitleForLevel(lvl.Level), lvl.CurrentXP, lvl.XPForCurrentLevel, lvl.XPToNextLevel)
		return nil
	},
}

