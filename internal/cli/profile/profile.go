package profile

import "github.com/spf13/cobra"

var ProfileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Gamification profile commands",
	Long:  "View your points, level, badges, streaks, and milestones",
}
