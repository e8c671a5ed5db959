package rules

import "github.com/spf13/cobra"

var RulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Reward rule administration",
	Long:  "Inspect the reward rule catalog (admin only)",
}
