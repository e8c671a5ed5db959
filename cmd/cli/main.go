package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"wanderhub/internal/cli/auth"
	"wanderhub/internal/cli/config"
	"wanderhub/internal/cli/events"
	"wanderhub/internal/cli/leaderboard"
	"wanderhub/internal/cli/profile"
	"wanderhub/internal/cli/rules"
)

var rootCmd = &cobra.Command{
	Use:   "wanderctl",
	Short: "Wanderhub command-line client",
	Long:  "Interact with the Wanderhub gamification API: authenticate, submit events, and track your rewards",
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(auth.AuthCmd)
	rootCmd.AddCommand(events.EventsCmd)
	rootCmd.AddCommand(profile.ProfileCmd)
	rootCmd.AddCommand(leaderboard.LeaderboardCmd)
	rootCmd.AddCommand(rules.RulesCmd)
	rootCmd.AddCommand(config.ConfigCmd)
}

// initConfig reads ~/.wanderhub/config.yaml if present, with sane defaults
// for a local server.
func initConfig() {
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.http_port", 8080)

	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".wanderhub"))
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.ReadInConfig()
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
