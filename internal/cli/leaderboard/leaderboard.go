package leaderboard

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var LeaderboardCmd = &cobra.Command{
	Use:   "leaderboard",
	Short: "Show the points leaderboard",
	Long:  "View the top users by points. Use --timeframe for daily, weekly, or monthly views.",
	RunE: func(cmd *cobra.Command, args []string) error {
		timeframe, _ := cmd.Flags().GetString("timeframe")
		limit, _ := cmd.Flags().GetInt("limit")

		token := viper.GetString("user.token")
		if token == "" {
			return fmt.Errorf("not logged in. Please run: wanderctl auth login")
		}

		serverURL := fmt.Sprintf("http://%s:%d/api/v1/gamification/leaderboard?timeframe=%s&limit=%d",
			viper.GetString("server.host"),
			viper.GetInt("server.http_port"),
			timeframe, limit)

		req, _ := http.NewRequest("GET", serverURL, nil)
		req.Header.Set("Authorization", "Bearer "+token)

		client := &http.Client{}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to get leaderboard: %w", err)
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		var result map[string]interface{}
		json.Unmarshal(respBody, &result)

		if result["success"] != true {
			return fmt.Errorf("failed: %v", result["error"])
		}

		board := result["data"].(map[string]interface{})
		entries, _ := board["entries"].([]interface{})

		fmt.Printf("\nLeaderboard (%s):\n\n", board["timeframe"])
		if len(entries) == 0 {
			fmt.Println("  No entries yet.")
			return nil
		}

		for _, e := range entries {
			entry := e.(map[string]interface{})
			fmt.Printf("%3.0f. %-20s %8.0f pts  (level %.0f)\n",
				entry["rank"].(float64),
				entry["username"],
				entry["points"].(float64),
				entry["level"].(float64))
		}
		fmt.Println()

		return nil
	},
}

func init() {
	LeaderboardCmd.Flags().String("timeframe", "all", "Timeframe (all, daily, weekly, monthly)")
	LeaderboardCmd.Flags().Int("limit", 20, "Number of entries")
}
