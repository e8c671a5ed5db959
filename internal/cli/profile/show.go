package profile

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"wanderhub/pkg/utils"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your gamification profile",
	Long:  "View your points, level, earned badges, active streaks, and milestone progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		token := viper.GetString("user.token")
		if token == "" {
			return fmt.Errorf("not logged in. Please run: wanderctl auth login")
		}

		serverURL := fmt.Sprintf("http://%s:%d/api/v1/gamification/profile",
			viper.GetString("server.host"),
			viper.GetInt("server.http_port"))

		req, _ := http.NewRequest("GET", serverURL, nil)
		req.Header.Set("Authorization", "Bearer "+token)

		client := &http.Client{}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to get profile: %w", err)
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		var result map[string]interface{}
		json.Unmarshal(respBody, &result)

		if result["success"] != true {
			return fmt.Errorf("failed: %v", result["error"])
		}

		profile := result["data"].(map[string]interface{})

		fmt.Printf("\n%s's Profile\n\n", viper.GetString("user.username"))
		fmt.Printf("Points: %.0f\n", profile["points"].(float64))
		fmt.Printf("Level:  %.0f (%.0f/1000 to next)\n",
			profile["level"].(float64), profile["next_level_progress"].(float64))

		if badges, ok := profile["badges"].([]interface{}); ok && len(badges) > 0 {
			fmt.Printf("\nBadges (%d):\n", len(badges))
			for _, b := range badges {
				entry := b.(map[string]interface{})
				name := entry["badge_id"].(string)
				if def, ok := entry["badge"].(map[string]interface{}); ok {
					name = fmt.Sprintf("%s (%s)", def["name"], def["tier"])
				}
				fmt.Printf("  🏅 %s\n", name)
			}
		}

		if streaks, ok := profile["streaks"].([]interface{}); ok && len(streaks) > 0 {
			fmt.Printf("\nStreaks:\n")
			for _, s := range streaks {
				entry := s.(map[string]interface{})
				last := ""
				if raw, ok := entry["last_activity_date"].(string); ok {
					if t, err := time.Parse(time.RFC3339, raw); err == nil {
						last = ", last " + utils.TimeAgo(t)
					}
				}
				fmt.Printf("  %s: %.0f days (best: %.0f%s)\n",
					entry["type"], entry["current_streak"].(float64), entry["longest_streak"].(float64), last)
			}
		}

		if milestones, ok := profile["milestones"].([]interface{}); ok && len(milestones) > 0 {
			fmt.Printf("\nMilestones:\n")
			for _, m := range milestones {
				entry := m.(map[string]interface{})
				status := "in progress"
				if entry["achieved"] == true {
					status = "✓ achieved"
				}
				fmt.Printf("  %s: %.0f (%s)\n", entry["rule_id"], entry["progress"].(float64), status)
			}
		}

		fmt.Println()
		return nil
	},
}

func init() {
	ProfileCmd.AddCommand(showCmd)
}
