package rules

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List reward rules",
	Long:  "View the reward rule catalog with triggers, types, and payouts (admin only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		token := viper.GetString("user.token")
		if token == "" {
			return fmt.Errorf("not logged in. Please run: wanderctl auth login")
		}

		serverURL := fmt.Sprintf("http://%s:%d/api/v1/admin/rules?limit=%d",
			viper.GetString("server.host"),
			viper.GetInt("server.http_port"),
			limit)

		req, _ := http.NewRequest("GET", serverURL, nil)
		req.Header.Set("Authorization", "Bearer "+token)

		client := &http.Client{}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to list rules: %w", err)
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		var result map[string]interface{}
		json.Unmarshal(respBody, &result)

		if result["success"] != true {
			return fmt.Errorf("failed: %v", result["error"])
		}

		page := result["data"].(map[string]interface{})
		rules, _ := page["data"].([]interface{})

		fmt.Printf("\nReward Rules (%d):\n\n", len(rules))
		for _, r := range rules {
			rule := r.(map[string]interface{})
			status := "active"
			if rule["is_active"] != true {
				status = "inactive"
			}
			rewards := rule["rewards"].(map[string]interface{})
			fmt.Printf("• %s [%s]\n", rule["name"], status)
			fmt.Printf("    id: %s\n", rule["id"])
			fmt.Printf("    on %s (%s)\n", rule["trigger_event"], rule["type"])
			fmt.Printf("    pays: %.0f points", rewards["points"].(float64))
			if badgeID, ok := rewards["badge_id"].(string); ok && badgeID != "" {
				fmt.Printf(" + badge %s", badgeID)
			}
			fmt.Println()
			fmt.Println()
		}

		return nil
	},
}

func init() {
	listCmd.Flags().Int("limit", 50, "Number of rules")
	RulesCmd.AddCommand(listCmd)
}
