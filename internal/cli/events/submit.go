package events

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a trackable event",
	Long:  "Feed an event into the reward engine, e.g. adding or completing a bucket list item",
	RunE: func(cmd *cobra.Command, args []string) error {
		eventType, _ := cmd.Flags().GetString("type")
		contentType, _ := cmd.Flags().GetString("content-type")
		itemID, _ := cmd.Flags().GetString("item-id")

		if eventType == "" {
			return fmt.Errorf("--type is required")
		}

		token := viper.GetString("user.token")
		if token == "" {
			return fmt.Errorf("not logged in. Please run: wanderctl auth login")
		}

		eventData := map[string]interface{}{}
		if contentType != "" {
			eventData["contentType"] = contentType
		}
		if itemID != "" {
			eventData["itemId"] = itemID
		}

		body := map[string]interface{}{
			"event_type": eventType,
			"event_data": eventData,
		}

		jsonBody, _ := json.Marshal(body)
		serverURL := fmt.Sprintf("http://%s:%d/api/v1/events",
			viper.GetString("server.host"),
			viper.GetInt("server.http_port"))

		req, _ := http.NewRequest("POST", serverURL, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)

		client := &http.Client{}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("failed to submit event: %w", err)
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		var result map[string]interface{}
		json.Unmarshal(respBody, &result)

		if result["success"] != true {
			return fmt.Errorf("failed: %v", result["error"])
		}

		data := result["data"].(map[string]interface{})
		fmt.Println("✓ Event processed!")
		if points, ok := data["points"].(float64); ok && points > 0 {
			fmt.Printf("  +%.0f points\n", points)
		}
		if badges, ok := data["badges"].([]interface{}); ok {
			for _, b := range badges {
				badge := b.(map[string]interface{})
				fmt.Printf("  🏅 New badge: %s\n", badge["name"])
			}
		}
		if milestones, ok := data["milestones"].([]interface{}); ok {
			for _, m := range milestones {
				ms := m.(map[string]interface{})
				fmt.Printf("  Milestone %s: %.0f/%.0f\n",
					ms["rule_name"], ms["progress"].(float64), ms["target"].(float64))
			}
		}
		fmt.Printf("  Level: %.0f\n", data["current_level"].(float64))

		return nil
	},
}

func init() {
	submitCmd.Flags().String("type", "", "Event type (user_login, bucket_list_add, bucket_list_complete)")
	submitCmd.Flags().String("content-type", "", "Bucket item content type (destination, activity, restaurant, hotel, deal)")
	submitCmd.Flags().String("item-id", "", "Bucket item ID")
	submitCmd.MarkFlagRequired("type")
	EventsCmd.AddCommand(submitCmd)
}
