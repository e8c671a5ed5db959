package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login to Wanderhub",
	Long:  "Authenticate with your username and password. Logging in counts toward your daily streak.",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		referrer, _ := cmd.Flags().GetString("referrer")

		if username == "" {
			fmt.Print("Username: ")
			fmt.Scanln(&username)
		}

		fmt.Print("Password: ")
		password, _ := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()

		body := map[string]string{
			"username": username,
			"password": string(password),
		}
		if referrer != "" {
			body["referrer"] = referrer
		}

		jsonBody, _ := json.Marshal(body)
		serverURL := fmt.Sprintf("http://%s:%d/api/v1/auth/login",
			viper.GetString("server.host"),
			viper.GetInt("server.http_port"))

		resp, err := http.Post(serverURL, "application/json", bytes.NewReader(jsonBody))
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		defer resp.Body.Close()

		respBody, _ := io.ReadAll(resp.Body)
		var result map[string]interface{}
		json.Unmarshal(respBody, &result)

		if result["success"] != true {
			return fmt.Errorf("login failed: %v", result["error"])
		}

		data := result["data"].(map[string]interface{})
		authData := data["auth"].(map[string]interface{})
		token := authData["token"].(string)
		user := authData["user"].(map[string]interface{})

		// Save token to config
		home, _ := os.UserHomeDir()
		configDir := filepath.Join(home, ".wanderhub")
		os.MkdirAll(configDir, 0755)

		viper.Set("user.username", username)
		viper.Set("user.id", user["id"])
		viper.Set("user.token", token)
		viper.WriteConfigAs(filepath.Join(configDir, "config.yaml"))

		fmt.Println("✓ Login successful!")
		fmt.Printf("  Welcome back, %s!\n", username)

		if rewards, ok := data["rewards"].(map[string]interface{}); ok {
			if points, ok := rewards["points"].(float64); ok && points > 0 {
				fmt.Printf("  +%.0f points earned for logging in\n", points)
			}
			if badges, ok := rewards["badges"].([]interface{}); ok && len(badges) > 0 {
				for _, b := range badges {
					badge := b.(map[string]interface{})
					fmt.Printf("  🏅 New badge: %s\n", badge["name"])
				}
			}
		}

		return nil
	},
}

func init() {
	loginCmd.Flags().String("username", "", "Username")
	loginCmd.Flags().String("referrer", "", "Landing referrer (for partner tracking)")
	AuthCmd.AddCommand(loginCmd)
}
