package utils

import (
	"regexp"
	"strings"

	"wanderhub/pkg/models"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,50}$`)

// ValidateUsername checks username shape and length
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return models.ErrInvalidInput
	}
	return nil
}

// ValidatePassword checks password length bounds
func ValidatePassword(password string) error {
	if len(password) < 8 || len(password) > 128 {
		return models.ErrInvalidInput
	}
	return nil
}

// ValidateTimeframe normalizes a leaderboard timeframe, defaulting to "all"
func ValidateTimeframe(timeframe string) (string, error) {
	tf := strings.ToLower(strings.TrimSpace(timeframe))
	switch tf {
	case "":
		return "all", nil
	case "all", "daily", "weekly", "monthly":
		return tf, nil
	}
	return "", models.ErrInvalidInput
}
