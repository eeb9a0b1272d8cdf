package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// GameConfig holds tunables for the Heroes Cards match. Rule constants
// (deck size, hand size, target value) live in the domain package and are
// not configurable.
type GameConfig struct {
	StartingCredits     int64 `json:"starting_credits"`
	WinThresholdCredits int64 `json:"win_threshold_credits"`
	WelcomeBonusCredits int64 `json:"welcome_bonus_credits"`
	// BotAutoFillDelaySeconds configures how many seconds a solo human waits
	// before a bot takes the empty seat.
	BotAutoFillDelaySeconds int `json:"bot_auto_fill_delay_seconds"`
	BotMinDelaySeconds      int `json:"bot_min_delay_seconds"`
	BotMaxDelaySeconds      int `json:"bot_max_delay_seconds"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		var c GameConfig
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetStartingCredits returns each seat's opening wager bank.
func GetStartingCredits() int64 {
	if cfg == nil || cfg.StartingCredits <= 0 {
		return 100
	}
	return cfg.StartingCredits
}

// GetWinThreshold returns the credit balance that ends the game.
func GetWinThreshold() int64 {
	if cfg == nil || cfg.WinThresholdCredits <= 0 {
		return 1000
	}
	return cfg.WinThresholdCredits
}

// GetWelcomeBonus returns the one-time wallet grant for new accounts.
func GetWelcomeBonus() int64 {
	if cfg == nil || cfg.WelcomeBonusCredits <= 0 {
		return 1000
	}
	return cfg.WelcomeBonusCredits
}

// GetBotAutoFillDelaySeconds returns the solo-lobby wait before a bot joins.
func GetBotAutoFillDelaySeconds() int {
	if cfg == nil || cfg.BotAutoFillDelaySeconds <= 0 {
		return 10
	}
	return cfg.BotAutoFillDelaySeconds
}

// GetBotDelayBounds returns the min/max seconds a bot waits before acting.
func GetBotDelayBounds() (int, int) {
	min, max := 1, 3
	if cfg != nil && cfg.BotMinDelaySeconds > 0 {
		min = cfg.BotMinDelaySeconds
	}
	if cfg != nil && cfg.BotMaxDelaySeconds >= min {
		max = cfg.BotMaxDelaySeconds
	}
	if max < min {
		max = min
	}
	return min, max
}
