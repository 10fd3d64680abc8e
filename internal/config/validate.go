package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks cross-field consistency. Telegram credentials are not
// required here: the notification service degrades to a noop and intake
// refuses to run without them.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.DataDir) == "" {
		problems = append(problems, "paths.data_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.AudioDir) == "" {
		problems = append(problems, "paths.audio_dir must not be empty")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		problems = append(problems, "paths.log_dir must not be empty")
	}
	if c.Telegram.RequestTimeout < 0 {
		problems = append(problems, "telegram.request_timeout must not be negative")
	}
	if c.Telegram.PollWindowMinutes <= 0 {
		problems = append(problems, "telegram.poll_window_minutes must be positive")
	}
	if c.Telegram.PollInterval <= 0 {
		problems = append(problems, "telegram.poll_interval must be positive")
	}
	if c.Render.LeadInSeconds < 0 {
		problems = append(problems, "render.lead_in_seconds must not be negative")
	}
	if strings.TrimSpace(c.Synthesis.DefaultVoice) == "" {
		problems = append(problems, "synthesis.default_voice must not be empty")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

// RequireTelegram returns an error unless both chat credentials are set.
func (c *Config) RequireTelegram() error {
	if strings.TrimSpace(c.Telegram.BotToken) == "" || strings.TrimSpace(c.Telegram.ChatID) == "" {
		return fmt.Errorf("telegram bot_token and chat_id must be configured (config file or TELEGRAM_BOT_TOKEN/TELEGRAM_CHAT_ID)")
	}
	return nil
}
