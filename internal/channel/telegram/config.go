package telegram

import (
	"errors"
	"fmt"

	"github.com/bytedance/gg/gconv"

	"github.com/tgifai/newscast/internal/channel"
)

type Config struct {
	Token string // Telegram Bot Token
	// AllowedUsers and AllowedGroups restrict who may talk to the bot.
	// Empty lists allow everyone.
	AllowedUsers  []int64
	AllowedGroups []int64
	// SendAudio posts playable mp3 results as audio messages instead of links.
	SendAudio bool
}

func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New("telegram bot token cannot be empty")
	}
	return nil
}

func (c *Config) GetType() channel.Type {
	return channel.Telegram
}

func ParseConfig(configMap map[string]interface{}) (*Config, error) {
	config := &Config{
		Token:     gconv.To[string](configMap["token"]),
		SendAudio: gconv.To[bool](configMap["send_audio"]),
	}

	var err error
	if config.AllowedUsers, err = parseIDs(configMap["allowed_users"]); err != nil {
		return nil, fmt.Errorf("allowed_users: %w", err)
	}
	if config.AllowedGroups, err = parseIDs(configMap["allowed_groups"]); err != nil {
		return nil, fmt.Errorf("allowed_groups: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telegram config: %w", err)
	}
	return config, nil
}

func parseIDs(raw interface{}) ([]int64, error) {
	list, ok := raw.([]interface{})
	if !ok || len(list) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(list))
	for _, one := range list {
		id := gconv.To[int64](one)
		if id == 0 {
			return nil, fmt.Errorf("invalid id: %v", one)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
