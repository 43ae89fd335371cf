package http

import (
	"fmt"
	"time"

	"github.com/bytedance/gg/gconv"

	"github.com/tgifai/newscast/internal/channel"
)

const defaultResponseTimeout = 60 * time.Second

type Config struct {
	// APIKey is an optional bearer token. When set, requests must include
	// "Authorization: Bearer <api_key>".
	APIKey string
	// ResponseTimeout bounds how long the message endpoint waits for a reply.
	ResponseTimeout time.Duration
}

func (c *Config) Validate() error {
	if c.ResponseTimeout < 0 {
		return fmt.Errorf("response_timeout cannot be negative")
	}
	if c.ResponseTimeout == 0 {
		c.ResponseTimeout = defaultResponseTimeout
	}
	return nil
}

func (c *Config) GetType() channel.Type {
	return channel.HTTP
}

func ParseConfig(configMap map[string]interface{}) (*Config, error) {
	cfg := &Config{}
	cfg.APIKey = gconv.To[string](configMap["api_key"])
	cfg.ResponseTimeout = time.Duration(gconv.To[int](configMap["response_timeout"])) * time.Second

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid http config: %w", err)
	}
	return cfg, nil
}
