package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/tgifai/newscast/internal/match"
	"github.com/tgifai/newscast/internal/resolver"
)

type (
	Config struct {
		Gateway  GatewayConfig            `yaml:"gateway"`
		Logging  LoggingConfig            `yaml:"logging"`
		Skill    SkillConfig              `yaml:"skill"`
		Resolver ResolverConfig           `yaml:"resolver"`
		Prefetch PrefetchConfig           `yaml:"prefetch"`
		Settings SettingsConfig           `yaml:"settings"`
		Channels map[string]ChannelConfig `yaml:"channels"`
	}

	GatewayConfig struct {
		Bind                  string `yaml:"bind"`
		MaxConcurrentSessions int    `yaml:"max_concurrent_sessions"`
		RequestTimeout        int    `yaml:"request_timeout"` // seconds
		Metrics               bool   `yaml:"metrics"`
		MetricsPath           string `yaml:"metrics_path"`
	}

	LoggingConfig struct {
		Level      string `yaml:"level"`  // debug, info, warn, error
		Format     string `yaml:"format"` // json, text
		Output     string `yaml:"output"` // stdout, file, both
		File       string `yaml:"file"`
		MaxSize    int    `yaml:"max_size"` // MB
		MaxBackups int    `yaml:"max_backups"`
		MaxAge     int    `yaml:"max_age"` // days
	}

	SkillConfig struct {
		Lang          string            `yaml:"lang"`
		Catalog       string            `yaml:"catalog"` // empty loads the built-in catalog
		MinConfidence int               `yaml:"min_confidence"`
		Weights       *match.Weights    `yaml:"weights,omitempty"`
		LangDefaults  map[string]string `yaml:"lang_defaults,omitempty"`
		ImageBase     string            `yaml:"image_base"`
		SkillIcon     string            `yaml:"skill_icon"`
		Background    string            `yaml:"background"`
		WorldTag      string            `yaml:"world_tag"`
	}

	ResolverConfig struct {
		TimeoutSec  int                `yaml:"timeout_sec"`
		UserAgent   string             `yaml:"user_agent"`
		CacheTTL    string             `yaml:"cache_ttl"`
		YTDLPBinary string             `yaml:"ytdlp_binary"`
		Endpoints   resolver.Endpoints `yaml:"endpoints,omitempty"`
	}

	PrefetchConfig struct {
		Enabled    *bool  `yaml:"enabled"`
		Schedule   string `yaml:"schedule"`
		TimeoutSec int    `yaml:"timeout_sec"`
	}

	SettingsConfig struct {
		Path string `yaml:"path"`
	}

	ChannelConfig struct {
		ID      string                 `yaml:"-"`
		Type    string                 `yaml:"type"` // telegram, http
		Enabled bool                   `yaml:"enabled"`
		Lang    string                 `yaml:"lang,omitempty"`
		Config  map[string]interface{} `yaml:"config"`
	}
)

// UpdateByName replaces one top level section.
func (c *Config) UpdateByName(name string, value any) error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	normalizedName := strings.ToLower(strings.TrimSpace(name))
	if normalizedName == "" {
		return fmt.Errorf("name is required")
	}

	switch normalizedName {
	case "config":
		typed, ok := value.(*Config)
		if !ok || typed == nil {
			return fmt.Errorf("name 'config' requires *Config")
		}
		*c = *typed
	case "gateway":
		typed, ok := value.(*GatewayConfig)
		if !ok || typed == nil {
			return fmt.Errorf("name 'gateway' requires *GatewayConfig")
		}
		c.Gateway = *typed
	case "logging":
		typed, ok := value.(*LoggingConfig)
		if !ok || typed == nil {
			return fmt.Errorf("name 'logging' requires *LoggingConfig")
		}
		c.Logging = *typed
	case "skill":
		typed, ok := value.(*SkillConfig)
		if !ok || typed == nil {
			return fmt.Errorf("name 'skill' requires *SkillConfig")
		}
		c.Skill = *typed
	case "resolver":
		typed, ok := value.(*ResolverConfig)
		if !ok || typed == nil {
			return fmt.Errorf("name 'resolver' requires *ResolverConfig")
		}
		c.Resolver = *typed
	case "prefetch":
		typed, ok := value.(*PrefetchConfig)
		if !ok || typed == nil {
			return fmt.Errorf("name 'prefetch' requires *PrefetchConfig")
		}
		c.Prefetch = *typed
	case "settings":
		typed, ok := value.(*SettingsConfig)
		if !ok || typed == nil {
			return fmt.Errorf("name 'settings' requires *SettingsConfig")
		}
		c.Settings = *typed
	case "channels":
		typed, ok := value.(*map[string]ChannelConfig)
		if !ok || typed == nil {
			return fmt.Errorf("name 'channels' requires *map[string]ChannelConfig")
		}
		next := make(map[string]ChannelConfig, len(*typed))
		for k, v := range *typed {
			next[k] = v
		}
		c.Channels = next
	default:
		return fmt.Errorf("unsupported config name: %s", name)
	}

	return nil
}

// Clone deep copies the config through a JSON round trip.
func (c *Config) Clone() (*Config, error) {
	if c == nil {
		return nil, fmt.Errorf("config is nil")
	}

	raw, err := sonic.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	var cloned Config
	if err := sonic.Unmarshal(raw, &cloned); err != nil {
		return nil, fmt.Errorf("unmarshal config clone: %w", err)
	}
	return &cloned, nil
}

// Hash is a stable digest of the config, used for compare-and-swap updates.
func (c *Config) Hash() string {
	json := sonic.Config{SortMapKeys: true, UseNumber: true}.Froze()
	raw, _ := json.Marshal(c)
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// PrefetchEnabled reports whether the cache warmer should run.
func (c *Config) PrefetchEnabled() bool {
	return c.Prefetch.Enabled == nil || *c.Prefetch.Enabled
}
