package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tgifai/newscast/internal/catalog"
	"github.com/tgifai/newscast/internal/consts"
	"github.com/tgifai/newscast/internal/media"
)

const (
	DefaultBind             = "127.0.0.1:8088"
	DefaultMetricsPath      = "/metrics"
	DefaultPrefetchSchedule = "*/15 * * * *"
	DefaultLang             = "en-us"

	defaultMaxConcurrentSessions = 8
	defaultRequestTimeoutSec     = 30
	defaultResolverTimeoutSec    = 15
	defaultCacheTTL              = "10m"
	defaultPrefetchTimeoutSec    = 120

	ChannelTypeTelegram = "telegram"
	ChannelTypeHTTP     = "http"
)

// Validate fills defaults in place and rejects values the runtime cannot use.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config cannot be nil")
	}

	c.Gateway.Bind = strings.TrimSpace(c.Gateway.Bind)
	if c.Gateway.Bind == "" {
		c.Gateway.Bind = DefaultBind
	}
	if c.Gateway.MaxConcurrentSessions <= 0 {
		c.Gateway.MaxConcurrentSessions = defaultMaxConcurrentSessions
	}
	if c.Gateway.RequestTimeout <= 0 {
		c.Gateway.RequestTimeout = defaultRequestTimeoutSec
	}
	if c.Gateway.MetricsPath == "" {
		c.Gateway.MetricsPath = DefaultMetricsPath
	}
	if !strings.HasPrefix(c.Gateway.MetricsPath, "/") {
		return fmt.Errorf("gateway.metrics_path must start with /, got %s", c.Gateway.MetricsPath)
	}

	if err := c.Skill.validate(); err != nil {
		return fmt.Errorf("skill: %w", err)
	}
	if err := c.Resolver.validate(); err != nil {
		return fmt.Errorf("resolver: %w", err)
	}

	if c.Prefetch.Enabled == nil {
		enabled := true
		c.Prefetch.Enabled = &enabled
	}
	c.Prefetch.Schedule = strings.TrimSpace(c.Prefetch.Schedule)
	if c.Prefetch.Schedule == "" {
		c.Prefetch.Schedule = DefaultPrefetchSchedule
	}
	if _, err := cron.ParseStandard(c.Prefetch.Schedule); err != nil {
		return fmt.Errorf("prefetch.schedule %q: %w", c.Prefetch.Schedule, err)
	}
	if c.Prefetch.TimeoutSec <= 0 {
		c.Prefetch.TimeoutSec = defaultPrefetchTimeoutSec
	}

	c.Settings.Path = strings.TrimSpace(c.Settings.Path)
	if c.Settings.Path == "" {
		c.Settings.Path = consts.DefaultSettingsPath()
	}

	normalizedChannels := make(map[string]ChannelConfig, len(c.Channels))
	for key, one := range c.Channels {
		channelID := strings.TrimSpace(key)
		if channelID == "" {
			return errors.New("channel id cannot be empty")
		}
		one.ID = channelID

		if err := one.Validate(); err != nil {
			return fmt.Errorf("channels[%s] validation failed: %w", channelID, err)
		}
		normalizedChannels[channelID] = one
	}
	c.Channels = normalizedChannels
	return nil
}

func (s *SkillConfig) validate() error {
	s.Lang = catalog.NormalizeLang(s.Lang)
	if s.Lang == "" {
		s.Lang = DefaultLang
	}
	if s.MinConfidence <= 0 {
		s.MinConfidence = media.Average
	}
	if s.MinConfidence > 100 {
		return fmt.Errorf("min_confidence must be at most 100, got %d", s.MinConfidence)
	}
	if strings.TrimSpace(s.WorldTag) == "" {
		s.WorldTag = "world"
	}
	if len(s.LangDefaults) > 0 {
		normalized := make(map[string]string, len(s.LangDefaults))
		for lang, id := range s.LangDefaults {
			lang = catalog.NormalizeLang(lang)
			id = strings.TrimSpace(id)
			if lang == "" || id == "" {
				return errors.New("lang_defaults entries need a language and a station id")
			}
			normalized[lang] = id
		}
		s.LangDefaults = normalized
	}
	return nil
}

func (r *ResolverConfig) validate() error {
	if r.TimeoutSec <= 0 {
		r.TimeoutSec = defaultResolverTimeoutSec
	}
	r.CacheTTL = strings.TrimSpace(r.CacheTTL)
	if r.CacheTTL == "" {
		r.CacheTTL = defaultCacheTTL
	}
	ttl, err := time.ParseDuration(r.CacheTTL)
	if err != nil {
		return fmt.Errorf("cache_ttl: %w", err)
	}
	if ttl < 0 {
		return fmt.Errorf("cache_ttl cannot be negative: %s", r.CacheTTL)
	}
	return nil
}

// Timeout is the per-fetch deadline.
func (r ResolverConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSec) * time.Second
}

// TTL parses CacheTTL. Invalid values were rejected by Validate, so an error
// here falls back to disabling the cache.
func (r ResolverConfig) TTL() time.Duration {
	ttl, err := time.ParseDuration(r.CacheTTL)
	if err != nil {
		return 0
	}
	return ttl
}

func (c *ChannelConfig) Validate() error {
	if c == nil {
		return errors.New("channel config cannot be nil")
	}

	c.Type = strings.ToLower(strings.TrimSpace(c.Type))
	switch c.Type {
	case ChannelTypeTelegram, ChannelTypeHTTP:
	case "":
		return errors.New("type is required")
	default:
		return fmt.Errorf("unsupported channel type: %s", c.Type)
	}
	c.Lang = catalog.NormalizeLang(c.Lang)
	return nil
}
