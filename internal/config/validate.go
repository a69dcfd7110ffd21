package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateEpisodes(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.APIBind == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind: %w", err)
	}
	return nil
}

func (c *Config) validateSchedule() error {
	if err := validateHTTPURL("schedule.url", c.Schedule.URL); err != nil {
		return err
	}
	if c.Schedule.MinMembers < 0 {
		return errors.New("schedule.min_members must be >= 0")
	}
	return ensurePositiveMap(map[string]int{
		"schedule.request_timeout": c.Schedule.RequestTimeout,
	})
}

func (c *Config) validateEpisodes() error {
	if err := validateHTTPURL("episodes.site_url", c.Episodes.SiteURL); err != nil {
		return err
	}
	if c.Episodes.RequestsPerSecond <= 0 {
		return errors.New("episodes.requests_per_second must be positive")
	}
	return ensurePositiveMap(map[string]int{
		"episodes.request_timeout": c.Episodes.RequestTimeout,
		"episodes.max_probes":      c.Episodes.MaxProbes,
	})
}

func (c *Config) validateScheduler() error {
	if err := ensurePositiveMap(map[string]int{
		"scheduler.weekly_interval":   c.Scheduler.WeeklyInterval,
		"scheduler.frequent_interval": c.Scheduler.FrequentInterval,
		"scheduler.work_timeout":      c.Scheduler.WorkTimeout,
	}); err != nil {
		return err
	}
	if c.Scheduler.FrequentInterval >= c.Scheduler.WeeklyInterval {
		return errors.New("scheduler.frequent_interval must be shorter than scheduler.weekly_interval")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if err := validateHTTPURL("notifications.site_url", c.Notifications.SiteURL); err != nil {
		return err
	}
	if c.Notifications.NtfyTopic != "" {
		if err := validateHTTPURL("notifications.ntfy_topic", c.Notifications.NtfyTopic); err != nil {
			return err
		}
	}
	return ensurePositiveMap(map[string]int{
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return errors.New("logging rotation limits must be >= 0")
	}
	return nil
}

func validateHTTPURL(key, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s must be set", key)
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url, got %q", key, value)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", key)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
