package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSchedule()
	c.normalizeEpisodes()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	return nil
}

func (c *Config) normalizeSchedule() {
	c.Schedule.URL = strings.TrimSpace(c.Schedule.URL)
	if c.Schedule.URL == "" {
		c.Schedule.URL = defaultScheduleURL
	}
}

func (c *Config) normalizeEpisodes() {
	c.Episodes.SiteURL = strings.TrimRight(strings.TrimSpace(c.Episodes.SiteURL), "/")
	if c.Episodes.SiteURL == "" {
		c.Episodes.SiteURL = defaultEpisodeSiteURL
	}
	c.Episodes.NotFoundSentinel = strings.TrimSpace(c.Episodes.NotFoundSentinel)
	if c.Episodes.NotFoundSentinel == "" {
		c.Episodes.NotFoundSentinel = defaultNotFoundSentinel
	}
	c.Episodes.UserAgent = strings.TrimSpace(c.Episodes.UserAgent)
	if c.Episodes.UserAgent == "" {
		c.Episodes.UserAgent = defaultEpisodeUserAgent
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.SystemIdentity = strings.TrimSpace(c.Notifications.SystemIdentity)
	if c.Notifications.SystemIdentity == "" {
		c.Notifications.SystemIdentity = defaultSystemIdentity
	}
	c.Notifications.SiteURL = strings.TrimRight(strings.TrimSpace(c.Notifications.SiteURL), "/")
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("ANIMETRACK_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
