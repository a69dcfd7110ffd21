package testsupport

import (
	"path/filepath"
	"testing"

	"animetrack/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config rooted in a per-test temp directory with
// network endpoints pointing at unroutable placeholders until overridden.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Schedule.URL = "http://127.0.0.1:0/schedule"
	cfgVal.Episodes.SiteURL = "http://127.0.0.1:0"
	cfgVal.Episodes.RequestsPerSecond = 1000
	cfgVal.Notifications.SiteURL = "http://animetrack.test"

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithScheduleURL points the schedule client at a stub server.
func WithScheduleURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Schedule.URL = url
	}
}

// WithEpisodeSite points the episode source at a stub server.
func WithEpisodeSite(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Episodes.SiteURL = url
	}
}

// WithNtfyTopic enables ntfy delivery to the given topic URL.
func WithNtfyTopic(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = url
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
