package config

const (
	defaultDataDir                = "~/.local/share/animetrack"
	defaultLogDir                 = "~/.local/share/animetrack/logs"
	defaultScheduleURL            = "https://api.jikan.moe/v3/schedule"
	defaultMinMembers             = 10000
	defaultScheduleRequestTimeout = 30
	defaultEpisodeSiteURL         = "https://gogoanime.pe"
	defaultNotFoundSentinel       = "404"
	defaultEpisodeUserAgent       = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_10_1) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/39.0.2171.95 Safari/537.36"
	defaultEpisodeRequestTimeout  = 15
	defaultEpisodeRequestsPerSec  = 2.0
	defaultEpisodeMaxProbes       = 200
	defaultWeeklyInterval         = 7 * 24 * 60 * 60
	defaultFrequentInterval       = 5 * 60
	defaultWorkTimeout            = 120
	defaultSystemIdentity         = "animetrack"
	defaultCatalogSiteURL         = "http://localhost:8000"
	defaultNotifyRequestTimeout   = 10
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogMaxSizeMB           = 20
	defaultLogMaxBackups          = 5
	defaultLogMaxAgeDays          = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Schedule: Schedule{
			URL:            defaultScheduleURL,
			MinMembers:     defaultMinMembers,
			RequestTimeout: defaultScheduleRequestTimeout,
		},
		Episodes: Episodes{
			SiteURL:           defaultEpisodeSiteURL,
			NotFoundSentinel:  defaultNotFoundSentinel,
			UserAgent:         defaultEpisodeUserAgent,
			RequestTimeout:    defaultEpisodeRequestTimeout,
			RequestsPerSecond: defaultEpisodeRequestsPerSec,
			MaxProbes:         defaultEpisodeMaxProbes,
		},
		Scheduler: Scheduler{
			WeeklyInterval:   defaultWeeklyInterval,
			FrequentInterval: defaultFrequentInterval,
			WorkTimeout:      defaultWorkTimeout,
			RunOnStart:       true,
		},
		Notifications: Notifications{
			SystemIdentity: defaultSystemIdentity,
			SiteURL:        defaultCatalogSiteURL,
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		Logging: Logging{
			Format:     defaultLogFormat,
			Level:      defaultLogLevel,
			MaxSizeMB:  defaultLogMaxSizeMB,
			MaxBackups: defaultLogMaxBackups,
			MaxAgeDays: defaultLogMaxAgeDays,
		},
	}
}
