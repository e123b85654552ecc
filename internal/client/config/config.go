package config

import "time"

// Config holds runtime settings for the fieldcrm client.
//
// Durations are time.Duration values; JSON files spell them as "3s", "4m".
type Config struct {
	// APIBaseURL is the root of the remote REST API, e.g. https://crm.example/api.
	APIBaseURL string
	// DataDir holds the local SQLite databases (fieldcrm.db, settings.db).
	DataDir string
	// PrefsPath is the fast settings cache file.
	PrefsPath string

	// OnlineCheckInterval is how often the background watcher probes the API.
	OnlineCheckInterval time.Duration
	// ProbeTimeout bounds a single connectivity probe.
	ProbeTimeout time.Duration
	// DebounceWindow is how long a probe result is reused by IsOnline.
	DebounceWindow time.Duration
	// ReconnectBanner is how long "syncing" is shown after coming back online.
	ReconnectBanner time.Duration
	// GRPCHealthAddr, when set, switches the probe to the gRPC health service.
	GRPCHealthAddr string

	// RefreshInterval is the silent session refresh period.
	RefreshInterval time.Duration
	// SessionLifetime is the server-side access credential lifetime.
	SessionLifetime time.Duration
	// ProfileTTL bounds the cached identity when the session carries no expiry.
	ProfileTTL time.Duration

	// MaxSyncAttempts moves a queued mutation to the failed state.
	MaxSyncAttempts int
	// MaxStoreBytes caps the main database size; zero means unlimited.
	MaxStoreBytes int64

	NotificationPollInterval time.Duration

	LogLevel string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:8080/api"
	c.DataDir = "~/.local/share/fieldcrm"
	c.PrefsPath = "~/.config/fieldcrm/prefs.toml"

	c.OnlineCheckInterval = 10 * time.Second
	c.ProbeTimeout = 3 * time.Second
	c.DebounceWindow = 5 * time.Second
	c.ReconnectBanner = 3 * time.Second
	c.GRPCHealthAddr = ""

	c.RefreshInterval = 4 * time.Minute
	c.SessionLifetime = 15 * time.Minute
	c.ProfileTTL = 24 * time.Hour

	c.MaxSyncAttempts = 10
	c.MaxStoreBytes = 0

	c.NotificationPollInterval = time.Minute

	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present), the environment and command-line flags. Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}
