package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/flagx"
	"github.com/dmitrijs2005/fieldcrm/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer and
// zero values mean "not set" so a partial file only overrides what it names.
type JsonConfig struct {
	APIBaseURL               string          `json:"api_base_url"`
	DataDir                  string          `json:"data_dir"`
	PrefsPath                string          `json:"prefs_path"`
	OnlineCheckInterval      *timex.Duration `json:"online_check_interval"`
	ProbeTimeout             *timex.Duration `json:"probe_timeout"`
	DebounceWindow           *timex.Duration `json:"debounce_window"`
	ReconnectBanner          *timex.Duration `json:"reconnect_banner"`
	GRPCHealthAddr           string          `json:"grpc_health_addr"`
	RefreshInterval          *timex.Duration `json:"refresh_interval"`
	SessionLifetime          *timex.Duration `json:"session_lifetime"`
	ProfileTTL               *timex.Duration `json:"profile_ttl"`
	MaxSyncAttempts          *int            `json:"max_sync_attempts"`
	MaxStoreBytes            *int64          `json:"max_store_bytes"`
	NotificationPollInterval *timex.Duration `json:"notification_poll_interval"`
	LogLevel                 string          `json:"log_level"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c/-config. Read or unmarshal errors panic; a broken config file is a
// startup error the user must fix.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	setString(&cfg.APIBaseURL, jc.APIBaseURL)
	setString(&cfg.DataDir, jc.DataDir)
	setString(&cfg.PrefsPath, jc.PrefsPath)
	setString(&cfg.GRPCHealthAddr, jc.GRPCHealthAddr)
	setString(&cfg.LogLevel, jc.LogLevel)

	setDuration(&cfg.OnlineCheckInterval, jc.OnlineCheckInterval)
	setDuration(&cfg.ProbeTimeout, jc.ProbeTimeout)
	setDuration(&cfg.DebounceWindow, jc.DebounceWindow)
	setDuration(&cfg.ReconnectBanner, jc.ReconnectBanner)
	setDuration(&cfg.RefreshInterval, jc.RefreshInterval)
	setDuration(&cfg.SessionLifetime, jc.SessionLifetime)
	setDuration(&cfg.ProfileTTL, jc.ProfileTTL)
	setDuration(&cfg.NotificationPollInterval, jc.NotificationPollInterval)

	if jc.MaxSyncAttempts != nil {
		cfg.MaxSyncAttempts = *jc.MaxSyncAttempts
	}
	if jc.MaxStoreBytes != nil {
		cfg.MaxStoreBytes = *jc.MaxStoreBytes
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
