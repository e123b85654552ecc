// Package config loads runtime configuration for the fieldcrm client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via flags: -c or -config.
//  3. Environment: FIELDCRM_API_URL overrides the API base URL.
//  4. Command-line flags, which override everything else.
//
// Supported flags
//
//	-a string   base URL of the remote API
//	-i int      online status check interval (seconds)
//	-d string   data directory for local databases
//	-l string   log level (debug, info, warn, error)
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be strings like "3s" or
// integer nanoseconds. Omitted keys keep their defaults:
//
//	{
//	  "api_base_url": "https://crm.example.org/api",
//	  "data_dir": "~/.local/share/fieldcrm",
//	  "online_check_interval": "10s",
//	  "probe_timeout": "3s",
//	  "refresh_interval": "4m",
//	  "max_sync_attempts": 10
//	}
package config
