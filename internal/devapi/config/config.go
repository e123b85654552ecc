// Package config handles configuration for the development API,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the development API.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the REST API.
//   - BasePath: path prefix every REST route lives under.
//   - EndpointAddrGRPC: bind address for the gRPC health service; empty disables it.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use test defaults in prod.
//   - AccessTokenValidityDuration / RefreshTokenValidityDuration: token lifetimes.
//   - SeedLogin / SeedPassword: credentials of the seeded master account.
//   - IdempotencyTTL: how long a replayed mutation is recognised.
type Config struct {
	EndpointAddrHTTP             string
	BasePath                     string
	EndpointAddrGRPC             string
	SecretKey                    string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	SeedLogin                    string
	SeedPassword                 string
	IdempotencyTTL               time.Duration
	LogLevel                     string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.BasePath = "/api"
	c.EndpointAddrGRPC = ""
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.RefreshTokenValidityDuration = 7 * 24 * time.Hour
	c.SeedLogin = "master"
	c.SeedPassword = "master"
	c.IdempotencyTTL = 48 * time.Hour
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
