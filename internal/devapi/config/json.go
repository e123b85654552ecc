package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/fieldcrm/internal/flagx"
	"github.com/dmitrijs2005/fieldcrm/internal/timex"
)

// JsonConfig is the intermediate DTO read from the JSON config file.
// Durations accept both "15m" strings and integer nanoseconds.
type JsonConfig struct {
	EndpointAddrHTTP             string          `json:"endpoint_addr_http"`
	BasePath                     string          `json:"base_path"`
	EndpointAddrGRPC             string          `json:"endpoint_addr_grpc"`
	SecretKey                    string          `json:"secret_key"`
	AccessTokenValidityDuration  *timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration *timex.Duration `json:"refresh_token_validity_duration"`
	SeedLogin                    string          `json:"seed_login"`
	SeedPassword                 string          `json:"seed_password"`
	IdempotencyTTL               *timex.Duration `json:"idempotency_ttl"`
	LogLevel                     string          `json:"log_level"`
}

// parseJson loads configuration values from the JSON file named by -c or
// -config. Without the flag nothing is loaded. A file that cannot be read or
// parsed panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.BasePath, c.BasePath)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.SeedLogin, c.SeedLogin)
	setString(&config.SeedPassword, c.SeedPassword)
	setString(&config.LogLevel, c.LogLevel)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.IdempotencyTTL, c.IdempotencyTTL)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = time.Duration(v.Duration)
	}
}
