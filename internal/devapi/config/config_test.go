package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaults() *Config {
	return &Config{
		EndpointAddrHTTP:             ":8080",
		BasePath:                     "/api",
		SecretKey:                    "secretKey",
		AccessTokenValidityDuration:  15 * time.Minute,
		RefreshTokenValidityDuration: 7 * 24 * time.Hour,
		SeedLogin:                    "master",
		SeedPassword:                 "master",
		IdempotencyTTL:               48 * time.Hour,
		LogLevel:                     "info",
	}
}

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	if diff := cmp.Diff(defaults(), &c); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"devapi"}

	c := LoadConfig()
	require.NotNil(t, c)
	if diff := cmp.Diff(defaults(), c); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	os.Args = []string{"devapi",
		"-a", "127.0.0.1:9090", "-g", ":50051", "-s", "secret",
		"-t", "1", "-r", "3", "-u", "anna", "-p", "pw", "-l", "debug",
		"-x", "ignored",
	}

	c := defaults()
	parseFlags(c)

	want := defaults()
	want.EndpointAddrHTTP = "127.0.0.1:9090"
	want.EndpointAddrGRPC = ":50051"
	want.SecretKey = "secret"
	want.AccessTokenValidityDuration = time.Minute
	want.RefreshTokenValidityDuration = 3 * time.Minute
	want.SeedLogin = "anna"
	want.SeedPassword = "pw"
	want.LogLevel = "debug"

	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("flags mismatch (-want +got):\n%s", diff)
	}
}

func TestParseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := filepath.Join(t.TempDir(), "devapi.json")
	b, err := json.Marshal(map[string]any{
		"endpoint_addr_grpc":             "127.0.0.1:50051",
		"access_token_validity_duration": "2m",
		"idempotency_ttl":                "1h",
		"seed_login":                     "boris",
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))

	t.Run("overlays only named keys", func(t *testing.T) {
		os.Args = []string{"devapi", "-c", path}
		c := defaults()
		parseJson(c)

		assert.Equal(t, "127.0.0.1:50051", c.EndpointAddrGRPC)
		assert.Equal(t, 2*time.Minute, c.AccessTokenValidityDuration)
		assert.Equal(t, time.Hour, c.IdempotencyTTL)
		assert.Equal(t, "boris", c.SeedLogin)
		assert.Equal(t, ":8080", c.EndpointAddrHTTP)
		assert.Equal(t, 7*24*time.Hour, c.RefreshTokenValidityDuration)
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"devapi", "-config", filepath.Join(t.TempDir(), "nope.json")}
		assert.Panics(t, func() { parseJson(defaults()) })
	})

	t.Run("broken json panics", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
		os.Args = []string{"devapi", "-c", bad}
		assert.Panics(t, func() { parseJson(defaults()) })
	})
}
