package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name:        "all flags",
			args:        []string{"cmd", "-a", "https://crm.example/api", "-i", "30", "-d", "/var/lib/fieldcrm", "-l", "debug"},
			expectPanic: false,
			expected: &Config{
				APIBaseURL:          "https://crm.example/api",
				OnlineCheckInterval: 30 * time.Second,
				DataDir:             "/var/lib/fieldcrm",
				LogLevel:            "debug",
			},
		},
		{
			name:        "config flag is ignored here",
			args:        []string{"cmd", "-c", "cfg.json", "-i", "5"},
			expectPanic: false,
			expected:    &Config{OnlineCheckInterval: 5 * time.Second},
		},
		{
			name:        "incorrect check interval",
			args:        []string{"cmd", "-a", "http://x", "-i", "abc"},
			expectPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			config := &Config{}

			if !tt.expectPanic {
				require.NotPanics(t, func() { parseFlags(config) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config) })
			}
		})
	}
}
