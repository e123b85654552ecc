package config

import (
	"os"
	"strings"
)

// APIURLEnv names the environment variable that supplies the API base URL.
const APIURLEnv = "FIELDCRM_API_URL"

func parseEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(APIURLEnv)); v != "" {
		cfg.APIBaseURL = v
	}
}
