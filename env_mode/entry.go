// Package env_mode resolves the deployment mode from GO_ENV_MODE.
package env_mode

import (
	"os"
	"strings"
)

// Key is the environment variable holding the mode.
const Key = "GO_ENV_MODE"

type Mode string

const (
	DevMode  Mode = "development"
	ProMode  Mode = "production"
	TestMode Mode = "test"
)

// Parse maps common spellings onto a Mode; anything unknown is development.
func Parse(env string) Mode {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "production", "prod", "pro":
		return ProMode
	case "test", "testing":
		return TestMode
	default:
		return DevMode
	}
}

// Current reads the mode from the environment on every call.
func Current() Mode {
	return Parse(os.Getenv(Key))
}

// Aliases returns the file suffixes accepted for m, canonical name first.
func (m Mode) Aliases() []string {
	switch m {
	case ProMode:
		return []string{"production", "prod", "pro"}
	case TestMode:
		return []string{"test"}
	default:
		return []string{"development", "dev"}
	}
}

// Set stores m in the environment.
func Set(m Mode) error {
	return os.Setenv(Key, string(m))
}
