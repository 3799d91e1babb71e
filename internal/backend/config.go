package backend

import (
	"fmt"

	"cattlevalue/internal/config"
)

// Config selects and configures the herd backend.
type Config struct {
	Type Type

	// SQLite specific
	SQLiteDBPath string

	// Memory specific; an empty path starts with an empty herd
	SeedFile string
}

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	t := Type(appConfig.HerdBackend)
	if t == "" {
		t = Memory
	}
	if !t.IsValid() {
		return Config{}, fmt.Errorf("invalid herd backend in config: %q (valid: %v)", appConfig.HerdBackend, Types())
	}

	return Config{
		Type:         t,
		SQLiteDBPath: appConfig.SQLiteDBPath,
		SeedFile:     appConfig.HerdSeedFile,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid herd backend: %q", c.Type)
	}
	if c.Type == SQLite && c.SQLiteDBPath == "" {
		return fmt.Errorf("SQLite database path is required for sqlite backend")
	}
	return nil
}
