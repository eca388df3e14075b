package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	AppName     = "pc-component-mixer"
	EnvFileName = "config.env"

	DefaultDBPath = "mixer.db"
)

// LoadEnvFile loads environment variables from the config file in the user's
// config directory, then from a local .env. Errors are ignored since neither
// file is required.
func LoadEnvFile() {
	if configBase, err := os.UserConfigDir(); err == nil {
		_ = godotenv.Load(filepath.Join(configBase, AppName, EnvFileName))
	}
	_ = godotenv.Load(".env")
}

// DBPath returns the SQLite path, honoring the MIXER_DB_PATH override.
func DBPath() string {
	if p := os.Getenv("MIXER_DB_PATH"); p != "" {
		return p
	}
	return DefaultDBPath
}
