package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the permtreed daemon's configuration.
type Config struct {
	ListenAddr string `json:"listen_addr"`

	UsersFilePath  string `json:"users_file_path"`
	GroupsFilePath string `json:"groups_file_path"`

	SaveOnExit     bool `json:"save_on_exit"`
	ReloadInterval int  `json:"reload_interval"` // seconds

	AccessLogPath string `json:"access_log_path,omitempty"`
	AppLogPath    string `json:"app_log_path,omitempty"`
	Debug         bool   `json:"debug,omitempty"`

	JWTSigningKey string `json:"jwt_signing_key,omitempty"`

	DBDriver string `json:"db_driver,omitempty"` // "file" (default), "sqlite3" or "postgres"
	DBDSN    string `json:"db_dsn,omitempty"`

	SeedFilePath string `json:"seed_file_path,omitempty"`
}

// LoadConfig loads configuration from a JSON file, resolving every relative
// path it carries against the config file's own directory.
func LoadConfig(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	configDir := filepath.Dir(path)
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(configDir, p)
	}

	config.UsersFilePath = resolve(config.UsersFilePath)
	config.GroupsFilePath = resolve(config.GroupsFilePath)
	config.AccessLogPath = resolve(config.AccessLogPath)
	config.AppLogPath = resolve(config.AppLogPath)
	config.SeedFilePath = resolve(config.SeedFilePath)

	if config.ListenAddr == "" {
		config.ListenAddr = ":8080"
	}
	if config.ReloadInterval == 0 {
		config.ReloadInterval = 60
	}
	if config.DBDriver == "" {
		config.DBDriver = "file"
	}

	return nil
}
