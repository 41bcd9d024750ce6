package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "permtreed.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoadConfigResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, `{
		"users_file_path": "users.perm",
		"groups_file_path": "data/groups.perm"
	}`)

	var cfg Config
	if err := LoadConfig(path, &cfg); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	wantUsers := filepath.Join(dir, "users.perm")
	if cfg.UsersFilePath != wantUsers {
		t.Errorf("UsersFilePath = %q, want %q", cfg.UsersFilePath, wantUsers)
	}
	wantGroups := filepath.Join(dir, "data/groups.perm")
	if cfg.GroupsFilePath != wantGroups {
		t.Errorf("GroupsFilePath = %q, want %q", cfg.GroupsFilePath, wantGroups)
	}
}

func TestLoadConfigLeavesAbsolutePathsAlone(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, `{
		"users_file_path": "/var/lib/permtreed/users.perm"
	}`)

	var cfg Config
	if err := LoadConfig(path, &cfg); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.UsersFilePath != "/var/lib/permtreed/users.perm" {
		t.Errorf("UsersFilePath = %q, want it unchanged", cfg.UsersFilePath)
	}
}

func TestLoadConfigFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, `{}`)

	var cfg Config
	if err := LoadConfig(path, &cfg); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want default %q", cfg.ListenAddr, ":8080")
	}
	if cfg.ReloadInterval != 60 {
		t.Errorf("ReloadInterval = %d, want default 60", cfg.ReloadInterval)
	}
	if cfg.DBDriver != "file" {
		t.Errorf("DBDriver = %q, want default %q", cfg.DBDriver, "file")
	}
}

func TestLoadConfigPreservesExplicitValues(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, `{
		"listen_addr": ":9090",
		"reload_interval": 30,
		"db_driver": "sqlite3",
		"db_dsn": "./snapshots.db"
	}`)

	var cfg Config
	if err := LoadConfig(path, &cfg); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want %q", cfg.ListenAddr, ":9090")
	}
	if cfg.ReloadInterval != 30 {
		t.Errorf("ReloadInterval = %d, want 30", cfg.ReloadInterval)
	}
	if cfg.DBDriver != "sqlite3" {
		t.Errorf("DBDriver = %q, want %q", cfg.DBDriver, "sqlite3")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	var cfg Config
	if err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"), &cfg); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestOpenSnapshotStoreUnknownDriver(t *testing.T) {
	cfg := Config{DBDriver: "oracle"}
	if _, _, err := openSnapshotStore(cfg); err == nil {
		t.Fatal("expected an error for an unknown db_driver")
	}
}

func TestOpenSnapshotStoreDefaultsToFileStore(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{UsersFilePath: filepath.Join(dir, "users.perm")}
	store, closeStore, err := openSnapshotStore(cfg)
	if err != nil {
		t.Fatalf("openSnapshotStore: %v", err)
	}
	defer closeStore()
	if store == nil {
		t.Fatal("expected a non-nil store for the default file driver")
	}
}
