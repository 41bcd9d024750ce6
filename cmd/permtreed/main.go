package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/mmcdole/permtree/internal/httpapi"
	"github.com/mmcdole/permtree/internal/snapshot"
	"github.com/mmcdole/permtree/pkg/permevents"
	"github.com/mmcdole/permtree/pkg/permguard"
	"github.com/mmcdole/permtree/pkg/permid"
	"github.com/mmcdole/permtree/pkg/permlog"
	"github.com/mmcdole/permtree/pkg/registry"
)

var version = "dev" // set during build

const shortUsage = `permtreed - hierarchical permission registry daemon

Usage: permtreed [options]

Options:
  -config string
        Path to config file (required)
  -version
        Show version information
  -help
        Show detailed help and example configuration
`

const helpText = `permtreed - hierarchical permission registry daemon

Serves the registry's query and mutation surface over HTTP, backed by the
two-file (users/groups) text persistence format.

Usage: permtreed [options]

Example Configuration:
{
    "listen_addr": ":8080",
    "users_file_path": "users.perm",
    "groups_file_path": "groups.perm",
    "save_on_exit": true,
    "reload_interval": 60,
    "jwt_signing_key": "change-me"
}
`

func main() {
	configPath := flag.String("config", "", "Path to config file (required)")
	showVersion := flag.Bool("version", false, "Show version information")
	showHelp := flag.Bool("help", false, "Show detailed help and example configuration")
	flag.Usage = func() { fmt.Fprint(os.Stderr, shortUsage) }
	flag.Parse()

	if *showHelp {
		io.WriteString(os.Stdout, helpText)
		os.Exit(0)
	}
	if *showVersion {
		fmt.Printf("permtreed %s\n", version)
		os.Exit(0)
	}
	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: config file path is required\nUse -help for detailed usage")
		os.Exit(1)
	}

	absConfigPath, err := filepath.Abs(*configPath)
	if err != nil {
		log.Fatalf("failed to get absolute path: %v", err)
	}

	var cfg Config
	if err := LoadConfig(absConfigPath, &cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	level := permlog.LevelInfo
	if cfg.Debug {
		level = permlog.LevelDebug
	}
	if err := permlog.Initialize(permlog.Config{
		AppLogPath:    cfg.AppLogPath,
		AccessLogPath: cfg.AccessLogPath,
		Level:         level,
	}); err != nil {
		log.Fatalf("failed to initialize logging: %v", err)
	}

	reg := registry.NewWithFiles(permid.StringIdentity(), cfg.UsersFilePath, cfg.GroupsFilePath)
	if err := reg.Load(); err != nil {
		log.Fatalf("failed to load registry: %v", err)
	}

	if cfg.SeedFilePath != "" && len(reg.UserKeys()) == 0 && len(reg.GroupNames()) == 0 {
		if err := seedFromYAML(reg, cfg.SeedFilePath); err != nil {
			log.Fatalf("failed to apply seed file: %v", err)
		}
	}

	guard := permguard.New(reg)
	bus := permevents.NewBus()
	broadcaster := permevents.NewWebSocketBroadcaster(bus)
	broadcaster.Run()
	defer broadcaster.Stop()

	store, closeStore, err := openSnapshotStore(cfg)
	if err != nil {
		log.Fatalf("failed to open snapshot store: %v", err)
	}
	defer closeStore()
	stopSnapshots := startPeriodicSnapshot(guard, store, time.Duration(cfg.ReloadInterval)*time.Second)
	defer stopSnapshots()

	server := httpapi.New(guard, bus, broadcaster, []byte(cfg.JWTSigningKey))

	permlog.App.Info("starting permtreed", "version", version, "addr", cfg.ListenAddr)
	serveErr := http.ListenAndServe(cfg.ListenAddr, server)

	if cfg.SaveOnExit {
		if err := guard.Save(); err != nil {
			permlog.App.Error("failed to save registry on exit", "error", err)
		}
	}
	if serveErr != nil {
		log.Fatalf("error starting server: %v", serveErr)
	}
}

// seedEntry mirrors one user or group's starting permissions/references,
// read from a gopkg.in/yaml.v3 seed file on first startup.
type seedEntry struct {
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
	Groups      []string `yaml:"groups"`
}

type seedFile struct {
	Users   []seedEntry `yaml:"users"`
	Groups  []seedEntry `yaml:"groups"`
	Default seedEntry   `yaml:"default"`
}

func seedFromYAML(reg *registry.Registry[string], path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading seed file: %w", err)
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parsing seed file: %w", err)
	}

	for _, g := range seed.Groups {
		if err := reg.AssignGroupPermissions(g.Name, g.Permissions); err != nil {
			return err
		}
		if err := reg.AssignGroupsToGroup(g.Name, g.Groups); err != nil {
			return err
		}
	}
	for _, u := range seed.Users {
		if err := reg.AssignUserPermissions(u.Name, u.Permissions); err != nil {
			return err
		}
		if err := reg.AssignUserGroups(u.Name, u.Groups); err != nil {
			return err
		}
	}
	if err := reg.AssignDefaultPermissions(seed.Default.Permissions); err != nil {
		return err
	}
	return reg.AssignGroupsToGroup("*", seed.Default.Groups)
}

// openSnapshotStore selects the snapshot backend named by cfg.DBDriver:
// "file" (default, afero-backed) or one of the database/sql-backed
// drivers registered by this file's blank imports.
func openSnapshotStore(cfg Config) (snapshot.Store, func(), error) {
	switch cfg.DBDriver {
	case "", "file":
		fs := afero.NewOsFs()
		return snapshot.NewFileStore(fs, filepath.Dir(cfg.UsersFilePath)), func() {}, nil
	case "sqlite3", "postgres":
		s, err := snapshot.OpenSQLStore(context.Background(), cfg.DBDriver, cfg.DBDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown db_driver %q", cfg.DBDriver)
	}
}

func startPeriodicSnapshot(guard *permguard.Guarded[string], store snapshot.Store, interval time.Duration) func() {
	if interval <= 0 {
		interval = time.Minute
	}
	stopCh := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx := context.Background()
				guard.Do(func(reg *registry.Registry[string]) {
					store.Put(ctx, "users.snapshot", reg.UsersSaveString())
					store.Put(ctx, "groups.snapshot", reg.GroupsSaveString())
				})
			case <-stopCh:
				return
			}
		}
	}()
	return func() {
		close(stopCh)
		<-done
	}
}
