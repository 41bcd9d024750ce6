package permcache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mmcdole/permtree/pkg/permid"
	"github.com/mmcdole/permtree/pkg/registry"
)

func newFileBackedRegistry(t *testing.T) (*registry.Registry[string], string) {
	t.Helper()
	dir := t.TempDir()
	usersPath := filepath.Join(dir, "users.perm")
	groupsPath := filepath.Join(dir, "groups.perm")
	if err := os.WriteFile(groupsPath, []byte(""), 0o644); err != nil {
		t.Fatalf("seeding groups file: %v", err)
	}
	if err := os.WriteFile(usersPath, []byte("alice\n    a.b\n"), 0o644); err != nil {
		t.Fatalf("seeding users file: %v", err)
	}
	return registry.NewWithFiles(permid.StringIdentity(), usersPath, groupsPath), usersPath
}

func TestNewPerformsInitialLoad(t *testing.T) {
	reg, _ := newFileBackedRegistry(t)
	c, err := New(reg, time.Hour)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if !c.UserHas("alice", "a.b") {
		t.Error("expected the initial load to pick up the seeded users file")
	}
}

func TestEnsureFreshReloadsOnlyAfterTTL(t *testing.T) {
	reg, usersPath := newFileBackedRegistry(t)
	c, err := New(reg, time.Hour)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	if err := os.WriteFile(usersPath, []byte("alice\n    a.b\n    x.y\n"), 0o644); err != nil {
		t.Fatalf("rewriting users file: %v", err)
	}

	if c.UserHas("alice", "x.y") {
		t.Error("expected the cache to still serve the stale value before the TTL elapses")
	}

	c.Invalidate()
	if !c.UserHas("alice", "x.y") {
		t.Error("expected Invalidate to force a reload that picks up the new permission")
	}
}

func TestRegistryReturnsFreshHandle(t *testing.T) {
	reg, _ := newFileBackedRegistry(t)
	c, err := New(reg, time.Hour)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	r, err := c.Registry()
	if err != nil {
		t.Fatalf("Registry() error: %v", err)
	}
	if !r.UserHas("alice", "a.b") {
		t.Error("expected Registry() to return the loaded registry")
	}
}
