package snapshot

import (
	"context"
	"testing"

	"github.com/spf13/afero"
)

func TestFileStorePutAndGet(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewFileStore(fs, "/snapshots")
	ctx := context.Background()

	if err := s.Put(ctx, "users.snapshot", "alice\n    a.b\n"); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	content, ok, err := s.Get(ctx, "users.snapshot")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if !ok {
		t.Fatal("expected the snapshot to be found")
	}
	if content != "alice\n    a.b\n" {
		t.Errorf("Get() = %q, want the content written by Put", content)
	}
}

func TestFileStoreGetMissing(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewFileStore(fs, "/snapshots")
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing.snapshot")
	if err != nil {
		t.Fatalf("expected no error for a missing snapshot, got %v", err)
	}
	if ok {
		t.Error("expected ok=false for a missing snapshot")
	}
}

func TestFileStorePutOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewFileStore(fs, "/snapshots")
	ctx := context.Background()

	if err := s.Put(ctx, "groups.snapshot", "first"); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	if err := s.Put(ctx, "groups.snapshot", "second"); err != nil {
		t.Fatalf("Put error: %v", err)
	}
	content, _, err := s.Get(ctx, "groups.snapshot")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if content != "second" {
		t.Errorf("Get() = %q, want %q", content, "second")
	}
}
