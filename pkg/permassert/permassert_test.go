package permassert

import (
	"testing"

	"github.com/mmcdole/permtree/pkg/permid"
	"github.com/mmcdole/permtree/pkg/registry"
)

func TestAssertUserHasPermission(t *testing.T) {
	r := registry.New(permid.StringIdentity())
	if err := r.AssignUserPermission("alice", "a.b"); err != nil {
		t.Fatalf("AssignUserPermission error: %v", err)
	}

	if err := AssertUserHasPermission(r, "alice", "a.b", "alice"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	err := AssertUserHasPermission(r, "alice", "x.y", "alice")
	if err == nil {
		t.Fatal("expected an error for a missing permission")
	}
	if _, ok := err.(*UserMissingPermission); !ok {
		t.Errorf("expected *UserMissingPermission, got %T", err)
	}
}

func TestAssertGroupHasPermission(t *testing.T) {
	r := registry.New(permid.StringIdentity())
	if err := r.AssignGroupPermission("admins", "a.b"); err != nil {
		t.Fatalf("AssignGroupPermission error: %v", err)
	}

	if err := AssertGroupHasPermission(r, "admins", "a.b"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if err := AssertGroupHasPermission(r, "admins", "x.y"); err == nil {
		t.Error("expected an error for a missing group permission")
	}
}

func TestAssertIsDefault(t *testing.T) {
	r := registry.New(permid.StringIdentity())
	if err := AssertIsDefault(r, "a.b"); err == nil {
		t.Error("expected an error before a.b is granted by default")
	}
	if err := r.AssignDefaultPermission("a.b"); err != nil {
		t.Fatalf("AssignDefaultPermission error: %v", err)
	}
	if err := AssertIsDefault(r, "a.b"); err != nil {
		t.Errorf("expected no error once a.b is granted by default, got %v", err)
	}
}
