// Package permassert turns boolean registry queries into errors, kept
// separate from the core registry per spec §1's scoping: the registry
// itself never raises these, only callers that want a fail-fast assertion
// style do.
package permassert

import (
	"fmt"

	"github.com/mmcdole/permtree/pkg/registry"
)

// UserMissingPermission reports that a user lacks a required permission.
type UserMissingPermission struct {
	User string
	Path string
}

func (e *UserMissingPermission) Error() string {
	return fmt.Sprintf("user %q is missing permission %q", e.User, e.Path)
}

// GroupMissingPermission reports that a group lacks a required permission.
type GroupMissingPermission struct {
	Group string
	Path  string
}

func (e *GroupMissingPermission) Error() string {
	return fmt.Sprintf("group %q is missing permission %q", e.Group, e.Path)
}

// PermissionNotDefault reports that a path isn't granted by the default
// group.
type PermissionNotDefault struct {
	Path string
}

func (e *PermissionNotDefault) Error() string {
	return fmt.Sprintf("permission %q is not granted by default", e.Path)
}

// AssertUserHasPermission returns UserMissingPermission if id lacks path.
func AssertUserHasPermission[ID comparable](r *registry.Registry[ID], id ID, path string, actorName string) error {
	if r.UserHas(id, path) {
		return nil
	}
	return &UserMissingPermission{User: actorName, Path: path}
}

// AssertGroupHasPermission returns GroupMissingPermission if name lacks path.
func AssertGroupHasPermission[ID comparable](r *registry.Registry[ID], name, path string) error {
	if r.GroupHas(name, path) {
		return nil
	}
	return &GroupMissingPermission{Group: name, Path: path}
}

// AssertIsDefault returns PermissionNotDefault if path isn't granted by the
// registry's default group.
func AssertIsDefault[ID comparable](r *registry.Registry[ID], path string) error {
	if r.DefaultHas(path) {
		return nil
	}
	return &PermissionNotDefault{Path: path}
}
