// Package permgroup implements PermissionGroup: a named container owning a
// PermissionSet plus an ordered, priority-sorted list of referenced groups,
// an optional default-group fallback, and the recursive most-relevant
// lookup that ties them together.
package permgroup

import (
	"sort"

	"github.com/mmcdole/permtree/pkg/permerr"
	"github.com/mmcdole/permtree/pkg/permission"
	"github.com/mmcdole/permtree/pkg/permpath"
	"github.com/mmcdole/permtree/pkg/permset"
)

// Group is a named, priority-ordered, hierarchical permission container.
type Group struct {
	name     string
	priority Priority
	set      *permset.Set

	referenced   []*Group
	referrers    map[*Group]struct{}
	defaultGroup *Group

	sentinel bool
}

// New creates a group with the given name and priority 0.
func New(name string) *Group {
	return &Group{
		name:      name,
		priority:  LongPriority(0),
		set:       permset.New(),
		referrers: make(map[*Group]struct{}),
	}
}

// emptyDefault is a process-wide sentinel group named "*": read-only,
// shareable, rejects every mutator, and answers every query as not covered.
// Nothing in this module installs it as a fallback; Resolve ends the
// default chain at a group whose DefaultGroup is nil.
var emptyDefault = &Group{
	name:      "*",
	priority:  LongPriority(0),
	set:       permset.New(),
	referrers: make(map[*Group]struct{}),
	sentinel:  true,
}

// EmptyDefault returns the singleton sentinel default group.
func EmptyDefault() *Group { return emptyDefault }

// Name returns the group's name.
func (g *Group) Name() string { return g.name }

// Priority returns the group's current priority.
func (g *Group) Priority() Priority { return g.priority }

// Set returns the group's owned PermissionSet.
func (g *Group) Set() *permset.Set { return g.set }

// IsSentinel reports whether g is the terminal empty-default singleton.
func (g *Group) IsSentinel() bool { return g.sentinel }

// SetDefaultGroup installs g's default-group fallback. Used by the
// registry when constructing a user's group (which always falls back to
// the registry's default group) — named groups are never given one, so
// that the default is consulted exactly once per query, at the top of the
// recursion (see spec §9).
func (g *Group) SetDefaultGroup(d *Group) { g.defaultGroup = d }

// DefaultGroup returns g's default-group fallback, or nil.
func (g *Group) DefaultGroup() *Group { return g.defaultGroup }

// ReferencedGroups returns the groups g references, in priority-descending,
// name-ascending order.
func (g *Group) ReferencedGroups() []*Group {
	out := make([]*Group, len(g.referenced))
	copy(out, g.referenced)
	return out
}

// ReassignPriority updates g's priority and asks every group that
// references g to re-sort its reference list.
func (g *Group) ReassignPriority(p Priority) error {
	if g.sentinel {
		return permerr.NewUnsupportedOperation("reassign_priority")
	}
	g.priority = p
	for referrer := range g.referrers {
		referrer.resort()
	}
	return nil
}

func (g *Group) resort() {
	sort.SliceStable(g.referenced, func(i, j int) bool {
		return lessByPriorityThenName(g.referenced[i], g.referenced[j])
	})
}

func lessByPriorityThenName(a, b *Group) bool {
	pa, pb := a.priority.AsFloat(), b.priority.AsFloat()
	if pa != pb {
		return pa > pb // higher priority first
	}
	return a.name < b.name
}

// AddReference adds g2 to g's referenced_groups, refusing self-reference
// and any reference that would create a cycle in the group DAG.
func (g *Group) AddReference(g2 *Group) error {
	if g.sentinel {
		return permerr.NewUnsupportedOperation("add_reference")
	}
	if g2 == g {
		return permerr.NewCircularGroupHierarchy(g.name, g2.name)
	}
	if reaches(g2, g) {
		return permerr.NewCircularGroupHierarchy(g.name, g2.name)
	}

	for _, existing := range g.referenced {
		if existing == g2 {
			return nil // already referenced
		}
	}

	g.referenced = append(g.referenced, g2)
	g.resort()
	g2.referrers[g] = struct{}{}
	return nil
}

// reaches reports whether from can reach to by following referenced_groups.
func reaches(from, to *Group) bool {
	if from == to {
		return true
	}
	for _, ref := range from.referenced {
		if reaches(ref, to) {
			return true
		}
	}
	return false
}

// RemoveReference removes g2 from g's referenced_groups, if present.
func (g *Group) RemoveReference(g2 *Group) error {
	if g.sentinel {
		return permerr.NewUnsupportedOperation("remove_reference")
	}
	for i, existing := range g.referenced {
		if existing == g2 {
			g.referenced = append(g.referenced[:i], g.referenced[i+1:]...)
			delete(g2.referrers, g)
			return nil
		}
	}
	return nil
}

// Clear empties g's PermissionSet and reference list.
func (g *Group) Clear() error {
	if g.sentinel {
		return permerr.NewUnsupportedOperation("clear")
	}
	for _, ref := range g.referenced {
		delete(ref.referrers, g)
	}
	g.referenced = nil
	g.set = permset.New()
	return nil
}

// ClearPermissions empties g's own PermissionSet, leaving its references
// untouched.
func (g *Group) ClearPermissions() error {
	if g.sentinel {
		return permerr.NewUnsupportedOperation("clear_permissions")
	}
	g.set = permset.New()
	return nil
}

// Referenced reports whether any other group or user currently references g.
func (g *Group) Referenced() bool { return len(g.referrers) > 0 }

// Match describes the outcome of resolving one path against a group.
type Match struct {
	MatchedPath permpath.Path
	Permission  permission.Permission
	Exact       bool
	Found       bool
}

// Resolve implements the three-step most-relevant-permission algorithm of
// spec §4.3: consult g's own set, then its referenced groups in priority
// order, then (only for the entry group, since referenced groups never
// carry their own default fallback) the default group.
func (g *Group) Resolve(pathString string) Match {
	queryPath, err := permpath.Parse(pathString)
	if err != nil {
		return Match{}
	}

	if matched, perm, found := g.set.MostRelevant(pathString); found {
		return Match{MatchedPath: matched, Permission: perm, Exact: len(matched) == len(queryPath), Found: true}
	}

	for _, ref := range g.referenced {
		if m := ref.Resolve(pathString); m.Found {
			return m
		}
	}

	if g.defaultGroup != nil {
		return g.defaultGroup.Resolve(pathString)
	}

	return Match{}
}

// HasPermission reports whether the most relevant permission for path
// allows it.
func (g *Group) HasPermission(pathString string) bool {
	m := g.Resolve(pathString)
	if !m.Found {
		return false
	}
	if m.Exact {
		return m.Permission.IncludesExact
	}
	return m.Permission.IncludesDescendants
}

// NegatesPermission reports whether the most relevant permission for path
// explicitly negates it.
func (g *Group) NegatesPermission(pathString string) bool {
	m := g.Resolve(pathString)
	if !m.Found {
		return false
	}
	if m.Exact {
		return m.Permission.NegatesExact
	}
	return m.Permission.NegatesDescendants
}

// Argument returns the matched permission's argument for path, using the
// descendant-argument field when the match is a strict ancestor.
func (g *Group) Argument(pathString string) (string, bool) {
	m := g.Resolve(pathString)
	if !m.Found {
		return "", false
	}
	var arg *string
	if m.Exact {
		arg = m.Permission.Argument
	} else {
		arg = m.Permission.ArgumentForDescendants
	}
	if arg == nil {
		return "", false
	}
	return *arg, true
}

// HasAnySubOf reports whether g's own set has any permission at or below
// path; it does not consult referenced or default groups, mirroring
// PermissionSet.HasAny's "subtree" scope.
func (g *Group) HasAnySubOf(pathString string) bool {
	ok, err := g.set.HasAny(pathString)
	if err != nil {
		return false
	}
	return ok
}

// ExtendsGroup reports whether g transitively references target, directly
// or through any chain of referenced_groups.
func (g *Group) ExtendsGroup(target *Group) bool {
	for _, ref := range g.referenced {
		if ref == target || ref.ExtendsGroup(target) {
			return true
		}
	}
	return false
}
