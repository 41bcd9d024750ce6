// Package registry implements Registry: the top-level object owning every
// user's PermissionGroup, every named group, and the distinguished default
// group, plus the full query, mutation, cross-registry, and persistence
// surface described by spec §4.4.
package registry

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/mmcdole/permtree/pkg/permerr"
	"github.com/mmcdole/permtree/pkg/permgroup"
	"github.com/mmcdole/permtree/pkg/permid"
	"github.com/mmcdole/permtree/pkg/textcodec"
)

// defaultGroupName is the reserved name of the registry's distinguished
// default group; it can never be used as a regular group name.
const defaultGroupName = "*"

// Status is the outcome of a status query: whether path is granted, and the
// argument carried by its most relevant permission, if any.
type Status struct {
	Path     string
	Has      bool
	Argument *string
}

// Registry owns the mapping from user id to PermissionGroup, the mapping
// from group name to PermissionGroup, and the distinguished default group.
type Registry[ID comparable] struct {
	identity permid.Identity[ID]

	users        map[string]*permgroup.Group
	groups       map[string]*permgroup.Group
	defaultGroup *permgroup.Group

	usersPath  string
	groupsPath string

	dirty bool
}

// New creates an empty registry with no backing files.
func New[ID comparable](identity permid.Identity[ID]) *Registry[ID] {
	return &Registry[ID]{
		identity:     identity,
		users:        make(map[string]*permgroup.Group),
		groups:       make(map[string]*permgroup.Group),
		defaultGroup: permgroup.New(defaultGroupName),
	}
}

// NewWithFiles creates an empty registry backed by the given users/groups
// save files (consulted by Save and Load).
func NewWithFiles[ID comparable](identity permid.Identity[ID], usersPath, groupsPath string) *Registry[ID] {
	r := New(identity)
	r.usersPath = usersPath
	r.groupsPath = groupsPath
	return r
}

// DirtySinceLoadOrSave reports whether any mutator has run since the last
// successful Save or Load.
func (r *Registry[ID]) DirtySinceLoadOrSave() bool { return r.dirty }

func (r *Registry[ID]) setDirty() { r.dirty = true }

func validateGroupName(name string) error {
	if name == "" || name == defaultGroupName {
		return permerr.NewInvalidGroupName(name)
	}
	for _, r := range name {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return permerr.NewInvalidGroupName(name)
		}
	}
	return nil
}

// ---- entity resolution ----

func (r *Registry[ID]) userGroupForQuery(id ID) *permgroup.Group {
	key := r.identity.ToString(id)
	if g, ok := r.users[key]; ok {
		return g
	}
	return r.defaultGroup
}

func (r *Registry[ID]) groupForQuery(name string) *permgroup.Group {
	if name == defaultGroupName {
		return r.defaultGroup
	}
	g, ok := r.groups[name]
	if !ok {
		return nil
	}
	return g
}

func (r *Registry[ID]) userGroupForMutation(id ID) *permgroup.Group {
	return r.userGroupForMutationByKey(r.identity.ToString(id))
}

func (r *Registry[ID]) userGroupForMutationByKey(key string) *permgroup.Group {
	g, ok := r.users[key]
	if !ok {
		g = permgroup.New(key)
		g.SetDefaultGroup(r.defaultGroup)
		r.users[key] = g
	}
	return g
}

func (r *Registry[ID]) groupForMutation(name string) (*permgroup.Group, error) {
	if name == defaultGroupName {
		return r.defaultGroup, nil
	}
	if err := validateGroupName(name); err != nil {
		return nil, err
	}
	g, ok := r.groups[name]
	if !ok {
		g = permgroup.New(name)
		r.groups[name] = g
	}
	return g, nil
}

// ---- nil-safe query helpers shared by all three flavors ----

func hasPath(g *permgroup.Group, path string) bool {
	if g == nil {
		return false
	}
	return g.HasPermission(path)
}

func negatesPath(g *permgroup.Group, path string) bool {
	if g == nil {
		return false
	}
	return g.NegatesPermission(path)
}

func argumentFor(g *permgroup.Group, path string) (string, bool) {
	if g == nil {
		return "", false
	}
	return g.Argument(path)
}

func statusOf(g *permgroup.Group, path string) Status {
	s := Status{Path: path, Has: hasPath(g, path)}
	if arg, ok := argumentFor(g, path); ok {
		s.Argument = &arg
	}
	return s
}

// anySubOf reports whether g's own set, any group it transitively
// references, or its default fallback holds any permission at or below
// path — a broader question than PermissionSet.HasAny, which only looks at
// one set's own subtree.
func anySubOf(g *permgroup.Group, path string) bool {
	if g == nil {
		return false
	}
	if g.HasAnySubOf(path) {
		return true
	}
	for _, ref := range g.ReferencedGroups() {
		if anySubOf(ref, path) {
			return true
		}
	}
	if d := g.DefaultGroup(); d != nil {
		return anySubOf(d, path)
	}
	return false
}

func hasGroupMembership(entity, target *permgroup.Group) bool {
	if entity == nil || target == nil || entity == target {
		return false
	}
	return entity.ExtendsGroup(target)
}

func namesOf(gs []*permgroup.Group) []string {
	out := make([]string, len(gs))
	for i, g := range gs {
		out[i] = g.Name()
	}
	return out
}

func pathOnlyFromLine(line string) string {
	path := line
	if idx := strings.IndexByte(path, ':'); idx >= 0 {
		path = path[:idx]
	}
	path = strings.TrimPrefix(path, "-")
	path = strings.TrimSuffix(path, ".*")
	return path
}

func pathsOf(g *permgroup.Group) []string {
	lines := g.Set().ToSaveLines()
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = pathOnlyFromLine(l)
	}
	return out
}

func formatLines(g *permgroup.Group, withArgs bool) []string {
	if g == nil {
		return nil
	}
	lines := g.Set().ToSaveLines()
	if withArgs {
		return lines
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		if idx := strings.IndexByte(l, ':'); idx >= 0 {
			l = l[:idx]
		}
		out[i] = l
	}
	return out
}

func listAllStatuses(g *permgroup.Group) []Status {
	if g == nil {
		return nil
	}
	paths := pathsOf(g)
	out := make([]Status, len(paths))
	for i, p := range paths {
		out[i] = statusOf(g, p)
	}
	return out
}

// ---- user flavor queries ----

func (r *Registry[ID]) UserStatus(id ID, path string) Status { return statusOf(r.userGroupForQuery(id), path) }
func (r *Registry[ID]) UserHas(id ID, path string) bool      { return hasPath(r.userGroupForQuery(id), path) }
func (r *Registry[ID]) UserNegates(id ID, path string) bool  { return negatesPath(r.userGroupForQuery(id), path) }

func (r *Registry[ID]) UserHasAll(id ID, paths []string) bool {
	g := r.userGroupForQuery(id)
	for _, p := range paths {
		if !hasPath(g, p) {
			return false
		}
	}
	return true
}

func (r *Registry[ID]) UserHasAny(id ID, paths []string) bool {
	g := r.userGroupForQuery(id)
	for _, p := range paths {
		if hasPath(g, p) {
			return true
		}
	}
	return false
}

func (r *Registry[ID]) UserHasAnySubOf(id ID, path string) bool {
	return anySubOf(r.userGroupForQuery(id), path)
}

func (r *Registry[ID]) UserHasAnySubOfAny(id ID, paths []string) bool {
	g := r.userGroupForQuery(id)
	for _, p := range paths {
		if anySubOf(g, p) {
			return true
		}
	}
	return false
}

func (r *Registry[ID]) UserArgument(id ID, path string) (string, bool) {
	return argumentFor(r.userGroupForQuery(id), path)
}

func (r *Registry[ID]) UserStatuses(id ID, paths []string) []Status {
	g := r.userGroupForQuery(id)
	out := make([]Status, len(paths))
	for i, p := range paths {
		out[i] = statusOf(g, p)
	}
	return out
}

func (r *Registry[ID]) UserHasGroup(id ID, name string) bool {
	return hasGroupMembership(r.userGroupForQuery(id), r.groupForQuery(name))
}

func (r *Registry[ID]) UserHasAllGroups(id ID, names []string) bool {
	g := r.userGroupForQuery(id)
	for _, n := range names {
		if !hasGroupMembership(g, r.groupForQuery(n)) {
			return false
		}
	}
	return true
}

func (r *Registry[ID]) UserHasAnyGroups(id ID, names []string) bool {
	g := r.userGroupForQuery(id)
	for _, n := range names {
		if hasGroupMembership(g, r.groupForQuery(n)) {
			return true
		}
	}
	return false
}

func (r *Registry[ID]) UserPermissions(id ID, withArgs bool) []string {
	return formatLines(r.userGroupForQuery(id), withArgs)
}

func (r *Registry[ID]) UserAllStatuses(id ID) []Status { return listAllStatuses(r.userGroupForQuery(id)) }

func (r *Registry[ID]) UserReferencedGroupNames(id ID) []string {
	g := r.userGroupForQuery(id)
	if g == nil {
		return nil
	}
	return namesOf(g.ReferencedGroups())
}

// ---- group flavor queries ----

func (r *Registry[ID]) GroupStatus(name, path string) Status { return statusOf(r.groupForQuery(name), path) }
func (r *Registry[ID]) GroupHas(name, path string) bool      { return hasPath(r.groupForQuery(name), path) }
func (r *Registry[ID]) GroupNegates(name, path string) bool  { return negatesPath(r.groupForQuery(name), path) }

func (r *Registry[ID]) GroupHasAll(name string, paths []string) bool {
	g := r.groupForQuery(name)
	for _, p := range paths {
		if !hasPath(g, p) {
			return false
		}
	}
	return true
}

func (r *Registry[ID]) GroupHasAny(name string, paths []string) bool {
	g := r.groupForQuery(name)
	for _, p := range paths {
		if hasPath(g, p) {
			return true
		}
	}
	return false
}

func (r *Registry[ID]) GroupHasAnySubOf(name, path string) bool {
	return anySubOf(r.groupForQuery(name), path)
}

func (r *Registry[ID]) GroupHasAnySubOfAny(name string, paths []string) bool {
	g := r.groupForQuery(name)
	for _, p := range paths {
		if anySubOf(g, p) {
			return true
		}
	}
	return false
}

func (r *Registry[ID]) GroupArgument(name, path string) (string, bool) {
	return argumentFor(r.groupForQuery(name), path)
}

func (r *Registry[ID]) GroupExtends(name, target string) bool {
	return hasGroupMembership(r.groupForQuery(name), r.groupForQuery(target))
}

func (r *Registry[ID]) GroupPermissions(name string, withArgs bool) []string {
	return formatLines(r.groupForQuery(name), withArgs)
}

func (r *Registry[ID]) GroupAllStatuses(name string) []Status { return listAllStatuses(r.groupForQuery(name)) }

func (r *Registry[ID]) GroupReferencedGroupNames(name string) []string {
	g := r.groupForQuery(name)
	if g == nil {
		return nil
	}
	return namesOf(g.ReferencedGroups())
}

func (r *Registry[ID]) GroupPriority(name string) (permgroup.Priority, bool) {
	g := r.groupForQuery(name)
	if g == nil {
		return permgroup.Priority{}, false
	}
	return g.Priority(), true
}

// ---- default flavor queries ----

func (r *Registry[ID]) DefaultHas(path string) bool     { return hasPath(r.defaultGroup, path) }
func (r *Registry[ID]) DefaultNegates(path string) bool { return negatesPath(r.defaultGroup, path) }
func (r *Registry[ID]) DefaultStatus(path string) Status { return statusOf(r.defaultGroup, path) }

func (r *Registry[ID]) DefaultHasAll(paths []string) bool {
	for _, p := range paths {
		if !hasPath(r.defaultGroup, p) {
			return false
		}
	}
	return true
}

func (r *Registry[ID]) DefaultHasAny(paths []string) bool {
	for _, p := range paths {
		if hasPath(r.defaultGroup, p) {
			return true
		}
	}
	return false
}

func (r *Registry[ID]) DefaultHasAnySubOf(path string) bool { return anySubOf(r.defaultGroup, path) }

func (r *Registry[ID]) DefaultHasAnySubOfAny(paths []string) bool {
	for _, p := range paths {
		if anySubOf(r.defaultGroup, p) {
			return true
		}
	}
	return false
}

func (r *Registry[ID]) DefaultArgument(path string) (string, bool) {
	return argumentFor(r.defaultGroup, path)
}

func (r *Registry[ID]) IsDefaultGroup(name string) bool {
	return hasGroupMembership(r.defaultGroup, r.groupForQuery(name))
}

func (r *Registry[ID]) DefaultPermissions(withArgs bool) []string {
	return formatLines(r.defaultGroup, withArgs)
}

func (r *Registry[ID]) DefaultAllStatuses() []Status { return listAllStatuses(r.defaultGroup) }

func (r *Registry[ID]) DefaultReferencedGroupNames() []string {
	return namesOf(r.defaultGroup.ReferencedGroups())
}

// ---- enumeration ----

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// UserKeys returns the string form of every user present in the registry,
// sorted.
func (r *Registry[ID]) UserKeys() []string { return sortedKeys(r.users) }

// Users returns the identifiers of every user present in the registry,
// sorted by string form. Keys that fail FromString are skipped.
func (r *Registry[ID]) Users() []ID {
	keys := r.UserKeys()
	out := make([]ID, 0, len(keys))
	for _, k := range keys {
		if id, err := r.identity.FromString(k); err == nil {
			out = append(out, id)
		}
	}
	return out
}

// GroupNames returns every named group in the registry, sorted.
func (r *Registry[ID]) GroupNames() []string { return sortedKeys(r.groups) }

// ---- mutation: permissions ----

func (r *Registry[ID]) AssignUserPermission(id ID, permString string) error {
	if _, err := r.userGroupForMutation(id).Set().Set(permString); err != nil {
		return err
	}
	r.setDirty()
	return nil
}

func (r *Registry[ID]) AssignUserPermissions(id ID, permStrings []string) error {
	for _, s := range permStrings {
		if err := r.AssignUserPermission(id, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry[ID]) RevokeUserPermission(id ID, path string) error {
	if _, err := r.userGroupForMutation(id).Set().Remove(path); err != nil {
		return err
	}
	r.setDirty()
	return nil
}

func (r *Registry[ID]) RevokeUserPermissions(id ID, paths []string) error {
	for _, p := range paths {
		if err := r.RevokeUserPermission(id, p); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry[ID]) RevokeAllUserPermissions(id ID) error {
	if err := r.userGroupForMutation(id).ClearPermissions(); err != nil {
		return err
	}
	r.setDirty()
	return nil
}

func (r *Registry[ID]) AssignGroupPermission(name, permString string) error {
	g, err := r.groupForMutation(name)
	if err != nil {
		return err
	}
	if _, err := g.Set().Set(permString); err != nil {
		return err
	}
	r.setDirty()
	return nil
}

func (r *Registry[ID]) AssignGroupPermissions(name string, permStrings []string) error {
	for _, s := range permStrings {
		if err := r.AssignGroupPermission(name, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry[ID]) RevokeGroupPermission(name, path string) error {
	g, err := r.groupForMutation(name)
	if err != nil {
		return err
	}
	if _, err := g.Set().Remove(path); err != nil {
		return err
	}
	r.setDirty()
	return nil
}

func (r *Registry[ID]) RevokeGroupPermissions(name string, paths []string) error {
	for _, p := range paths {
		if err := r.RevokeGroupPermission(name, p); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry[ID]) RevokeAllGroupPermissions(name string) error {
	g, err := r.groupForMutation(name)
	if err != nil {
		return err
	}
	if err := g.ClearPermissions(); err != nil {
		return err
	}
	r.setDirty()
	return nil
}

func (r *Registry[ID]) AssignDefaultPermission(permString string) error {
	if _, err := r.defaultGroup.Set().Set(permString); err != nil {
		return err
	}
	r.setDirty()
	return nil
}

func (r *Registry[ID]) AssignDefaultPermissions(permStrings []string) error {
	for _, s := range permStrings {
		if err := r.AssignDefaultPermission(s); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry[ID]) RevokeDefaultPermission(path string) error {
	if _, err := r.defaultGroup.Set().Remove(path); err != nil {
		return err
	}
	r.setDirty()
	return nil
}

func (r *Registry[ID]) RevokeDefaultPermissions(paths []string) error {
	for _, p := range paths {
		if err := r.RevokeDefaultPermission(p); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry[ID]) RevokeAllDefaultPermissions() error {
	if err := r.defaultGroup.ClearPermissions(); err != nil {
		return err
	}
	r.setDirty()
	return nil
}

// ---- mutation: group references ----

func (r *Registry[ID]) AssignUserGroup(id ID, name string) error {
	target, err := r.groupForMutation(name)
	if err != nil {
		return err
	}
	if err := r.userGroupForMutation(id).AddReference(target); err != nil {
		return err
	}
	r.setDirty()
	return nil
}

func (r *Registry[ID]) AssignUserGroups(id ID, names []string) error {
	for _, n := range names {
		if err := r.AssignUserGroup(id, n); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry[ID]) RevokeUserGroup(id ID, name string) error {
	target := r.groupForQuery(name)
	if target == nil {
		return nil
	}
	if err := r.userGroupForMutation(id).RemoveReference(target); err != nil {
		return err
	}
	r.setDirty()
	return nil
}

func (r *Registry[ID]) RevokeUserGroups(id ID, names []string) error {
	for _, n := range names {
		if err := r.RevokeUserGroup(id, n); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry[ID]) RevokeAllUserGroups(id ID) error {
	g := r.userGroupForMutation(id)
	for _, ref := range g.ReferencedGroups() {
		if err := g.RemoveReference(ref); err != nil {
			return err
		}
	}
	r.setDirty()
	return nil
}

func (r *Registry[ID]) AssignGroupToGroup(name, refName string) error {
	g, err := r.groupForMutation(name)
	if err != nil {
		return err
	}
	ref, err := r.groupForMutation(refName)
	if err != nil {
		return err
	}
	if err := g.AddReference(ref); err != nil {
		return err
	}
	r.setDirty()
	return nil
}

func (r *Registry[ID]) AssignGroupsToGroup(name string, refNames []string) error {
	for _, n := range refNames {
		if err := r.AssignGroupToGroup(name, n); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry[ID]) RevokeGroupFromGroup(name, refName string) error {
	g, err := r.groupForMutation(name)
	if err != nil {
		return err
	}
	ref := r.groupForQuery(refName)
	if ref == nil {
		return nil
	}
	if err := g.RemoveReference(ref); err != nil {
		return err
	}
	r.setDirty()
	return nil
}

func (r *Registry[ID]) RevokeGroupsFromGroup(name string, refNames []string) error {
	for _, n := range refNames {
		if err := r.RevokeGroupFromGroup(name, n); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry[ID]) RevokeAllGroupReferences(name string) error {
	g, err := r.groupForMutation(name)
	if err != nil {
		return err
	}
	for _, ref := range g.ReferencedGroups() {
		if err := g.RemoveReference(ref); err != nil {
			return err
		}
	}
	r.setDirty()
	return nil
}

func (r *Registry[ID]) AssignDefaultGroup(refName string) error {
	ref, err := r.groupForMutation(refName)
	if err != nil {
		return err
	}
	if err := r.defaultGroup.AddReference(ref); err != nil {
		return err
	}
	r.setDirty()
	return nil
}

func (r *Registry[ID]) RevokeDefaultGroup(refName string) error {
	ref := r.groupForQuery(refName)
	if ref == nil {
		return nil
	}
	if err := r.defaultGroup.RemoveReference(ref); err != nil {
		return err
	}
	r.setDirty()
	return nil
}

func (r *Registry[ID]) RevokeAllDefaultGroups() error {
	for _, ref := range r.defaultGroup.ReferencedGroups() {
		if err := r.defaultGroup.RemoveReference(ref); err != nil {
			return err
		}
	}
	r.setDirty()
	return nil
}

func (r *Registry[ID]) AssignGroupPriority(name string, p permgroup.Priority) error {
	g, err := r.groupForMutation(name)
	if err != nil {
		return err
	}
	if err := g.ReassignPriority(p); err != nil {
		return err
	}
	r.setDirty()
	return nil
}

// ---- lifecycle ----

func (r *Registry[ID]) ClearUser(id ID) {
	key := r.identity.ToString(id)
	if g, ok := r.users[key]; ok {
		g.Clear()
	}
	delete(r.users, key)
	r.setDirty()
}

func (r *Registry[ID]) ClearUsers() {
	for _, g := range r.users {
		g.Clear()
	}
	r.users = make(map[string]*permgroup.Group)
	r.setDirty()
}

// clearGroupCascade removes name from the registry and from every other
// entity's reference list, then prunes every prunable group in the
// registry, including any whose reference list just became empty.
func (r *Registry[ID]) clearGroupCascade(name string) {
	g, ok := r.groups[name]
	if !ok {
		return
	}
	for _, u := range r.users {
		u.RemoveReference(g)
	}
	r.defaultGroup.RemoveReference(g)
	for otherName, og := range r.groups {
		if otherName != name {
			og.RemoveReference(g)
		}
	}
	g.Clear()
	delete(r.groups, name)
	r.pruneIter(r.allGroupNames())
}

func (r *Registry[ID]) ClearGroup(name string) {
	r.clearGroupCascade(name)
	r.setDirty()
}

func (r *Registry[ID]) ClearGroups() {
	for _, name := range r.allGroupNames() {
		r.clearGroupCascade(name)
	}
	r.setDirty()
}

func (r *Registry[ID]) ClearDefaults() {
	r.defaultGroup.Clear()
	r.setDirty()
}

func (r *Registry[ID]) Clear() {
	r.users = make(map[string]*permgroup.Group)
	r.groups = make(map[string]*permgroup.Group)
	r.defaultGroup = permgroup.New(defaultGroupName)
	r.setDirty()
}

func (r *Registry[ID]) allGroupNames() []string {
	out := make([]string, 0, len(r.groups))
	for k := range r.groups {
		out = append(out, k)
	}
	return out
}

// prunable reports whether g is a candidate for removal: it holds no
// permissions of its own, references no other group, and nothing in the
// registry currently references it.
func prunable(g *permgroup.Group) bool {
	return g.Set().IsEmpty() && len(g.ReferencedGroups()) == 0 && !g.Referenced()
}

// pruneIter repeatedly removes prunable groups among candidates until a
// pass removes none, satisfying spec §4.4's "iterated to fixpoint"
// requirement.
func (r *Registry[ID]) pruneIter(candidates []string) {
	for {
		removedAny := false
		for _, name := range candidates {
			g, ok := r.groups[name]
			if !ok {
				continue
			}
			if prunable(g) {
				g.Clear()
				delete(r.groups, name)
				removedAny = true
			}
		}
		if !removedAny {
			break
		}
	}
}

// Prune removes every orphaned, empty, reference-free group.
func (r *Registry[ID]) Prune() {
	r.pruneIter(r.allGroupNames())
	r.setDirty()
}

// PruneSubset limits removal candidates to the named groups; groups not
// named are never deleted.
func (r *Registry[ID]) PruneSubset(names []string) {
	r.pruneIter(names)
	r.setDirty()
}

// ---- cross-registry ----

// Absorb copies every user, group, default permission, and reference from
// other into r, creating groups as needed and never overwriting an
// already-set priority with other's default.
func (r *Registry[ID]) Absorb(other *Registry[ID]) {
	for name, og := range other.groups {
		g, err := r.groupForMutation(name)
		if err != nil {
			continue
		}
		absorbInto(r, g, og)
	}
	absorbInto(r, r.defaultGroup, other.defaultGroup)
	for key, ou := range other.users {
		u := r.userGroupForMutationByKey(key)
		absorbInto(r, u, ou)
	}
	r.setDirty()
}

func absorbInto[ID comparable](r *Registry[ID], dst, src *permgroup.Group) {
	for _, line := range src.Set().ToSaveLines() {
		dst.Set().Set(line)
	}
	for _, ref := range src.ReferencedGroups() {
		target, err := r.groupForMutation(ref.Name())
		if err != nil {
			continue
		}
		dst.AddReference(target)
	}
	if isDefaultPriority(dst.Priority()) && !isDefaultPriority(src.Priority()) {
		dst.ReassignPriority(src.Priority())
	}
}

// RemoveContentsOf removes from r every default permission, default group,
// user, and group that appears in other.
func (r *Registry[ID]) RemoveContentsOf(other *Registry[ID]) {
	for _, line := range other.defaultGroup.Set().ToSaveLines() {
		r.defaultGroup.Set().Remove(pathOnlyFromLine(line))
	}
	for _, ref := range other.defaultGroup.ReferencedGroups() {
		if mine, ok := r.groups[ref.Name()]; ok {
			r.defaultGroup.RemoveReference(mine)
		}
	}
	for key := range other.users {
		if g, ok := r.users[key]; ok {
			g.Clear()
		}
		delete(r.users, key)
	}
	for name := range other.groups {
		r.clearGroupCascade(name)
	}
	r.setDirty()
}

// ---- persistence ----

func isDefaultPriority(p permgroup.Priority) bool { return p.IsLong && p.Long == 0 }

func renderEntity(g *permgroup.Group, includePriority bool) textcodec.Entity {
	refs := g.ReferencedGroups()
	permLines := g.Set().ToSaveLines()

	header := g.Name()
	if includePriority && !isDefaultPriority(g.Priority()) {
		header += ": " + g.Priority().String()
	}

	if len(permLines) == 0 && len(refs) == 1 {
		return textcodec.Entity{Lines: []string{header + " #" + refs[0].Name()}, SingleLine: true}
	}

	lines := []string{header}
	for _, ref := range refs {
		lines = append(lines, textcodec.FormatBodyLine("#"+ref.Name(), 4)...)
	}
	for _, pl := range permLines {
		lines = append(lines, textcodec.FormatBodyLine(pl, 4)...)
	}
	return textcodec.Entity{Lines: lines}
}

// UsersSaveString renders every user entity, sorted by key.
func (r *Registry[ID]) UsersSaveString() string {
	keys := r.UserKeys()
	entities := make([]textcodec.Entity, 0, len(keys))
	for _, k := range keys {
		entities = append(entities, renderEntity(r.users[k], false))
	}
	return textcodec.JoinEntities(entities)
}

// GroupsSaveString renders the default group followed by every named group,
// sorted by name.
func (r *Registry[ID]) GroupsSaveString() string {
	names := r.GroupNames()
	entities := make([]textcodec.Entity, 0, len(names)+1)
	entities = append(entities, renderEntity(r.defaultGroup, true))
	for _, n := range names {
		entities = append(entities, renderEntity(r.groups[n], true))
	}
	return textcodec.JoinEntities(entities)
}

type parsedEntity struct {
	name      string
	priority  *string
	refs      []string
	permLines []string
}

func parseHeader(content string) (name string, priority *string, ref *string) {
	if hashIdx := strings.LastIndexByte(content, '#'); hashIdx >= 0 {
		refStr := strings.TrimSpace(content[hashIdx+1:])
		ref = &refStr
		content = strings.TrimSpace(content[:hashIdx])
	}
	if colonIdx := strings.IndexByte(content, ':'); colonIdx >= 0 {
		name = strings.TrimSpace(content[:colonIdx])
		p := strings.TrimSpace(content[colonIdx+1:])
		priority = &p
	} else {
		name = strings.TrimSpace(content)
	}
	return
}

func parseEntities(logical []textcodec.LogicalLine) []*parsedEntity {
	var entities []*parsedEntity
	var current *parsedEntity
	for _, ll := range logical {
		if ll.Blank {
			continue
		}
		if ll.Indent == 0 {
			name, priority, ref := parseHeader(ll.Content)
			e := &parsedEntity{name: name, priority: priority}
			if ref != nil {
				e.refs = append(e.refs, *ref)
			}
			entities = append(entities, e)
			current = e
			continue
		}
		if current == nil {
			continue
		}
		trimmed := strings.TrimSpace(ll.Content)
		if strings.HasPrefix(trimmed, "#") {
			current.refs = append(current.refs, strings.TrimSpace(trimmed[1:]))
		} else {
			current.permLines = append(current.permLines, ll.Content)
		}
	}
	return entities
}

// LoadGroupsFromString adds what data describes to the default group and to
// every named group it lists, creating missing groups. Permissions and
// references already present are kept, and a listed permission replaces
// only the one stored at the same path.
func (r *Registry[ID]) LoadGroupsFromString(data string) error {
	entities := parseEntities(textcodec.ReadLogicalLines(data))
	for _, e := range entities {
		var g *permgroup.Group
		if e.name == defaultGroupName {
			g = r.defaultGroup
		} else {
			var err error
			g, err = r.groupForMutation(e.name)
			if err != nil {
				return err
			}
		}
		if e.priority != nil {
			p, err := permgroup.ParsePriority(*e.priority)
			if err != nil {
				return err
			}
			if err := g.ReassignPriority(p); err != nil {
				return err
			}
		}
		for _, refName := range e.refs {
			ref, err := r.groupForMutation(refName)
			if err != nil {
				return err
			}
			if err := g.AddReference(ref); err != nil {
				return err
			}
		}
		for _, pl := range e.permLines {
			if _, err := g.Set().Set(pl); err != nil {
				return err
			}
		}
	}
	return nil
}

// LoadUsersFromString adds what data describes to every user it lists,
// creating missing users; permissions and references already present are
// kept.
func (r *Registry[ID]) LoadUsersFromString(data string) error {
	entities := parseEntities(textcodec.ReadLogicalLines(data))
	for _, e := range entities {
		g := r.userGroupForMutationByKey(e.name)
		for _, refName := range e.refs {
			ref, err := r.groupForMutation(refName)
			if err != nil {
				return err
			}
			if err := g.AddReference(ref); err != nil {
				return err
			}
		}
		for _, pl := range e.permLines {
			if _, err := g.Set().Set(pl); err != nil {
				return err
			}
		}
	}
	return nil
}

func tryReadFile(path string) (data string, ok bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(b), true
}

func writeFile(path, content string) error {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil
	}
	return os.WriteFile(path, []byte(content), 0o644)
}

// Load reads the registry's backing files, if configured. A missing,
// unreadable, or directory-typed path is a silent no-op for that file.
func (r *Registry[ID]) Load() error {
	if r.groupsPath != "" {
		if data, ok := tryReadFile(r.groupsPath); ok {
			if err := r.LoadGroupsFromString(data); err != nil {
				return err
			}
		}
	}
	if r.usersPath != "" {
		if data, ok := tryReadFile(r.usersPath); ok {
			if err := r.LoadUsersFromString(data); err != nil {
				return err
			}
		}
	}
	r.dirty = false
	return nil
}

// Save writes the registry's backing files, if configured. A directory-
// typed path is a silent no-op for that file.
func (r *Registry[ID]) Save() error {
	if r.usersPath != "" {
		if err := writeFile(r.usersPath, r.UsersSaveString()); err != nil {
			return permerr.NewIo("save users", err)
		}
	}
	if r.groupsPath != "" {
		if err := writeFile(r.groupsPath, r.GroupsSaveString()); err != nil {
			return permerr.NewIo("save groups", err)
		}
	}
	r.dirty = false
	return nil
}

// Stats is a point-in-time count snapshot, used by the HTTP demo's health
// endpoint in place of a full save-string dump.
type Stats struct {
	UserCount              int  `json:"user_count"`
	GroupCount             int  `json:"group_count"`
	UserPermissionCount    int  `json:"user_permission_count"`
	GroupPermissionCount   int  `json:"group_permission_count"`
	DefaultPermissionCount int  `json:"default_permission_count"`
	Dirty                  bool `json:"dirty"`
}

// Stats counts users, groups, and the permissions attached directly to each
// (group-reference inheritance is not unrolled into the count).
func (r *Registry[ID]) Stats() Stats {
	s := Stats{
		UserCount:              len(r.users),
		GroupCount:             len(r.groups),
		DefaultPermissionCount: len(r.defaultGroup.Set().ToSaveLines()),
		Dirty:                  r.dirty,
	}
	for _, g := range r.users {
		s.UserPermissionCount += len(g.Set().ToSaveLines())
	}
	for _, g := range r.groups {
		s.GroupPermissionCount += len(g.Set().ToSaveLines())
	}
	return s
}

// exportedEntity is the read-only JSON shape of one user or group in
// ExportJSON's output.
type exportedEntity struct {
	Name        string   `json:"name"`
	Priority    string   `json:"priority,omitempty"`
	Permissions []string `json:"permissions"`
	Groups      []string `json:"groups,omitempty"`
}

// exportedRegistry is the full shape returned by ExportJSON.
type exportedRegistry struct {
	Users   []exportedEntity `json:"users"`
	Groups  []exportedEntity `json:"groups"`
	Default exportedEntity   `json:"default"`
}

func exportGroup(name string, g *permgroup.Group) exportedEntity {
	e := exportedEntity{
		Name:        name,
		Permissions: g.Set().ToSaveLines(),
	}
	if !isDefaultPriority(g.Priority()) {
		e.Priority = g.Priority().String()
	}
	for _, ref := range g.ReferencedGroups() {
		e.Groups = append(e.Groups, ref.Name())
	}
	return e
}

// ExportJSON renders the registry as JSON for read-only inspection tooling.
// It is never the wire format of record: UsersSaveString/GroupsSaveString
// remain the authoritative persisted representation.
func (r *Registry[ID]) ExportJSON() ([]byte, error) {
	out := exportedRegistry{
		Default: exportGroup(defaultGroupName, r.defaultGroup),
	}
	for _, key := range sortedKeys(r.users) {
		out.Users = append(out.Users, exportGroup(key, r.users[key]))
	}
	for _, name := range sortedKeys(r.groups) {
		out.Groups = append(out.Groups, exportGroup(name, r.groups[name]))
	}
	return json.MarshalIndent(out, "", "  ")
}
