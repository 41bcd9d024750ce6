// Package permset implements PermissionSet: a radix-like tree keyed by
// dotted path node names, storing at most one Permission per node, and
// answering "most relevant permission covering P" queries.
package permset

import (
	"sort"

	"github.com/mmcdole/permtree/pkg/permission"
	"github.com/mmcdole/permtree/pkg/permpath"
)

type node struct {
	children map[string]*node
	perm     *permission.Permission
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

func (n *node) isEmpty() bool {
	return n.perm == nil && len(n.children) == 0
}

// Set is the tree of permissions belonging to one PermissionGroup.
type Set struct {
	root *node
}

// New creates an empty PermissionSet.
func New() *Set {
	return &Set{root: newNode()}
}

// Set parses permString and stores the resulting Permission at the node for
// its path, replacing whatever was stored there. It returns the permission
// previously stored at that exact node, if any.
func (s *Set) Set(permString string) (*permission.Permission, error) {
	path, perm, err := permission.Parse(permString)
	if err != nil {
		return nil, err
	}

	cur := s.root
	for _, part := range path {
		child, ok := cur.children[part]
		if !ok {
			child = newNode()
			cur.children[part] = child
		}
		cur = child
	}

	prev := cur.perm
	permCopy := perm
	cur.perm = &permCopy
	return prev, nil
}

// Remove clears the Permission stored at pathString, pruning any branches
// that become empty as a result. It reports whether a change occurred.
func (s *Set) Remove(pathString string) (bool, error) {
	path, err := permpath.Parse(pathString)
	if err != nil {
		return false, err
	}

	chain := make([]*node, 0, len(path)+1)
	chain = append(chain, s.root)
	cur := s.root
	for _, part := range path {
		child, ok := cur.children[part]
		if !ok {
			return false, nil
		}
		chain = append(chain, child)
		cur = child
	}

	if cur.perm == nil {
		return false, nil
	}
	cur.perm = nil

	// Prune empty leaf branches from the target node back up to (but not
	// including) the root.
	for i := len(chain) - 1; i > 0; i-- {
		n := chain[i]
		if !n.isEmpty() {
			break
		}
		parent := chain[i-1]
		for key, child := range parent.children {
			if child == n {
				delete(parent.children, key)
				break
			}
		}
	}

	return true, nil
}

// MostRelevant walks from the root along pathString's nodes and returns the
// matched path and Permission whose coverage has the longest matching
// prefix, per the precedence rules of the permission grammar: an exact
// node's Permission wins over any ancestor wildcard only when that node
// actually carries exact-disposition bits; otherwise the deepest ancestor
// carrying descendant-disposition bits wins.
func (s *Set) MostRelevant(pathString string) (permpath.Path, permission.Permission, bool) {
	path, err := permpath.Parse(pathString)
	if err != nil {
		return nil, permission.Permission{}, false
	}

	cur := s.root
	var candidatePath permpath.Path
	var candidatePerm permission.Permission
	found := false

	for i, part := range path {
		child, ok := cur.children[part]
		if !ok {
			break
		}
		cur = child
		depth := i + 1

		if cur.perm != nil {
			if depth == len(path) {
				if cur.perm.IncludesExact || cur.perm.NegatesExact {
					candidatePath = append(permpath.Path{}, path[:depth]...)
					candidatePerm = *cur.perm
					found = true
				}
			} else {
				if cur.perm.IncludesDescendants || cur.perm.NegatesDescendants {
					candidatePath = append(permpath.Path{}, path[:depth]...)
					candidatePerm = *cur.perm
					found = true
				}
			}
		}
	}

	return candidatePath, candidatePerm, found
}

// HasAny reports whether the subtree rooted at pathString contains any
// Permission, including one stored directly at that node.
func (s *Set) HasAny(pathString string) (bool, error) {
	path, err := permpath.Parse(pathString)
	if err != nil {
		return false, err
	}

	cur := s.root
	for _, part := range path {
		child, ok := cur.children[part]
		if !ok {
			return false, nil
		}
		cur = child
	}
	return subtreeHasPermission(cur), nil
}

func subtreeHasPermission(n *node) bool {
	if n.perm != nil {
		return true
	}
	for _, child := range n.children {
		if subtreeHasPermission(child) {
			return true
		}
	}
	return false
}

// IsEmpty reports whether the set holds no permissions at all.
func (s *Set) IsEmpty() bool {
	return s.root.isEmpty()
}

// ToSaveLines renders every stored permission as a logical line (one
// "path[.*][:arg]" string per permission, arg possibly containing embedded
// newlines for a multi-line continuation), sorted by path for a
// deterministic save string.
func (s *Set) ToSaveLines() []string {
	type entry struct {
		path permpath.Path
		perm permission.Permission
	}
	var entries []entry
	var walk func(n *node, prefix permpath.Path)
	walk = func(n *node, prefix permpath.Path) {
		if n.perm != nil {
			entries = append(entries, entry{path: append(permpath.Path{}, prefix...), perm: *n.perm})
		}
		keys := make([]string, 0, len(n.children))
		for k := range n.children {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			walk(n.children[k], append(prefix, k))
		}
	}
	walk(s.root, nil)

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].path.String() < entries[j].path.String()
	})

	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = permission.Render(e.path, e.perm)
	}
	return lines
}

// ParseLines consumes a sequence of already-joined logical lines (see
// pkg/textcodec) and stores the permission each one defines.
func (s *Set) ParseLines(lines []string) error {
	for _, line := range lines {
		if _, err := s.Set(line); err != nil {
			return err
		}
	}
	return nil
}
