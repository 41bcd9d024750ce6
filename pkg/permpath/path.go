// Package permpath implements the dotted permission path grammar shared by
// the permission parser, the permission set, and the registry: an ordered
// sequence of non-empty alphanumeric nodes compared node-wise.
package permpath

import (
	"fmt"
	"strings"
)

// Path is an ordered sequence of dotted path nodes, e.g. "a.b.c" -> [a b c].
type Path []string

// Parse splits a plain dotted path (no leading "-", no trailing ".*", no
// ":argument") into its nodes, validating that every node is non-empty and
// contains only letters and digits.
func Parse(s string) (Path, error) {
	if s == "" {
		return nil, fmt.Errorf("permpath: empty path")
	}
	nodes := strings.Split(s, ".")
	for _, n := range nodes {
		if err := validateNode(n); err != nil {
			return nil, fmt.Errorf("permpath: %q: %w", s, err)
		}
	}
	return Path(nodes), nil
}

func validateNode(n string) error {
	if n == "" {
		return fmt.Errorf("empty path node")
	}
	for _, r := range n {
		if !isAlphanumeric(r) {
			return fmt.Errorf("invalid character %q in path node %q", r, n)
		}
	}
	return nil
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// Covers reports whether a is a node-wise prefix of b (a covers b).
func Covers(a, b Path) bool {
	if len(a) > len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// String renders the path back to dotted form.
func (p Path) String() string {
	return strings.Join(p, ".")
}
