// Package permission implements the single-rule Permission value object and
// its textual grammar: ["-"] PATH ["." "*"] [":" ARG].
package permission

import (
	"strings"

	"github.com/mmcdole/permtree/pkg/permerr"
	"github.com/mmcdole/permtree/pkg/permpath"
)

// Permission is an immutable value describing one tree node's effect: its
// disposition on the exact node and on its descendants, plus an optional
// argument carried along with each disposition.
type Permission struct {
	IncludesExact       bool
	NegatesExact        bool
	IncludesDescendants bool
	NegatesDescendants  bool

	Argument               *string
	ArgumentForDescendants *string
}

// Allows reports the node's disposition for an exact match.
func (p Permission) Allows() bool { return p.IncludesExact }

// AllowsDescendants reports the node's disposition for a strict descendant.
func (p Permission) AllowsDescendants() bool { return p.IncludesDescendants }

// Negates reports whether the exact node is explicitly negated.
func (p Permission) Negates() bool { return p.NegatesExact }

// NegatesDescendant reports whether descendants are explicitly negated.
func (p Permission) NegatesDescendant() bool { return p.NegatesDescendants }

// Parse parses one logical permission line (already joined across any
// multi-line argument continuation by the text codec) into the path it
// targets and the Permission it defines.
//
// Grammar: ["-"] PATH ["." "*"] [":" ARG]
func Parse(line string) (permpath.Path, Permission, error) {
	raw := line

	negate := false
	body := line
	if strings.HasPrefix(body, "-") {
		negate = true
		body = body[1:]
	}

	pathPart := body
	var argument *string
	if idx := strings.IndexByte(body, ':'); idx >= 0 {
		pathPart = body[:idx]
		arg := body[idx+1:]
		argument = &arg
	}

	if pathPart == "" {
		return nil, Permission{}, permerr.NewInvalidPermission(raw, "empty permission path")
	}

	wildcard := false
	if pathPart == "*" {
		return nil, Permission{}, permerr.NewInvalidPermission(raw, "'*' must only appear as a trailing '.*' wildcard")
	}
	if strings.HasSuffix(pathPart, ".*") {
		wildcard = true
		pathPart = pathPart[:len(pathPart)-2]
		if pathPart == "" {
			return nil, Permission{}, permerr.NewInvalidPermission(raw, "wildcard has no preceding path")
		}
	}
	if strings.Contains(pathPart, "*") {
		return nil, Permission{}, permerr.NewInvalidPermission(raw, "'*' must only appear as a trailing '.*' wildcard")
	}

	path, err := permpath.Parse(pathPart)
	if err != nil {
		return nil, Permission{}, permerr.NewInvalidPermission(raw, err.Error())
	}

	perm := Permission{}
	switch {
	case wildcard && negate:
		perm.NegatesDescendants = true
	case wildcard && !negate:
		perm.IncludesDescendants = true
	case !wildcard && negate:
		perm.NegatesExact = true
		perm.NegatesDescendants = true
	default: // plain node: covers itself and all descendants
		perm.IncludesExact = true
		perm.IncludesDescendants = true
	}

	if argument != nil {
		perm.Argument = argument
		perm.ArgumentForDescendants = argument
	}

	return path, perm, nil
}

// Render formats a path and Permission back into the grammar Parse accepts.
// Render(Parse(s)) round-trips for every string Parse accepts.
func Render(path permpath.Path, p Permission) string {
	var b strings.Builder
	switch {
	case p.NegatesExact && p.NegatesDescendants:
		b.WriteByte('-')
		b.WriteString(path.String())
	case p.IncludesExact && p.IncludesDescendants:
		b.WriteString(path.String())
	case p.NegatesDescendants:
		b.WriteByte('-')
		b.WriteString(path.String())
		b.WriteString(".*")
	case p.IncludesDescendants:
		b.WriteString(path.String())
		b.WriteString(".*")
	default:
		b.WriteString(path.String())
	}
	if p.Argument != nil {
		b.WriteByte(':')
		b.WriteString(*p.Argument)
	}
	return b.String()
}

// Validate re-checks the mutual-exclusion invariants on each axis.
func (p Permission) Validate() error {
	if p.IncludesExact && p.NegatesExact {
		return permerr.NewInvalidPermission("", "includes_exact and negates_exact are mutually exclusive")
	}
	if p.IncludesDescendants && p.NegatesDescendants {
		return permerr.NewInvalidPermission("", "includes_descendants and negates_descendants are mutually exclusive")
	}
	return nil
}
