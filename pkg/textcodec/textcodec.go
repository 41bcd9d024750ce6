// Package textcodec implements the indentation-aware logical-line reader
// and save-string writer shared by the registry and permission set to
// persist and restore the text format described by spec §4.5.
//
// A "logical line" is one or more physical lines joined together: a
// permission line that introduces an argument (a colon after a plain
// path-like token) pulls in any immediately following physical lines that
// are indented at least four spaces deeper than itself, de-indenting them
// by that minimum continuation width and joining them with "\n". Only body
// lines (those with a nonzero leading-space count) are eligible to start a
// continuation — group/user headers never span multiple physical lines,
// so a colon in a priority header ("name: 5 #group") never triggers a
// continuation scan.
package textcodec

import "strings"

// LogicalLine is one reassembled line of input: either a blank separator,
// or a header (Indent == 0) / body (Indent > 0) line whose Content has
// already had its leading indent stripped and any continuation joined in.
type LogicalLine struct {
	Blank   bool
	Indent  int
	Content string
}

// ReadLogicalLines parses the indentation-aware format of spec §4.5 out of
// data, joining continuation lines per the rule above.
func ReadLogicalLines(data string) []LogicalLine {
	phys := splitPhysicalLines(data)
	var out []LogicalLine

	i := 0
	for i < len(phys) {
		line := phys[i]
		if strings.TrimSpace(line) == "" {
			out = append(out, LogicalLine{Blank: true})
			i++
			continue
		}

		indent := indentOf(line)
		content := line[indent:]
		i++

		if indent > 0 && introducesArgument(content) {
			contIndent := indent + 4
			var cont []string
			for i < len(phys) {
				next := phys[i]
				if strings.TrimSpace(next) == "" {
					break
				}
				if indentOf(next) < contIndent {
					break
				}
				cont = append(cont, next[contIndent:])
				i++
			}
			if len(cont) > 0 {
				content = content + "\n" + strings.Join(cont, "\n")
			}
		}

		out = append(out, LogicalLine{Indent: indent, Content: content})
	}

	return out
}

func splitPhysicalLines(data string) []string {
	if data == "" {
		return nil
	}
	parts := strings.Split(data, "\n")
	if len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\r")
	}
	return parts
}

func indentOf(line string) int {
	n := 0
	for n < len(line) && line[n] == ' ' {
		n++
	}
	return n
}

// introducesArgument reports whether content is syntactically a permission
// line with a trailing ":argument" — a colon preceded by a token made only
// of the characters a permission path (or its "-"/"."/"*" decorations) can
// contain. A "#group" reference body line has no colon and never matches.
func introducesArgument(content string) bool {
	idx := strings.IndexByte(content, ':')
	if idx < 0 {
		return false
	}
	token := content[:idx]
	if token == "" {
		return false
	}
	for _, r := range token {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '*':
		default:
			return false
		}
	}
	return true
}

// FormatBodyLine renders one logical body line's content at the given base
// indent, splitting any embedded "\n" continuation into physical lines
// indented four spaces deeper, mirroring the read-side de-indent.
func FormatBodyLine(content string, indent int) []string {
	parts := strings.Split(content, "\n")
	pad := strings.Repeat(" ", indent)
	contPad := strings.Repeat(" ", indent+4)

	lines := make([]string, len(parts))
	for i, p := range parts {
		if i == 0 {
			lines[i] = pad + p
		} else {
			lines[i] = contPad + p
		}
	}
	return lines
}

// Entity is one rendered group/user/default block, ready to be joined with
// its neighbours by JoinEntities.
type Entity struct {
	Lines      []string
	SingleLine bool
}

// JoinEntities assembles the full save string from a sequence of rendered
// entities, separating consecutive single-line entities by one blank line
// and any other pair by two, per spec §4.5.
func JoinEntities(entities []Entity) string {
	var out []string
	for i, e := range entities {
		if i > 0 {
			if entities[i-1].SingleLine && e.SingleLine {
				out = append(out, "")
			} else {
				out = append(out, "", "")
			}
		}
		out = append(out, e.Lines...)
	}
	if len(out) == 0 {
		return ""
	}
	return strings.Join(out, "\n") + "\n"
}
