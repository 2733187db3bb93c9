package document

import (
	"regexp"
	"strings"
)

// CommentTable maps a bare field name to the line comment written above it.
type CommentTable map[string]string

// ExtractOptions controls comment extraction.
type ExtractOptions struct {
	// AllDepths attaches comments to field lines at any nesting depth
	// instead of only to the top-level fields of the config object.
	AllDepths bool
}

var (
	fieldLinePattern  = regexp.MustCompile(`^(?:([\p{L}$_][\p{L}\p{N}$_]*)|"((?:[^"\\]|\\.)*)"|'((?:[^'\\]|\\.)*)'|(\d+))\s*:`)
	methodLinePattern = regexp.MustCompile(`^(?:(?:async|get|set)\s+)?\*?\s*([\p{L}$_][\p{L}\p{N}$_]*)\s*\(`)
)

// ExtractComments scans the lines of the exported config object and records,
// for each field line, the `//` comment line directly above it. Blank lines
// and brace-only lines keep a pending comment; any other line drops it.
// Scanning stops at the line that closes the config object.
func ExtractComments(src string, opts ExtractOptions) CommentTable {
	table := make(CommentTable)

	loc := exportPattern.FindStringIndex(src)
	if loc == nil {
		return table
	}
	rest := src[loc[1]:]
	firstLine, rest, _ := strings.Cut(rest, "\n")

	depth := 0
	opened := false
	count := func(line string) bool {
		opens, closes := lineBraces(line)
		if opens > 0 {
			opened = true
		}
		depth += opens - closes
		return opened && depth <= 0
	}
	if count(firstLine) {
		return table
	}

	pending := ""
	for _, line := range strings.Split(rest, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
		case strings.HasPrefix(trimmed, "//"):
			pending = trimmed
		default:
			name, isField := fieldName(trimmed)
			switch {
			case isField && (depth == 1 || opts.AllDepths):
				if pending != "" {
					table[name] = pending
				}
				pending = ""
			case isField:
				pending = ""
			default:
				if opens, closes := lineBraces(trimmed); opens+closes == 0 {
					pending = ""
				}
			}
		}
		if count(line) {
			break
		}
	}
	return table
}

// fieldName returns the property name a trimmed source line starts with,
// either as `name:` or as a shorthand method `name(`.
func fieldName(line string) (string, bool) {
	if m := fieldLinePattern.FindStringSubmatch(line); m != nil {
		for _, g := range m[1:] {
			if g != "" {
				return g, true
			}
		}
		return "", true
	}
	if m := methodLinePattern.FindStringSubmatch(line); m != nil && m[1] != "function" {
		return m[1], true
	}
	return "", false
}

// lineBraces counts curly braces on a line, ignoring string contents and a
// trailing line comment.
func lineBraces(line string) (opens, closes int) {
	var quote byte
	for i := 0; i < len(line); i++ {
		c := line[i]
		if quote != 0 {
			switch c {
			case '\\':
				i++
			case quote:
				quote = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			quote = c
		case '/':
			if i+1 < len(line) && line[i+1] == '/' {
				return opens, closes
			}
		case '{':
			opens++
		case '}':
			closes++
		}
	}
	return opens, closes
}
