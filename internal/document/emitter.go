package document

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultDeprecationMarker is written above fields whose path is deprecated.
	DefaultDeprecationMarker = "// Deprecated"
	// DefaultInlineListMax is the longest list rendered on a single line.
	DefaultInlineListMax = 3
	// DefaultIndent is the number of spaces per nesting level.
	DefaultIndent = 2
)

// EmitOptions controls how a tree is rendered back to source text.
type EmitOptions struct {
	// Comments are written above fields with a matching bare name, at any depth.
	Comments CommentTable
	// Deprecated reports whether the field at a dotted path should carry
	// the deprecation marker. Nil marks nothing.
	Deprecated func(path string) bool
	Marker     string
	// InlineListMax values below 1 select DefaultInlineListMax.
	InlineListMax int
	Indent        int
}

func (o EmitOptions) withDefaults() EmitOptions {
	if o.Marker == "" {
		o.Marker = DefaultDeprecationMarker
	}
	if o.InlineListMax < 1 {
		o.InlineListMax = DefaultInlineListMax
	}
	if o.Indent < 1 {
		o.Indent = DefaultIndent
	}
	return o
}

// Emit renders an object tree as `export const config = { ... };` source.
func Emit(tree *Node, opts EmitOptions) (string, error) {
	if !tree.IsObject() {
		return "", fmt.Errorf("emit: root must be an object, got %v", kindOf(tree))
	}
	e := &emitter{opts: opts.withDefaults()}
	e.b.WriteString("export const config = ")
	if err := e.object(tree, "", 1); err != nil {
		return "", err
	}
	e.b.WriteString(";\n")
	return e.b.String(), nil
}

func kindOf(n *Node) string {
	if n == nil {
		return "nil"
	}
	return n.Kind.String()
}

type emitter struct {
	b    strings.Builder
	opts EmitOptions
}

func (e *emitter) pad(level int) string {
	return strings.Repeat(" ", level*e.opts.Indent)
}

func (e *emitter) object(n *Node, prefix string, level int) error {
	indent := e.pad(level)
	e.b.WriteString("{\n")
	for _, f := range n.Fields() {
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}

		if comment, ok := e.opts.Comments[f.Name]; ok {
			e.b.WriteString(indent + comment + "\n")
		}
		if e.opts.Deprecated != nil && e.opts.Deprecated(path) {
			e.b.WriteString(indent + e.opts.Marker + "\n")
		}

		e.b.WriteString(indent)
		if f.Value != nil && f.Value.Kind == KindFunction && f.Value.Method {
			e.b.WriteString(f.Value.Text)
		} else {
			e.b.WriteString(renderKey(f.Name) + ": ")
			if err := e.value(f.Value, path, level); err != nil {
				return err
			}
		}
		e.b.WriteString(",\n")
	}
	e.b.WriteString(e.pad(level-1) + "}")
	return nil
}

func (e *emitter) value(n *Node, path string, level int) error {
	if n == nil {
		return fmt.Errorf("emit: field %q has no value", path)
	}
	switch n.Kind {
	case KindObject:
		return e.object(n, path, level+1)
	case KindList:
		if len(n.Items) <= e.opts.InlineListMax {
			s, err := compact(n)
			if err != nil {
				return err
			}
			e.b.WriteString(s)
			return nil
		}
		inner := e.pad(level + 1)
		e.b.WriteString("[\n")
		for i, item := range n.Items {
			s, err := compact(item)
			if err != nil {
				return err
			}
			e.b.WriteString(inner + s)
			if i < len(n.Items)-1 {
				e.b.WriteByte(',')
			}
			e.b.WriteByte('\n')
		}
		e.b.WriteString(e.pad(level) + "]")
		return nil
	default:
		s, err := compact(n)
		if err != nil {
			return err
		}
		e.b.WriteString(s)
		return nil
	}
}

// compact renders a value on one line with JSON punctuation. Function
// values inside lists keep their source text.
func compact(n *Node) (string, error) {
	if n == nil {
		return "null", nil
	}
	switch n.Kind {
	case KindString:
		return Quote(n.Str), nil
	case KindNumber:
		return FormatNumber(n.Num), nil
	case KindBool:
		return strconv.FormatBool(n.Bool), nil
	case KindNull:
		return "null", nil
	case KindFunction:
		if n.Method {
			return "", fmt.Errorf("emit: method %q cannot appear outside an object", n.Text)
		}
		return n.Text, nil
	case KindList:
		parts := make([]string, len(n.Items))
		for i, item := range n.Items {
			s, err := compact(item)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "[" + strings.Join(parts, ",") + "]", nil
	case KindObject:
		parts := make([]string, 0, n.Len())
		for _, f := range n.Fields() {
			if f.Value != nil && f.Value.Kind == KindFunction && f.Value.Method {
				parts = append(parts, f.Value.Text)
				continue
			}
			s, err := compact(f.Value)
			if err != nil {
				return "", err
			}
			parts = append(parts, Quote(f.Name)+":"+s)
		}
		return "{" + strings.Join(parts, ",") + "}", nil
	default:
		return "", fmt.Errorf("emit: unknown node kind %d", n.Kind)
	}
}

func renderKey(name string) string {
	if isIdentifier(name) || isIndexKey(name) {
		return name
	}
	return Quote(name)
}

// isIndexKey reports whether name is a canonical non-negative integer.
func isIndexKey(name string) bool {
	if name == "" || len(name) > 15 || (len(name) > 1 && name[0] == '0') {
		return false
	}
	for i := 0; i < len(name); i++ {
		if !isDigit(name[i]) {
			return false
		}
	}
	return true
}

// Quote returns s as a double-quoted literal with JSON escaping.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\u2028', '\u2029':
			fmt.Fprintf(&b, `\u%04x`, r)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
