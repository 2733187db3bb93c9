// Package document models a site configuration document (the object literal
// exported as `config` from config.js) as a typed tree, and converts between
// that tree and source text.
//
// Load parses source text into a *Node without executing anything: function
// valued entries are kept as verbatim text spans. ExtractComments collects the
// line comments that annotate top-level fields. Emit renders a tree back into
// source text in the hand-written style the template uses.
package document

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies the type of value held by a Node.
type Kind int

const (
	KindObject Kind = iota
	KindList
	KindFunction
	KindString
	KindNumber
	KindBool
	KindNull
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindList:
		return "list"
	case KindFunction:
		return "function"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "boolean"
	case KindNull:
		return "null"
	default:
		return "unknown"
	}
}

// Field is a named entry of an object node.
type Field struct {
	Name  string
	Value *Node
}

// Node is a configuration value. Only the members relevant to Kind are set.
type Node struct {
	Kind Kind

	fields []Field
	index  map[string]int

	Items []*Node

	// Text holds the verbatim source of a function value.
	Text string
	// Method is set for shorthand methods (`name() {}`); Text then starts
	// with the method name rather than the `function` keyword.
	Method bool

	Str  string
	Num  float64
	Bool bool
}

// NewObject returns an empty object node.
func NewObject() *Node {
	return &Node{Kind: KindObject, index: make(map[string]int)}
}

// NewList returns a list node holding items.
func NewList(items ...*Node) *Node {
	return &Node{Kind: KindList, Items: items}
}

// NewFunction returns a function node holding verbatim source text.
func NewFunction(text string) *Node {
	return &Node{Kind: KindFunction, Text: text}
}

// NewString returns a string scalar.
func NewString(s string) *Node {
	return &Node{Kind: KindString, Str: s}
}

// NewNumber returns a numeric scalar.
func NewNumber(f float64) *Node {
	return &Node{Kind: KindNumber, Num: f}
}

// NewBool returns a boolean scalar.
func NewBool(b bool) *Node {
	return &Node{Kind: KindBool, Bool: b}
}

// NewNull returns the null scalar.
func NewNull() *Node {
	return &Node{Kind: KindNull}
}

// IsObject reports whether n is a non-nil object node.
func (n *Node) IsObject() bool {
	return n != nil && n.Kind == KindObject
}

// Set assigns value to name, keeping the original position when name already exists.
func (n *Node) Set(name string, value *Node) {
	if n.index == nil {
		n.index = make(map[string]int)
	}
	if i, ok := n.index[name]; ok {
		n.fields[i].Value = value
		return
	}
	n.index[name] = len(n.fields)
	n.fields = append(n.fields, Field{Name: name, Value: value})
}

// Get returns the value stored under name.
func (n *Node) Get(name string) (*Node, bool) {
	if n == nil || n.index == nil {
		return nil, false
	}
	i, ok := n.index[name]
	if !ok {
		return nil, false
	}
	return n.fields[i].Value, true
}

// Fields returns the object's fields in insertion order.
func (n *Node) Fields() []Field {
	if n == nil {
		return nil
	}
	return n.fields
}

// Keys returns the object's field names in insertion order.
func (n *Node) Keys() []string {
	keys := make([]string, 0, len(n.Fields()))
	for _, f := range n.Fields() {
		keys = append(keys, f.Name)
	}
	return keys
}

// Len returns the number of fields of an object or items of a list.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	if n.Kind == KindList {
		return len(n.Items)
	}
	return len(n.fields)
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := *n
	switch n.Kind {
	case KindObject:
		c.fields = make([]Field, len(n.fields))
		c.index = make(map[string]int, len(n.fields))
		for i, f := range n.fields {
			c.fields[i] = Field{Name: f.Name, Value: f.Value.Clone()}
			c.index[f.Name] = i
		}
	case KindList:
		c.Items = make([]*Node, len(n.Items))
		for i, item := range n.Items {
			c.Items[i] = item.Clone()
		}
	}
	return &c
}

// Equal reports whether a and b hold the same value. Object comparison is
// order sensitive because field order is part of the emitted document.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindObject:
		if len(a.fields) != len(b.fields) {
			return false
		}
		for i := range a.fields {
			if a.fields[i].Name != b.fields[i].Name || !Equal(a.fields[i].Value, b.fields[i].Value) {
				return false
			}
		}
		return true
	case KindList:
		if len(a.Items) != len(b.Items) {
			return false
		}
		for i := range a.Items {
			if !Equal(a.Items[i], b.Items[i]) {
				return false
			}
		}
		return true
	case KindFunction:
		return a.Text == b.Text && a.Method == b.Method
	case KindString:
		return a.Str == b.Str
	case KindNumber:
		return a.Num == b.Num || (math.IsNaN(a.Num) && math.IsNaN(b.Num))
	case KindBool:
		return a.Bool == b.Bool
	default:
		return true
	}
}

// FormatNumber renders f the way JavaScript's Number#toString does for the
// finite values a config document can hold.
func FormatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "null"
	}
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		// Go pads the exponent to two digits, JavaScript does not.
		mant, exp, _ := strings.Cut(s, "e")
		sign := exp[0]
		digits := exp[1:]
		for len(digits) > 1 && digits[0] == '0' {
			digits = digits[1:]
		}
		return mant + "e" + string(sign) + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
