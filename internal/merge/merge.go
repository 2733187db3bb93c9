// Package merge reconciles a user's customised configuration tree with the
// tree shipped by a newer template.
//
// The new template supplies the skeleton. Values the user customised win
// wherever the surrounding object still has the same shape, and one reserved
// top-level field belongs to the user outright. Fields the template no
// longer has are reported by FindDeprecated; Merge drops them unless
// Options.KeepDeprecated is set.
package merge

import (
	"sort"

	"github.com/pugsite/pugsite/internal/document"
)

// DefaultReservedField is the top-level field copied wholesale from the
// user's document.
const DefaultReservedField = "commonData"

// Options controls a reconciliation.
type Options struct {
	// ReservedField names the user-owned top-level field. Empty selects
	// DefaultReservedField.
	ReservedField string
	// KeepDeprecated carries old-only fields into the merged tree, after the
	// template's fields of the same object, instead of dropping them.
	KeepDeprecated bool
}

func (o Options) reserved() string {
	if o.ReservedField == "" {
		return DefaultReservedField
	}
	return o.ReservedField
}

// DeprecatedPathSet is a set of dotted field paths.
type DeprecatedPathSet map[string]struct{}

// Has reports whether path is in the set.
func (s DeprecatedPathSet) Has(path string) bool {
	_, ok := s[path]
	return ok
}

// Len returns the number of paths.
func (s DeprecatedPathSet) Len() int {
	return len(s)
}

// Sorted returns the paths in lexical order.
func (s DeprecatedPathSet) Sorted() []string {
	paths := make([]string, 0, len(s))
	for p := range s {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// FindDeprecated returns the paths of fields present in oldTree but absent
// from newTree at the same position. Only objects present on both sides are
// descended into; the reserved field is skipped at the root.
func FindDeprecated(newTree, oldTree *document.Node, opts Options) DeprecatedPathSet {
	set := make(DeprecatedPathSet)
	findDeprecated(newTree, oldTree, "", opts.reserved(), set)
	return set
}

func findDeprecated(newTree, oldTree *document.Node, prefix, reserved string, set DeprecatedPathSet) {
	for _, f := range oldTree.Fields() {
		if prefix == "" && f.Name == reserved {
			continue
		}
		path := joinPath(prefix, f.Name)

		newValue, ok := newTree.Get(f.Name)
		if !ok {
			set[path] = struct{}{}
			continue
		}
		if newValue.IsObject() && f.Value.IsObject() {
			findDeprecated(newValue, f.Value, path, reserved, set)
		}
	}
}

// Merge builds the reconciled tree from the template tree newTree and the
// customised tree oldTree. Neither input is modified and the result shares
// no nodes with them.
func Merge(newTree, oldTree *document.Node, opts Options) *document.Node {
	return merge(newTree, oldTree, true, opts)
}

func merge(source, target *document.Node, root bool, opts Options) *document.Node {
	result := document.NewObject()
	for _, f := range source.Fields() {
		result.Set(f.Name, f.Value.Clone())
	}

	reserved := opts.reserved()
	for _, f := range target.Fields() {
		sourceValue, inSource := source.Get(f.Name)
		switch {
		case root && f.Name == reserved:
			result.Set(f.Name, f.Value.Clone())
		case !inSource && !opts.KeepDeprecated:
			// Dropped; FindDeprecated reports it.
		case inSource && sourceValue.IsObject() && f.Value.IsObject():
			result.Set(f.Name, merge(sourceValue, f.Value, false, opts))
		default:
			result.Set(f.Name, f.Value.Clone())
		}
	}
	return result
}

// Result is the outcome of a reconciliation.
type Result struct {
	Merged     *document.Node
	Deprecated DeprecatedPathSet
}

// Reconcile merges the two trees and reports the deprecated paths.
func Reconcile(newTree, oldTree *document.Node, opts Options) Result {
	return Result{
		Merged:     Merge(newTree, oldTree, opts),
		Deprecated: FindDeprecated(newTree, oldTree, opts),
	}
}

func joinPath(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
