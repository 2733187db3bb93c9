//go:build property
// +build property

package merge

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/pugsite/pugsite/internal/document"
)

// buildTree creates an object tree with a leaf at every dotted path. Later
// paths replace leaves that sit where an earlier path needs an object.
func buildTree(paths []string, seed int) *document.Node {
	root := document.NewObject()
	for i, p := range paths {
		segments := strings.Split(p, ".")
		cur := root
		for _, name := range segments[:len(segments)-1] {
			next, ok := cur.Get(name)
			if !ok || !next.IsObject() {
				next = document.NewObject()
				cur.Set(name, next)
			}
			cur = next
		}
		cur.Set(segments[len(segments)-1], leaf(seed+i))
	}
	return root
}

func leaf(n int) *document.Node {
	switch n % 5 {
	case 0:
		return document.NewNumber(float64(n))
	case 1:
		return document.NewString(strings.Repeat("v", n%7))
	case 2:
		return document.NewList(document.NewNumber(1), document.NewBool(n%2 == 0))
	case 3:
		return document.NewFunction("() => " + strings.Repeat("1", 1+n%3))
	default:
		return document.NewObject()
	}
}

func pathGen() gopter.Gen {
	return gen.RegexMatch(`^(commonData|[abcd])(\.[abcxy]){0,2}$`)
}

func treeGen() gopter.Gen {
	return gopter.CombineGens(gen.SliceOfN(8, pathGen()), gen.IntRange(0, 100)).Map(func(v []interface{}) *document.Node {
		return buildTree(v[0].([]string), v[1].(int))
	})
}

// leafPaths lists the dotted paths of every non-object value in tree.
func leafPaths(tree *document.Node, prefix string) []string {
	var paths []string
	for _, f := range tree.Fields() {
		path := joinPath(prefix, f.Name)
		if f.Value.IsObject() {
			paths = append(paths, leafPaths(f.Value, path)...)
			continue
		}
		paths = append(paths, path)
	}
	return paths
}

// TestMergeProperties checks the invariants of reconciliation over random trees
func TestMergeProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	// Property: merging a document with itself changes nothing
	properties.Property("re-merge is idempotent", prop.ForAll(
		func(d *document.Node) bool {
			result := Reconcile(d, d, Options{})
			return document.Equal(d, result.Merged) && result.Deprecated.Len() == 0
		},
		treeGen(),
	))

	// Property: the reserved field always comes from the old document
	properties.Property("reserved field is user owned", prop.ForAll(
		func(newTree, oldTree *document.Node) bool {
			oldTree.Set(DefaultReservedField, document.NewString("mine"))
			merged := Merge(newTree, oldTree, Options{})
			got, ok := merged.Get(DefaultReservedField)
			return ok && got.Kind == document.KindString && got.Str == "mine"
		},
		treeGen(), treeGen(),
	))

	// Property: deprecated paths never appear in the merged tree
	properties.Property("no resurrection", prop.ForAll(
		func(newTree, oldTree *document.Node) bool {
			result := Reconcile(newTree, oldTree, Options{})
			for path := range result.Deprecated {
				if _, ok := lookup(result.Merged, strings.Split(path, ".")...); ok {
					return false
				}
			}
			return true
		},
		treeGen(), treeGen(),
	))

	// Property: with KeepDeprecated every deprecated path stays live
	properties.Property("keep deprecated retains paths", prop.ForAll(
		func(newTree, oldTree *document.Node) bool {
			result := Reconcile(newTree, oldTree, Options{KeepDeprecated: true})
			for path := range result.Deprecated {
				if _, ok := lookup(result.Merged, strings.Split(path, ".")...); !ok {
					return false
				}
			}
			return true
		},
		treeGen(), treeGen(),
	))

	// Property: template leaves survive unless the user replaced an
	// enclosing object with a non-object value
	properties.Property("template skeleton coverage", prop.ForAll(
		func(newTree, oldTree *document.Node) bool {
			merged := Merge(newTree, oldTree, Options{})
			for _, path := range leafPaths(newTree, "") {
				segments := strings.Split(path, ".")
				if _, owned := oldTree.Get(DefaultReservedField); owned && segments[0] == DefaultReservedField {
					continue
				}
				if replacedByUser(oldTree, segments) {
					continue
				}
				if _, ok := lookup(merged, segments...); !ok {
					return false
				}
			}
			return true
		},
		treeGen(), treeGen(),
	))

	// Property: inputs are never modified
	properties.Property("inputs are immutable", prop.ForAll(
		func(newTree, oldTree *document.Node) bool {
			newCopy, oldCopy := newTree.Clone(), oldTree.Clone()
			Reconcile(newTree, oldTree, Options{KeepDeprecated: true})
			return document.Equal(newCopy, newTree) && document.Equal(oldCopy, oldTree)
		},
		treeGen(), treeGen(),
	))

	properties.TestingRun(t)
}

// replacedByUser reports whether oldTree holds a non-object value at a
// proper prefix of segments.
func replacedByUser(oldTree *document.Node, segments []string) bool {
	for i := 1; i < len(segments); i++ {
		v, ok := lookup(oldTree, segments[:i]...)
		if !ok {
			return false
		}
		if !v.IsObject() {
			return true
		}
	}
	return false
}
