package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/pugsite/pugsite/internal/errors"
)

const projectManifest = `{
  "name": "my-site",
  "version": "1.0.0",
  "scripts": {
    "dev": "vite --host",
    "build": "vite build"
  },
  "dependencies": {"a": "^1.0.0", "b": "<2"},
  "files": []
}
`

const templateManifest = `{
  "name": "pug-site-template",
  "scripts": {
    "dev": "vite",
    "build": "vite build",
    "preview": "vite preview && echo '<done>'"
  }
}`

func scriptsOf(t *testing.T, src string) *Scripts {
	t.Helper()
	m, err := Parse([]byte(src))
	require.NoError(t, err)
	require.True(t, m.HasScripts())
	return m.Scripts()
}

func TestMergeScripts(t *testing.T) {
	newScripts := scriptsOf(t, templateManifest)
	oldScripts := scriptsOf(t, projectManifest)

	merged, conflicts, added := MergeScripts(newScripts, oldScripts)

	assert.Equal(t, []string{"dev", "build", "preview"}, merged.Keys())
	assert.Equal(t, map[string]string{
		"dev":     "vite --host",
		"build":   "vite build",
		"preview": "vite preview && echo '<done>'",
	}, scriptMap(merged))
	assert.Equal(t, []Conflict{{Key: "dev", Template: "vite", Current: "vite --host"}}, conflicts)
	assert.Equal(t, []string{"preview"}, added)

	// Inputs are untouched.
	assert.Equal(t, 2, oldScripts.Len())
	assert.Equal(t, 3, newScripts.Len())
}

func TestMergeScriptsEmptyCurrentValueConflicts(t *testing.T) {
	newScripts := NewScripts()
	newScripts.Set("lint", "eslint .")
	oldScripts := NewScripts()
	oldScripts.Set("lint", "")

	merged, conflicts, added := MergeScripts(newScripts, oldScripts)
	v, _ := merged.Get("lint")
	assert.Equal(t, "", v)
	assert.Len(t, conflicts, 1)
	assert.Empty(t, added)
}

func TestMergeScriptsNilInputs(t *testing.T) {
	newScripts := NewScripts()
	newScripts.Set("dev", "vite")

	merged, conflicts, added := MergeScripts(newScripts, nil)
	assert.Equal(t, []string{"dev"}, merged.Keys())
	assert.Empty(t, conflicts)
	assert.Equal(t, []string{"dev"}, added)

	merged, _, _ = MergeScripts(nil, newScripts)
	assert.Equal(t, scriptMap(newScripts), scriptMap(merged))
}

func TestEncodePreservesFields(t *testing.T) {
	project, err := Parse([]byte(projectManifest))
	require.NoError(t, err)
	merged, _, _ := MergeScripts(scriptsOf(t, templateManifest), project.Scripts())

	out, err := project.WithScripts(merged).Encode()
	require.NoError(t, err)

	want := `{
  "name": "my-site",
  "version": "1.0.0",
  "scripts": {
    "dev": "vite --host",
    "build": "vite build",
    "preview": "vite preview && echo '<done>'"
  },
  "dependencies": {
    "a": "^1.0.0",
    "b": "<2"
  },
  "files": []
}
`
	assert.Equal(t, want, string(out))

	// The original manifest value is unchanged.
	assert.Equal(t, 2, project.Scripts().Len())
}

func TestWithScriptsAppendsField(t *testing.T) {
	m, err := Parse([]byte(`{"name":"x"}`))
	require.NoError(t, err)
	assert.False(t, m.HasScripts())

	s := NewScripts()
	s.Set("dev", "vite")
	out, err := m.WithScripts(s).Encode()
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"name\": \"x\",\n  \"scripts\": {\n    \"dev\": \"vite\"\n  }\n}", string(out))
}

func TestEncodeEmptyManifest(t *testing.T) {
	m, err := Parse([]byte("{}\n"))
	require.NoError(t, err)
	out, err := m.Encode()
	require.NoError(t, err)
	assert.Equal(t, "{}\n", string(out))
}

func TestParseNullScripts(t *testing.T) {
	m, err := Parse([]byte(`{"scripts": null}`))
	require.NoError(t, err)
	assert.False(t, m.HasScripts())
	assert.Equal(t, []string{"scripts"}, m.Fields())
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"not json", "name: x"},
		{"array", `["a"]`},
		{"string", `"pkg"`},
		{"truncated", `{"name": "x"`},
		{"trailing data", `{} {}`},
		{"scripts array", `{"scripts": ["a"]}`},
		{"script number", `{"scripts": {"dev": 1}}`},
		{"script object", `{"scripts": {"dev": {"cmd": "vite"}}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.Nil(t, m)
			assert.True(t, errors.IsManifestFormatError(err))
			assert.True(t, errors.IsRecoverable(err))
		})
	}
}

func TestMergeScriptsNonDestructive(t *testing.T) {
	names := rapid.SampledFrom([]string{"dev", "build", "lint", "test", "preview", "start"})
	commands := rapid.SampledFrom([]string{"", "vite", "vite build", "eslint .", "node server.js"})

	scriptsGen := rapid.Custom(func(t *rapid.T) *Scripts {
		s := NewScripts()
		n := rapid.IntRange(0, 6).Draw(t, "n")
		for i := 0; i < n; i++ {
			s.Set(names.Draw(t, "name"), commands.Draw(t, "command"))
		}
		return s
	})

	rapid.Check(t, func(t *rapid.T) {
		newScripts := scriptsGen.Draw(t, "new")
		oldScripts := scriptsGen.Draw(t, "old")

		merged, conflicts, added := MergeScripts(newScripts, oldScripts)

		for _, k := range oldScripts.Keys() {
			want, _ := oldScripts.Get(k)
			got, ok := merged.Get(k)
			if !ok || got != want {
				t.Fatalf("script %q changed from %q to %q", k, want, got)
			}
		}
		for _, c := range conflicts {
			got, _ := merged.Get(c.Key)
			if got != c.Current {
				t.Fatalf("conflict %q overwrote current value", c.Key)
			}
		}
		if merged.Len() != oldScripts.Len()+len(added) {
			t.Fatalf("merged has %d scripts, want %d", merged.Len(), oldScripts.Len()+len(added))
		}
		mergedKeys := merged.Keys()
		for i, k := range oldScripts.Keys() {
			if mergedKeys[i] != k {
				t.Fatalf("existing scripts were reordered: %v", mergedKeys)
			}
		}
	})
}

func scriptMap(s *Scripts) map[string]string {
	m := make(map[string]string, s.Len())
	for _, k := range s.Keys() {
		m[k], _ = s.Get(k)
	}
	return m
}
