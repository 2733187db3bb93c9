package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pugsite/pugsite/internal/errors"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, "commonData", cfg.Reconcile.ReservedField)
	assert.False(t, cfg.Reconcile.KeepDeprecated)
	assert.False(t, cfg.Reconcile.CommentsAllDepths)
	assert.Equal(t, "// Deprecated", cfg.Emit.DeprecationMarker)
	assert.Equal(t, 3, cfg.Emit.InlineListMax)
	assert.Equal(t, 2, cfg.Emit.Indent)
	assert.Equal(t, "config.js", cfg.Update.ConfigFile)
	assert.Equal(t, "package.json", cfg.Update.ManifestFile)
	assert.Equal(t, []string{"index.js", "README.md"}, cfg.Update.CopyFiles)
	assert.Equal(t, 300*time.Millisecond, cfg.Watch.Debounce)
	assert.Empty(t, cfg.Watch.Listen)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)

	assert.Equal(t, "commonData", cfg.MergeOptions().ReservedField)
	assert.Equal(t, 2, cfg.EmitOptions().Indent)
	assert.False(t, cfg.ExtractOptions().AllDepths)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".pugsite.yml")
	content := `reconcile:
  reserved_field: siteData
  keep_deprecated: true
emit:
  deprecation_marker: "// Removed from template"
  indent: 4
update:
  copy_files:
    - index.js
    - src/layout.pug
watch:
  debounce: 1s
  listen: ":7070"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "siteData", cfg.Reconcile.ReservedField)
	assert.True(t, cfg.Reconcile.KeepDeprecated)
	assert.Equal(t, "// Removed from template", cfg.Emit.DeprecationMarker)
	assert.Equal(t, 4, cfg.Emit.Indent)
	assert.Equal(t, 3, cfg.Emit.InlineListMax)
	assert.Equal(t, []string{"index.js", "src/layout.pug"}, cfg.Update.CopyFiles)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, ":7070", cfg.Watch.Listen)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PUGSITE_RECONCILE_RESERVED_FIELD", "shared")
	t.Setenv("PUGSITE_EMIT_INLINE_LIST_MAX", "5")
	t.Setenv("PUGSITE_UPDATE_COPY_FILES", "index.js,LICENSE")

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, "shared", cfg.Reconcile.ReservedField)
	assert.Equal(t, 5, cfg.Emit.InlineListMax)
	assert.Equal(t, []string{"index.js", "LICENSE"}, cfg.Update.CopyFiles)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PUGSITE_TEST_DOTENV=from-file\n"), 0o644))
	t.Setenv("PUGSITE_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("PUGSITE_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(dir))
	assert.Equal(t, "from-file", os.Getenv("PUGSITE_TEST_DOTENV"))

	// A missing file is not an error.
	assert.NoError(t, LoadDotEnv(t.TempDir()))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty reserved field", func(c *Config) { c.Reconcile.ReservedField = "" }, "reconcile.reserved_field"},
		{"dotted reserved field", func(c *Config) { c.Reconcile.ReservedField = "a.b" }, "reconcile.reserved_field"},
		{"marker not a comment", func(c *Config) { c.Emit.DeprecationMarker = "DEPRECATED" }, "emit.deprecation_marker"},
		{"multi-line marker", func(c *Config) { c.Emit.DeprecationMarker = "// a\n// b" }, "emit.deprecation_marker"},
		{"inline max zero", func(c *Config) { c.Emit.InlineListMax = 0 }, "emit.inline_list_max"},
		{"indent too large", func(c *Config) { c.Emit.Indent = 9 }, "emit.indent"},
		{"absolute config file", func(c *Config) { c.Update.ConfigFile = "/etc/config.js" }, "update.config_file"},
		{"traversal manifest", func(c *Config) { c.Update.ManifestFile = "../package.json" }, "update.manifest_file"},
		{"empty copy file", func(c *Config) { c.Update.CopyFiles = []string{"index.js", ""} }, "update.copy_files[1]"},
		{"negative debounce", func(c *Config) { c.Watch.Debounce = -time.Second }, "watch.debounce"},
		{"listen without port", func(c *Config) { c.Watch.Listen = "localhost" }, "watch.listen"},
		{"unknown level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"unknown format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.True(t, errors.HasErrorType(err, errors.ErrorTypeValidation))

			var pe *errors.PugsiteError
			require.ErrorAs(t, err, &pe)
			assert.Contains(t, pe.Context, tt.field)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Emit.Indent = 0
	cfg.Log.Format = "xml"

	err := Validate(cfg)
	var pe *errors.PugsiteError
	require.ErrorAs(t, err, &pe)
	assert.Len(t, pe.Context, 2)
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, validatePath("config.js"))
	assert.NoError(t, validatePath("src/..hidden/file"))
	assert.NoError(t, validatePath("./docs/README.md"))
	assert.Error(t, validatePath(""))
	assert.Error(t, validatePath("../outside"))
	assert.Error(t, validatePath("a/../../outside"))
	assert.Error(t, validatePath("/abs"))
}
