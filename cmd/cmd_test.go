package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pugsite/pugsite/internal/errors"
	"github.com/pugsite/pugsite/internal/logging"
)

const (
	tplConfig = `export const config = {
  // Page title
  title: "Template",
  theme: {
    color: "blue",
  },
};
`
	siteConfig = `export const config = {
  title: "Mine",
  theme: {
    color: "red",
    font: "serif",
  },
};
`
	tplPackage  = "{\n  \"name\": \"tpl\",\n  \"scripts\": {\n    \"dev\": \"vite\",\n    \"lint\": \"eslint .\"\n  }\n}\n"
	sitePackage = "{\n  \"name\": \"site\",\n  \"scripts\": {\n    \"dev\": \"vite --host\"\n  }\n}\n"
)

func setupFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range map[string]string{
		"/tpl/config.js":     tplConfig,
		"/tpl/package.json":  tplPackage,
		"/tpl/index.js":      "new\n",
		"/tpl/README.md":     "readme\n",
		"/site/config.js":    siteConfig,
		"/site/package.json": sitePackage,
	} {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}

	old := appFs
	appFs = fs
	t.Cleanup(func() { appFs = old })
	return fs
}

func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestMergeCommand(t *testing.T) {
	setupFs(t)

	stdout, stderr, err := executeCommand(t, "merge", "/site/config.js", "/tpl/config.js")
	require.NoError(t, err)

	assert.Equal(t, `export const config = {
  // Page title
  title: "Mine",
  theme: {
    color: "red",
  },
};
`, stdout)
	assert.Contains(t, stderr, "deprecated: theme.font")
}

func TestMergeCommand_OutputFile(t *testing.T) {
	fs := setupFs(t)

	stdout, _, err := executeCommand(t, "merge", "/site/config.js", "/tpl/config.js", "-o", "/out/config.js")
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := afero.ReadFile(fs, "/out/config.js")
	require.NoError(t, err)
	assert.Contains(t, string(data), `title: "Mine"`)
}

func TestMergeCommand_Errors(t *testing.T) {
	fs := setupFs(t)

	_, _, err := executeCommand(t, "merge", "/site/config.js")
	assert.Error(t, err)

	_, _, err = executeCommand(t, "merge", "/missing.js", "/tpl/config.js")
	assert.Error(t, err)

	require.NoError(t, afero.WriteFile(fs, "/bad.js", []byte("export const config = { a: b };"), 0o644))
	_, _, err = executeCommand(t, "merge", "/bad.js", "/tpl/config.js")
	assert.Error(t, err)
}

func TestScriptsCommand(t *testing.T) {
	setupFs(t)

	stdout, stderr, err := executeCommand(t, "scripts", "/site/package.json", "/tpl/package.json")
	require.NoError(t, err)

	assert.Equal(t, "{\n  \"name\": \"site\",\n  \"scripts\": {\n    \"dev\": \"vite --host\",\n    \"lint\": \"eslint .\"\n  }\n}\n", stdout)
	assert.Contains(t, stderr, "conflict: scripts.dev")
	assert.Contains(t, stderr, "added: scripts.lint")
}

func TestUpdateCommand(t *testing.T) {
	fs := setupFs(t)

	stdout, _, err := executeCommand(t, "update", "--template", "/tpl", "--dir", "/site", "--format", "json")
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &decoded))
	assert.Equal(t, float64(4), decoded["updated"])
	assert.Equal(t, []interface{}{"theme.font"}, decoded["deprecated"])

	data, err := afero.ReadFile(fs, "/site/index.js")
	require.NoError(t, err)
	assert.Equal(t, "new\n", string(data))
}

func TestUpdateCommand_DryRun(t *testing.T) {
	fs := setupFs(t)

	stdout, _, err := executeCommand(t, "update", "-t", "/tpl", "-d", "/site", "-n")
	require.NoError(t, err)

	assert.Contains(t, stdout, "dry run")
	assert.Contains(t, stdout, "--- config.js")
	assert.Contains(t, stdout, `-    font: "serif",`)

	data, err := afero.ReadFile(fs, "/site/config.js")
	require.NoError(t, err)
	assert.Equal(t, siteConfig, string(data))
}

func TestUpdateCommand_FailedFileExitsWithError(t *testing.T) {
	fs := setupFs(t)
	require.NoError(t, afero.WriteFile(fs, "/site/config.js", []byte("export const config = { ...base };"), 0o644))

	stdout, _, err := executeCommand(t, "update", "--template", "/tpl", "--dir", "/site")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 file(s) could not be updated")
	assert.Contains(t, stdout, "Failed")
}

func TestUpdateCommand_FlagValidation(t *testing.T) {
	setupFs(t)

	_, _, err := executeCommand(t, "update", "--dir", "/site")
	assert.Error(t, err, "--template is required")

	_, _, err = executeCommand(t, "update", "--template", "/tpl", "--dir", "/site", "--format", "xml")
	assert.Error(t, err)

	_, _, err = executeCommand(t, "update", "--template", "/nope", "--dir", "/site")
	assert.Error(t, err)
	assert.True(t, errors.HasErrorCode(err, errors.ErrCodeFileNotFound))

	_, _, err = executeCommand(t, "update", "--template", "/tpl", "--dir", "/tpl/")
	assert.Error(t, err)
	assert.True(t, errors.HasErrorCode(err, errors.ErrCodeInvalidPath))
}

func TestFormatFlagSuggestions(t *testing.T) {
	value, ok := newUpdateCmd().Flags().Lookup("format").Value.(*validatingValue)
	require.True(t, ok)

	err := value.validator("xml")
	require.Error(t, err)
	assert.Contains(t, errors.FormatErrorWithSuggestions(err), "• Use text, json or yaml")
	assert.NoError(t, value.validator("yaml"))
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, nil)
	assert.Empty(t, buf.String())

	printError(&buf, errors.NewValidationError(errors.ErrCodeInvalidPath, "same directory"))
	assert.Equal(t, "Error: [ERR_INVALID_PATH] same directory\n", buf.String())
}

func TestConfigFileErrors(t *testing.T) {
	setupFs(t)

	_, _, err := executeCommand(t, "--config", "/definitely/missing.yml", "version", "--short")
	require.Error(t, err)
	assert.True(t, errors.HasErrorCode(err, errors.ErrCodeConfigInvalid))
}

func TestKeepWatching(t *testing.T) {
	ctx := context.Background()
	logger := logging.NewNopLogger()

	assert.NoError(t, keepWatching(ctx, logger, nil))
	assert.NoError(t, keepWatching(ctx, logger, errors.NewManifestFormatError("bad scripts", nil)))

	fatal := errors.NewIOError("ERR_DATA_WRITE", "disk full", nil)
	assert.ErrorIs(t, keepWatching(ctx, logger, fatal), fatal)
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := executeCommand(t, "version", "--short")
	require.NoError(t, err)
	assert.NotEmpty(t, stdout)

	stdout, _, err = executeCommand(t, "version", "--format", "json")
	require.NoError(t, err)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &info))
	assert.Contains(t, info, "go_version")

	_, _, err = executeCommand(t, "version", "--format", "toml")
	assert.Error(t, err)
}

func TestLogLevelFlag(t *testing.T) {
	setupFs(t)

	_, _, err := executeCommand(t, "--log-level", "verbose", "merge", "/site/config.js", "/tpl/config.js")
	assert.Error(t, err)

	_, stderr, err := executeCommand(t, "--log-level", "debug", "merge", "/site/config.js", "/tpl/config.js")
	require.NoError(t, err)
	assert.Contains(t, stderr, "reconcile_config")
}
