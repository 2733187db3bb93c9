package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pugsite/pugsite/internal/errors"
	"github.com/pugsite/pugsite/internal/logging"
)

// Validate checks every setting and reports all problems at once.
func Validate(config *Config) error {
	var collection errors.ValidationErrorCollection

	validateReconcileConfig(&config.Reconcile, &collection)
	validateEmitConfig(&config.Emit, &collection)
	validateUpdateConfig(&config.Update, &collection)
	validateWatchConfig(&config.Watch, &collection)
	validateLogConfig(&config.Log, &collection)

	if collection.HasErrors() {
		return collection.ToPugsiteError()
	}
	return nil
}

func validateReconcileConfig(config *ReconcileConfig, collection *errors.ValidationErrorCollection) {
	name := config.ReservedField
	if name == "" || strings.ContainsAny(name, ".\n\r") {
		collection.AddField("reconcile.reserved_field", name,
			"must be a non-empty top-level field name without dots",
			"Use the name of the user-owned field, e.g. commonData")
	}
}

func validateEmitConfig(config *EmitConfig, collection *errors.ValidationErrorCollection) {
	marker := config.DeprecationMarker
	if !strings.HasPrefix(marker, "//") || strings.ContainsAny(marker, "\n\r") {
		collection.AddField("emit.deprecation_marker", marker,
			"must be a single-line comment starting with //",
			"Example: // Deprecated")
	}
	if config.InlineListMax < 1 {
		collection.AddField("emit.inline_list_max", config.InlineListMax,
			"must be at least 1",
			"Lists longer than this value are written one element per line")
	}
	if config.Indent < 1 || config.Indent > 8 {
		collection.AddField("emit.indent", config.Indent,
			"must be between 1 and 8 spaces")
	}
}

func validateUpdateConfig(config *UpdateConfig, collection *errors.ValidationErrorCollection) {
	if err := validatePath(config.ConfigFile); err != nil {
		collection.AddField("update.config_file", config.ConfigFile, err.Error())
	}
	if err := validatePath(config.ManifestFile); err != nil {
		collection.AddField("update.manifest_file", config.ManifestFile, err.Error())
	}
	for i, path := range config.CopyFiles {
		if err := validatePath(path); err != nil {
			collection.AddField(fmt.Sprintf("update.copy_files[%d]", i), path, err.Error())
		}
	}
}

func validateWatchConfig(config *WatchConfig, collection *errors.ValidationErrorCollection) {
	if config.Debounce < 0 {
		collection.AddField("watch.debounce", config.Debounce.String(), "must not be negative")
	}
	if config.Listen != "" && !strings.Contains(config.Listen, ":") {
		collection.AddField("watch.listen", config.Listen,
			"must be a host:port address",
			"Example: localhost:7070 or :7070")
	}
}

func validateLogConfig(config *LogConfig, collection *errors.ValidationErrorCollection) {
	if _, err := logging.ParseLevel(config.Level); err != nil {
		collection.AddField("log.level", config.Level, err.Error())
	}
	switch config.Format {
	case "text", "json":
	default:
		collection.AddField("log.format", config.Format, "must be text or json")
	}
}

// validatePath checks that a project file name is relative and stays inside
// the project directory.
func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty path")
	}

	cleanPath := filepath.Clean(path)
	if filepath.IsAbs(cleanPath) {
		return fmt.Errorf("path must be relative to the project: %s", path)
	}
	if cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path contains traversal: %s", path)
	}
	if strings.ContainsRune(path, 0) {
		return fmt.Errorf("path contains a NUL byte")
	}

	return nil
}
