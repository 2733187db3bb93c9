// Package config provides configuration management for pugsite using Viper
// for loading from files, environment variables, and command-line flags.
//
// Settings come from .pugsite.yml (or the file named by --config or
// PUGSITE_CONFIG_FILE), PUGSITE_ environment variables and flags. A .env
// file in the project directory is read first so that its variables take
// part in the environment lookup.
package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pugsite/pugsite/internal/document"
	"github.com/pugsite/pugsite/internal/errors"
	"github.com/pugsite/pugsite/internal/merge"
)

// EnvPrefix prefixes every environment variable read by pugsite.
const EnvPrefix = "PUGSITE"

type Config struct {
	Reconcile ReconcileConfig `mapstructure:"reconcile" yaml:"reconcile"`
	Emit      EmitConfig      `mapstructure:"emit" yaml:"emit"`
	Update    UpdateConfig    `mapstructure:"update" yaml:"update"`
	Watch     WatchConfig     `mapstructure:"watch" yaml:"watch"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
}

type ReconcileConfig struct {
	ReservedField     string `mapstructure:"reserved_field" yaml:"reserved_field"`
	KeepDeprecated    bool   `mapstructure:"keep_deprecated" yaml:"keep_deprecated"`
	CommentsAllDepths bool   `mapstructure:"comments_all_depths" yaml:"comments_all_depths"`
}

type EmitConfig struct {
	DeprecationMarker string `mapstructure:"deprecation_marker" yaml:"deprecation_marker"`
	InlineListMax     int    `mapstructure:"inline_list_max" yaml:"inline_list_max"`
	Indent            int    `mapstructure:"indent" yaml:"indent"`
}

type UpdateConfig struct {
	ConfigFile   string   `mapstructure:"config_file" yaml:"config_file"`
	ManifestFile string   `mapstructure:"manifest_file" yaml:"manifest_file"`
	CopyFiles    []string `mapstructure:"copy_files" yaml:"copy_files"`
}

type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
	Listen   string        `mapstructure:"listen" yaml:"listen"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SetDefaults registers the default value of every key on v. Registering
// the keys also lets AutomaticEnv resolve their environment variables.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("reconcile.reserved_field", merge.DefaultReservedField)
	v.SetDefault("reconcile.keep_deprecated", false)
	v.SetDefault("reconcile.comments_all_depths", false)

	v.SetDefault("emit.deprecation_marker", document.DefaultDeprecationMarker)
	v.SetDefault("emit.inline_list_max", document.DefaultInlineListMax)
	v.SetDefault("emit.indent", document.DefaultIndent)

	v.SetDefault("update.config_file", "config.js")
	v.SetDefault("update.manifest_file", "package.json")
	v.SetDefault("update.copy_files", []string{"index.js", "README.md"})

	v.SetDefault("watch.debounce", 300*time.Millisecond)
	v.SetDefault("watch.listen", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, _ := LoadFrom(v)
	return cfg
}

// LoadFrom decodes and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.WrapConfig(err, errors.ErrCodeConfigInvalid, "failed to decode configuration")
	}

	if err := Validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadDotEnv reads dir/.env into the process environment when the file
// exists. Variables that are already set keep their values.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.FileOperationError("stat", path, "cannot read .env file", err)
	}
	if err := godotenv.Load(path); err != nil {
		return errors.FileOperationError("load", path, "invalid .env file", err)
	}
	return nil
}

// MergeOptions returns the options for the merge engine.
func (c *Config) MergeOptions() merge.Options {
	return merge.Options{
		ReservedField:  c.Reconcile.ReservedField,
		KeepDeprecated: c.Reconcile.KeepDeprecated,
	}
}

// ExtractOptions returns the options for comment extraction.
func (c *Config) ExtractOptions() document.ExtractOptions {
	return document.ExtractOptions{AllDepths: c.Reconcile.CommentsAllDepths}
}

// EmitOptions returns emitter options without the per-run comment table and
// deprecation predicate.
func (c *Config) EmitOptions() document.EmitOptions {
	return document.EmitOptions{
		Marker:        c.Emit.DeprecationMarker,
		InlineListMax: c.Emit.InlineListMax,
		Indent:        c.Emit.Indent,
	}
}
