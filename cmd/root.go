// Package cmd provides the pugsite command-line interface.
//
// Configuration System:
//
//	Settings are resolved with the following precedence:
//	1. Command-line flags (--config, --log-level, ...) - highest priority
//	2. PUGSITE_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (PUGSITE_EMIT_INDENT, ...), including
//	   variables loaded from a .env file in the working directory
//	4. Configuration file (.pugsite.yml) - lowest priority
//
// Environment Variables:
//
//	PUGSITE_CONFIG_FILE: Path to custom configuration file
//	PUGSITE_RECONCILE_RESERVED_FIELD: Top-level field owned by the project
//	PUGSITE_UPDATE_COPY_FILES: Comma-separated files copied verbatim
//	And the rest following the PUGSITE_<SECTION>_<OPTION> pattern
package cmd

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pugsite/pugsite/internal/config"
	"github.com/pugsite/pugsite/internal/errors"
	"github.com/pugsite/pugsite/internal/logging"
)

// appFs is the filesystem every command reads and writes through.
var appFs afero.Fs = afero.NewOsFs()

// app holds what PersistentPreRunE resolved for the running command.
type app struct {
	config *config.Config
	logger logging.Logger
}

var current = &app{}

// Execute runs the root command.
func Execute() error {
	root := newRootCmd()
	err := root.Execute()
	printError(root.ErrOrStderr(), err)
	return err
}

// printError writes err with any fix suggestions it carries.
func printError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, "Error: "+errors.FormatErrorWithSuggestions(err))
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "pugsite",
		Short: "Keep projects generated from the Pug site template up to date",
		Long: `pugsite updates a project created from the Pug site template to a newer
template checkout without losing the project's own settings.

Key Features:
  • Reconciles config.js: template structure and comments, project values
  • Flags fields the template dropped as deprecated
  • Merges package.json scripts and reports conflicts
  • Dry runs with a diff of every change
  • Watch mode with optional websocket notifications

Quick Start:
  pugsite update --template ../pug-site      Update the current project
  pugsite update --template ../pug-site -n   Preview the update
  pugsite merge old/config.js new/config.js  Reconcile two config files`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd, cfgFile)
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .pugsite.yml, can also use PUGSITE_CONFIG_FILE env var)")
	root.PersistentFlags().StringP("log-level", "l", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-format", "", "log format (text, json)")

	root.AddCommand(
		newUpdateCmd(),
		newMergeCmd(),
		newScriptsCmd(),
		newWatchCmd(),
		newVersionCmd(),
	)
	return root
}

// initConfig loads .env, the config file and PUGSITE_ variables into a
// fresh viper instance, then builds the logger.
func initConfig(cmd *cobra.Command, cfgFile string) error {
	if err := config.LoadDotEnv("."); err != nil {
		return err
	}

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("PUGSITE_CONFIG_FILE"); envConfigFile != "" {
		v.SetConfigFile(envConfigFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".pugsite")
	}

	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	config.SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || os.Getenv("PUGSITE_CONFIG_FILE") != "" || !stderrors.As(err, &notFound) {
			return errors.ConfigurationError("config", "cannot read config file: "+err.Error(), v.ConfigFileUsed())
		}
	}

	if err := bindFlag(v, cmd, "log.level", "log-level"); err != nil {
		return err
	}
	if err := bindFlag(v, cmd, "log.format", "log-format"); err != nil {
		return err
	}

	cfg, err := config.LoadFrom(v)
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Log.Format,
		Output: cmd.ErrOrStderr(),
	})
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug(cmd.Context(), "Using config file", "path", used)
	}

	current = &app{config: cfg, logger: logger}
	return nil
}

// bindFlag binds a persistent flag to key when the flag was set.
func bindFlag(v *viper.Viper, cmd *cobra.Command, key, name string) error {
	flag := cmd.Flags().Lookup(name)
	if flag == nil || !flag.Changed {
		return nil
	}
	return v.BindPFlag(key, flag)
}
