package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/pugsite/pugsite/internal/errors"
	"github.com/pugsite/pugsite/internal/report"
)

// StandardFlags provides consistent flag definitions across commands
type StandardFlags struct {
	// Directory flags
	TemplateDir string
	ProjectDir  string

	// Run flags
	DryRun bool

	// Output flags
	Format     string
	OutputFile string
}

// AddStandardFlags adds the named flag groups to a command
func AddStandardFlags(cmd *cobra.Command, flagTypes ...string) *StandardFlags {
	flags := &StandardFlags{}

	for _, flagType := range flagTypes {
		switch flagType {
		case "dirs":
			addDirFlags(cmd, flags)
		case "dry-run":
			cmd.Flags().BoolVarP(&flags.DryRun, "dry-run", "n", false, "Show what would change without writing")
		case "format":
			addFormatFlag(cmd, flags)
		case "output":
			cmd.Flags().StringVarP(&flags.OutputFile, "output", "o", "", "Write the result to a file instead of stdout")
		}
	}

	return flags
}

func addDirFlags(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().StringVarP(&flags.TemplateDir, "template", "t", "", "Directory holding the newer template")
	cmd.Flags().StringVarP(&flags.ProjectDir, "dir", "d", ".", "Project directory to update")
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagDirname("template")
	_ = cmd.MarkFlagDirname("dir")
}

func addFormatFlag(cmd *cobra.Command, flags *StandardFlags) {
	cmd.Flags().StringVarP(&flags.Format, "format", "f", string(report.FormatText), "Report format (text|json|yaml)")
	AddFlagValidation(cmd, "format", func(value string) error {
		if _, err := report.ParseFormat(value); err != nil {
			return errors.ValidationFailure("format", err.Error(), value, "Use text, json or yaml")
		}
		return nil
	})
}

// ReportFormat returns the parsed --format value.
func (f *StandardFlags) ReportFormat() report.Format {
	format, err := report.ParseFormat(f.Format)
	if err != nil {
		return report.FormatText
	}
	return format
}

// ValidateDirs checks that the template and project directories exist
// and differ.
func (f *StandardFlags) ValidateDirs(fs afero.Fs) error {
	for _, dir := range []struct{ flag, path string }{
		{"--template", f.TemplateDir},
		{"--dir", f.ProjectDir},
	} {
		if err := ValidateDirExists(fs, dir.path); err != nil {
			return fmt.Errorf("%s: %w", dir.flag, err)
		}
	}
	if filepath.Clean(f.TemplateDir) == filepath.Clean(f.ProjectDir) {
		return errors.NewValidationError(errors.ErrCodeInvalidPath, "--template and --dir must be different directories").
			WithContext("path", filepath.Clean(f.ProjectDir))
	}
	return nil
}

// AddFlagValidation validates a flag's value when it is set
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{
		Value:     flag.Value,
		validator: validator,
	}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.Value.Set(val)
}

// ValidateDirExists reports an error unless path is an existing directory
func ValidateDirExists(fs afero.Fs, path string) error {
	if path == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidPath, "directory must not be empty")
	}
	ok, err := afero.DirExists(fs, path)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewValidationError(errors.ErrCodeFileNotFound, "directory does not exist: "+path).
			WithContext("path", path)
	}
	return nil
}

// ValidateFileExists reports an error unless path is an existing file
func ValidateFileExists(fs afero.Fs, path string) error {
	ok, err := afero.Exists(fs, path)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("file does not exist: %s", path)
	}
	return nil
}
