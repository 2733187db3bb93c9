package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pugsite/pugsite/internal/document"
	"github.com/pugsite/pugsite/internal/errors"
	"github.com/pugsite/pugsite/internal/services"
)

func newMergeCmd() *cobra.Command {
	var flags *StandardFlags

	cmd := &cobra.Command{
		Use:   "merge OLD NEW",
		Short: "Reconcile a project config.js with a template config.js",
		Long: `Merge reads the project's config file OLD and the template's config file
NEW and prints the reconciled source. Deprecated field paths are listed on
stderr.

Examples:
  pugsite merge config.js ../pug-site/config.js
  pugsite merge config.js ../pug-site/config.js -o config.js`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd, args[0], args[1], flags.OutputFile)
		},
	}

	flags = AddStandardFlags(cmd, "output")
	return cmd
}

func runMerge(cmd *cobra.Command, oldPath, newPath, output string) error {
	oldSrc, err := readSource(oldPath)
	if err != nil {
		return err
	}
	newSrc, err := readSource(newPath)
	if err != nil {
		return err
	}

	svc := services.NewReconcileService(current.config, current.logger)
	result, err := svc.ReconcileConfig(cmd.Context(), oldSrc, newSrc)
	if err != nil {
		return err
	}

	for _, path := range result.Deprecated.Sorted() {
		fmt.Fprintf(cmd.ErrOrStderr(), "deprecated: %s\n", path)
	}
	return writeOutput(cmd.OutOrStdout(), output, []byte(result.Output))
}

func newScriptsCmd() *cobra.Command {
	var flags *StandardFlags

	cmd := &cobra.Command{
		Use:   "scripts OLD_PKG NEW_PKG",
		Short: "Merge template package.json scripts into a project package.json",
		Long: `Scripts adds the scripts of the template manifest NEW_PKG that the project
manifest OLD_PKG lacks and prints the resulting manifest. Scripts whose
commands differ keep the project's command and are listed on stderr.

Examples:
  pugsite scripts package.json ../pug-site/package.json
  pugsite scripts package.json ../pug-site/package.json -o package.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScripts(cmd, args[0], args[1], flags.OutputFile)
		},
	}

	flags = AddStandardFlags(cmd, "output")
	return cmd
}

func runScripts(cmd *cobra.Command, oldPath, newPath, output string) error {
	oldData, err := readFile(oldPath)
	if err != nil {
		return err
	}
	newData, err := readFile(newPath)
	if err != nil {
		return err
	}

	svc := services.NewReconcileService(current.config, current.logger)
	result, err := svc.ReconcileScripts(cmd.Context(), oldData, newData)
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	for _, c := range result.Conflicts {
		fmt.Fprintf(stderr, "conflict: scripts.%s\n  template: %s\n  current:  %s\n", c.Key, c.Template, c.Current)
	}
	for _, name := range result.Added {
		fmt.Fprintf(stderr, "added: scripts.%s\n", name)
	}
	return writeOutput(cmd.OutOrStdout(), output, result.Output)
}

func readFile(path string) ([]byte, error) {
	if err := ValidateFileExists(appFs, path); err != nil {
		return nil, errors.FileOperationError("read", path, err.Error(), nil)
	}
	data, err := afero.ReadFile(appFs, path)
	if err != nil {
		return nil, errors.FileOperationError("read", path, "cannot read file", err)
	}
	return data, nil
}

func readSource(path string) (string, error) {
	data, err := readFile(path)
	if err != nil {
		return "", err
	}
	src, err := document.Decode(data)
	if err != nil {
		return "", errors.FileOperationError("decode", path, "cannot decode file", err)
	}
	return src, nil
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := afero.WriteFile(appFs, path, data, 0o644); err != nil {
		return errors.FileOperationError("write", path, "cannot write file", err)
	}
	return nil
}
