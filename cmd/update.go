package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pugsite/pugsite/internal/errors"
	"github.com/pugsite/pugsite/internal/report"
	"github.com/pugsite/pugsite/internal/services"
)

func newUpdateCmd() *cobra.Command {
	var flags *StandardFlags

	cmd := &cobra.Command{
		Use:     "update",
		Aliases: []string{"u"},
		Short:   "Update a project from a newer template checkout",
		Long: `Update brings a project generated from the site template up to date:

  1. Files listed in update.copy_files are copied from the template.
  2. config.js is reconciled: the template decides structure and comments,
     the project keeps its values, fields the template dropped are reported.
  3. package.json gains the template's new scripts. Scripts the project
     changed are kept and reported as conflicts.

A config or manifest that cannot be parsed is left untouched and the
command exits with an error after the other files were processed.

Examples:
  pugsite update --template ../pug-site
  pugsite update --template ../pug-site --dir ./blog --dry-run
  pugsite update --template ../pug-site --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpdate(cmd, flags)
		},
	}

	flags = AddStandardFlags(cmd, "dirs", "dry-run", "format")
	return cmd
}

func runUpdate(cmd *cobra.Command, flags *StandardFlags) error {
	if err := flags.ValidateDirs(appFs); err != nil {
		return errors.CLIError("update", err.Error(), err)
	}

	svc := services.NewUpdateService(current.config, appFs, current.logger)
	rep, err := svc.Update(cmd.Context(), services.UpdateOptions{
		TemplateDir: flags.TemplateDir,
		ProjectDir:  flags.ProjectDir,
		DryRun:      flags.DryRun,
	})
	if err != nil {
		return err
	}

	if err := report.Render(cmd.OutOrStdout(), rep, flags.ReportFormat(), report.Options{ShowDiff: flags.DryRun}); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}

	if rep.Failed() {
		failed := 0
		for _, f := range rep.Files {
			if f.Action == report.ActionFailed {
				failed++
			}
		}
		return errors.CLIError("update", fmt.Sprintf("%d file(s) could not be updated", failed), nil)
	}
	return nil
}
