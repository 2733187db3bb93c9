package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/pugsite/pugsite/internal/config"
	"github.com/pugsite/pugsite/internal/document"
	"github.com/pugsite/pugsite/internal/errors"
	"github.com/pugsite/pugsite/internal/logging"
	"github.com/pugsite/pugsite/internal/report"
)

// UpdateService brings a project generated from the site template up to
// date with a newer checkout of that template.
type UpdateService struct {
	config     *config.Config
	fs         afero.Fs
	logger     logging.Logger
	reconciler *ReconcileService
}

// NewUpdateService creates a new update service working on fs
func NewUpdateService(cfg *config.Config, fs afero.Fs, logger logging.Logger) *UpdateService {
	if cfg == nil {
		cfg = config.Default()
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &UpdateService{
		config:     cfg,
		fs:         fs,
		logger:     logger.WithComponent("update"),
		reconciler: NewReconcileService(cfg, logger),
	}
}

// UpdateOptions contains options for the update process
type UpdateOptions struct {
	// TemplateDir is a checkout of the newer template.
	TemplateDir string
	// ProjectDir is the project to update.
	ProjectDir string
	// DryRun computes every change without writing.
	DryRun bool
}

// Update copies template-owned files, reconciles the config document and
// merges manifest scripts. A config or manifest that cannot be parsed is
// recorded as a failed file and the remaining steps still run. Errors are
// returned only for unusable directories, I/O failures and cancellation.
func (s *UpdateService) Update(ctx context.Context, opts UpdateOptions) (*report.Report, error) {
	if err := s.checkDir(opts.TemplateDir, "template"); err != nil {
		return nil, err
	}
	if err := s.checkDir(opts.ProjectDir, "project"); err != nil {
		return nil, err
	}

	rep := report.New(opts.TemplateDir, opts.ProjectDir, opts.DryRun)
	logger := s.logger.With("run_id", rep.RunID)
	op := logging.StartOperation(logger, "update")

	steps := []func(context.Context, UpdateOptions, *report.Report) error{
		s.copyFiles,
		s.updateConfig,
		s.updateManifest,
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			op.EndWithError(ctx, err)
			return nil, errors.UpdateError("CANCELLED", "update interrupted", err)
		}
		if err := step(ctx, opts, rep); err != nil {
			op.EndWithError(ctx, err)
			return nil, err
		}
	}

	rep.Finish()
	op.End(ctx)
	logger.Info(ctx, "Update finished", "updated", rep.Updated, "dry_run", opts.DryRun)
	return rep, nil
}

func (s *UpdateService) checkDir(dir, role string) error {
	info, err := s.fs.Stat(dir)
	if err != nil {
		return errors.FileOperationError("stat", dir, role+" directory is not accessible", err)
	}
	if !info.IsDir() {
		return errors.FileOperationError("stat", dir, role+" path is not a directory", nil)
	}
	return nil
}

func (s *UpdateService) copyFiles(ctx context.Context, opts UpdateOptions, rep *report.Report) error {
	for _, name := range s.config.Update.CopyFiles {
		src := filepath.Join(opts.TemplateDir, name)
		dst := filepath.Join(opts.ProjectDir, name)

		data, ok, err := s.read(src)
		if err != nil {
			return err
		}
		if !ok {
			rep.Warn("template has no %s", name)
			continue
		}

		before, existed, err := s.read(dst)
		if err != nil {
			return err
		}
		if existed && bytes.Equal(before, data) {
			rep.Add(report.FileChange{Path: name, Action: report.ActionUnchanged})
			continue
		}

		action := report.ActionCopied
		if !existed {
			action = report.ActionCreated
		}
		if err := s.write(dst, data, opts.DryRun); err != nil {
			return err
		}
		s.logger.Debug(ctx, "Copied template file", "file", name)
		rep.Add(report.FileChange{Path: name, Action: action, Before: string(before), After: string(data)})
	}
	return nil
}

func (s *UpdateService) updateConfig(ctx context.Context, opts UpdateOptions, rep *report.Report) error {
	name := s.config.Update.ConfigFile
	src := filepath.Join(opts.TemplateDir, name)
	dst := filepath.Join(opts.ProjectDir, name)

	newData, hasTemplate, err := s.read(src)
	if err != nil {
		return err
	}
	if !hasTemplate {
		rep.Warn("template has no %s", name)
		return nil
	}

	oldData, hasProject, err := s.read(dst)
	if err != nil {
		return err
	}
	if !hasProject {
		if err := s.write(dst, newData, opts.DryRun); err != nil {
			return err
		}
		rep.Add(report.FileChange{Path: name, Action: report.ActionCreated, After: string(newData)})
		return nil
	}

	newSrc, err := document.Decode(newData)
	if err != nil {
		return errors.FileOperationError("decode", src, "cannot decode template config", err)
	}
	oldSrc, err := document.Decode(oldData)
	if err != nil {
		return errors.FileOperationError("decode", dst, "cannot decode project config", err)
	}

	result, err := s.reconciler.ReconcileConfig(ctx, oldSrc, newSrc)
	if err != nil {
		s.logger.Error(ctx, err, "Config reconciliation failed, leaving file untouched", "file", name)
		rep.Add(failedChange(name, err))
		return nil
	}

	rep.Deprecated = append(rep.Deprecated, result.Deprecated.Sorted()...)
	if result.Output == oldSrc {
		rep.Add(report.FileChange{Path: name, Action: report.ActionUnchanged})
		return nil
	}
	if err := s.write(dst, []byte(result.Output), opts.DryRun); err != nil {
		return err
	}
	rep.Add(report.FileChange{
		Path:   name,
		Action: report.ActionReconciled,
		Before: oldSrc,
		After:  result.Output,
	})
	return nil
}

func (s *UpdateService) updateManifest(ctx context.Context, opts UpdateOptions, rep *report.Report) error {
	name := s.config.Update.ManifestFile
	src := filepath.Join(opts.TemplateDir, name)
	dst := filepath.Join(opts.ProjectDir, name)

	newData, hasTemplate, err := s.read(src)
	if err != nil {
		return err
	}
	if !hasTemplate {
		rep.Warn("template has no %s", name)
		return nil
	}
	oldData, hasProject, err := s.read(dst)
	if err != nil {
		return err
	}
	if !hasProject {
		rep.Warn("project has no %s", name)
		return nil
	}

	result, err := s.reconciler.ReconcileScripts(ctx, oldData, newData)
	switch {
	case errors.HasErrorCode(err, errors.ErrCodeNoScripts):
		rep.Warn("template %s has no scripts section", name)
		return nil
	case err != nil:
		s.logger.Error(ctx, err, "Manifest merge failed, leaving file untouched", "file", name)
		rep.Add(failedChange(name, err))
		return nil
	}

	rep.Conflicts = append(rep.Conflicts, result.Conflicts...)
	rep.AddedScripts = append(rep.AddedScripts, result.Added...)
	if len(result.Conflicts) > 0 {
		rep.Warn("some scripts were not updated because of conflicts")
	}
	if !result.Changed() {
		rep.Add(report.FileChange{Path: name, Action: report.ActionUnchanged})
		return nil
	}
	if err := s.write(dst, result.Output, opts.DryRun); err != nil {
		return err
	}
	rep.Add(report.FileChange{
		Path:   name,
		Action: report.ActionMerged,
		Before: string(oldData),
		After:  string(result.Output),
	})
	return nil
}

// failedChange records a file left untouched because err stopped its merge.
func failedChange(name string, err error) report.FileChange {
	change := report.FileChange{Path: name, Action: report.ActionFailed, Message: err.Error()}
	switch {
	case errors.IsParseError(err):
		change.Reason = report.ReasonParse
	case errors.IsManifestFormatError(err):
		change.Reason = report.ReasonManifest
	}
	return change
}

// read returns the file content and whether the file exists.
func (s *UpdateService) read(path string) ([]byte, bool, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.FileOperationError("read", path, "cannot read file", err)
	}
	return data, true, nil
}

func (s *UpdateService) write(path string, data []byte, dryRun bool) error {
	if dryRun {
		return nil
	}
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.FileOperationError("mkdir", filepath.Dir(path), "cannot create directory", err)
	}
	mode := os.FileMode(0o644)
	if info, err := s.fs.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	if err := afero.WriteFile(s.fs, path, data, mode); err != nil {
		return errors.FileOperationError("write", path, "cannot write file", err)
	}
	return nil
}
