package services

import (
	"context"

	"github.com/pugsite/pugsite/internal/config"
	"github.com/pugsite/pugsite/internal/document"
	"github.com/pugsite/pugsite/internal/errors"
	"github.com/pugsite/pugsite/internal/logging"
	"github.com/pugsite/pugsite/internal/manifest"
	"github.com/pugsite/pugsite/internal/merge"
)

// ReconcileService runs the configuration and manifest merges on source
// text. It performs no I/O.
type ReconcileService struct {
	config *config.Config
	logger logging.Logger
}

// NewReconcileService creates a new reconcile service
func NewReconcileService(cfg *config.Config, logger logging.Logger) *ReconcileService {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &ReconcileService{
		config: cfg,
		logger: logger.WithComponent("reconcile"),
	}
}

// ConfigResult is a reconciled configuration document.
type ConfigResult struct {
	Merged     *document.Node
	Comments   document.CommentTable
	Deprecated merge.DeprecatedPathSet
	// Output is the emitted config.js source.
	Output string
}

// ReconcileConfig merges the user's config source oldSrc into the
// template's config source newSrc. Comments are taken from the template.
// A parse failure of either document aborts with no result.
func (s *ReconcileService) ReconcileConfig(ctx context.Context, oldSrc, newSrc string) (*ConfigResult, error) {
	op := logging.StartOperation(s.logger, "reconcile_config")

	newTree, err := document.Load(newSrc)
	if err != nil {
		op.EndWithError(ctx, err)
		return nil, errors.ReconcileError("LOAD_TEMPLATE", "template config could not be parsed", err)
	}
	oldTree, err := document.Load(oldSrc)
	if err != nil {
		op.EndWithError(ctx, err)
		return nil, errors.ReconcileError("LOAD_PROJECT", "project config could not be parsed", err)
	}

	result := merge.Reconcile(newTree, oldTree, s.config.MergeOptions())
	comments := document.ExtractComments(newSrc, s.config.ExtractOptions())

	opts := s.config.EmitOptions()
	opts.Comments = comments
	opts.Deprecated = result.Deprecated.Has
	out, err := document.Emit(result.Merged, opts)
	if err != nil {
		op.EndWithError(ctx, err)
		return nil, errors.ReconcileError("EMIT", "merged config could not be rendered", err)
	}

	for _, path := range result.Deprecated.Sorted() {
		s.logger.Debug(ctx, "Deprecated config field", "path", path)
	}
	op.End(ctx)

	return &ConfigResult{
		Merged:     result.Merged,
		Comments:   comments,
		Deprecated: result.Deprecated,
		Output:     out,
	}, nil
}

// ScriptsResult is a manifest whose scripts were merged.
type ScriptsResult struct {
	Manifest  *manifest.Manifest
	Conflicts []manifest.Conflict
	Added     []string
	// Output is the encoded package.json.
	Output []byte
}

// Changed reports whether the merge added any script.
func (r *ScriptsResult) Changed() bool {
	return len(r.Added) > 0
}

// ErrNoTemplateScripts is returned when the template manifest declares no scripts.
var ErrNoTemplateScripts = &errors.PugsiteError{
	Type:        errors.ErrorTypeManifest,
	Code:        errors.ErrCodeNoScripts,
	Message:     "template manifest has no scripts section",
	Recoverable: true,
}

// ReconcileScripts merges the template manifest's scripts into the
// project manifest. A project without scripts gains all template scripts.
func (s *ReconcileService) ReconcileScripts(ctx context.Context, oldData, newData []byte) (*ScriptsResult, error) {
	newManifest, err := manifest.Parse(newData)
	if err != nil {
		return nil, errors.ReconcileError("PARSE_TEMPLATE_MANIFEST", "template manifest is invalid", err)
	}
	oldManifest, err := manifest.Parse(oldData)
	if err != nil {
		return nil, errors.ReconcileError("PARSE_PROJECT_MANIFEST", "project manifest is invalid", err)
	}
	if !newManifest.HasScripts() {
		return nil, ErrNoTemplateScripts
	}

	merged, conflicts, added := manifest.MergeScripts(newManifest.Scripts(), oldManifest.Scripts())
	for _, c := range conflicts {
		s.logger.Debug(ctx, "Script conflict, keeping current value",
			"script", c.Key, "template", c.Template, "current", c.Current)
	}

	updated := oldManifest.WithScripts(merged)
	out, err := updated.Encode()
	if err != nil {
		return nil, errors.ReconcileError("ENCODE_MANIFEST", "merged manifest could not be encoded", err)
	}

	return &ScriptsResult{
		Manifest:  updated,
		Conflicts: conflicts,
		Added:     added,
		Output:    out,
	}, nil
}
