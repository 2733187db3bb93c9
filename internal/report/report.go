// Package report collects the outcome of an update run and renders it for
// people (styled text) or tools (JSON, YAML).
package report

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pugsite/pugsite/internal/manifest"
)

// Action describes what happened to a project file.
type Action string

const (
	ActionCopied     Action = "copied"
	ActionCreated    Action = "created"
	ActionReconciled Action = "reconciled"
	ActionMerged     Action = "merged"
	ActionUnchanged  Action = "unchanged"
	ActionFailed     Action = "failed"
)

// Counts reports whether the action changed the file on disk.
func (a Action) Counts() bool {
	switch a {
	case ActionCopied, ActionCreated, ActionReconciled, ActionMerged:
		return true
	}
	return false
}

// Failure reasons recorded on failed file changes.
const (
	ReasonParse    = "parse error"
	ReasonManifest = "invalid manifest"
)

// FileChange is the outcome for one project file.
type FileChange struct {
	Path    string `json:"path" yaml:"path"`
	Action  Action `json:"action" yaml:"action"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
	// Reason classifies a failure, e.g. ReasonParse.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// Before and After hold file contents for diff previews.
	Before string `json:"-" yaml:"-"`
	After  string `json:"-" yaml:"-"`
}

// Report is the result of one update run.
type Report struct {
	RunID        string              `json:"run_id" yaml:"run_id"`
	TemplateDir  string              `json:"template_dir" yaml:"template_dir"`
	ProjectDir   string              `json:"project_dir" yaml:"project_dir"`
	DryRun       bool                `json:"dry_run" yaml:"dry_run"`
	StartedAt    time.Time           `json:"started_at" yaml:"started_at"`
	Duration     time.Duration       `json:"duration_ns" yaml:"duration"`
	Files        []FileChange        `json:"files" yaml:"files"`
	Warnings     []string            `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Deprecated   []string            `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Conflicts    []manifest.Conflict `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	AddedScripts []string            `json:"added_scripts,omitempty" yaml:"added_scripts,omitempty"`
	Updated      int                 `json:"updated" yaml:"updated"`
}

// New starts a report with a fresh run ID.
func New(templateDir, projectDir string, dryRun bool) *Report {
	return &Report{
		RunID:       uuid.NewString(),
		TemplateDir: templateDir,
		ProjectDir:  projectDir,
		DryRun:      dryRun,
		StartedAt:   time.Now(),
	}
}

// Add records a file outcome and counts it when it changed the file.
func (r *Report) Add(change FileChange) {
	r.Files = append(r.Files, change)
	if change.Action.Counts() {
		r.Updated++
	}
}

// Warn records a non-fatal problem.
func (r *Report) Warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Finish stamps the run duration.
func (r *Report) Finish() {
	r.Duration = time.Since(r.StartedAt)
}

// Failed reports whether any file step failed.
func (r *Report) Failed() bool {
	for _, f := range r.Files {
		if f.Action == ActionFailed {
			return true
		}
	}
	return false
}
