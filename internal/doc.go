// Package internal contains the implementation packages for pugsite.
//
// # Package Organization
//
//   - document: config.js loading, comment extraction and emitting
//   - merge: deprecation detection and the template/project merge
//   - manifest: package.json parsing and script merging
//   - services: the reconcile pipeline and the filesystem update flow
//   - report: update reports rendered as text, JSON or YAML
//   - config: viper-backed settings with validation
//   - errors: structured error type shared by every package
//   - logging: slog-backed structured logging
//   - watcher: debounced template file watching
//   - notify: websocket push of update reports
//   - version: build information
//
// # Data Flow
//
// An update reads the template and project files through services, which
// loads both config documents with document, merges them with merge,
// re-emits the result with the template's comments, merges manifest scripts
// with manifest and records every outcome in a report. Watch mode repeats
// the update on template changes and publishes each report through notify.
//
// Loading and merging do no I/O and never mutate their inputs, so they can
// run concurrently on independent documents.
package internal
