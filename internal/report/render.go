package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Format selects a report renderer.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat validates a format name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(name)); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown report format %q (supported: text, json, yaml)", name)
	}
}

// Options tunes rendering.
type Options struct {
	// ShowDiff includes a diff for each changed file in text output.
	ShowDiff bool
	// DiffContext is the number of unchanged lines kept around changes.
	DiffContext int
}

// Render writes r to w in the requested format.
func Render(w io.Writer, r *Report, format Format, opts Options) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		_, err := io.WriteString(w, renderText(w, r, opts))
		return err
	}
}

type palette struct {
	title, ok, warn, fail, info, faint lipgloss.Style
}

func newPalette(w io.Writer) palette {
	renderer := lipgloss.NewRenderer(w)
	return palette{
		title: renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		ok:    renderer.NewStyle().Foreground(lipgloss.Color("46")),
		warn:  renderer.NewStyle().Foreground(lipgloss.Color("214")),
		fail:  renderer.NewStyle().Foreground(lipgloss.Color("196")),
		info:  renderer.NewStyle().Foreground(lipgloss.Color("39")),
		faint: renderer.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

func renderText(w io.Writer, r *Report, opts Options) string {
	p := newPalette(w)
	title := cases.Title(language.English)
	var b strings.Builder

	heading := "Update"
	if r.DryRun {
		heading = "Update (dry run)"
	}
	b.WriteString(p.title.Render(heading) + " " + p.faint.Render(r.RunID) + "\n")

	for _, f := range r.Files {
		style := p.ok
		switch f.Action {
		case ActionFailed:
			style = p.fail
		case ActionUnchanged:
			style = p.faint
		}
		line := fmt.Sprintf("  %-10s %s", title.String(string(f.Action)), f.Path)
		if f.Reason != "" {
			line += ": " + f.Reason
		}
		if f.Action.Counts() && f.Before != f.After {
			additions, deletions := DiffStat(f.Before, f.After)
			line += fmt.Sprintf(" +%d -%d", additions, deletions)
		}
		if f.Message != "" {
			line += " " + p.faint.Render("("+f.Message+")")
		}
		b.WriteString(style.Render(line) + "\n")

		if opts.ShowDiff && f.Action != ActionFailed {
			context := opts.DiffContext
			if context <= 0 {
				context = 3
			}
			if d := Diff(f.Path, f.Before, f.After, context); d != "" {
				b.WriteString(d)
			}
		}
	}

	for _, c := range r.Conflicts {
		b.WriteString(p.fail.Render(fmt.Sprintf("Conflict: scripts.%s differs from the template", c.Key)) + "\n")
		b.WriteString(p.info.Render("  template: "+c.Template) + "\n")
		b.WriteString(p.info.Render("  current:  "+c.Current) + "\n")
		b.WriteString(p.warn.Render("  keeping the current value") + "\n")
	}
	if len(r.AddedScripts) > 0 {
		b.WriteString(p.ok.Render("Added scripts: "+strings.Join(r.AddedScripts, ", ")) + "\n")
	}
	for _, path := range r.Deprecated {
		b.WriteString(p.warn.Render("Deprecated: "+path+" is no longer in the template") + "\n")
	}
	for _, warning := range r.Warnings {
		b.WriteString(p.warn.Render("Warning: "+warning) + "\n")
	}

	switch {
	case r.Updated == 0:
		b.WriteString(p.info.Render("No files needed updating") + "\n")
	case r.DryRun:
		b.WriteString(p.ok.Render(fmt.Sprintf("%d file(s) would be updated", r.Updated)) + "\n")
	default:
		b.WriteString(p.ok.Render(fmt.Sprintf("Updated %d file(s)", r.Updated)) + "\n")
	}
	return b.String()
}
