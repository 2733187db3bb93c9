package report

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff returns a line diff between before and after with `---`/`+++`
// headers naming path, or "" when the texts are equal. Unchanged runs
// longer than 2*context lines are collapsed.
func Diff(path, before, after string, context int) string {
	if before == after {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffMain(a, b, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("--- %s\n", path))
	builder.WriteString(fmt.Sprintf("+++ %s\n", path))

	for i, d := range diffs {
		lines := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			writeLines(&builder, "+", lines)
		case diffmatchpatch.DiffDelete:
			writeLines(&builder, "-", lines)
		default:
			head, tail := context, context
			if i == 0 {
				head = 0
			}
			if i == len(diffs)-1 {
				tail = 0
			}
			if len(lines) > head+tail {
				writeLines(&builder, " ", lines[:head])
				builder.WriteString(fmt.Sprintf("@@ %d unchanged lines @@\n", len(lines)-head-tail))
				writeLines(&builder, " ", lines[len(lines)-tail:])
				continue
			}
			writeLines(&builder, " ", lines)
		}
	}
	return builder.String()
}

// DiffStat counts added and deleted lines between before and after.
func DiffStat(before, after string) (additions, deletions int) {
	dmp := diffmatchpatch.New()
	a, b, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineArray)
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			additions += len(splitLines(d.Text))
		case diffmatchpatch.DiffDelete:
			deletions += len(splitLines(d.Text))
		}
	}
	return additions, deletions
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(text, "\n"), "\n")
}

func writeLines(b *strings.Builder, prefix string, lines []string) {
	for _, line := range lines {
		b.WriteString(prefix + line + "\n")
	}
}
