package syntax

import (
	"context"
	"strings"

	"codeatlas/internal/logging"
)

// Dedent strips the longest common leading whitespace from every non-blank
// line of fragment.
func Dedent(fragment string) string {
	lines := strings.Split(fragment, "\n")
	margin := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := len(line) - len(strings.TrimLeft(line, " \t"))
		if margin < 0 || indent < margin {
			margin = indent
		}
	}
	if margin <= 0 {
		return fragment
	}
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = line[margin:]
	}
	return strings.Join(lines, "\n")
}

// Reindent prefixes every non-blank line of fragment with col spaces.
func Reindent(fragment string, col int) string {
	if col <= 0 {
		return fragment
	}
	prefix := strings.Repeat(" ", col)
	lines := strings.Split(fragment, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
			continue
		}
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}

// Replace splices fragment over the span of the symbol at path inside src.
//
// The fragment is validated standalone (after de-indenting), re-indented to
// the target's original column offset so a method edited inside a class does
// not need hand-indenting, spliced in by exact line range, and the resulting
// whole file is validated again. Replace never returns a partially spliced
// result: any failure leaves the caller with the original src.
func (e *Editor) Replace(ctx context.Context, src []byte, path []string, fragment string) ([]byte, error) {
	sym, err := e.Locate(ctx, src, path)
	if err != nil {
		return nil, err
	}

	dedented := Dedent(strings.TrimRight(fragment, "\n"))
	if err := e.Validate(ctx, []byte(dedented)); err != nil {
		return nil, err
	}
	replacement := Reindent(dedented, sym.Col)

	lines := strings.Split(string(src), "\n")
	var out []string
	out = append(out, lines[:sym.StartLine-1]...)
	out = append(out, strings.Split(replacement, "\n")...)
	out = append(out, lines[sym.EndLine:]...)
	next := []byte(strings.Join(out, "\n"))

	if err := e.Validate(ctx, next); err != nil {
		return nil, err
	}

	logging.SyntaxDebug("spliced %s %s: lines %d-%d replaced with %d lines",
		sym.Kind, sym.Name, sym.StartLine, sym.EndLine, strings.Count(replacement, "\n")+1)
	return next, nil
}
