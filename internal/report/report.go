package report

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/san-kum/gridiag/internal/config"
	"github.com/san-kum/gridiag/internal/diagnostic"
)

const separatorWidth = 60

type Options struct {
	Style        string
	WarningsOnly bool
	Theme        Theme
}

// OptionsFromConfig takes style and filter from the report section of cfg.
func OptionsFromConfig(cfg config.ReportConfig) Options {
	return Options{Style: cfg.Style, WarningsOnly: cfg.WarningsOnly, Theme: ThemeDefault}
}

// Summary counts the outcome of a run.
type Summary struct {
	Checks   int
	Warnings int
	Errors   int
}

func Summarize(checks []string, findings diagnostic.Findings, errs diagnostic.Errors) Summary {
	return Summary{Checks: len(checks), Warnings: len(findings), Errors: len(errs)}
}

// Render writes a report of one run. checks is the catalog the run used;
// it fixes the order of the report. Checks that appear only in findings or
// errors are appended in name order.
func Render(w io.Writer, title string, checks []string, findings diagnostic.Findings, errs diagnostic.Errors, opts Options) error {
	if opts.Style == config.StyleNone {
		return nil
	}
	if opts.Theme.Name == "" {
		opts.Theme = ThemeDefault
	}
	s := newStyles(w, opts.Theme)
	order := runOrder(checks, findings, errs)

	var b strings.Builder
	b.WriteString(s.header.Render("Diagnostic report: "+title) + "\n")
	for _, name := range order {
		err, failed := errs[name]
		payload, found := findings[name]
		switch {
		case failed:
			b.WriteString(s.failed.Render("✗") + " " + s.check.Render(name) + "\n")
			b.WriteString(s.detail.Render("check failed: "+err.Error()) + "\n")
		case found:
			lines := describe(name, payload)
			if opts.Style == config.StyleCompact {
				b.WriteString(s.warning.Render("!") + " " + s.check.Render(name) +
					" " + s.subtle.Render(fmt.Sprintf("(%d)", len(lines))) + "\n")
				continue
			}
			b.WriteString(s.warning.Render("!") + " " + s.check.Render(name) + "\n")
			for _, line := range lines {
				b.WriteString(s.detail.Render(line) + "\n")
			}
		case !opts.WarningsOnly:
			b.WriteString(s.passed.Render("✓") + " " + s.check.Render(name) + "\n")
		}
	}

	sum := Summarize(order, findings, errs)
	b.WriteString(s.separator(separatorWidth) + "\n")
	b.WriteString(s.subtle.Render(fmt.Sprintf("%d checks, %d warnings, %d errors", sum.Checks, sum.Warnings, sum.Errors)) + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func runOrder(checks []string, findings diagnostic.Findings, errs diagnostic.Errors) []string {
	order := slices.Clone(checks)
	var extra []string
	for _, name := range slices.Concat(slices.Collect(maps.Keys(findings)), slices.Collect(maps.Keys(errs))) {
		if !slices.Contains(order, name) && !slices.Contains(extra, name) {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	return append(order, extra...)
}
