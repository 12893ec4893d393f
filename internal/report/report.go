// Package report prints human-readable run summaries to the console.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/starford/ansuz/internal/checksum"
	"github.com/starford/ansuz/internal/compliance"
	"github.com/starford/ansuz/internal/models"
	"github.com/starford/ansuz/internal/normalizer"
)

const rule = "=================================================="

var (
	colorGreen  = lipgloss.Color("#9ccfd8")
	colorRed    = lipgloss.Color("#eb6f92")
	colorYellow = lipgloss.Color("#f1ca93")
	colorMuted  = lipgloss.Color("#908caa")
)

// Printer writes styled report lines. Styles degrade to plain text when w
// is not a terminal.
type Printer struct {
	w    io.Writer
	ok   lipgloss.Style
	warn lipgloss.Style
	fail lipgloss.Style
	dim  lipgloss.Style
	bold lipgloss.Style
}

// New creates a Printer writing to w.
func New(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:    w,
		ok:   r.NewStyle().Foreground(colorGreen).Bold(true),
		warn: r.NewStyle().Foreground(colorYellow),
		fail: r.NewStyle().Foreground(colorRed).Bold(true),
		dim:  r.NewStyle().Foreground(colorMuted),
		bold: r.NewStyle().Bold(true),
	}
}

// Normalize prints the outcome of a normalization run.
func (p *Printer) Normalize(root string, res *normalizer.Result) {
	s := res.Summary
	title := "Updating document headers"
	if s.DryRun {
		title += " (dry run)"
	}
	p.line(p.bold.Render(title))
	p.line(p.dim.Render("root: " + root))
	p.line(rule)
	for _, o := range res.Outcomes {
		p.Outcome(o)
	}
	p.line(rule)
	p.line(fmt.Sprintf("processed %d documents: %d updated, %d unchanged, %d skipped",
		s.Processed, s.Updated, s.Unchanged, s.Skipped))
	p.line(p.ok.Render(fmt.Sprintf("succeeded: %d", s.Succeeded())))
	if s.Failed > 0 {
		p.line(p.fail.Render(fmt.Sprintf("failed: %d", s.Failed)))
	} else {
		p.line(fmt.Sprintf("failed: %d", s.Failed))
	}
}

// Outcome prints a single processed document. Unchanged and skipped
// documents are not printed.
func (p *Printer) Outcome(o models.Outcome) {
	switch o.Status {
	case models.StatusUpdated:
		line := p.ok.Render("updated") + "   " + o.Path
		if o.ChecksumBefore != "" && o.ChecksumAfter != o.ChecksumBefore {
			line += p.dim.Render(" " + checksum.Short(o.ChecksumBefore) + " -> " + checksum.Short(o.ChecksumAfter))
		}
		p.line(line)
	case models.StatusFailed:
		p.line(p.fail.Render("failed") + "    " + o.Path + p.dim.Render(" ("+o.Error+")"))
	}
}

// Compliance prints the issue count followed by one line per issue.
func (p *Printer) Compliance(rep *compliance.Report) {
	p.line(p.bold.Render("Checking documentation structure"))
	p.line(p.dim.Render("root: " + rep.Root))
	p.line(rule)
	if rep.OK() {
		p.line(p.ok.Render("structure check passed: all documents conform"))
		return
	}
	p.line(p.fail.Render(fmt.Sprintf("found %d issues:", len(rep.Issues))))
	for _, i := range rep.Issues {
		style := p.warn
		if i.Kind == compliance.KindDirectoryMissing || i.Kind == compliance.KindFileUnreadable {
			style = p.fail
		}
		p.line("   " + style.Render(string(i.Kind)) + " " + i.Message)
	}
}

// Runs prints recorded runs, newest first.
func (p *Printer) Runs(runs []models.Run) {
	if len(runs) == 0 {
		p.line(p.dim.Render("no recorded runs"))
		return
	}
	for _, r := range runs {
		finished := "running"
		if !r.FinishedAt.IsZero() {
			finished = r.FinishedAt.Format("2006-01-02 15:04:05")
		}
		p.line(fmt.Sprintf("#%-4d %s  %-8s %s", r.ID, finished, r.Mode, r.Root))
		p.line(p.dim.Render(fmt.Sprintf("      processed %d, updated %d, unchanged %d, skipped %d, failed %d",
			r.Summary.Processed, r.Summary.Updated, r.Summary.Unchanged, r.Summary.Skipped, r.Summary.Failed)))
	}
}

func (p *Printer) line(s string) {
	fmt.Fprintln(p.w, strings.TrimRight(s, " "))
}
