package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"bindsig/internal/core/app"
	"bindsig/internal/data/history"
	"bindsig/internal/engine/diag"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	caretStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)

	kindStyle = lipgloss.NewStyle().Width(8)
)

const resultIndent = "    "

// renderReport writes one line per declaration. Failures get the text and a
// caret under the offending rune.
func renderReport(w io.Writer, report *app.Report, canonical bool) {
	fmt.Fprintln(w, titleStyle.Render(report.Source))
	for _, res := range report.Results {
		location := kindStyle.Render(string(res.Kind))
		if res.Line > 0 {
			location = fmt.Sprintf("%4d %s", res.Line, location)
		}
		if res.Diagnostic.Success {
			line := fmt.Sprintf("%s %s %s", successStyle.Render("ok  "), location, res.Text)
			if canonical {
				line += statusStyle.Render("  => " + res.Canonical())
			}
			fmt.Fprintln(w, line)
			continue
		}
		fmt.Fprintf(w, "%s %s %s\n", errorStyle.Render("FAIL"), location, res.Text)
		pad := strings.Repeat(" ", lipgloss.Width(fmt.Sprintf("FAIL %s ", location)))
		fmt.Fprintf(w, "%s%s\n", pad, caretLine(res.Text, res.Diagnostic.Index))
		fmt.Fprintf(w, "%s%s\n", pad, errorStyle.Render(fmt.Sprintf("%s (index %d)", res.Diagnostic.Message, res.Diagnostic.Index)))
	}
	fmt.Fprintln(w, summaryLine(len(report.Results), report.Failures()))
}

// caretLine places a caret under rune index of text, accounting for wide
// runes.
func caretLine(text string, index int) string {
	runes := []rune(text)
	if index < 0 {
		index = 0
	}
	if index > len(runes) {
		index = len(runes)
	}
	var pad strings.Builder
	for _, r := range runes[:index] {
		if r == '\t' {
			pad.WriteRune('\t')
			continue
		}
		pad.WriteString(strings.Repeat(" ", lipgloss.Width(string(r))))
	}
	return pad.String() + caretStyle.Render("^")
}

func summaryLine(total, failures int) string {
	if failures == 0 {
		return successStyle.Render(fmt.Sprintf("%d declarations, all valid", total))
	}
	return errorStyle.Render(fmt.Sprintf("%d declarations, %d invalid", total, failures))
}

func renderHistory(w io.Writer, runs []history.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, statusStyle.Render("no recorded runs"))
		return
	}
	fmt.Fprintln(w, titleStyle.Render("Recorded runs"))
	for _, run := range runs {
		status := successStyle.Render("ok  ")
		if run.Failures > 0 {
			status = errorStyle.Render("FAIL")
		}
		fmt.Fprintf(w, "%s %s  %s  %d/%d invalid  %s\n",
			status,
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			run.Failures,
			run.Declarations,
			run.Source,
		)
	}
	s := history.Summarize(runs)
	fmt.Fprintln(w, statusStyle.Render(fmt.Sprintf("%d runs, %d declarations, %.1f%% invalid", s.Runs, s.Declarations, s.FailureRate)))
}

func renderRunResults(w io.Writer, runID string, results []history.Result) {
	report := &app.Report{RunID: runID, Source: "run " + runID}
	for _, r := range results {
		report.Results = append(report.Results, app.Result{
			Declaration: app.Declaration{Line: r.Line, Kind: app.Kind(r.Kind), Text: r.Text},
			Diagnostic:  historyDiagnostic(r),
		})
	}
	renderReport(w, report, false)
}

func historyDiagnostic(r history.Result) diag.Diagnostic {
	if r.Success {
		return diag.OK()
	}
	return diag.Fail(r.Message, r.Index)
}
