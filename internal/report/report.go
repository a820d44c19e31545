// Package report renders one run's result as a human-readable text
// report. It only produces text; the caller decides where it goes.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"engagewatch/internal/model"
	"engagewatch/internal/source"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	sectionStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	actorStyle   = lipgloss.NewStyle().Bold(true)
	noteStyle    = lipgloss.NewStyle().Italic(true)
)

const rule = "============================================================"

// Render writes the report for one run: new (already deduplicated)
// notifications grouped by kind, with per-kind counts, plus a partial
// marker when the batch was incomplete.
//
// An empty batch still produces a report; the absence of news is itself
// a reportable state.
func Render(
	w io.Writer,
	src model.SourceType,
	fresh []model.Notification,
	result *source.FetchResult,
) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, headerStyle.Render(
		fmt.Sprintf("Engagement Monitor Results (%s)", src),
	))
	fmt.Fprintln(w, rule)

	if len(fresh) == 0 {
		fmt.Fprintln(w, "No new notifications.")
	} else {
		fmt.Fprintf(w, "Found %d new notification%s\n",
			len(fresh), plural(len(fresh)))
		renderKind(w, "NEW COMMENTS", byKind(fresh, model.KindComment))
		renderKind(w, "NEW LIKES", byKind(fresh, model.KindLike))
		renderKind(w, "NEW SHARES", byKind(fresh, model.KindShare))
	}

	if result != nil && result.Partial() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, noteStyle.Render(partialNote(result)))
	}
}

// RenderFatal writes the single report for a run that died on a
// connection-level failure. This is distinct from a run that found
// nothing: no results were obtained at all.
func RenderFatal(w io.Writer, src model.SourceType, err error) {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, headerStyle.Render(
		fmt.Sprintf("Engagement Monitor Results (%s)", src),
	))
	fmt.Fprintln(w, rule)

	if source.IsAuthError(err) {
		fmt.Fprintf(w, "Authentication failed: %v\n", err)
		fmt.Fprintln(w, "Check the configured credentials and try again.")
		return
	}
	fmt.Fprintf(w, "Run failed before any results were fetched: %v\n", err)
}

func renderKind(w io.Writer, title string, ns []model.Notification) {
	if len(ns) == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, sectionStyle.Render(
		fmt.Sprintf("%s (%d)", title, len(ns)),
	))
	fmt.Fprintln(w, strings.Repeat("-", 40))

	for _, n := range ns {
		fmt.Fprintf(w, "%s\n", actorStyle.Render(n.ActorName))
		if n.ContentSnippet != "" {
			fmt.Fprintf(w, "    %q\n", n.ContentSnippet)
		}
		if n.PostSnippet != "" {
			fmt.Fprintf(w, "    on post: %s\n", n.PostSnippet)
		}
		fmt.Fprintf(w, "    at: %s\n", n.When())
	}
}

func byKind(ns []model.Notification, kind model.Kind) []model.Notification {
	var out []model.Notification
	for _, n := range ns {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func partialNote(result *source.FetchResult) string {
	var parts []string
	if result.RateLimited {
		parts = append(parts, "rate limited by the API")
	}
	if result.Skipped > 0 {
		parts = append(parts, fmt.Sprintf(
			"%d item%s skipped", result.Skipped, plural(result.Skipped),
		))
	}
	return "Note: results are partial (" + strings.Join(parts, "; ") + ")."
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
