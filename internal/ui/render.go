// Package ui renders command output for the terminal, styled on a TTY and
// plain when piped.
package ui

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/colsearch/colsearch/internal/config"
	"github.com/colsearch/colsearch/internal/index"
	"github.com/colsearch/colsearch/internal/query"
)

// Renderer writes formatted command output.
type Renderer struct {
	out    io.Writer
	styles Styles
}

// New creates a Renderer writing to out. noColor forces plain output.
func New(out io.Writer, noColor bool) *Renderer {
	return &Renderer{out: out, styles: GetStyles(noColor)}
}

// Detect creates a Renderer for f, styled only when f is a terminal.
func Detect(f *os.File) *Renderer {
	tty := isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	return New(f, !tty)
}

// QueryResults renders a merged result list. Verbose mode shows the
// absolute source path of each hit instead of the collection-relative one.
func (r *Renderer) QueryResults(results []*query.Result, verbose bool) {
	if len(results) == 0 {
		fmt.Fprintln(r.out, r.styles.Dim.Render("No results."))
		return
	}

	for i, res := range results {
		title := res.Title
		if title == "" {
			title = res.Path
		}
		fmt.Fprintf(r.out, "%s %s %s\n",
			r.styles.Label.Render(fmt.Sprintf("%2d.", i+1)),
			r.styles.Title.Render(title),
			r.styles.Score.Render(fmt.Sprintf("(%.3f)", res.Score)))
		location := res.Collection + ": " + res.Path
		if verbose {
			location = filepath.Join(res.Root, filepath.FromSlash(res.Path))
		}
		fmt.Fprintf(r.out, "    %s\n", r.styles.Path.Render(location))
		if len(res.Tags) > 0 {
			fmt.Fprintf(r.out, "    %s\n", r.styles.Tag.Render(joinTags(res.Tags)))
		}
		if res.Snippet != "" {
			fmt.Fprintf(r.out, "    %s\n", r.styles.Snippet.Render(res.Snippet))
		}
	}
}

// IndexReport renders the outcome of one reindex run.
func (r *Renderer) IndexReport(report *index.Report) {
	fmt.Fprintf(r.out, "%s %s\n",
		r.styles.Header.Render("Indexed"),
		r.styles.Title.Render(report.Collection))
	fmt.Fprintf(r.out, "  %s\n", r.styles.Label.Render(fmt.Sprintf(
		"%d indexed, %d unchanged, %d skipped, %d pruned in %s",
		report.Indexed, report.Unchanged, report.Skipped, report.Pruned,
		report.Duration.Round(10*time.Millisecond))))

	for _, f := range report.Failures {
		fmt.Fprintf(r.out, "  %s %s: %s\n",
			r.styles.Warning.Render("WARN"),
			f.Path, f.Message)
	}
	if report.Failed > 0 {
		fmt.Fprintf(r.out, "  %s\n", r.styles.Warning.Render(
			fmt.Sprintf("%d file(s) failed", report.Failed)))
	}
}

// CollectionList renders discovered collections.
func (r *Renderer) CollectionList(cols []*config.Collection) {
	if len(cols) == 0 {
		fmt.Fprintln(r.out, r.styles.Dim.Render("No collections found."))
		return
	}
	for _, col := range cols {
		fmt.Fprintf(r.out, "%s  %s\n",
			r.styles.Title.Render(col.Name()),
			r.styles.Path.Render(col.Root))
	}
}

// Successf renders a confirmation line.
func (r *Renderer) Successf(format string, args ...any) {
	fmt.Fprintln(r.out, r.styles.Success.Render(fmt.Sprintf(format, args...)))
}

// Errorf renders an error line.
func (r *Renderer) Errorf(format string, args ...any) {
	fmt.Fprintln(r.out, r.styles.Error.Render(fmt.Sprintf(format, args...)))
}

func joinTags(tags []string) string {
	out := ""
	for i, tag := range tags {
		if i > 0 {
			out += " "
		}
		out += "#" + tag
	}
	return out
}
