package ui

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/colsearch/colsearch/internal/index"
	"github.com/colsearch/colsearch/internal/query"
)

func TestQueryResults_Plain(t *testing.T) {
	var buf bytes.Buffer
	r := New(&buf, true)

	r.QueryResults([]*query.Result{
		{
			Collection: "papers",
			Path:       "notes/a.md",
			Title:      "Alpha",
			Tags:       []string{"go", "search"},
			Score:      1.234,
			Snippet:    "matching excerpt",
		},
	}, false)

	out := buf.String()
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "papers: notes/a.md")
	assert.Contains(t, out, "#go #search")
	assert.Contains(t, out, "matching excerpt")
	assert.Contains(t, out, "(1.234)")
}

func TestQueryResults_TitleFallsBackToPath(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, true).QueryResults([]*query.Result{
		{Collection: "c", Path: "untitled.md", Score: 0.5},
	}, false)
	assert.Contains(t, buf.String(), "untitled.md")
}

func TestQueryResults_VerboseShowsAbsolutePath(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, true).QueryResults([]*query.Result{
		{Collection: "papers", Root: "/home/rb/papers", Path: "notes/a.md", Title: "Alpha", Score: 1},
	}, true)
	assert.Contains(t, buf.String(), "/home/rb/papers/notes/a.md")
}

func TestQueryResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, true).QueryResults(nil, false)
	assert.Contains(t, buf.String(), "No results.")
}

func TestIndexReport(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, true).IndexReport(&index.Report{
		Collection: "papers",
		Indexed:    3,
		Unchanged:  2,
		Skipped:    1,
		Failed:     1,
		Pruned:     1,
		Failures: []index.Failure{
			{Path: "bad.md", Code: "ERR_302", Message: "extractor exited 3"},
		},
		Duration: 1500 * time.Millisecond,
	})

	out := buf.String()
	assert.Contains(t, out, "papers")
	assert.Contains(t, out, "3 indexed, 2 unchanged, 1 skipped, 1 pruned")
	assert.Contains(t, out, "bad.md")
	assert.Contains(t, out, "1 file(s) failed")
}

func TestNoColorOutputHasNoEscapes(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, true).Successf("initialized %s", "/tmp/x")
	assert.NotContains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "initialized /tmp/x")
}
