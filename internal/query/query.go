// Package query executes searches across one or more collection indexes
// and merges the results by relevance.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search"
	bquery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/colsearch/colsearch/internal/config"
	"github.com/colsearch/colsearch/internal/errors"
	"github.com/colsearch/colsearch/internal/index"
	"github.com/colsearch/colsearch/internal/scanner"
)

// DefaultLimit is the result cap when Options.Limit is unset.
const DefaultLimit = 20

// SnippetLength bounds the content snippet carried by each result.
const SnippetLength = 160

// Options configures a search.
type Options struct {
	// Roots is the explicit set of collection roots to search. When empty,
	// collections are discovered under Base.
	Roots []string
	// Base is the discovery base path used when Roots is empty.
	Base string
	// Field restricts matching to "title" or "content"; empty means
	// unrestricted.
	Field string
	// Tag requires an exact facet match on the tags field.
	Tag string
	// Limit caps the merged result list. Defaults to DefaultLimit.
	Limit int
}

// Result is one ranked search hit.
type Result struct {
	// Collection is the owning collection's display name.
	Collection string
	// Root is the owning collection's absolute root.
	Root string
	// Path is the document's collection-relative path.
	Path  string
	Title string
	Tags  []string
	// Score is the engine's relevance score.
	Score float64
	// Snippet is a bounded excerpt around the first matching term.
	Snippet string
}

// Engine executes queries. It opens every index read-only; indexing and
// querying are independent passes and a search never triggers extraction.
type Engine struct {
	scanner *scanner.Scanner
}

// NewEngine creates an Engine sharing the given scanner's config cache.
func NewEngine(s *scanner.Scanner) *Engine {
	return &Engine{scanner: s}
}

// Search runs queryStr against the target collections and returns the
// merged ranking. Each call re-executes the query in full.
//
// Per-collection hit lists are merged by descending score with ties broken
// by collection declaration order, then path, and truncated to the limit
// only after the merge. Requesting the per-collection top limit first
// cannot change the global top limit, so a single highly-relevant
// collection may dominate the results.
func (e *Engine) Search(ctx context.Context, queryStr string, opts Options) ([]*Result, error) {
	start := time.Now()

	queryStr = strings.TrimSpace(queryStr)
	if queryStr == "" {
		return nil, errors.New(errors.ErrCodeQueryEmpty, "empty query", nil)
	}

	q, err := buildQuery(queryStr, opts)
	if err != nil {
		return nil, err
	}

	cols, err := e.targets(opts)
	if err != nil {
		return nil, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	var merged []*Result
	order := make(map[*Result]int)
	for ordinal, col := range cols {
		hits, err := e.searchCollection(ctx, col, q, limit)
		if err != nil {
			return nil, err
		}
		for _, hit := range hits {
			order[hit] = ordinal
			merged = append(merged, hit)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if order[a] != order[b] {
			return order[a] < order[b]
		}
		return a.Path < b.Path
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}

	slog.Debug("query_complete",
		slog.String("query", queryStr),
		slog.Int("collections", len(cols)),
		slog.Int("results", len(merged)),
		slog.Duration("duration", time.Since(start)))

	return merged, nil
}

// buildQuery validates the query syntax and assembles the engine query
// with field restriction and tag filter applied.
func buildQuery(queryStr string, opts Options) (bquery.Query, error) {
	// Syntax is validated up front: a malformed query aborts the whole
	// search rather than silently dropping collections.
	qsq := bleve.NewQueryStringQuery(queryStr)
	parsed, err := qsq.Parse()
	if err != nil {
		return nil, errors.QueryError(
			fmt.Sprintf("invalid query syntax: %v", err), err)
	}

	var q bquery.Query
	switch opts.Field {
	case "":
		q = parsed
	case "title", "content":
		match := bleve.NewMatchQuery(queryStr)
		match.SetField(opts.Field)
		q = match
	default:
		return nil, errors.QueryError(
			fmt.Sprintf("unknown field %q (want title or content)", opts.Field), nil)
	}

	if opts.Tag != "" {
		// Tags are keyword-indexed: the facet filter is exact-match only.
		tag := bleve.NewTermQuery(opts.Tag)
		tag.SetField("tags")
		q = bleve.NewConjunctionQuery(q, tag)
	}

	return q, nil
}

// targets resolves the collections to search, preserving declaration
// order for explicit roots and sorted discovery order otherwise.
func (e *Engine) targets(opts Options) ([]*config.Collection, error) {
	if len(opts.Roots) > 0 {
		cols := make([]*config.Collection, 0, len(opts.Roots))
		for _, root := range opts.Roots {
			col, err := e.scanner.Open(root)
			if err != nil {
				return nil, err
			}
			cols = append(cols, col)
		}
		return cols, nil
	}

	base := opts.Base
	if base == "" {
		base = "."
	}
	return e.scanner.FindCollections(base)
}

// searchCollection runs the query against one collection's index.
// A collection that has never been indexed contributes zero results.
func (e *Engine) searchCollection(ctx context.Context, col *config.Collection, q bquery.Query, limit int) ([]*Result, error) {
	if !index.Exists(col.IndexDir()) {
		slog.Debug("query_no_index", slog.String("collection", col.Name()))
		return nil, nil
	}

	store, err := index.OpenReadOnly(col.IndexDir())
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{"path", "title", "content", "tags"}
	req.IncludeLocations = true

	res, err := store.Search(ctx, req)
	if err != nil {
		return nil, errors.New(errors.ErrCodeInternal,
			fmt.Sprintf("search failed in %s", col.Name()), err)
	}

	results := make([]*Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		r := &Result{
			Collection: col.Name(),
			Root:       col.Root,
			Path:       hit.ID,
			Score:      hit.Score,
		}
		if title, ok := hit.Fields["title"].(string); ok {
			r.Title = title
		}
		r.Tags = fieldStrings(hit.Fields["tags"])

		if content, ok := hit.Fields["content"].(string); ok && content != "" {
			r.Snippet = snippet(content, firstMatchOffset(hit.Locations))
		}
		results = append(results, r)
	}
	return results, nil
}

// firstMatchOffset returns the byte offset of the earliest matched term in
// the content field, or 0 when no content location exists.
func firstMatchOffset(locations search.FieldTermLocationMap) int {
	best := -1
	for term := range locations["content"] {
		for _, loc := range locations["content"][term] {
			if best < 0 || int(loc.Start) < best {
				best = int(loc.Start)
			}
		}
	}
	if best < 0 {
		return 0
	}
	return best
}

// snippet builds a bounded excerpt of content starting near offset,
// aligned back to a word boundary, with whitespace collapsed.
func snippet(content string, offset int) string {
	if offset > len(content) {
		offset = 0
	}
	start := offset
	// Back up to give the matched term some leading context.
	if start > SnippetLength/4 {
		start -= SnippetLength / 4
	} else {
		start = 0
	}
	if idx := strings.IndexAny(content[start:], " \t\n"); start > 0 && idx >= 0 && idx < SnippetLength/4 {
		start += idx + 1
	}

	end := start + SnippetLength
	if end > len(content) {
		end = len(content)
	}

	// Byte offsets can land inside a multi-byte rune; widen to whole runes.
	for start > 0 && !utf8.RuneStart(content[start]) {
		start--
	}
	for end < len(content) && !utf8.RuneStart(content[end]) {
		end++
	}

	out := strings.Join(strings.Fields(content[start:end]), " ")
	if start > 0 {
		out = "..." + out
	}
	if end < len(content) {
		out += "..."
	}
	return out
}

// fieldStrings normalizes a stored field value: bleve returns a bare
// string for single values and a slice for multiple.
func fieldStrings(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
