package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/colsearch/colsearch/internal/query"
	"github.com/colsearch/colsearch/internal/scanner"
)

// queryOptions holds CLI flags for query.
type queryOptions struct {
	in      string
	field   string
	tag     string
	limit   int
	verbose bool
}

func newQueryCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query <query>",
		Short: "Search indexed collections",
		Long: `Search collections with a full-text query.

Without --in, the enclosing collection of the current directory is
searched; when the current directory is not inside a collection, the
collections beneath it are discovered and searched together. With --in,
PATH is used the same way instead of the current directory.

Results from all searched collections are merged by relevance. Fields
title and content can be targeted with --field; --tag requires an exact
tag match. Collections that were never indexed contribute no results.`,
		Example: `  colsearch query "bayesian inference"
  colsearch query --field title "annual report"
  colsearch query --tag physics "entropy" --limit 5
  colsearch query --in ~/papers "q-learning"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().StringVar(&opts.in, "in", "", "Collection or base directory to search (default: cwd)")
	cmd.Flags().StringVarP(&opts.field, "field", "f", "", "Restrict matching to a field: title or content")
	cmd.Flags().StringVarP(&opts.tag, "tag", "t", "", "Require an exact tag")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", query.DefaultLimit, "Maximum number of results")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Show absolute source paths")

	return cmd
}

func runQuery(cmd *cobra.Command, queryStr string, opts queryOptions) error {
	s, err := scanner.New()
	if err != nil {
		return err
	}

	base := opts.in
	if base == "" {
		base, _ = os.Getwd()
	}

	searchOpts := query.Options{
		Base:  base,
		Field: opts.field,
		Tag:   opts.tag,
		Limit: opts.limit,
	}

	// A path inside a collection means that collection, exactly; discovery
	// downward applies only outside any collection.
	if root := scanner.Enclosing(base); root != "" {
		searchOpts.Roots = []string{root}
	}

	results, err := query.NewEngine(s).Search(cmd.Context(), queryStr, searchOpts)
	if err != nil {
		return err
	}

	newRenderer(cmd).QueryResults(results, opts.verbose)
	return nil
}
