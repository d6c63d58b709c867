package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/colsearch/colsearch/internal/config"
	"github.com/colsearch/colsearch/internal/index"
	"github.com/colsearch/colsearch/internal/scanner"
)

// indexOptions holds CLI flags for index.
type indexOptions struct {
	workers int
	verbose bool
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index [DIR...]",
		Short: "Extract and index collection files",
		Long: `Bring each collection's index up to date with its files.

Every DIR that is itself a collection is indexed directly; any other DIR
is walked to discover collections beneath it. Without arguments the
current directory is used. Unchanged files (same size and modification
time as the cached record) are not re-extracted.

A collection whose config fails to parse is reported and skipped; the
remaining collections are still indexed. The exit status is non-zero
when any file failed to extract.`,
		Example: `  # Index the enclosing or nested collections of the cwd
  colsearch index

  # Index specific collections with 8 extractor processes
  colsearch index --workers 8 ~/papers ~/notes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dirs := args
			if len(dirs) == 0 {
				dirs = []string{"."}
			}
			return runIndex(cmd, dirs, opts)
		},
	}

	cmd.Flags().IntVar(&opts.workers, "workers", 0, "Concurrent extractor processes (0 = number of CPUs)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Report every failed file")

	return cmd
}

func runIndex(cmd *cobra.Command, dirs []string, opts indexOptions) error {
	s, err := scanner.New()
	if err != nil {
		return err
	}

	r := newRenderer(cmd)
	manager := index.NewManager(nil, opts.workers)

	var (
		indexed int
		failed  int
	)
	seen := make(map[string]struct{})

	for _, dir := range dirs {
		cols, err := resolveCollections(s, dir)
		if err != nil {
			// A broken config skips this argument only.
			r.Errorf("skipping %s: %v", dir, err)
			failed++
			continue
		}

		for _, col := range cols {
			if _, dup := seen[col.Root]; dup {
				continue
			}
			seen[col.Root] = struct{}{}
			indexed++

			report, err := manager.Reindex(cmd.Context(), col)
			if err != nil {
				r.Errorf("indexing %s failed: %v", col.Name(), err)
				failed++
				continue
			}
			if !opts.verbose {
				report.Failures = nil
			}
			r.IndexReport(report)
			if report.Failed > 0 {
				failed++
			}
		}
	}

	if indexed == 0 && failed == 0 {
		return fmt.Errorf("no collections found under %v", dirs)
	}
	if failed > 0 {
		return fmt.Errorf("%d collection(s) had failures", failed)
	}
	return nil
}

// resolveCollections maps one argument to collections: a collection root
// is used directly, anything else is a discovery base.
func resolveCollections(s *scanner.Scanner, dir string) ([]*config.Collection, error) {
	if config.ConfigExists(dir) {
		col, err := s.Open(dir)
		if err != nil {
			return nil, err
		}
		return []*config.Collection{col}, nil
	}
	return s.FindCollections(dir)
}
