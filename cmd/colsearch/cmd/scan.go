package cmd

import (
	"github.com/spf13/cobra"

	"github.com/colsearch/colsearch/internal/scanner"
)

func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [DIR]",
		Short: "List collections under a directory",
		Long: `Walk DIR (default: current directory) and list every collection
found, skipping directories whose config does not parse.`,
		Example: `  colsearch scan
  colsearch scan ~/documents`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			base := "."
			if len(args) == 1 {
				base = args[0]
			}
			return runScan(cmd, base)
		},
	}
	return cmd
}

func runScan(cmd *cobra.Command, base string) error {
	s, err := scanner.New()
	if err != nil {
		return err
	}

	cols, err := s.FindCollections(base)
	if err != nil {
		return err
	}

	newRenderer(cmd).CollectionList(cols)
	return nil
}
