package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/colsearch/colsearch/internal/config"
)

// initOptions holds CLI flags for init.
type initOptions struct {
	name    string
	include []string
	exclude []string
	extract []string // GLOB=CMD pairs
	force   bool
}

func newInitCmd() *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init [DIR]",
		Short: "Create a collection in a directory",
		Long: `Create a collection by writing .search/config.toml into DIR
(default: current directory) along with the cache and index directories.

The generated config covers common document types; edit it to add
extractors or adjust the file patterns. Extractor commands must contain
the {input} placeholder, replaced with the source file path at run time.`,
		Example: `  # Initialize the current directory
  colsearch init

  # Initialize with a name and custom patterns
  colsearch init --name "Papers" --include "*.pdf" --include "*.tex" ~/papers

  # Add a custom extractor
  colsearch init --extract "*.rst=rst2txt {input}" docs/

  # Overwrite an existing config
  colsearch init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(cmd, dir, opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "Collection display name (default: directory name)")
	cmd.Flags().StringArrayVar(&opts.include, "include", nil, "Include pattern (repeatable, replaces defaults)")
	cmd.Flags().StringArrayVar(&opts.exclude, "exclude", nil, "Exclude pattern (repeatable, replaces defaults)")
	cmd.Flags().StringArrayVar(&opts.extract, "extract", nil, "Extractor as GLOB=CMD (repeatable, replaces defaults)")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Overwrite an existing config")

	return cmd
}

func runInit(cmd *cobra.Command, dir string, opts initOptions) error {
	cfg := config.Default()
	if opts.name != "" {
		cfg.Name = opts.name
	}
	if len(opts.include) > 0 {
		cfg.Include.Patterns = opts.include
	}
	if len(opts.exclude) > 0 {
		cfg.Exclude.Patterns = opts.exclude
	}
	if len(opts.extract) > 0 {
		extractors, err := parseExtractors(opts.extract)
		if err != nil {
			return err
		}
		cfg.Extractors = extractors
	}

	col, err := config.Init(dir, cfg, opts.force)
	if err != nil {
		return err
	}

	r := newRenderer(cmd)
	r.Successf("Initialized collection %q at %s", col.Name(), col.Root)
	fmt.Fprintf(cmd.OutOrStdout(), "Edit %s to adjust patterns and extractors.\n", col.ConfigPath())
	return nil
}

// parseExtractors splits repeated GLOB=CMD flags into the extractor map.
func parseExtractors(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		glob, command, ok := strings.Cut(pair, "=")
		if !ok || glob == "" || command == "" {
			return nil, fmt.Errorf("invalid --extract %q (want GLOB=CMD)", pair)
		}
		out[glob] = command
	}
	return out, nil
}
