package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/colsearch/colsearch/internal/logging"
)

type logsOptions struct {
	file string
	tail int
}

func newLogsCmd() *cobra.Command {
	opts := &logsOptions{}

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Locate the debug log file",
		Long: `Locates the log file written by --debug runs and prints its path,
or its most recent lines with --tail.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "Log file path (default: the standard location)")
	cmd.Flags().IntVarP(&opts.tail, "tail", "n", 0, "Print the last N log lines instead of the path")

	return cmd
}

func runLogs(cmd *cobra.Command, opts *logsOptions) error {
	path, err := logging.FindLogFile(opts.file)
	if err != nil {
		return err
	}

	if opts.tail <= 0 {
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}
	lines := strings.Split(strings.TrimRight(string(raw), "\n"), "\n")
	if len(lines) > opts.tail {
		lines = lines[len(lines)-opts.tail:]
	}
	for _, line := range lines {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}
