package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/colsearch/colsearch/internal/ui"
)

// newRenderer builds a renderer for the command's output writer, styled
// only when writing to a real terminal.
func newRenderer(cmd *cobra.Command) *ui.Renderer {
	out := cmd.OutOrStdout()
	if f, ok := out.(*os.File); ok {
		return ui.Detect(f)
	}
	return ui.New(out, true)
}
