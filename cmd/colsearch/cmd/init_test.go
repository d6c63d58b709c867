package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colsearch/colsearch/internal/config"
)

func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestInitCmd_CreatesCollection(t *testing.T) {
	dir := t.TempDir()

	out, err := runCommand(t, newInitCmd(), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "config.toml")

	assert.True(t, config.ConfigExists(dir))
	assert.DirExists(t, filepath.Join(dir, config.SearchDir, "cache"))
	assert.DirExists(t, filepath.Join(dir, config.SearchDir, "index"))

	col, err := config.Open(dir)
	require.NoError(t, err)
	assert.Equal(t, "Default Collection", col.Config.Name)
}

func TestInitCmd_RefusesExistingWithoutForce(t *testing.T) {
	dir := t.TempDir()

	_, err := runCommand(t, newInitCmd(), dir)
	require.NoError(t, err)

	_, err = runCommand(t, newInitCmd(), dir)
	require.Error(t, err)

	_, err = runCommand(t, newInitCmd(), "--force", dir)
	require.NoError(t, err)
}

func TestInitCmd_CustomFlags(t *testing.T) {
	dir := t.TempDir()

	_, err := runCommand(t, newInitCmd(),
		"--name", "Papers",
		"--include", "*.pdf",
		"--include", "*.tex",
		"--exclude", "drafts/",
		"--extract", "*.pdf=pdf-extractor {input}",
		"--extract", "*.tex=detex {input}",
		dir)
	require.NoError(t, err)

	col, err := config.Open(dir)
	require.NoError(t, err)
	assert.Equal(t, "Papers", col.Config.Name)
	assert.Equal(t, []string{"*.pdf", "*.tex"}, col.Config.Include.Patterns)
	assert.Equal(t, []string{"drafts/"}, col.Config.Exclude.Patterns)

	command, ok := col.Config.ResolveExtractor("paper.pdf")
	require.True(t, ok)
	assert.Equal(t, "pdf-extractor {input}", command)
}

func TestInitCmd_RejectsMalformedExtractFlag(t *testing.T) {
	dir := t.TempDir()

	_, err := runCommand(t, newInitCmd(), "--extract", "no-separator", dir)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, config.SearchDir, config.ConfigFile))
}

func TestInitCmd_DefaultsToCwd(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	_, err = runCommand(t, newInitCmd())
	require.NoError(t, err)
	assert.True(t, config.ConfigExists(dir))
}
