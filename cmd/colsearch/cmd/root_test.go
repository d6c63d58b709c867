package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colsearch/colsearch/pkg/version"
)

func TestRootCmd_HasSubcommands(t *testing.T) {
	root := NewRootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"init", "scan", "index", "query", "logs", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_VersionFlag(t *testing.T) {
	out, err := runCommand(t, NewRootCmd(), "--version")
	require.NoError(t, err)
	assert.Equal(t, "colsearch version "+version.Version, strings.TrimSpace(out))
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	_, err := runCommand(t, NewRootCmd(), "bogus")
	require.Error(t, err)
}

func TestVersionCmd_ShortOutput(t *testing.T) {
	out, err := runCommand(t, newVersionCmd(), "--short")
	require.NoError(t, err)
	assert.Equal(t, version.Version, strings.TrimSpace(out))
}

func TestVersionCmd_JSONOutput(t *testing.T) {
	out, err := runCommand(t, newVersionCmd(), "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version"`)
	assert.Contains(t, out, `"go_version"`)
}
