package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indexedFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	initYAMLCollection(t, dir, "notes")
	writeYAMLRecord(t, dir, "fox.md", "Fox", "the quick brown fox")
	writeYAMLRecord(t, dir, "dog.md", "Dog", "the lazy dog sleeps")

	_, err := runCommand(t, newIndexCmd(), dir)
	require.NoError(t, err)
	return dir
}

func TestQueryCmd_FindsDocuments(t *testing.T) {
	dir := indexedFixture(t)

	out, err := runCommand(t, newQueryCmd(), "--in", dir, "fox")
	require.NoError(t, err)
	assert.Contains(t, out, "Fox")
	assert.Contains(t, out, "fox.md")
	assert.NotContains(t, out, "dog.md")
}

func TestQueryCmd_NoMatches(t *testing.T) {
	dir := indexedFixture(t)

	out, err := runCommand(t, newQueryCmd(), "--in", dir, "zeppelin")
	require.NoError(t, err)
	assert.Contains(t, out, "No results.")
}

func TestQueryCmd_FieldFlag(t *testing.T) {
	dir := indexedFixture(t)

	out, err := runCommand(t, newQueryCmd(), "--in", dir, "--field", "title", "dog")
	require.NoError(t, err)
	assert.Contains(t, out, "dog.md")
	assert.NotContains(t, out, "fox.md")
}

func TestQueryCmd_InWalksUpToEnclosingCollection(t *testing.T) {
	dir := indexedFixture(t)
	nested := filepath.Join(dir, "sub", "deeper")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	out, err := runCommand(t, newQueryCmd(), "--in", nested, "fox")
	require.NoError(t, err)
	assert.Contains(t, out, "fox.md")
}

func TestQueryCmd_UnindexedCollection(t *testing.T) {
	dir := t.TempDir()
	initYAMLCollection(t, dir, "fresh")

	out, err := runCommand(t, newQueryCmd(), "--in", dir, "anything")
	require.NoError(t, err)
	assert.Contains(t, out, "No results.")
}

func TestQueryCmd_LimitFlag(t *testing.T) {
	dir := t.TempDir()
	initYAMLCollection(t, dir, "many")
	for _, name := range []string{"a", "b", "c", "d"} {
		writeYAMLRecord(t, dir, name+".md", name, "common phrase")
	}
	_, err := runCommand(t, newIndexCmd(), dir)
	require.NoError(t, err)

	out, err := runCommand(t, newQueryCmd(), "--in", dir, "--limit", "2", "common")
	require.NoError(t, err)
	assert.Contains(t, out, " 1. ")
	assert.Contains(t, out, " 2. ")
	assert.NotContains(t, out, " 3. ")
}
