package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestCheckManifestCommand(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dbi_manifest.csv")

	t.Run("Pass", func(t *testing.T) {
		content := "dbi,name,key_format,value_format,owner,status\n" +
			"0,state,wit:dbi0-state-key,wit:dbi0-state-value,runtime,active\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		assert.NoError(t, execute(t, "check", "manifest", path))
	})

	t.Run("Fail", func(t *testing.T) {
		content := "dbi,name,key_format,value_format,owner,status\n" +
			"1,state,wit:a,wit:b,runtime,active\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		err := execute(t, "check", "manifest", path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dbi 0 entry is required")
	})
}

func TestGenerateCommand(t *testing.T) {
	dir := t.TempDir()
	witPath := filepath.Join(dir, "schema.wit")
	src := `
record dbi0-state-key { key: utf8, }
record dbi0-state-value { body: bytes, }
`
	require.NoError(t, os.WriteFile(witPath, []byte(src), 0644))

	manifestPath := filepath.Join(dir, "dbi_manifest.csv")
	headerPath := filepath.Join(dir, "gen.h")
	sourcePath := filepath.Join(dir, "gen.c")

	err := execute(t, "generate",
		"--wit", witPath,
		"--manifest", manifestPath,
		"--header", headerPath,
		"--source", sourcePath)
	require.NoError(t, err)

	for _, p := range []string{manifestPath, headerPath, sourcePath} {
		_, statErr := os.Stat(p)
		assert.NoError(t, statErr, p)
	}

	// The freshly written manifest must pass its own lint.
	assert.NoError(t, execute(t, "check", "manifest", manifestPath))
}
