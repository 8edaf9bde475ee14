package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "wit/schema.wit", cfg.Paths.Wit)
	assert.Equal(t, "wit", cfg.Schema.Namespace)
	assert.Equal(t, "src/runner", cfg.Drift.RunnerDir)
}

func TestLoad(t *testing.T) {
	t.Run("Missing Optional File Uses Defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "witgen.yaml"), false)
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("Missing Explicit File Fails", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "witgen.yaml"), true)
		assert.Error(t, err)
	})

	t.Run("File Overlays Defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "witgen.yaml")
		content := `
paths:
  wit: schema/host.wit
schema:
  namespace: host
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		cfg, err := Load(path, true)
		require.NoError(t, err)
		assert.Equal(t, "schema/host.wit", cfg.Paths.Wit)
		assert.Equal(t, "host", cfg.Schema.Namespace)
		// Untouched keys keep their defaults.
		assert.Equal(t, "docs/dbi_manifest.csv", cfg.Paths.Manifest)
	})

	t.Run("Env Overrides File", func(t *testing.T) {
		t.Setenv("WITGEN_MANIFEST", "/tmp/override.csv")
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), false)
		require.NoError(t, err)
		assert.Equal(t, "/tmp/override.csv", cfg.Paths.Manifest)
	})
}
