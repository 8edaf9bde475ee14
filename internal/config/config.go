// Package config holds witgen configuration: input/output paths and the
// schema conventions the generator bakes into its artifacts.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all witgen configuration.
type Config struct {
	// Input/output paths
	Paths PathsConfig `yaml:"paths"`

	// Schema conventions
	Schema SchemaConfig `yaml:"schema"`

	// Drift check locations
	Drift DriftConfig `yaml:"drift"`
}

// PathsConfig locates the WIT source and the three generated artifacts.
type PathsConfig struct {
	Wit      string `yaml:"wit"`
	Manifest string `yaml:"manifest"`
	Header   string `yaml:"header"`
	Source   string `yaml:"source"`
}

// SchemaConfig controls the derived manifest columns.
type SchemaConfig struct {
	// Namespace prefixes the key/value format references, e.g. "wit"
	// yields "wit:dbi0-state-key".
	Namespace string `yaml:"namespace"`
}

// DriftConfig locates the consuming code and docs the drift check scans.
type DriftConfig struct {
	Root      string `yaml:"root"`       // repo root the directories are relative to
	RunnerDir string `yaml:"runner_dir"` // C sources referencing the generated macros
	DocsDir   string `yaml:"docs_dir"`   // docs mentioning "DBI <n>"
	DocGlob   string `yaml:"doc_glob"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Wit:      "wit/schema.wit",
			Manifest: "docs/dbi_manifest.csv",
			Header:   "include/sapling/generated_wit_schema_dbis.h",
			Source:   "src/sapling/generated_wit_schema_dbis.c",
		},
		Schema: SchemaConfig{Namespace: "wit"},
		Drift: DriftConfig{
			Root:      ".",
			RunnerDir: "src/runner",
			DocsDir:   "docs",
			DocGlob:   "RUNNER_*.md",
		},
	}
}

// Load reads configuration from a YAML file layered over the defaults,
// then applies WITGEN_* environment overrides. A missing file is not an
// error unless the path was given explicitly.
func Load(path string, explicit bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			applyEnv(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyEnv(cfg)
	return cfg, nil
}

// applyEnv lets CI override paths without touching the checked-in config.
func applyEnv(cfg *Config) {
	overrides := map[string]*string{
		"WITGEN_WIT":       &cfg.Paths.Wit,
		"WITGEN_MANIFEST":  &cfg.Paths.Manifest,
		"WITGEN_HEADER":    &cfg.Paths.Header,
		"WITGEN_SOURCE":    &cfg.Paths.Source,
		"WITGEN_NAMESPACE": &cfg.Schema.Namespace,
		"WITGEN_ROOT":      &cfg.Drift.Root,
	}
	for key, target := range overrides {
		if v := os.Getenv(key); v != "" {
			*target = v
		}
	}
}
