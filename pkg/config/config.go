// Package config loads the dashboard rule engine demo binary's
// configuration from config.yaml with environment variable overrides,
// following the same cleanenv-backed precedence as the rest of this
// project's ambient stack.
package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds configuration for the xraydemo binary.
// Environment variables always override YAML values.
type Config struct {
	// Env selects the logging encoder: "local" gets a human-readable
	// development encoder, anything else gets production JSON.
	Env string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`

	// RulesDir is a directory of *.yaml rule files loaded by the rule
	// library loader (one rule per file).
	RulesDir string `yaml:"rules_dir" env:"RULES_DIR" env-default:"./rules"`

	// FixtureCatalog is a path to a YAML file describing an in-memory
	// catalog snapshot (tables, fields, foreign keys) used in place of a
	// live database connection.
	FixtureCatalog string `yaml:"fixture_catalog" env:"FIXTURE_CATALOG" env-default:"./fixtures/catalog.yaml"`

	// RootTable names the table, within the fixture catalog, that a
	// dashboard should be generated for.
	RootTable string `yaml:"root_table" env:"ROOT_TABLE" env-default:""`

	Version string `yaml:"-"` // set at load time, not from config
}

// Load reads configuration from config.yaml with environment variable
// overrides. version is injected at build time via ldflags.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	return cfg, nil
}
