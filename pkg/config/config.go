// SPDX-License-Identifier: Apache-2.0

// Package config loads and validates qail.toml: the project's
// Postgres/Qdrant connection endpoints and the outbox worker's sync
// rules. Loading goes through viper so env vars prefixed QAIL_ take
// precedence over the file;
// structural validation goes through a JSON Schema compiled with
// santhosh-tekuri/jsonschema.
package config

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/spf13/viper"
)

// Mode selects which backing stores a project talks to.
type Mode string

const (
	ModePostgres Mode = "postgres"
	ModeQdrant   Mode = "qdrant"
	ModeHybrid   Mode = "hybrid"
)

// Config is the parsed, validated form of qail.toml.
type Config struct {
	Project  ProjectConfig  `mapstructure:"project"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Qdrant   QdrantConfig   `mapstructure:"qdrant"`
	Sync     []SyncRule     `mapstructure:"sync"`
}

type ProjectConfig struct {
	Mode Mode `mapstructure:"mode"`
}

type PostgresConfig struct {
	URL string `mapstructure:"url"`
}

type QdrantConfig struct {
	URL  string `mapstructure:"url"`
	GRPC bool   `mapstructure:"grpc"`
}

// SyncRule maps one source table to one vector collection for the
// outbox worker.
type SyncRule struct {
	SourceTable     string `mapstructure:"source_table"`
	TargetCollection string `mapstructure:"target_collection"`
	TriggerColumn   string `mapstructure:"trigger_column"`
	EmbeddingModel  string `mapstructure:"embedding_model"`
}

// Load reads and validates qail.toml at path. Environment variables
// prefixed QAIL_ (e.g. QAIL_POSTGRES_URL) override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix("qail")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	if err := validateAgainstSchema(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshaling %s: %w", path, err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Project.Mode == "" {
		cfg.Project.Mode = ModePostgres
	}
}

func validateAgainstSchema(doc map[string]any) error {
	compiler := jsonschema.NewCompiler()
	sch, err := jsonschema.UnmarshalJSON(bytes.NewReader([]byte(schemaJSON)))
	if err != nil {
		return fmt.Errorf("compiling embedded schema: %w", err)
	}
	if err := compiler.AddResource("qail-config.json", sch); err != nil {
		return fmt.Errorf("compiling embedded schema: %w", err)
	}
	compiled, err := compiler.Compile("qail-config.json")
	if err != nil {
		return fmt.Errorf("compiling embedded schema: %w", err)
	}
	return compiled.Validate(doc)
}

// Validate re-checks invariants that the JSON Schema alone cannot
// express (cross-field rules): hybrid/qdrant modes need at least one
// sync rule, and every rule needs both table names.
func (c *Config) Validate() error {
	switch c.Project.Mode {
	case ModePostgres, ModeQdrant, ModeHybrid:
	default:
		return fmt.Errorf("config: project.mode must be one of postgres, qdrant, hybrid, got %q", c.Project.Mode)
	}
	if c.Project.Mode == ModePostgres && c.Postgres.URL == "" {
		return fmt.Errorf("config: postgres.url is required in mode %q", c.Project.Mode)
	}
	if (c.Project.Mode == ModeQdrant || c.Project.Mode == ModeHybrid) && c.Qdrant.URL == "" {
		return fmt.Errorf("config: qdrant.url is required in mode %q", c.Project.Mode)
	}
	if (c.Project.Mode == ModeQdrant || c.Project.Mode == ModeHybrid) && len(c.Sync) == 0 {
		return fmt.Errorf("config: at least one [[sync]] rule is required in mode %q", c.Project.Mode)
	}
	for i, rule := range c.Sync {
		if rule.SourceTable == "" {
			return fmt.Errorf("config: sync[%d].source_table is required", i)
		}
		if rule.TargetCollection == "" {
			return fmt.Errorf("config: sync[%d].target_collection is required", i)
		}
	}
	return nil
}

// schemaJSON is the structural JSON Schema for qail.toml, expressed as
// JSON since that is the format the TOML document decodes to before
// validation.
const schemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "project": {
      "type": "object",
      "properties": {
        "mode": {"type": "string", "enum": ["postgres", "qdrant", "hybrid"]}
      }
    },
    "postgres": {
      "type": "object",
      "properties": {
        "url": {"type": "string"}
      }
    },
    "qdrant": {
      "type": "object",
      "properties": {
        "url": {"type": "string"},
        "grpc": {"type": "boolean"}
      }
    },
    "sync": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "source_table": {"type": "string"},
          "target_collection": {"type": "string"},
          "trigger_column": {"type": "string"},
          "embedding_model": {"type": "string"}
        },
        "required": ["source_table", "target_collection"]
      }
    }
  }
}`
