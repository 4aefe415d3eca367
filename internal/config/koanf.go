// NextBasket - Cross-Sell Recommendation Analytics Pipeline
// Copyright 2026 NextBasket Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextbasket/nextbasket

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
// The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/nextbasket/config.yaml",
	"/etc/nextbasket/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration from layered sources:
//  1. Built-in defaults
//  2. Optional YAML config file
//  3. Environment variables (highest priority)
//
// The returned Config has already passed Validate; a non-nil error means the
// run must abort before any stage executes.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Variables outside this map are ignored so unrelated environment noise never
// leaks into the configuration.
var envMappings = map[string]string{
	"orders_path":    "input.orders_path",
	"products_path":  "input.products_path",
	"customers_path": "input.customers_path",

	"reference_date": "conform.reference_date",

	"basket_group_by": "basket.group_by",

	"min_support":      "mining.min_support",
	"min_confidence":   "mining.min_confidence",
	"min_lift":         "mining.min_lift",
	"max_itemset_size": "mining.max_itemset_size",

	"top_k_neighbors":        "similarity.top_k_neighbors",
	"recency_half_life_days": "similarity.recency_half_life_days",
	"similarity_workers":     "similarity.num_workers",

	"top_n":       "blend.top_n",
	"cf_weight":   "blend.cf_weight",
	"rule_weight": "blend.rule_weight",

	"eval_k":           "evaluate.k",
	"cutoff_timestamp": "evaluate.cutoff_timestamp",

	"artifact_sink":          "artifact.sink",
	"gold_dir":               "artifact.gold_dir",
	"duckdb_path":            "artifact.duckdb_path",
	"model_version_override": "artifact.model_version_override",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names to config paths.
// Unmapped variables return "" and are dropped by koanf.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
