// NextBasket - Cross-Sell Recommendation Analytics Pipeline
// Copyright 2026 NextBasket Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextbasket/nextbasket

// Package main is the entry point for the NextBasket batch pipeline.
//
// NextBasket computes next-best-product recommendations from historical
// order data. One invocation is one run: raw CSVs are ingested and
// conformed, baskets are mined for association rules, an item-item
// similarity model is built from implicit interaction signals, both signals
// are blended into per-customer top-N lists, and the resulting gold tables
// are evaluated against a temporal holdout and published for serving.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (MIN_SUPPORT, TOP_K_NEIGHBORS, ...)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// Validation is strict: an out-of-range threshold aborts the run before any
// stage executes. Thresholds are never silently clamped.
//
// # Example Usage
//
// Run against local CSVs, emitting JSON gold tables:
//
//	export ORDERS_PATH=data/orders.csv
//	export PRODUCTS_PATH=data/products.csv
//	export GOLD_DIR=data/gold
//	./nextbasket
//
// Emit to DuckDB for SQL consumers instead:
//
//	export ARTIFACT_SINK=duckdb
//	export DUCKDB_PATH=data/gold.duckdb
//	./nextbasket
//
// # Exit Codes
//
// The process exits non-zero on configuration errors, unreadable input
// files, or a failed gold write. A failed run never partially replaces the
// previous run's artifacts.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nextbasket/nextbasket/internal/config"
	"github.com/nextbasket/nextbasket/internal/logging"
	"github.com/nextbasket/nextbasket/internal/pipeline"
)

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("orders_path", cfg.Input.OrdersPath).
		Str("sink", cfg.Artifact.Sink).
		Msg("Starting NextBasket pipeline")

	// A batch run has no graceful-shutdown phase: cancellation simply
	// aborts before the next stage, leaving previous artifacts intact.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report, err := pipeline.Run(ctx, cfg)
	if err != nil {
		logging.Error().Err(err).Msg("Pipeline run failed")
		stop()
		os.Exit(1)
	}

	logging.Info().
		Str("run_id", report.RunID).
		Str("model_version", report.ModelVersion).
		Int("orders_kept", report.OrdersKept).
		Int("rejected", report.Rejections.Total()).
		Int("rules", report.Rules).
		Int("similarity_pairs", report.SimPairs).
		Int("users", report.Users).
		Int("fallbacks", report.Fallbacks).
		Float64("precision_at_k", report.Metrics.PrecisionAtK).
		Float64("map_at_k", report.Metrics.MAPAtK).
		Float64("coverage", report.Metrics.Coverage).
		Dur("elapsed", report.Elapsed).
		Msg("Pipeline run complete")
}
