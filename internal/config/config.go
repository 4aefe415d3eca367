// NextBasket - Cross-Sell Recommendation Analytics Pipeline
// Copyright 2026 NextBasket Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextbasket/nextbasket

// Package config defines the pipeline configuration surface and its layered
// loading: built-in defaults, then an optional YAML file, then environment
// variables. Every tunable threshold and weight lives here; validation runs
// once at startup and any failure aborts the run before a single stage
// executes.
package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/nextbasket/nextbasket/internal/validation"
)

// Config is the aggregate configuration for one pipeline run.
type Config struct {
	// Input locates the raw source files.
	Input InputConfig `koanf:"input"`

	// Conform holds conformance-stage settings including RFM bucketing.
	Conform ConformConfig `koanf:"conform"`

	// Basket controls transaction grouping.
	Basket BasketConfig `koanf:"basket"`

	// Mining holds association-rule mining thresholds.
	Mining MiningConfig `koanf:"mining"`

	// Similarity holds interaction weighting and neighbor settings.
	Similarity SimilarityConfig `koanf:"similarity"`

	// Blend holds recommendation blending weights and list length.
	Blend BlendConfig `koanf:"blend"`

	// Evaluate holds holdout-evaluation settings.
	Evaluate EvaluateConfig `koanf:"evaluate"`

	// Artifact controls gold table emission.
	Artifact ArtifactConfig `koanf:"artifact"`

	// Logging configures the global logger.
	Logging LoggingConfig `koanf:"logging"`
}

// InputConfig locates the raw source files consumed by the ingestion edge.
type InputConfig struct {
	// OrdersPath is the raw orders CSV. Required.
	OrdersPath string `koanf:"orders_path"`

	// ProductsPath is the raw product catalog CSV. Optional.
	ProductsPath string `koanf:"products_path"`

	// CustomersPath is the raw customers CSV. Optional.
	CustomersPath string `koanf:"customers_path"`
}

// ConformConfig holds conformance-stage settings.
type ConformConfig struct {
	// ReferenceDate anchors recency computation, RFC 3339. When empty the
	// most recent conformed order timestamp is used.
	ReferenceDate string `koanf:"reference_date"`

	// RFM holds the bucket edges for recency/frequency/monetary scoring.
	RFM RFMConfig `koanf:"rfm"`
}

// RFMConfig defines the bucket edges used to score customers. Each dimension
// is scored 1..len(edges)+1; edges must be strictly ascending. Recency scores
// invert (fewer days since purchase scores higher).
type RFMConfig struct {
	// RecencyEdges are day thresholds, e.g. [30, 90] buckets recency into
	// <=30d, <=90d, >90d.
	RecencyEdges []int `koanf:"recency_edges"`

	// FrequencyEdges are distinct-order-count thresholds.
	FrequencyEdges []int `koanf:"frequency_edges"`

	// MonetaryEdges are total-spend thresholds.
	MonetaryEdges []float64 `koanf:"monetary_edges"`

	// HighValueMin and MidValueMin split the combined R+F+M score into
	// high_value / mid_value / low_value segments.
	HighValueMin int `koanf:"high_value_min"`
	MidValueMin  int `koanf:"mid_value_min"`
}

// BasketConfig controls transaction grouping.
type BasketConfig struct {
	// GroupBy selects the basket key: "order" (one basket per order_id) or
	// "session" (one basket per user_id+day).
	GroupBy string `koanf:"group_by"`
}

// MiningConfig holds association-rule mining thresholds.
type MiningConfig struct {
	// MinSupport is the minimum itemset support as a fraction of baskets,
	// in (0, 1].
	MinSupport float64 `koanf:"min_support"`

	// MinConfidence is the minimum rule confidence, in (0, 1].
	MinConfidence float64 `koanf:"min_confidence"`

	// MinLift is the minimum rule lift, > 0.
	MinLift float64 `koanf:"min_lift"`

	// MaxItemsetSize bounds mined itemset cardinality, >= 2.
	MaxItemsetSize int `koanf:"max_itemset_size"`
}

// SimilarityConfig holds interaction weighting and neighbor settings.
type SimilarityConfig struct {
	// TopKNeighbors is the number of neighbors retained per item.
	TopKNeighbors int `koanf:"top_k_neighbors"`

	// RecencyHalfLifeDays is the exponential-decay half-life applied to
	// interaction weights, in days.
	RecencyHalfLifeDays float64 `koanf:"recency_half_life_days"`

	// NumWorkers is the number of parallel similarity workers.
	// 0 means use a single worker.
	NumWorkers int `koanf:"num_workers"`
}

// BlendConfig holds recommendation blending settings.
type BlendConfig struct {
	// TopN is the recommendation list length per user.
	TopN int `koanf:"top_n"`

	// CFWeight scales the collaborative-filtering similarity signal.
	CFWeight float64 `koanf:"cf_weight"`

	// RuleWeight scales the association-rule signal.
	RuleWeight float64 `koanf:"rule_weight"`
}

// EvaluateConfig holds holdout-evaluation settings.
type EvaluateConfig struct {
	// K is the cutoff rank for Precision@K / MAP@K.
	K int `koanf:"k"`

	// CutoffTimestamp splits orders temporally, RFC 3339. Orders after the
	// cutoff form the holdout set. Empty disables the split (no holdout).
	CutoffTimestamp string `koanf:"cutoff_timestamp"`
}

// ArtifactConfig controls gold table emission.
type ArtifactConfig struct {
	// Sink selects the serving format: "json" or "duckdb".
	Sink string `koanf:"sink"`

	// GoldDir is the output directory for the JSON sink.
	GoldDir string `koanf:"gold_dir"`

	// DuckDBPath is the database file for the DuckDB sink.
	DuckDBPath string `koanf:"duckdb_path"`

	// ModelVersionOverride pins the model version instead of deriving it
	// from the run timestamp. Used for reproducible runs.
	ModelVersionOverride string `koanf:"model_version_override"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all sensible defaults. Defaults are
// applied first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			OrdersPath: "data/orders.csv",
		},
		Conform: ConformConfig{
			RFM: RFMConfig{
				RecencyEdges:   []int{30, 90},
				FrequencyEdges: []int{2, 5},
				MonetaryEdges:  []float64{100, 500},
				HighValueMin:   7,
				MidValueMin:    5,
			},
		},
		Basket: BasketConfig{
			GroupBy: "order",
		},
		Mining: MiningConfig{
			MinSupport:     0.1,
			MinConfidence:  0.3,
			MinLift:        1.0,
			MaxItemsetSize: 4,
		},
		Similarity: SimilarityConfig{
			TopKNeighbors:       10,
			RecencyHalfLifeDays: 90,
			NumWorkers:          4,
		},
		Blend: BlendConfig{
			TopN:       5,
			CFWeight:   0.5,
			RuleWeight: 0.5,
		},
		Evaluate: EvaluateConfig{
			K: 5,
		},
		Artifact: ArtifactConfig{
			Sink:       "json",
			GoldDir:    "data/gold",
			DuckDBPath: "data/gold.duckdb",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration. Any error here is fatal: the pipeline
// must abort before a stage runs rather than silently clamp a threshold.
//
//nolint:gocyclo // validation needs to check many fields
func (c *Config) Validate() error {
	if c.Input.OrdersPath == "" {
		return fmt.Errorf("input.orders_path is required")
	}

	if c.Mining.MinSupport <= 0 || c.Mining.MinSupport > 1 {
		return fmt.Errorf("mining.min_support must be in (0, 1], got %f", c.Mining.MinSupport)
	}
	if c.Mining.MinConfidence <= 0 || c.Mining.MinConfidence > 1 {
		return fmt.Errorf("mining.min_confidence must be in (0, 1], got %f", c.Mining.MinConfidence)
	}
	if c.Mining.MinLift <= 0 {
		return fmt.Errorf("mining.min_lift must be positive, got %f", c.Mining.MinLift)
	}
	if c.Mining.MaxItemsetSize < 2 {
		return fmt.Errorf("mining.max_itemset_size must be >= 2, got %d", c.Mining.MaxItemsetSize)
	}

	if c.Similarity.TopKNeighbors < 1 {
		return fmt.Errorf("similarity.top_k_neighbors must be positive, got %d", c.Similarity.TopKNeighbors)
	}
	if c.Similarity.RecencyHalfLifeDays <= 0 {
		return fmt.Errorf("similarity.recency_half_life_days must be positive, got %f", c.Similarity.RecencyHalfLifeDays)
	}
	if c.Similarity.NumWorkers < 0 {
		return fmt.Errorf("similarity.num_workers must be non-negative, got %d", c.Similarity.NumWorkers)
	}

	if c.Blend.TopN < 1 {
		return fmt.Errorf("blend.top_n must be positive, got %d", c.Blend.TopN)
	}
	if c.Blend.CFWeight < 0 || c.Blend.RuleWeight < 0 {
		return fmt.Errorf("blend weights must be non-negative, got cf=%f rule=%f", c.Blend.CFWeight, c.Blend.RuleWeight)
	}
	if c.Blend.CFWeight+c.Blend.RuleWeight == 0 {
		return fmt.Errorf("blend weights must not both be zero")
	}

	if c.Evaluate.K < 1 {
		return fmt.Errorf("evaluate.k must be positive, got %d", c.Evaluate.K)
	}
	if c.Evaluate.CutoffTimestamp != "" {
		if _, err := time.Parse(time.RFC3339, c.Evaluate.CutoffTimestamp); err != nil {
			return fmt.Errorf("evaluate.cutoff_timestamp is not RFC 3339: %w", err)
		}
	}

	if c.Conform.ReferenceDate != "" {
		if _, err := time.Parse(time.RFC3339, c.Conform.ReferenceDate); err != nil {
			return fmt.Errorf("conform.reference_date is not RFC 3339: %w", err)
		}
	}
	if err := c.Conform.RFM.validate(); err != nil {
		return err
	}

	switch c.Basket.GroupBy {
	case "order", "session":
	default:
		return fmt.Errorf("basket.group_by must be \"order\" or \"session\", got %q", c.Basket.GroupBy)
	}

	switch c.Artifact.Sink {
	case "json":
		if c.Artifact.GoldDir == "" {
			return fmt.Errorf("artifact.gold_dir is required for the json sink")
		}
	case "duckdb":
		if c.Artifact.DuckDBPath == "" {
			return fmt.Errorf("artifact.duckdb_path is required for the duckdb sink")
		}
	default:
		return fmt.Errorf("artifact.sink must be \"json\" or \"duckdb\", got %q", c.Artifact.Sink)
	}

	// Struct-tag checks (logging level/format enums) via the shared validator.
	if err := validation.ValidateStruct(&loggingCheck{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
	}); err != nil {
		return fmt.Errorf("logging config invalid: %s", err.Error())
	}

	return nil
}

// loggingCheck expresses the logging enums as validator tags.
type loggingCheck struct {
	Level  string `validate:"omitempty,oneof=trace debug info warn warning error fatal disabled"`
	Format string `validate:"omitempty,oneof=json console"`
}

func (r RFMConfig) validate() error {
	if len(r.RecencyEdges) == 0 || len(r.FrequencyEdges) == 0 || len(r.MonetaryEdges) == 0 {
		return fmt.Errorf("conform.rfm bucket edges must be non-empty")
	}
	if !sort.IntsAreSorted(r.RecencyEdges) {
		return fmt.Errorf("conform.rfm.recency_edges must be ascending, got %v", r.RecencyEdges)
	}
	if !sort.IntsAreSorted(r.FrequencyEdges) {
		return fmt.Errorf("conform.rfm.frequency_edges must be ascending, got %v", r.FrequencyEdges)
	}
	if !sort.Float64sAreSorted(r.MonetaryEdges) {
		return fmt.Errorf("conform.rfm.monetary_edges must be ascending, got %v", r.MonetaryEdges)
	}
	if r.MidValueMin > r.HighValueMin {
		return fmt.Errorf("conform.rfm.mid_value_min must be <= high_value_min, got %d > %d", r.MidValueMin, r.HighValueMin)
	}
	return nil
}

// ReferenceTime returns the parsed reference date, or zero when unset.
// Validate has already guaranteed parseability.
func (c *Config) ReferenceTime() time.Time {
	if c.Conform.ReferenceDate == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, c.Conform.ReferenceDate)
	return t
}

// CutoffTime returns the parsed evaluation cutoff, or zero when unset.
func (c *Config) CutoffTime() time.Time {
	if c.Evaluate.CutoffTimestamp == "" {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, c.Evaluate.CutoffTimestamp)
	return t
}
