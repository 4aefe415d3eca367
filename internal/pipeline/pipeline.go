// NextBasket - Cross-Sell Recommendation Analytics Pipeline
// Copyright 2026 NextBasket Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextbasket/nextbasket

// Package pipeline wires the stages into one batch run: ingest, conform,
// basket, mine, similarity, blend, evaluate, emit. A run either publishes a
// complete set of gold tables or fails without touching the previous ones.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nextbasket/nextbasket/internal/artifact"
	"github.com/nextbasket/nextbasket/internal/basket"
	"github.com/nextbasket/nextbasket/internal/blend"
	"github.com/nextbasket/nextbasket/internal/config"
	"github.com/nextbasket/nextbasket/internal/conform"
	"github.com/nextbasket/nextbasket/internal/evaluate"
	"github.com/nextbasket/nextbasket/internal/ingest"
	"github.com/nextbasket/nextbasket/internal/logging"
	"github.com/nextbasket/nextbasket/internal/mining"
	"github.com/nextbasket/nextbasket/internal/models"
	"github.com/nextbasket/nextbasket/internal/similarity"
)

// Report summarizes one completed run.
type Report struct {
	RunID        string
	ModelVersion string

	OrdersIn    int
	OrdersKept  int
	Rejections  models.RejectionReport
	Baskets     int
	Rules       int
	SimPairs    int
	Users       int
	Fallbacks   int
	HoldoutSize int

	Metrics models.ModelMetrics
	Elapsed time.Duration
}

// Run executes the full pipeline with the wall clock.
func Run(ctx context.Context, cfg *config.Config) (*Report, error) {
	return RunAt(ctx, cfg, time.Now().UTC())
}

// RunAt executes the pipeline with an explicit run time, which seeds the
// model version and the evaluation timestamp. A fixed run time plus a model
// version override makes reruns byte-identical.
func RunAt(ctx context.Context, cfg *config.Config, now time.Time) (*Report, error) {
	start := time.Now()
	now = now.UTC()

	runID := uuid.NewString()
	modelVersion := cfg.Artifact.ModelVersionOverride
	if modelVersion == "" {
		modelVersion = now.Format("20060102T150405Z")
	}
	log := logging.With().Str("run_id", runID).Str("model_version", modelVersion).Logger()

	report := &Report{RunID: runID, ModelVersion: modelVersion}

	// Ingest.
	rawOrders, err := ingest.ReadOrdersCSV(cfg.Input.OrdersPath)
	if err != nil {
		return nil, fmt.Errorf("reading orders: %w", err)
	}
	var rawProducts []models.ProductRecord
	if cfg.Input.ProductsPath != "" {
		if rawProducts, err = ingest.ReadProductsCSV(cfg.Input.ProductsPath); err != nil {
			return nil, fmt.Errorf("reading products: %w", err)
		}
	}
	var rawCustomers []models.CustomerRecord
	if cfg.Input.CustomersPath != "" {
		if rawCustomers, err = ingest.ReadCustomersCSV(cfg.Input.CustomersPath); err != nil {
			return nil, fmt.Errorf("reading customers: %w", err)
		}
	}
	report.OrdersIn = len(rawOrders)

	// Conform.
	orders, rejectedOrders := conform.ConformOrders(rawOrders)
	products, rejectedProducts := conform.ConformProducts(rawProducts)
	report.Rejections.Orders = rejectedOrders
	report.Rejections.Products = rejectedProducts
	report.OrdersKept = len(orders)

	reference := cfg.ReferenceTime()
	if reference.IsZero() {
		reference = latestTimestamp(orders, now)
	}

	customers, rejectedCustomers := conform.ConformCustomers(
		rawCustomers, orders, rfmParams(cfg), reference)
	report.Rejections.Customers = rejectedCustomers

	log.Info().
		Int("orders_in", report.OrdersIn).
		Int("orders_kept", report.OrdersKept).
		Int("rejected", report.Rejections.Total()).
		Int("products", len(products)).
		Int("customers", len(customers)).
		Msg("conformance complete")

	// Temporal split for evaluation. Without a cutoff the full order set
	// trains the models and no holdout exists.
	train := orders
	var holdout []models.Order
	if cutoff := cfg.CutoffTime(); !cutoff.IsZero() {
		train, holdout = evaluate.Split(orders, cutoff)
	}
	report.HoldoutSize = len(holdout)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Baskets and rule mining.
	baskets := basket.Build(train, basket.GroupMode(cfg.Basket.GroupBy))
	popularity := basket.Popularity(baskets)
	report.Baskets = len(baskets)

	mined := mining.Mine(baskets, mining.Config{
		MinSupport:     cfg.Mining.MinSupport,
		MinConfidence:  cfg.Mining.MinConfidence,
		MinLift:        cfg.Mining.MinLift,
		MaxItemsetSize: cfg.Mining.MaxItemsetSize,
	})
	report.Rules = len(mined.Rules)
	log.Info().
		Int("baskets", report.Baskets).
		Int("frequent_itemsets", len(mined.Itemsets)).
		Int("rules", report.Rules).
		Msg("rule mining complete")

	// Item-item similarity.
	model := similarity.Compute(train, reference, similarity.Config{
		TopKNeighbors:       cfg.Similarity.TopKNeighbors,
		RecencyHalfLifeDays: cfg.Similarity.RecencyHalfLifeDays,
		Workers:             cfg.Similarity.NumWorkers,
	})
	simRows := model.Rows()
	report.SimPairs = len(simRows)
	log.Info().Int("pairs", report.SimPairs).Msg("similarity model complete")

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Blend per-user lists. Every known customer gets a list; users with
	// no training history fall back to popularity.
	purchases := purchasesByUser(train)
	users := make([]string, 0, len(customers))
	for _, c := range customers {
		users = append(users, c.UserID)
	}

	blender := blend.New(model, mined.Rules, popularity, blend.Config{
		TopN:       cfg.Blend.TopN,
		CFWeight:   cfg.Blend.CFWeight,
		RuleWeight: cfg.Blend.RuleWeight,
	})
	lists := blender.BuildAll(users, purchases, modelVersion)
	report.Users = len(lists)
	for _, l := range lists {
		if l.IsFallback {
			report.Fallbacks++
		}
	}
	log.Info().
		Int("users", report.Users).
		Int("fallbacks", report.Fallbacks).
		Msg("blending complete")

	// Evaluate against the holdout.
	truth := evaluate.HoldoutItems(holdout)
	metrics := evaluate.Evaluate(lists, truth, catalogSize(products, orders),
		cfg.Evaluate.K, modelVersion, now)
	report.Metrics = metrics
	log.Info().
		Float64("precision_at_k", metrics.PrecisionAtK).
		Float64("map_at_k", metrics.MAPAtK).
		Float64("coverage", metrics.Coverage).
		Msg("evaluation complete")

	// Emit gold tables.
	writer, closeWriter, err := newWriter(cfg)
	if err != nil {
		return nil, err
	}
	defer closeWriter()

	tables := artifact.Tables{
		ModelVersion: modelVersion,
		Rules:        mined.Rules,
		Similarities: simRows,
		TopN:         lists,
		Metrics:      metrics,
		Products:     productIndex(products),
	}
	if err := writer.Write(ctx, tables); err != nil {
		return nil, fmt.Errorf("writing gold tables: %w", err)
	}

	report.Elapsed = time.Since(start)
	log.Info().Dur("elapsed", report.Elapsed).Msg("run complete")
	return report, nil
}

// newWriter builds the configured sink. closeWriter is always safe to call.
func newWriter(cfg *config.Config) (artifact.Writer, func(), error) {
	switch cfg.Artifact.Sink {
	case "duckdb":
		w, err := artifact.NewDuckDBWriter(cfg.Artifact.DuckDBPath)
		if err != nil {
			return nil, nil, err
		}
		return w, func() { _ = w.Close() }, nil
	default:
		w, err := artifact.NewJSONWriter(cfg.Artifact.GoldDir)
		if err != nil {
			return nil, nil, err
		}
		return w, func() {}, nil
	}
}

func rfmParams(cfg *config.Config) conform.RFMParams {
	return conform.RFMParams{
		RecencyEdges:   cfg.Conform.RFM.RecencyEdges,
		FrequencyEdges: cfg.Conform.RFM.FrequencyEdges,
		MonetaryEdges:  cfg.Conform.RFM.MonetaryEdges,
		HighValueMin:   cfg.Conform.RFM.HighValueMin,
		MidValueMin:    cfg.Conform.RFM.MidValueMin,
	}
}

// latestTimestamp returns the newest order timestamp, or fallback when there
// are no orders.
func latestTimestamp(orders []models.Order, fallback time.Time) time.Time {
	latest := time.Time{}
	for _, o := range orders {
		if o.Timestamp.After(latest) {
			latest = o.Timestamp
		}
	}
	if latest.IsZero() {
		return fallback
	}
	return latest
}

// purchasesByUser collapses orders into each user's distinct item set.
func purchasesByUser(orders []models.Order) map[string][]string {
	seen := make(map[string]map[string]struct{})
	for _, o := range orders {
		set, ok := seen[o.UserID]
		if !ok {
			set = make(map[string]struct{})
			seen[o.UserID] = set
		}
		set[o.ItemID] = struct{}{}
	}
	purchases := make(map[string][]string, len(seen))
	for user, set := range seen {
		items := make([]string, 0, len(set))
		for item := range set {
			items = append(items, item)
		}
		purchases[user] = items
	}
	return purchases
}

// catalogSize prefers the product catalog; without one, the distinct items
// observed in orders stand in.
func catalogSize(products []models.Product, orders []models.Order) int {
	if len(products) > 0 {
		return len(products)
	}
	distinct := make(map[string]struct{})
	for _, o := range orders {
		distinct[o.ItemID] = struct{}{}
	}
	return len(distinct)
}

func productIndex(products []models.Product) map[string]models.Product {
	index := make(map[string]models.Product, len(products))
	for _, p := range products {
		index[p.ItemID] = p
	}
	return index
}
