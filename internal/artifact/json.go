// NextBasket - Cross-Sell Recommendation Analytics Pipeline
// Copyright 2026 NextBasket Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextbasket/nextbasket

package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/nextbasket/nextbasket/internal/models"
)

// Table file names, fixed across sinks.
const (
	FileRules        = "assoc_rules.json"
	FileSimilarities = "item_sim.json"
	FileTopN         = "user_topn.json"
	FileMetrics      = "model_metrics.json"
)

// JSONWriter serializes the gold tables as JSON files in a directory. All
// four tables are staged into a temporary directory first and renamed into
// place only after every write succeeded, so a crash mid-run never mixes two
// model versions in the output directory.
type JSONWriter struct {
	dir string
}

// NewJSONWriter returns a writer targeting dir, creating it if needed.
func NewJSONWriter(dir string) (*JSONWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact directory %s: %w", dir, err)
	}
	return &JSONWriter{dir: dir}, nil
}

// ruleRow is the serialized form of one association rule, enriched with
// product names for human inspection.
type ruleRow struct {
	Antecedent      []string `json:"antecedent"`
	Consequent      []string `json:"consequent"`
	AntecedentNames []string `json:"antecedent_names"`
	ConsequentNames []string `json:"consequent_names"`
	Support         float64  `json:"support"`
	Confidence      float64  `json:"confidence"`
	Lift            float64  `json:"lift"`
}

type similarityRow struct {
	ItemID       string  `json:"item_id"`
	NeighborID   string  `json:"neighbor_item_id"`
	NeighborName string  `json:"neighbor_name"`
	Score        float64 `json:"score"`
}

type rankedItemRow struct {
	ItemID string  `json:"item_id"`
	Name   string  `json:"name"`
	Score  float64 `json:"score"`
}

type topNRow struct {
	UserID       string          `json:"user_id"`
	Items        []rankedItemRow `json:"items"`
	ModelVersion string          `json:"model_version"`
	IsFallback   bool            `json:"is_fallback"`
}

type metricsRow struct {
	ModelVersion string    `json:"model_version"`
	PrecisionAtK float64   `json:"precision_at_k"`
	MAPAtK       float64   `json:"map_at_k"`
	RecallAtK    float64   `json:"recall_at_k"`
	Coverage     float64   `json:"coverage"`
	EvaluatedAt  time.Time `json:"evaluated_at"`
}

// Write stages and publishes all four tables.
func (w *JSONWriter) Write(ctx context.Context, tables Tables) error {
	staging, err := os.MkdirTemp(w.dir, ".staging-*")
	if err != nil {
		return fmt.Errorf("creating staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	files := map[string]any{
		FileRules:        ruleRows(tables),
		FileSimilarities: similarityRows(tables),
		FileTopN:         topNRows(tables),
		FileMetrics:      []metricsRow{metricsRowOf(tables.Metrics)},
	}

	for _, name := range []string{FileRules, FileSimilarities, FileTopN, FileMetrics} {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeJSONFile(filepath.Join(staging, name), files[name]); err != nil {
			return fmt.Errorf("staging %s: %w", name, err)
		}
	}

	// All staged; publish. Rename within one filesystem is atomic per
	// file, and every table was fully written before the first rename.
	for _, name := range []string{FileRules, FileSimilarities, FileTopN, FileMetrics} {
		if err := os.Rename(filepath.Join(staging, name), filepath.Join(w.dir, name)); err != nil {
			return fmt.Errorf("publishing %s: %w", name, err)
		}
	}
	return nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func ruleRows(t Tables) []ruleRow {
	rows := make([]ruleRow, 0, len(t.Rules))
	for _, r := range t.Rules {
		rows = append(rows, ruleRow{
			Antecedent:      r.Antecedent,
			Consequent:      r.Consequent,
			AntecedentNames: namesOf(t, r.Antecedent),
			ConsequentNames: namesOf(t, r.Consequent),
			Support:         r.Support,
			Confidence:      r.Confidence,
			Lift:            r.Lift,
		})
	}
	return rows
}

func similarityRows(t Tables) []similarityRow {
	rows := make([]similarityRow, 0, len(t.Similarities))
	for _, s := range t.Similarities {
		rows = append(rows, similarityRow{
			ItemID:       s.ItemID,
			NeighborID:   s.NeighborItemID,
			NeighborName: t.name(s.NeighborItemID),
			Score:        s.Score,
		})
	}
	return rows
}

func topNRows(t Tables) []topNRow {
	rows := make([]topNRow, 0, len(t.TopN))
	for _, u := range t.TopN {
		items := make([]rankedItemRow, 0, len(u.Items))
		for _, item := range u.Items {
			items = append(items, rankedItemRow{
				ItemID: item.ItemID,
				Name:   t.name(item.ItemID),
				Score:  item.Score,
			})
		}
		rows = append(rows, topNRow{
			UserID:       u.UserID,
			Items:        items,
			ModelVersion: u.ModelVersion,
			IsFallback:   u.IsFallback,
		})
	}
	return rows
}

func metricsRowOf(m models.ModelMetrics) metricsRow {
	return metricsRow{
		ModelVersion: m.ModelVersion,
		PrecisionAtK: m.PrecisionAtK,
		MAPAtK:       m.MAPAtK,
		RecallAtK:    m.RecallAtK,
		Coverage:     m.Coverage,
		EvaluatedAt:  m.EvaluatedAt,
	}
}

func namesOf(t Tables, items []string) []string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, t.name(item))
	}
	return names
}
