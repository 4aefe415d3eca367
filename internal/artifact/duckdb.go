// NextBasket - Cross-Sell Recommendation Analytics Pipeline
// Copyright 2026 NextBasket Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextbasket/nextbasket

package artifact

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/goccy/go-json"
)

// DuckDBWriter persists the gold tables into a DuckDB database file for SQL
// consumers. One transaction covers the whole run: the model tables are
// replaced, the metrics table is appended to, and a failure anywhere rolls
// everything back.
type DuckDBWriter struct {
	db *sql.DB
}

// NewDuckDBWriter opens (or creates) the database at path.
func NewDuckDBWriter(path string) (*DuckDBWriter, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb at %s: %w", path, err)
	}
	return &DuckDBWriter{db: db}, nil
}

// Close releases the underlying database handle.
func (w *DuckDBWriter) Close() error {
	return w.db.Close()
}

// Write replaces the model tables and appends the run's metrics record.
func (w *DuckDBWriter) Write(ctx context.Context, tables Tables) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning gold transaction: %w", err)
	}
	defer tx.Rollback()

	if err := writeRules(ctx, tx, tables); err != nil {
		return err
	}
	if err := writeSimilarities(ctx, tx, tables); err != nil {
		return err
	}
	if err := writeTopN(ctx, tx, tables); err != nil {
		return err
	}
	if err := writeMetrics(ctx, tx, tables); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing gold transaction: %w", err)
	}
	return nil
}

func writeRules(ctx context.Context, tx *sql.Tx, tables Tables) error {
	_, err := tx.ExecContext(ctx, `
		CREATE OR REPLACE TABLE assoc_rules (
			antecedent    VARCHAR NOT NULL,
			consequent    VARCHAR NOT NULL,
			support       DOUBLE NOT NULL,
			confidence    DOUBLE NOT NULL,
			lift          DOUBLE NOT NULL,
			model_version VARCHAR NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("creating assoc_rules: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO assoc_rules VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing assoc_rules insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range tables.Rules {
		antecedent, err := json.Marshal(r.Antecedent)
		if err != nil {
			return fmt.Errorf("encoding antecedent: %w", err)
		}
		consequent, err := json.Marshal(r.Consequent)
		if err != nil {
			return fmt.Errorf("encoding consequent: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, string(antecedent), string(consequent),
			r.Support, r.Confidence, r.Lift, tables.ModelVersion); err != nil {
			return fmt.Errorf("inserting rule: %w", err)
		}
	}
	return nil
}

func writeSimilarities(ctx context.Context, tx *sql.Tx, tables Tables) error {
	_, err := tx.ExecContext(ctx, `
		CREATE OR REPLACE TABLE item_sim (
			item_id          VARCHAR NOT NULL,
			neighbor_item_id VARCHAR NOT NULL,
			score            DOUBLE NOT NULL,
			model_version    VARCHAR NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("creating item_sim: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO item_sim VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing item_sim insert: %w", err)
	}
	defer stmt.Close()

	for _, s := range tables.Similarities {
		if _, err := stmt.ExecContext(ctx, s.ItemID, s.NeighborItemID,
			s.Score, tables.ModelVersion); err != nil {
			return fmt.Errorf("inserting similarity: %w", err)
		}
	}
	return nil
}

func writeTopN(ctx context.Context, tx *sql.Tx, tables Tables) error {
	_, err := tx.ExecContext(ctx, `
		CREATE OR REPLACE TABLE user_topn (
			user_id       VARCHAR NOT NULL,
			rank          INTEGER NOT NULL,
			item_id       VARCHAR NOT NULL,
			score         DOUBLE NOT NULL,
			is_fallback   BOOLEAN NOT NULL,
			model_version VARCHAR NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("creating user_topn: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO user_topn VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing user_topn insert: %w", err)
	}
	defer stmt.Close()

	for _, u := range tables.TopN {
		for rank, item := range u.Items {
			if _, err := stmt.ExecContext(ctx, u.UserID, rank+1, item.ItemID,
				item.Score, u.IsFallback, u.ModelVersion); err != nil {
				return fmt.Errorf("inserting top-n row: %w", err)
			}
		}
	}
	return nil
}

func writeMetrics(ctx context.Context, tx *sql.Tx, tables Tables) error {
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS model_metrics (
			model_version  VARCHAR NOT NULL,
			precision_at_k DOUBLE NOT NULL,
			map_at_k       DOUBLE NOT NULL,
			recall_at_k    DOUBLE NOT NULL,
			coverage       DOUBLE NOT NULL,
			evaluated_at   TIMESTAMP NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("creating model_metrics: %w", err)
	}

	m := tables.Metrics
	_, err = tx.ExecContext(ctx,
		`INSERT INTO model_metrics VALUES (?, ?, ?, ?, ?, ?)`,
		m.ModelVersion, m.PrecisionAtK, m.MAPAtK, m.RecallAtK, m.Coverage, m.EvaluatedAt)
	if err != nil {
		return fmt.Errorf("inserting metrics: %w", err)
	}
	return nil
}
