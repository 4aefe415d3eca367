// NextBasket - Cross-Sell Recommendation Analytics Pipeline
// Copyright 2026 NextBasket Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextbasket/nextbasket

// Package artifact persists the gold tables of one pipeline run. Each sink
// writes all four tables or nothing: a failed run must never leave a
// partially replaced model behind.
package artifact

import (
	"context"

	"github.com/nextbasket/nextbasket/internal/models"
)

// Tables bundles one run's complete gold output.
type Tables struct {
	ModelVersion string

	Rules        []models.AssociationRule
	Similarities []models.ItemSimilarity
	TopN         []models.UserTopN
	Metrics      models.ModelMetrics

	// Products enriches serialized rows with display names; missing
	// items serialize with an empty name.
	Products map[string]models.Product
}

// name returns the display name for an item, or "" when the catalog does not
// know it.
func (t Tables) name(itemID string) string {
	return t.Products[itemID].Name
}

// Writer is one gold sink. Write replaces the previous run's tables
// atomically with respect to readers of the sink.
type Writer interface {
	Write(ctx context.Context, tables Tables) error
}
