// NextBasket - Cross-Sell Recommendation Analytics Pipeline
// Copyright 2026 NextBasket Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextbasket/nextbasket

// Package models defines the typed records flowing through the pipeline.
//
// Raw records arrive from the ingestion edge with string timestamps and no
// guarantees; conformed entities are produced by the conform package and are
// immutable once emitted. Each pipeline run produces fresh snapshots keyed by
// model version; nothing is mutated in place across runs.
package models

import "time"

// OrderRecord is a raw order line as decoded from the ingestion source.
// Fields are unvalidated; the conform stage turns these into Orders or
// rejections.
type OrderRecord struct {
	// OrderID groups lines belonging to one checkout.
	OrderID string `json:"order_id" validate:"required"`

	// UserID is the purchasing customer.
	UserID string `json:"user_id" validate:"required"`

	// ItemID is the purchased product.
	ItemID string `json:"item_id" validate:"required"`

	// Quantity is the number of units. Must be positive to conform.
	Quantity int `json:"quantity" validate:"gt=0"`

	// Price is the unit price at time of purchase. Must be non-negative.
	Price float64 `json:"price" validate:"gte=0"`

	// Timestamp is the order time as an RFC 3339 string.
	Timestamp string `json:"timestamp" validate:"required,rfc3339"`

	// Channel is the sales channel (web, store, app). Optional.
	Channel string `json:"channel"`
}

// Order is a conformed, deduplicated order line.
type Order struct {
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	ItemID    string    `json:"item_id"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
	Channel   string    `json:"channel"`
}

// Revenue returns the monetary value of this line.
func (o Order) Revenue() float64 {
	return o.Price * float64(o.Quantity)
}

// ProductRecord is a raw catalog row.
type ProductRecord struct {
	ItemID      string  `json:"item_id" validate:"required"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Brand       string  `json:"brand"`
	BasePrice   float64 `json:"base_price" validate:"gte=0"`
}

// Product is a conformed catalog entry. The catalog is rebuilt per run from an
// ordered merge of input rows, last writer wins per ItemID.
type Product struct {
	ItemID      string  `json:"item_id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Subcategory string  `json:"subcategory"`
	Brand       string  `json:"brand"`
	BasePrice   float64 `json:"base_price"`
}

// CustomerRecord is a raw customer row.
type CustomerRecord struct {
	UserID      string `json:"user_id" validate:"required"`
	Segment     string `json:"segment"`
	LoyaltyTier string `json:"loyalty_tier"`
}

// Customer is a conformed customer dimension entry with RFM features derived
// from the conformed order set.
type Customer struct {
	UserID      string `json:"user_id"`
	Segment     string `json:"segment"`
	LoyaltyTier string `json:"loyalty_tier"`

	// RecencyDays is the number of days since the most recent order,
	// relative to the run's reference date.
	RecencyDays int `json:"recency_days"`

	// Frequency is the distinct order count.
	Frequency int `json:"frequency"`

	// Monetary is the total spend (sum of price x quantity).
	Monetary float64 `json:"monetary"`

	// RFMScore combines per-dimension bucket scores, e.g. "R3F2M1".
	RFMScore string `json:"rfm_score"`
}

// Basket is the unordered set of distinct items purchased together within one
// transaction scope. ItemIDs are sorted ascending for determinism.
type Basket struct {
	// Key identifies the transaction group (order_id, or user_id+day in
	// session mode).
	Key string `json:"key"`

	// UserID is the purchasing customer for this basket.
	UserID string `json:"user_id"`

	// ItemIDs holds the distinct items, sorted ascending.
	ItemIDs []string `json:"item_ids"`
}

// Contains reports whether the basket holds the given item.
func (b Basket) Contains(itemID string) bool {
	for _, id := range b.ItemIDs {
		if id == itemID {
			return true
		}
	}
	return false
}

// AssociationRule is a mined co-purchase rule. Antecedent and Consequent are
// sorted ascending and disjoint.
type AssociationRule struct {
	Antecedent []string `json:"antecedent"`
	Consequent []string `json:"consequent"`
	Support    float64  `json:"support"`
	Confidence float64  `json:"confidence"`
	Lift       float64  `json:"lift"`
}

// ItemSimilarity is one directed row of the symmetric item-item similarity
// table. Score is cosine similarity in [0, 1]; ItemID != NeighborItemID.
type ItemSimilarity struct {
	ItemID         string  `json:"item_id"`
	NeighborItemID string  `json:"neighbor_item_id"`
	Score          float64 `json:"score"`
}

// RankedItem is one entry of a user's top-N list.
type RankedItem struct {
	ItemID string  `json:"item_id"`
	Score  float64 `json:"score"`
}

// UserTopN is the ranked recommendation list for one user. Items are strictly
// ordered by descending score, ties broken by ascending item id.
type UserTopN struct {
	UserID       string       `json:"user_id"`
	Items        []RankedItem `json:"items"`
	ModelVersion string       `json:"model_version"`

	// IsFallback marks cold-start users whose list is built purely from
	// global popularity.
	IsFallback bool `json:"is_fallback"`
}

/// ModelMetrics is the evaluation record for one pipeline run. Append-only:
// one record per run.
type ModelMetrics struct {
	ModelVersion string    `json:"model_version"`
	PrecisionAtK float64   `json:"precision_at_k"`
	RecallAtK    float64   `json:"recall_at_k"`
	MAPAtK       float64   `json:"map_at_k"`
	Coverage     float64   `json:"coverage"`
	EvaluatedAt  time.Time `json:"evaluated_at"`
}
