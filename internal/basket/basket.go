// NextBasket - Cross-Sell Recommendation Analytics Pipeline
// Copyright 2026 NextBasket Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextbasket/nextbasket

// Package basket groups conformed orders into transactions for itemset
// mining. A basket is the set of distinct items co-occurring within one
// transaction scope; multiplicity collapses (an item repeated in one order
// counts once).
package basket

import (
	"sort"

	"github.com/nextbasket/nextbasket/internal/models"
)

// GroupMode selects the transaction scope.
type GroupMode string

const (
	// GroupByOrder produces one basket per order_id.
	GroupByOrder GroupMode = "order"

	// GroupBySession produces one basket per user_id and calendar day
	// (UTC), approximating a shopping session.
	GroupBySession GroupMode = "session"
)

// Build groups orders into baskets. Baskets with fewer than two items are
// retained; they simply contribute no 2+-itemsets downstream. Output is
// sorted by basket key and item ids within each basket are sorted ascending,
// so identical input always yields identical output.
func Build(orders []models.Order, mode GroupMode) []models.Basket {
	type group struct {
		userID string
		items  map[string]struct{}
	}
	groups := make(map[string]*group)

	for _, o := range orders {
		key := o.OrderID
		if mode == GroupBySession {
			key = o.UserID + "/" + o.Timestamp.UTC().Format("2006-01-02")
		}

		g := groups[key]
		if g == nil {
			g = &group{userID: o.UserID, items: make(map[string]struct{})}
			groups[key] = g
		}
		g.items[o.ItemID] = struct{}{}
	}

	baskets := make([]models.Basket, 0, len(groups))
	for key, g := range groups {
		items := make([]string, 0, len(g.items))
		for id := range g.items {
			items = append(items, id)
		}
		sort.Strings(items)

		baskets = append(baskets, models.Basket{
			Key:     key,
			UserID:  g.userID,
			ItemIDs: items,
		})
	}

	sort.Slice(baskets, func(i, j int) bool {
		return baskets[i].Key < baskets[j].Key
	})

	return baskets
}

// Popularity counts, per item, the number of baskets containing it. Used by
// the blender's cold-start fallback.
func Popularity(baskets []models.Basket) map[string]int {
	counts := make(map[string]int)
	for _, b := range baskets {
		for _, id := range b.ItemIDs {
			counts[id]++
		}
	}
	return counts
}
