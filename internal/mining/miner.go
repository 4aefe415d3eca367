// NextBasket - Cross-Sell Recommendation Analytics Pipeline
// Copyright 2026 NextBasket Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextbasket/nextbasket

// Package mining discovers frequent itemsets in purchase baskets with
// FP-Growth and derives association rules from them. Output ordering is
// fully deterministic so repeated runs over the same baskets produce
// byte-identical artifacts.
package mining

import (
	"math"
	"sort"
	"strings"

	"github.com/nextbasket/nextbasket/internal/models"
)

// Config bounds the search and filters the resulting rules.
type Config struct {
	// MinSupport is the minimum fraction of baskets an itemset must
	// appear in, in (0, 1].
	MinSupport float64

	// MinConfidence is the minimum conditional probability of the
	// consequent given the antecedent, in (0, 1].
	MinConfidence float64

	// MinLift is the minimum ratio of confidence to the consequent's
	// baseline support. Values above 1 indicate positive association.
	MinLift float64

	// MaxItemsetSize caps the number of items per frequent itemset,
	// bounding conditional tree depth.
	MaxItemsetSize int
}

// DefaultConfig returns the thresholds used when none are configured.
func DefaultConfig() Config {
	return Config{
		MinSupport:     0.1,
		MinConfidence:  0.3,
		MinLift:        1.0,
		MaxItemsetSize: 4,
	}
}

// FrequentItemset is one itemset that met the support threshold. Items are
// sorted ascending.
type FrequentItemset struct {
	Items   []string
	Support float64
}

// Result carries the mined itemsets and the rules derived from them.
type Result struct {
	Itemsets []FrequentItemset
	Rules    []models.AssociationRule
}

// itemsetKey separator; never appears in item ids.
const keySep = "\x1f"

// Mine runs FP-Growth over the baskets and generates association rules.
// Baskets with fewer than two items still contribute to item supports but
// cannot produce rules. Empty input yields an empty result.
func Mine(baskets []models.Basket, cfg Config) Result {
	if len(baskets) == 0 {
		return Result{}
	}

	n := len(baskets)
	// Smallest integer count whose fraction of n is >= MinSupport.
	minCount := int(math.Ceil(cfg.MinSupport*float64(n) - 1e-9))
	if minCount < 1 {
		minCount = 1
	}

	txs := make([]transaction, 0, n)
	for _, b := range baskets {
		txs = append(txs, transaction{items: b.ItemIDs, count: 1})
	}

	supports := make(map[string]int)
	tree := buildFPTree(txs, minCount)
	mineTree(tree, nil, minCount, cfg.MaxItemsetSize, supports)

	itemsets := collectItemsets(supports, n)
	rules := generateRules(supports, n, cfg)

	return Result{Itemsets: itemsets, Rules: rules}
}

// mineTree recursively extracts frequent itemsets from a (conditional)
// FP-tree. prefix holds the suffix items already fixed by outer recursion
// levels; every frequent item in this tree extends it by one.
func mineTree(t *fpTree, prefix []string, minCount, maxSize int, supports map[string]int) {
	for _, item := range t.headerItems() {
		itemset := append(append([]string(nil), prefix...), item)
		supports[canonicalKey(itemset)] = t.counts[item]

		if len(itemset) >= maxSize {
			continue
		}

		base := t.conditionalBase(item)
		if len(base) == 0 {
			continue
		}
		cond := buildFPTree(base, minCount)
		if len(cond.counts) == 0 {
			continue
		}
		mineTree(cond, itemset, minCount, maxSize, supports)
	}
}

// canonicalKey builds an order-independent map key for an itemset.
func canonicalKey(items []string) string {
	sorted := append([]string(nil), items...)
	sort.Strings(sorted)
	return strings.Join(sorted, keySep)
}

func splitKey(key string) []string {
	return strings.Split(key, keySep)
}

// collectItemsets converts the support map into a sorted listing, smallest
// itemsets first, ties by lexicographic item order.
func collectItemsets(supports map[string]int, n int) []FrequentItemset {
	itemsets := make([]FrequentItemset, 0, len(supports))
	for key, count := range supports {
		itemsets = append(itemsets, FrequentItemset{
			Items:   splitKey(key),
			Support: float64(count) / float64(n),
		})
	}
	sort.Slice(itemsets, func(i, j int) bool {
		a, b := itemsets[i].Items, itemsets[j].Items
		if len(a) != len(b) {
			return len(a) < len(b)
		}
		for k := range a {
			if a[k] != b[k] {
				return a[k] < b[k]
			}
		}
		return false
	})
	return itemsets
}

// generateRules enumerates every antecedent/consequent split of each
// frequent itemset of size >= 2 and keeps the rules that clear the
// confidence and lift thresholds. Subset supports are guaranteed present by
// support monotonicity; a missing lookup is skipped defensively rather than
// trusted.
func generateRules(supports map[string]int, n int, cfg Config) []models.AssociationRule {
	var rules []models.AssociationRule
	total := float64(n)

	for key, count := range supports {
		items := splitKey(key)
		if len(items) < 2 {
			continue
		}
		itemsetSupport := float64(count) / total

		for mask := 1; mask < (1 << len(items)); mask++ {
			if mask == (1<<len(items))-1 {
				continue // consequent must be non-empty
			}
			var antecedent, consequent []string
			for i, item := range items {
				if mask&(1<<i) != 0 {
					antecedent = append(antecedent, item)
				} else {
					consequent = append(consequent, item)
				}
			}

			aCount, ok := supports[canonicalKey(antecedent)]
			if !ok || aCount == 0 {
				continue
			}
			cCount, ok := supports[canonicalKey(consequent)]
			if !ok || cCount == 0 {
				continue
			}

			confidence := float64(count) / float64(aCount)
			if confidence < cfg.MinConfidence {
				continue
			}
			lift := confidence / (float64(cCount) / total)
			if lift < cfg.MinLift {
				continue
			}

			rules = append(rules, models.AssociationRule{
				Antecedent: antecedent,
				Consequent: consequent,
				Support:    itemsetSupport,
				Confidence: confidence,
				Lift:       lift,
			})
		}
	}

	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Lift != rules[j].Lift {
			return rules[i].Lift > rules[j].Lift
		}
		if rules[i].Confidence != rules[j].Confidence {
			return rules[i].Confidence > rules[j].Confidence
		}
		if c := compareItems(rules[i].Antecedent, rules[j].Antecedent); c != 0 {
			return c < 0
		}
		return compareItems(rules[i].Consequent, rules[j].Consequent) < 0
	})

	return rules
}

// compareItems orders two sorted item slices lexicographically, shorter
// prefix first.
func compareItems(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return len(a) - len(b)
}
