// NextBasket - Cross-Sell Recommendation Analytics Pipeline
// Copyright 2026 NextBasket Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextbasket/nextbasket

// Package blend merges the similarity model and the mined rules into ranked
// per-user recommendation lists, with a global-popularity fallback for users
// who have no purchase history.
package blend

import (
	"sort"

	"github.com/nextbasket/nextbasket/internal/models"
	"github.com/nextbasket/nextbasket/internal/similarity"
)

// Config holds the blending weights and list length.
type Config struct {
	// TopN is the maximum list length per user.
	TopN int

	// CFWeight scales the collaborative-filtering component: the user's
	// maximum similarity between the candidate and any purchased item.
	CFWeight float64

	// RuleWeight scales the rule component: the maximum confidence*lift
	// over rules whose antecedent overlaps the user's purchases and
	// whose consequent contains the candidate.
	RuleWeight float64
}

// DefaultConfig returns equal-weight blending with five slots.
func DefaultConfig() Config {
	return Config{TopN: 5, CFWeight: 0.5, RuleWeight: 0.5}
}

// Blender scores candidates for one run. It is immutable after construction
// and safe for concurrent use.
type Blender struct {
	cfg   Config
	model *similarity.Model
	rules []models.AssociationRule

	// popular is the global popularity ranking used for cold-start
	// users, already truncated, sorted and score-carrying.
	popular []models.RankedItem
}

// New builds a Blender over the run's models. popularity maps item id to its
// basket purchase count across all users.
func New(model *similarity.Model, rules []models.AssociationRule, popularity map[string]int, cfg Config) *Blender {
	return &Blender{
		cfg:     cfg,
		model:   model,
		rules:   rules,
		popular: popularityRanking(popularity, cfg.TopN),
	}
}

// BuildAll produces one list per user, sorted by user id. purchases maps
// each user to their distinct purchased item ids; users absent from the map
// or mapped to an empty slice get the popularity fallback.
func (b *Blender) BuildAll(users []string, purchases map[string][]string, modelVersion string) []models.UserTopN {
	sorted := append([]string(nil), users...)
	sort.Strings(sorted)

	lists := make([]models.UserTopN, 0, len(sorted))
	for _, user := range sorted {
		lists = append(lists, b.Build(user, purchases[user], modelVersion))
	}
	return lists
}

// Build produces the ranked list for a single user.
func (b *Blender) Build(userID string, purchased []string, modelVersion string) models.UserTopN {
	if len(purchased) == 0 {
		return models.UserTopN{
			UserID:       userID,
			Items:        append([]models.RankedItem(nil), b.popular...),
			ModelVersion: modelVersion,
			IsFallback:   true,
		}
	}

	owned := make(map[string]struct{}, len(purchased))
	for _, item := range purchased {
		owned[item] = struct{}{}
	}

	cfScores := b.cfComponent(purchased, owned)
	ruleScores := b.ruleComponent(owned)

	candidates := make(map[string]float64, len(cfScores)+len(ruleScores))
	for item, s := range cfScores {
		candidates[item] += b.cfg.CFWeight * s
	}
	for item, s := range ruleScores {
		candidates[item] += b.cfg.RuleWeight * s
	}

	items := make([]models.RankedItem, 0, len(candidates))
	for item, score := range candidates {
		items = append(items, models.RankedItem{ItemID: item, Score: score})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].ItemID < items[j].ItemID
	})
	if b.cfg.TopN > 0 && len(items) > b.cfg.TopN {
		items = items[:b.cfg.TopN]
	}

	return models.UserTopN{
		UserID:       userID,
		Items:        items,
		ModelVersion: modelVersion,
		IsFallback:   false,
	}
}

// cfComponent collects, per unowned candidate, the maximum similarity to any
// item in the purchase history.
func (b *Blender) cfComponent(purchased []string, owned map[string]struct{}) map[string]float64 {
	scores := make(map[string]float64)
	for _, item := range purchased {
		for _, n := range b.model.NeighborsOf(item) {
			if _, ok := owned[n.NeighborItemID]; ok {
				continue
			}
			if n.Score > scores[n.NeighborItemID] {
				scores[n.NeighborItemID] = n.Score
			}
		}
	}
	return scores
}

// ruleComponent collects, per unowned consequent item, the maximum
// confidence*lift over rules whose antecedent shares at least one item with
// the purchase history.
func (b *Blender) ruleComponent(owned map[string]struct{}) map[string]float64 {
	scores := make(map[string]float64)
	for _, rule := range b.rules {
		applicable := false
		for _, a := range rule.Antecedent {
			if _, ok := owned[a]; ok {
				applicable = true
				break
			}
		}
		if !applicable {
			continue
		}
		boost := rule.Confidence * rule.Lift
		for _, c := range rule.Consequent {
			if _, ok := owned[c]; ok {
				continue
			}
			if boost > scores[c] {
				scores[c] = boost
			}
		}
	}
	return scores
}

// popularityRanking turns basket purchase counts into the cold-start list:
// descending count, ties by ascending item id, truncated to topN. Scores are
// the raw counts so consumers can see relative popularity.
func popularityRanking(popularity map[string]int, topN int) []models.RankedItem {
	ranked := make([]models.RankedItem, 0, len(popularity))
	for item, count := range popularity {
		ranked = append(ranked, models.RankedItem{ItemID: item, Score: float64(count)})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].ItemID < ranked[j].ItemID
	})
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}
