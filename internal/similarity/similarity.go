// NextBasket - Cross-Sell Recommendation Analytics Pipeline
// Copyright 2026 NextBasket Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextbasket/nextbasket

// Package similarity builds the item-item similarity model from implicit
// purchase feedback. Each item becomes a vector of per-user interaction
// weights; similarity is the cosine between vectors, computed only for item
// pairs that share at least one user so the quadratic pair space is never
// materialized.
package similarity

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/nextbasket/nextbasket/internal/models"
)

// Config controls vector construction and neighbor selection.
type Config struct {
	// TopKNeighbors caps the neighbor list kept per item.
	TopKNeighbors int

	// RecencyHalfLifeDays is the exponential decay half-life applied to
	// interaction weights. Zero or negative disables decay.
	RecencyHalfLifeDays float64

	// Workers is the number of goroutines scoring item pairs. Values
	// below 1 fall back to 1.
	Workers int
}

// DefaultConfig returns the neighbor model defaults.
func DefaultConfig() Config {
	return Config{
		TopKNeighbors:       10,
		RecencyHalfLifeDays: 90,
		Workers:             4,
	}
}

// Model is the computed neighborhood: for each item, its top-K most similar
// items by cosine score.
type Model struct {
	// Neighbors maps item id to its neighbor list, sorted by descending
	// score, ties by ascending neighbor id.
	Neighbors map[string][]models.ItemSimilarity
}

// Rows flattens the model into directed similarity rows, ordered by item id
// then neighbor rank.
func (m *Model) Rows() []models.ItemSimilarity {
	items := make([]string, 0, len(m.Neighbors))
	for item := range m.Neighbors {
		items = append(items, item)
	}
	sort.Strings(items)

	var rows []models.ItemSimilarity
	for _, item := range items {
		rows = append(rows, m.Neighbors[item]...)
	}
	return rows
}

// NeighborsOf returns the neighbor list for an item, or nil for unknown
// items.
func (m *Model) NeighborsOf(itemID string) []models.ItemSimilarity {
	return m.Neighbors[itemID]
}

// pair is one undirected scored item pair, i < j by index.
type pair struct {
	i, j  int
	score float64
}

// Compute builds the item-item model from conformed orders. reference
// anchors the recency decay; it is normally the newest order timestamp of
// the run. Items bought by a single user still get vectors; pairs sharing no
// user are omitted entirely rather than emitted with score zero.
func Compute(orders []models.Order, reference time.Time, cfg Config) *Model {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	vectors := buildVectors(orders, reference, cfg.RecencyHalfLifeDays)
	if len(vectors) == 0 {
		return &Model{Neighbors: map[string][]models.ItemSimilarity{}}
	}

	items := make([]string, 0, len(vectors))
	for item := range vectors {
		items = append(items, item)
	}
	sort.Strings(items)

	index := make(map[string]int, len(items))
	norms := make([]float64, len(items))
	for i, item := range items {
		index[item] = i
		var sum float64
		for _, w := range vectors[item] {
			sum += w * w
		}
		norms[i] = math.Sqrt(sum)
	}

	// Inverted index: user -> item indices, for candidate generation.
	byUser := make(map[string][]int)
	for i, item := range items {
		for user := range vectors[item] {
			byUser[user] = append(byUser[user], i)
		}
	}

	pairs := scorePairs(items, vectors, norms, byUser, cfg.Workers)

	neighbors := make(map[string][]models.ItemSimilarity, len(items))
	for _, p := range pairs {
		a, b := items[p.i], items[p.j]
		neighbors[a] = append(neighbors[a], models.ItemSimilarity{
			ItemID: a, NeighborItemID: b, Score: p.score,
		})
		neighbors[b] = append(neighbors[b], models.ItemSimilarity{
			ItemID: b, NeighborItemID: a, Score: p.score,
		})
	}

	for item, list := range neighbors {
		sort.Slice(list, func(i, j int) bool {
			if list[i].Score != list[j].Score {
				return list[i].Score > list[j].Score
			}
			return list[i].NeighborItemID < list[j].NeighborItemID
		})
		if cfg.TopKNeighbors > 0 && len(list) > cfg.TopKNeighbors {
			list = list[:cfg.TopKNeighbors]
		}
		neighbors[item] = list
	}

	return &Model{Neighbors: neighbors}
}

// buildVectors accumulates the per-user interaction weight of each item:
// quantity scaled by 2^(-age/halfLife) relative to the reference time.
func buildVectors(orders []models.Order, reference time.Time, halfLife float64) map[string]map[string]float64 {
	vectors := make(map[string]map[string]float64)
	for _, o := range orders {
		weight := float64(o.Quantity)
		if halfLife > 0 {
			ageDays := reference.Sub(o.Timestamp).Hours() / 24
			if ageDays < 0 {
				ageDays = 0
			}
			weight *= math.Exp2(-ageDays / halfLife)
		}
		v, ok := vectors[o.ItemID]
		if !ok {
			v = make(map[string]float64)
			vectors[o.ItemID] = v
		}
		v[o.UserID] += weight
	}
	return vectors
}

// scorePairs fans the item index space out over workers. Each worker scores
// the pairs whose lower index it owns; per-worker results are merged and
// sorted afterwards so parallelism never perturbs output order.
func scorePairs(items []string, vectors map[string]map[string]float64, norms []float64, byUser map[string][]int, workers int) []pair {
	results := make([][]pair, workers)
	indices := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := range indices {
				results[w] = append(results[w], scoreItem(i, items, vectors, norms, byUser)...)
			}
		}(w)
	}
	for i := range items {
		indices <- i
	}
	close(indices)
	wg.Wait()

	var pairs []pair
	for _, r := range results {
		pairs = append(pairs, r...)
	}
	sort.Slice(pairs, func(a, b int) bool {
		if pairs[a].i != pairs[b].i {
			return pairs[a].i < pairs[b].i
		}
		return pairs[a].j < pairs[b].j
	})
	return pairs
}

// scoreItem computes the cosine between item i and every co-occurring item
// with a higher index, so each undirected pair is scored exactly once.
func scoreItem(i int, items []string, vectors map[string]map[string]float64, norms []float64, byUser map[string][]int) []pair {
	vi := vectors[items[i]]

	candidates := make(map[int]struct{})
	for user := range vi {
		for _, j := range byUser[user] {
			if j > i {
				candidates[j] = struct{}{}
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	pairs := make([]pair, 0, len(candidates))
	for j := range candidates {
		vj := vectors[items[j]]
		// Iterate the smaller vector.
		a, b := vi, vj
		if len(b) < len(a) {
			a, b = b, a
		}
		var dot float64
		for user, w := range a {
			if w2, ok := b[user]; ok {
				dot += w * w2
			}
		}
		if dot == 0 {
			continue
		}
		if denom := norms[i] * norms[j]; denom > 0 {
			pairs = append(pairs, pair{i: i, j: j, score: dot / denom})
		}
	}
	return pairs
}
