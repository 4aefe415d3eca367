// NextBasket - Cross-Sell Recommendation Analytics Pipeline
// Copyright 2026 NextBasket Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextbasket/nextbasket

package mining

import "sort"

// The FP-tree is stored as an arena of nodes addressed by index. Node 0 is
// the root; parents are arena indices rather than pointers so ownership and
// termination stay obvious when mining conditional trees recursively.

type fpNode struct {
	item     string
	count    int
	parent   int
	children map[string]int
}

type fpTree struct {
	nodes []fpNode

	// header links each frequent item to every arena node carrying it.
	header map[string][]int

	// counts holds the total (weighted) support count per frequent item.
	counts map[string]int
}

// transaction is one (possibly weighted) itemset. Conditional pattern bases
// reuse the same shape with count > 1 instead of repeating paths.
type transaction struct {
	items []string
	count int
}

// buildFPTree constructs the prefix tree over transactions, keeping only
// items with weighted count >= minCount. Items within a transaction are
// inserted in descending global count order, ties broken by ascending item
// id, which maximizes prefix sharing and keeps the tree deterministic.
func buildFPTree(txs []transaction, minCount int) *fpTree {
	counts := make(map[string]int)
	for _, tx := range txs {
		for _, item := range tx.items {
			counts[item] += tx.count
		}
	}
	for item, c := range counts {
		if c < minCount {
			delete(counts, item)
		}
	}

	t := &fpTree{
		nodes:  []fpNode{{parent: -1}},
		header: make(map[string][]int, len(counts)),
		counts: counts,
	}

	for _, tx := range txs {
		filtered := make([]string, 0, len(tx.items))
		for _, item := range tx.items {
			if _, ok := counts[item]; ok {
				filtered = append(filtered, item)
			}
		}
		if len(filtered) == 0 {
			continue
		}

		sort.Slice(filtered, func(i, j int) bool {
			ci, cj := counts[filtered[i]], counts[filtered[j]]
			if ci != cj {
				return ci > cj
			}
			return filtered[i] < filtered[j]
		})

		t.insert(filtered, tx.count)
	}

	return t
}

// insert walks one ordered transaction down from the root, creating nodes as
// needed and bumping counts.
func (t *fpTree) insert(items []string, count int) {
	current := 0
	for _, item := range items {
		child, ok := t.nodes[current].children[item]
		if !ok {
			child = len(t.nodes)
			t.nodes = append(t.nodes, fpNode{
				item:   item,
				count:  0,
				parent: current,
			})
			if t.nodes[current].children == nil {
				t.nodes[current].children = make(map[string]int)
			}
			t.nodes[current].children[item] = child
			t.header[item] = append(t.header[item], child)
		}
		t.nodes[child].count += count
		current = child
	}
}

// pathTo returns the items on the path from the node's parent up to (not
// including) the root, in root-to-leaf order.
func (t *fpTree) pathTo(idx int) []string {
	var path []string
	for p := t.nodes[idx].parent; p > 0; p = t.nodes[p].parent {
		path = append(path, t.nodes[p].item)
	}
	// Reverse to root-to-leaf order.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// conditionalBase extracts the weighted prefix paths ending at the given
// item, forming the transactions of its conditional tree.
func (t *fpTree) conditionalBase(item string) []transaction {
	var base []transaction
	for _, idx := range t.header[item] {
		path := t.pathTo(idx)
		if len(path) == 0 {
			continue
		}
		base = append(base, transaction{items: path, count: t.nodes[idx].count})
	}
	return base
}

// headerItems returns the frequent items of this tree sorted by ascending
// count, ties by ascending item id. Mining least-frequent first keeps
// conditional trees small and the traversal order deterministic.
func (t *fpTree) headerItems() []string {
	items := make([]string, 0, len(t.counts))
	for item := range t.counts {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		ci, cj := t.counts[items[i]], t.counts[items[j]]
		if ci != cj {
			return ci < cj
		}
		return items[i] < items[j]
	})
	return items
}
