// NextBasket - Cross-Sell Recommendation Analytics Pipeline
// Copyright 2026 NextBasket Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextbasket/nextbasket

package blend

import (
	"math"
	"testing"

	"github.com/nextbasket/nextbasket/internal/models"
	"github.com/nextbasket/nextbasket/internal/similarity"
)

func modelWith(neighbors map[string][]models.ItemSimilarity) *similarity.Model {
	return &similarity.Model{Neighbors: neighbors}
}

func emptyModel() *similarity.Model {
	return modelWith(map[string][]models.ItemSimilarity{})
}

func TestBuildColdStartFallback(t *testing.T) {
	popularity := map[string]int{"A": 5, "B": 9, "C": 2, "D": 9}
	b := New(emptyModel(), nil, popularity, Config{TopN: 3, CFWeight: 0.5, RuleWeight: 0.5})

	got := b.Build("ghost", nil, "v1")
	if !got.IsFallback {
		t.Fatal("cold-start user not flagged as fallback")
	}
	if got.ModelVersion != "v1" {
		t.Errorf("model version = %q, want v1", got.ModelVersion)
	}
	// B and D tie at 9; ascending id puts B first.
	wantOrder := []string{"B", "D", "A"}
	if len(got.Items) != len(wantOrder) {
		t.Fatalf("items = %+v, want %d entries", got.Items, len(wantOrder))
	}
	for i, want := range wantOrder {
		if got.Items[i].ItemID != want {
			t.Errorf("item[%d] = %s, want %s", i, got.Items[i].ItemID, want)
		}
	}
}

func TestBuildCFOnly(t *testing.T) {
	m := modelWith(map[string][]models.ItemSimilarity{
		"A": {
			{ItemID: "A", NeighborItemID: "B", Score: 0.8},
			{ItemID: "A", NeighborItemID: "C", Score: 0.4},
		},
	})
	b := New(m, nil, nil, Config{TopN: 5, CFWeight: 1.0, RuleWeight: 0.0})

	got := b.Build("u1", []string{"A"}, "v1")
	if got.IsFallback {
		t.Fatal("user with history flagged as fallback")
	}
	if len(got.Items) != 2 {
		t.Fatalf("items = %+v, want 2", got.Items)
	}
	if got.Items[0].ItemID != "B" || math.Abs(got.Items[0].Score-0.8) > 1e-9 {
		t.Errorf("top item = %+v, want B at 0.8", got.Items[0])
	}
}

func TestBuildExcludesPurchased(t *testing.T) {
	m := modelWith(map[string][]models.ItemSimilarity{
		"A": {
			{ItemID: "A", NeighborItemID: "B", Score: 0.9},
			{ItemID: "A", NeighborItemID: "C", Score: 0.5},
		},
		"B": {
			{ItemID: "B", NeighborItemID: "A", Score: 0.9},
		},
	})
	rules := []models.AssociationRule{
		{Antecedent: []string{"A"}, Consequent: []string{"B"}, Confidence: 0.9, Lift: 1.5},
	}
	b := New(m, rules, nil, Config{TopN: 5, CFWeight: 0.5, RuleWeight: 0.5})

	got := b.Build("u1", []string{"A", "B"}, "v1")
	for _, item := range got.Items {
		if item.ItemID == "A" || item.ItemID == "B" {
			t.Errorf("already-purchased item %s recommended", item.ItemID)
		}
	}
}

func TestBuildBlendsBothSignals(t *testing.T) {
	m := modelWith(map[string][]models.ItemSimilarity{
		"A": {{ItemID: "A", NeighborItemID: "C", Score: 0.6}},
	})
	rules := []models.AssociationRule{
		{Antecedent: []string{"A"}, Consequent: []string{"C"}, Confidence: 0.5, Lift: 2.0},
	}
	b := New(m, rules, nil, Config{TopN: 5, CFWeight: 0.5, RuleWeight: 0.5})

	got := b.Build("u1", []string{"A"}, "v1")
	if len(got.Items) != 1 || got.Items[0].ItemID != "C" {
		t.Fatalf("items = %+v, want single C", got.Items)
	}
	// 0.5*0.6 + 0.5*(0.5*2.0) = 0.3 + 0.5 = 0.8
	if math.Abs(got.Items[0].Score-0.8) > 1e-9 {
		t.Errorf("blended score = %v, want 0.8", got.Items[0].Score)
	}
}

func TestBuildRuleAntecedentIntersection(t *testing.T) {
	rules := []models.AssociationRule{
		// Antecedent {A,X}: owning A alone is enough.
		{Antecedent: []string{"A", "X"}, Consequent: []string{"C"}, Confidence: 0.6, Lift: 1.2},
		// Antecedent {Y}: no overlap with purchases, must not fire.
		{Antecedent: []string{"Y"}, Consequent: []string{"D"}, Confidence: 0.9, Lift: 3.0},
	}
	b := New(emptyModel(), rules, nil, Config{TopN: 5, CFWeight: 0.5, RuleWeight: 1.0})

	got := b.Build("u1", []string{"A"}, "v1")
	if len(got.Items) != 1 || got.Items[0].ItemID != "C" {
		t.Fatalf("items = %+v, want only C", got.Items)
	}
}

func TestBuildMaxOverRules(t *testing.T) {
	rules := []models.AssociationRule{
		{Antecedent: []string{"A"}, Consequent: []string{"C"}, Confidence: 0.4, Lift: 1.0},
		{Antecedent: []string{"B"}, Consequent: []string{"C"}, Confidence: 0.8, Lift: 1.5},
	}
	b := New(emptyModel(), rules, nil, Config{TopN: 5, CFWeight: 0.0, RuleWeight: 1.0})

	got := b.Build("u1", []string{"A", "B"}, "v1")
	if len(got.Items) != 1 {
		t.Fatalf("items = %+v, want single C", got.Items)
	}
	// max(0.4*1.0, 0.8*1.5) = 1.2
	if math.Abs(got.Items[0].Score-1.2) > 1e-9 {
		t.Errorf("score = %v, want max rule boost 1.2", got.Items[0].Score)
	}
}

func TestBuildOrderingAndTruncation(t *testing.T) {
	m := modelWith(map[string][]models.ItemSimilarity{
		"A": {
			{ItemID: "A", NeighborItemID: "B", Score: 0.5},
			{ItemID: "A", NeighborItemID: "C", Score: 0.5},
			{ItemID: "A", NeighborItemID: "D", Score: 0.9},
			{ItemID: "A", NeighborItemID: "E", Score: 0.1},
		},
	})
	b := New(m, nil, nil, Config{TopN: 3, CFWeight: 1.0, RuleWeight: 0.0})

	got := b.Build("u1", []string{"A"}, "v1")
	wantOrder := []string{"D", "B", "C"} // 0.9, then the 0.5 tie by id
	if len(got.Items) != len(wantOrder) {
		t.Fatalf("items = %+v, want %d", got.Items, len(wantOrder))
	}
	for i, want := range wantOrder {
		if got.Items[i].ItemID != want {
			t.Errorf("item[%d] = %s, want %s", i, got.Items[i].ItemID, want)
		}
	}
	for i := 1; i < len(got.Items); i++ {
		if got.Items[i].Score > got.Items[i-1].Score {
			t.Fatal("scores not non-increasing")
		}
	}
}

func TestBuildAllSortedByUser(t *testing.T) {
	b := New(emptyModel(), nil, map[string]int{"A": 1}, DefaultConfig())
	purchases := map[string][]string{"u2": {"A"}}

	lists := b.BuildAll([]string{"u3", "u1", "u2"}, purchases, "v1")
	if len(lists) != 3 {
		t.Fatalf("got %d lists, want 3", len(lists))
	}
	for i, want := range []string{"u1", "u2", "u3"} {
		if lists[i].UserID != want {
			t.Errorf("list[%d] user = %s, want %s", i, lists[i].UserID, want)
		}
	}
	if !lists[0].IsFallback || lists[1].IsFallback || !lists[2].IsFallback {
		t.Errorf("fallback flags wrong: %+v", lists)
	}
}

func TestBuildHistoryUserNoCandidates(t *testing.T) {
	// A user with history but no neighbors and no applicable rules gets
	// an empty list, not the popularity fallback.
	b := New(emptyModel(), nil, map[string]int{"Z": 10}, DefaultConfig())

	got := b.Build("u1", []string{"A"}, "v1")
	if got.IsFallback {
		t.Error("history user flagged as fallback")
	}
	if len(got.Items) != 0 {
		t.Errorf("items = %+v, want empty", got.Items)
	}
}
