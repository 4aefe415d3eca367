// NextBasket - Cross-Sell Recommendation Analytics Pipeline
// Copyright 2026 NextBasket Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextbasket/nextbasket

package evaluate

import (
	"math"
	"testing"
	"time"

	"github.com/nextbasket/nextbasket/internal/models"
)

var evalTime = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

func topN(user string, items ...string) models.UserTopN {
	ranked := make([]models.RankedItem, 0, len(items))
	for i, item := range items {
		ranked = append(ranked, models.RankedItem{ItemID: item, Score: float64(len(items) - i)})
	}
	return models.UserTopN{UserID: user, Items: ranked, ModelVersion: "v1"}
}

func truthOf(pairs map[string][]string) map[string]map[string]struct{} {
	truth := make(map[string]map[string]struct{})
	for user, items := range pairs {
		set := make(map[string]struct{})
		for _, item := range items {
			set[item] = struct{}{}
		}
		truth[user] = set
	}
	return truth
}

func TestSplit(t *testing.T) {
	cutoff := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	orders := []models.Order{
		{OrderID: "o1", Timestamp: cutoff.AddDate(0, 0, -1)},
		{OrderID: "o2", Timestamp: cutoff}, // boundary stays in training
		{OrderID: "o3", Timestamp: cutoff.AddDate(0, 0, 1)},
	}

	train, holdout := Split(orders, cutoff)
	if len(train) != 2 {
		t.Errorf("train = %+v, want o1 and o2", train)
	}
	if len(holdout) != 1 || holdout[0].OrderID != "o3" {
		t.Errorf("holdout = %+v, want just o3", holdout)
	}
}

func TestEvaluatePrecisionAtK(t *testing.T) {
	lists := []models.UserTopN{
		topN("u1", "A", "B", "C"), // hits: A, C -> 2/3
		topN("u2", "X", "Y", "Z"), // hits: none -> 0
	}
	truth := truthOf(map[string][]string{
		"u1": {"A", "C"},
		"u2": {"Q"},
	})

	m := Evaluate(lists, truth, 10, 3, "v1", evalTime)
	want := (2.0/3.0 + 0.0) / 2.0
	if math.Abs(m.PrecisionAtK-want) > 1e-9 {
		t.Errorf("precision@3 = %v, want %v", m.PrecisionAtK, want)
	}
}

func TestEvaluateExcludesUsersWithoutTruth(t *testing.T) {
	lists := []models.UserTopN{
		topN("u1", "A"), // truth hit
		topN("u2", "A"), // no truth at all: excluded, not zero
	}
	truth := truthOf(map[string][]string{"u1": {"A"}})

	m := Evaluate(lists, truth, 10, 1, "v1", evalTime)
	if math.Abs(m.PrecisionAtK-1.0) > 1e-9 {
		t.Errorf("precision@1 = %v, want 1.0 (u2 excluded)", m.PrecisionAtK)
	}
}

func TestEvaluateMAPRewardsEarlyHits(t *testing.T) {
	// Same single relevant item; u1 ranks it first, u2 ranks it third.
	lists := []models.UserTopN{topN("u1", "A", "B", "C")}
	truth := truthOf(map[string][]string{"u1": {"A"}})
	early := Evaluate(lists, truth, 10, 3, "v1", evalTime)

	lists = []models.UserTopN{topN("u2", "B", "C", "A")}
	truth = truthOf(map[string][]string{"u2": {"A"}})
	late := Evaluate(lists, truth, 10, 3, "v1", evalTime)

	if early.MAPAtK <= late.MAPAtK {
		t.Errorf("MAP early (%v) should exceed MAP late (%v)", early.MAPAtK, late.MAPAtK)
	}
	if math.Abs(early.MAPAtK-1.0) > 1e-9 {
		t.Errorf("perfect ranking MAP = %v, want 1.0", early.MAPAtK)
	}
	if math.Abs(late.MAPAtK-1.0/3.0) > 1e-9 {
		t.Errorf("third-place MAP = %v, want 1/3", late.MAPAtK)
	}
}

func TestEvaluateMAPMultipleRelevant(t *testing.T) {
	// Relevant {A, C}: hits at ranks 1 and 3.
	// AP = (1/1 + 2/3) / 2 = 5/6.
	lists := []models.UserTopN{topN("u1", "A", "B", "C")}
	truth := truthOf(map[string][]string{"u1": {"A", "C"}})

	m := Evaluate(lists, truth, 10, 3, "v1", evalTime)
	if math.Abs(m.MAPAtK-5.0/6.0) > 1e-9 {
		t.Errorf("MAP = %v, want 5/6", m.MAPAtK)
	}
}

func TestEvaluateRecallAtK(t *testing.T) {
	// Two relevant, one recovered in the top-K.
	lists := []models.UserTopN{topN("u1", "A", "B")}
	truth := truthOf(map[string][]string{"u1": {"A", "Z"}})

	m := Evaluate(lists, truth, 10, 2, "v1", evalTime)
	if math.Abs(m.RecallAtK-0.5) > 1e-9 {
		t.Errorf("recall@2 = %v, want 0.5", m.RecallAtK)
	}
}

func TestEvaluateCoverage(t *testing.T) {
	lists := []models.UserTopN{
		topN("u1", "A", "B"),
		topN("u2", "B", "C"),
	}

	m := Evaluate(lists, nil, 10, 2, "v1", evalTime)
	if math.Abs(m.Coverage-0.3) > 1e-9 {
		t.Errorf("coverage = %v, want 3/10", m.Coverage)
	}
	if m.Coverage < 0 || m.Coverage > 1 {
		t.Errorf("coverage %v out of [0,1]", m.Coverage)
	}
}

func TestEvaluateNoEvaluableUsers(t *testing.T) {
	lists := []models.UserTopN{topN("u1", "A")}

	m := Evaluate(lists, nil, 5, 3, "v1", evalTime)
	if m.PrecisionAtK != 0 || m.RecallAtK != 0 || m.MAPAtK != 0 {
		t.Errorf("metrics without ground truth should be zero, got %+v", m)
	}
	if m.ModelVersion != "v1" || !m.EvaluatedAt.Equal(evalTime) {
		t.Errorf("version/timestamp not carried: %+v", m)
	}
}

func TestEvaluateTruncatesToK(t *testing.T) {
	// Relevant item sits at rank 3; K=2 must miss it.
	lists := []models.UserTopN{topN("u1", "X", "Y", "A")}
	truth := truthOf(map[string][]string{"u1": {"A"}})

	m := Evaluate(lists, truth, 10, 2, "v1", evalTime)
	if m.PrecisionAtK != 0 || m.MAPAtK != 0 {
		t.Errorf("item beyond K counted: %+v", m)
	}
}
