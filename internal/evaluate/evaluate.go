// NextBasket - Cross-Sell Recommendation Analytics Pipeline
// Copyright 2026 NextBasket Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextbasket/nextbasket

// Package evaluate scores a run's recommendation lists against a temporal
// holdout: orders at or after the cutoff never reach model training and act
// as the ground truth of what each user actually bought next.
package evaluate

import (
	"time"

	"github.com/nextbasket/nextbasket/internal/models"
)

// Split partitions orders at the cutoff. Orders at or before the cutoff are
// training data; orders strictly after it form the holdout.
func Split(orders []models.Order, cutoff time.Time) (train, holdout []models.Order) {
	for _, o := range orders {
		if !o.Timestamp.After(cutoff) {
			train = append(train, o)
		} else {
			holdout = append(holdout, o)
		}
	}
	return train, holdout
}

// HoldoutItems collapses holdout orders into the distinct item set each user
// purchased after the cutoff.
func HoldoutItems(holdout []models.Order) map[string]map[string]struct{} {
	truth := make(map[string]map[string]struct{})
	for _, o := range holdout {
		set, ok := truth[o.UserID]
		if !ok {
			set = make(map[string]struct{})
			truth[o.UserID] = set
		}
		set[o.ItemID] = struct{}{}
	}
	return truth
}

// Evaluate computes precision@K, recall@K, MAP@K and catalog coverage for
// the given lists. Users absent from truth, or with an empty truth set, are
// excluded from the precision/recall/MAP averages rather than counted as
// zero. Coverage spans every list, fallback ones included.
func Evaluate(lists []models.UserTopN, truth map[string]map[string]struct{}, catalogSize, k int, modelVersion string, evaluatedAt time.Time) models.ModelMetrics {
	var precisionSum, recallSum, apSum float64
	var evaluated int

	recommended := make(map[string]struct{})

	for _, list := range lists {
		for _, item := range list.Items {
			recommended[item.ItemID] = struct{}{}
		}

		relevant := truth[list.UserID]
		if len(relevant) == 0 {
			continue
		}
		evaluated++

		topK := list.Items
		if k > 0 && len(topK) > k {
			topK = topK[:k]
		}

		hits := 0
		var ap float64
		for rank, item := range topK {
			if _, ok := relevant[item.ItemID]; ok {
				hits++
				ap += float64(hits) / float64(rank+1)
			}
		}

		if k > 0 {
			precisionSum += float64(hits) / float64(k)
		}
		recallSum += float64(hits) / float64(len(relevant))
		apSum += ap / float64(len(relevant))
	}

	m := models.ModelMetrics{
		ModelVersion: modelVersion,
		EvaluatedAt:  evaluatedAt,
	}
	if evaluated > 0 {
		n := float64(evaluated)
		m.PrecisionAtK = precisionSum / n
		m.RecallAtK = recallSum / n
		m.MAPAtK = apSum / n
	}
	if catalogSize > 0 {
		m.Coverage = float64(len(recommended)) / float64(catalogSize)
	}
	return m
}
