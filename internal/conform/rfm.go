// NextBasket - Cross-Sell Recommendation Analytics Pipeline
// Copyright 2026 NextBasket Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextbasket/nextbasket

package conform

import "fmt"

// RFMParams defines the bucket edges used to score customers. Each dimension
// scores 1..len(edges)+1. Recency inverts: fewer days since the last purchase
// scores higher. Segment names come from the combined R+F+M score.
type RFMParams struct {
	// RecencyEdges are ascending day thresholds.
	RecencyEdges []int

	// FrequencyEdges are ascending distinct-order-count thresholds.
	FrequencyEdges []int

	// MonetaryEdges are ascending total-spend thresholds.
	MonetaryEdges []float64

	// HighValueMin and MidValueMin split the combined score into
	// high_value / mid_value / low_value.
	HighValueMin int
	MidValueMin  int
}

// DefaultRFMParams returns the bucketing used when nothing is configured.
func DefaultRFMParams() RFMParams {
	return RFMParams{
		RecencyEdges:   []int{30, 90},
		FrequencyEdges: []int{2, 5},
		MonetaryEdges:  []float64{100, 500},
		HighValueMin:   7,
		MidValueMin:    5,
	}
}

// rfmScore holds the per-dimension bucket scores.
type rfmScore struct {
	R, F, M int
}

// String renders the compact score label, e.g. "R3F2M1".
func (s rfmScore) String() string {
	return fmt.Sprintf("R%dF%dM%d", s.R, s.F, s.M)
}

func (s rfmScore) total() int {
	return s.R + s.F + s.M
}

// score buckets the raw features. Users without orders score the minimum in
// every dimension.
func (p RFMParams) score(f rfmFeatures) rfmScore {
	if !f.hasOrders {
		return rfmScore{R: 1, F: 1, M: 1}
	}

	// Recency inverts: bucket index 0 (freshest) gets the top score.
	rBucket := len(p.RecencyEdges)
	for i, edge := range p.RecencyEdges {
		if f.recencyDays <= edge {
			rBucket = i
			break
		}
	}

	return rfmScore{
		R: len(p.RecencyEdges) + 1 - rBucket,
		F: bucketInt(f.frequency, p.FrequencyEdges) + 1,
		M: bucketFloat(f.monetary, p.MonetaryEdges) + 1,
	}
}

// segment maps a combined score onto the configured value tiers.
func (p RFMParams) segment(s rfmScore) string {
	switch total := s.total(); {
	case total >= p.HighValueMin:
		return "high_value"
	case total >= p.MidValueMin:
		return "mid_value"
	default:
		return "low_value"
	}
}

// bucketInt returns the index of the first bucket whose edge v exceeds,
// i.e. 0 for v <= edges[0], len(edges) for v beyond the last edge.
func bucketInt(v int, edges []int) int {
	for i, edge := range edges {
		if v <= edge {
			return i
		}
	}
	return len(edges)
}

func bucketFloat(v float64, edges []float64) int {
	for i, edge := range edges {
		if v <= edge {
			return i
		}
	}
	return len(edges)
}
