// NextBasket - Cross-Sell Recommendation Analytics Pipeline
// Copyright 2026 NextBasket Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextbasket/nextbasket

package models

// RejectReason codes why a raw record failed conformance. Per-record failures
// are never fatal to a run; they are collected into a RejectionReport.
type RejectReason string

const (
	// RejectMissingField indicates a required identifier or field was empty.
	RejectMissingField RejectReason = "missing_field"

	// RejectNonPositiveQuantity indicates quantity <= 0.
	RejectNonPositiveQuantity RejectReason = "non_positive_quantity"

	// RejectNegativePrice indicates price < 0.
	RejectNegativePrice RejectReason = "negative_price"

	// RejectBadTimestamp indicates an unparseable order timestamp.
	RejectBadTimestamp RejectReason = "bad_timestamp"
)

// RejectedRecord captures one raw record that failed validation, with enough
// context to trace it back to its source.
type RejectedRecord struct {
	// Source names the input collection: orders, products, or customers.
	Source string `json:"source"`

	// Key is the natural key of the offending record, best effort
	// (e.g. "order_id/item_id" for orders).
	Key string `json:"key"`

	// Reason is the machine-readable rejection code.
	Reason RejectReason `json:"reason"`

	// Detail is an optional human-readable elaboration.
	Detail string `json:"detail,omitempty"`
}

// RejectionReport aggregates the rejections of one conformance pass.
type RejectionReport struct {
	Orders    []RejectedRecord `json:"orders"`
	Products  []RejectedRecord `json:"products"`
	Customers []RejectedRecord `json:"customers"`
}

// Total returns the number of rejected records across all sources.
func (r RejectionReport) Total() int {
	return len(r.Orders) + len(r.Products) + len(r.Customers)
}
