// NextBasket - Cross-Sell Recommendation Analytics Pipeline
// Copyright 2026 NextBasket Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextbasket/nextbasket

// Package conform turns raw bronze records into clean silver facts and
// dimensions. The stage is total over its input: every malformed record is
// routed to a rejection list with a reason code and never aborts the run.
//
// Deduplication semantics:
//   - orders: key (order_id, item_id), first occurrence wins
//   - products: key item_id, last occurrence wins (upsert)
//   - customers: key user_id, last occurrence wins (upsert)
package conform

import (
	"fmt"
	"sort"
	"time"

	"github.com/nextbasket/nextbasket/internal/models"
	"github.com/nextbasket/nextbasket/internal/validation"
)

// ConformOrders validates and deduplicates raw order lines.
// Returned orders preserve input order among survivors.
func ConformOrders(raw []models.OrderRecord) ([]models.Order, []models.RejectedRecord) {
	orders := make([]models.Order, 0, len(raw))
	var rejected []models.RejectedRecord
	seen := make(map[[2]string]struct{}, len(raw))

	for i := range raw {
		rec := raw[i]
		key := fmt.Sprintf("%s/%s", rec.OrderID, rec.ItemID)

		if err := validation.ValidateStruct(&rec); err != nil {
			rejected = append(rejected, models.RejectedRecord{
				Source: "orders",
				Key:    key,
				Reason: orderRejectReason(err),
				Detail: err.Error(),
			})
			continue
		}

		// Parse guaranteed to succeed: the rfc3339 tag already passed.
		ts, _ := time.Parse(time.RFC3339, rec.Timestamp)

		dedupeKey := [2]string{rec.OrderID, rec.ItemID}
		if _, dup := seen[dedupeKey]; dup {
			continue // first occurrence wins
		}
		seen[dedupeKey] = struct{}{}

		channel := rec.Channel
		if channel == "" {
			channel = "unknown"
		}

		orders = append(orders, models.Order{
			OrderID:   rec.OrderID,
			UserID:    rec.UserID,
			ItemID:    rec.ItemID,
			Quantity:  rec.Quantity,
			Price:     rec.Price,
			Timestamp: ts,
			Channel:   channel,
		})
	}

	return orders, rejected
}

// orderRejectReason maps a validation failure to the most specific reason
// code. Missing fields dominate so a record with several problems reports
// its first-order cause.
func orderRejectReason(err *validation.StructValidationError) models.RejectReason {
	if err.HasTag("required") {
		return models.RejectMissingField
	}
	if field, ok := err.FirstFieldWithTag("gt"); ok && field == "Quantity" {
		return models.RejectNonPositiveQuantity
	}
	if field, ok := err.FirstFieldWithTag("gte"); ok && field == "Price" {
		return models.RejectNegativePrice
	}
	if err.HasTag("rfc3339") {
		return models.RejectBadTimestamp
	}
	return models.RejectMissingField
}

// ConformProducts upserts raw catalog rows into the product dimension.
// Later rows overwrite earlier ones for the same item_id; output is sorted by
// item_id for deterministic downstream artifacts.
func ConformProducts(raw []models.ProductRecord) ([]models.Product, []models.RejectedRecord) {
	byID := make(map[string]models.Product, len(raw))
	var rejected []models.RejectedRecord

	for i := range raw {
		rec := raw[i]
		if err := validation.ValidateStruct(&rec); err != nil {
			reason := models.RejectMissingField
			if err.HasTag("gte") && !err.HasTag("required") {
				reason = models.RejectNegativePrice
			}
			rejected = append(rejected, models.RejectedRecord{
				Source: "products",
				Key:    rec.ItemID,
				Reason: reason,
				Detail: err.Error(),
			})
			continue
		}

		byID[rec.ItemID] = models.Product{
			ItemID:      rec.ItemID,
			Name:        rec.Name,
			Category:    rec.Category,
			Subcategory: rec.Subcategory,
			Brand:       rec.Brand,
			BasePrice:   rec.BasePrice,
		}
	}

	products := make([]models.Product, 0, len(byID))
	for _, p := range byID {
		products = append(products, p)
	}
	sort.Slice(products, func(i, j int) bool {
		return products[i].ItemID < products[j].ItemID
	})

	return products, rejected
}

// ConformCustomers upserts raw customer rows and enriches them with RFM
// features derived from the conformed order set. Users present in orders but
// absent from the customer file still get a dimension entry. Output is sorted
// by user_id.
func ConformCustomers(
	raw []models.CustomerRecord,
	orders []models.Order,
	params RFMParams,
	reference time.Time,
) ([]models.Customer, []models.RejectedRecord) {
	byID := make(map[string]models.CustomerRecord, len(raw))
	var rejected []models.RejectedRecord

	for i := range raw {
		rec := raw[i]
		if err := validation.ValidateStruct(&rec); err != nil {
			rejected = append(rejected, models.RejectedRecord{
				Source: "customers",
				Key:    rec.UserID,
				Reason: models.RejectMissingField,
				Detail: err.Error(),
			})
			continue
		}
		byID[rec.UserID] = rec // last occurrence wins
	}

	features := deriveRFM(orders, reference)

	userIDs := make(map[string]struct{}, len(byID)+len(features))
	for id := range byID {
		userIDs[id] = struct{}{}
	}
	for id := range features {
		userIDs[id] = struct{}{}
	}

	customers := make([]models.Customer, 0, len(userIDs))
	for id := range userIDs {
		rec := byID[id]
		f := features[id]

		score := params.score(f)
		customers = append(customers, models.Customer{
			UserID:      id,
			Segment:     params.segment(score),
			LoyaltyTier: rec.LoyaltyTier,
			RecencyDays: f.recencyDays,
			Frequency:   f.frequency,
			Monetary:    f.monetary,
			RFMScore:    score.String(),
		})
	}

	sort.Slice(customers, func(i, j int) bool {
		return customers[i].UserID < customers[j].UserID
	})

	return customers, rejected
}

// rfmFeatures holds the raw per-user RFM inputs.
type rfmFeatures struct {
	recencyDays int
	frequency   int
	monetary    float64
	hasOrders   bool
}

// deriveRFM computes recency/frequency/monetary per user from conformed
// orders. The reference date defaults to the most recent order timestamp.
func deriveRFM(orders []models.Order, reference time.Time) map[string]rfmFeatures {
	if reference.IsZero() {
		for _, o := range orders {
			if o.Timestamp.After(reference) {
				reference = o.Timestamp
			}
		}
	}

	type acc struct {
		latest   time.Time
		orderIDs map[string]struct{}
		monetary float64
	}
	accs := make(map[string]*acc)

	for _, o := range orders {
		a := accs[o.UserID]
		if a == nil {
			a = &acc{orderIDs: make(map[string]struct{})}
			accs[o.UserID] = a
		}
		if o.Timestamp.After(a.latest) {
			a.latest = o.Timestamp
		}
		a.orderIDs[o.OrderID] = struct{}{}
		a.monetary += o.Revenue()
	}

	features := make(map[string]rfmFeatures, len(accs))
	for userID, a := range accs {
		recency := int(reference.Sub(a.latest).Hours() / 24)
		if recency < 0 {
			recency = 0
		}
		features[userID] = rfmFeatures{
			recencyDays: recency,
			frequency:   len(a.orderIDs),
			monetary:    a.monetary,
			hasOrders:   true,
		}
	}
	return features
}
