// NextBasket - Cross-Sell Recommendation Analytics Pipeline
// Copyright 2026 NextBasket Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextbasket/nextbasket

package conform

import (
	"testing"
	"time"

	"github.com/nextbasket/nextbasket/internal/models"
)

const goodTS = "2026-03-01T12:00:00Z"

func goodOrder() models.OrderRecord {
	return models.OrderRecord{
		OrderID:   "o1",
		UserID:    "u1",
		ItemID:    "A",
		Quantity:  1,
		Price:     10,
		Timestamp: goodTS,
		Channel:   "web",
	}
}

func TestConformOrdersValidation(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*models.OrderRecord)
		wantReason models.RejectReason
	}{
		{
			name:       "missing order id",
			mutate:     func(r *models.OrderRecord) { r.OrderID = "" },
			wantReason: models.RejectMissingField,
		},
		{
			name:       "missing user id",
			mutate:     func(r *models.OrderRecord) { r.UserID = "" },
			wantReason: models.RejectMissingField,
		},
		{
			name:       "missing item id",
			mutate:     func(r *models.OrderRecord) { r.ItemID = "" },
			wantReason: models.RejectMissingField,
		},
		{
			name:       "zero quantity",
			mutate:     func(r *models.OrderRecord) { r.Quantity = 0 },
			wantReason: models.RejectNonPositiveQuantity,
		},
		{
			name:       "negative quantity",
			mutate:     func(r *models.OrderRecord) { r.Quantity = -2 },
			wantReason: models.RejectNonPositiveQuantity,
		},
		{
			name:       "negative price",
			mutate:     func(r *models.OrderRecord) { r.Price = -0.01 },
			wantReason: models.RejectNegativePrice,
		},
		{
			name:       "unparseable timestamp",
			mutate:     func(r *models.OrderRecord) { r.Timestamp = "01/03/2026" },
			wantReason: models.RejectBadTimestamp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := goodOrder()
			tt.mutate(&rec)

			orders, rejected := ConformOrders([]models.OrderRecord{rec})
			if len(orders) != 0 {
				t.Fatalf("conformed %d orders, want 0", len(orders))
			}
			if len(rejected) != 1 {
				t.Fatalf("got %d rejections, want 1", len(rejected))
			}
			if rejected[0].Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", rejected[0].Reason, tt.wantReason)
			}
			if rejected[0].Source != "orders" {
				t.Errorf("source = %q, want orders", rejected[0].Source)
			}
		})
	}
}

func TestConformOrdersDeduplication(t *testing.T) {
	a := goodOrder()
	dup := goodOrder()
	dup.Price = 99 // later duplicate must be dropped, first wins
	b := goodOrder()
	b.ItemID = "B"

	orders, rejected := ConformOrders([]models.OrderRecord{a, dup, b})
	if len(rejected) != 0 {
		t.Fatalf("unexpected rejections: %+v", rejected)
	}
	if len(orders) != 2 {
		t.Fatalf("got %d orders, want 2", len(orders))
	}
	if orders[0].Price != 10 {
		t.Errorf("first occurrence should win, got price %f", orders[0].Price)
	}
}

func TestConformOrdersIsTotal(t *testing.T) {
	// A fully garbage input must produce rejections, never a panic or error.
	raw := []models.OrderRecord{{}, {OrderID: "x"}, {Quantity: -1}}
	orders, rejected := ConformOrders(raw)
	if len(orders) != 0 {
		t.Errorf("conformed %d orders from garbage, want 0", len(orders))
	}
	if len(rejected) != 3 {
		t.Errorf("got %d rejections, want 3", len(rejected))
	}
}

func TestConformOrdersDefaultsChannel(t *testing.T) {
	rec := goodOrder()
	rec.Channel = ""
	orders, _ := ConformOrders([]models.OrderRecord{rec})
	if len(orders) != 1 || orders[0].Channel != "unknown" {
		t.Errorf("empty channel should conform to \"unknown\", got %+v", orders)
	}
}

func TestConformProductsUpsert(t *testing.T) {
	raw := []models.ProductRecord{
		{ItemID: "A", Name: "Old Name", BasePrice: 1},
		{ItemID: "B", Name: "Widget", BasePrice: 2},
		{ItemID: "A", Name: "New Name", BasePrice: 3}, // last writer wins
		{Name: "no id"},                               // rejected
	}

	products, rejected := ConformProducts(raw)
	if len(rejected) != 1 || rejected[0].Reason != models.RejectMissingField {
		t.Fatalf("unexpected rejections: %+v", rejected)
	}
	if len(products) != 2 {
		t.Fatalf("got %d products, want 2", len(products))
	}
	// Sorted by item_id.
	if products[0].ItemID != "A" || products[1].ItemID != "B" {
		t.Errorf("products not sorted: %+v", products)
	}
	if products[0].Name != "New Name" || products[0].BasePrice != 3 {
		t.Errorf("last writer should win: %+v", products[0])
	}
}

func TestConformCustomersRFM(t *testing.T) {
	reference := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	orders := []models.Order{
		{OrderID: "o1", UserID: "u1", ItemID: "A", Quantity: 2, Price: 50, Timestamp: reference.AddDate(0, 0, -10)},
		{OrderID: "o2", UserID: "u1", ItemID: "B", Quantity: 1, Price: 200, Timestamp: reference.AddDate(0, 0, -5)},
		{OrderID: "o3", UserID: "u2", ItemID: "A", Quantity: 1, Price: 10, Timestamp: reference.AddDate(0, 0, -120)},
	}
	raw := []models.CustomerRecord{
		{UserID: "u1", LoyaltyTier: "gold"},
		{UserID: "u3", LoyaltyTier: "bronze"}, // no orders at all
	}

	customers, rejected := ConformCustomers(raw, orders, DefaultRFMParams(), reference)
	if len(rejected) != 0 {
		t.Fatalf("unexpected rejections: %+v", rejected)
	}
	if len(customers) != 3 {
		t.Fatalf("got %d customers, want 3 (u2 derived from orders)", len(customers))
	}

	byID := make(map[string]models.Customer)
	for _, c := range customers {
		byID[c.UserID] = c
	}

	u1 := byID["u1"]
	if u1.RecencyDays != 5 {
		t.Errorf("u1 recency = %d, want 5", u1.RecencyDays)
	}
	if u1.Frequency != 2 {
		t.Errorf("u1 frequency = %d, want 2", u1.Frequency)
	}
	if u1.Monetary != 300 {
		t.Errorf("u1 monetary = %f, want 300", u1.Monetary)
	}
	// R: 5d <= 30 -> 3, F: 2 <= 2 -> 1, M: 300 <= 500 -> 2, total 6 -> mid.
	if u1.RFMScore != "R3F1M2" {
		t.Errorf("u1 rfm = %q, want R3F1M2", u1.RFMScore)
	}
	if u1.Segment != "mid_value" {
		t.Errorf("u1 segment = %q, want mid_value", u1.Segment)
	}
	if u1.LoyaltyTier != "gold" {
		t.Errorf("u1 loyalty tier lost: %+v", u1)
	}

	u2 := byID["u2"]
	if u2.RecencyDays != 120 || u2.Frequency != 1 {
		t.Errorf("u2 features: %+v", u2)
	}
	// R: 120d beyond edges -> 1, F: 1 -> 1, M: 10 -> 1, total 3 -> low.
	if u2.Segment != "low_value" {
		t.Errorf("u2 segment = %q, want low_value", u2.Segment)
	}

	u3 := byID["u3"]
	if u3.Frequency != 0 || u3.Monetary != 0 {
		t.Errorf("u3 should have zero activity: %+v", u3)
	}
	if u3.Segment != "low_value" || u3.RFMScore != "R1F1M1" {
		t.Errorf("orderless customer should bottom out: %+v", u3)
	}
}

func TestConformCustomersLastWriterWins(t *testing.T) {
	raw := []models.CustomerRecord{
		{UserID: "u1", LoyaltyTier: "silver"},
		{UserID: "u1", LoyaltyTier: "gold"},
	}
	customers, _ := ConformCustomers(raw, nil, DefaultRFMParams(), time.Time{})
	if len(customers) != 1 || customers[0].LoyaltyTier != "gold" {
		t.Errorf("last writer should win: %+v", customers)
	}
}

func TestConformCustomersDeterministicOrder(t *testing.T) {
	raw := []models.CustomerRecord{
		{UserID: "zeta"}, {UserID: "alpha"}, {UserID: "mid"},
	}
	customers, _ := ConformCustomers(raw, nil, DefaultRFMParams(), time.Time{})
	if customers[0].UserID != "alpha" || customers[1].UserID != "mid" || customers[2].UserID != "zeta" {
		t.Errorf("customers not sorted by user_id: %+v", customers)
	}
}
