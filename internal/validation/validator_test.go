// NextBasket - Cross-Sell Recommendation Analytics Pipeline
// Copyright 2026 NextBasket Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextbasket/nextbasket

package validation

import "testing"

type testRecord struct {
	ID        string  `validate:"required"`
	Quantity  int     `validate:"gt=0"`
	Price     float64 `validate:"gte=0"`
	Timestamp string  `validate:"required,rfc3339"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name    string
		rec     testRecord
		wantErr bool
		wantTag string
	}{
		{
			name: "valid record",
			rec: testRecord{
				ID:        "o1",
				Quantity:  2,
				Price:     9.99,
				Timestamp: "2026-01-15T10:30:00Z",
			},
			wantErr: false,
		},
		{
			name: "missing id",
			rec: testRecord{
				Quantity:  1,
				Timestamp: "2026-01-15T10:30:00Z",
			},
			wantErr: true,
			wantTag: "required",
		},
		{
			name: "zero quantity",
			rec: testRecord{
				ID:        "o1",
				Quantity:  0,
				Timestamp: "2026-01-15T10:30:00Z",
			},
			wantErr: true,
			wantTag: "gt",
		},
		{
			name: "negative price",
			rec: testRecord{
				ID:        "o1",
				Quantity:  1,
				Price:     -1,
				Timestamp: "2026-01-15T10:30:00Z",
			},
			wantErr: true,
			wantTag: "gte",
		},
		{
			name: "bad timestamp",
			rec: testRecord{
				ID:        "o1",
				Quantity:  1,
				Timestamp: "15/01/2026",
			},
			wantErr: true,
			wantTag: "rfc3339",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(&tt.rec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateStruct() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !err.HasTag(tt.wantTag) {
				t.Errorf("expected tag %q in %v", tt.wantTag, err.Errors())
			}
		})
	}
}

func TestRFC3339AllowsEmptyForRequiredSplit(t *testing.T) {
	// Empty timestamp must fail on required, not rfc3339, so conformance can
	// report missing_field rather than bad_timestamp.
	rec := testRecord{ID: "o1", Quantity: 1}
	err := ValidateStruct(&rec)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if err.HasTag("rfc3339") {
		t.Errorf("empty timestamp should not trip rfc3339: %v", err.Errors())
	}
	if !err.HasTag("required") {
		t.Errorf("empty timestamp should trip required: %v", err.Errors())
	}
}
