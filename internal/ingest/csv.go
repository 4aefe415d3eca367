// NextBasket - Cross-Sell Recommendation Analytics Pipeline
// Copyright 2026 NextBasket Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextbasket/nextbasket

// Package ingest decodes raw CSV source files into unvalidated records.
//
// Decoding is deliberately lenient: numeric fields that fail to parse become
// zero values and malformed rows are passed through as-is. The conform stage
// owns validation and rejection; ingest only gets bytes into structs.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/nextbasket/nextbasket/internal/models"
)

// ReadOrdersCSV reads raw order records from a headered CSV file.
// Expected columns: order_id, user_id, item_id, quantity, price, timestamp,
// channel. Unknown columns are ignored; missing columns yield zero values.
func ReadOrdersCSV(path string) ([]models.OrderRecord, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}

	records := make([]models.OrderRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, models.OrderRecord{
			OrderID:   row["order_id"],
			UserID:    row["user_id"],
			ItemID:    row["item_id"],
			Quantity:  parseInt(row["quantity"]),
			Price:     parseFloat(row["price"]),
			Timestamp: row["timestamp"],
			Channel:   row["channel"],
		})
	}
	return records, nil
}

// ReadProductsCSV reads raw product records from a headered CSV file.
// Expected columns: item_id, name, category, subcategory, brand, base_price.
func ReadProductsCSV(path string) ([]models.ProductRecord, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}

	records := make([]models.ProductRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, models.ProductRecord{
			ItemID:      row["item_id"],
			Name:        row["name"],
			Category:    row["category"],
			Subcategory: row["subcategory"],
			Brand:       row["brand"],
			BasePrice:   parseFloat(row["base_price"]),
		})
	}
	return records, nil
}

// ReadCustomersCSV reads raw customer records from a headered CSV file.
// Expected columns: user_id, segment, loyalty_tier.
func ReadCustomersCSV(path string) ([]models.CustomerRecord, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}

	records := make([]models.CustomerRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, models.CustomerRecord{
			UserID:      row["user_id"],
			Segment:     row["segment"],
			LoyaltyTier: row["loyalty_tier"],
		})
	}
	return records, nil
}

// readRows reads a headered CSV into column-keyed maps.
func readRows(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // tolerate ragged rows; conform rejects them

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseInt(s string) int {
	if s == "" {
		return 0
	}
	// Quantity columns sometimes arrive as "2.0"; accept the float form.
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
