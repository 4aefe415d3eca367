// NextBasket - Cross-Sell Recommendation Analytics Pipeline
// Copyright 2026 NextBasket Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/nextbasket/nextbasket

// Package validation provides struct validation using go-playground/validator v10.
// It exposes a thread-safe singleton validator with an rfc3339 custom validator
// used by the conformance stage for raw record timestamps.
//
// Example usage:
//
//	type OrderRecord struct {
//	    OrderID   string `validate:"required"`
//	    Quantity  int    `validate:"gt=0"`
//	    Timestamp string `validate:"required,rfc3339"`
//	}
//
//	if err := validation.ValidateStruct(&rec); err != nil {
//	    // err.Errors() lists per-field failures
//	}
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// singleton validator instance
var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError represents a single field validation failure.
type FieldError struct {
	field   string
	tag     string
	param   string
	message string
}

// Field returns the struct field name that failed validation.
func (e *FieldError) Field() string { return e.field }

// Tag returns the validation tag that failed.
func (e *FieldError) Tag() string { return e.tag }

// Param returns the tag parameter (e.g. "0" for "gt=0").
func (e *FieldError) Param() string { return e.param }

// Error returns a human-readable message.
func (e *FieldError) Error() string { return e.message }

// StructValidationError collects the field failures of one struct.
type StructValidationError struct {
	errors []FieldError
}

// Errors returns the individual field errors.
func (ve *StructValidationError) Errors() []FieldError { return ve.errors }

// Error implements the error interface.
func (ve *StructValidationError) Error() string {
	if len(ve.errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(ve.errors))
	for i, err := range ve.errors {
		messages[i] = err.message
	}
	return strings.Join(messages, "; ")
}

// HasTag reports whether any field failed with the given tag.
func (ve *StructValidationError) HasTag(tag string) bool {
	for _, err := range ve.errors {
		if err.tag == tag {
			return true
		}
	}
	return false
}

// FirstFieldWithTag returns the first field that failed with the given tag.
func (ve *StructValidationError) FirstFieldWithTag(tag string) (string, bool) {
	for _, err := range ve.errors {
		if err.tag == tag {
			return err.field, true
		}
	}
	return "", false
}

// GetValidator returns the singleton validator instance, initialized once
// with custom validators. Thread-safe.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// rfc3339 validates a string timestamp. Empty strings are left to
		// the required tag so the two failures stay distinguishable.
		_ = validate.RegisterValidation("rfc3339", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			if s == "" {
				return true
			}
			_, err := time.Parse(time.RFC3339, s)
			return err == nil
		})
	})

	return validate
}

// ValidateStruct validates a struct using the singleton validator.
// Returns nil if validation passes, or *StructValidationError on failure.
func ValidateStruct(s interface{}) *StructValidationError {
	v := GetValidator()

	err := v.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &StructValidationError{
			errors: []FieldError{{
				field:   "unknown",
				tag:     "unknown",
				message: err.Error(),
			}},
		}
	}

	fieldErrors := make([]FieldError, len(validationErrs))
	for i, fieldErr := range validationErrs {
		fieldErrors[i] = FieldError{
			field:   fieldErr.Field(),
			tag:     fieldErr.Tag(),
			param:   fieldErr.Param(),
			message: fmt.Sprintf("%s failed %s validation", fieldErr.Field(), fieldErr.Tag()),
		}
	}

	return &StructValidationError{errors: fieldErrors}
}
