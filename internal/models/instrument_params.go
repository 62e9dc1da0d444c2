// Package models contains the models for the Stockwatch API
package models

import "strings"

// FieldError describes a single invalid field in an input payload.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// InsertInstrumentParams is the input shape for creating an instrument.
type InsertInstrumentParams struct {
	TradingSymbol      string  `json:"tradingSymbol"`
	CapitalMarketPrice float64 `json:"capitalMarketPrice"`
	FuturesPrice       float64 `json:"futuresPrice"`
	PercentageChange   float64 `json:"percentageChange"`
}

// Validate checks the params and returns one error per invalid field.
func (p InsertInstrumentParams) Validate() []FieldError {
	var fieldErrs []FieldError
	if strings.TrimSpace(p.TradingSymbol) == "" {
		fieldErrs = append(fieldErrs, FieldError{Field: "tradingSymbol", Message: "`tradingSymbol` is required"})
	}
	if p.CapitalMarketPrice < 0 {
		fieldErrs = append(fieldErrs, FieldError{Field: "capitalMarketPrice", Message: "`capitalMarketPrice` must not be negative"})
	}
	if p.FuturesPrice < 0 {
		fieldErrs = append(fieldErrs, FieldError{Field: "futuresPrice", Message: "`futuresPrice` must not be negative"})
	}
	return fieldErrs
}

// UpdateInstrumentParams is the input shape for a partial update. Nil fields
// are left untouched.
type UpdateInstrumentParams struct {
	TradingSymbol      *string  `json:"tradingSymbol"`
	CapitalMarketPrice *float64 `json:"capitalMarketPrice"`
	FuturesPrice       *float64 `json:"futuresPrice"`
	PercentageChange   *float64 `json:"percentageChange"`
}

// Validate checks the params and returns one error per invalid field.
func (p UpdateInstrumentParams) Validate() []FieldError {
	var fieldErrs []FieldError
	if p.TradingSymbol != nil && strings.TrimSpace(*p.TradingSymbol) == "" {
		fieldErrs = append(fieldErrs, FieldError{Field: "tradingSymbol", Message: "`tradingSymbol` must not be empty"})
	}
	if p.CapitalMarketPrice != nil && *p.CapitalMarketPrice < 0 {
		fieldErrs = append(fieldErrs, FieldError{Field: "capitalMarketPrice", Message: "`capitalMarketPrice` must not be negative"})
	}
	if p.FuturesPrice != nil && *p.FuturesPrice < 0 {
		fieldErrs = append(fieldErrs, FieldError{Field: "futuresPrice", Message: "`futuresPrice` must not be negative"})
	}
	return fieldErrs
}
