// Package models contains the models for the Stockwatch API
package models

import "time"

// InstrumentsTableName is the name of the table for instruments
var InstrumentsTableName = "instruments"

// PriceHistoryTableName is the name of the table for instrument price history
var PriceHistoryTableName = "instrument_price_history"

// InstrumentModel represents a watchlist instrument with its two parallel
// price quotes. PercentageChange evolves by its own random walk and is not
// derived from the price fields.
type InstrumentModel struct {
	ID                 int64     `gorm:"primaryKey" json:"id"`
	TradingSymbol      string    `gorm:"uniqueIndex" json:"tradingSymbol"`
	CapitalMarketPrice float64   `json:"capitalMarketPrice"`
	FuturesPrice       float64   `json:"futuresPrice"`
	PercentageChange   float64   `json:"percentageChange"`
	LastUpdatedAt      time.Time `json:"lastUpdatedTimestamp"`
}

// TableName specifies the table name for the InstrumentModel
func (InstrumentModel) TableName() string {
	return InstrumentsTableName
}

// PriceHistoryModel represents one immutable price sample in an
// instrument's series. Samples are cascade deleted with their instrument.
type PriceHistoryModel struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	InstrumentID int64     `gorm:"index" json:"instrumentId"`
	Price        float64   `json:"price"`
	Timestamp    time.Time `gorm:"index" json:"timestamp"`
}

// TableName specifies the table name for the PriceHistoryModel
func (PriceHistoryModel) TableName() string {
	return PriceHistoryTableName
}

// InstrumentWithCalculations is an instrument with the read-time derived
// fields attached for the list and detail endpoints.
type InstrumentWithCalculations struct {
	InstrumentModel
	PriceDifference float64             `json:"priceDifference"`
	PriceHistory    []PriceHistoryModel `json:"priceHistory"`
}
