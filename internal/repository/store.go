// Package repository contains the storage layer for the Stockwatch API
package repository

import (
	"errors"
	"time"

	"github.com/nsvirk/stockwatchapi/internal/models"
)

// DefaultHistoryLimit caps the number of history samples returned per
// instrument.
const DefaultHistoryLimit = 30

// ErrStorageUnavailable marks a connectivity or durability failure of a
// persistent backend. It is never used for a missing record: lookups that
// find nothing return a nil result and a nil error.
var ErrStorageUnavailable = errors.New("storage unavailable")

// Store is the single source of truth for instruments and their price
// history. Absent records are a nil result, not an error.
type Store interface {
	// List returns every instrument. No ordering is guaranteed.
	List() ([]models.InstrumentModel, error)

	// Get looks up an instrument by id, nil if absent.
	Get(id int64) (*models.InstrumentModel, error)

	// GetBySymbol looks up an instrument by exact trading symbol, nil if absent.
	GetBySymbol(symbol string) (*models.InstrumentModel, error)

	// Create assigns a fresh id and timestamp and stores the instrument with
	// an empty history series.
	Create(params models.InsertInstrumentParams) (*models.InstrumentModel, error)

	// Update merges the non-nil fields into an existing instrument and
	// refreshes its timestamp. Returns nil if the id does not exist.
	Update(id int64, params models.UpdateInstrumentParams) (*models.InstrumentModel, error)

	// Delete removes an instrument and its entire history series atomically.
	// Reports whether a record existed.
	Delete(id int64) (bool, error)

	// GetHistory returns the most recent limit samples in ascending
	// timestamp order. Unknown ids yield an empty series, not an error.
	GetHistory(id int64, limit int) ([]models.PriceHistoryModel, error)

	// AppendHistory stores one new sample at the current time.
	AppendHistory(instrumentID int64, price float64) (*models.PriceHistoryModel, error)

	// AppendHistoryAt stores one new sample at an explicit time, used to
	// backfill seed series. Ordering is not enforced for out-of-order times.
	AppendHistoryAt(instrumentID int64, price float64, at time.Time) (*models.PriceHistoryModel, error)

	// Search returns instruments whose trading symbol contains the query,
	// case-insensitively. An empty query matches everything.
	Search(query string) ([]models.InstrumentModel, error)

	// RefreshQuote applies new prices and appends the matching history
	// sample in one step, so readers never observe one without the other.
	// Returns nil, nil, nil if the id does not exist.
	RefreshQuote(id int64, capitalPrice, futuresPrice, percentageChange float64) (*models.InstrumentModel, *models.PriceHistoryModel, error)
}
