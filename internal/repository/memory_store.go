// Package repository contains the storage layer for the Stockwatch API
package repository

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nsvirk/stockwatchapi/internal/models"
)

// historyRetention caps the stored series length per instrument. Reads are
// windowed to the caller's limit anyway; this only bounds memory on a
// long-running process with auto refresh enabled.
const historyRetention = 300

// MemoryStore is the default in-process Store. A single mutex guards both
// collections so delete cascades and quote refreshes are atomic to readers.
type MemoryStore struct {
	mu           sync.RWMutex
	instruments  map[int64]models.InstrumentModel
	priceHistory map[int64][]models.PriceHistoryModel
	nextID       int64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		instruments:  make(map[int64]models.InstrumentModel),
		priceHistory: make(map[int64][]models.PriceHistoryModel),
		nextID:       1,
	}
}

// List returns every instrument. No ordering is guaranteed.
func (s *MemoryStore) List() ([]models.InstrumentModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	instruments := make([]models.InstrumentModel, 0, len(s.instruments))
	for _, instrument := range s.instruments {
		instruments = append(instruments, instrument)
	}
	return instruments, nil
}

// Get looks up an instrument by id, nil if absent.
func (s *MemoryStore) Get(id int64) (*models.InstrumentModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	instrument, ok := s.instruments[id]
	if !ok {
		return nil, nil
	}
	return &instrument, nil
}

// GetBySymbol looks up an instrument by exact trading symbol, nil if absent.
func (s *MemoryStore) GetBySymbol(symbol string) (*models.InstrumentModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, instrument := range s.instruments {
		if instrument.TradingSymbol == symbol {
			instrument := instrument
			return &instrument, nil
		}
	}
	return nil, nil
}

// Create assigns the next id from a monotonic counter and stores the
// instrument with an empty history series. Wall-clock ids would collide
// under rapid successive calls.
func (s *MemoryStore) Create(params models.InsertInstrumentParams) (*models.InstrumentModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextID
	s.nextID++

	instrument := models.InstrumentModel{
		ID:                 id,
		TradingSymbol:      params.TradingSymbol,
		CapitalMarketPrice: params.CapitalMarketPrice,
		FuturesPrice:       params.FuturesPrice,
		PercentageChange:   params.PercentageChange,
		LastUpdatedAt:      time.Now(),
	}
	s.instruments[id] = instrument
	s.priceHistory[id] = []models.PriceHistoryModel{}
	return &instrument, nil
}

// Update merges the non-nil fields into an existing instrument and
// refreshes its timestamp. Returns nil if the id does not exist.
func (s *MemoryStore) Update(id int64, params models.UpdateInstrumentParams) (*models.InstrumentModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	instrument, ok := s.instruments[id]
	if !ok {
		return nil, nil
	}

	if params.TradingSymbol != nil {
		instrument.TradingSymbol = *params.TradingSymbol
	}
	if params.CapitalMarketPrice != nil {
		instrument.CapitalMarketPrice = *params.CapitalMarketPrice
	}
	if params.FuturesPrice != nil {
		instrument.FuturesPrice = *params.FuturesPrice
	}
	if params.PercentageChange != nil {
		instrument.PercentageChange = *params.PercentageChange
	}
	instrument.LastUpdatedAt = time.Now()

	s.instruments[id] = instrument
	return &instrument, nil
}

// Delete removes an instrument and its entire history series atomically.
// Reports whether a record existed.
func (s *MemoryStore) Delete(id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.instruments[id]
	delete(s.instruments, id)
	delete(s.priceHistory, id)
	return ok, nil
}

// GetHistory returns the most recent limit samples in ascending timestamp
// order. Unknown ids yield an empty series, not an error.
func (s *MemoryStore) GetHistory(id int64, limit int) ([]models.PriceHistoryModel, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.priceHistory[id]
	if len(history) > limit {
		history = history[len(history)-limit:]
	}
	out := make([]models.PriceHistoryModel, len(history))
	copy(out, history)
	return out, nil
}

// AppendHistory stores one new sample at the current time.
func (s *MemoryStore) AppendHistory(instrumentID int64, price float64) (*models.PriceHistoryModel, error) {
	return s.AppendHistoryAt(instrumentID, price, time.Now())
}

// AppendHistoryAt stores one new sample at an explicit time, used to
// backfill seed series.
func (s *MemoryStore) AppendHistoryAt(instrumentID int64, price float64, at time.Time) (*models.PriceHistoryModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sample := s.appendHistoryLocked(instrumentID, price, at)
	return &sample, nil
}

// RefreshQuote applies new prices and appends the matching history sample
// under one lock acquisition, so readers never observe one without the
// other. Returns nil, nil, nil if the id does not exist.
func (s *MemoryStore) RefreshQuote(id int64, capitalPrice, futuresPrice, percentageChange float64) (*models.InstrumentModel, *models.PriceHistoryModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	instrument, ok := s.instruments[id]
	if !ok {
		return nil, nil, nil
	}

	instrument.CapitalMarketPrice = capitalPrice
	instrument.FuturesPrice = futuresPrice
	instrument.PercentageChange = percentageChange
	instrument.LastUpdatedAt = time.Now()
	s.instruments[id] = instrument

	sample := s.appendHistoryLocked(id, capitalPrice, time.Now())
	return &instrument, &sample, nil
}

// Search returns instruments whose trading symbol contains the query,
// case-insensitively. An empty query matches everything.
func (s *MemoryStore) Search(query string) ([]models.InstrumentModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.ToLower(query)
	var matches []models.InstrumentModel
	for _, instrument := range s.instruments {
		if strings.Contains(strings.ToLower(instrument.TradingSymbol), query) {
			matches = append(matches, instrument)
		}
	}
	return matches, nil
}

func (s *MemoryStore) appendHistoryLocked(instrumentID int64, price float64, at time.Time) models.PriceHistoryModel {
	sample := models.PriceHistoryModel{
		ID:           uuid.NewString(),
		InstrumentID: instrumentID,
		Price:        price,
		Timestamp:    at,
	}

	history := append(s.priceHistory[instrumentID], sample)
	if len(history) > historyRetention {
		history = history[len(history)-historyRetention:]
	}
	s.priceHistory[instrumentID] = history
	return sample
}
