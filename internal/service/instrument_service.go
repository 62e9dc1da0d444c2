// Package service contains the service layer for the Stockwatch API
package service

import (
	"errors"
	"fmt"
	"sort"

	"github.com/nsvirk/stockwatchapi/internal/models"
	"github.com/nsvirk/stockwatchapi/internal/repository"
)

// ErrDuplicateSymbol is returned when a create would reuse a trading symbol.
var ErrDuplicateSymbol = errors.New("trading symbol already exists")

// InstrumentService is the service for managing watchlist instruments. It
// attaches the read-time derived fields the list and detail endpoints carry.
type InstrumentService struct {
	store repository.Store
}

// NewInstrumentService creates a new instrument service
func NewInstrumentService(store repository.Store) *InstrumentService {
	return &InstrumentService{store: store}
}

// ListInstruments returns all instruments with calculations attached,
// optionally filtered by a case-insensitive symbol substring. capitalView
// flips the sign of the derived price difference for the alternate display.
func (s *InstrumentService) ListInstruments(query string, capitalView bool) ([]models.InstrumentWithCalculations, error) {
	var instruments []models.InstrumentModel
	var err error
	if query != "" {
		instruments, err = s.store.Search(query)
	} else {
		instruments, err = s.store.List()
	}
	if err != nil {
		return nil, err
	}

	// The store makes no ordering promise; sort for stable responses.
	sort.Slice(instruments, func(i, j int) bool {
		return instruments[i].ID < instruments[j].ID
	})

	result := make([]models.InstrumentWithCalculations, 0, len(instruments))
	for _, instrument := range instruments {
		withCalc, err := s.withCalculations(instrument, capitalView)
		if err != nil {
			return nil, err
		}
		result = append(result, withCalc)
	}
	return result, nil
}

// GetInstrument returns one instrument with calculations attached, nil if
// absent.
func (s *InstrumentService) GetInstrument(id int64, capitalView bool) (*models.InstrumentWithCalculations, error) {
	instrument, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	if instrument == nil {
		return nil, nil
	}
	withCalc, err := s.withCalculations(*instrument, capitalView)
	if err != nil {
		return nil, err
	}
	return &withCalc, nil
}

// CreateInstrument validates uniqueness of the trading symbol and stores a
// new instrument. Field-level validation happens at the boundary.
func (s *InstrumentService) CreateInstrument(params models.InsertInstrumentParams) (*models.InstrumentModel, error) {
	existing, err := s.store.GetBySymbol(params.TradingSymbol)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSymbol, params.TradingSymbol)
	}
	return s.store.Create(params)
}

// UpdateInstrument merges a partial update, nil if the id does not exist.
func (s *InstrumentService) UpdateInstrument(id int64, params models.UpdateInstrumentParams) (*models.InstrumentModel, error) {
	if params.TradingSymbol != nil {
		existing, err := s.store.GetBySymbol(*params.TradingSymbol)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != id {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSymbol, *params.TradingSymbol)
		}
	}
	return s.store.Update(id, params)
}

// DeleteInstrument removes an instrument and its history. Reports whether a
// record existed.
func (s *InstrumentService) DeleteInstrument(id int64) (bool, error) {
	return s.store.Delete(id)
}

// GetHistory returns the most recent samples in ascending timestamp order,
// capped at the store's default window.
func (s *InstrumentService) GetHistory(id int64, limit int) ([]models.PriceHistoryModel, error) {
	if limit <= 0 || limit > repository.DefaultHistoryLimit {
		limit = repository.DefaultHistoryLimit
	}
	return s.store.GetHistory(id, limit)
}

func (s *InstrumentService) withCalculations(instrument models.InstrumentModel, capitalView bool) (models.InstrumentWithCalculations, error) {
	history, err := s.store.GetHistory(instrument.ID, repository.DefaultHistoryLimit)
	if err != nil {
		return models.InstrumentWithCalculations{}, err
	}

	priceDifference := instrument.FuturesPrice - instrument.CapitalMarketPrice
	if capitalView {
		priceDifference = instrument.CapitalMarketPrice - instrument.FuturesPrice
	}

	return models.InstrumentWithCalculations{
		InstrumentModel: instrument,
		PriceDifference: priceDifference,
		PriceHistory:    history,
	}, nil
}
