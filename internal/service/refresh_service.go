// Package service contains the service layer for the Stockwatch API
package service

import (
	"errors"
	"math"
	"sync"
	"time"

	"github.com/nsvirk/stockwatchapi/internal/models"
	"github.com/nsvirk/stockwatchapi/internal/repository"
	"github.com/nsvirk/stockwatchapi/pkg/utils/zaplogger"
)

// ErrSimulatedFault is the fault-injection failure of the refresh path. It
// models an unreliable upstream feed and is surfaced to the caller as a
// generic failure.
var ErrSimulatedFault = errors.New("simulated market data feed failure")

// RandSource supplies uniform draws in [0, 1). *rand.Rand satisfies it, so a
// fixed seed reproduces the same deltas.
type RandSource interface {
	Float64() float64
}

// RefreshService simulates one market tick across all instruments. Prices
// take a bounded random walk, the percentage change walks on its own, and
// each instrument gains exactly one history sample at its new capital price.
type RefreshService struct {
	store            repository.Store
	rng              RandSource
	faultProbability float64
	delay            time.Duration
	mu               sync.Mutex
}

// NewRefreshService creates a refresh service. faultProbability in [0, 1]
// and delay parameterize the fault-injection hook; zero disables each.
func NewRefreshService(store repository.Store, rng RandSource, faultProbability float64, delay time.Duration) *RefreshService {
	return &RefreshService{
		store:            store,
		rng:              rng,
		faultProbability: faultProbability,
		delay:            delay,
	}
}

// RefreshAll runs one refresh cycle and returns the post-refresh set.
// Concurrent calls serialize; a cycle in progress is never interleaved.
// Across instruments the cycle is best effort: a failure partway leaves the
// already-refreshed instruments in place.
func (s *RefreshService) RefreshAll() ([]models.InstrumentModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Fault check draws only when enabled, so a disabled hook leaves the
	// delta stream untouched for deterministic replays.
	if s.faultProbability > 0 && s.rng.Float64() < s.faultProbability {
		zaplogger.Warn("refresh failed by fault injection")
		return nil, ErrSimulatedFault
	}

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	instruments, err := s.store.List()
	if err != nil {
		return nil, err
	}

	for _, instrument := range instruments {
		// Uniform ±2% of each current price, ±1 absolute percentage point.
		capitalDelta := (s.rng.Float64() - 0.5) * 0.04 * instrument.CapitalMarketPrice
		futuresDelta := (s.rng.Float64() - 0.5) * 0.04 * instrument.FuturesPrice
		percentageDelta := (s.rng.Float64() - 0.5) * 2

		capitalPrice := math.Max(0, instrument.CapitalMarketPrice+capitalDelta)
		futuresPrice := math.Max(0, instrument.FuturesPrice+futuresDelta)
		percentageChange := instrument.PercentageChange + percentageDelta

		_, _, err := s.store.RefreshQuote(instrument.ID, capitalPrice, futuresPrice, percentageChange)
		if err != nil {
			return nil, err
		}
	}

	refreshed, err := s.store.List()
	if err != nil {
		return nil, err
	}

	zaplogger.Debug("refresh cycle completed", zaplogger.Fields{
		"instruments": len(refreshed),
	})
	return refreshed, nil
}
