package service

import (
	"math/rand"
	"testing"

	"github.com/nsvirk/stockwatchapi/internal/models"
	"github.com/nsvirk/stockwatchapi/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSource replays a fixed sequence of draws.
type scriptedSource struct {
	vals []float64
	i    int
}

func (s *scriptedSource) Float64() float64 {
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

func seedReliance(t *testing.T, store repository.Store) *models.InstrumentModel {
	t.Helper()
	created, err := store.Create(models.InsertInstrumentParams{
		TradingSymbol:      "RELIANCE",
		CapitalMarketPrice: 2915.45,
		FuturesPrice:       2921.10,
		PercentageChange:   0.84,
	})
	require.NoError(t, err)
	return created
}

func TestRefreshAllFixedDeltaScenario(t *testing.T) {
	t.Parallel()
	store := repository.NewMemoryStore()
	created := seedReliance(t, store)

	// Draws chosen so the deltas come out as +10.0, -5.0, +0.2
	rng := &scriptedSource{vals: []float64{
		0.5 + 10.0/(0.04*2915.45),
		0.5 - 5.0/(0.04*2921.10),
		0.5 + 0.2/2,
	}}

	svc := NewRefreshService(store, rng, 0, 0)
	refreshed, err := svc.RefreshAll()
	require.NoError(t, err)
	require.Len(t, refreshed, 1)

	got := refreshed[0]
	assert.InDelta(t, 2925.45, got.CapitalMarketPrice, 1e-9)
	assert.InDelta(t, 2916.10, got.FuturesPrice, 1e-9)
	assert.InDelta(t, 1.04, got.PercentageChange, 1e-9)

	history, err := store.GetHistory(created.ID, repository.DefaultHistoryLimit)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, got.CapitalMarketPrice, history[0].Price)
}

func TestRefreshAllSameSeedSameDeltas(t *testing.T) {
	t.Parallel()

	run := func(seed int64) models.InstrumentModel {
		store := repository.NewMemoryStore()
		seedReliance(t, store)
		svc := NewRefreshService(store, rand.New(rand.NewSource(seed)), 0, 0)
		refreshed, err := svc.RefreshAll()
		require.NoError(t, err)
		require.Len(t, refreshed, 1)
		return refreshed[0]
	}

	first := run(42)
	second := run(42)
	assert.Equal(t, first.CapitalMarketPrice, second.CapitalMarketPrice)
	assert.Equal(t, first.FuturesPrice, second.FuturesPrice)
	assert.Equal(t, first.PercentageChange, second.PercentageChange)
}

func TestRefreshAllPricesNeverNegative(t *testing.T) {
	t.Parallel()
	store := repository.NewMemoryStore()

	_, err := store.Create(models.InsertInstrumentParams{
		TradingSymbol:      "PENNY",
		CapitalMarketPrice: 0.01,
		FuturesPrice:       0,
		PercentageChange:   0,
	})
	require.NoError(t, err)
	seedReliance(t, store)

	svc := NewRefreshService(store, rand.New(rand.NewSource(7)), 0, 0)
	for i := 0; i < 50; i++ {
		refreshed, err := svc.RefreshAll()
		require.NoError(t, err)
		for _, instrument := range refreshed {
			assert.GreaterOrEqual(t, instrument.CapitalMarketPrice, 0.0)
			assert.GreaterOrEqual(t, instrument.FuturesPrice, 0.0)
		}
	}
}

func TestRefreshAllAppendsOneSamplePerInstrument(t *testing.T) {
	t.Parallel()
	store := repository.NewMemoryStore()
	first := seedReliance(t, store)
	second, err := store.Create(models.InsertInstrumentParams{
		TradingSymbol:      "TCS",
		CapitalMarketPrice: 3712.20,
		FuturesPrice:       3715.75,
		PercentageChange:   -0.45,
	})
	require.NoError(t, err)

	svc := NewRefreshService(store, rand.New(rand.NewSource(11)), 0, 0)
	refreshed, err := svc.RefreshAll()
	require.NoError(t, err)
	require.Len(t, refreshed, 2)

	prices := map[int64]float64{}
	for _, instrument := range refreshed {
		prices[instrument.ID] = instrument.CapitalMarketPrice
	}

	for _, id := range []int64{first.ID, second.ID} {
		history, err := store.GetHistory(id, repository.DefaultHistoryLimit)
		require.NoError(t, err)
		require.Len(t, history, 1)
		assert.Equal(t, prices[id], history[0].Price)
	}
}

func TestRefreshAllFaultInjection(t *testing.T) {
	t.Parallel()
	store := repository.NewMemoryStore()
	created := seedReliance(t, store)

	svc := NewRefreshService(store, rand.New(rand.NewSource(3)), 1.0, 0)
	refreshed, err := svc.RefreshAll()
	assert.ErrorIs(t, err, ErrSimulatedFault)
	assert.Nil(t, refreshed)

	// A failed cycle mutates nothing
	got, err := store.Get(created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.CapitalMarketPrice, got.CapitalMarketPrice)

	history, err := store.GetHistory(created.ID, repository.DefaultHistoryLimit)
	require.NoError(t, err)
	assert.Empty(t, history)
}
