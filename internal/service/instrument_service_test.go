package service

import (
	"math/rand"
	"testing"

	"github.com/nsvirk/stockwatchapi/internal/models"
	"github.com/nsvirk/stockwatchapi/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*InstrumentService, *repository.MemoryStore) {
	t.Helper()
	store := repository.NewMemoryStore()
	return NewInstrumentService(store), store
}

func TestListAttachesPriceDifference(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	_, err := svc.CreateInstrument(models.InsertInstrumentParams{
		TradingSymbol:      "RELIANCE",
		CapitalMarketPrice: 2915.45,
		FuturesPrice:       2921.10,
		PercentageChange:   0.84,
	})
	require.NoError(t, err)

	list, err := svc.ListInstruments("", false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.InDelta(t, 2921.10-2915.45, list[0].PriceDifference, 1e-9)

	// Alternate view is a sign flip only
	flipped, err := svc.ListInstruments("", true)
	require.NoError(t, err)
	require.Len(t, flipped, 1)
	assert.InDelta(t, -list[0].PriceDifference, flipped[0].PriceDifference, 1e-9)
}

func TestListFiltersBySymbolSubstring(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	for _, symbol := range []string{"RELIANCE", "TCS", "INFY"} {
		_, err := svc.CreateInstrument(models.InsertInstrumentParams{
			TradingSymbol:      symbol,
			CapitalMarketPrice: 100,
			FuturesPrice:       101,
		})
		require.NoError(t, err)
	}

	list, err := svc.ListInstruments("reli", false)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "RELIANCE", list[0].TradingSymbol)
}

func TestListIsSortedByID(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	for _, symbol := range []string{"C", "A", "B"} {
		_, err := svc.CreateInstrument(models.InsertInstrumentParams{
			TradingSymbol:      symbol,
			CapitalMarketPrice: 1,
			FuturesPrice:       1,
		})
		require.NoError(t, err)
	}

	list, err := svc.ListInstruments("", false)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i := 1; i < len(list); i++ {
		assert.Greater(t, list[i].ID, list[i-1].ID)
	}
}

func TestCreateRejectsDuplicateSymbol(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	params := models.InsertInstrumentParams{
		TradingSymbol:      "INFY",
		CapitalMarketPrice: 1500,
		FuturesPrice:       1505,
	}
	_, err := svc.CreateInstrument(params)
	require.NoError(t, err)

	_, err = svc.CreateInstrument(params)
	assert.ErrorIs(t, err, ErrDuplicateSymbol)
}

func TestCreateThenDeleteThenGet(t *testing.T) {
	t.Parallel()
	svc, _ := newTestService(t)

	created, err := svc.CreateInstrument(models.InsertInstrumentParams{
		TradingSymbol:      "INFY",
		CapitalMarketPrice: 1500,
		FuturesPrice:       1505,
		PercentageChange:   0,
	})
	require.NoError(t, err)

	deleted, err := svc.DeleteInstrument(created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := svc.GetInstrument(created.ID, false)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetHistoryCapsLimit(t *testing.T) {
	t.Parallel()
	svc, store := newTestService(t)

	created, err := svc.CreateInstrument(models.InsertInstrumentParams{
		TradingSymbol:      "TCS",
		CapitalMarketPrice: 3712.20,
		FuturesPrice:       3715.75,
	})
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		_, err := store.AppendHistory(created.ID, float64(i))
		require.NoError(t, err)
	}

	// A limit above the window is clamped to it
	history, err := svc.GetHistory(created.ID, 100)
	require.NoError(t, err)
	assert.Len(t, history, repository.DefaultHistoryLimit)
}

func TestSeedSampleData(t *testing.T) {
	t.Parallel()
	store := repository.NewMemoryStore()
	rng := rand.New(rand.NewSource(1))

	require.NoError(t, SeedSampleData(store, rng))

	instruments, err := store.List()
	require.NoError(t, err)
	require.Len(t, instruments, 2)

	for _, instrument := range instruments {
		history, err := store.GetHistory(instrument.ID, repository.DefaultHistoryLimit)
		require.NoError(t, err)
		require.Len(t, history, 30)
		for i := 1; i < len(history); i++ {
			assert.False(t, history[i].Timestamp.Before(history[i-1].Timestamp))
		}
	}

	// Seeding a non-empty store is a no-op
	require.NoError(t, SeedSampleData(store, rng))
	instruments, err = store.List()
	require.NoError(t, err)
	assert.Len(t, instruments, 2)
}
