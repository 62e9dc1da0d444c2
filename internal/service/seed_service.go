// Package service contains the service layer for the Stockwatch API
package service

import (
	"time"

	"github.com/nsvirk/stockwatchapi/internal/models"
	"github.com/nsvirk/stockwatchapi/internal/repository"
	"github.com/nsvirk/stockwatchapi/pkg/utils/zaplogger"
)

// seedInstruments is the sample watchlist loaded into an empty store.
var seedInstruments = []models.InsertInstrumentParams{
	{
		TradingSymbol:      "RELIANCE",
		CapitalMarketPrice: 2915.45,
		FuturesPrice:       2921.10,
		PercentageChange:   0.84,
	},
	{
		TradingSymbol:      "TCS",
		CapitalMarketPrice: 3712.20,
		FuturesPrice:       3715.75,
		PercentageChange:   -0.45,
	},
}

const (
	seedHistoryPoints   = 30
	seedHistoryInterval = 5 * time.Minute
)

// SeedSampleData loads the sample instruments with a backfilled history
// series into the store, unless it already holds data. Each instrument gets
// 30 samples at 5-minute intervals, varied up to ±10 around its capital
// price.
func SeedSampleData(store repository.Store, rng RandSource) error {
	existing, err := store.List()
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		zaplogger.Debug("seed skipped, store not empty", zaplogger.Fields{
			"instruments": len(existing),
		})
		return nil
	}

	now := time.Now()
	for _, params := range seedInstruments {
		instrument, err := store.Create(params)
		if err != nil {
			return err
		}

		for i := seedHistoryPoints - 1; i >= 0; i-- {
			at := now.Add(-time.Duration(i) * seedHistoryInterval)
			price := instrument.CapitalMarketPrice + (rng.Float64()-0.5)*20
			if _, err := store.AppendHistoryAt(instrument.ID, price, at); err != nil {
				return err
			}
		}
	}

	zaplogger.Info("seeded sample watchlist", zaplogger.Fields{
		"instruments": len(seedInstruments),
	})
	return nil
}
