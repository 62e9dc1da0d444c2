// Package repository contains the storage layer for the Stockwatch API
package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nsvirk/stockwatchapi/internal/config"
	"github.com/nsvirk/stockwatchapi/internal/models"
	"github.com/nsvirk/stockwatchapi/pkg/utils/zaplogger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SchemaName is the Postgres schema holding the watchlist tables
var SchemaName = "watchlist"

// RefreshNotifyChannel is the Postgres NOTIFY channel that carries the
// post-refresh instrument snapshot
var RefreshNotifyChannel = "CH:API:STOCKS:REFRESH"

// ConnectPostgres connects to a Postgres database and returns a GORM database object
func ConnectPostgres(cfg *config.Config) (*gorm.DB, error) {
	zaplogger.Info("Initializing Postgres")

	// Set up GORM logger
	var logLevel logger.LogLevel
	switch cfg.PostgresLogLevel {
	case "silent":
		logLevel = logger.Silent
	case "error":
		logLevel = logger.Error
	case "warn":
		logLevel = logger.Warn
	case "info":
		logLevel = logger.Info
	default:
		logLevel = logger.Warn
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	}

	// Open database connection
	postgresDSN := cfg.PostgresDsn + " search_path=" + SchemaName + ",public"
	db, err := gorm.Open(postgres.Open(postgresDSN), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %v", err)
	}
	zaplogger.Info("  * connected")

	// Create the schema if it doesn't exist
	createSchemaSql := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", SchemaName)
	if err := db.Exec(createSchemaSql).Error; err != nil {
		return nil, fmt.Errorf("failed to create schema: %v", err)
	}

	// AutoMigrate will create tables and add/modify columns
	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %v", err)
	}

	return db, nil
}

func autoMigrate(db *gorm.DB) error {
	tables := []struct {
		name  string
		model interface{}
	}{
		{models.InstrumentsTableName, &models.InstrumentModel{}},
		{models.PriceHistoryTableName, &models.PriceHistoryModel{}},
	}

	zaplogger.Info("  * migrating tables")
	for _, table := range tables {
		err := db.Table(SchemaName + "." + table.name).AutoMigrate(table.model)
		if err != nil {
			return fmt.Errorf("failed to auto migrate table: %s, err:%v", table.name, err)
		}
		zaplogger.Info("    - \"" + SchemaName + "." + table.name + "\"")
	}

	return nil
}

// PostgresStore is the gorm-backed Store used when a Postgres DSN is
// configured. Backend failures are wrapped in ErrStorageUnavailable; a
// missing row is a nil result, never an error.
type PostgresStore struct {
	DB *gorm.DB
}

// NewPostgresStore creates a PostgresStore on an open gorm handle.
func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{DB: db}
}

// List returns every instrument.
func (s *PostgresStore) List() ([]models.InstrumentModel, error) {
	var instruments []models.InstrumentModel
	if err := s.DB.Find(&instruments).Error; err != nil {
		return nil, storageErr("list instruments", err)
	}
	return instruments, nil
}

// Get looks up an instrument by id, nil if absent.
func (s *PostgresStore) Get(id int64) (*models.InstrumentModel, error) {
	var instrument models.InstrumentModel
	err := s.DB.First(&instrument, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get instrument", err)
	}
	return &instrument, nil
}

// GetBySymbol looks up an instrument by exact trading symbol, nil if absent.
func (s *PostgresStore) GetBySymbol(symbol string) (*models.InstrumentModel, error) {
	var instrument models.InstrumentModel
	err := s.DB.First(&instrument, "trading_symbol = ?", symbol).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get instrument by symbol", err)
	}
	return &instrument, nil
}

// Create stores a new instrument. The id comes from the table's sequence,
// never from the wall clock.
func (s *PostgresStore) Create(params models.InsertInstrumentParams) (*models.InstrumentModel, error) {
	instrument := models.InstrumentModel{
		TradingSymbol:      params.TradingSymbol,
		CapitalMarketPrice: params.CapitalMarketPrice,
		FuturesPrice:       params.FuturesPrice,
		PercentageChange:   params.PercentageChange,
		LastUpdatedAt:      time.Now(),
	}
	if err := s.DB.Create(&instrument).Error; err != nil {
		return nil, storageErr("create instrument", err)
	}
	return &instrument, nil
}

// Update merges the non-nil fields into an existing instrument and
// refreshes its timestamp. Returns nil if the id does not exist.
func (s *PostgresStore) Update(id int64, params models.UpdateInstrumentParams) (*models.InstrumentModel, error) {
	updates := map[string]interface{}{
		"last_updated_at": time.Now(),
	}
	if params.TradingSymbol != nil {
		updates["trading_symbol"] = *params.TradingSymbol
	}
	if params.CapitalMarketPrice != nil {
		updates["capital_market_price"] = *params.CapitalMarketPrice
	}
	if params.FuturesPrice != nil {
		updates["futures_price"] = *params.FuturesPrice
	}
	if params.PercentageChange != nil {
		updates["percentage_change"] = *params.PercentageChange
	}

	result := s.DB.Model(&models.InstrumentModel{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, storageErr("update instrument", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return s.Get(id)
}

// Delete removes an instrument and its history series in one transaction.
// Reports whether a record existed.
func (s *PostgresStore) Delete(id int64) (bool, error) {
	var existed bool
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.InstrumentModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		existed = result.RowsAffected > 0
		return tx.Delete(&models.PriceHistoryModel{}, "instrument_id = ?", id).Error
	})
	if err != nil {
		return false, storageErr("delete instrument", err)
	}
	return existed, nil
}

// GetHistory returns the most recent limit samples in ascending timestamp
// order. Unknown ids yield an empty series, not an error.
func (s *PostgresStore) GetHistory(id int64, limit int) ([]models.PriceHistoryModel, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var samples []models.PriceHistoryModel
	err := s.DB.
		Where("instrument_id = ?", id).
		Order("timestamp DESC").
		Limit(limit).
		Find(&samples).Error
	if err != nil {
		return nil, storageErr("get price history", err)
	}

	// Query is newest first for the LIMIT, response is oldest first.
	for i, j := 0, len(samples)-1; i < j; i, j = i+1, j-1 {
		samples[i], samples[j] = samples[j], samples[i]
	}
	return samples, nil
}

// AppendHistory stores one new sample at the current time.
func (s *PostgresStore) AppendHistory(instrumentID int64, price float64) (*models.PriceHistoryModel, error) {
	return s.AppendHistoryAt(instrumentID, price, time.Now())
}

// AppendHistoryAt stores one new sample at an explicit time.
func (s *PostgresStore) AppendHistoryAt(instrumentID int64, price float64, at time.Time) (*models.PriceHistoryModel, error) {
	sample := models.PriceHistoryModel{
		ID:           uuid.NewString(),
		InstrumentID: instrumentID,
		Price:        price,
		Timestamp:    at,
	}
	if err := s.DB.Create(&sample).Error; err != nil {
		return nil, storageErr("append price history", err)
	}
	return &sample, nil
}

// RefreshQuote applies new prices and appends the matching history sample in
// one transaction, then notifies the refresh channel with the updated row.
// Returns nil, nil, nil if the id does not exist.
func (s *PostgresStore) RefreshQuote(id int64, capitalPrice, futuresPrice, percentageChange float64) (*models.InstrumentModel, *models.PriceHistoryModel, error) {
	var instrument *models.InstrumentModel
	var sample *models.PriceHistoryModel

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"capital_market_price": capitalPrice,
			"futures_price":        futuresPrice,
			"percentage_change":    percentageChange,
			"last_updated_at":      time.Now(),
		}
		result := tx.Model(&models.InstrumentModel{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		var updated models.InstrumentModel
		if err := tx.First(&updated, "id = ?", id).Error; err != nil {
			return err
		}

		newSample := models.PriceHistoryModel{
			ID:           uuid.NewString(),
			InstrumentID: id,
			Price:        capitalPrice,
			Timestamp:    time.Now(),
		}
		if err := tx.Create(&newSample).Error; err != nil {
			return err
		}

		payload, err := json.Marshal(updated)
		if err != nil {
			return err
		}
		if err := tx.Exec("SELECT pg_notify(?, ?)", RefreshNotifyChannel, string(payload)).Error; err != nil {
			return err
		}

		instrument = &updated
		sample = &newSample
		return nil
	})
	if err != nil {
		return nil, nil, storageErr("refresh quote", err)
	}
	return instrument, sample, nil
}

// Search returns instruments whose trading symbol contains the query,
// case-insensitively.
func (s *PostgresStore) Search(query string) ([]models.InstrumentModel, error) {
	var instruments []models.InstrumentModel
	pattern := "%" + strings.ToLower(query) + "%"
	err := s.DB.Where("LOWER(trading_symbol) LIKE ?", pattern).Find(&instruments).Error
	if err != nil {
		return nil, storageErr("search instruments", err)
	}
	return instruments, nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, op, err)
}
