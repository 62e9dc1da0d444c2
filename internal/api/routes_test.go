package api

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/stockwatchapi/internal/config"
	"github.com/nsvirk/stockwatchapi/internal/models"
	"github.com/nsvirk/stockwatchapi/internal/repository"
	"github.com/nsvirk/stockwatchapi/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listEnvelope struct {
	Status    string                              `json:"status"`
	Data      []models.InstrumentWithCalculations `json:"data"`
	ErrorType string                              `json:"error_type"`
	Message   string                              `json:"message"`
}

type detailEnvelope struct {
	Status    string                             `json:"status"`
	Data      *models.InstrumentWithCalculations `json:"data"`
	ErrorType string                             `json:"error_type"`
	Message   string                             `json:"message"`
}

// newTestServer wires a fresh in-memory stack with no refresh delay and the
// given fault probability.
func newTestServer(t *testing.T, faultProbability float64) (*echo.Echo, *repository.MemoryStore) {
	t.Helper()

	cfg := &config.Config{APIName: "Stockwatch API", APIVersion: "test"}
	store := repository.NewMemoryStore()
	rng := rand.New(rand.NewSource(1))

	instrumentService := service.NewInstrumentService(store)
	refreshService := service.NewRefreshService(store, rng, faultProbability, 0)
	publishService := service.NewPublishService(nil, "")

	e := echo.New()
	SetupRoutes(e, cfg, instrumentService, refreshService, publishService)
	return e, store
}

func createInstrument(t *testing.T, store *repository.MemoryStore, symbol string, capital, futures float64) *models.InstrumentModel {
	t.Helper()
	created, err := store.Create(models.InsertInstrumentParams{
		TradingSymbol:      symbol,
		CapitalMarketPrice: capital,
		FuturesPrice:       futures,
	})
	require.NoError(t, err)
	return created
}

func doRequest(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGetInstrumentsAttachesDerivedFields(t *testing.T) {
	t.Parallel()
	e, store := newTestServer(t, 0)
	created := createInstrument(t, store, "RELIANCE", 2915.45, 2921.10)
	_, err := store.AppendHistory(created.ID, created.CapitalMarketPrice)
	require.NoError(t, err)

	rec := doRequest(e, http.MethodGet, "/api/instruments", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope listEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.InDelta(t, 2921.10-2915.45, envelope.Data[0].PriceDifference, 1e-9)
	assert.Len(t, envelope.Data[0].PriceHistory, 1)
}

func TestGetInstrumentsSearch(t *testing.T) {
	t.Parallel()
	e, store := newTestServer(t, 0)
	createInstrument(t, store, "RELIANCE", 2915.45, 2921.10)
	createInstrument(t, store, "TCS", 3712.20, 3715.75)

	rec := doRequest(e, http.MethodGet, "/api/instruments?q=tcs", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope listEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "TCS", envelope.Data[0].TradingSymbol)
}

func TestGetInstrumentInvalidID(t *testing.T) {
	t.Parallel()
	e, _ := newTestServer(t, 0)

	rec := doRequest(e, http.MethodGet, "/api/instruments/abc", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var envelope detailEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "InputException", envelope.ErrorType)
}

func TestGetInstrumentNotFound(t *testing.T) {
	t.Parallel()
	e, _ := newTestServer(t, 0)

	rec := doRequest(e, http.MethodGet, "/api/instruments/999", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	var envelope detailEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "DataException", envelope.ErrorType)
}

func TestGetInstrumentCapitalView(t *testing.T) {
	t.Parallel()
	e, store := newTestServer(t, 0)
	created := createInstrument(t, store, "RELIANCE", 2915.45, 2921.10)

	rec := doRequest(e, http.MethodGet, "/api/instruments/"+itoa(created.ID)+"?view=capital", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope detailEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Data)
	assert.InDelta(t, 2915.45-2921.10, envelope.Data.PriceDifference, 1e-9)
}

func TestCreateInstrumentValidation(t *testing.T) {
	t.Parallel()
	e, _ := newTestServer(t, 0)

	rec := doRequest(e, http.MethodPost, "/api/instruments",
		`{"tradingSymbol":"","capitalMarketPrice":-1,"futuresPrice":100}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var envelope struct {
		ErrorType string              `json:"error_type"`
		Errors    []models.FieldError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "InputException", envelope.ErrorType)
	assert.Len(t, envelope.Errors, 2)
}

func TestCreateAndDeleteInstrument(t *testing.T) {
	t.Parallel()
	e, _ := newTestServer(t, 0)

	rec := doRequest(e, http.MethodPost, "/api/instruments",
		`{"tradingSymbol":"INFY","capitalMarketPrice":1500,"futuresPrice":1505,"percentageChange":0}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var createEnvelope struct {
		Data models.InstrumentModel `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &createEnvelope))
	require.NotZero(t, createEnvelope.Data.ID)

	rec = doRequest(e, http.MethodDelete, "/api/instruments/"+itoa(createEnvelope.Data.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(e, http.MethodGet, "/api/instruments/"+itoa(createEnvelope.Data.ID), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetInstrumentHistoryCap(t *testing.T) {
	t.Parallel()
	e, store := newTestServer(t, 0)
	created := createInstrument(t, store, "RELIANCE", 2915.45, 2921.10)
	for i := 0; i < 40; i++ {
		_, err := store.AppendHistory(created.ID, float64(i))
		require.NoError(t, err)
	}

	rec := doRequest(e, http.MethodGet, "/api/instruments/"+itoa(created.ID)+"/history?limit=100", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data []models.PriceHistoryModel `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, repository.DefaultHistoryLimit)
}

func TestRefreshEndpoint(t *testing.T) {
	t.Parallel()
	e, store := newTestServer(t, 0)
	created := createInstrument(t, store, "RELIANCE", 2915.45, 2921.10)

	rec := doRequest(e, http.MethodPost, "/api/instruments/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope listEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)

	got := envelope.Data[0]
	assert.GreaterOrEqual(t, got.CapitalMarketPrice, 0.0)
	assert.GreaterOrEqual(t, got.FuturesPrice, 0.0)
	require.Len(t, got.PriceHistory, 1)
	assert.Equal(t, got.CapitalMarketPrice, got.PriceHistory[0].Price)
	assert.InDelta(t, got.FuturesPrice-got.CapitalMarketPrice, got.PriceDifference, 1e-9)

	history, err := store.GetHistory(created.ID, repository.DefaultHistoryLimit)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestRefreshEndpointSimulatedFault(t *testing.T) {
	t.Parallel()
	e, store := newTestServer(t, 1.0)
	createInstrument(t, store, "RELIANCE", 2915.45, 2921.10)

	rec := doRequest(e, http.MethodPost, "/api/instruments/refresh", "")
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var envelope detailEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "NetworkException", envelope.ErrorType)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
