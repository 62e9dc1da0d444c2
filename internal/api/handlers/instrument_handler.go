// Package handlers contains the handlers for the API
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/nsvirk/stockwatchapi/internal/models"
	"github.com/nsvirk/stockwatchapi/internal/repository"
	"github.com/nsvirk/stockwatchapi/internal/service"
	"github.com/nsvirk/stockwatchapi/pkg/utils/response"
)

// InstrumentHandler is the handler for the instrument API
type InstrumentHandler struct {
	instrumentService *service.InstrumentService
	refreshService    *service.RefreshService
	publishService    *service.PublishService
}

// NewInstrumentHandler creates a new instrument handler
func NewInstrumentHandler(instrumentService *service.InstrumentService, refreshService *service.RefreshService, publishService *service.PublishService) *InstrumentHandler {
	return &InstrumentHandler{
		instrumentService: instrumentService,
		refreshService:    refreshService,
		publishService:    publishService,
	}
}

// GetInstruments returns all instruments with derived fields, optionally
// filtered by `q` (case-insensitive symbol substring). `view=capital`
// flips the sign of the price difference.
func (h *InstrumentHandler) GetInstruments(c echo.Context) error {
	query := c.QueryParam("q")
	capitalView := c.QueryParam("view") == "capital"

	instruments, err := h.instrumentService.ListInstruments(query, capitalView)
	if err != nil {
		return serverError(c, err)
	}
	return response.SuccessResponse(c, instruments)
}

// GetInstrument returns a single instrument with derived fields
func (h *InstrumentHandler) GetInstrument(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `id`, must be an integer")
	}
	capitalView := c.QueryParam("view") == "capital"

	instrument, err := h.instrumentService.GetInstrument(id, capitalView)
	if err != nil {
		return serverError(c, err)
	}
	if instrument == nil {
		return response.ErrorResponse(c, http.StatusNotFound, "DataException", "Instrument not found")
	}
	return response.SuccessResponse(c, instrument)
}

// CreateInstrument validates and stores a new instrument
func (h *InstrumentHandler) CreateInstrument(c echo.Context) error {
	var params models.InsertInstrumentParams
	if err := c.Bind(&params); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid request body")
	}
	if fieldErrs := params.Validate(); len(fieldErrs) > 0 {
		return response.ValidationErrorResponse(c, "Invalid instrument", fieldErrs)
	}

	instrument, err := h.instrumentService.CreateInstrument(params)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateSymbol) {
			return response.ErrorResponse(c, http.StatusBadRequest, "InputException", err.Error())
		}
		return serverError(c, err)
	}
	return response.SuccessResponse(c, instrument)
}

// UpdateInstrument merges a partial update into an existing instrument
func (h *InstrumentHandler) UpdateInstrument(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `id`, must be an integer")
	}

	var params models.UpdateInstrumentParams
	if err := c.Bind(&params); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid request body")
	}
	if fieldErrs := params.Validate(); len(fieldErrs) > 0 {
		return response.ValidationErrorResponse(c, "Invalid instrument", fieldErrs)
	}

	instrument, err := h.instrumentService.UpdateInstrument(id, params)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateSymbol) {
			return response.ErrorResponse(c, http.StatusBadRequest, "InputException", err.Error())
		}
		return serverError(c, err)
	}
	if instrument == nil {
		return response.ErrorResponse(c, http.StatusNotFound, "DataException", "Instrument not found")
	}
	return response.SuccessResponse(c, instrument)
}

// DeleteInstrument removes an instrument and its history series
func (h *InstrumentHandler) DeleteInstrument(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `id`, must be an integer")
	}

	deleted, err := h.instrumentService.DeleteInstrument(id)
	if err != nil {
		return serverError(c, err)
	}
	if !deleted {
		return response.ErrorResponse(c, http.StatusNotFound, "DataException", "Instrument not found")
	}
	return response.SuccessResponse(c, map[string]interface{}{"deleted": true, "id": id})
}

// GetInstrumentHistory returns the most recent history samples, oldest
// first, capped at 30
func (h *InstrumentHandler) GetInstrumentHistory(c echo.Context) error {
	id, ok := parseID(c)
	if !ok {
		return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `id`, must be an integer")
	}

	limit := repository.DefaultHistoryLimit
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return response.ErrorResponse(c, http.StatusBadRequest, "InputException", "Invalid `limit`, must be an integer")
		}
		limit = parsed
	}

	history, err := h.instrumentService.GetHistory(id, limit)
	if err != nil {
		return serverError(c, err)
	}
	return response.SuccessResponse(c, history)
}

// RefreshInstruments runs one refresh cycle and returns the post-refresh
// set with derived fields. The simulated upstream fault surfaces as a 500.
func (h *InstrumentHandler) RefreshInstruments(c echo.Context) error {
	instruments, err := h.refreshService.RefreshAll()
	if err != nil {
		if errors.Is(err, service.ErrSimulatedFault) {
			return response.ErrorResponse(c, http.StatusInternalServerError, "NetworkException", "Failed to refresh instrument data")
		}
		return serverError(c, err)
	}

	h.publishService.PublishSnapshot(instruments)

	capitalView := c.QueryParam("view") == "capital"
	withCalc, err := h.instrumentService.ListInstruments("", capitalView)
	if err != nil {
		return serverError(c, err)
	}
	return response.SuccessResponse(c, withCalc)
}

// parseID reads the id path parameter, false when it is not an integer.
func parseID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// serverError translates a storage failure into the boundary response.
// StorageUnavailable stays distinct from not-found and is never swallowed.
func serverError(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrStorageUnavailable) {
		return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", "Storage unavailable")
	}
	return response.ErrorResponse(c, http.StatusInternalServerError, "ServerException", err.Error())
}
