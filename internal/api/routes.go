// Package api contains the API routes for the Stockwatch API
package api

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/nsvirk/stockwatchapi/internal/api/handlers"
	"github.com/nsvirk/stockwatchapi/internal/config"
	"github.com/nsvirk/stockwatchapi/internal/service"
	"github.com/nsvirk/stockwatchapi/pkg/utils/response"
)

// SetupRoutes configures the routes for the API
func SetupRoutes(e *echo.Echo, cfg *config.Config, instrumentService *service.InstrumentService, refreshService *service.RefreshService, publishService *service.PublishService) {

	// Create a group for all API routes
	api := e.Group("/api")

	// Index route
	api.GET("/", indexRoute(cfg))

	// Instrument routes
	instrumentHandler := handlers.NewInstrumentHandler(instrumentService, refreshService, publishService)
	instrumentGroup := api.Group("/instruments")
	instrumentGroup.GET("", instrumentHandler.GetInstruments)
	instrumentGroup.POST("", instrumentHandler.CreateInstrument)
	instrumentGroup.POST("/refresh", instrumentHandler.RefreshInstruments)
	instrumentGroup.GET("/:id", instrumentHandler.GetInstrument)
	instrumentGroup.PUT("/:id", instrumentHandler.UpdateInstrument)
	instrumentGroup.DELETE("/:id", instrumentHandler.DeleteInstrument)
	instrumentGroup.GET("/:id/history", instrumentHandler.GetInstrumentHistory)
}

// indexRoute sets up the index route for the API
func indexRoute(cfg *config.Config) echo.HandlerFunc {
	return func(c echo.Context) error {
		message := fmt.Sprintf("%s %s", cfg.APIName, cfg.APIVersion)
		return response.SuccessResponse(c, message)
	}
}
