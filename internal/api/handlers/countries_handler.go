package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tradepulse/backend/internal/analytics"
	"github.com/tradepulse/backend/internal/metrics"
	"github.com/tradepulse/backend/pkg/logger"
	"github.com/tradepulse/backend/pkg/utils"
)

type CountriesHandler struct {
	engine *analytics.Engine
	cache  ViewCache
}

func NewCountriesHandler(engine *analytics.Engine, cache ViewCache) *CountriesHandler {
	return &CountriesHandler{engine: engine, cache: cache}
}

// ListCountries serves the sorted distinct union of importer and exporter
// countries.
func (h *CountriesHandler) ListCountries(c *fiber.Ctx) error {
	start := time.Now()
	key := utils.HashString("countries")

	var countries []string
	if h.cache != nil && h.cache.GetView(c.Context(), "countries", key, &countries) {
		metrics.QueryTotal.WithLabelValues("countries", "ok").Inc()
		return c.JSON(countries)
	}

	countries, err := h.engine.Countries(c.Context())
	if err != nil {
		logger.Error("Failed to fetch countries", zap.Error(err))
		metrics.QueryTotal.WithLabelValues("countries", "error").Inc()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch countries",
		})
	}

	if h.cache != nil {
		h.cache.SetView(c.Context(), "countries", key, countries)
	}

	metrics.QueryTotal.WithLabelValues("countries", "ok").Inc()
	metrics.QueryDuration.WithLabelValues("countries").Observe(time.Since(start).Seconds())

	return c.JSON(countries)
}
