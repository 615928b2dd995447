package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tradepulse/backend/internal/analytics"
	"github.com/tradepulse/backend/internal/metrics"
	"github.com/tradepulse/backend/internal/storage/models"
	"github.com/tradepulse/backend/pkg/logger"
	"github.com/tradepulse/backend/pkg/utils"
)

// ViewCache is the optional read-through cache for parameterless views.
type ViewCache interface {
	GetView(ctx context.Context, view, key string, value interface{}) bool
	SetView(ctx context.Context, view, key string, value interface{})
}

type StatsHandler struct {
	engine *analytics.Engine
	cache  ViewCache
}

// NewStatsHandler wires the analytics engine with an optional view cache;
// cache may be nil when caching is disabled.
func NewStatsHandler(engine *analytics.Engine, cache ViewCache) *StatsHandler {
	return &StatsHandler{engine: engine, cache: cache}
}

// GetStats serves the combined dashboard bundle: global stats, top
// commodities, monthly volume and industry distribution.
func (h *StatsHandler) GetStats(c *fiber.Ctx) error {
	start := time.Now()
	key := utils.HashString("stats-bundle")

	var bundle models.StatsBundle
	if h.cache != nil && h.cache.GetView(c.Context(), "stats", key, &bundle) {
		metrics.QueryTotal.WithLabelValues("stats", "ok").Inc()
		return c.JSON(bundle)
	}

	bundle, err := h.engine.StatsBundle(c.Context())
	if err != nil {
		logger.Error("Failed to compute stats bundle", zap.Error(err))
		metrics.QueryTotal.WithLabelValues("stats", "error").Inc()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch dashboard stats",
		})
	}

	if h.cache != nil {
		h.cache.SetView(c.Context(), "stats", key, bundle)
	}

	metrics.QueryTotal.WithLabelValues("stats", "ok").Inc()
	metrics.QueryDuration.WithLabelValues("stats").Observe(time.Since(start).Seconds())

	return c.JSON(bundle)
}
