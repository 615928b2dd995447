package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tradepulse/backend/internal/metrics"
	"github.com/tradepulse/backend/internal/query"
	"github.com/tradepulse/backend/internal/storage/models"
	"github.com/tradepulse/backend/internal/storage/sqlite"
	"github.com/tradepulse/backend/pkg/logger"
)

type ShipmentsHandler struct {
	db *sqlite.Client
}

func NewShipmentsHandler(db *sqlite.Client) *ShipmentsHandler {
	return &ShipmentsHandler{db: db}
}

// ListShipments serves the filtered, sorted, paginated shipment listing.
// Malformed numeric parameters default rather than error.
func (h *ShipmentsHandler) ListShipments(c *fiber.Ctx) error {
	start := time.Now()

	filter := query.ShipmentFilter{
		Search:         c.Query("search"),
		StartDate:      c.Query("startDate"),
		EndDate:        c.Query("endDate"),
		MinWeight:      parseOptionalFloat(c.Query("minWeight")),
		WeightOperator: c.Query("weightOperator"),
		Sort:           c.Query("sort"),
		Order:          c.Query("order"),
		Page:           c.QueryInt("page", 1),
		Limit:          c.QueryInt("limit", query.DefaultShipmentLimit),
	}

	restriction, ordering, limit, offset := filter.Build()

	shipments, total, err := h.db.ListShipments(c.Context(), restriction, ordering, limit, offset)
	if err != nil {
		logger.Error("Failed to list shipments",
			zap.Error(err),
			zap.String("search", filter.Search),
			zap.String("sort", ordering.Column),
			zap.Int("limit", limit),
			zap.Int("offset", offset),
		)
		metrics.QueryTotal.WithLabelValues("shipments", "error").Inc()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch shipments",
		})
	}

	if shipments == nil {
		shipments = []models.Shipment{}
	}

	metrics.QueryTotal.WithLabelValues("shipments", "ok").Inc()
	metrics.QueryDuration.WithLabelValues("shipments").Observe(time.Since(start).Seconds())

	return c.JSON(fiber.Map{
		"data":  shipments,
		"total": total,
	})
}

func parseOptionalFloat(raw string) *float64 {
	if raw == "" {
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		logger.Debug("Dropping unparseable numeric filter", zap.String("value", raw))
		return nil
	}
	return &value
}
