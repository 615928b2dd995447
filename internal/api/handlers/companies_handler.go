package handlers

import (
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tradepulse/backend/internal/companies"
	"github.com/tradepulse/backend/internal/metrics"
	"github.com/tradepulse/backend/internal/query"
	"github.com/tradepulse/backend/pkg/logger"
)

type CompaniesHandler struct {
	aggregator *companies.Aggregator
}

func NewCompaniesHandler(aggregator *companies.Aggregator) *CompaniesHandler {
	return &CompaniesHandler{aggregator: aggregator}
}

func (h *CompaniesHandler) ListCompanies(c *fiber.Ctx) error {
	start := time.Now()

	params := companies.ListParams{
		Search:  c.Query("search"),
		Role:    c.Query("role"),
		Country: c.Query("country"),
		Sort:    c.Query("sort"),
		Order:   c.Query("order"),
		Page:    c.QueryInt("page", 1),
		Limit:   c.QueryInt("limit", query.DefaultCompanyLimit),
	}

	result, err := h.aggregator.List(c.Context(), params)
	if err != nil {
		logger.Error("Failed to list companies",
			zap.Error(err),
			zap.String("search", params.Search),
			zap.String("role", params.Role),
			zap.String("country", params.Country),
		)
		metrics.QueryTotal.WithLabelValues("companies", "error").Inc()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch companies",
		})
	}

	metrics.QueryTotal.WithLabelValues("companies", "ok").Inc()
	metrics.QueryDuration.WithLabelValues("companies").Observe(time.Since(start).Seconds())

	return c.JSON(result)
}

// GetCompanyDetails serves the per-company drill-down. The path segment is
// the exact company name; unknown names return empty collections, not 404.
func (h *CompaniesHandler) GetCompanyDetails(c *fiber.Ctx) error {
	start := time.Now()

	name, err := url.PathUnescape(c.Params("name"))
	if err != nil || name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Company name is required",
		})
	}

	details, err := h.aggregator.Details(c.Context(), name)
	if err != nil {
		logger.Error("Failed to fetch company details",
			zap.Error(err),
			zap.String("company", name),
		)
		metrics.QueryTotal.WithLabelValues("company_details", "error").Inc()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch company details",
		})
	}

	metrics.QueryTotal.WithLabelValues("company_details", "ok").Inc()
	metrics.QueryDuration.WithLabelValues("company_details").Observe(time.Since(start).Seconds())

	return c.JSON(details)
}
