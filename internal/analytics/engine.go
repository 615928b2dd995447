package analytics

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tradepulse/backend/internal/storage/models"
	"github.com/tradepulse/backend/internal/storage/sqlite"
	"github.com/tradepulse/backend/pkg/logger"
)

const topCommodityCount = 5

// Engine computes the cross-cutting aggregate views over the shipment table.
// Every view is a pure function of the loaded dataset.
type Engine struct {
	db *sqlite.Client
}

func NewEngine(db *sqlite.Client) *Engine {
	return &Engine{db: db}
}

func (e *Engine) GlobalStats(ctx context.Context) (models.GlobalStats, error) {
	return e.db.GlobalStats(ctx)
}

func (e *Engine) TopCommodities(ctx context.Context) ([]models.CommodityAggregate, error) {
	return e.db.TopCommodities(ctx, topCommodityCount)
}

// MonthlyVolume returns one entry per calendar month present in the data,
// ascending by sort date, with a short-month/year label derived from the
// bucket's earliest shipment date.
func (e *Engine) MonthlyVolume(ctx context.Context) ([]models.MonthlyVolumeEntry, error) {
	entries, err := e.db.MonthlyVolume(ctx)
	if err != nil {
		return nil, err
	}

	for i := range entries {
		date, err := time.Parse("2006-01-02", entries[i].SortDate)
		if err != nil {
			return nil, fmt.Errorf("failed to parse month bucket date %q: %w", entries[i].SortDate, err)
		}
		entries[i].Month = date.Format("Jan 2006")
	}

	return entries, nil
}

func (e *Engine) IndustryStats(ctx context.Context) ([]models.IndustryStat, error) {
	return e.db.IndustryStats(ctx)
}

func (e *Engine) Countries(ctx context.Context) ([]string, error) {
	return e.db.Countries(ctx)
}

// StatsBundle assembles the combined dashboard payload in one call.
func (e *Engine) StatsBundle(ctx context.Context) (models.StatsBundle, error) {
	stats, err := e.GlobalStats(ctx)
	if err != nil {
		return models.StatsBundle{}, err
	}

	topCommodities, err := e.TopCommodities(ctx)
	if err != nil {
		return models.StatsBundle{}, err
	}

	monthlyVolume, err := e.MonthlyVolume(ctx)
	if err != nil {
		return models.StatsBundle{}, err
	}

	industryStats, err := e.IndustryStats(ctx)
	if err != nil {
		return models.StatsBundle{}, err
	}

	logger.Debug("Stats bundle computed",
		zap.Int("months", len(monthlyVolume)),
		zap.Int("sectors", len(industryStats)),
	)

	return models.StatsBundle{
		Stats:          stats,
		TopCommodities: topCommodities,
		MonthlyVolume:  monthlyVolume,
		IndustryStats:  industryStats,
	}, nil
}
