package dataset

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradepulse/backend/internal/metrics"
	"github.com/tradepulse/backend/internal/storage/models"
	"github.com/tradepulse/backend/internal/storage/sqlite"
	"github.com/tradepulse/backend/pkg/logger"
)

// Loader reads the static shipment dataset into the store exactly once.
// Concurrent first callers share a single in-flight load; the outcome,
// success or failure, is retained for every later caller.
type Loader struct {
	db   *sqlite.Client
	path string

	once sync.Once
	err  error
}

func NewLoader(db *sqlite.Client, path string) *Loader {
	return &Loader{db: db, path: path}
}

// Ensure runs the one-time load if it has not happened yet and returns the
// retained load result otherwise.
func (l *Loader) Ensure(ctx context.Context) error {
	l.once.Do(func() {
		l.err = l.load(ctx)
	})
	return l.err
}

func (l *Loader) load(ctx context.Context) error {
	start := time.Now()

	raw, err := os.ReadFile(l.path)
	if err != nil {
		return fmt.Errorf("failed to read dataset file: %w", err)
	}

	var shipments []models.Shipment
	if err := json.Unmarshal(raw, &shipments); err != nil {
		return fmt.Errorf("failed to decode dataset file: %w", err)
	}

	assigned := 0
	for i := range shipments {
		if shipments[i].ID == "" {
			shipments[i].ID = uuid.New().String()
			assigned++
		}
	}
	if assigned > 0 {
		logger.Warn("Assigned ids to dataset rows missing one", zap.Int("count", assigned))
	}

	if err := l.db.InsertShipments(ctx, shipments); err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}

	metrics.DatasetShipments.Set(float64(len(shipments)))
	metrics.DatasetLoadSeconds.Set(time.Since(start).Seconds())

	logger.Info("Dataset loaded",
		zap.String("path", l.path),
		zap.Int("shipments", len(shipments)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return nil
}
