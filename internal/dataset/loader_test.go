package dataset

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepulse/backend/internal/query"
	"github.com/tradepulse/backend/internal/storage/sqlite"
)

const sampleDataset = `[
	{"id": "s1", "importer_name": "Acme Imports", "importer_country": "United States", "exporter_name": "Bolt Exports", "exporter_country": "Germany", "shipment_date": "2024-01-15", "commodity_name": "Copper Wire", "industry_sector": "Metals", "weight_metric_tonnes": 100},
	{"importer_name": "Dune Trading", "importer_country": "United Arab Emirates", "exporter_name": "Bolt Exports", "exporter_country": "Germany", "shipment_date": "2024-02-05", "commodity_name": "Copper Wire", "industry_sector": "Metals", "weight_metric_tonnes": 75}
]`

func newTestStore(t *testing.T) *sqlite.Client {
	t.Helper()

	db, err := sqlite.NewClient(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.InitSchema())

	return db
}

func writeDataset(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "shipments.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestEnsureLoadsOnce(t *testing.T) {
	db := newTestStore(t)
	loader := NewLoader(db, writeDataset(t, sampleDataset))

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = loader.Ensure(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	// A duplicate load would violate the primary key or double the row count.
	require.NoError(t, loader.Ensure(context.Background()))

	stats, err := db.GlobalStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalShipments)
}

func TestEnsureAssignsMissingIDs(t *testing.T) {
	db := newTestStore(t)
	loader := NewLoader(db, writeDataset(t, sampleDataset))
	require.NoError(t, loader.Ensure(context.Background()))

	shipments, _, err := db.ListShipments(
		context.Background(),
		query.Restriction{},
		query.Ordering{Column: "shipment_date", Direction: "asc"},
		10, 0,
	)
	require.NoError(t, err)
	require.Len(t, shipments, 2)

	for _, s := range shipments {
		assert.NotEmpty(t, s.ID)
	}
}

func TestEnsureRetainsLoadError(t *testing.T) {
	db := newTestStore(t)
	loader := NewLoader(db, filepath.Join(t.TempDir(), "missing.json"))

	first := loader.Ensure(context.Background())
	require.Error(t, first)

	second := loader.Ensure(context.Background())
	assert.Equal(t, first, second)
}

func TestEnsureRejectsMalformedDataset(t *testing.T) {
	db := newTestStore(t)
	loader := NewLoader(db, writeDataset(t, `{"not": "an array"}`))

	assert.Error(t, loader.Ensure(context.Background()))
}
