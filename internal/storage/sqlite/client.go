package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/tradepulse/backend/internal/query"
	"github.com/tradepulse/backend/internal/storage/models"
	"github.com/tradepulse/backend/pkg/logger"
)

// ErrInvalidQuery is returned when a restriction or ordering references a
// column the shipments table does not have.
var ErrInvalidQuery = errors.New("restriction references unrecognized column")

var shipmentColumns = map[string]bool{
	"id":                   true,
	"importer_name":        true,
	"importer_country":     true,
	"importer_website":     true,
	"exporter_name":        true,
	"exporter_country":     true,
	"exporter_website":     true,
	"shipment_date":        true,
	"commodity_name":       true,
	"industry_sector":      true,
	"weight_metric_tonnes": true,
}

type Client struct {
	db *sql.DB
}

func NewClient(dsn string) (*Client, error) {
	if dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps the in-memory database coherent; database/sql
	// would otherwise hand each connection its own empty :memory: instance.
	db.SetMaxOpenConns(1)

	logger.Info("SQLite client initialized", zap.String("dsn", dsn))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS shipments (
		id TEXT PRIMARY KEY,
		importer_name TEXT NOT NULL,
		importer_country TEXT NOT NULL,
		importer_website TEXT,
		exporter_name TEXT NOT NULL,
		exporter_country TEXT NOT NULL,
		exporter_website TEXT,
		shipment_date TEXT NOT NULL,
		commodity_name TEXT NOT NULL,
		industry_sector TEXT,
		weight_metric_tonnes REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_shipments_importer ON shipments(importer_name);
	CREATE INDEX IF NOT EXISTS idx_shipments_exporter ON shipments(exporter_name);
	CREATE INDEX IF NOT EXISTS idx_shipments_date ON shipments(shipment_date);
	CREATE INDEX IF NOT EXISTS idx_shipments_commodity ON shipments(commodity_name);
	CREATE INDEX IF NOT EXISTS idx_shipments_sector ON shipments(industry_sector);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

// InsertShipments loads a batch of shipment rows in one transaction. Load
// order defines the rowid order every first-seen rule downstream depends on.
func (c *Client) InsertShipments(ctx context.Context, shipments []models.Shipment) error {
	if len(shipments) == 0 {
		return nil
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO shipments (
			id, importer_name, importer_country, importer_website,
			exporter_name, exporter_country, exporter_website,
			shipment_date, commodity_name, industry_sector, weight_metric_tonnes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i := range shipments {
		s := shipments[i]
		_, err = stmt.ExecContext(ctx,
			s.ID,
			s.ImporterName,
			s.ImporterCountry,
			s.ImporterWebsite,
			s.ExporterName,
			s.ExporterCountry,
			s.ExporterWebsite,
			s.ShipmentDate,
			s.CommodityName,
			s.IndustrySector,
			s.WeightMetricTonnes,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to insert shipment %s: %w", s.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit shipments: %w", err)
	}

	logger.Info("Shipments loaded", zap.Int("count", len(shipments)))
	return nil
}

// ListShipments executes a restricted, ordered, paginated listing. The total
// is counted under the same restriction before limit/offset apply.
func (c *Client) ListShipments(ctx context.Context, r query.Restriction, o query.Ordering, limit, offset int) ([]models.Shipment, int, error) {
	for _, column := range r.Columns() {
		if !shipmentColumns[column] {
			return nil, 0, fmt.Errorf("%w: %s", ErrInvalidQuery, column)
		}
	}
	if !shipmentColumns[o.Column] {
		return nil, 0, fmt.Errorf("%w: %s", ErrInvalidQuery, o.Column)
	}

	var total int
	countSQL := "SELECT COUNT(*) FROM shipments" + r.SQL()
	if err := c.db.QueryRowContext(ctx, countSQL, r.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count shipments: %w", err)
	}

	listSQL := `
		SELECT id, importer_name, importer_country, importer_website,
			exporter_name, exporter_country, exporter_website,
			shipment_date, commodity_name, COALESCE(industry_sector, ''), weight_metric_tonnes
		FROM shipments` + r.SQL() + o.SQL() + " LIMIT ? OFFSET ?"

	args := append(append([]interface{}{}, r.Args()...), limit, offset)
	rows, err := c.db.QueryContext(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list shipments: %w", err)
	}
	defer rows.Close()

	var shipments []models.Shipment
	for rows.Next() {
		var s models.Shipment
		err := rows.Scan(
			&s.ID,
			&s.ImporterName,
			&s.ImporterCountry,
			&s.ImporterWebsite,
			&s.ExporterName,
			&s.ExporterCountry,
			&s.ExporterWebsite,
			&s.ShipmentDate,
			&s.CommodityName,
			&s.IndustrySector,
			&s.WeightMetricTonnes,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan shipment row: %w", err)
		}
		shipments = append(shipments, s)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read shipment rows: %w", err)
	}

	return shipments, total, nil
}

// CompanySides returns the importer-perspective grouping followed by the
// exporter-perspective grouping, each in first-seen source order. The company
// aggregator merges the two passes by name.
func (c *Client) CompanySides(ctx context.Context) ([]models.CompanySide, error) {
	sideSQL := `
		SELECT %[1]s_name, %[1]s_country, COALESCE(%[1]s_website, ''),
			COUNT(*), SUM(weight_metric_tonnes)
		FROM shipments
		GROUP BY %[1]s_name, %[1]s_country, %[1]s_website
		ORDER BY MIN(rowid) ASC
	`

	var sides []models.CompanySide
	for _, side := range []struct {
		prefix string
		role   string
	}{
		{"importer", models.RoleImporter},
		{"exporter", models.RoleExporter},
	} {
		rows, err := c.db.QueryContext(ctx, fmt.Sprintf(sideSQL, side.prefix))
		if err != nil {
			return nil, fmt.Errorf("failed to group %s side: %w", side.prefix, err)
		}

		for rows.Next() {
			cs := models.CompanySide{Role: side.role}
			if err := rows.Scan(&cs.Name, &cs.Country, &cs.Website, &cs.ShipmentCount, &cs.TotalWeight); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan %s side row: %w", side.prefix, err)
			}
			sides = append(sides, cs)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to read %s side rows: %w", side.prefix, err)
		}
		rows.Close()
	}

	return sides, nil
}

// CompanyCommodities sums commodity weight over every shipment the named
// company participates in, on either side. Name is matched exactly, as data.
func (c *Client) CompanyCommodities(ctx context.Context, name string, limit int) ([]models.CompanyCommodity, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT commodity_name, SUM(weight_metric_tonnes) AS weight
		FROM shipments
		WHERE importer_name = ? OR exporter_name = ?
		GROUP BY commodity_name
		ORDER BY weight DESC, commodity_name ASC
		LIMIT ?
	`, name, name, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query company commodities: %w", err)
	}
	defer rows.Close()

	commodities := []models.CompanyCommodity{}
	for rows.Next() {
		var cc models.CompanyCommodity
		if err := rows.Scan(&cc.Name, &cc.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan commodity row: %w", err)
		}
		commodities = append(commodities, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read commodity rows: %w", err)
	}

	return commodities, nil
}

// CompanyPartners counts counterpart companies across both trade directions,
// re-grouped by (name, country) so a partner trading both ways collapses to
// one entry with its counts summed.
func (c *Client) CompanyPartners(ctx context.Context, name string, limit int) ([]models.TradingPartner, error) {
	rows, err := c.db.QueryContext(ctx, `
		WITH partners AS (
			SELECT exporter_name AS name, exporter_country AS country, COUNT(*) AS shipments
			FROM shipments
			WHERE importer_name = ?
			GROUP BY exporter_name, exporter_country

			UNION ALL

			SELECT importer_name AS name, importer_country AS country, COUNT(*) AS shipments
			FROM shipments
			WHERE exporter_name = ?
			GROUP BY importer_name, importer_country
		)
		SELECT name, country, SUM(shipments) AS shipments
		FROM partners
		GROUP BY name, country
		ORDER BY shipments DESC, name ASC
		LIMIT ?
	`, name, name, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trading partners: %w", err)
	}
	defer rows.Close()

	partners := []models.TradingPartner{}
	for rows.Next() {
		var p models.TradingPartner
		if err := rows.Scan(&p.Name, &p.Country, &p.Shipments); err != nil {
			return nil, fmt.Errorf("failed to scan partner row: %w", err)
		}
		partners = append(partners, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read partner rows: %w", err)
	}

	return partners, nil
}

func (c *Client) GlobalStats(ctx context.Context) (models.GlobalStats, error) {
	var stats models.GlobalStats
	err := c.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT importer_name),
			COUNT(DISTINCT exporter_name),
			COUNT(*),
			COALESCE(SUM(weight_metric_tonnes), 0)
		FROM shipments
	`).Scan(&stats.TotalImporters, &stats.TotalExporters, &stats.TotalShipments, &stats.TotalWeight)
	if err != nil {
		return models.GlobalStats{}, fmt.Errorf("failed to query global stats: %w", err)
	}
	return stats, nil
}

func (c *Client) TopCommodities(ctx context.Context, limit int) ([]models.CommodityAggregate, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT commodity_name, SUM(weight_metric_tonnes) AS kg
		FROM shipments
		GROUP BY commodity_name
		ORDER BY kg DESC, commodity_name ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top commodities: %w", err)
	}
	defer rows.Close()

	commodities := []models.CommodityAggregate{}
	for rows.Next() {
		var ca models.CommodityAggregate
		if err := rows.Scan(&ca.Commodity, &ca.Kg); err != nil {
			return nil, fmt.Errorf("failed to scan commodity aggregate: %w", err)
		}
		commodities = append(commodities, ca)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read commodity aggregates: %w", err)
	}

	return commodities, nil
}

// MonthlyVolume buckets shipment weight by calendar month. SortDate is the
// earliest shipment date inside the bucket; the human label is attached by
// the analytics engine.
func (c *Client) MonthlyVolume(ctx context.Context) ([]models.MonthlyVolumeEntry, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT SUM(weight_metric_tonnes) AS kg, MIN(shipment_date) AS sort_date
		FROM shipments
		GROUP BY strftime('%Y-%m', shipment_date)
		ORDER BY sort_date ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly volume: %w", err)
	}
	defer rows.Close()

	entries := []models.MonthlyVolumeEntry{}
	for rows.Next() {
		var e models.MonthlyVolumeEntry
		if err := rows.Scan(&e.Kg, &e.SortDate); err != nil {
			return nil, fmt.Errorf("failed to scan monthly volume row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read monthly volume rows: %w", err)
	}

	return entries, nil
}

func (c *Client) IndustryStats(ctx context.Context) ([]models.IndustryStat, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT industry_sector, SUM(weight_metric_tonnes) AS weight
		FROM shipments
		WHERE industry_sector IS NOT NULL AND industry_sector != ''
		GROUP BY industry_sector
		ORDER BY weight DESC, industry_sector ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query industry stats: %w", err)
	}
	defer rows.Close()

	stats := []models.IndustryStat{}
	for rows.Next() {
		var is models.IndustryStat
		if err := rows.Scan(&is.Sector, &is.Weight); err != nil {
			return nil, fmt.Errorf("failed to scan industry stat: %w", err)
		}
		stats = append(stats, is)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read industry stats: %w", err)
	}

	return stats, nil
}

// Countries returns the distinct union of importer and exporter countries,
// ascending, with null and empty values excluded.
func (c *Client) Countries(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT DISTINCT country FROM (
			SELECT importer_country AS country FROM shipments
			UNION
			SELECT exporter_country AS country FROM shipments
		)
		WHERE country IS NOT NULL AND country != ''
		ORDER BY country ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query countries: %w", err)
	}
	defer rows.Close()

	countries := []string{}
	for rows.Next() {
		var country string
		if err := rows.Scan(&country); err != nil {
			return nil, fmt.Errorf("failed to scan country: %w", err)
		}
		countries = append(countries, country)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read countries: %w", err)
	}

	return countries, nil
}
