package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepulse/backend/internal/query"
	"github.com/tradepulse/backend/internal/storage/models"
)

func seedShipments() []models.Shipment {
	return []models.Shipment{
		{ID: "s1", ImporterName: "Acme Imports", ImporterCountry: "United States", ImporterWebsite: "acme.example", ExporterName: "Bolt Exports", ExporterCountry: "Germany", ExporterWebsite: "bolt.example", ShipmentDate: "2024-01-15", CommodityName: "Copper Wire", IndustrySector: "Metals", WeightMetricTonnes: 100},
		{ID: "s2", ImporterName: "Acme Imports", ImporterCountry: "United States", ImporterWebsite: "acme.example", ExporterName: "Chen & Sons", ExporterCountry: "China", ExporterWebsite: "chen.example", ShipmentDate: "2024-01-20", CommodityName: "Steel Pipes", IndustrySector: "Metals", WeightMetricTonnes: 50.5},
		{ID: "s3", ImporterName: "Dune Trading", ImporterCountry: "United Arab Emirates", ImporterWebsite: "dune.example", ExporterName: "Bolt Exports", ExporterCountry: "Germany", ExporterWebsite: "bolt.example", ShipmentDate: "2024-02-05", CommodityName: "Copper Wire", IndustrySector: "Metals", WeightMetricTonnes: 75},
		{ID: "s4", ImporterName: "O'Brien Foods", ImporterCountry: "Ireland", ImporterWebsite: "obrien.example", ExporterName: "Chen & Sons", ExporterCountry: "China", ExporterWebsite: "chen.example", ShipmentDate: "2024-02-10", CommodityName: "Frozen Fish", IndustrySector: "Food", WeightMetricTonnes: 20},
		{ID: "s5", ImporterName: "Bolt Exports", ImporterCountry: "Germany", ImporterWebsite: "bolt.example", ExporterName: "Acme Imports", ExporterCountry: "United States", ExporterWebsite: "acme.example", ShipmentDate: "2024-03-01", CommodityName: "Machine Parts", IndustrySector: "", WeightMetricTonnes: 10},
		{ID: "s6", ImporterName: "Dune Trading", ImporterCountry: "United Arab Emirates", ImporterWebsite: "dune.example", ExporterName: "Chen & Sons", ExporterCountry: "China", ExporterWebsite: "chen.example", ShipmentDate: "2024-01-25", CommodityName: "Copper Wire", IndustrySector: "Metals", WeightMetricTonnes: 30},
	}
}

func newTestClient(t *testing.T) *Client {
	t.Helper()

	client, err := NewClient(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.InitSchema())
	require.NoError(t, client.InsertShipments(context.Background(), seedShipments()))

	return client
}

func TestListShipmentsUnfiltered(t *testing.T) {
	client := newTestClient(t)

	var r query.Restriction
	o := query.Ordering{Column: "shipment_date", Direction: "desc"}

	shipments, total, err := client.ListShipments(context.Background(), r, o, 100, 0)
	require.NoError(t, err)

	assert.Equal(t, 6, total)
	require.Len(t, shipments, 6)
	assert.Equal(t, "s5", shipments[0].ID)
	assert.Equal(t, "s1", shipments[5].ID)
}

func TestListShipmentsTotalIgnoresPagination(t *testing.T) {
	client := newTestClient(t)

	var r query.Restriction
	o := query.Ordering{Column: "shipment_date", Direction: "desc"}

	shipments, total, err := client.ListShipments(context.Background(), r, o, 2, 2)
	require.NoError(t, err)

	assert.Equal(t, 6, total)
	assert.Len(t, shipments, 2)
}

func TestListShipmentsWeightOperators(t *testing.T) {
	client := newTestClient(t)
	o := query.Ordering{Column: "id", Direction: "asc"}

	cases := []struct {
		op     string
		weight float64
		want   []string
	}{
		{">=", 50, []string{"s1", "s2", "s3"}},
		{"<=", 50, []string{"s4", "s5", "s6"}},
		{"=", 75, []string{"s3"}},
	}

	for _, tc := range cases {
		var r query.Restriction
		r.Add("weight_metric_tonnes "+tc.op+" ?", []string{"weight_metric_tonnes"}, tc.weight)

		shipments, total, err := client.ListShipments(context.Background(), r, o, 100, 0)
		require.NoError(t, err, "operator %s", tc.op)
		require.Equal(t, len(tc.want), total, "operator %s", tc.op)

		ids := make([]string, 0, len(shipments))
		for _, s := range shipments {
			ids = append(ids, s.ID)
			switch tc.op {
			case ">=":
				assert.GreaterOrEqual(t, s.WeightMetricTonnes, tc.weight)
			case "<=":
				assert.LessOrEqual(t, s.WeightMetricTonnes, tc.weight)
			default:
				assert.Equal(t, tc.weight, s.WeightMetricTonnes)
			}
		}
		assert.Equal(t, tc.want, ids, "operator %s", tc.op)
	}
}

func TestListShipmentsSearchRestriction(t *testing.T) {
	client := newTestClient(t)

	r, o, limit, offset := query.ShipmentFilter{Search: "copper"}.Build()
	shipments, total, err := client.ListShipments(context.Background(), r, o, limit, offset)
	require.NoError(t, err)

	assert.Equal(t, 3, total)
	for _, s := range shipments {
		assert.Equal(t, "Copper Wire", s.CommodityName)
	}
}

func TestListShipmentsStableTieBreak(t *testing.T) {
	client := newTestClient(t)

	// Three rows share commodity_name "Copper Wire"; paging through the sort
	// must partition the set without overlap or gap.
	o := query.Ordering{Column: "commodity_name", Direction: "asc"}
	var r query.Restriction

	var seen []string
	for offset := 0; offset < 6; offset += 2 {
		page, _, err := client.ListShipments(context.Background(), r, o, 2, offset)
		require.NoError(t, err)
		for _, s := range page {
			seen = append(seen, s.ID)
		}
	}

	assert.Len(t, seen, 6)
	unique := map[string]bool{}
	for _, id := range seen {
		unique[id] = true
	}
	assert.Len(t, unique, 6)
	// Ties resolved by id ascending.
	assert.Equal(t, []string{"s1", "s3", "s6"}, seen[:3])
}

func TestListShipmentsRejectsUnknownColumn(t *testing.T) {
	client := newTestClient(t)

	var r query.Restriction
	r.Add("secret_column = ?", []string{"secret_column"}, "x")

	_, _, err := client.ListShipments(context.Background(), r, query.Ordering{Column: "id", Direction: "asc"}, 10, 0)
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, _, err = client.ListShipments(context.Background(), query.Restriction{}, query.Ordering{Column: "rowid; --", Direction: "asc"}, 10, 0)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestCompanySidesGrouping(t *testing.T) {
	client := newTestClient(t)

	sides, err := client.CompanySides(context.Background())
	require.NoError(t, err)

	// 4 importer groups followed by 3 exporter groups, first-seen order.
	require.Len(t, sides, 7)
	assert.Equal(t, "Acme Imports", sides[0].Name)
	assert.Equal(t, models.RoleImporter, sides[0].Role)
	assert.Equal(t, 2, sides[0].ShipmentCount)
	assert.InDelta(t, 150.5, sides[0].TotalWeight, 0.001)

	assert.Equal(t, "Bolt Exports", sides[4].Name)
	assert.Equal(t, models.RoleExporter, sides[4].Role)
	assert.Equal(t, 2, sides[4].ShipmentCount)
	assert.InDelta(t, 175, sides[4].TotalWeight, 0.001)
}

func TestCompanyCommoditiesHandlesSpecialCharacters(t *testing.T) {
	client := newTestClient(t)

	commodities, err := client.CompanyCommodities(context.Background(), "O'Brien Foods", 5)
	require.NoError(t, err)
	require.Len(t, commodities, 1)
	assert.Equal(t, "Frozen Fish", commodities[0].Name)
	assert.InDelta(t, 20, commodities[0].Weight, 0.001)

	partners, err := client.CompanyPartners(context.Background(), "O'Brien Foods", 5)
	require.NoError(t, err)
	require.Len(t, partners, 1)
	assert.Equal(t, "Chen & Sons", partners[0].Name)
	assert.Equal(t, 1, partners[0].Shipments)
}

func TestCompanyPartnersMergesBothDirections(t *testing.T) {
	client := newTestClient(t)

	// Acme trades with Bolt in both directions: s1 (Acme imports from Bolt)
	// and s5 (Acme exports to Bolt) collapse to one partner entry.
	partners, err := client.CompanyPartners(context.Background(), "Acme Imports", 5)
	require.NoError(t, err)
	require.Len(t, partners, 2)

	assert.Equal(t, "Bolt Exports", partners[0].Name)
	assert.Equal(t, "Germany", partners[0].Country)
	assert.Equal(t, 2, partners[0].Shipments)
	assert.Equal(t, "Chen & Sons", partners[1].Name)
	assert.Equal(t, 1, partners[1].Shipments)
}

func TestCountriesSortedDistinct(t *testing.T) {
	client := newTestClient(t)

	countries, err := client.Countries(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"China", "Germany", "Ireland", "United Arab Emirates", "United States"}, countries)
}
