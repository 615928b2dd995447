package models

// Shipment is one trade transaction row. The table is loaded once at startup
// and never mutated afterward.
type Shipment struct {
	ID                 string  `json:"id"`
	ImporterName       string  `json:"importer_name"`
	ImporterCountry    string  `json:"importer_country"`
	ImporterWebsite    string  `json:"importer_website"`
	ExporterName       string  `json:"exporter_name"`
	ExporterCountry    string  `json:"exporter_country"`
	ExporterWebsite    string  `json:"exporter_website"`
	ShipmentDate       string  `json:"shipment_date"`
	CommodityName      string  `json:"commodity_name"`
	IndustrySector     string  `json:"industry_sector"`
	WeightMetricTonnes float64 `json:"weight_metric_tonnes"`
}

// Company is derived per query from the shipment table, one per distinct
// company name across both sides of the trade.
type Company struct {
	Name           string  `json:"name"`
	Country        string  `json:"country"`
	Website        string  `json:"website"`
	TotalShipments int     `json:"totalShipments"`
	TotalWeight    float64 `json:"totalWeight"`
	Role           string  `json:"role"`
}

const (
	RoleImporter = "Importer"
	RoleExporter = "Exporter"
	RoleBoth     = "Both"
)

// CompanySide is one grouped row of a single role perspective of the shipment
// table, the raw material the company aggregator merges by name.
type CompanySide struct {
	Name          string
	Country       string
	Website       string
	Role          string
	ShipmentCount int
	TotalWeight   float64
}

type GlobalStats struct {
	TotalImporters int     `json:"totalImporters"`
	TotalExporters int     `json:"totalExporters"`
	TotalShipments int     `json:"totalShipments"`
	TotalWeight    float64 `json:"totalWeight"`
}

type CommodityAggregate struct {
	Commodity string  `json:"commodity"`
	Kg        float64 `json:"kg"`
}

type MonthlyVolumeEntry struct {
	Month    string  `json:"month"`
	Kg       float64 `json:"kg"`
	SortDate string  `json:"sort_date"`
}

type IndustryStat struct {
	Sector string  `json:"sector"`
	Weight float64 `json:"weight"`
}

// CompanyCommodity is one entry of a company's top-commodities rollup.
type CompanyCommodity struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// TradingPartner is a counterpart company across shipments where the queried
// company sits on the opposite side.
type TradingPartner struct {
	Name      string `json:"name"`
	Country   string `json:"country"`
	Shipments int    `json:"shipments"`
}

type CompanyDetails struct {
	TopCommodities     []CompanyCommodity `json:"topCommodities"`
	TopTradingPartners []TradingPartner   `json:"topTradingPartners"`
}

type StatsBundle struct {
	Stats          GlobalStats          `json:"stats"`
	TopCommodities []CommodityAggregate `json:"topCommodities"`
	MonthlyVolume  []MonthlyVolumeEntry `json:"monthlyVolume"`
	IndustryStats  []IndustryStat       `json:"industryStats"`
}
