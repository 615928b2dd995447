package companies

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/tradepulse/backend/internal/query"
	"github.com/tradepulse/backend/internal/storage/models"
	"github.com/tradepulse/backend/internal/storage/sqlite"
	"github.com/tradepulse/backend/pkg/logger"
)

const topN = 5

const (
	roleBitImporter = 1 << iota
	roleBitExporter
)

var companySortColumns = map[string]bool{
	"name":           true,
	"totalShipments": true,
	"totalWeight":    true,
}

// Aggregator derives company-level entities from the shipment table.
type Aggregator struct {
	db *sqlite.Client
}

func NewAggregator(db *sqlite.Client) *Aggregator {
	return &Aggregator{db: db}
}

type ListParams struct {
	Search  string
	Role    string
	Country string
	Sort    string
	Order   string
	Page    int
	Limit   int
}

type ListResult struct {
	Data  []models.Company `json:"data"`
	Total int              `json:"total"`
}

// accumulator merges the importer-role and exporter-role groupings of one
// company name. Country and website keep the first value seen in source
// order; the role bitmask finalizes to Both when both bits are set.
type accumulator struct {
	country   string
	website   string
	roleBits  int
	shipments int
	weight    float64
}

// List builds the full derived company set, then filters, sorts and paginates
// it. A shipment contributes to both its importer's and exporter's rollup, so
// company weights intentionally double-count shipment weight across the table.
func (a *Aggregator) List(ctx context.Context, params ListParams) (ListResult, error) {
	all, err := a.derive(ctx)
	if err != nil {
		return ListResult{}, err
	}

	filtered := filterCompanies(all, params)
	sortCompanies(filtered, params.Sort, params.Order)

	total := len(filtered)
	limit, offset := query.NormalizePage(params.Page, params.Limit, query.DefaultCompanyLimit)

	if offset >= total {
		return ListResult{Data: []models.Company{}, Total: total}, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	return ListResult{Data: filtered[offset:end], Total: total}, nil
}

func (a *Aggregator) derive(ctx context.Context) ([]models.Company, error) {
	sides, err := a.db.CompanySides(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to derive companies: %w", err)
	}

	accumulators := make(map[string]*accumulator, len(sides))
	order := make([]string, 0, len(sides))

	for _, side := range sides {
		acc, seen := accumulators[side.Name]
		if !seen {
			acc = &accumulator{country: side.Country, website: side.Website}
			accumulators[side.Name] = acc
			order = append(order, side.Name)
		}
		if side.Role == models.RoleImporter {
			acc.roleBits |= roleBitImporter
		} else {
			acc.roleBits |= roleBitExporter
		}
		acc.shipments += side.ShipmentCount
		acc.weight += side.TotalWeight
	}

	companies := make([]models.Company, 0, len(order))
	for _, name := range order {
		acc := accumulators[name]
		companies = append(companies, models.Company{
			Name:           name,
			Country:        acc.country,
			Website:        acc.website,
			TotalShipments: acc.shipments,
			TotalWeight:    acc.weight,
			Role:           roleFromBits(acc.roleBits),
		})
	}

	return companies, nil
}

func roleFromBits(bits int) string {
	switch bits {
	case roleBitImporter:
		return models.RoleImporter
	case roleBitExporter:
		return models.RoleExporter
	default:
		return models.RoleBoth
	}
}

func filterCompanies(companies []models.Company, params ListParams) []models.Company {
	search := strings.ToLower(strings.TrimSpace(params.Search))
	role := strings.TrimSpace(params.Role)
	if strings.EqualFold(role, "All") {
		role = ""
	}
	country := strings.TrimSpace(params.Country)

	filtered := make([]models.Company, 0, len(companies))
	for _, c := range companies {
		if search != "" && !strings.Contains(strings.ToLower(c.Name), search) {
			continue
		}
		if role != "" && c.Role != role {
			continue
		}
		if country != "" && c.Country != country {
			continue
		}
		filtered = append(filtered, c)
	}
	return filtered
}

func sortCompanies(companies []models.Company, sortColumn, order string) {
	if !companySortColumns[sortColumn] {
		if sortColumn != "" {
			logger.Debug("Company sort column outside allow-list, using default",
				zap.String("requested", sortColumn),
			)
		}
		sortColumn = "totalWeight"
	}
	desc := !strings.EqualFold(order, "asc")

	sort.SliceStable(companies, func(i, j int) bool {
		var less, equal bool
		switch sortColumn {
		case "name":
			cmp := strings.Compare(companies[i].Name, companies[j].Name)
			less, equal = cmp < 0, cmp == 0
		case "totalShipments":
			less = companies[i].TotalShipments < companies[j].TotalShipments
			equal = companies[i].TotalShipments == companies[j].TotalShipments
		default:
			less = companies[i].TotalWeight < companies[j].TotalWeight
			equal = companies[i].TotalWeight == companies[j].TotalWeight
		}
		if equal {
			return companies[i].Name < companies[j].Name
		}
		if desc {
			return !less
		}
		return less
	})
}

// Details returns the top commodities and top trading partners for an exact
// company name. Unknown names yield empty collections rather than an error,
// and special characters in the name are plain data to the bound queries.
func (a *Aggregator) Details(ctx context.Context, name string) (models.CompanyDetails, error) {
	commodities, err := a.db.CompanyCommodities(ctx, name, topN)
	if err != nil {
		return models.CompanyDetails{}, fmt.Errorf("failed to load company commodities: %w", err)
	}

	partners, err := a.db.CompanyPartners(ctx, name, topN)
	if err != nil {
		return models.CompanyDetails{}, fmt.Errorf("failed to load trading partners: %w", err)
	}

	return models.CompanyDetails{
		TopCommodities:     commodities,
		TopTradingPartners: partners,
	}, nil
}
