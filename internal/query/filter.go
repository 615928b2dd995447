package query

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tradepulse/backend/pkg/logger"
)

const (
	DefaultShipmentLimit = 100
	DefaultCompanyLimit  = 50
	MaxLimit             = 500

	dateLayout = "2006-01-02"
)

// Restriction is a composable WHERE clause built from bound parameters only.
// User input never reaches the SQL text itself.
type Restriction struct {
	clauses []string
	args    []interface{}
	columns []string
}

func (r *Restriction) Add(clause string, columns []string, args ...interface{}) {
	r.clauses = append(r.clauses, clause)
	r.columns = append(r.columns, columns...)
	r.args = append(r.args, args...)
}

func (r *Restriction) SQL() string {
	if len(r.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(r.clauses, " AND ")
}

func (r *Restriction) Args() []interface{} {
	return r.args
}

// Columns reports every column the restriction references so the store can
// reject restrictions built against an unknown schema.
func (r *Restriction) Columns() []string {
	return r.columns
}

// Ordering is a sort column plus direction. Column is always taken from an
// allow-list before it reaches SQL, and ties are broken by id so pages stay
// stable across requests.
type Ordering struct {
	Column    string
	Direction string
}

func (o Ordering) SQL() string {
	return fmt.Sprintf(" ORDER BY %s %s, id ASC", o.Column, strings.ToUpper(o.Direction))
}

var shipmentSortColumns = map[string]bool{
	"id":                   true,
	"importer_name":        true,
	"importer_country":     true,
	"exporter_name":        true,
	"shipment_date":        true,
	"commodity_name":       true,
	"weight_metric_tonnes": true,
}

var weightOperators = map[string]bool{
	">=": true,
	"=":  true,
	"<=": true,
}

// ShipmentFilter holds the raw, already URL-decoded request parameters for
// the shipment listing. Zero values mean "no filter".
type ShipmentFilter struct {
	Search         string
	StartDate      string
	EndDate        string
	MinWeight      *float64
	WeightOperator string
	Sort           string
	Order          string
	Page           int
	Limit          int
}

// Build validates and normalizes the filter into a bound-parameter
// restriction, an ordering and pagination offsets. Invalid inputs recover to
// safe defaults rather than failing: bad dates are dropped, unknown sort
// columns fall back to shipment_date, page/limit are clamped.
func (f ShipmentFilter) Build() (Restriction, Ordering, int, int) {
	var r Restriction

	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		r.Add(
			`(lower(importer_name) LIKE ? ESCAPE '\' OR lower(exporter_name) LIKE ? ESCAPE '\' OR lower(commodity_name) LIKE ? ESCAPE '\')`,
			[]string{"importer_name", "exporter_name", "commodity_name"},
			pattern, pattern, pattern,
		)
	}

	if date, ok := normalizeDate(f.StartDate); ok {
		r.Add("shipment_date >= ?", []string{"shipment_date"}, date)
	}
	if date, ok := normalizeDate(f.EndDate); ok {
		r.Add("shipment_date <= ?", []string{"shipment_date"}, date)
	}

	if f.MinWeight != nil {
		op := f.WeightOperator
		if !weightOperators[op] {
			if op != "" {
				logger.Debug("Unknown weight operator, defaulting to >=", zap.String("operator", op))
			}
			op = ">="
		}
		r.Add("weight_metric_tonnes "+op+" ?", []string{"weight_metric_tonnes"}, *f.MinWeight)
	}

	ordering := normalizeOrdering(f.Sort, f.Order, shipmentSortColumns, "shipment_date")
	limit, offset := NormalizePage(f.Page, f.Limit, DefaultShipmentLimit)

	return r, ordering, limit, offset
}

// NormalizePage converts a 1-based page plus limit into a limit/offset pair,
// recovering out-of-range values to defaults.
func NormalizePage(page, limit, defaultLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit, (page - 1) * limit
}

func normalizeOrdering(sort, order string, allowed map[string]bool, defaultColumn string) Ordering {
	column := sort
	if !allowed[column] {
		if column != "" {
			logger.Debug("Sort column outside allow-list, using default",
				zap.String("requested", column),
				zap.String("default", defaultColumn),
			)
		}
		column = defaultColumn
	}

	direction := strings.ToLower(order)
	if direction != "asc" && direction != "desc" {
		direction = "desc"
	}

	return Ordering{Column: column, Direction: direction}
}

func normalizeDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	parsed, err := time.Parse(dateLayout, raw)
	if err != nil {
		logger.Debug("Dropping unparseable date filter", zap.String("date", raw))
		return "", false
	}
	return parsed.Format(dateLayout), true
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}
