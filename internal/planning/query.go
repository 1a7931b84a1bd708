package planning

import (
	"cmp"
	"math"
	"slices"
	"strings"

	"github.com/nandorodriques37/planejamento-compras-app/internal/domain"
)

// Sort fields accepted by SKUQuery.
const (
	SortByKey          = "key"
	SortByStatus       = "status"
	SortByTotalOrder   = "total_order"
	SortByCoverageDays = "coverage_days"
)

// SKUQuery filters, orders and pages summary rows. Empty filters match
// everything; filter values within one field are alternatives.
type SKUQuery struct {
	Statuses   []domain.Status
	Categories []string
	Suppliers  []string
	Search     string
	SortBy     string
	Desc       bool
	Limit      int
	Offset     int
}

// Validate rejects unknown sort fields and negative paging.
func (q SKUQuery) Validate() error {
	var errs domain.ValidationErrors
	switch q.SortBy {
	case "", SortByKey, SortByStatus, SortByTotalOrder, SortByCoverageDays:
	default:
		errs = append(errs, domain.ValidationError{Field: "sort", Message: "unknown sort field " + q.SortBy})
	}
	errs = errs.AppendIf(q.Limit < 0, "limit", "must not be negative")
	errs = errs.AppendIf(q.Offset < 0, "offset", "must not be negative")
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Apply runs the query over rows and returns the requested page together
// with the number of rows that matched before paging. rows is not modified.
func (q SKUQuery) Apply(rows []Summary) ([]Summary, int) {
	search := strings.ToLower(strings.TrimSpace(q.Search))

	matched := make([]Summary, 0, len(rows))
	for _, r := range rows {
		if len(q.Statuses) > 0 && !slices.Contains(q.Statuses, r.Status) {
			continue
		}
		if !matchesAny(q.Categories, r.Category) || !matchesAny(q.Suppliers, r.Supplier) {
			continue
		}
		if search != "" && !containsFold(search, string(r.SKUKey), r.ProductCode, r.ProductName) {
			continue
		}
		matched = append(matched, r)
	}

	compare := compareBy(q.SortBy)
	slices.SortStableFunc(matched, func(a, b Summary) int {
		c := compare(a, b)
		if q.Desc {
			c = -c
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.SKUKey, b.SKUKey)
	})

	total := len(matched)
	if q.Offset >= total {
		return []Summary{}, total
	}
	page := matched[q.Offset:]
	if q.Limit > 0 && q.Limit < len(page) {
		page = page[:q.Limit]
	}
	return page, total
}

func compareBy(field string) func(a, b Summary) int {
	switch field {
	case SortByStatus:
		return func(a, b Summary) int { return cmp.Compare(a.Status.Rank(), b.Status.Rank()) }
	case SortByTotalOrder:
		return func(a, b Summary) int { return cmp.Compare(a.TotalOrder, b.TotalOrder) }
	case SortByCoverageDays:
		return func(a, b Summary) int { return compareCover(float64(a.StockCoverDays), float64(b.StockCoverDays)) }
	default:
		return func(a, b Summary) int { return cmp.Compare(a.SKUKey, b.SKUKey) }
	}
}

// compareCover orders NaN after every number, so unknown covers trail.
func compareCover(a, b float64) int {
	switch {
	case math.IsNaN(a) && math.IsNaN(b):
		return 0
	case math.IsNaN(a):
		return 1
	case math.IsNaN(b):
		return -1
	}
	return cmp.Compare(a, b)
}

func matchesAny(values []string, field string) bool {
	if len(values) == 0 {
		return true
	}
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), field) {
			return true
		}
	}
	return false
}

func containsFold(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
