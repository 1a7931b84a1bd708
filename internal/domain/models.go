package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/nandorodriques37/planejamento-compras-app/internal/calendar"
)

// SKUKey identifies a (product, distribution center) planning unit.
type SKUKey string

// RegistryEntry is the per-session master data of one SKU.
type RegistryEntry struct {
	Key                SKUKey `json:"key"`
	ProductCode        string `json:"product_code"`
	ProductName        string `json:"product_name"`
	Category           string `json:"category"`
	Supplier           string `json:"supplier"`
	DistributionCenter string `json:"distribution_center"`

	OnHand       Quantity `json:"on_hand"`
	Pending      Quantity `json:"pending"`       // Open purchase orders already placed
	OtherInbound Quantity `json:"other_inbound"` // Transfers and other adjustments
	Impact       Quantity `json:"impact"`        // Permanent extra demand
	StoreFill    Quantity `json:"store_fill"`    // One-off store fill deduction
	UnitCost     Quantity `json:"unit_cost"`

	LeadTimeDays    int `json:"lead_time_days"`
	FrequencyDays   int `json:"frequency_days"`
	SafetyStockDays int `json:"safety_stock_days"`
}

// Validate checks the registry invariants.
func (e RegistryEntry) Validate() error {
	var errs ValidationErrors
	errs = errs.AppendIf(strings.TrimSpace(string(e.Key)) == "", "key", "is required")
	errs = errs.AppendIf(e.LeadTimeDays < 0, "lead_time_days", "must be >= 0")
	errs = errs.AppendIf(e.FrequencyDays < 0, "frequency_days", "must be >= 0")
	errs = errs.AppendIf(e.SafetyStockDays < 0, "safety_stock_days", "must be >= 0")
	errs = errs.AppendIf(e.OnHand < 0, "on_hand", "must be >= 0")
	errs = errs.AppendIf(e.Pending < 0, "pending", "must be >= 0")
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Metadata describes a planning bundle.
type Metadata struct {
	ReferenceDate string              `json:"reference_date"`
	HorizonMonths int                 `json:"horizon_months"`
	MonthKeys     []calendar.MonthKey `json:"month_keys"`
	TotalSKUs     int                 `json:"total_skus"`
}

// Reference parses ReferenceDate as a date or an RFC3339 timestamp and
// normalizes it to UTC midnight.
func (m Metadata) Reference() (time.Time, error) {
	raw := strings.TrimSpace(m.ReferenceDate)
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid reference date %q: %w", m.ReferenceDate, err)
	}
	return calendar.StartOfDay(t), nil
}

// MonthInput is one month of an upstream baseline series. Only demand is
// read; any precomputed order values are ignored.
type MonthInput struct {
	Demand Quantity `json:"demand"`
}

// SeriesRow is the baseline series of one SKU.
type SeriesRow struct {
	SKUKey SKUKey                           `json:"sku_key"`
	Months map[calendar.MonthKey]MonthInput `json:"months"`
}

// Bundle is everything the data-loading collaborator supplies.
type Bundle struct {
	Metadata Metadata        `json:"metadata"`
	Registry []RegistryEntry `json:"registry"`
	Series   []SeriesRow     `json:"series"`
}
