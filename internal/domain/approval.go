package domain

import (
	"time"

	"github.com/nandorodriques37/planejamento-compras-app/internal/calendar"
	"github.com/shopspring/decimal"
)

// ApprovalItem is one selected week block order of a SKU.
type ApprovalItem struct {
	SKUKey      SKUKey            `json:"sku_key" db:"sku_key"`
	ProductName string            `json:"product_name" db:"product_name"`
	Supplier    string            `json:"supplier" db:"supplier"`
	Month       calendar.MonthKey `json:"month" db:"month"`
	Block       string            `json:"block" db:"block"`
	OrderDate   time.Time         `json:"order_date" db:"order_date"`
	TargetMonth calendar.MonthKey `json:"target_month" db:"target_month"`
	Quantity    int               `json:"quantity" db:"quantity"`
	UnitCost    decimal.Decimal   `json:"unit_cost" db:"unit_cost"`
	Value       decimal.Decimal   `json:"value" db:"value"`
}

// ApprovalKPIs are aggregates of the projection taken at submission time.
type ApprovalKPIs struct {
	TotalQuantity int             `json:"total_quantity"`
	TotalValue    decimal.Decimal `json:"total_value"`
	SKUCount      int             `json:"sku_count"`
	CriticalSKUs  int             `json:"critical_skus"`
	WarningSKUs   int             `json:"warning_skus"`
	EndingStock   int             `json:"ending_stock"`
}

// ApprovalRequest is an immutable snapshot of selected orders. Only Status
// and DecidedAt change after creation.
type ApprovalRequest struct {
	ID            string         `json:"id"`
	CreatedAt     time.Time      `json:"created_at"`
	ReferenceDate string         `json:"reference_date"`
	Requester     string         `json:"requester"`
	Note          string         `json:"note,omitempty"`
	Status        ApprovalStatus `json:"status"`
	DecidedAt     *time.Time     `json:"decided_at,omitempty"`
	Items         []ApprovalItem `json:"items"`
	KPIs          ApprovalKPIs   `json:"kpis"`
}
