package planning_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nandorodriques37/planejamento-compras-app/internal/domain"
	"github.com/nandorodriques37/planejamento-compras-app/internal/planning"
	"github.com/nandorodriques37/planejamento-compras-app/internal/projection"
)

func summaryRows() []planning.Summary {
	return []planning.Summary{
		{SKUKey: "P030-DC02", ProductName: "Cafe 500g", Category: "Bebidas", Supplier: "Pilao", Status: domain.StatusCritical, TotalOrder: 20, StockCoverDays: 0},
		{SKUKey: "P010-DC02", ProductName: "Feijao 1kg", Category: "Mercearia", Supplier: "Camil", Status: domain.StatusOK, TotalOrder: 89, StockCoverDays: 12},
		{SKUKey: "P050-DC02", ProductName: "Sal 1kg", Category: "Mercearia", Supplier: "Cisne", Status: domain.StatusOK, TotalOrder: 0, StockCoverDays: projection.CoverDays(math.Inf(1))},
		{SKUKey: "P020-DC02", ProductCode: "7891", ProductName: "Arroz 5kg", Category: "Mercearia", Supplier: "Tio Joao", Status: domain.StatusWarning, TotalOrder: 20, StockCoverDays: 100},
	}
}

func keysOf(rows []planning.Summary) []domain.SKUKey {
	out := make([]domain.SKUKey, len(rows))
	for i, r := range rows {
		out[i] = r.SKUKey
	}
	return out
}

func TestSKUQueryApply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		query     planning.SKUQuery
		wantKeys  []domain.SKUKey
		wantTotal int
	}{
		{
			name:      "default orders by key",
			wantKeys:  []domain.SKUKey{"P010-DC02", "P020-DC02", "P030-DC02", "P050-DC02"},
			wantTotal: 4,
		},
		{
			name:      "status filter",
			query:     planning.SKUQuery{Statuses: []domain.Status{domain.StatusOK, domain.StatusWarning}},
			wantKeys:  []domain.SKUKey{"P010-DC02", "P020-DC02", "P050-DC02"},
			wantTotal: 3,
		},
		{
			name:      "category and supplier ignore case",
			query:     planning.SKUQuery{Categories: []string{"mercearia"}, Suppliers: []string{"CAMIL", "cisne"}},
			wantKeys:  []domain.SKUKey{"P010-DC02", "P050-DC02"},
			wantTotal: 2,
		},
		{
			name:      "search matches name and code",
			query:     planning.SKUQuery{Search: "789"},
			wantKeys:  []domain.SKUKey{"P020-DC02"},
			wantTotal: 1,
		},
		{
			name:      "search matches key",
			query:     planning.SKUQuery{Search: "p05"},
			wantKeys:  []domain.SKUKey{"P050-DC02"},
			wantTotal: 1,
		},
		{
			name:      "status descending breaks ties by key",
			query:     planning.SKUQuery{SortBy: planning.SortByStatus, Desc: true},
			wantKeys:  []domain.SKUKey{"P030-DC02", "P020-DC02", "P010-DC02", "P050-DC02"},
			wantTotal: 4,
		},
		{
			name:      "total order",
			query:     planning.SKUQuery{SortBy: planning.SortByTotalOrder},
			wantKeys:  []domain.SKUKey{"P050-DC02", "P020-DC02", "P030-DC02", "P010-DC02"},
			wantTotal: 4,
		},
		{
			name:      "unbounded cover sorts last",
			query:     planning.SKUQuery{SortBy: planning.SortByCoverageDays},
			wantKeys:  []domain.SKUKey{"P030-DC02", "P010-DC02", "P020-DC02", "P050-DC02"},
			wantTotal: 4,
		},
		{
			name:      "paging after sort",
			query:     planning.SKUQuery{SortBy: planning.SortByCoverageDays, Limit: 2, Offset: 1},
			wantKeys:  []domain.SKUKey{"P010-DC02", "P020-DC02"},
			wantTotal: 4,
		},
		{
			name:      "offset past the end",
			query:     planning.SKUQuery{Offset: 9},
			wantKeys:  []domain.SKUKey{},
			wantTotal: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rows := summaryRows()
			page, total := tt.query.Apply(rows)
			assert.Equal(t, tt.wantKeys, keysOf(page))
			assert.Equal(t, tt.wantTotal, total)
			assert.Equal(t, domain.SKUKey("P030-DC02"), rows[0].SKUKey)
		})
	}
}

func TestSKUQueryValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, planning.SKUQuery{SortBy: planning.SortByCoverageDays}.Validate())

	err := planning.SKUQuery{SortBy: "price", Offset: -1}.Validate()
	var verr domain.ValidationErrors
	require.ErrorAs(t, err, &verr)
	assert.True(t, verr.Has("sort"))
	assert.True(t, verr.Has("offset"))
	assert.False(t, verr.Has("limit"))
}
