package postgres

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nandorodriques37/planejamento-compras-app/internal/config"
	"github.com/nandorodriques37/planejamento-compras-app/internal/domain"
	"github.com/nandorodriques37/planejamento-compras-app/internal/repository"
)

func TestBuildListQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		filter    repository.ApprovalFilter
		wantQuery string
		wantArgs  []any
	}{
		{
			name:      "no filter",
			wantQuery: "SELECT " + approvalColumns + " FROM approval_requests ORDER BY created_at DESC, id ASC",
		},
		{
			name:      "status and page",
			filter:    repository.ApprovalFilter{Status: domain.ApprovalPending, Limit: 20, Offset: 40},
			wantQuery: "SELECT " + approvalColumns + " FROM approval_requests WHERE status = $1 ORDER BY created_at DESC, id ASC LIMIT $2 OFFSET $3",
			wantArgs:  []any{"pending", 20, 40},
		},
		{
			name:      "offset only",
			filter:    repository.ApprovalFilter{Offset: 5},
			wantQuery: "SELECT " + approvalColumns + " FROM approval_requests ORDER BY created_at DESC, id ASC OFFSET $1",
			wantArgs:  []any{5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			query, args := buildListQuery(tt.filter)
			assert.Equal(t, tt.wantQuery, query)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestApprovalRowToDomain(t *testing.T) {
	t.Parallel()

	decided := time.Date(2026, time.February, 14, 10, 0, 0, 0, time.UTC)
	row := approvalRow{
		ID:        "5f0c",
		CreatedAt: time.Date(2026, time.February, 13, 9, 0, 0, 0, time.UTC),
		Status:    "approved",
		DecidedAt: sql.NullTime{Time: decided, Valid: true},
		KPIs:      []byte(`{"total_quantity": 12, "total_value": "90.5", "sku_count": 2}`),
	}

	req, err := row.toDomain(nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, req.Status)
	require.NotNil(t, req.DecidedAt)
	assert.True(t, decided.Equal(*req.DecidedAt))
	assert.Equal(t, 12, req.KPIs.TotalQuantity)
	assert.Equal(t, "90.5", req.KPIs.TotalValue.String())
	assert.NotNil(t, req.Items)

	row.Status = "archived"
	_, err = row.toDomain(nil)
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	t.Parallel()

	dsn := DSN(config.DatabaseConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "planejamento", SSLMode: "disable"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=planejamento sslmode=disable", dsn)
}
