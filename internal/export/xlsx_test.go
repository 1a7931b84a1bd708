package export_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nandorodriques37/planejamento-compras-app/internal/export"
)

func TestWriteXLSX(t *testing.T) {
	t.Parallel()

	s, err := export.FromPlanner(context.Background(), planner(t), generated)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, export.WriteXLSX(&buf, s))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Plano", "Overrides"}, f.GetSheetList())

	rows, err := f.GetRows("Plano")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "sku_key", rows[0][0])
	assert.Equal(t, []string{"A-DC1", "A", "Farinha", "Mercearia", "", "", "critical", "2026_03", "20", "-20", "0", "0", "0", "TRUE"}, rows[2])

	projected, err := f.GetCellValue("Plano", "J5")
	require.NoError(t, err)
	assert.Equal(t, "40", projected)

	overrides, err := f.GetRows("Overrides")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"sku_key", "month", "value"}, {"A-DC1", "2026_03", "0"}}, overrides)
}
