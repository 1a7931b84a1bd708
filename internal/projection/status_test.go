package projection_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nandorodriques37/planejamento-compras-app/internal/domain"
	"github.com/nandorodriques37/planejamento-compras-app/internal/projection"
)

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	ks := keys("2026_02", "2026_03", "2026_04")

	series := func(p0, p1, p2 int) projection.Series {
		return projection.Series{
			"2026_02": {Projected: p0, Objective: 100},
			"2026_03": {Projected: p1, Objective: 100},
			"2026_04": {Projected: p2, Objective: 100},
		}
	}

	tests := []struct {
		name   string
		series projection.Series
		want   domain.Status
	}{
		{name: "healthy", series: series(100, 90, 80), want: domain.StatusOK},
		{name: "first month ignored", series: series(-50, 90, 85), want: domain.StatusOK},
		{name: "below warning ratio", series: series(100, 79, 100), want: domain.StatusWarning},
		{name: "negative is critical", series: series(100, 100, -1), want: domain.StatusCritical},
		{name: "critical beats earlier warning", series: series(100, 10, -1), want: domain.StatusCritical},
		{name: "zero stock zero objective", series: projection.Series{"2026_03": {}}, want: domain.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, projection.ClassifyStatus(tt.series, ks))
		})
	}
}
