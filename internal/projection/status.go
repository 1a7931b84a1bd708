package projection

import (
	"github.com/nandorodriques37/planejamento-compras-app/internal/calendar"
	"github.com/nandorodriques37/planejamento-compras-app/internal/domain"
)

// WarningRatio is the share of objective stock below which a month warns.
const WarningRatio = 0.8

// ClassifyStatus grades a series. The first month is skipped since it can no
// longer be fixed; any negative month is critical, otherwise any month under
// WarningRatio of its objective is a warning.
func ClassifyStatus(series Series, keys []calendar.MonthKey) domain.Status {
	status := domain.StatusOK
	for i, k := range keys {
		if i == 0 {
			continue
		}
		r, ok := series[k]
		if !ok {
			continue
		}
		if r.Projected < 0 {
			return domain.StatusCritical
		}
		if float64(r.Projected) < WarningRatio*float64(r.Objective) {
			status = domain.StatusWarning
		}
	}
	return status
}
