// Package coverage computes how much of future months' orders must be pulled
// into the first month so stock lasts until a chosen date.
package coverage

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/nandorodriques37/planejamento-compras-app/internal/calendar"
	"github.com/nandorodriques37/planejamento-compras-app/internal/domain"
	"github.com/nandorodriques37/planejamento-compras-app/internal/projection"
)

var (
	ErrEmptyHorizon = errors.New("coverage: no months in horizon")
	ErrMissingDate  = errors.New("coverage: coverage and reference dates are required")
)

const day = 24 * time.Hour

// MonthBreakdown is how one future month is split between anticipation and
// what stays in the month.
type MonthBreakdown struct {
	Month           calendar.MonthKey `json:"month"`
	NormalOrder     int               `json:"normal_order"`
	DaysAnticipated int               `json:"days_anticipated"`
	Fraction        float64           `json:"fraction"`
	Anticipated     int               `json:"anticipated"`
	Kept            int               `json:"kept"`
}

// Result is the outcome of a coverage computation for one SKU.
type Result struct {
	SKU                 domain.SKUKey        `json:"sku_key"`
	CurrentMonth        calendar.MonthKey    `json:"current_month"`
	ReferenceDate       time.Time            `json:"reference_date"`
	CoverageDate        time.Time            `json:"coverage_date"`
	NormalOrder         int                  `json:"normal_order"`
	TotalDays           int                  `json:"total_days"`
	DaysConsumedInMonth int                  `json:"days_consumed_in_month"`
	DaysToAnticipate    int                  `json:"days_to_anticipate"`
	Months              []MonthBreakdown     `json:"months"`
	TotalAnticipated    int                  `json:"total_anticipated"`
	CoverageOrder       int                  `json:"coverage_order"`
	StockCoverDays      projection.CoverDays `json:"stock_cover_days"`
}

// Overrides turns the result into manual orders: the first month gets the
// coverage order and every touched month keeps only what was not pulled.
func (r Result) Overrides() projection.Overrides {
	out := projection.Overrides{r.CurrentMonth: float64(r.CoverageOrder)}
	for _, m := range r.Months {
		out[m.Month] = float64(m.Kept)
	}
	return out
}

// ComputeCoverageByDate compares the unedited plan of entry against a target
// coverage date. The first key is the current month.
func ComputeCoverageByDate(entry domain.RegistryEntry, keys []calendar.MonthKey, demand projection.Demand, coverageDate, referenceDate time.Time) (Result, error) {
	if len(keys) == 0 {
		return Result{}, ErrEmptyHorizon
	}
	if coverageDate.IsZero() || referenceDate.IsZero() {
		return Result{}, ErrMissingDate
	}

	baseline, err := projection.Recompute(entry, keys, demand, nil, referenceDate)
	if err != nil {
		return Result{}, fmt.Errorf("baseline: %w", err)
	}

	year, month, err := keys[0].Parse()
	if err != nil {
		return Result{}, err
	}
	dim := calendar.DaysInMonth(year, month)

	res := Result{
		SKU:           entry.Key,
		CurrentMonth:  keys[0],
		ReferenceDate: referenceDate,
		CoverageDate:  coverageDate,
		NormalOrder:   baseline[keys[0]].Order,
		TotalDays:     int(math.Ceil(float64(coverageDate.Sub(referenceDate)) / float64(day))),
		Months:        []MonthBreakdown{},
	}
	res.StockCoverDays = projection.CoverDays(projection.StockCoverDays(
		projection.InitialStock(entry), domain.Finite(demand[keys[0]]), dim))

	refDay := 1
	if calendar.MonthKeyOf(referenceDate) == keys[0] {
		refDay = referenceDate.UTC().Day()
	}

	switch cov := calendar.MonthKeyOf(coverageDate); {
	case cov == keys[0]:
		// The plan already covers the days after the coverage date.
		blocks := calendar.RemainingWeekBlocks(year, month, coverageDate.UTC().Day()+1)
		res.DaysConsumedInMonth = min(max(res.TotalDays, 0), calendar.TotalDays(blocks))
	case cov > keys[0]:
		res.DaysConsumedInMonth = dim - refDay
	}
	res.DaysToAnticipate = max(0, res.TotalDays-res.DaysConsumedInMonth)

	budget := res.DaysToAnticipate
	for _, k := range keys[1:] {
		if budget <= 0 {
			break
		}
		b, err := anticipate(k, baseline[k].Order, budget)
		if err != nil {
			return Result{}, err
		}
		budget -= b.DaysAnticipated
		res.TotalAnticipated += b.Anticipated
		res.Months = append(res.Months, b)
	}

	res.CoverageOrder = res.NormalOrder + res.TotalAnticipated
	return res, nil
}

// anticipate consumes up to budget days of month k from its first day on.
func anticipate(k calendar.MonthKey, normal, budget int) (MonthBreakdown, error) {
	year, month, err := k.Parse()
	if err != nil {
		return MonthBreakdown{}, err
	}
	blocks := calendar.RemainingWeekBlocks(year, month, 1)
	values := calendar.DistributeSimple(normal, blocks)

	b := MonthBreakdown{Month: k, NormalOrder: normal}
	for i, blk := range blocks {
		if budget <= 0 {
			break
		}
		if budget >= blk.Days {
			b.Anticipated += values[i]
			b.DaysAnticipated += blk.Days
			budget -= blk.Days
			continue
		}
		b.Anticipated += int(math.Round(float64(values[i]) * float64(budget) / float64(blk.Days)))
		b.DaysAnticipated += budget
		budget = 0
	}

	b.Fraction = math.Min(1, float64(b.DaysAnticipated)/float64(calendar.DaysInMonth(year, month)))
	b.Kept = normal - b.Anticipated
	return b, nil
}
