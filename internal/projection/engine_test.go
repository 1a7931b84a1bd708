package projection_test

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nandorodriques37/planejamento-compras-app/internal/calendar"
	"github.com/nandorodriques37/planejamento-compras-app/internal/domain"
	"github.com/nandorodriques37/planejamento-compras-app/internal/projection"
)

func keys(ks ...string) []calendar.MonthKey {
	out := make([]calendar.MonthKey, len(ks))
	for i, k := range ks {
		out[i] = calendar.MonthKey(k)
	}
	return out
}

func uniform(ks []calendar.MonthKey, v float64) projection.Demand {
	d := make(projection.Demand, len(ks))
	for _, k := range ks {
		d[k] = v
	}
	return d
}

func entry(onHand float64) domain.RegistryEntry {
	return domain.RegistryEntry{Key: "P001-DC01", OnHand: domain.Quantity(onHand)}
}

func assertConservation(t *testing.T, e domain.RegistryEntry, ks []calendar.MonthKey, s projection.Series) {
	t.Helper()

	prev := int(math.Round(projection.InitialStock(e)))
	for _, k := range ks {
		r := s[k]
		assert.Equal(t, prev+r.Arrival-r.Demand, r.Projected, "month %s", k)
		prev = r.Projected
	}
}

func column(s projection.Series, ks []calendar.MonthKey, f func(projection.MonthRecord) int) []int {
	out := make([]int, len(ks))
	for i, r := range s.Ordered(ks) {
		out[i] = f(r)
	}
	return out
}

func orders(s projection.Series, ks []calendar.MonthKey) []int {
	return column(s, ks, func(r projection.MonthRecord) int { return r.Order })
}

func projected(s projection.Series, ks []calendar.MonthKey) []int {
	return column(s, ks, func(r projection.MonthRecord) int { return r.Projected })
}

func TestRecomputeStockAboveObjective(t *testing.T) {
	t.Parallel()

	ks := keys("2026_09", "2026_10", "2026_11")
	e := entry(100)

	s, err := projection.Recompute(e, ks, uniform(ks, 30), nil, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, []int{0, 0, 0}, orders(s, ks))
	assert.Equal(t, []int{70, 40, 10}, projected(s, ks))
	// No cover days and no impact: the objective is zero.
	assert.Equal(t, []int{0, 0, 0}, column(s, ks, func(r projection.MonthRecord) int { return r.Objective }))
	assertConservation(t, e, ks, s)
}

func TestRecomputeSteadyState(t *testing.T) {
	t.Parallel()

	// 31 day months with a 31 day review cycle make the objective equal the
	// monthly demand.
	ks := keys("2026_07", "2026_08")
	e := entry(20)
	e.FrequencyDays = 31

	s, err := projection.Recompute(e, ks, uniform(ks, 30), nil, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, []int{30, 30}, column(s, ks, func(r projection.MonthRecord) int { return r.Objective }))
	assert.Equal(t, []int{40, 30}, orders(s, ks))
	assert.Equal(t, []int{30, 30}, projected(s, ks))
	assertConservation(t, e, ks, s)
}

func TestRecomputeZeroOverrideShiftsShortfall(t *testing.T) {
	t.Parallel()

	ks := keys("2026_07", "2026_08")
	e := entry(20)
	e.FrequencyDays = 31

	s, err := projection.Recompute(e, ks, uniform(ks, 30), projection.Overrides{"2026_07": 0}, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 0, s["2026_07"].Order)
	assert.True(t, s["2026_07"].Overridden)
	assert.Equal(t, -10, s["2026_07"].Projected)

	assert.Equal(t, 70, s["2026_08"].Order)
	assert.False(t, s["2026_08"].Overridden)
	assert.Equal(t, 30, s["2026_08"].Projected)
	assertConservation(t, e, ks, s)
}

func TestRecomputeOverrideIsNotRevalidated(t *testing.T) {
	t.Parallel()

	ks := keys("2026_07", "2026_08", "2026_09")
	e := entry(20)
	e.FrequencyDays = 31

	ov := projection.Overrides{"2026_07": 500, "2026_09": 3}
	s, err := projection.Recompute(e, ks, uniform(ks, 30), ov, time.Time{})
	require.NoError(t, err)

	for k, v := range ov {
		assert.Equal(t, int(v), s[k].Order, "month %s", k)
	}
	// Stock far above objective: the free month orders nothing.
	assert.Equal(t, 0, s["2026_08"].Order)
	assertConservation(t, e, ks, s)
}

func TestRecomputeLeadTimeAcrossMonths(t *testing.T) {
	t.Parallel()

	ks := keys("2026_01", "2026_02", "2026_03", "2026_04")
	e := entry(100)
	e.LeadTimeDays = 45

	s, err := projection.Recompute(e, ks, uniform(ks, 30), nil, time.Time{})
	require.NoError(t, err)

	// Jan 1 + 45 = Feb 15, Feb 1 + 45 = Mar 18, Mar 1 + 45 = Apr 15; April's
	// order lands past the horizon and is clamped to April.
	assert.Equal(t, []int{8, 25, 31, 0}, orders(s, ks))
	assert.Equal(t, []int{0, 8, 25, 31}, column(s, ks, func(r projection.MonthRecord) int { return r.Arrival }))
	assert.Equal(t, []int{70, 48, 43, 44}, projected(s, ks))
	assertConservation(t, e, ks, s)
}

func TestRecomputeReferenceDateMovesFirstArrival(t *testing.T) {
	t.Parallel()

	ks := keys("2026_02", "2026_03")
	e := entry(0)
	e.LeadTimeDays = 20

	// Feb 1 + 20 stays in February; Feb 13 + 20 lands on Mar 5.
	noRef, err := projection.Recompute(e, ks, uniform(ks, 10), nil, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, noRef["2026_02"].Order, noRef["2026_02"].Arrival)

	withRef, err := projection.Recompute(e, ks, uniform(ks, 10), nil, time.Date(2026, time.February, 13, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 0, withRef["2026_02"].Arrival)
	assert.Equal(t, withRef["2026_02"].Order+withRef["2026_03"].Order, withRef["2026_03"].Arrival)
	assertConservation(t, e, ks, withRef)
}

func TestRecomputeBadDemandIsZero(t *testing.T) {
	t.Parallel()

	ks := keys("2026_02", "2026_03", "2026_04")
	e := entry(50)

	d := projection.Demand{"2026_02": math.NaN(), "2026_03": math.Inf(1)}
	s, err := projection.Recompute(e, ks, d, nil, time.Time{})
	require.NoError(t, err)

	for _, k := range ks {
		assert.Equal(t, 0, s[k].Demand, "month %s", k)
		assert.Equal(t, 50, s[k].Projected, "month %s", k)
	}
}

func TestRecomputeZeroDemand(t *testing.T) {
	t.Parallel()

	ks := keys("2026_02", "2026_03")
	e := entry(10)
	e.Impact = 5
	e.LeadTimeDays = 7
	e.FrequencyDays = 30

	s, err := projection.Recompute(e, ks, uniform(ks, 0), nil, time.Time{})
	require.NoError(t, err)

	// Objective collapses to the impact constant.
	assert.Equal(t, 5, s["2026_02"].Objective)
	assert.Equal(t, 5, s["2026_03"].Objective)
	assertConservation(t, e, ks, s)
}

func TestRecomputeInitialStockNetsAdjustments(t *testing.T) {
	t.Parallel()

	e := domain.RegistryEntry{
		Key:          "P002-DC01",
		OnHand:       100,
		Impact:       10,
		StoreFill:    15,
		Pending:      40,
		OtherInbound: 5,
	}
	assert.InDelta(t, 120.0, projection.InitialStock(e), 1e-9)

	ks := keys("2026_05")
	s, err := projection.Recompute(e, ks, uniform(ks, 20), nil, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 100, s["2026_05"].Projected)
}

func TestRecomputeMalformedKey(t *testing.T) {
	t.Parallel()

	_, err := projection.Recompute(entry(1), keys("2026_01", "2026-02"), nil, nil, time.Time{})
	assert.ErrorIs(t, err, calendar.ErrInvalidMonthKey)
}

func TestRecomputeIsDeterministic(t *testing.T) {
	t.Parallel()

	ks := keys("2026_01", "2026_02", "2026_03", "2026_04", "2026_05", "2026_06")
	e := entry(37)
	e.LeadTimeDays = 38
	e.FrequencyDays = 14
	e.SafetyStockDays = 9
	e.Impact = 3.5
	d := projection.Demand{"2026_01": 41.3, "2026_02": 12, "2026_03": 77.7, "2026_05": 20.5}
	ref := time.Date(2026, time.January, 19, 0, 0, 0, 0, time.UTC)
	ov := projection.Overrides{"2026_03": 0}

	first, err := projection.Recompute(e, ks, d, ov, ref)
	require.NoError(t, err)
	second, err := projection.Recompute(e, ks, d, ov, ref)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assertConservation(t, e, ks, first)
	for _, k := range ks {
		if k != "2026_03" {
			assert.GreaterOrEqual(t, first[k].Order, 0, "month %s", k)
		}
	}
}

func TestStockCoverDays(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 15.0, projection.StockCoverDays(15, 30, 30), 1e-9)
	assert.True(t, math.IsInf(projection.StockCoverDays(15, 0, 30), 1))
}

func TestCoverDaysJSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(map[string]projection.CoverDays{
		"finite":    12.345,
		"unbounded": projection.CoverDays(math.Inf(1)),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"finite":12.3,"unbounded":null}`, string(b))
	assert.True(t, projection.CoverDays(math.Inf(1)).Unbounded())
}
