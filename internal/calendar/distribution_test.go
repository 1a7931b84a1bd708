package calendar_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nandorodriques37/planejamento-compras-app/internal/calendar"
)

func blocksOf(days ...int) []calendar.WeekBlock {
	blocks := make([]calendar.WeekBlock, len(days))
	start := 1
	for i, d := range days {
		blocks[i] = calendar.WeekBlock{Start: start, End: start + d - 1, Days: d, Eligible: true}
		start += d
	}
	return blocks
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}

func TestDistributeSimple(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []int{25, 25, 50}, calendar.DistributeSimple(100, blocksOf(7, 7, 14)))

	// 31 over [7,7,7,7,3]: every full week rounds to 7, the tail keeps 3.
	assert.Equal(t, []int{7, 7, 7, 7, 3}, calendar.DistributeSimple(31, blocksOf(7, 7, 7, 7, 3)))

	for _, total := range []int{0, 1, 7, 10, 99, 101, 1234} {
		for _, days := range [][]int{{7}, {2, 7, 7}, {7, 7, 7, 7, 1}, {3, 3, 3}} {
			got := calendar.DistributeSimple(total, blocksOf(days...))
			assert.Equal(t, total, sum(got), "total %d days %v", total, days)
		}
	}
}

func TestDistributeSimpleRemainderOnLastBlock(t *testing.T) {
	t.Parallel()

	// 10 over three equal blocks: round(3.33) = 3 twice, last takes 4.
	assert.Equal(t, []int{3, 3, 4}, calendar.DistributeSimple(10, blocksOf(3, 3, 3)))
}

func TestDistributeSmallTotalNeverNegative(t *testing.T) {
	t.Parallel()

	got := calendar.DistributeSimple(3, blocksOf(7, 7, 7, 7, 3))
	assert.Equal(t, []int{1, 1, 1, 0, 0}, got)
	for _, v := range got {
		assert.GreaterOrEqual(t, v, 0)
	}
}

func TestDistributeZeroDays(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []int{0, 0}, calendar.DistributeSimple(50, blocksOf(0, 0)))
	assert.Empty(t, calendar.DistributeSimple(50, nil))

	ineligible := blocksOf(7, 7)
	for i := range ineligible {
		ineligible[i].Eligible = false
	}
	assert.Equal(t, []int{0, 0}, calendar.DistributeEligible(50, ineligible))
}

func TestDistributeEligible(t *testing.T) {
	t.Parallel()

	blocks := calendar.WeekBlocksWithLeadTime(2026, 2, 13, 10)
	got := calendar.DistributeEligible(100, blocks)

	// Eligible blocks have 2 and 7 days.
	assert.Equal(t, []int{22, 78, 0}, got)
	assert.Equal(t, 100, sum(got))
}

func TestDistributeByArrivalMonth(t *testing.T) {
	t.Parallel()

	blocks := calendar.WeekBlocksWithLeadTime(2026, 2, 13, 10)
	orders := map[calendar.MonthKey]int{"2026_02": 100, "2026_03": 50}

	got := calendar.DistributeByArrivalMonth(orders, blocks, "2026_02")
	require.Len(t, got, 3)

	assert.Equal(t, 22, got[0].Quantity)
	assert.Equal(t, 78, got[1].Quantity)
	assert.Equal(t, 50, got[2].Quantity)

	assert.False(t, got[0].Anticipated)
	assert.False(t, got[1].Anticipated)
	assert.True(t, got[2].Anticipated)
	assert.Equal(t, calendar.MonthKey("2026_03"), got[2].TargetMonth)
}

func TestDistributeByArrivalMonthSpreadsWithinGroup(t *testing.T) {
	t.Parallel()

	// 20 day lead time from Mar 1: W1 and W2 land in March, W3.. in April.
	blocks := calendar.WeekBlocksWithLeadTime(2026, 3, 1, 20)
	orders := map[calendar.MonthKey]int{"2026_03": 11, "2026_04": 45}

	got := calendar.DistributeByArrivalMonth(orders, blocks, "2026_03")
	perMonth := map[calendar.MonthKey]int{}
	for _, a := range got {
		perMonth[a.TargetMonth] += a.Quantity
	}

	assert.Equal(t, 11, perMonth["2026_03"])
	assert.Equal(t, 45, perMonth["2026_04"])
}
