package planning_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nandorodriques37/planejamento-compras-app/internal/calendar"
	"github.com/nandorodriques37/planejamento-compras-app/internal/domain"
	"github.com/nandorodriques37/planejamento-compras-app/internal/planning"
	"github.com/nandorodriques37/planejamento-compras-app/internal/projection"
)

func TestEditStateSetAndClear(t *testing.T) {
	t.Parallel()

	e := planning.NewEditState("2026_02")
	require.NoError(t, e.SetOverride("A", "2026_02", 0))
	require.NoError(t, e.SetOverride("A", "2026_03", 12))
	require.NoError(t, e.SetOverride("B", "2026_03", 4))

	assert.True(t, e.IsOverridden("A", "2026_02"))
	assert.False(t, e.IsOverridden("B", "2026_02"))
	assert.Equal(t, 3, e.Count())
	assert.Equal(t, projection.Overrides{"2026_02": 0, "2026_03": 12}, e.ForSKU("A"))

	assert.True(t, e.ClearOverride("A", "2026_02"))
	assert.False(t, e.ClearOverride("A", "2026_02"))
	assert.False(t, e.ClearOverride("Z", "2026_02"))
	assert.Equal(t, 2, e.Count())

	e.ClearAllOverrides()
	assert.Zero(t, e.Count())
	assert.Empty(t, e.ForSKU("A"))
}

func TestEditStateRejectsBadInput(t *testing.T) {
	t.Parallel()

	e := planning.NewEditState("2026_02")

	assert.ErrorIs(t, e.SetOverride("A", "2026-02", 1), calendar.ErrInvalidMonthKey)
	assert.ErrorIs(t, e.SetOverride("A", "2026_02", -1), domain.ErrNegativeQuantity)
	assert.Error(t, e.SetOverride("A", "2026_02", math.NaN()))
	assert.ErrorIs(t, e.ReplaceOverrides("A", projection.Overrides{"2026_02": 1, "2026_03": -2}), domain.ErrNegativeQuantity)
	assert.ErrorIs(t, e.SetWeeklyOverride("A", "2026_02", "W1", -3), domain.ErrNegativeQuantity)
	assert.Error(t, e.SetWeeklyOverride("A", "2026_02", "", 3))

	assert.Zero(t, e.Count())
	assert.Zero(t, e.Snapshot().Version)
}

func TestEditStateSnapshotsAreImmutable(t *testing.T) {
	t.Parallel()

	e := planning.NewEditState("2026_02")
	require.NoError(t, e.SetOverride("A", "2026_02", 5))
	before := e.Snapshot()

	require.NoError(t, e.SetOverride("A", "2026_02", 9))
	require.NoError(t, e.SetOverride("A", "2026_03", 1))
	after := e.Snapshot()

	assert.NotSame(t, before, after)
	assert.Less(t, before.Version, after.Version)
	assert.Equal(t, []planning.OverridePair{{SKU: "A", Month: "2026_02", Value: 5}}, before.Pairs())
	assert.Equal(t, []planning.OverridePair{
		{SKU: "A", Month: "2026_02", Value: 9},
		{SKU: "A", Month: "2026_03", Value: 1},
	}, after.Pairs())

	// A copy handed out by ForSKU does not write back.
	ov := e.ForSKU("A")
	ov["2026_04"] = 100
	assert.False(t, e.IsOverridden("A", "2026_04"))
}

func TestEditStateNoopDoesNotBumpVersion(t *testing.T) {
	t.Parallel()

	e := planning.NewEditState("2026_02")
	v := e.Snapshot().Version
	e.ClearOverride("A", "2026_02")
	e.ClearWeeklyOverride("A", "2026_02", "W1")
	e.ClearSKU("A")
	assert.Equal(t, v, e.Snapshot().Version)
}

func TestEditStateRebase(t *testing.T) {
	t.Parallel()

	e := planning.NewEditState("2026_02")
	require.NoError(t, e.SetOverride("A", "2026_03", 5))
	require.NoError(t, e.SetWeeklyOverride("A", "2026_02", "W2", 5))

	assert.False(t, e.Rebase("2026_02"))
	assert.Equal(t, 1, e.Count())

	assert.True(t, e.Rebase("2026_03"))
	assert.Zero(t, e.Count())
	assert.Empty(t, e.WeeklyOverrides("A", "2026_02"))
	assert.Equal(t, calendar.MonthKey("2026_03"), e.Snapshot().Month)
}

func TestEditStateWeeklyOverrides(t *testing.T) {
	t.Parallel()

	e := planning.NewEditState("2026_02")
	require.NoError(t, e.SetWeeklyOverride("A", "2026_02", "W2", 10))
	require.NoError(t, e.SetWeeklyOverride("A", "2026_02", "W3", 0))
	before := e.Snapshot()

	assert.Equal(t, map[string]int{"W2": 10, "W3": 0}, e.WeeklyOverrides("A", "2026_02"))
	assert.True(t, e.ClearWeeklyOverride("A", "2026_02", "W2"))
	assert.Equal(t, map[string]int{"W3": 0}, e.WeeklyOverrides("A", "2026_02"))
	assert.True(t, e.ClearWeeklyOverride("A", "2026_02", "W3"))
	assert.Empty(t, e.WeeklyOverrides("A", "2026_02"))

	// Order overrides are untouched by weekly edits.
	assert.Zero(t, e.Count())
	assert.Less(t, before.Version, e.Snapshot().Version)
}

func TestEditStateClearSKU(t *testing.T) {
	t.Parallel()

	e := planning.NewEditState("2026_02")
	require.NoError(t, e.SetOverride("A", "2026_02", 1))
	require.NoError(t, e.SetOverride("B", "2026_02", 1))
	require.NoError(t, e.SetWeeklyOverride("A", "2026_02", "W2", 1))

	assert.True(t, e.ClearSKU("A"))
	assert.Equal(t, 1, e.Count())
	assert.Empty(t, e.WeeklyOverrides("A", "2026_02"))
	assert.True(t, e.IsOverridden("B", "2026_02"))
}

func TestEditStateReplaceOverrides(t *testing.T) {
	t.Parallel()

	e := planning.NewEditState("2026_02")
	require.NoError(t, e.SetOverride("A", "2026_02", 1))
	require.NoError(t, e.SetOverride("A", "2026_04", 20))
	require.NoError(t, e.SetOverride("B", "2026_03", 2))
	require.NoError(t, e.SetWeeklyOverride("A", "2026_02", "W3", 4))
	before := e.Snapshot().Version

	require.NoError(t, e.ReplaceOverrides("A", projection.Overrides{"2026_02": 9, "2026_03": 0}))
	assert.Equal(t, before+1, e.Snapshot().Version)
	assert.Equal(t, projection.Overrides{"2026_02": 9, "2026_03": 0}, e.ForSKU("A"))
	assert.False(t, e.IsOverridden("A", "2026_04"))
	assert.True(t, e.IsOverridden("B", "2026_03"))
	assert.Equal(t, map[string]int{"W3": 4}, e.WeeklyOverrides("A", "2026_02"))

	require.NoError(t, e.ReplaceOverrides("A", nil))
	assert.Empty(t, e.ForSKU("A"))
	assert.Equal(t, 1, e.Count())
}
