package planning

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/nandorodriques37/planejamento-compras-app/internal/calendar"
	"github.com/nandorodriques37/planejamento-compras-app/internal/domain"
	"github.com/nandorodriques37/planejamento-compras-app/internal/projection"
)

// Snapshot is one immutable version of the edit state. Readers must not
// modify the maps it holds; every mutation of EditState publishes a new one.
type Snapshot struct {
	Version uint64
	// Month is the reference month the edits were made against.
	Month  calendar.MonthKey
	orders map[domain.SKUKey]projection.Overrides
	weekly map[domain.SKUKey]map[calendar.MonthKey]map[string]int
}

// OverridePair is one manual order.
type OverridePair struct {
	SKU   domain.SKUKey     `json:"sku_key"`
	Month calendar.MonthKey `json:"month"`
	Value float64           `json:"value"`
}

// Pairs lists every override ordered by SKU then month.
func (s *Snapshot) Pairs() []OverridePair {
	out := make([]OverridePair, 0, s.Count())
	for sku, ov := range s.orders {
		for m, v := range ov {
			out = append(out, OverridePair{SKU: sku, Month: m, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SKU != out[j].SKU {
			return out[i].SKU < out[j].SKU
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// Count is the number of overridden (SKU, month) pairs.
func (s *Snapshot) Count() int {
	n := 0
	for _, ov := range s.orders {
		n += len(ov)
	}
	return n
}

// EditState holds the manual order overrides and weekly block overrides of
// a planning session.
type EditState struct {
	mu   sync.RWMutex
	snap *Snapshot
}

func NewEditState(month calendar.MonthKey) *EditState {
	return &EditState{snap: emptySnapshot(0, month)}
}

func emptySnapshot(version uint64, month calendar.MonthKey) *Snapshot {
	return &Snapshot{
		Version: version,
		Month:   month,
		orders:  map[domain.SKUKey]projection.Overrides{},
		weekly:  map[domain.SKUKey]map[calendar.MonthKey]map[string]int{},
	}
}

// Snapshot returns the current version.
func (e *EditState) Snapshot() *Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap
}

// mutate publishes next(copy) as a new version. The copy shares every SKU
// map with the previous snapshot; next must replace, not edit, the ones it
// touches.
func (e *EditState) mutate(next func(s *Snapshot) bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := &Snapshot{
		Version: e.snap.Version + 1,
		Month:   e.snap.Month,
		orders:  make(map[domain.SKUKey]projection.Overrides, len(e.snap.orders)),
		weekly:  make(map[domain.SKUKey]map[calendar.MonthKey]map[string]int, len(e.snap.weekly)),
	}
	for k, v := range e.snap.orders {
		s.orders[k] = v
	}
	for k, v := range e.snap.weekly {
		s.weekly[k] = v
	}

	if !next(s) {
		return false
	}
	e.snap = s
	return true
}

func checkQuantity(month calendar.MonthKey, qty float64) error {
	if !month.Valid() {
		return fmt.Errorf("%w: %q", calendar.ErrInvalidMonthKey, month)
	}
	if math.IsNaN(qty) || math.IsInf(qty, 0) {
		return fmt.Errorf("override %s: quantity is not a number", month)
	}
	if qty < 0 {
		return fmt.Errorf("override %s: %w", month, domain.ErrNegativeQuantity)
	}
	return nil
}

// SetOverride pins the order of (sku, month) to qty. Zero is a valid
// override.
func (e *EditState) SetOverride(sku domain.SKUKey, month calendar.MonthKey, qty float64) error {
	if err := checkQuantity(month, qty); err != nil {
		return err
	}
	e.mutate(func(s *Snapshot) bool {
		ov := make(projection.Overrides, len(s.orders[sku])+1)
		for k, v := range s.orders[sku] {
			ov[k] = v
		}
		ov[month] = qty
		s.orders[sku] = ov
		return true
	})
	return nil
}

// ReplaceOverrides swaps the whole override set of sku for overrides as a
// single version. An empty set clears the SKU's orders. Weekly overrides are
// kept.
func (e *EditState) ReplaceOverrides(sku domain.SKUKey, overrides projection.Overrides) error {
	for m, v := range overrides {
		if err := checkQuantity(m, v); err != nil {
			return err
		}
	}
	e.mutate(func(s *Snapshot) bool {
		if len(overrides) == 0 {
			_, had := s.orders[sku]
			delete(s.orders, sku)
			return had
		}
		ov := make(projection.Overrides, len(overrides))
		for k, v := range overrides {
			ov[k] = v
		}
		s.orders[sku] = ov
		return true
	})
	return nil
}

// ClearOverride removes one override. It reports whether anything changed.
func (e *EditState) ClearOverride(sku domain.SKUKey, month calendar.MonthKey) bool {
	return e.mutate(func(s *Snapshot) bool {
		cur, ok := s.orders[sku]
		if !ok {
			return false
		}
		if _, ok := cur[month]; !ok {
			return false
		}
		if len(cur) == 1 {
			delete(s.orders, sku)
			return true
		}
		ov := make(projection.Overrides, len(cur)-1)
		for k, v := range cur {
			if k != month {
				ov[k] = v
			}
		}
		s.orders[sku] = ov
		return true
	})
}

// ClearSKU drops every order and weekly override of sku.
func (e *EditState) ClearSKU(sku domain.SKUKey) bool {
	return e.mutate(func(s *Snapshot) bool {
		_, a := s.orders[sku]
		_, b := s.weekly[sku]
		delete(s.orders, sku)
		delete(s.weekly, sku)
		return a || b
	})
}

// ClearAllOverrides drops every edit of the session.
func (e *EditState) ClearAllOverrides() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.snap = emptySnapshot(e.snap.Version+1, e.snap.Month)
}

// Rebase binds the state to a new reference month. Edits made against a
// different month are discarded; it reports whether that happened.
func (e *EditState) Rebase(month calendar.MonthKey) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snap.Month == month {
		return false
	}
	e.snap = emptySnapshot(e.snap.Version+1, month)
	return true
}

func (e *EditState) IsOverridden(sku domain.SKUKey, month calendar.MonthKey) bool {
	_, ok := e.Snapshot().orders[sku][month]
	return ok
}

func (e *EditState) Count() int {
	return e.Snapshot().Count()
}

// ForSKU returns a copy of the overrides of sku, never nil.
func (e *EditState) ForSKU(sku domain.SKUKey) projection.Overrides {
	cur := e.Snapshot().orders[sku]
	out := make(projection.Overrides, len(cur))
	for k, v := range cur {
		out[k] = v
	}
	return out
}

// SetWeeklyOverride pins the quantity of one week block of (sku, month).
func (e *EditState) SetWeeklyOverride(sku domain.SKUKey, month calendar.MonthKey, block string, qty int) error {
	if err := checkQuantity(month, float64(qty)); err != nil {
		return err
	}
	if block == "" {
		return fmt.Errorf("weekly override %s: empty block label", month)
	}
	e.mutate(func(s *Snapshot) bool {
		months := copyWeekly(s.weekly[sku])
		blocks := make(map[string]int, len(months[month])+1)
		for k, v := range months[month] {
			blocks[k] = v
		}
		blocks[block] = qty
		months[month] = blocks
		s.weekly[sku] = months
		return true
	})
	return nil
}

func (e *EditState) ClearWeeklyOverride(sku domain.SKUKey, month calendar.MonthKey, block string) bool {
	return e.mutate(func(s *Snapshot) bool {
		if _, ok := s.weekly[sku][month][block]; !ok {
			return false
		}
		months := copyWeekly(s.weekly[sku])
		blocks := make(map[string]int, len(months[month]))
		for k, v := range months[month] {
			if k != block {
				blocks[k] = v
			}
		}
		if len(blocks) == 0 {
			delete(months, month)
		} else {
			months[month] = blocks
		}
		if len(months) == 0 {
			delete(s.weekly, sku)
		} else {
			s.weekly[sku] = months
		}
		return true
	})
}

// WeeklyOverrides returns a copy of the block overrides of (sku, month).
func (e *EditState) WeeklyOverrides(sku domain.SKUKey, month calendar.MonthKey) map[string]int {
	cur := e.Snapshot().weekly[sku][month]
	out := make(map[string]int, len(cur))
	for k, v := range cur {
		out[k] = v
	}
	return out
}

func copyWeekly(in map[calendar.MonthKey]map[string]int) map[calendar.MonthKey]map[string]int {
	out := make(map[calendar.MonthKey]map[string]int, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}
