// Package planning owns a planning session: the loaded bundle, the manual
// edits made on top of it, and the recomputation of projections.
package planning

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nandorodriques37/planejamento-compras-app/internal/calendar"
	"github.com/nandorodriques37/planejamento-compras-app/internal/domain"
	"github.com/nandorodriques37/planejamento-compras-app/internal/projection"
)

var ErrNoMonths = errors.New("bundle has no month keys")

// Index is a read-only lookup view of a bundle.
type Index struct {
	Metadata  domain.Metadata
	Reference time.Time
	Keys      []calendar.MonthKey
	// SKUs lists every registry key in ascending order.
	SKUs []domain.SKUKey

	registry map[domain.SKUKey]domain.RegistryEntry
	demand   map[domain.SKUKey]projection.Demand
}

// NewIndex validates the month keys of b and indexes its registry and
// series. Series rows without a registry entry are skipped.
func NewIndex(b *domain.Bundle) (*Index, error) {
	keys := b.Metadata.MonthKeys
	if len(keys) == 0 {
		return nil, ErrNoMonths
	}
	if err := calendar.ValidateKeys(keys); err != nil {
		return nil, fmt.Errorf("bundle month keys: %w", err)
	}

	ref, err := referenceOf(b.Metadata)
	if err != nil {
		return nil, err
	}

	ix := &Index{
		Metadata:  b.Metadata,
		Reference: ref,
		Keys:      append([]calendar.MonthKey(nil), keys...),
		SKUs:      make([]domain.SKUKey, 0, len(b.Registry)),
		registry:  make(map[domain.SKUKey]domain.RegistryEntry, len(b.Registry)),
		demand:    make(map[domain.SKUKey]projection.Demand, len(b.Series)),
	}

	for _, e := range b.Registry {
		if _, dup := ix.registry[e.Key]; dup {
			log.Warn().Str("sku", string(e.Key)).Msg("duplicate registry entry, keeping the first")
			continue
		}
		ix.registry[e.Key] = e
		ix.SKUs = append(ix.SKUs, e.Key)
	}
	sort.Slice(ix.SKUs, func(i, j int) bool { return ix.SKUs[i] < ix.SKUs[j] })

	skipped := 0
	for _, row := range b.Series {
		if _, ok := ix.registry[row.SKUKey]; !ok {
			skipped++
			continue
		}
		d := make(projection.Demand, len(keys))
		for _, k := range keys {
			d[k] = domain.Finite(row.Months[k].Demand.Float())
		}
		ix.demand[row.SKUKey] = d
	}
	if skipped > 0 {
		log.Warn().Int("rows", skipped).Msg("series rows without registry entry skipped")
	}

	return ix, nil
}

// referenceOf falls back to the first day of the horizon when the bundle has
// no reference date.
func referenceOf(m domain.Metadata) (time.Time, error) {
	if m.ReferenceDate == "" {
		return m.MonthKeys[0].FirstDay()
	}
	return m.Reference()
}

func (ix *Index) Entry(sku domain.SKUKey) (domain.RegistryEntry, bool) {
	e, ok := ix.registry[sku]
	return e, ok
}

// Demand returns the demand series of sku. It is empty, not nil, for SKUs
// without a series row.
func (ix *Index) Demand(sku domain.SKUKey) projection.Demand {
	if d, ok := ix.demand[sku]; ok {
		return d
	}
	return projection.Demand{}
}

// CurrentMonth is the first month of the horizon.
func (ix *Index) CurrentMonth() calendar.MonthKey {
	return ix.Keys[0]
}

// ReferenceDay is the day of the reference date when it falls in the current
// month, else 1.
func (ix *Index) ReferenceDay() int {
	if calendar.MonthKeyOf(ix.Reference) == ix.CurrentMonth() {
		return ix.Reference.Day()
	}
	return 1
}
