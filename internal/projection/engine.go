// Package projection runs the month-by-month stock simulation of a single
// SKU. It is pure: identical inputs give identical outputs, and nothing is
// shared between calls.
package projection

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/nandorodriques37/planejamento-compras-app/internal/calendar"
	"github.com/nandorodriques37/planejamento-compras-app/internal/domain"
)

// MonthRecord is the projected state of one (SKU, month).
type MonthRecord struct {
	Demand     int  `json:"demand"`
	Projected  int  `json:"projected"`
	Objective  int  `json:"objective"`
	Order      int  `json:"order"`
	Arrival    int  `json:"arrival"`
	Overridden bool `json:"overridden"`
}

// Series maps month keys to records.
type Series map[calendar.MonthKey]MonthRecord

// Ordered returns the records in the order of keys. Missing months are zero.
func (s Series) Ordered(keys []calendar.MonthKey) []MonthRecord {
	out := make([]MonthRecord, len(keys))
	for i, k := range keys {
		out[i] = s[k]
	}
	return out
}

// TotalOrder sums the order quantities of the series.
func (s Series) TotalOrder() int {
	total := 0
	for _, r := range s {
		total += r.Order
	}
	return total
}

// Demand is the sell-out forecast per month.
type Demand map[calendar.MonthKey]float64

// Overrides are planner-chosen order quantities. A key present in the map is
// an override, whatever the value (0 included); absence means "compute".
type Overrides map[calendar.MonthKey]float64

// InitialStock is the notional stock position at the start of the horizon.
func InitialStock(e domain.RegistryEntry) float64 {
	return e.OnHand.Float() - e.Impact.Float() - e.StoreFill.Float() + e.Pending.Float() + e.OtherInbound.Float()
}

// horizon is the per-month working state of one run, indexed by position in
// the month key list.
type horizon struct {
	keys      []calendar.MonthKey
	days      []int
	demand    []float64
	objective []float64
	arrivalAt []int
}

func newHorizon(entry domain.RegistryEntry, keys []calendar.MonthKey, demand Demand, ref time.Time) (*horizon, error) {
	n := len(keys)
	h := &horizon{
		keys:      keys,
		days:      make([]int, n),
		demand:    make([]float64, n),
		objective: make([]float64, n),
		arrivalAt: make([]int, n),
	}

	for i, k := range keys {
		year, month, err := k.Parse()
		if err != nil {
			return nil, fmt.Errorf("sku %s: %w", entry.Key, err)
		}
		h.days[i] = calendar.DaysInMonth(year, month)
		h.demand[i] = domain.Finite(demand[k])
		h.objective[i] = ObjectiveStock(entry, h.demand[i], h.days[i])

		order := calendar.Date(year, month, 1)
		if i == 0 && !ref.IsZero() {
			order = calendar.StartOfDay(ref)
		}
		h.arrivalAt[i] = h.arrivalIndex(i, order.AddDate(0, 0, entry.LeadTimeDays), entry.LeadTimeDays)
	}

	return h, nil
}

// arrivalIndex locates the month an order placed at index i lands in. Arrivals
// past the horizon are clamped to the last month.
func (h *horizon) arrivalIndex(i int, arrival time.Time, leadTime int) int {
	if j := calendar.IndexOf(h.keys, calendar.MonthKeyOf(arrival)); j >= 0 {
		return j
	}
	j := i + int(math.Ceil(float64(leadTime)/30))
	if last := len(h.keys) - 1; j > last {
		j = last
	}
	return j
}

// Recompute simulates the SKU over keys. Months in overrides keep the given
// order quantity exactly; every other month is ordered so projected stock
// reaches the objective of the month the order arrives in.
func Recompute(entry domain.RegistryEntry, keys []calendar.MonthKey, demand Demand, overrides Overrides, ref time.Time) (Series, error) {
	h, err := newHorizon(entry, keys, demand, ref)
	if err != nil {
		return nil, err
	}
	n := len(keys)
	initial := InitialStock(entry)

	// Pass 1: fix order quantities in sequence. Arrivals scheduled here may
	// land in months not yet visited.
	scheduled := make([]float64, n)
	orders := make([]float64, n)
	stock := initial
	for i, k := range keys {
		before := stock + scheduled[i] - h.demand[i]
		j := h.arrivalAt[i]

		var order float64
		if v, ok := overrides[k]; ok {
			order = v
		} else if j == i {
			order = math.Max(0, h.objective[i]-before)
		} else {
			atArrival := before
			for m := i + 1; m <= j; m++ {
				atArrival += scheduled[m] - h.demand[m]
			}
			order = math.Max(0, h.objective[j]-atArrival)
		}

		orders[i] = order
		if order > 0 {
			scheduled[j] += order
		}
		stock += scheduled[i] - h.demand[i]
	}

	// Pass 2: rebuild arrivals from the final orders and accumulate stock
	// forward once more. Emitted integers reconcile exactly: arrivals are sums
	// of emitted orders and projected stock chains from the rounded initial
	// stock.
	emittedOrder := make([]int, n)
	arrivals := make([]int, n)
	for i := range keys {
		emittedOrder[i] = int(math.Round(orders[i]))
		if orders[i] > 0 {
			arrivals[h.arrivalAt[i]] += emittedOrder[i]
		}
	}

	series := make(Series, n)
	projected := int(math.Round(initial))
	for i, k := range keys {
		d := int(math.Round(h.demand[i]))
		projected += arrivals[i] - d
		_, overridden := overrides[k]
		series[k] = MonthRecord{
			Demand:     d,
			Projected:  projected,
			Objective:  int(math.Round(h.objective[i])),
			Order:      emittedOrder[i],
			Arrival:    arrivals[i],
			Overridden: overridden,
		}
	}

	return series, nil
}

// ObjectiveStock is the target stock of one month.
func ObjectiveStock(entry domain.RegistryEntry, monthDemand float64, daysInMonth int) float64 {
	if daysInMonth <= 0 {
		return entry.Impact.Float()
	}
	coverDays := float64(entry.LeadTimeDays + entry.FrequencyDays + entry.SafetyStockDays)
	return domain.Finite(monthDemand)/float64(daysInMonth)*coverDays + entry.Impact.Float()
}

// StockCoverDays is how many days stock lasts at the month's daily demand.
// With no demand it returns +Inf.
func StockCoverDays(stock, monthDemand float64, daysInMonth int) float64 {
	if monthDemand <= 0 || daysInMonth <= 0 {
		return math.Inf(1)
	}
	return stock / (monthDemand / float64(daysInMonth))
}

// CoverDays is a stock cover in days. The unbounded cover of a SKU with no
// demand encodes as JSON null.
type CoverDays float64

// Unbounded reports whether the cover is infinite.
func (d CoverDays) Unbounded() bool {
	return math.IsInf(float64(d), 1)
}

// MarshalJSON implements json.Marshaler.
func (d CoverDays) MarshalJSON() ([]byte, error) {
	if math.IsInf(float64(d), 0) || math.IsNaN(float64(d)) {
		return []byte("null"), nil
	}
	return json.Marshal(math.Round(float64(d)*10) / 10)
}
