package planning

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/nandorodriques37/planejamento-compras-app/internal/cache"
	"github.com/nandorodriques37/planejamento-compras-app/internal/calendar"
	"github.com/nandorodriques37/planejamento-compras-app/internal/coverage"
	"github.com/nandorodriques37/planejamento-compras-app/internal/domain"
	"github.com/nandorodriques37/planejamento-compras-app/internal/projection"
)

const defaultWorkers = 8

// Planner recomputes projections of the loaded bundle with the session
// edits applied.
type Planner struct {
	mu      sync.RWMutex
	index   *Index
	edits   *EditState
	cache   cache.ProjectionCache
	workers int
}

type Option func(*Planner)

func WithCache(c cache.ProjectionCache) Option {
	return func(p *Planner) { p.cache = c }
}

func WithWorkers(n int) Option {
	return func(p *Planner) {
		if n > 0 {
			p.workers = n
		}
	}
}

func NewPlanner(opts ...Option) *Planner {
	p := &Planner{
		edits:   NewEditState(""),
		cache:   cache.NewMemoryProjectionCache(),
		workers: defaultWorkers,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Load swaps in a new bundle. Edits survive a reload within the same
// reference month and are dropped otherwise.
func (p *Planner) Load(b *domain.Bundle) error {
	ix, err := NewIndex(b)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.index = ix
	p.mu.Unlock()

	if p.edits.Rebase(calendar.MonthKeyOf(ix.Reference)) {
		log.Info().Str("reference_month", string(calendar.MonthKeyOf(ix.Reference))).Msg("planning edits reset for new reference month")
	}
	log.Info().Int("skus", len(ix.SKUs)).Int("months", len(ix.Keys)).Msg("planning bundle loaded")
	return nil
}

// Index returns the loaded bundle index.
func (p *Planner) Index() (*Index, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.index == nil {
		return nil, domain.ErrBundleNotAvailable
	}
	return p.index, nil
}

func (p *Planner) Edits() *EditState {
	return p.edits
}

// PurgeCache drops every memoized projection. Entries are content keyed, so
// this only reclaims space after a bundle swap.
func (p *Planner) PurgeCache(ctx context.Context) error {
	if err := p.cache.InvalidateAll(ctx); err != nil {
		return fmt.Errorf("purge projection cache: %w", err)
	}
	return nil
}

type cacheInput struct {
	Entry     domain.RegistryEntry
	Keys      []calendar.MonthKey
	Demand    projection.Demand
	Overrides projection.Overrides
	Reference time.Time
}

func (p *Planner) compute(ctx context.Context, ix *Index, entry domain.RegistryEntry, overrides projection.Overrides) (projection.Series, error) {
	demand := ix.Demand(entry.Key)
	if overrides == nil {
		overrides = projection.Overrides{}
	}

	key, err := cache.KeyFor(cacheInput{Entry: entry, Keys: ix.Keys, Demand: demand, Overrides: overrides, Reference: ix.Reference})
	if err != nil {
		log.Warn().Err(err).Str("sku", string(entry.Key)).Msg("projection cache key unavailable")
	} else if s, ok, err := p.cache.Get(ctx, key); err != nil {
		log.Warn().Err(err).Str("sku", string(entry.Key)).Msg("projection cache get failed")
	} else if ok {
		return s, nil
	}

	s, err := projection.Recompute(entry, ix.Keys, demand, overrides, ix.Reference)
	if err != nil {
		return nil, err
	}

	if key != "" {
		if err := p.cache.Set(ctx, key, s); err != nil {
			log.Warn().Err(err).Str("sku", string(entry.Key)).Msg("projection cache set failed")
		}
	}
	return s, nil
}

func (p *Planner) lookup(sku domain.SKUKey) (*Index, domain.RegistryEntry, error) {
	ix, err := p.Index()
	if err != nil {
		return nil, domain.RegistryEntry{}, err
	}
	entry, ok := ix.Entry(sku)
	if !ok {
		return nil, domain.RegistryEntry{}, fmt.Errorf("%w: %s", domain.ErrSKUNotFound, sku)
	}
	return ix, entry, nil
}

// Series projects one SKU with its current overrides.
func (p *Planner) Series(ctx context.Context, sku domain.SKUKey) (projection.Series, error) {
	ix, entry, err := p.lookup(sku)
	if err != nil {
		return nil, err
	}
	return p.compute(ctx, ix, entry, p.edits.ForSKU(sku))
}

// RecomputeAll projects every SKU of the bundle against one edit snapshot.
func (p *Planner) RecomputeAll(ctx context.Context) (map[domain.SKUKey]projection.Series, error) {
	ix, err := p.Index()
	if err != nil {
		return nil, err
	}
	snap := p.edits.Snapshot()

	var mu sync.Mutex
	out := make(map[domain.SKUKey]projection.Series, len(ix.SKUs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, sku := range ix.SKUs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry, _ := ix.Entry(sku)
			s, err := p.compute(gctx, ix, entry, snap.orders[sku])
			if err != nil {
				return err
			}
			mu.Lock()
			out[sku] = s
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("recompute: %w", err)
	}
	return out, nil
}

// Summary is the flat per-SKU row served by the query endpoint.
type Summary struct {
	SKUKey             domain.SKUKey        `json:"sku_key"`
	ProductCode        string               `json:"product_code"`
	ProductName        string               `json:"product_name"`
	Category           string               `json:"category"`
	Supplier           string               `json:"supplier"`
	DistributionCenter string               `json:"distribution_center"`
	LeadTimeDays       int                  `json:"lead_time_days"`
	UnitCost           float64              `json:"unit_cost"`
	Status             domain.Status        `json:"status"`
	TotalDemand        int                  `json:"total_demand"`
	TotalOrder         int                  `json:"total_order"`
	EndingStock        int                  `json:"ending_stock"`
	StockCoverDays     projection.CoverDays `json:"stock_cover_days"`
	Overrides          int                  `json:"overrides"`
}

// Summaries recomputes every SKU and flattens the result, ordered by key.
func (p *Planner) Summaries(ctx context.Context) ([]Summary, error) {
	all, err := p.RecomputeAll(ctx)
	if err != nil {
		return nil, err
	}
	ix, err := p.Index()
	if err != nil {
		return nil, err
	}
	snap := p.edits.Snapshot()

	out := make([]Summary, 0, len(ix.SKUs))
	for _, sku := range ix.SKUs {
		entry, _ := ix.Entry(sku)
		out = append(out, summarize(ix, entry, all[sku], len(snap.orders[sku])))
	}
	return out, nil
}

func summarize(ix *Index, entry domain.RegistryEntry, s projection.Series, overrides int) Summary {
	sum := Summary{
		SKUKey:             entry.Key,
		ProductCode:        entry.ProductCode,
		ProductName:        entry.ProductName,
		Category:           entry.Category,
		Supplier:           entry.Supplier,
		DistributionCenter: entry.DistributionCenter,
		LeadTimeDays:       entry.LeadTimeDays,
		UnitCost:           entry.UnitCost.Float(),
		Status:             projection.ClassifyStatus(s, ix.Keys),
		Overrides:          overrides,
		StockCoverDays:     stockCover(ix, entry),
	}
	for _, r := range s.Ordered(ix.Keys) {
		sum.TotalDemand += r.Demand
	}
	sum.TotalOrder = s.TotalOrder()
	sum.EndingStock = s[ix.Keys[len(ix.Keys)-1]].Projected
	return sum
}

func stockCover(ix *Index, entry domain.RegistryEntry) projection.CoverDays {
	year, month, _ := ix.Keys[0].Parse()
	return projection.CoverDays(projection.StockCoverDays(
		projection.InitialStock(entry), ix.Demand(entry.Key)[ix.Keys[0]], calendar.DaysInMonth(year, month)))
}

// MonthView is one month of a SKU detail.
type MonthView struct {
	Month calendar.MonthKey `json:"month"`
	projection.MonthRecord
}

// Detail is the full projection of one SKU.
type Detail struct {
	Summary
	Entry  domain.RegistryEntry `json:"entry"`
	Months []MonthView          `json:"months"`
}

func (p *Planner) Detail(ctx context.Context, sku domain.SKUKey) (Detail, error) {
	ix, entry, err := p.lookup(sku)
	if err != nil {
		return Detail{}, err
	}
	overrides := p.edits.ForSKU(sku)
	s, err := p.compute(ctx, ix, entry, overrides)
	if err != nil {
		return Detail{}, err
	}

	d := Detail{
		Summary: summarize(ix, entry, s, len(overrides)),
		Entry:   entry,
		Months:  make([]MonthView, len(ix.Keys)),
	}
	for i, k := range ix.Keys {
		d.Months[i] = MonthView{Month: k, MonthRecord: s[k]}
	}
	return d, nil
}

// Coverage runs the coverage calculator for sku against the bundle
// reference date.
func (p *Planner) Coverage(_ context.Context, sku domain.SKUKey, coverageDate time.Time) (coverage.Result, error) {
	ix, entry, err := p.lookup(sku)
	if err != nil {
		return coverage.Result{}, err
	}
	return coverage.ComputeCoverageByDate(entry, ix.Keys, ix.Demand(sku), calendar.StartOfDay(coverageDate), ix.Reference)
}

// ApplyCoverage makes res the override set of its SKU and returns the
// reconciled projection. res is computed against the unedited plan, so any
// earlier override of the SKU, including one left by a previous coverage,
// is dropped; months res does not touch go back to the engine.
func (p *Planner) ApplyCoverage(ctx context.Context, res coverage.Result) (projection.Series, error) {
	if _, _, err := p.lookup(res.SKU); err != nil {
		return nil, err
	}
	if err := p.edits.ReplaceOverrides(res.SKU, res.Overrides()); err != nil {
		return nil, err
	}
	return p.Series(ctx, res.SKU)
}

// SetOverride pins the order of one horizon month of sku.
func (p *Planner) SetOverride(sku domain.SKUKey, month calendar.MonthKey, qty float64) error {
	ix, _, err := p.lookup(sku)
	if err != nil {
		return err
	}
	if month.Valid() && calendar.IndexOf(ix.Keys, month) < 0 {
		return domain.ValidationErrors{{Field: "month", Message: fmt.Sprintf("%s is outside the planning horizon", month)}}
	}
	return p.edits.SetOverride(sku, month, qty)
}

// WeeklyBlock is one week block of the current month's order plan.
type WeeklyBlock struct {
	calendar.Allocation
	Suggested  int  `json:"suggested"`
	Overridden bool `json:"overridden"`
}

// WeeklyPlan splits the orders placed during the current month over its
// remaining week blocks, each block carrying the month its arrival lands in.
type WeeklyPlan struct {
	SKU          domain.SKUKey     `json:"sku_key"`
	Month        calendar.MonthKey `json:"month"`
	ReferenceDay int               `json:"reference_day"`
	LeadTimeDays int               `json:"lead_time_days"`
	Blocks       []WeeklyBlock     `json:"blocks"`
	Total        int               `json:"total"`
}

func (p *Planner) WeeklyPlan(ctx context.Context, sku domain.SKUKey) (WeeklyPlan, error) {
	ix, entry, err := p.lookup(sku)
	if err != nil {
		return WeeklyPlan{}, err
	}
	s, err := p.compute(ctx, ix, entry, p.edits.ForSKU(sku))
	if err != nil {
		return WeeklyPlan{}, err
	}

	current := ix.CurrentMonth()
	year, month, _ := current.Parse()
	blocks := calendar.WeekBlocksWithLeadTime(year, month, ix.ReferenceDay(), entry.LeadTimeDays)

	orders := make(map[calendar.MonthKey]int)
	for _, b := range blocks {
		orders[b.ArrivalMonth] = s[b.ArrivalMonth].Order
	}

	weekly := p.edits.WeeklyOverrides(sku, current)
	plan := WeeklyPlan{
		SKU:          sku,
		Month:        current,
		ReferenceDay: ix.ReferenceDay(),
		LeadTimeDays: entry.LeadTimeDays,
		Blocks:       make([]WeeklyBlock, 0, len(blocks)),
	}
	for _, a := range calendar.DistributeByArrivalMonth(orders, blocks, current) {
		wb := WeeklyBlock{Allocation: a, Suggested: a.Quantity}
		if v, ok := weekly[a.Block.Label]; ok {
			wb.Quantity = v
			wb.Overridden = true
		}
		plan.Total += wb.Quantity
		plan.Blocks = append(plan.Blocks, wb)
	}
	return plan, nil
}
