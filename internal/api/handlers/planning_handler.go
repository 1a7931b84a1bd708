package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/nandorodriques37/planejamento-compras-app/internal/calendar"
	"github.com/nandorodriques37/planejamento-compras-app/internal/domain"
	"github.com/nandorodriques37/planejamento-compras-app/internal/export"
	"github.com/nandorodriques37/planejamento-compras-app/internal/loader"
	"github.com/nandorodriques37/planejamento-compras-app/internal/planning"
	"github.com/nandorodriques37/planejamento-compras-app/internal/storage"
)

type PlanningHandler struct {
	planner        *planning.Planner
	bundles        *loader.BundleCache
	storage        storage.ObjectStorage
	snapshotPrefix string
	now            func() time.Time
}

type PlanningOption func(*PlanningHandler)

// WithBundles lets the handler reload the bundle on demand and when the
// month turns.
func WithBundles(b *loader.BundleCache) PlanningOption {
	return func(h *PlanningHandler) { h.bundles = b }
}

// WithSnapshotStorage enables snapshot publishing under prefix.
func WithSnapshotStorage(s storage.ObjectStorage, prefix string) PlanningOption {
	return func(h *PlanningHandler) {
		h.storage = s
		h.snapshotPrefix = prefix
	}
}

func WithHandlerClock(now func() time.Time) PlanningOption {
	return func(h *PlanningHandler) { h.now = now }
}

func NewPlanningHandler(planner *planning.Planner, opts ...PlanningOption) *PlanningHandler {
	h := &PlanningHandler{planner: planner, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RefreshBundle loads the bundle into the planner when the bundle cache
// picked up a new one. Failures are logged and the request goes on with
// whatever the planner holds.
func (h *PlanningHandler) RefreshBundle(c *gin.Context) {
	if h.bundles != nil {
		b, loaded, err := h.bundles.Get(c.Request.Context())
		switch {
		case err != nil:
			log.Warn().Err(err).Msg("bundle refresh failed")
		case loaded:
			if err := h.planner.Load(b); err != nil {
				log.Error().Err(err).Msg("failed to load refreshed bundle")
			}
		}
	}
	c.Next()
}

func (h *PlanningHandler) metadata() (gin.H, error) {
	ix, err := h.planner.Index()
	if err != nil {
		return nil, err
	}
	span, err := calendar.DateRange(ix.Keys, h.now())
	if err != nil {
		return nil, err
	}
	snap := h.planner.Edits().Snapshot()
	return gin.H{
		"metadata":       ix.Metadata,
		"date_range":     span,
		"reference_date": ix.Reference.Format("2006-01-02"),
		"current_month":  ix.CurrentMonth(),
		"month_keys":     ix.Keys,
		"sku_count":      len(ix.SKUs),
		"edit_version":   snap.Version,
		"override_count": snap.Count(),
	}, nil
}

// GetMetadata describes the loaded bundle and the edit session.
func (h *PlanningHandler) GetMetadata(c *gin.Context) {
	body, err := h.metadata()
	if err != nil {
		respondError(c, err, "failed to fetch metadata")
		return
	}
	c.JSON(http.StatusOK, body)
}

// Reload reads the bundle source again and swaps it in.
func (h *PlanningHandler) Reload(c *gin.Context) {
	if h.bundles == nil {
		respondError(c, loader.ErrNoSource, "bundle reload unavailable")
		return
	}
	b, err := h.bundles.Reload(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to reload bundle")
		return
	}
	if err := h.planner.Load(b); err != nil {
		respondError(c, err, "failed to load bundle")
		return
	}
	if err := h.planner.PurgeCache(c.Request.Context()); err != nil {
		log.Warn().Err(err).Msg("projection cache purge failed")
	}
	h.GetMetadata(c)
}

func (h *PlanningHandler) parseQuery(c *gin.Context) (planning.SKUQuery, error) {
	q := planning.SKUQuery{
		Categories: queryList(c, "category"),
		Suppliers:  queryList(c, "supplier"),
		Search:     strings.TrimSpace(c.Query("search")),
		SortBy:     strings.ToLower(strings.TrimSpace(c.Query("sort"))),
		Desc:       strings.EqualFold(strings.TrimSpace(c.Query("order")), "desc"),
		Limit:      parsePositiveIntWithDefault(c.Query("limit"), 50),
		Offset:     parseNonNegativeInt(c.Query("offset")),
	}

	var errs domain.ValidationErrors
	for _, raw := range queryList(c, "status") {
		s, ok := domain.ParseStatus(raw)
		if !ok {
			errs = append(errs, domain.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", raw)})
			continue
		}
		q.Statuses = append(q.Statuses, s)
	}
	if len(errs) > 0 {
		return q, errs
	}
	return q, q.Validate()
}

// ListSKUs recomputes every SKU, then filters, sorts and pages the rows.
func (h *PlanningHandler) ListSKUs(c *gin.Context) {
	q, err := h.parseQuery(c)
	if err != nil {
		respondError(c, err, "invalid query")
		return
	}

	rows, err := h.planner.Summaries(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to project skus")
		return
	}
	page, total := q.Apply(rows)

	c.JSON(http.StatusOK, gin.H{
		"items":  page,
		"total":  total,
		"limit":  q.Limit,
		"offset": q.Offset,
	})
}

func skuParam(c *gin.Context) domain.SKUKey {
	return domain.SKUKey(strings.TrimSpace(c.Param("sku")))
}

func (h *PlanningHandler) GetSKU(c *gin.Context) {
	d, err := h.planner.Detail(c.Request.Context(), skuParam(c))
	if err != nil {
		respondError(c, err, "failed to project sku")
		return
	}
	c.JSON(http.StatusOK, d)
}

// ListOverrides returns the session overrides as [sku, month, value] pairs.
func (h *PlanningHandler) ListOverrides(c *gin.Context) {
	snap := h.planner.Edits().Snapshot()
	pairs := snap.Pairs()
	out := make([]export.OverridePair, len(pairs))
	for i, p := range pairs {
		out[i] = export.OverridePair(p)
	}
	c.JSON(http.StatusOK, gin.H{"version": snap.Version, "overrides": out})
}

type overrideRequest struct {
	Value *float64 `json:"value" binding:"required"`
}

// SetOverride pins the order quantity of one month and returns the
// recomputed SKU.
func (h *PlanningHandler) SetOverride(c *gin.Context) {
	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	if err := h.planner.SetOverride(skuParam(c), calendar.MonthKey(c.Param("month")), *req.Value); err != nil {
		respondError(c, err, "failed to set override")
		return
	}
	h.GetSKU(c)
}

func (h *PlanningHandler) ClearOverride(c *gin.Context) {
	sku := skuParam(c)
	h.planner.Edits().ClearOverride(sku, calendar.MonthKey(c.Param("month")))
	h.GetSKU(c)
}

func (h *PlanningHandler) ClearSKUOverrides(c *gin.Context) {
	h.planner.Edits().ClearSKU(skuParam(c))
	h.GetSKU(c)
}

func (h *PlanningHandler) ClearAllOverrides(c *gin.Context) {
	h.planner.Edits().ClearAllOverrides()
	c.JSON(http.StatusOK, gin.H{"version": h.planner.Edits().Snapshot().Version, "override_count": 0})
}

func (h *PlanningHandler) GetWeeklyPlan(c *gin.Context) {
	plan, err := h.planner.WeeklyPlan(c.Request.Context(), skuParam(c))
	if err != nil {
		respondError(c, err, "failed to build weekly plan")
		return
	}
	c.JSON(http.StatusOK, plan)
}

type weeklyOverrideRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// SetWeeklyOverride pins one week block of the current month.
func (h *PlanningHandler) SetWeeklyOverride(c *gin.Context) {
	var req weeklyOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	sku := skuParam(c)
	block := c.Param("block")
	plan, err := h.planner.WeeklyPlan(c.Request.Context(), sku)
	if err != nil {
		respondError(c, err, "failed to set weekly override")
		return
	}
	if !hasBlock(plan, block) {
		respondError(c, domain.ValidationErrors{{Field: "block", Message: fmt.Sprintf("no block %s in %s", block, plan.Month)}}, "failed to set weekly override")
		return
	}
	if err := h.planner.Edits().SetWeeklyOverride(sku, plan.Month, block, *req.Quantity); err != nil {
		respondError(c, err, "failed to set weekly override")
		return
	}
	h.GetWeeklyPlan(c)
}

func (h *PlanningHandler) ClearWeeklyOverride(c *gin.Context) {
	ix, err := h.planner.Index()
	if err != nil {
		respondError(c, err, "failed to clear weekly override")
		return
	}
	h.planner.Edits().ClearWeeklyOverride(skuParam(c), ix.CurrentMonth(), c.Param("block"))
	h.GetWeeklyPlan(c)
}

func hasBlock(plan planning.WeeklyPlan, label string) bool {
	for _, b := range plan.Blocks {
		if b.Block.Label == label {
			return true
		}
	}
	return false
}

type coverageRequest struct {
	CoverageDate string `json:"coverage_date" binding:"required"`
}

func (h *PlanningHandler) bindCoverageDate(c *gin.Context) (time.Time, bool) {
	var req coverageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return time.Time{}, false
	}
	date, err := time.Parse("2006-01-02", strings.TrimSpace(req.CoverageDate))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coverage_date, expected YYYY-MM-DD", "details": err.Error()})
		return time.Time{}, false
	}
	return date, true
}

// ComputeCoverage previews how much to anticipate to cover stock until the
// requested date. Nothing is written.
func (h *PlanningHandler) ComputeCoverage(c *gin.Context) {
	date, ok := h.bindCoverageDate(c)
	if !ok {
		return
	}
	res, err := h.planner.Coverage(c.Request.Context(), skuParam(c), date)
	if err != nil {
		respondError(c, err, "failed to compute coverage")
		return
	}
	c.JSON(http.StatusOK, res)
}

// ApplyCoverage computes the coverage and writes it as overrides.
func (h *PlanningHandler) ApplyCoverage(c *gin.Context) {
	date, ok := h.bindCoverageDate(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	res, err := h.planner.Coverage(ctx, skuParam(c), date)
	if err != nil {
		respondError(c, err, "failed to compute coverage")
		return
	}
	if _, err := h.planner.ApplyCoverage(ctx, res); err != nil {
		respondError(c, err, "failed to apply coverage")
		return
	}
	d, err := h.planner.Detail(ctx, res.SKU)
	if err != nil {
		respondError(c, err, "failed to project sku")
		return
	}
	c.JSON(http.StatusOK, gin.H{"coverage": res, "sku": d})
}

func (h *PlanningHandler) snapshot(c *gin.Context) (*export.Snapshot, bool) {
	s, err := export.FromPlanner(c.Request.Context(), h.planner, h.now().UTC())
	if err != nil {
		respondError(c, err, "failed to build snapshot")
		return nil, false
	}
	return s, true
}

func exportName(s *export.Snapshot, ext string) string {
	month := "planejamento"
	if len(s.Metadata.MonthKeys) > 0 {
		month = string(s.Metadata.MonthKeys[0])
	}
	return fmt.Sprintf("planejamento-%s.%s", month, ext)
}

// ExportCSV streams one row per SKU and month.
func (h *PlanningHandler) ExportCSV(c *gin.Context) {
	s, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportName(s, "csv")))
	c.Status(http.StatusOK)
	if err := export.WriteCSV(c.Writer, s); err != nil {
		log.Error().Err(err).Msg("failed to write csv export")
	}
}

// ExportSnapshot streams the bundle with current series and overrides.
func (h *PlanningHandler) ExportSnapshot(c *gin.Context) {
	s, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportName(s, "json")))
	c.Status(http.StatusOK)
	if err := export.WriteSnapshot(c.Writer, s); err != nil {
		log.Error().Err(err).Msg("failed to write snapshot export")
	}
}

// ExportXLSX streams the plan as a spreadsheet.
func (h *PlanningHandler) ExportXLSX(c *gin.Context) {
	s, ok := h.snapshot(c)
	if !ok {
		return
	}
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, exportName(s, "xlsx")))
	c.Status(http.StatusOK)
	if err := export.WriteXLSX(c.Writer, s); err != nil {
		log.Error().Err(err).Msg("failed to write xlsx export")
	}
}

// PublishSnapshot uploads the snapshot to object storage.
func (h *PlanningHandler) PublishSnapshot(c *gin.Context) {
	if h.storage == nil {
		respondError(c, errStorageDisabled, "snapshot publishing unavailable")
		return
	}
	s, ok := h.snapshot(c)
	if !ok {
		return
	}
	key, err := export.Publish(c.Request.Context(), h.storage, h.snapshotPrefix, s)
	if err != nil {
		respondError(c, err, "failed to publish snapshot")
		return
	}
	log.Info().Str("key", key).Uint64("edit_version", s.EditVersion).Msg("snapshot published")
	c.JSON(http.StatusCreated, gin.H{"key": key, "generated_at": s.GeneratedAt})
}
