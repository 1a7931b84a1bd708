// Package approval turns selected weekly order blocks into approval
// requests and tracks their decisions.
package approval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/nandorodriques37/planejamento-compras-app/internal/domain"
	"github.com/nandorodriques37/planejamento-compras-app/internal/planning"
	"github.com/nandorodriques37/planejamento-compras-app/internal/projection"
	"github.com/nandorodriques37/planejamento-compras-app/internal/repository"
)

// Selection picks week blocks of one SKU's weekly plan. No labels selects
// every block with a positive quantity.
type Selection struct {
	SKU    domain.SKUKey `json:"sku_key"`
	Blocks []string      `json:"blocks"`
}

type CreateInput struct {
	Requester  string      `json:"requester"`
	Note       string      `json:"note"`
	Selections []Selection `json:"selections"`
}

type Service struct {
	repo    repository.ApprovalRepository
	planner *planning.Planner
	now     func() time.Time
	newID   func() string
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDs replaces the uuid generator.
func WithIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

func NewService(repo repository.ApprovalRepository, planner *planning.Planner, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		planner: planner,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create snapshots the selected blocks and the projection KPIs of their SKUs
// into a pending request.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.ApprovalRequest, error) {
	ix, err := s.planner.Index()
	if err != nil {
		return nil, err
	}

	var items []domain.ApprovalItem
	kpis := domain.ApprovalKPIs{TotalValue: decimal.Zero}
	seen := make(map[domain.SKUKey]bool)
	for _, sel := range in.Selections {
		if seen[sel.SKU] {
			return nil, domain.ValidationErrors{{Field: "selections", Message: fmt.Sprintf("sku %s selected twice", sel.SKU)}}
		}
		seen[sel.SKU] = true

		entry, ok := ix.Entry(sel.SKU)
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrSKUNotFound, sel.SKU)
		}
		plan, err := s.planner.WeeklyPlan(ctx, sel.SKU)
		if err != nil {
			return nil, err
		}
		picked, err := pickBlocks(plan, sel.Blocks)
		if err != nil {
			return nil, err
		}
		if len(picked) == 0 {
			continue
		}

		unitCost := decimal.NewFromFloat(entry.UnitCost.Float())
		for _, b := range picked {
			value := unitCost.Mul(decimal.NewFromInt(int64(b.Quantity)))
			items = append(items, domain.ApprovalItem{
				SKUKey:      sel.SKU,
				ProductName: entry.ProductName,
				Supplier:    entry.Supplier,
				Month:       plan.Month,
				Block:       b.Block.Label,
				OrderDate:   b.Block.OrderDate,
				TargetMonth: b.TargetMonth,
				Quantity:    b.Quantity,
				UnitCost:    unitCost,
				Value:       value,
			})
			kpis.TotalQuantity += b.Quantity
			kpis.TotalValue = kpis.TotalValue.Add(value)
		}

		series, err := s.planner.Series(ctx, sel.SKU)
		if err != nil {
			return nil, err
		}
		kpis.SKUCount++
		switch projection.ClassifyStatus(series, ix.Keys) {
		case domain.StatusCritical:
			kpis.CriticalSKUs++
		case domain.StatusWarning:
			kpis.WarningSKUs++
		}
		kpis.EndingStock += series[ix.Keys[len(ix.Keys)-1]].Projected
	}
	if len(items) == 0 {
		return nil, domain.ErrEmptyApproval
	}

	req := &domain.ApprovalRequest{
		ID:            s.newID(),
		CreatedAt:     s.now().UTC(),
		ReferenceDate: ix.Reference.Format("2006-01-02"),
		Requester:     strings.TrimSpace(in.Requester),
		Note:          strings.TrimSpace(in.Note),
		Status:        domain.ApprovalPending,
		Items:         items,
		KPIs:          kpis,
	}
	if err := s.repo.CreateApproval(ctx, req); err != nil {
		return nil, err
	}

	log.Info().
		Str("approval_id", req.ID).
		Int("items", len(items)).
		Int("quantity", kpis.TotalQuantity).
		Str("value", kpis.TotalValue.StringFixed(2)).
		Msg("approval request created")
	return req, nil
}

func pickBlocks(plan planning.WeeklyPlan, labels []string) ([]planning.WeeklyBlock, error) {
	if len(labels) == 0 {
		var out []planning.WeeklyBlock
		for _, b := range plan.Blocks {
			if b.Quantity > 0 {
				out = append(out, b)
			}
		}
		return out, nil
	}

	byLabel := make(map[string]planning.WeeklyBlock, len(plan.Blocks))
	for _, b := range plan.Blocks {
		byLabel[b.Block.Label] = b
	}
	out := make([]planning.WeeklyBlock, 0, len(labels))
	var errs domain.ValidationErrors
	for _, l := range labels {
		b, ok := byLabel[l]
		if !ok {
			errs = append(errs, domain.ValidationError{Field: "blocks", Message: fmt.Sprintf("sku %s has no block %s in %s", plan.SKU, l, plan.Month)})
			continue
		}
		out = append(out, b)
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.ApprovalRequest, error) {
	return s.repo.GetApproval(ctx, id)
}

func (s *Service) List(ctx context.Context, filter repository.ApprovalFilter) ([]*domain.ApprovalRequest, error) {
	return s.repo.ListApprovals(ctx, filter)
}

// Decide moves a pending request to approved or rejected.
func (s *Service) Decide(ctx context.Context, id string, next domain.ApprovalStatus) (*domain.ApprovalRequest, error) {
	req, err := s.repo.GetApproval(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.Status.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, req.Status, next)
	}
	if err := s.repo.UpdateApprovalStatus(ctx, id, req.Status, next, s.now().UTC()); err != nil {
		return nil, err
	}
	return s.repo.GetApproval(ctx, id)
}
