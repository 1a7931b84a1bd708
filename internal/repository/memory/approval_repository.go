package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nandorodriques37/planejamento-compras-app/internal/domain"
	"github.com/nandorodriques37/planejamento-compras-app/internal/repository"
)

type approvalRepository struct {
	mu       sync.RWMutex
	requests map[string]*domain.ApprovalRequest
}

func NewApprovalRepository() repository.ApprovalRepository {
	return &approvalRepository{requests: make(map[string]*domain.ApprovalRequest)}
}

// clone copies the mutable parts so callers never share state with the store.
func clone(req *domain.ApprovalRequest) *domain.ApprovalRequest {
	c := *req
	c.Items = append([]domain.ApprovalItem(nil), req.Items...)
	if req.DecidedAt != nil {
		at := *req.DecidedAt
		c.DecidedAt = &at
	}
	return &c
}

func (r *approvalRepository) CreateApproval(_ context.Context, req *domain.ApprovalRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[req.ID]; ok {
		return fmt.Errorf("approval %s already exists", req.ID)
	}
	r.requests[req.ID] = clone(req)
	return nil
}

func (r *approvalRepository) GetApproval(_ context.Context, id string) (*domain.ApprovalRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrApprovalNotFound, id)
	}
	return clone(req), nil
}

func (r *approvalRepository) ListApprovals(_ context.Context, filter repository.ApprovalFilter) ([]*domain.ApprovalRequest, error) {
	r.mu.RLock()
	out := make([]*domain.ApprovalRequest, 0, len(r.requests))
	for _, req := range r.requests {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		out = append(out, clone(req))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*domain.ApprovalRequest{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *approvalRepository) UpdateApprovalStatus(_ context.Context, id string, from, to domain.ApprovalStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.requests[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrApprovalNotFound, id)
	}
	if req.Status != from {
		return fmt.Errorf("%w: %s is %s", domain.ErrInvalidTransition, id, req.Status)
	}
	next := clone(req)
	next.Status = to
	next.DecidedAt = &at
	r.requests[id] = next
	return nil
}
