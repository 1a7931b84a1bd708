package repository

import (
	"context"
	"time"

	"github.com/nandorodriques37/planejamento-compras-app/internal/domain"
)

// ApprovalFilter narrows ListApprovals. Zero values mean no filter.
type ApprovalFilter struct {
	Status domain.ApprovalStatus
	Limit  int
	Offset int
}

type ApprovalRepository interface {
	CreateApproval(ctx context.Context, req *domain.ApprovalRequest) error
	GetApproval(ctx context.Context, id string) (*domain.ApprovalRequest, error)
	// ListApprovals returns requests newest first.
	ListApprovals(ctx context.Context, filter ApprovalFilter) ([]*domain.ApprovalRequest, error)
	// UpdateApprovalStatus moves a request from one status to another and
	// fails with domain.ErrInvalidTransition when it is no longer in from.
	UpdateApprovalStatus(ctx context.Context, id string, from, to domain.ApprovalStatus, at time.Time) error
}
