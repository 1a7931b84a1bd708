package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nandorodriques37/planejamento-compras-app/internal/domain"
	"github.com/nandorodriques37/planejamento-compras-app/internal/repository"
)

type approvalRepository struct {
	db *DB
}

func NewApprovalRepository(db *DB) repository.ApprovalRepository {
	return &approvalRepository{db: db}
}

type approvalRow struct {
	ID            string       `db:"id"`
	CreatedAt     time.Time    `db:"created_at"`
	ReferenceDate string       `db:"reference_date"`
	Requester     string       `db:"requester"`
	Note          string       `db:"note"`
	Status        string       `db:"status"`
	DecidedAt     sql.NullTime `db:"decided_at"`
	KPIs          []byte       `db:"kpis"`
}

type approvalItemRow struct {
	RequestID string `db:"request_id"`
	Position  int    `db:"position"`
	domain.ApprovalItem
}

func (row approvalRow) toDomain(items []domain.ApprovalItem) (*domain.ApprovalRequest, error) {
	status, ok := domain.ParseApprovalStatus(row.Status)
	if !ok {
		return nil, fmt.Errorf("approval %s: unknown status %q", row.ID, row.Status)
	}

	req := &domain.ApprovalRequest{
		ID:            row.ID,
		CreatedAt:     row.CreatedAt.UTC(),
		ReferenceDate: row.ReferenceDate,
		Requester:     row.Requester,
		Note:          row.Note,
		Status:        status,
		Items:         items,
	}
	if row.DecidedAt.Valid {
		at := row.DecidedAt.Time.UTC()
		req.DecidedAt = &at
	}
	if len(row.KPIs) > 0 {
		if err := json.Unmarshal(row.KPIs, &req.KPIs); err != nil {
			return nil, fmt.Errorf("decode approval kpis: %w", err)
		}
	}
	if req.Items == nil {
		req.Items = []domain.ApprovalItem{}
	}
	return req, nil
}

func (r *approvalRepository) CreateApproval(ctx context.Context, req *domain.ApprovalRequest) error {
	kpis, err := json.Marshal(req.KPIs)
	if err != nil {
		return fmt.Errorf("encode approval kpis: %w", err)
	}

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO approval_requests (
				id, created_at, reference_date, requester, note, status, decided_at, kpis
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, req.ID, req.CreatedAt, req.ReferenceDate, req.Requester, req.Note, string(req.Status), req.DecidedAt, kpis)
		if err != nil {
			return fmt.Errorf("failed to insert approval request: %w", err)
		}

		stmt, err := tx.PreparexContext(ctx, `
			INSERT INTO approval_items (
				request_id, position, sku_key, product_name, supplier, month, block,
				order_date, target_month, quantity, unit_cost, value
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for i, item := range req.Items {
			_, err := stmt.ExecContext(ctx,
				req.ID,
				i,
				string(item.SKUKey),
				item.ProductName,
				item.Supplier,
				string(item.Month),
				item.Block,
				item.OrderDate,
				string(item.TargetMonth),
				item.Quantity,
				item.UnitCost,
				item.Value,
			)
			if err != nil {
				return fmt.Errorf("failed to insert approval item: %w", err)
			}
		}
		return nil
	})
}

const approvalColumns = `id, created_at, reference_date, requester, note, status, decided_at, kpis`

func (r *approvalRepository) GetApproval(ctx context.Context, id string) (*domain.ApprovalRequest, error) {
	var row approvalRow
	err := r.db.GetContext(ctx, &row, `SELECT `+approvalColumns+` FROM approval_requests WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrApprovalNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get approval request: %w", err)
	}

	items, err := r.loadItems(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	return row.toDomain(items[id])
}

func (r *approvalRepository) ListApprovals(ctx context.Context, filter repository.ApprovalFilter) ([]*domain.ApprovalRequest, error) {
	query, args := buildListQuery(filter)

	var rows []approvalRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list approval requests: %w", err)
	}
	if len(rows) == 0 {
		return []*domain.ApprovalRequest{}, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.ApprovalRequest, 0, len(rows))
	for _, row := range rows {
		req, err := row.toDomain(items[row.ID])
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, nil
}

func buildListQuery(filter repository.ApprovalFilter) (string, []any) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT ` + approvalColumns + ` FROM approval_requests`)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		fmt.Fprintf(&sb, " WHERE status = $%d", len(args))
	}
	sb.WriteString(" ORDER BY created_at DESC, id ASC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}
	return sb.String(), args
}

func (r *approvalRepository) loadItems(ctx context.Context, ids []string) (map[string][]domain.ApprovalItem, error) {
	query, args, err := sqlx.In(`
		SELECT request_id, position, sku_key, product_name, supplier, month, block,
			order_date, target_month, quantity, unit_cost, value
		FROM approval_items
		WHERE request_id IN (?)
		ORDER BY request_id, position
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build item query: %w", err)
	}

	var rows []approvalItemRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to load approval items: %w", err)
	}

	out := make(map[string][]domain.ApprovalItem, len(ids))
	for _, row := range rows {
		out[row.RequestID] = append(out[row.RequestID], row.ApprovalItem)
	}
	return out, nil
}

func (r *approvalRepository) UpdateApprovalStatus(ctx context.Context, id string, from, to domain.ApprovalStatus, at time.Time) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE approval_requests
			SET status = $1, decided_at = $2
			WHERE id = $3 AND status = $4
		`, string(to), at, id, string(from))
		if err != nil {
			return fmt.Errorf("failed to update approval status: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to update approval status: %w", err)
		}
		if n == 1 {
			return nil
		}

		var current string
		err = tx.GetContext(ctx, &current, `SELECT status FROM approval_requests WHERE id = $1`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", domain.ErrApprovalNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("failed to read approval status: %w", err)
		}
		return fmt.Errorf("%w: %s is %s", domain.ErrInvalidTransition, id, current)
	})
}
