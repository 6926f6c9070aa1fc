package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/document-requests/internal/core/domain"
)

const requestColumns = `id, document_type, requested_by, requires_clearance, clearance_status, assigned_approver, document_status, cancel_reason, version, created_at, updated_at`

type RequestRepository struct {
	db *sql.DB
}

func NewRequestRepository(db *sql.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) Create(ctx context.Context, req *domain.DocumentRequest) error {
	if req.Version == 0 {
		req.Version = 1
	}
	_, err := conn(ctx, r.db).ExecContext(ctx, `
INSERT INTO document_requests (`+requestColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		req.ID, req.DocumentType, req.RequestedBy, req.RequiresClearance, string(req.ClearanceStatus),
		nullString(req.AssignedApprover), string(req.DocumentStatus), nullString(req.CancelReason),
		req.Version, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document request: %w", err)
	}
	return nil
}

func (r *RequestRepository) GetByID(ctx context.Context, id string) (*domain.DocumentRequest, error) {
	return r.get(ctx, id, "")
}

// GetForUpdate locks the row until the surrounding transaction ends.
func (r *RequestRepository) GetForUpdate(ctx context.Context, id string) (*domain.DocumentRequest, error) {
	return r.get(ctx, id, "FOR UPDATE")
}

func (r *RequestRepository) get(ctx context.Context, id, lock string) (*domain.DocumentRequest, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `
SELECT `+requestColumns+`
FROM document_requests
WHERE id = $1
`+lock, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get request", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("get request: %w", err)
	}
	return &req, nil
}

func (r *RequestRepository) Update(ctx context.Context, req *domain.DocumentRequest) error {
	q := conn(ctx, r.db)
	result, err := q.ExecContext(ctx, `
UPDATE document_requests
SET clearance_status = $3, document_status = $4, cancel_reason = $5, updated_at = $6, version = version + 1
WHERE id = $1 AND version = $2
`, req.ID, req.Version, string(req.ClearanceStatus), string(req.DocumentStatus), nullString(req.CancelReason), req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update request rows affected: %w", err)
	}
	if rows == 0 {
		return r.missingOrStale(ctx, q, "update request", req.ID, req.Version)
	}
	req.Version++
	return nil
}

// Delete removes the request. The clearance meeting goes with it through
// the foreign key cascade.
func (r *RequestRepository) Delete(ctx context.Context, id string, version int64) error {
	q := conn(ctx, r.db)
	result, err := q.ExecContext(ctx, `DELETE FROM document_requests WHERE id = $1 AND version = $2`, id, version)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete request rows affected: %w", err)
	}
	if rows == 0 {
		return r.missingOrStale(ctx, q, "delete request", id, version)
	}
	return nil
}

func (r *RequestRepository) missingOrStale(ctx context.Context, q querier, op, id string, version int64) error {
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM document_requests WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("%s: check existence: %w", op, err)
	}
	if !exists {
		return domain.WrapError(domain.ErrNotFound, op, fmt.Errorf("id %s", id))
	}
	return domain.WrapError(domain.ErrConflict, op, fmt.Errorf("id %s: version %d is stale", id, version))
}

func (r *RequestRepository) List(ctx context.Context, filter domain.RequestFilter) ([]domain.DocumentRequest, error) {
	where := make([]string, 0, 7)
	args := make([]any, 0, 8)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}

	if filter.RequestedBy != "" {
		add("requested_by = $%d", filter.RequestedBy)
	}
	if filter.AssignedApprover != "" {
		add("assigned_approver = $%d", filter.AssignedApprover)
	}
	if filter.DocumentType != "" {
		add("document_type = $%d", filter.DocumentType)
	}
	if filter.DocumentStatus != "" {
		add("document_status = $%d", string(filter.DocumentStatus))
	}
	if filter.ClearanceStatus != "" {
		add("clearance_status = $%d", string(filter.ClearanceStatus))
	}
	if filter.CreatedFrom != nil {
		add("created_at >= $%d", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		add("created_at <= $%d", *filter.CreatedTo)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultListLimit
	}
	args = append(args, limit)

	var sb strings.Builder
	sb.WriteString("SELECT " + requestColumns + "\nFROM document_requests\n")
	if len(where) > 0 {
		sb.WriteString("WHERE " + strings.Join(where, " AND ") + "\n")
	}
	fmt.Fprintf(&sb, "ORDER BY created_at DESC, id DESC\nLIMIT $%d", len(args))

	rows, err := conn(ctx, r.db).QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return collectRequests(rows)
}

func (r *RequestRepository) ListAwaitingWithMeeting(ctx context.Context, limit int) ([]domain.DocumentRequest, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `
SELECT r.id, r.document_type, r.requested_by, r.requires_clearance, r.clearance_status, r.assigned_approver,
	r.document_status, r.cancel_reason, r.version, r.created_at, r.updated_at
FROM document_requests r
JOIN clearance_meetings m ON m.request_id = r.id
WHERE r.clearance_status = 'awaiting'
	AND r.document_status NOT IN ('completed', 'cancelled')
ORDER BY r.created_at
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list awaiting requests with meeting: %w", err)
	}
	return collectRequests(rows)
}

func collectRequests(rows *sql.Rows) ([]domain.DocumentRequest, error) {
	defer rows.Close()

	out := make([]domain.DocumentRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requests: %w", err)
	}
	return out, nil
}

func scanRequest(row rowScanner) (domain.DocumentRequest, error) {
	var req domain.DocumentRequest
	var clearance, status string
	var approver, cancelReason sql.NullString
	err := row.Scan(
		&req.ID,
		&req.DocumentType,
		&req.RequestedBy,
		&req.RequiresClearance,
		&clearance,
		&approver,
		&status,
		&cancelReason,
		&req.Version,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return domain.DocumentRequest{}, err
	}
	req.ClearanceStatus = domain.ClearanceStatus(clearance)
	req.DocumentStatus = domain.DocumentStatus(status)
	req.AssignedApprover = approver.String
	req.CancelReason = cancelReason.String
	return req, nil
}
