package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/document-requests/internal/core/domain"
)

const documentTypeColumns = `id, name, requires_clearance, assigned_approver, active, created_at, updated_at`

type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) Create(ctx context.Context, entry *domain.DocumentType) error {
	_, err := conn(ctx, r.db).ExecContext(ctx, `
INSERT INTO document_types (`+documentTypeColumns+`)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`, entry.ID, entry.Name, entry.RequiresClearance, nullString(entry.AssignedApprover), entry.Active, entry.CreatedAt, entry.UpdatedAt)
	if err != nil {
		if isViolation(err, pgUniqueViolation, constraintActiveTypeName) {
			return domain.WrapError(domain.ErrValidation, "create document type", fmt.Errorf("an active document type named %q already exists", entry.Name))
		}
		return fmt.Errorf("insert document type: %w", err)
	}
	return nil
}

func (r *CatalogRepository) GetByID(ctx context.Context, id string) (*domain.DocumentType, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `
SELECT `+documentTypeColumns+`
FROM document_types
WHERE id = $1
`, id)
	entry, err := scanDocumentType(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get document type", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("get document type: %w", err)
	}
	return &entry, nil
}

func (r *CatalogRepository) FindActiveByName(ctx context.Context, name string) (*domain.DocumentType, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `
SELECT `+documentTypeColumns+`
FROM document_types
WHERE name = $1 AND active
`, name)
	entry, err := scanDocumentType(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "find document type", fmt.Errorf("no active document type named %q", name))
		}
		return nil, fmt.Errorf("find document type: %w", err)
	}
	return &entry, nil
}

func (r *CatalogRepository) ListActive(ctx context.Context) ([]domain.DocumentType, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `
SELECT `+documentTypeColumns+`
FROM document_types
WHERE active
ORDER BY name
`)
	if err != nil {
		return nil, fmt.Errorf("list document types: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DocumentType, 0)
	for rows.Next() {
		entry, err := scanDocumentType(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document type: %w", err)
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document types: %w", err)
	}
	return out, nil
}

func (r *CatalogRepository) Update(ctx context.Context, entry *domain.DocumentType) error {
	result, err := conn(ctx, r.db).ExecContext(ctx, `
UPDATE document_types
SET name = $2, requires_clearance = $3, assigned_approver = $4, active = $5, updated_at = $6
WHERE id = $1
`, entry.ID, entry.Name, entry.RequiresClearance, nullString(entry.AssignedApprover), entry.Active, entry.UpdatedAt)
	if err != nil {
		if isViolation(err, pgUniqueViolation, constraintActiveTypeName) {
			return domain.WrapError(domain.ErrValidation, "update document type", fmt.Errorf("an active document type named %q already exists", entry.Name))
		}
		return fmt.Errorf("update document type: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update document type rows affected: %w", err)
	}
	if rows == 0 {
		return domain.WrapError(domain.ErrNotFound, "update document type", fmt.Errorf("id %s", entry.ID))
	}
	return nil
}

func scanDocumentType(row rowScanner) (domain.DocumentType, error) {
	var entry domain.DocumentType
	var approver sql.NullString
	err := row.Scan(
		&entry.ID,
		&entry.Name,
		&entry.RequiresClearance,
		&approver,
		&entry.Active,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return domain.DocumentType{}, err
	}
	entry.AssignedApprover = approver.String
	return entry, nil
}
