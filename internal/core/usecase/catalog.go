package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kirillkom/document-requests/internal/core/domain"
	"github.com/kirillkom/document-requests/internal/core/ports"
)

type CatalogUseCase struct {
	store ports.CatalogStore
	users ports.UserDirectory
	now   func() time.Time
}

func NewCatalogUseCase(store ports.CatalogStore, users ports.UserDirectory) *CatalogUseCase {
	return &CatalogUseCase{
		store: store,
		users: users,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (uc *CatalogUseCase) LookupActive(ctx context.Context, name string) (*domain.DocumentType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewError(domain.ErrValidation, "lookup document type", "name is required")
	}
	return uc.store.FindActiveByName(ctx, name)
}

func (uc *CatalogUseCase) ListActive(ctx context.Context) ([]domain.DocumentType, error) {
	entries, err := uc.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list document types: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (uc *CatalogUseCase) Create(ctx context.Context, caller domain.Identity, input domain.DocumentTypeInput) (entry *domain.DocumentType, err error) {
	ctx, span := startSpan(ctx, "catalog.create", caller, attribute.String("document_type", input.Name))
	defer func() { endSpan(span, err) }()

	if err := authorize(caller, capManageCatalog); err != nil {
		return nil, err
	}
	return uc.create(ctx, input)
}

func (uc *CatalogUseCase) create(ctx context.Context, input domain.DocumentTypeInput) (*domain.DocumentType, error) {
	entry, err := domain.NewDocumentType(uuid.NewString(), input.Name, input.RequiresClearance, input.AssignedApprover, uc.now())
	if err != nil {
		return nil, err
	}
	if entry.RequiresClearance {
		approver, err := uc.users.GetIdentity(ctx, entry.AssignedApprover)
		if err != nil {
			if domain.IsKind(err, domain.ErrNotFound) {
				return nil, domain.NewError(domain.ErrValidation, "create document type", fmt.Sprintf("assigned approver %q does not exist", entry.AssignedApprover))
			}
			return nil, fmt.Errorf("resolve assigned approver: %w", err)
		}
		if err := entry.ValidateApprover(approver); err != nil {
			return nil, err
		}
	}
	if err := uc.store.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Deactivate soft-deletes a catalog entry. Existing requests keep their
// snapshot and are unaffected.
func (uc *CatalogUseCase) Deactivate(ctx context.Context, caller domain.Identity, typeID string) (entry *domain.DocumentType, err error) {
	ctx, span := startSpan(ctx, "catalog.deactivate", caller, attribute.String("document_type.id", typeID))
	defer func() { endSpan(span, err) }()

	if err := authorize(caller, capManageCatalog); err != nil {
		return nil, err
	}
	entry, err = uc.store.GetByID(ctx, typeID)
	if err != nil {
		return nil, err
	}
	if !entry.Deactivate(uc.now()) {
		return entry, nil
	}
	if err := uc.store.Update(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// seededConcurrently reports whether a failed create lost a race against
// another seeder that stored the same active name.
func (uc *CatalogUseCase) seededConcurrently(ctx context.Context, name string, err error) bool {
	if !domain.IsKind(err, domain.ErrValidation) {
		return false
	}
	_, lookupErr := uc.store.FindActiveByName(ctx, strings.TrimSpace(name))
	return lookupErr == nil
}

// EnsureDocumentTypes creates the given entries unless an active entry with
// the same name already exists. It returns the number of entries created.
func (uc *CatalogUseCase) EnsureDocumentTypes(ctx context.Context, inputs []domain.DocumentTypeInput) (int, error) {
	created := 0
	for _, input := range inputs {
		_, err := uc.store.FindActiveByName(ctx, strings.TrimSpace(input.Name))
		if err == nil {
			continue
		}
		if !domain.IsKind(err, domain.ErrNotFound) {
			return created, fmt.Errorf("lookup seed document type %q: %w", input.Name, err)
		}
		if _, err := uc.create(ctx, input); err != nil {
			if uc.seededConcurrently(ctx, input.Name, err) {
				continue
			}
			return created, fmt.Errorf("seed document type %q: %w", input.Name, err)
		}
		created++
	}
	return created, nil
}
