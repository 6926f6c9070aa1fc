package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/kirillkom/document-requests/internal/core/domain"
)

type CatalogRepository struct {
	s *Store
}

func (r *CatalogRepository) Create(ctx context.Context, entry *domain.DocumentType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.types[entry.ID]; exists {
		return domain.WrapError(domain.ErrConflict, "create document type", fmt.Errorf("id %s already exists", entry.ID))
	}
	if err := r.checkActiveName(entry); err != nil {
		return err
	}
	putWithUndo(ctx, r.s, r.s.types, entry.ID, *entry)
	return nil
}

func (r *CatalogRepository) GetByID(_ context.Context, id string) (*domain.DocumentType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	entry, ok := r.s.types[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get document type", fmt.Errorf("id %s", id))
	}
	return &entry, nil
}

func (r *CatalogRepository) FindActiveByName(_ context.Context, name string) (*domain.DocumentType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, entry := range r.s.types {
		if entry.Active && entry.Name == name {
			found := entry
			return &found, nil
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "find document type", fmt.Errorf("no active document type named %q", name))
}

func (r *CatalogRepository) ListActive(_ context.Context) ([]domain.DocumentType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.DocumentType, 0, len(r.s.types))
	for _, entry := range r.s.types {
		if entry.Active {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *CatalogRepository) Update(ctx context.Context, entry *domain.DocumentType) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.types[entry.ID]; !ok {
		return domain.WrapError(domain.ErrNotFound, "update document type", fmt.Errorf("id %s", entry.ID))
	}
	if err := r.checkActiveName(entry); err != nil {
		return err
	}
	putWithUndo(ctx, r.s, r.s.types, entry.ID, *entry)
	return nil
}

// checkActiveName mirrors the partial unique index on active names.
func (r *CatalogRepository) checkActiveName(entry *domain.DocumentType) error {
	if !entry.Active {
		return nil
	}
	for id, other := range r.s.types {
		if id != entry.ID && other.Active && other.Name == entry.Name {
			return domain.WrapError(domain.ErrValidation, "store document type", fmt.Errorf("an active document type named %q already exists", entry.Name))
		}
	}
	return nil
}
