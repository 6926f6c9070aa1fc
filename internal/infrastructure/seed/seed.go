// Package seed loads the bootstrap catalog and user directory from YAML.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kirillkom/document-requests/internal/core/domain"
	"github.com/kirillkom/document-requests/internal/core/ports"
)

type User struct {
	ID   string `yaml:"id"`
	Role string `yaml:"role"`
}

type File struct {
	Users         []User                     `yaml:"users"`
	DocumentTypes []domain.DocumentTypeInput `yaml:"document_types"`
}

type UserWriter interface {
	Upsert(ctx context.Context, identity domain.Identity) error
}

func Load(path string) (File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read seed file: %w", err)
	}
	return Decode(bytes.NewReader(raw))
}

// Decode rejects unknown keys so typos in the seed file fail startup.
func Decode(r io.Reader) (File, error) {
	var out File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, nil
		}
		return File{}, domain.WrapError(domain.ErrValidation, "decode seed", err)
	}
	return out, nil
}

// Apply upserts users before catalog entries, since clearance entries are
// validated against the directory.
func Apply(ctx context.Context, file File, users UserWriter, catalog ports.DocumentCatalog) error {
	for i, u := range file.Users {
		role, err := domain.ParseRole(u.Role)
		if err != nil {
			return fmt.Errorf("seed user %d (%s): %w", i, u.ID, err)
		}
		if err := users.Upsert(ctx, domain.Identity{ID: u.ID, Role: role}); err != nil {
			return fmt.Errorf("seed user %d (%s): %w", i, u.ID, err)
		}
	}

	created, err := catalog.EnsureDocumentTypes(ctx, file.DocumentTypes)
	if err != nil {
		return fmt.Errorf("seed document types: %w", err)
	}
	slog.InfoContext(ctx, "seed_applied",
		"users", len(file.Users),
		"document_types", len(file.DocumentTypes),
		"document_types_created", created,
	)
	return nil
}
