package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/document-requests/internal/core/domain"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetIdentity(ctx context.Context, userID string) (domain.Identity, error) {
	var role string
	err := conn(ctx, r.db).QueryRowContext(ctx, `SELECT role FROM users WHERE id = $1`, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Identity{}, domain.WrapError(domain.ErrNotFound, "get identity", fmt.Errorf("user %s", userID))
		}
		return domain.Identity{}, fmt.Errorf("get identity: %w", err)
	}
	return domain.Identity{ID: userID, Role: domain.Role(role)}, nil
}

func (r *UserRepository) Upsert(ctx context.Context, identity domain.Identity) error {
	if !identity.Valid() {
		return domain.NewError(domain.ErrValidation, "upsert user", "user id and a known role are required")
	}
	now := time.Now().UTC()
	_, err := conn(ctx, r.db).ExecContext(ctx, `
INSERT INTO users (id, role, created_at, updated_at)
VALUES ($1, $2, $3, $3)
ON CONFLICT (id) DO UPDATE SET
	role = EXCLUDED.role,
	updated_at = EXCLUDED.updated_at
`, identity.ID, string(identity.Role), now)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// NotificationRepository is the worker's notification inbox.
type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Save(ctx context.Context, n domain.Notification) error {
	fields := n.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("marshal notification fields: %w", err)
	}
	_, err = conn(ctx, r.db).ExecContext(ctx, `
INSERT INTO notifications (id, user_id, kind, request_id, document_type, fields, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO NOTHING
`, n.ID, n.UserID, string(n.Kind), n.RequestID, n.DocumentType, fieldsJSON, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}
