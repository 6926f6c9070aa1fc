package usecase

import (
	"context"
	"strings"

	"github.com/kirillkom/document-requests/internal/core/domain"
	"github.com/kirillkom/document-requests/internal/core/ports"
)

// InboxUseCase stores notifications consumed by the worker.
type InboxUseCase struct {
	inbox ports.NotificationInbox
}

func NewInboxUseCase(inbox ports.NotificationInbox) *InboxUseCase {
	return &InboxUseCase{inbox: inbox}
}

func (uc *InboxUseCase) Record(ctx context.Context, n domain.Notification) error {
	if strings.TrimSpace(n.ID) == "" || strings.TrimSpace(n.UserID) == "" {
		return domain.NewError(domain.ErrValidation, "record notification", "notification id and user id are required")
	}
	if n.Kind == "" {
		return domain.NewError(domain.ErrValidation, "record notification", "notification kind is required")
	}
	return uc.inbox.Save(ctx, n)
}
