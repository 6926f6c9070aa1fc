package ports

import (
	"context"

	"github.com/kirillkom/document-requests/internal/core/domain"
)

// TxRunner runs fn in a transaction carried by the returned context. Stores
// called with that context join the transaction. A nested call joins the
// outer transaction.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CatalogStore persists document types. Create fails with ErrValidation when
// an active entry with the same name exists.
type CatalogStore interface {
	Create(ctx context.Context, entry *domain.DocumentType) error
	GetByID(ctx context.Context, id string) (*domain.DocumentType, error)
	FindActiveByName(ctx context.Context, name string) (*domain.DocumentType, error)
	ListActive(ctx context.Context) ([]domain.DocumentType, error)
	Update(ctx context.Context, entry *domain.DocumentType) error
}

// RequestStore persists document requests.
//
// Update and Delete are optimistic: they succeed only when the stored version
// equals the one supplied and fail with ErrConflict otherwise. A successful
// Update bumps req.Version. Deleting a request also removes its meeting.
type RequestStore interface {
	Create(ctx context.Context, req *domain.DocumentRequest) error
	GetByID(ctx context.Context, id string) (*domain.DocumentRequest, error)
	GetForUpdate(ctx context.Context, id string) (*domain.DocumentRequest, error)
	Update(ctx context.Context, req *domain.DocumentRequest) error
	Delete(ctx context.Context, id string, version int64) error
	List(ctx context.Context, filter domain.RequestFilter) ([]domain.DocumentRequest, error)
	ListAwaitingWithMeeting(ctx context.Context, limit int) ([]domain.DocumentRequest, error)
}

// MeetingStore persists clearance meetings. Create fails with ErrInvalidState
// when the request already owns a meeting.
type MeetingStore interface {
	Create(ctx context.Context, meeting *domain.ClearanceMeeting) error
	GetByRequestID(ctx context.Context, requestID string) (*domain.ClearanceMeeting, error)
	Update(ctx context.Context, meeting *domain.ClearanceMeeting) error
	ListByParticipant(ctx context.Context, userID string) ([]domain.ClearanceMeeting, error)
}

// UserDirectory resolves user ids to identities.
type UserDirectory interface {
	GetIdentity(ctx context.Context, userID string) (domain.Identity, error)
}

// IdentityProvider turns a bearer credential into the caller identity.
type IdentityProvider interface {
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
}

// NotificationEmitter delivers notifications. Callers treat failures as
// non-fatal.
type NotificationEmitter interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// NotificationSource consumes emitted notifications until ctx is done.
type NotificationSource interface {
	SubscribeNotifications(ctx context.Context, handler func(context.Context, domain.Notification) error) error
}

// NotificationInbox stores delivered notifications. Save is idempotent on the
// notification id.
type NotificationInbox interface {
	Save(ctx context.Context, n domain.Notification) error
}

// WorkflowObserver receives workflow events for metrics.
type WorkflowObserver interface {
	ObserveTransition(to domain.DocumentStatus)
	ObserveClearanceAction(action string)
}
