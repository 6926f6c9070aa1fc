package ports

import (
	"context"
	"time"

	"github.com/kirillkom/document-requests/internal/core/domain"
)

// DocumentCatalog is the inbound contract for catalog administration and lookup.
type DocumentCatalog interface {
	LookupActive(ctx context.Context, name string) (*domain.DocumentType, error)
	ListActive(ctx context.Context) ([]domain.DocumentType, error)
	Create(ctx context.Context, caller domain.Identity, input domain.DocumentTypeInput) (*domain.DocumentType, error)
	Deactivate(ctx context.Context, caller domain.Identity, typeID string) (*domain.DocumentType, error)
	EnsureDocumentTypes(ctx context.Context, inputs []domain.DocumentTypeInput) (int, error)
}

// RequestLifecycle is the inbound contract for the request state machine.
type RequestLifecycle interface {
	CreateRequest(ctx context.Context, caller domain.Identity, documentType string) (*domain.DocumentRequest, error)
	AdvanceStatus(ctx context.Context, caller domain.Identity, requestID string, target domain.DocumentStatus, cancelReason string) (*domain.DocumentRequest, error)
	Withdraw(ctx context.Context, caller domain.Identity, requestID string) error
	GetRequest(ctx context.Context, caller domain.Identity, requestID string) (*domain.DocumentRequest, error)
	GetRequestsFor(ctx context.Context, caller domain.Identity, filter domain.RequestFilter) ([]domain.DocumentRequest, error)
}

// ClearanceWorkflow is the inbound contract for clearance meetings.
type ClearanceWorkflow interface {
	ScheduleClearance(ctx context.Context, caller domain.Identity, requestID, room string, scheduledAt time.Time, description string) (*domain.ClearanceMeeting, error)
	RescheduleClearance(ctx context.Context, caller domain.Identity, requestID string, patch domain.MeetingPatch) (*domain.ClearanceMeeting, error)
	CompleteClearance(ctx context.Context, caller domain.Identity, requestID string) (*domain.DocumentRequest, error)
	GetMeeting(ctx context.Context, caller domain.Identity, requestID string) (*domain.ClearanceMeeting, error)
	ListMyMeetings(ctx context.Context, caller domain.Identity) ([]domain.ClearanceMeeting, error)
	ReconcileClearance(ctx context.Context) (int, error)
}

// NotificationRecorder is the inbound contract used by the worker to store
// consumed notifications.
type NotificationRecorder interface {
	Record(ctx context.Context, n domain.Notification) error
}
