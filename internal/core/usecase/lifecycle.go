package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kirillkom/document-requests/internal/core/domain"
	"github.com/kirillkom/document-requests/internal/core/ports"
)

// LifecycleUseCase drives a document request through its status graph. Role
// checks happen here; transition rules live on domain.DocumentRequest.
type LifecycleUseCase struct {
	catalog  ports.CatalogStore
	requests ports.RequestStore
	tx       ports.TxRunner
	notifier notifier
	observer ports.WorkflowObserver
	now      func() time.Time
}

func NewLifecycleUseCase(
	catalog ports.CatalogStore,
	requests ports.RequestStore,
	tx ports.TxRunner,
	emitter ports.NotificationEmitter,
	observer ports.WorkflowObserver,
) *LifecycleUseCase {
	return &LifecycleUseCase{
		catalog:  catalog,
		requests: requests,
		tx:       tx,
		notifier: notifier{emitter: emitter},
		observer: observerOrNoop(observer),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (uc *LifecycleUseCase) CreateRequest(ctx context.Context, caller domain.Identity, documentType string) (req *domain.DocumentRequest, err error) {
	ctx, span := startSpan(ctx, "lifecycle.create_request", caller, attribute.String("document_type", documentType))
	defer func() { endSpan(span, err) }()

	if err := authorize(caller, capRequestDocument); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(documentType)
	if name == "" {
		return nil, domain.NewError(domain.ErrValidation, "create request", "document type is required")
	}

	entry, err := uc.catalog.FindActiveByName(ctx, name)
	if err != nil {
		return nil, err
	}
	req, err = domain.NewDocumentRequest(uuid.NewString(), *entry, caller.ID, uc.now())
	if err != nil {
		return nil, err
	}
	if err := uc.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	uc.observer.ObserveTransition(req.DocumentStatus)
	return req, nil
}

func (uc *LifecycleUseCase) AdvanceStatus(
	ctx context.Context,
	caller domain.Identity,
	requestID string,
	target domain.DocumentStatus,
	cancelReason string,
) (req *domain.DocumentRequest, err error) {
	ctx, span := startSpan(ctx, "lifecycle.advance_status", caller,
		attribute.String("request.id", requestID),
		attribute.String("request.target_status", string(target)),
	)
	defer func() { endSpan(span, err) }()

	if err := authorize(caller, capAdvanceStatus); err != nil {
		return nil, err
	}

	err = inTxWithRetry(ctx, uc.tx, "advance status", func(ctx context.Context) error {
		current, err := uc.requests.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if err := current.Advance(target, cancelReason, uc.now()); err != nil {
			return err
		}
		if err := uc.requests.Update(ctx, current); err != nil {
			return err
		}
		req = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.observer.ObserveTransition(req.DocumentStatus)
	if note, ok := domain.StatusNotification(uuid.NewString(), req, uc.now()); ok {
		uc.notifier.send(ctx, note)
	}
	return req, nil
}

// Withdraw deletes a pending request on behalf of its requester, together
// with any clearance meeting already scheduled for it.
func (uc *LifecycleUseCase) Withdraw(ctx context.Context, caller domain.Identity, requestID string) (err error) {
	ctx, span := startSpan(ctx, "lifecycle.withdraw", caller, attribute.String("request.id", requestID))
	defer func() { endSpan(span, err) }()

	if err := authorize(caller, capWithdrawRequest); err != nil {
		return err
	}
	return inTxWithRetry(ctx, uc.tx, "withdraw request", func(ctx context.Context) error {
		req, err := uc.requests.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if err := req.CanWithdraw(caller.ID); err != nil {
			return err
		}
		return uc.requests.Delete(ctx, req.ID, req.Version)
	})
}

func (uc *LifecycleUseCase) GetRequest(ctx context.Context, caller domain.Identity, requestID string) (*domain.DocumentRequest, error) {
	if err := authenticated(caller); err != nil {
		return nil, err
	}
	req, err := uc.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.VisibleTo(caller) {
		return nil, domain.NewError(domain.ErrPermission, "get request", "request is not visible to the caller")
	}
	return req, nil
}

// GetRequestsFor lists requests scoped to what the caller may see:
// requesters get their own, approvers those assigned to them, and the
// view-all roles everything. Results are newest first.
func (uc *LifecycleUseCase) GetRequestsFor(ctx context.Context, caller domain.Identity, filter domain.RequestFilter) ([]domain.DocumentRequest, error) {
	if err := authenticated(caller); err != nil {
		return nil, err
	}
	filter, err := filter.Normalize()
	if err != nil {
		return nil, err
	}

	switch {
	case hasCapability(caller.Role, capViewAllRequests):
	case caller.Role == domain.RoleApprover:
		filter.AssignedApprover = caller.ID
	default:
		filter.RequestedBy = caller.ID
	}

	requests, err := uc.requests.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}
