package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kirillkom/document-requests/internal/core/domain"
	"github.com/kirillkom/document-requests/internal/core/ports"
)

const (
	ClearanceActionScheduled   = "scheduled"
	ClearanceActionRescheduled = "rescheduled"
	ClearanceActionCompleted   = "completed"
	ClearanceActionReconciled  = "reconciled"
)

// ClearanceUseCase runs the clearance meeting sub-workflow. Its progress is
// recorded on the request, which is why every operation locks the request row
// first.
type ClearanceUseCase struct {
	requests ports.RequestStore
	meetings ports.MeetingStore
	tx       ports.TxRunner
	notifier notifier
	observer ports.WorkflowObserver
	now      func() time.Time
}

func NewClearanceUseCase(
	requests ports.RequestStore,
	meetings ports.MeetingStore,
	tx ports.TxRunner,
	emitter ports.NotificationEmitter,
	observer ports.WorkflowObserver,
) *ClearanceUseCase {
	return &ClearanceUseCase{
		requests: requests,
		meetings: meetings,
		tx:       tx,
		notifier: notifier{emitter: emitter},
		observer: observerOrNoop(observer),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ScheduleClearance creates the meeting and moves clearance to scheduled in
// one transaction. The meeting is written before the status flag.
func (uc *ClearanceUseCase) ScheduleClearance(
	ctx context.Context,
	caller domain.Identity,
	requestID, room string,
	scheduledAt time.Time,
	description string,
) (meeting *domain.ClearanceMeeting, err error) {
	ctx, span := startSpan(ctx, "clearance.schedule", caller, attribute.String("request.id", requestID))
	defer func() { endSpan(span, err) }()

	if err := authorize(caller, capManageClearance); err != nil {
		return nil, err
	}

	var req *domain.DocumentRequest
	err = inTxWithRetry(ctx, uc.tx, "schedule clearance", func(ctx context.Context) error {
		current, err := uc.requests.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if err := current.CanScheduleClearance(caller.ID); err != nil {
			return err
		}
		now := uc.now()
		created, err := domain.NewClearanceMeeting(uuid.NewString(), current, room, scheduledAt, description, now)
		if err != nil {
			return err
		}
		if err := uc.meetings.Create(ctx, created); err != nil {
			return err
		}
		current.MarkClearanceScheduled(now)
		if err := uc.requests.Update(ctx, current); err != nil {
			return err
		}
		req, meeting = current, created
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.observer.ObserveClearanceAction(ClearanceActionScheduled)
	uc.notifier.send(ctx, domain.MeetingNotification(uuid.NewString(), domain.NotifyClearanceScheduled, req, meeting, uc.now()))
	return meeting, nil
}

// RescheduleClearance applies a partial update to the meeting. The request's
// clearance status is left as is.
func (uc *ClearanceUseCase) RescheduleClearance(
	ctx context.Context,
	caller domain.Identity,
	requestID string,
	patch domain.MeetingPatch,
) (meeting *domain.ClearanceMeeting, err error) {
	ctx, span := startSpan(ctx, "clearance.reschedule", caller, attribute.String("request.id", requestID))
	defer func() { endSpan(span, err) }()

	if err := authorize(caller, capManageClearance); err != nil {
		return nil, err
	}

	var req *domain.DocumentRequest
	err = inTxWithRetry(ctx, uc.tx, "reschedule clearance", func(ctx context.Context) error {
		current, err := uc.requests.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if err := current.CanRescheduleClearance(caller.ID); err != nil {
			return err
		}
		existing, err := uc.meetings.GetByRequestID(ctx, requestID)
		if err != nil {
			return err
		}
		if err := existing.Apply(patch, uc.now()); err != nil {
			return err
		}
		if err := uc.meetings.Update(ctx, existing); err != nil {
			return err
		}
		req, meeting = current, existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.observer.ObserveClearanceAction(ClearanceActionRescheduled)
	uc.notifier.send(ctx, domain.MeetingNotification(uuid.NewString(), domain.NotifyClearanceRescheduled, req, meeting, uc.now()))
	return meeting, nil
}

// CompleteClearance records that the meeting took place, which unblocks
// status advancement.
func (uc *ClearanceUseCase) CompleteClearance(ctx context.Context, caller domain.Identity, requestID string) (req *domain.DocumentRequest, err error) {
	ctx, span := startSpan(ctx, "clearance.complete", caller, attribute.String("request.id", requestID))
	defer func() { endSpan(span, err) }()

	if err := authorize(caller, capManageClearance); err != nil {
		return nil, err
	}

	var meeting *domain.ClearanceMeeting
	err = inTxWithRetry(ctx, uc.tx, "complete clearance", func(ctx context.Context) error {
		current, err := uc.requests.GetForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if err := current.CompleteClearance(caller.ID, uc.now()); err != nil {
			return err
		}
		if err := uc.requests.Update(ctx, current); err != nil {
			return err
		}
		existing, err := uc.meetings.GetByRequestID(ctx, requestID)
		if err != nil && !domain.IsKind(err, domain.ErrNotFound) {
			return err
		}
		req, meeting = current, existing
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.observer.ObserveClearanceAction(ClearanceActionCompleted)
	uc.notifier.send(ctx, domain.MeetingNotification(uuid.NewString(), domain.NotifyClearanceCompleted, req, meeting, uc.now()))
	return req, nil
}

func (uc *ClearanceUseCase) GetMeeting(ctx context.Context, caller domain.Identity, requestID string) (*domain.ClearanceMeeting, error) {
	if err := authenticated(caller); err != nil {
		return nil, err
	}
	req, err := uc.requests.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !req.VisibleTo(caller) {
		return nil, domain.NewError(domain.ErrPermission, "get clearance meeting", "request is not visible to the caller")
	}
	return uc.meetings.GetByRequestID(ctx, requestID)
}

// ListMyMeetings returns meetings where the caller is the requester or the
// approver, soonest first.
func (uc *ClearanceUseCase) ListMyMeetings(ctx context.Context, caller domain.Identity) ([]domain.ClearanceMeeting, error) {
	if err := authenticated(caller); err != nil {
		return nil, err
	}
	meetings, err := uc.meetings.ListByParticipant(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("list clearance meetings: %w", err)
	}
	return meetings, nil
}
