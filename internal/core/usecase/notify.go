package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/document-requests/internal/core/domain"
	"github.com/kirillkom/document-requests/internal/core/ports"
)

const notifyTimeout = 5 * time.Second

// notifier delivers notifications after the state change has committed.
// Delivery failures are logged and swallowed.
type notifier struct {
	emitter ports.NotificationEmitter
}

func (n notifier) send(ctx context.Context, notes ...domain.Notification) {
	if n.emitter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	for _, note := range notes {
		if err := n.emitter.Notify(ctx, note); err != nil {
			slog.WarnContext(ctx, "notification delivery failed",
				"notification_id", note.ID,
				"kind", note.Kind,
				"request_id", note.RequestID,
				"user_id", note.UserID,
				"error", err,
			)
		}
	}
}

type noopObserver struct{}

func (noopObserver) ObserveTransition(domain.DocumentStatus) {}
func (noopObserver) ObserveClearanceAction(string)           {}

func observerOrNoop(o ports.WorkflowObserver) ports.WorkflowObserver {
	if o == nil {
		return noopObserver{}
	}
	return o
}
