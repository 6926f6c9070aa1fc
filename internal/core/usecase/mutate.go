package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/document-requests/internal/core/domain"
	"github.com/kirillkom/document-requests/internal/core/ports"
)

const maxConflictAttempts = 3

// inTxWithRetry runs fn in a transaction and re-runs the whole
// load -> validate -> write cycle when a concurrent writer wins.
func inTxWithRetry(ctx context.Context, tx ports.TxRunner, op string, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= maxConflictAttempts; attempt++ {
		err = tx.WithinTx(ctx, fn)
		if err == nil || !domain.IsKind(err, domain.ErrConflict) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		slog.DebugContext(ctx, "optimistic conflict, retrying",
			"operation", op,
			"attempt", attempt,
		)
	}
	return err
}
