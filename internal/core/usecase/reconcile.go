package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/document-requests/internal/core/domain"
)

const reconcileBatchSize = 500

// ReconcileClearance repairs requests that own a meeting but were left in the
// awaiting state. Batches are read until one comes back short or repairs
// nothing. It returns the number of requests repaired.
func (uc *ClearanceUseCase) ReconcileClearance(ctx context.Context) (repaired int, err error) {
	ctx, span := startSpan(ctx, "clearance.reconcile", domain.Identity{ID: "system"})
	defer func() { endSpan(span, err) }()

	for {
		stale, err := uc.requests.ListAwaitingWithMeeting(ctx, reconcileBatchSize)
		if err != nil {
			return repaired, fmt.Errorf("list awaiting requests with meeting: %w", err)
		}
		fixed, err := uc.reconcileBatch(ctx, stale)
		repaired += fixed
		if err != nil {
			return repaired, err
		}
		if len(stale) < reconcileBatchSize || fixed == 0 {
			return repaired, nil
		}
	}
}

func (uc *ClearanceUseCase) reconcileBatch(ctx context.Context, stale []domain.DocumentRequest) (repaired int, err error) {
	for _, candidate := range stale {
		fixed := false
		err := inTxWithRetry(ctx, uc.tx, "reconcile clearance", func(ctx context.Context) error {
			fixed = false
			req, err := uc.requests.GetForUpdate(ctx, candidate.ID)
			if err != nil {
				return err
			}
			if req.IsTerminal() || req.ClearanceStatus != domain.ClearanceAwaiting {
				return nil
			}
			req.MarkClearanceScheduled(uc.now())
			if err := uc.requests.Update(ctx, req); err != nil {
				return err
			}
			fixed = true
			return nil
		})
		if err != nil {
			if domain.IsKind(err, domain.ErrNotFound) {
				continue
			}
			return repaired, fmt.Errorf("reconcile request %s: %w", candidate.ID, err)
		}
		if fixed {
			repaired++
			uc.observer.ObserveClearanceAction(ClearanceActionReconciled)
			slog.InfoContext(ctx, "clearance status reconciled", "request_id", candidate.ID)
		}
	}
	return repaired, nil
}
