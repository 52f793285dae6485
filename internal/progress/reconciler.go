package progress

import (
	"context"
	"time"

	"github.com/oakfit/coursecast/internal/catalog"
	"github.com/oakfit/coursecast/internal/log"
)

// PurchaseReader re-reads purchase records from the hosted store.
// *catalog.Client satisfies this.
type PurchaseReader interface {
	PurchasesByUser(ctx context.Context, userID catalog.UserID) ([]catalog.Purchase, error)
}

// Reconciler periodically replaces the tracker's completed set from the
// remote record and retries journaled pending writes, bounding the drift an
// optimistic update can accumulate.
type Reconciler struct {
	Tracker    *Tracker
	Reader     PurchaseReader
	UserID     catalog.UserID
	PurchaseID catalog.PurchaseID
	Interval   time.Duration
}

// Run starts the reconciliation loop. It returns when ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
	if r.Interval <= 0 {
		return
	}

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	logger := log.WithComponent("reconciler")
	logger.Info().
		Dur("interval", r.Interval).
		Msg("completion reconciler started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.ReconcileOnce(ctx)
		}
	}
}

// ReconcileOnce performs exactly one reconciliation pass. Deterministic and
// suitable for unit testing.
func (r *Reconciler) ReconcileOnce(ctx context.Context) {
	logger := log.WithComponent("reconciler")

	r.Tracker.RetryPending(ctx)

	purchases, err := r.Reader.PurchasesByUser(ctx, r.UserID)
	if err != nil {
		reconcileRunsTotal.WithLabelValues("error").Inc()
		logger.Warn().Err(err).Msg("reconcile fetch failed")
		return
	}

	for _, p := range purchases {
		if p.ID != r.PurchaseID {
			continue
		}
		r.Tracker.ReplaceFromRemote(ctx, p.CompletedLessonIDs)
		reconcileRunsTotal.WithLabelValues("ok").Inc()
		return
	}

	reconcileRunsTotal.WithLabelValues("missing").Inc()
	logger.Warn().
		Str(log.FieldPurchase, string(r.PurchaseID)).
		Msg("purchase vanished from remote store, keeping local state")
}
