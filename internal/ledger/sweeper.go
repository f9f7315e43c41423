package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/roomledger/roomledger/internal/metrics"
	"github.com/roomledger/roomledger/internal/models"
)

// GatewayVerifier checks a captured payment against the upstream payment
// gateway and returns the upstream transaction id and receipt. The
// gateway integration itself lives outside this module.
type GatewayVerifier interface {
	Verify(ctx context.Context, op *models.OfflinePayment) (transactionID, receipt string, err error)
}

// sweepActor identifies background reconciliation in audit fields.
var sweepActor = models.Actor{ID: "sync-sweeper", Role: models.RoleAdmin}

// Sweeper periodically walks the pending-sync backlog, verifies each
// capture with the gateway, and syncs or fails it. Verification runs
// before the locked sync transaction, so the record lock is never held
// across a network call. A user-initiated sync or retry racing the sweep
// is safe: both paths go through the same locked transition and only one
// proceeds.
type Sweeper struct {
	rec      *Reconciler
	verifier GatewayVerifier
	metrics  *metrics.Metrics
	interval time.Duration
	pageSize int
}

// NewSweeper creates a sweeper over the given reconciler and verifier.
// The metrics handle may be nil.
func NewSweeper(rec *Reconciler, verifier GatewayVerifier, m *metrics.Metrics, interval time.Duration) *Sweeper {
	return &Sweeper{
		rec:      rec,
		verifier: verifier,
		metrics:  m,
		interval: interval,
		pageSize: 100,
	}
}

// Run sweeps on the configured interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("sync sweeper started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			slog.Info("sync sweeper stopped")
			return
		case <-ticker.C:
			if _, _, err := s.SweepOnce(ctx); err != nil {
				slog.Error("sweep failed", "error", err)
			}
		}
	}
}

// SweepOnce walks the entire pending backlog once, oldest capture first,
// and returns how many records were synced and marked failed.
func (s *Sweeper) SweepOnce(ctx context.Context) (synced, failed int, err error) {
	start := time.Now()
	backlog := 0

	var cursor SyncCursor
	for {
		ops, next, err := s.rec.PendingSync(ctx, cursor, s.pageSize)
		if err != nil {
			s.metrics.SweepRun("error", backlog, start.Unix())
			return synced, failed, err
		}
		backlog += len(ops)

		for _, op := range ops {
			switch s.sweepOne(ctx, op) {
			case sweepSynced:
				synced++
			case sweepFailed:
				failed++
			}
		}

		if len(ops) < s.pageSize {
			break
		}
		cursor = next
	}

	s.metrics.SweepRun("ok", backlog-synced-failed, start.Unix())
	if synced > 0 || failed > 0 {
		slog.Info("sweep completed",
			"synced", synced,
			"failed", failed,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return synced, failed, nil
}

type sweepOutcome int

const (
	sweepSkipped sweepOutcome = iota
	sweepSynced
	sweepFailed
)

func (s *Sweeper) sweepOne(ctx context.Context, op *models.OfflinePayment) sweepOutcome {
	txnID, receipt, err := s.verifier.Verify(ctx, op)
	if err != nil {
		if _, ferr := s.rec.MarkSyncFailed(ctx, sweepActor, op.ID, err.Error()); ferr != nil {
			// A concurrent sync/retry may have moved the record on; that
			// path holds the authoritative outcome.
			if !errors.Is(ferr, ErrInvalidState) {
				slog.Error("mark failed during sweep", "offline_payment_id", op.ID, "error", ferr)
			}
			return sweepSkipped
		}
		return sweepFailed
	}

	if _, _, err := s.rec.Sync(ctx, sweepActor, op.ID, txnID, receipt); err != nil {
		if errors.Is(err, ErrInvalidState) {
			// Lost the race to a user-initiated sync. Exactly one Payment
			// exists either way.
			return sweepSkipped
		}
		if errors.Is(err, ErrInvariantViolation) {
			if _, ferr := s.rec.MarkSyncFailed(ctx, sweepActor, op.ID, "bill total exceeded"); ferr != nil && !errors.Is(ferr, ErrInvalidState) {
				slog.Error("mark failed during sweep", "offline_payment_id", op.ID, "error", ferr)
			}
			return sweepFailed
		}
		slog.Error("sync during sweep", "offline_payment_id", op.ID, "error", err)
		return sweepSkipped
	}
	return sweepSynced
}
