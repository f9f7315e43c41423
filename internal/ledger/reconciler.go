package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/roomledger/roomledger/internal/metrics"
	"github.com/roomledger/roomledger/internal/models"
)

// Reconciler owns the OfflinePayment lifecycle: capture, sync into the
// authoritative Payment ledger, mark-failed, and retry. Like the
// transfer service it holds no state between calls.
type Reconciler struct {
	store   Store
	metrics *metrics.Metrics
}

// NewReconciler creates a Reconciler with the given storage backend.
// The metrics handle may be nil.
func NewReconciler(store Store, m *metrics.Metrics) *Reconciler {
	return &Reconciler{store: store, metrics: m}
}

// CaptureParams are the caller-supplied fields for an offline capture.
type CaptureParams struct {
	BillID        string
	AmountCents   int64
	PaymentMethod string
	DeviceID      string
	Note          string

	// CapturedAt is the client-side capture time (Unix seconds).
	// Zero means "now".
	CapturedAt int64
}

// Capture records a payment fact captured without connectivity. It never
// touches the authoritative payments table; that happens only at sync.
func (r *Reconciler) Capture(ctx context.Context, actor models.Actor, p CaptureParams) (op *models.OfflinePayment, err error) {
	defer func() { r.metrics.SyncAttempt("capture", resultLabel(err)) }()

	if p.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}
	if p.PaymentMethod == "" {
		return nil, fmt.Errorf("%w: paymentMethod is required", ErrInvalidArgument)
	}
	if p.DeviceID == "" {
		return nil, fmt.Errorf("%w: deviceId is required", ErrInvalidArgument)
	}
	if p.CapturedAt < 0 {
		return nil, fmt.Errorf("%w: capturedAt must not be negative", ErrInvalidArgument)
	}

	bill, err := r.store.GetBill(ctx, p.BillID)
	if err != nil {
		return nil, err
	}
	if bill.Status != models.BillOpen {
		return nil, fmt.Errorf("%w: bill %s is closed", ErrInvalidArgument, bill.ID)
	}
	if !actor.IsAdmin() {
		ok, err := r.store.IsRoomMember(ctx, bill.RoomID, actor.ID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: not a member of room %s", ErrForbidden, bill.RoomID)
		}
	}

	capturedAt := p.CapturedAt
	if capturedAt == 0 {
		capturedAt = time.Now().Unix()
	}

	op = &models.OfflinePayment{
		BillID:        bill.ID,
		UserID:        actor.ID,
		AmountCents:   p.AmountCents,
		PaymentMethod: p.PaymentMethod,
		DeviceID:      p.DeviceID,
		Note:          p.Note,
		IsOffline:     true,
		SyncStatus:    models.SyncPending,
		CapturedAt:    capturedAt,
	}
	if err = r.store.CreateOfflinePayment(ctx, op); err != nil {
		slog.Error("capture failed", "bill_id", bill.ID, "error", err)
		return nil, err
	}
	slog.Info("offline payment captured",
		"offline_payment_id", op.ID,
		"bill_id", op.BillID,
		"amount_cents", op.AmountCents,
		"device_id", op.DeviceID,
	)
	return op, nil
}

// Sync reconciles a pending capture into the authoritative ledger. The
// Payment insert, the capture's state change, and the bill aggregate
// guard commit as one store transaction: a crash mid-sync leaves the
// capture pending (so it is retried), never completed without a matching
// payment. Syncing an already-completed capture fails with
// ErrInvalidState and creates nothing.
//
// Gateway verification must happen before calling Sync; the record lock
// is held only for the store read-check-write.
func (r *Reconciler) Sync(ctx context.Context, actor models.Actor, id, transactionID, receipt string) (op *models.OfflinePayment, payment *models.Payment, err error) {
	defer func() { r.metrics.SyncAttempt("sync", resultLabel(err)) }()

	op, payment, err = r.store.CompleteSync(ctx, id, transactionID, receipt)
	if err != nil {
		if errors.Is(err, ErrInvalidState) || errors.Is(err, ErrInvariantViolation) {
			slog.Warn("sync rejected", "offline_payment_id", id, "error", err)
		} else if !errors.Is(err, ErrNotFound) {
			slog.Error("sync failed", "offline_payment_id", id, "error", err)
		}
		return nil, nil, err
	}
	slog.Info("offline payment synced",
		"offline_payment_id", op.ID,
		"payment_id", payment.ID,
		"bill_id", op.BillID,
		"amount_cents", op.AmountCents,
		"actor", actor.ID,
	)
	return op, payment, nil
}

// MarkSyncFailed records that a sync attempt for a pending capture could
// not be verified, e.g. the payment gateway was unreachable.
func (r *Reconciler) MarkSyncFailed(ctx context.Context, actor models.Actor, id, reason string) (op *models.OfflinePayment, err error) {
	defer func() { r.metrics.SyncAttempt("mark_failed", resultLabel(err)) }()

	if reason == "" {
		return nil, fmt.Errorf("%w: failureReason is required", ErrInvalidArgument)
	}
	op, err = r.store.FailSync(ctx, id, reason)
	if err != nil {
		return nil, err
	}
	slog.Warn("offline payment sync marked failed",
		"offline_payment_id", op.ID,
		"reason", reason,
		"actor", actor.ID,
	)
	return op, nil
}

// RetrySync returns a failed capture to pending, clearing the failure
// reason, so it becomes eligible for another sync attempt. Only failed
// records can be retried.
func (r *Reconciler) RetrySync(ctx context.Context, actor models.Actor, id string) (op *models.OfflinePayment, err error) {
	defer func() { r.metrics.SyncAttempt("retry", resultLabel(err)) }()

	op, err = r.store.ResetSync(ctx, id)
	if err != nil {
		return nil, err
	}
	slog.Info("offline payment sync retried", "offline_payment_id", op.ID, "actor", actor.ID)
	return op, nil
}

// Get returns an offline payment by ID.
func (r *Reconciler) Get(ctx context.Context, id string) (*models.OfflinePayment, error) {
	return r.store.GetOfflinePayment(ctx, id)
}

// List returns offline payments matching the filter.
func (r *Reconciler) List(ctx context.Context, filter OfflinePaymentFilter) ([]*models.OfflinePayment, error) {
	return r.store.ListOfflinePayments(ctx, filter)
}

// SyncCursor is a restartable position in the pending-sync sequence.
// The zero value starts from the oldest capture.
type SyncCursor struct {
	CapturedAt int64
	ID         string
}

// PendingSync returns the next page of captures awaiting sync, oldest
// first so stale captures are not starved, plus the cursor to resume
// from. A page shorter than limit means the sequence is exhausted.
func (r *Reconciler) PendingSync(ctx context.Context, cursor SyncCursor, limit int) ([]*models.OfflinePayment, SyncCursor, error) {
	after := cursor.CapturedAt
	if cursor.ID == "" {
		// The zero cursor must precede every record, including rows with
		// out-of-range capture times written before validation existed.
		after = math.MinInt64
	}
	ops, err := r.store.ListPendingSync(ctx, after, cursor.ID, limit)
	if err != nil {
		return nil, cursor, err
	}
	next := cursor
	if len(ops) > 0 {
		last := ops[len(ops)-1]
		next = SyncCursor{CapturedAt: last.CapturedAt, ID: last.ID}
	}
	return ops, next, nil
}
