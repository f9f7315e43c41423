package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/roomledger/roomledger/internal/ledger"
	"github.com/roomledger/roomledger/internal/models"
)

func TestCaptureValidation(t *testing.T) {
	env := newTestEnv(t, 10000)
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   models.Actor
		params  ledger.CaptureParams
		wantErr error
	}{
		{
			name:    "zero amount",
			actor:   alice,
			params:  ledger.CaptureParams{BillID: env.bill.ID, PaymentMethod: "cash", DeviceID: "d1"},
			wantErr: ledger.ErrInvalidArgument,
		},
		{
			name:    "missing method",
			actor:   alice,
			params:  ledger.CaptureParams{BillID: env.bill.ID, AmountCents: 100, DeviceID: "d1"},
			wantErr: ledger.ErrInvalidArgument,
		},
		{
			name:    "missing device",
			actor:   alice,
			params:  ledger.CaptureParams{BillID: env.bill.ID, AmountCents: 100, PaymentMethod: "cash"},
			wantErr: ledger.ErrInvalidArgument,
		},
		{
			name:    "negative capturedAt",
			actor:   alice,
			params:  ledger.CaptureParams{BillID: env.bill.ID, AmountCents: 100, PaymentMethod: "cash", DeviceID: "d1", CapturedAt: -100},
			wantErr: ledger.ErrInvalidArgument,
		},
		{
			name:    "unknown bill",
			actor:   alice,
			params:  ledger.CaptureParams{BillID: "nonexistent-id", AmountCents: 100, PaymentMethod: "cash", DeviceID: "d1"},
			wantErr: ledger.ErrNotFound,
		},
		{
			name:    "non-member",
			actor:   mallory,
			params:  ledger.CaptureParams{BillID: env.bill.ID, AmountCents: 100, PaymentMethod: "cash", DeviceID: "d1"},
			wantErr: ledger.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.reconciler.Capture(ctx, tt.actor, tt.params)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Capture() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("defaults captured_at to now", func(t *testing.T) {
		op, err := env.reconciler.Capture(ctx, alice, ledger.CaptureParams{
			BillID: env.bill.ID, AmountCents: 100, PaymentMethod: "cash", DeviceID: "d1",
		})
		if err != nil {
			t.Fatalf("Capture failed: %v", err)
		}
		if op.CapturedAt == 0 {
			t.Error("Expected CapturedAt to be set")
		}
		if !op.IsOffline || op.SyncStatus != models.SyncPending {
			t.Errorf("Unexpected capture state: %+v", op)
		}
	})
}

func TestSyncLifecycle(t *testing.T) {
	env := newTestEnv(t, 10000)
	ctx := context.Background()

	capture := func(t *testing.T, amount, capturedAt int64) *models.OfflinePayment {
		t.Helper()
		op, err := env.reconciler.Capture(ctx, alice, ledger.CaptureParams{
			BillID:        env.bill.ID,
			AmountCents:   amount,
			PaymentMethod: "upi",
			DeviceID:      "phone-1",
			CapturedAt:    capturedAt,
		})
		if err != nil {
			t.Fatalf("Capture failed: %v", err)
		}
		return op
	}

	t.Run("sync exactly once", func(t *testing.T) {
		op := capture(t, 4000, 100)
		if env.covered(t) != 0 {
			t.Error("Pending capture counted toward covered amount")
		}

		gotOp, payment, err := env.reconciler.Sync(ctx, alice, op.ID, "txn-1", "rcpt-1")
		if err != nil {
			t.Fatalf("Sync failed: %v", err)
		}
		if gotOp.SyncStatus != models.SyncCompleted || gotOp.IsOffline {
			t.Errorf("Unexpected capture after sync: %+v", gotOp)
		}
		if payment.OfflinePaymentID != op.ID || payment.Source != models.PaymentSourceOfflineSync {
			t.Errorf("Payment not linked to capture: %+v", payment)
		}
		if env.covered(t) != 4000 {
			t.Errorf("covered = %d, want 4000", env.covered(t))
		}

		_, _, err = env.reconciler.Sync(ctx, alice, op.ID, "txn-1b", "")
		if !errors.Is(err, ledger.ErrInvalidState) {
			t.Errorf("Second sync error = %v, want ErrInvalidState", err)
		}
		if env.covered(t) != 4000 {
			t.Errorf("covered = %d after rejected sync, want 4000", env.covered(t))
		}
	})

	t.Run("over-amount sync leaves capture pending", func(t *testing.T) {
		op := capture(t, 7000, 200) // 4000 already covered of 10000
		_, _, err := env.reconciler.Sync(ctx, alice, op.ID, "txn-2", "")
		if !errors.Is(err, ledger.ErrInvariantViolation) {
			t.Fatalf("Sync error = %v, want ErrInvariantViolation", err)
		}

		got, err := env.reconciler.Get(ctx, op.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.SyncStatus != models.SyncPending {
			t.Errorf("SyncStatus = %s, want pending after rejection", got.SyncStatus)
		}

		payments, err := env.store.ListPaymentsByBill(ctx, env.bill.ID, 100, 0)
		if err != nil {
			t.Fatalf("ListPaymentsByBill failed: %v", err)
		}
		for _, p := range payments {
			if p.OfflinePaymentID == op.ID {
				t.Error("Rejected sync left a payment row behind")
			}
		}
	})

	t.Run("mark failed requires a reason", func(t *testing.T) {
		op := capture(t, 100, 300)
		_, err := env.reconciler.MarkSyncFailed(ctx, alice, op.ID, "")
		if !errors.Is(err, ledger.ErrInvalidArgument) {
			t.Errorf("MarkSyncFailed error = %v, want ErrInvalidArgument", err)
		}
	})

	t.Run("fail retry fail", func(t *testing.T) {
		op := capture(t, 100, 400)

		failed, err := env.reconciler.MarkSyncFailed(ctx, alice, op.ID, "gateway timeout")
		if err != nil {
			t.Fatalf("MarkSyncFailed failed: %v", err)
		}
		if failed.SyncStatus != models.SyncFailed || failed.FailureReason != "gateway timeout" {
			t.Errorf("Unexpected capture after failure: %+v", failed)
		}

		retried, err := env.reconciler.RetrySync(ctx, alice, op.ID)
		if err != nil {
			t.Fatalf("RetrySync failed: %v", err)
		}
		if retried.SyncStatus != models.SyncPending || retried.FailureReason != "" {
			t.Errorf("Unexpected capture after retry: %+v", retried)
		}

		// retry is only valid from failed
		_, err = env.reconciler.RetrySync(ctx, alice, op.ID)
		if !errors.Is(err, ledger.ErrInvalidState) {
			t.Errorf("RetrySync from pending error = %v, want ErrInvalidState", err)
		}

		// a retried capture can be synced normally
		if _, _, err := env.reconciler.Sync(ctx, alice, op.ID, "txn-3", ""); err != nil {
			t.Fatalf("Sync after retry failed: %v", err)
		}
		_, err = env.reconciler.RetrySync(ctx, alice, op.ID)
		if !errors.Is(err, ledger.ErrInvalidState) {
			t.Errorf("RetrySync from completed error = %v, want ErrInvalidState", err)
		}
	})

	t.Run("zero cursor precedes every capture time", func(t *testing.T) {
		// Rows written before capture-time validation can carry times the
		// clamp would reject today; the sweep must still reach them.
		legacy := &models.OfflinePayment{
			BillID:        env.bill.ID,
			UserID:        alice.ID,
			AmountCents:   50,
			PaymentMethod: "cash",
			DeviceID:      "phone-0",
			IsOffline:     true,
			SyncStatus:    models.SyncPending,
			CapturedAt:    -3600,
		}
		if err := env.store.CreateOfflinePayment(ctx, legacy); err != nil {
			t.Fatalf("CreateOfflinePayment failed: %v", err)
		}

		ops, _, err := env.reconciler.PendingSync(ctx, ledger.SyncCursor{}, 1)
		if err != nil {
			t.Fatalf("PendingSync failed: %v", err)
		}
		if len(ops) != 1 || ops[0].ID != legacy.ID {
			t.Fatalf("Expected the oldest capture first, got %+v", ops)
		}

		if _, _, err := env.reconciler.Sync(ctx, alice, legacy.ID, "txn-legacy", ""); err != nil {
			t.Fatalf("Sync failed: %v", err)
		}
	})

	t.Run("pending cursor walks oldest first", func(t *testing.T) {
		// Pending at this point: captured_at 200 (over-amount), 300.
		ops, next, err := env.reconciler.PendingSync(ctx, ledger.SyncCursor{}, 1)
		if err != nil {
			t.Fatalf("PendingSync failed: %v", err)
		}
		if len(ops) != 1 || ops[0].CapturedAt != 200 {
			t.Fatalf("Expected oldest pending capture, got %+v", ops)
		}

		ops, _, err = env.reconciler.PendingSync(ctx, next, 10)
		if err != nil {
			t.Fatalf("PendingSync failed: %v", err)
		}
		if len(ops) != 1 || ops[0].CapturedAt != 300 {
			t.Fatalf("Expected remaining pending capture, got %+v", ops)
		}
	})
}
