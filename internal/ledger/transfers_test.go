package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/roomledger/roomledger/internal/ledger"
	"github.com/roomledger/roomledger/internal/models"
)

func TestCreateTransferValidation(t *testing.T) {
	env := newTestEnv(t, 10000)
	ctx := context.Background()

	tests := []struct {
		name    string
		actor   models.Actor
		params  ledger.CreateTransferParams
		wantErr error
	}{
		{
			name:  "unknown type",
			actor: alice,
			params: ledger.CreateTransferParams{
				BillID: env.bill.ID, Type: "wire", AmountCents: 100,
				FromUserID: alice.ID, ToUserID: bob.ID,
			},
			wantErr: ledger.ErrInvalidArgument,
		},
		{
			name:  "zero amount",
			actor: alice,
			params: ledger.CreateTransferParams{
				BillID: env.bill.ID, Type: models.TransferPayerTransfer, AmountCents: 0,
				FromUserID: alice.ID, ToUserID: bob.ID,
			},
			wantErr: ledger.ErrInvalidArgument,
		},
		{
			name:  "negative amount",
			actor: alice,
			params: ledger.CreateTransferParams{
				BillID: env.bill.ID, Type: models.TransferPayerTransfer, AmountCents: -50,
				FromUserID: alice.ID, ToUserID: bob.ID,
			},
			wantErr: ledger.ErrInvalidArgument,
		},
		{
			name:  "missing parties",
			actor: alice,
			params: ledger.CreateTransferParams{
				BillID: env.bill.ID, Type: models.TransferPayerTransfer, AmountCents: 100,
			},
			wantErr: ledger.ErrInvalidArgument,
		},
		{
			name:  "payer transfer to self",
			actor: alice,
			params: ledger.CreateTransferParams{
				BillID: env.bill.ID, Type: models.TransferPayerTransfer, AmountCents: 100,
				FromUserID: alice.ID, ToUserID: alice.ID,
			},
			wantErr: ledger.ErrInvalidArgument,
		},
		{
			name:  "unknown bill",
			actor: alice,
			params: ledger.CreateTransferParams{
				BillID: "nonexistent-id", Type: models.TransferPayerTransfer, AmountCents: 100,
				FromUserID: alice.ID, ToUserID: bob.ID,
			},
			wantErr: ledger.ErrNotFound,
		},
		{
			name:  "impersonating another member",
			actor: bob,
			params: ledger.CreateTransferParams{
				BillID: env.bill.ID, Type: models.TransferPayerTransfer, AmountCents: 100,
				FromUserID: alice.ID, ToUserID: bob.ID,
			},
			wantErr: ledger.ErrForbidden,
		},
		{
			name:  "non-member",
			actor: mallory,
			params: ledger.CreateTransferParams{
				BillID: env.bill.ID, Type: models.TransferPayerTransfer, AmountCents: 100,
				FromUserID: mallory.ID, ToUserID: bob.ID,
			},
			wantErr: ledger.ErrForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.transfers.Create(ctx, tt.actor, tt.params)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("self pay allows same party", func(t *testing.T) {
		tr, err := env.transfers.Create(ctx, alice, ledger.CreateTransferParams{
			BillID: env.bill.ID, Type: models.TransferSelfPay, AmountCents: 100,
			FromUserID: alice.ID, ToUserID: alice.ID,
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if tr.Status != models.TransferPending {
			t.Errorf("Status = %s, want pending", tr.Status)
		}
	})

	t.Run("admin may record on behalf of a member", func(t *testing.T) {
		if _, err := env.transfers.Create(ctx, admin, ledger.CreateTransferParams{
			BillID: env.bill.ID, Type: models.TransferPayerTransfer, AmountCents: 100,
			FromUserID: alice.ID, ToUserID: bob.ID,
		}); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	})

	t.Run("closed bill rejects new transfers", func(t *testing.T) {
		if err := env.store.CloseBill(ctx, env.bill.ID); err != nil {
			t.Fatalf("CloseBill failed: %v", err)
		}
		_, err := env.transfers.Create(ctx, alice, ledger.CreateTransferParams{
			BillID: env.bill.ID, Type: models.TransferSelfPay, AmountCents: 100,
			FromUserID: alice.ID, ToUserID: alice.ID,
		})
		if !errors.Is(err, ledger.ErrInvalidArgument) {
			t.Errorf("Create() error = %v, want ErrInvalidArgument", err)
		}
	})
}

func TestTransferLifecycle(t *testing.T) {
	env := newTestEnv(t, 10000)
	ctx := context.Background()

	create := func(t *testing.T, amount int64) *models.PaymentTransfer {
		t.Helper()
		tr, err := env.transfers.Create(ctx, alice, ledger.CreateTransferParams{
			BillID: env.bill.ID, Type: models.TransferPayerTransfer, AmountCents: amount,
			FromUserID: alice.ID, ToUserID: bob.ID,
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		return tr
	}

	t.Run("self pay confirm then double confirm", func(t *testing.T) {
		tr, err := env.transfers.Create(ctx, alice, ledger.CreateTransferParams{
			BillID: env.bill.ID, Type: models.TransferSelfPay, AmountCents: 3000,
			FromUserID: alice.ID, ToUserID: alice.ID,
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if env.covered(t) != 0 {
			t.Error("Pending transfer counted toward covered amount")
		}

		got, err := env.transfers.Confirm(ctx, alice, tr.ID)
		if err != nil {
			t.Fatalf("Confirm failed: %v", err)
		}
		if got.Status != models.TransferCompleted || got.ConfirmedBy != alice.ID {
			t.Errorf("Unexpected transfer after confirm: %+v", got)
		}
		if env.covered(t) != 3000 {
			t.Errorf("covered = %d, want 3000", env.covered(t))
		}

		_, err = env.transfers.Confirm(ctx, alice, tr.ID)
		if !errors.Is(err, ledger.ErrInvalidState) {
			t.Errorf("Second confirm error = %v, want ErrInvalidState", err)
		}
		if env.covered(t) != 3000 {
			t.Errorf("covered = %d after rejected confirm, want 3000", env.covered(t))
		}
	})

	t.Run("only the receiver may confirm", func(t *testing.T) {
		tr := create(t, 1000)
		if _, err := env.transfers.Confirm(ctx, alice, tr.ID); !errors.Is(err, ledger.ErrForbidden) {
			t.Errorf("Sender confirm error = %v, want ErrForbidden", err)
		}
		if _, err := env.transfers.Confirm(ctx, mallory, tr.ID); !errors.Is(err, ledger.ErrForbidden) {
			t.Errorf("Outsider confirm error = %v, want ErrForbidden", err)
		}
		if _, err := env.transfers.Confirm(ctx, bob, tr.ID); err != nil {
			t.Errorf("Receiver confirm failed: %v", err)
		}
	})

	t.Run("cancel then confirm", func(t *testing.T) {
		tr := create(t, 1000)
		got, err := env.transfers.Cancel(ctx, alice, tr.ID)
		if err != nil {
			t.Fatalf("Cancel failed: %v", err)
		}
		if got.Status != models.TransferCancelled || got.CancelledBy != alice.ID {
			t.Errorf("Unexpected transfer after cancel: %+v", got)
		}

		_, err = env.transfers.Confirm(ctx, bob, tr.ID)
		if !errors.Is(err, ledger.ErrInvalidState) {
			t.Errorf("Confirm after cancel error = %v, want ErrInvalidState", err)
		}
	})

	t.Run("outsider may not cancel", func(t *testing.T) {
		tr := create(t, 1000)
		if _, err := env.transfers.Cancel(ctx, mallory, tr.ID); !errors.Is(err, ledger.ErrForbidden) {
			t.Errorf("Outsider cancel error = %v, want ErrForbidden", err)
		}
		if _, err := env.transfers.Cancel(ctx, bob, tr.ID); err != nil {
			t.Errorf("Receiver cancel failed: %v", err)
		}
	})

	t.Run("terminal state is immutable", func(t *testing.T) {
		tr := create(t, 500)
		confirmed, err := env.transfers.Confirm(ctx, bob, tr.ID)
		if err != nil {
			t.Fatalf("Confirm failed: %v", err)
		}

		if _, err := env.transfers.Cancel(ctx, bob, tr.ID); !errors.Is(err, ledger.ErrInvalidState) {
			t.Errorf("Cancel of completed transfer error = %v, want ErrInvalidState", err)
		}

		got, err := env.transfers.Get(ctx, tr.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Status != models.TransferCompleted ||
			got.ConfirmedAt != confirmed.ConfirmedAt ||
			got.ConfirmedBy != confirmed.ConfirmedBy ||
			got.CancelledAt != 0 || got.CancelledBy != "" {
			t.Errorf("Terminal transfer mutated: %+v", got)
		}
	})

	t.Run("confirm exceeding total is rejected", func(t *testing.T) {
		tr := create(t, 9000) // 4500 already covered of 10000
		_, err := env.transfers.Confirm(ctx, bob, tr.ID)
		if !errors.Is(err, ledger.ErrInvariantViolation) {
			t.Fatalf("Confirm error = %v, want ErrInvariantViolation", err)
		}

		got, err := env.transfers.Get(ctx, tr.ID)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Status != models.TransferPending {
			t.Errorf("Status = %s after rejected confirm, want pending", got.Status)
		}
	})
}

// Of N concurrent confirms of the same pending transfer, exactly one
// must succeed. The losers wait out the write lock, re-read the
// committed state, and observe ErrInvalidState; the amount is counted
// once.
func TestConcurrentConfirmAtMostOnce(t *testing.T) {
	env := newTestEnv(t, 10000)
	ctx := context.Background()

	tr, err := env.transfers.Create(ctx, alice, ledger.CreateTransferParams{
		BillID: env.bill.ID, Type: models.TransferPayerTransfer, AmountCents: 2500,
		FromUserID: alice.ID, ToUserID: bob.ID,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.transfers.Confirm(ctx, bob, tr.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	invalidState := 0
	for i, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ledger.ErrInvalidState):
			invalidState++
		default:
			t.Errorf("confirm %d: unexpected error %v", i, err)
		}
	}
	if succeeded != 1 || invalidState != n-1 {
		t.Fatalf("confirms: %d succeeded, %d saw invalid state; want 1 and %d", succeeded, invalidState, n-1)
	}
	if env.covered(t) != 2500 {
		t.Errorf("covered = %d, want 2500", env.covered(t))
	}
}
