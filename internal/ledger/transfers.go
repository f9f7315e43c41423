// Package ledger implements the payment-transfer state machine and the
// offline-payment reconciler over a transactional Store.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roomledger/roomledger/internal/metrics"
	"github.com/roomledger/roomledger/internal/models"
)

// TransferService owns the PaymentTransfer lifecycle. It holds no
// mutable state between calls; every operation is a fresh
// read-check-write against the store.
type TransferService struct {
	store   Store
	metrics *metrics.Metrics
}

// NewTransferService creates a TransferService with the given storage
// backend. The metrics handle may be nil.
func NewTransferService(store Store, m *metrics.Metrics) *TransferService {
	return &TransferService{store: store, metrics: m}
}

// CreateTransferParams are the caller-supplied fields for a new transfer.
type CreateTransferParams struct {
	BillID      string
	Type        models.TransferType
	AmountCents int64
	FromUserID  string
	ToUserID    string
	Note        string
}

// Create inserts a pending transfer against an open bill. Pending
// transfers do not count toward the bill's covered amount.
func (s *TransferService) Create(ctx context.Context, actor models.Actor, p CreateTransferParams) (t *models.PaymentTransfer, err error) {
	defer func() { s.metrics.TransferTransition("create", resultLabel(err)) }()

	if !p.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown transfer type %q", ErrInvalidArgument, p.Type)
	}
	if p.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	}
	if p.FromUserID == "" || p.ToUserID == "" {
		return nil, fmt.Errorf("%w: fromUserId and toUserId are required", ErrInvalidArgument)
	}
	if p.Type != models.TransferSelfPay && p.FromUserID == p.ToUserID {
		return nil, fmt.Errorf("%w: %s requires distinct parties", ErrInvalidArgument, p.Type)
	}

	bill, err := s.store.GetBill(ctx, p.BillID)
	if err != nil {
		return nil, err
	}
	if bill.Status != models.BillOpen {
		return nil, fmt.Errorf("%w: bill %s is closed", ErrInvalidArgument, bill.ID)
	}

	// A transfer is always created by its from_user; admins may record
	// transfers on a member's behalf.
	if p.FromUserID != actor.ID && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: transfers may only be created as yourself", ErrForbidden)
	}
	if err := s.requireMember(ctx, bill.RoomID, actor); err != nil {
		return nil, err
	}

	t = &models.PaymentTransfer{
		BillID:      bill.ID,
		Type:        p.Type,
		AmountCents: p.AmountCents,
		FromUserID:  p.FromUserID,
		ToUserID:    p.ToUserID,
		Note:        p.Note,
		Status:      models.TransferPending,
	}
	if err = s.store.CreateTransfer(ctx, t); err != nil {
		slog.Error("create transfer failed", "bill_id", bill.ID, "error", err)
		return nil, err
	}
	slog.Info("transfer created",
		"transfer_id", t.ID,
		"bill_id", t.BillID,
		"type", t.Type,
		"amount_cents", t.AmountCents,
	)
	return t, nil
}

// Confirm completes a pending transfer. Only the receiving party or an
// admin may confirm. The state check, status update, and bill aggregate
// guard run in a single store transaction; of two concurrent confirms,
// exactly one succeeds and the other observes ErrInvalidState.
func (s *TransferService) Confirm(ctx context.Context, actor models.Actor, transferID string) (t *models.PaymentTransfer, err error) {
	defer func() { s.metrics.TransferTransition("confirm", resultLabel(err)) }()

	current, err := s.store.GetTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if !Allow(actor, ActionConfirmTransfer, current) {
		return nil, fmt.Errorf("%w: only the receiving member or an admin may confirm", ErrForbidden)
	}

	t, err = s.store.CompleteTransfer(ctx, transferID, actor.ID)
	if err != nil {
		if errors.Is(err, ErrInvalidState) || errors.Is(err, ErrInvariantViolation) {
			slog.Warn("confirm rejected", "transfer_id", transferID, "error", err)
		} else {
			slog.Error("confirm failed", "transfer_id", transferID, "error", err)
		}
		return nil, err
	}
	slog.Info("transfer confirmed", "transfer_id", t.ID, "bill_id", t.BillID, "confirmed_by", actor.ID)
	return t, nil
}

// Cancel cancels a pending transfer. Either party or an admin may
// cancel. Cancelled transfers never count toward the bill's covered
// amount; the locking discipline is identical to Confirm.
func (s *TransferService) Cancel(ctx context.Context, actor models.Actor, transferID string) (t *models.PaymentTransfer, err error) {
	defer func() { s.metrics.TransferTransition("cancel", resultLabel(err)) }()

	current, err := s.store.GetTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if !Allow(actor, ActionCancelTransfer, current) {
		return nil, fmt.Errorf("%w: only a party to the transfer or an admin may cancel", ErrForbidden)
	}

	t, err = s.store.CancelTransfer(ctx, transferID, actor.ID)
	if err != nil {
		if errors.Is(err, ErrInvalidState) {
			slog.Warn("cancel rejected", "transfer_id", transferID, "error", err)
		} else {
			slog.Error("cancel failed", "transfer_id", transferID, "error", err)
		}
		return nil, err
	}
	slog.Info("transfer cancelled", "transfer_id", t.ID, "bill_id", t.BillID, "cancelled_by", actor.ID)
	return t, nil
}

// Get returns a transfer by ID.
func (s *TransferService) Get(ctx context.Context, transferID string) (*models.PaymentTransfer, error) {
	return s.store.GetTransfer(ctx, transferID)
}

// ListByBill returns the transfers recorded against a bill, newest first.
func (s *TransferService) ListByBill(ctx context.Context, billID string, limit, offset int) ([]*models.PaymentTransfer, error) {
	if _, err := s.store.GetBill(ctx, billID); err != nil {
		return nil, err
	}
	return s.store.ListTransfersByBill(ctx, billID, limit, offset)
}

func (s *TransferService) requireMember(ctx context.Context, roomID string, actor models.Actor) error {
	if actor.IsAdmin() {
		return nil
	}
	ok, err := s.store.IsRoomMember(ctx, roomID, actor.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: not a member of room %s", ErrForbidden, roomID)
	}
	return nil
}

// resultLabel classifies an operation outcome for metrics.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrInvariantViolation):
		return "invariant_violation"
	case errors.Is(err, ErrBusy):
		return "busy"
	default:
		return "error"
	}
}
