package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roomledger/roomledger/internal/ledger"
	"github.com/roomledger/roomledger/internal/models"
)

const transferColumns = `id, bill_id, transfer_type, amount_cents, from_user_id, to_user_id,
	note, status, created_at, confirmed_at, confirmed_by, cancelled_at, cancelled_by`

// CreateTransfer persists a new payment transfer.
func (s *SQLiteStore) CreateTransfer(ctx context.Context, t *models.PaymentTransfer) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if t.Status == "" {
		t.Status = models.TransferPending
	}
	if t.CreatedAt == 0 {
		t.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payment_transfers (id, bill_id, transfer_type, amount_cents, from_user_id, to_user_id, note, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.BillID, t.Type, t.AmountCents, t.FromUserID, t.ToUserID,
		nullable(t.Note), t.Status, t.CreatedAt,
	)
	if err != nil {
		return wrapErr("insert transfer", err)
	}
	return nil
}

// GetTransfer retrieves a transfer by ID.
func (s *SQLiteStore) GetTransfer(ctx context.Context, transferID string) (*models.PaymentTransfer, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+transferColumns+" FROM payment_transfers WHERE id = ?",
		transferID,
	)
	t, err := scanTransfer(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: transfer %s", ledger.ErrNotFound, transferID)
	}
	if err != nil {
		return nil, wrapErr("get transfer", err)
	}
	return t, nil
}

// ListTransfersByBill retrieves transfers against a bill, newest first.
func (s *SQLiteStore) ListTransfersByBill(ctx context.Context, billID string, limit, offset int) ([]*models.PaymentTransfer, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+transferColumns+" FROM payment_transfers WHERE bill_id = ? ORDER BY created_at DESC, id LIMIT ? OFFSET ?",
		billID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transfers: %w", err)
	}
	defer rows.Close()

	var transfers []*models.PaymentTransfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transfer: %w", err)
		}
		transfers = append(transfers, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transfers: %w", err)
	}
	return transfers, nil
}

// CompleteTransfer atomically moves a pending transfer to completed and
// verifies the bill aggregate guard. The state check and update happen
// inside one write-locked transaction, so of two concurrent confirm (or
// confirm/cancel) calls only one wins; the loser gets ErrInvalidState.
func (s *SQLiteStore) CompleteTransfer(ctx context.Context, transferID, confirmedBy string) (*models.PaymentTransfer, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	t, err := getTransferTx(ctx, tx, transferID)
	if err != nil {
		return nil, err
	}
	if t.Status != models.TransferPending {
		return nil, fmt.Errorf("%w: transfer already %s", ledger.ErrInvalidState, t.Status)
	}

	now := time.Now().Unix()
	_, err = tx.ExecContext(ctx,
		"UPDATE payment_transfers SET status = ?, confirmed_at = ?, confirmed_by = ? WHERE id = ?",
		models.TransferCompleted, now, confirmedBy, transferID,
	)
	if err != nil {
		return nil, wrapErr("complete transfer", err)
	}

	if err := checkBillAggregate(ctx, tx, t.BillID); err != nil {
		return nil, err
	}

	if err := commit(tx); err != nil {
		return nil, err
	}

	t.Status = models.TransferCompleted
	t.ConfirmedAt = now
	t.ConfirmedBy = confirmedBy
	return t, nil
}

// CancelTransfer atomically moves a pending transfer to cancelled.
// Cancelled transfers never count toward the covered amount, so no
// aggregate check is needed; the locking discipline matches
// CompleteTransfer.
func (s *SQLiteStore) CancelTransfer(ctx context.Context, transferID, cancelledBy string) (*models.PaymentTransfer, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	t, err := getTransferTx(ctx, tx, transferID)
	if err != nil {
		return nil, err
	}
	if t.Status != models.TransferPending {
		return nil, fmt.Errorf("%w: transfer already %s", ledger.ErrInvalidState, t.Status)
	}

	now := time.Now().Unix()
	_, err = tx.ExecContext(ctx,
		"UPDATE payment_transfers SET status = ?, cancelled_at = ?, cancelled_by = ? WHERE id = ?",
		models.TransferCancelled, now, cancelledBy, transferID,
	)
	if err != nil {
		return nil, wrapErr("cancel transfer", err)
	}

	if err := commit(tx); err != nil {
		return nil, err
	}

	t.Status = models.TransferCancelled
	t.CancelledAt = now
	t.CancelledBy = cancelledBy
	return t, nil
}

func getTransferTx(ctx context.Context, tx *sql.Tx, transferID string) (*models.PaymentTransfer, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+transferColumns+" FROM payment_transfers WHERE id = ?",
		transferID,
	)
	t, err := scanTransfer(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: transfer %s", ledger.ErrNotFound, transferID)
	}
	if err != nil {
		return nil, wrapErr("get transfer", err)
	}
	return t, nil
}

func scanTransfer(row scanner) (*models.PaymentTransfer, error) {
	t := &models.PaymentTransfer{}
	var note, confirmedBy, cancelledBy sql.NullString
	var confirmedAt, cancelledAt sql.NullInt64

	err := row.Scan(&t.ID, &t.BillID, &t.Type, &t.AmountCents, &t.FromUserID, &t.ToUserID,
		&note, &t.Status, &t.CreatedAt, &confirmedAt, &confirmedBy, &cancelledAt, &cancelledBy)
	if err != nil {
		return nil, err
	}

	t.Note = note.String
	t.ConfirmedAt = confirmedAt.Int64
	t.ConfirmedBy = confirmedBy.String
	t.CancelledAt = cancelledAt.Int64
	t.CancelledBy = cancelledBy.String
	return t, nil
}
