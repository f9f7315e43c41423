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

const offlinePaymentColumns = `id, bill_id, user_id, amount_cents, payment_method, device_id, note,
	is_offline, sync_status, failure_reason, transaction_id, receipt, captured_at, synced_at`

// CreateOfflinePayment persists a new offline capture.
func (s *SQLiteStore) CreateOfflinePayment(ctx context.Context, op *models.OfflinePayment) error {
	if op.ID == "" {
		op.ID = uuid.New().String()
	}
	if op.SyncStatus == "" {
		op.SyncStatus = models.SyncPending
	}
	if op.CapturedAt == 0 {
		op.CapturedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO offline_payments (id, bill_id, user_id, amount_cents, payment_method, device_id, note, is_offline, sync_status, captured_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		op.ID, op.BillID, op.UserID, op.AmountCents, op.PaymentMethod, op.DeviceID,
		nullable(op.Note), op.IsOffline, op.SyncStatus, op.CapturedAt,
	)
	if err != nil {
		return wrapErr("insert offline payment", err)
	}
	return nil
}

// GetOfflinePayment retrieves an offline capture by ID.
func (s *SQLiteStore) GetOfflinePayment(ctx context.Context, id string) (*models.OfflinePayment, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+offlinePaymentColumns+" FROM offline_payments WHERE id = ?",
		id,
	)
	op, err := scanOfflinePayment(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: offline payment %s", ledger.ErrNotFound, id)
	}
	if err != nil {
		return nil, wrapErr("get offline payment", err)
	}
	return op, nil
}

// ListOfflinePayments retrieves captures matching the filter, newest
// capture first.
func (s *SQLiteStore) ListOfflinePayments(ctx context.Context, filter ledger.OfflinePaymentFilter) ([]*models.OfflinePayment, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := "SELECT " + offlinePaymentColumns + " FROM offline_payments WHERE 1=1"
	var args []any
	if filter.BillID != "" {
		query += " AND bill_id = ?"
		args = append(args, filter.BillID)
	}
	if filter.SyncStatus != "" {
		query += " AND sync_status = ?"
		args = append(args, filter.SyncStatus)
	}
	query += " ORDER BY captured_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list offline payments: %w", err)
	}
	defer rows.Close()

	var ops []*models.OfflinePayment
	for rows.Next() {
		op, err := scanOfflinePayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offline payment: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate offline payments: %w", err)
	}
	return ops, nil
}

// ListPendingSync retrieves pending captures ordered oldest first, using
// (captured_at, id) keyset pagination so a sweep can resume mid-backlog.
func (s *SQLiteStore) ListPendingSync(ctx context.Context, afterCapturedAt int64, afterID string, limit int) ([]*models.OfflinePayment, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+offlinePaymentColumns+` FROM offline_payments
		 WHERE sync_status = ? AND (captured_at > ? OR (captured_at = ? AND id > ?))
		 ORDER BY captured_at, id LIMIT ?`,
		models.SyncPending, afterCapturedAt, afterCapturedAt, afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending sync: %w", err)
	}
	defer rows.Close()

	var ops []*models.OfflinePayment
	for rows.Next() {
		op, err := scanOfflinePayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan offline payment: %w", err)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending sync: %w", err)
	}
	return ops, nil
}

// CompleteSync atomically creates the authoritative Payment row, marks
// the capture completed, and verifies the bill aggregate guard — all in
// one write-locked transaction. A crash before commit leaves the capture
// pending so the sweep retries it; the payments.offline_payment_id
// UNIQUE constraint backstops exactly-once at the schema level.
func (s *SQLiteStore) CompleteSync(ctx context.Context, id, transactionID, receipt string) (*models.OfflinePayment, *models.Payment, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	op, err := getOfflinePaymentTx(ctx, tx, id)
	if err != nil {
		return nil, nil, err
	}
	if op.SyncStatus != models.SyncPending {
		return nil, nil, fmt.Errorf("%w: offline payment already %s", ledger.ErrInvalidState, op.SyncStatus)
	}

	now := time.Now().Unix()
	payment := &models.Payment{
		ID:               uuid.New().String(),
		BillID:           op.BillID,
		UserID:           op.UserID,
		AmountCents:      op.AmountCents,
		Status:           models.PaymentCompleted,
		PaymentMethod:    op.PaymentMethod,
		Source:           models.PaymentSourceOfflineSync,
		OfflinePaymentID: op.ID,
		CreatedAt:        now,
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO payments (id, bill_id, user_id, amount_cents, status, payment_method, source, offline_payment_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID, payment.BillID, payment.UserID, payment.AmountCents, payment.Status,
		payment.PaymentMethod, payment.Source, payment.OfflinePaymentID, payment.CreatedAt,
	)
	if err != nil {
		return nil, nil, wrapErr("insert payment", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE offline_payments
		 SET sync_status = ?, is_offline = 0, synced_at = ?, transaction_id = ?, receipt = ?, failure_reason = NULL
		 WHERE id = ?`,
		models.SyncCompleted, now, nullable(transactionID), nullable(receipt), id,
	)
	if err != nil {
		return nil, nil, wrapErr("update offline payment", err)
	}

	if err := checkBillAggregate(ctx, tx, op.BillID); err != nil {
		return nil, nil, err
	}

	if err := commit(tx); err != nil {
		return nil, nil, err
	}

	op.SyncStatus = models.SyncCompleted
	op.IsOffline = false
	op.SyncedAt = now
	op.TransactionID = transactionID
	op.Receipt = receipt
	op.FailureReason = ""
	return op, payment, nil
}

// FailSync marks a pending capture failed with the given reason.
func (s *SQLiteStore) FailSync(ctx context.Context, id, reason string) (*models.OfflinePayment, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	op, err := getOfflinePaymentTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if op.SyncStatus != models.SyncPending {
		return nil, fmt.Errorf("%w: offline payment already %s", ledger.ErrInvalidState, op.SyncStatus)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE offline_payments SET sync_status = ?, failure_reason = ? WHERE id = ?",
		models.SyncFailed, reason, id,
	)
	if err != nil {
		return nil, wrapErr("mark sync failed", err)
	}

	if err := commit(tx); err != nil {
		return nil, err
	}

	op.SyncStatus = models.SyncFailed
	op.FailureReason = reason
	return op, nil
}

// ResetSync returns a failed capture to pending, clearing the failure
// reason. Only failed records can be retried.
func (s *SQLiteStore) ResetSync(ctx context.Context, id string) (*models.OfflinePayment, error) {
	tx, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	op, err := getOfflinePaymentTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if op.SyncStatus != models.SyncFailed {
		return nil, fmt.Errorf("%w: only failed records can be retried, offline payment is %s", ledger.ErrInvalidState, op.SyncStatus)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE offline_payments SET sync_status = ?, failure_reason = NULL WHERE id = ?",
		models.SyncPending, id,
	)
	if err != nil {
		return nil, wrapErr("reset sync", err)
	}

	if err := commit(tx); err != nil {
		return nil, err
	}

	op.SyncStatus = models.SyncPending
	op.FailureReason = ""
	return op, nil
}

// GetPayment retrieves an authoritative ledger entry by ID.
func (s *SQLiteStore) GetPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, bill_id, user_id, amount_cents, status, payment_method, source, offline_payment_id, created_at
		 FROM payments WHERE id = ?`,
		paymentID,
	)
	p, err := scanPayment(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: payment %s", ledger.ErrNotFound, paymentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// ListPaymentsByBill retrieves ledger entries for a bill, newest first.
func (s *SQLiteStore) ListPaymentsByBill(ctx context.Context, billID string, limit, offset int) ([]*models.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, bill_id, user_id, amount_cents, status, payment_method, source, offline_payment_id, created_at
		 FROM payments WHERE bill_id = ? ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		billID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}

func getOfflinePaymentTx(ctx context.Context, tx *sql.Tx, id string) (*models.OfflinePayment, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+offlinePaymentColumns+" FROM offline_payments WHERE id = ?",
		id,
	)
	op, err := scanOfflinePayment(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: offline payment %s", ledger.ErrNotFound, id)
	}
	if err != nil {
		return nil, wrapErr("get offline payment", err)
	}
	return op, nil
}

func scanOfflinePayment(row scanner) (*models.OfflinePayment, error) {
	op := &models.OfflinePayment{}
	var note, failureReason, transactionID, receipt sql.NullString
	var syncedAt sql.NullInt64

	err := row.Scan(&op.ID, &op.BillID, &op.UserID, &op.AmountCents, &op.PaymentMethod, &op.DeviceID,
		&note, &op.IsOffline, &op.SyncStatus, &failureReason, &transactionID, &receipt,
		&op.CapturedAt, &syncedAt)
	if err != nil {
		return nil, err
	}

	op.Note = note.String
	op.FailureReason = failureReason.String
	op.TransactionID = transactionID.String
	op.Receipt = receipt.String
	op.SyncedAt = syncedAt.Int64
	return op, nil
}

func scanPayment(row scanner) (*models.Payment, error) {
	p := &models.Payment{}
	var offlinePaymentID sql.NullString

	err := row.Scan(&p.ID, &p.BillID, &p.UserID, &p.AmountCents, &p.Status,
		&p.PaymentMethod, &p.Source, &offlinePaymentID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}

	p.OfflinePaymentID = offlinePaymentID.String
	return p, nil
}
