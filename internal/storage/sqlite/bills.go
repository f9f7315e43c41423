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

// CreateBill persists a new bill.
func (s *SQLiteStore) CreateBill(ctx context.Context, bill *models.Bill) error {
	if bill.ID == "" {
		bill.ID = uuid.New().String()
	}
	if bill.Status == "" {
		bill.Status = models.BillOpen
	}
	now := time.Now().Unix()
	if bill.CreatedAt == 0 {
		bill.CreatedAt = now
	}
	if bill.UpdatedAt == 0 {
		bill.UpdatedAt = bill.CreatedAt
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bills (id, room_id, title, total_cents, status, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		bill.ID, bill.RoomID, bill.Title, bill.TotalCents, bill.Status,
		bill.CreatedBy, bill.CreatedAt, bill.UpdatedAt,
	)
	if err != nil {
		return wrapErr("insert bill", err)
	}
	return nil
}

// GetBill retrieves a bill by its ID.
func (s *SQLiteStore) GetBill(ctx context.Context, billID string) (*models.Bill, error) {
	bill := &models.Bill{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, room_id, title, total_cents, status, created_by, created_at, updated_at
		 FROM bills WHERE id = ?`,
		billID,
	).Scan(&bill.ID, &bill.RoomID, &bill.Title, &bill.TotalCents, &bill.Status,
		&bill.CreatedBy, &bill.CreatedAt, &bill.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: bill %s", ledger.ErrNotFound, billID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get bill: %w", err)
	}
	return bill, nil
}

// CloseBill marks an open bill closed. Closing an already-closed bill
// fails with ErrInvalidState.
func (s *SQLiteStore) CloseBill(ctx context.Context, billID string) error {
	tx, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var status models.BillStatus
	err = tx.QueryRowContext(ctx, "SELECT status FROM bills WHERE id = ?", billID).Scan(&status)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: bill %s", ledger.ErrNotFound, billID)
	}
	if err != nil {
		return wrapErr("get bill", err)
	}
	if status != models.BillOpen {
		return fmt.Errorf("%w: bill already %s", ledger.ErrInvalidState, status)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE bills SET status = ?, updated_at = ? WHERE id = ?",
		models.BillClosed, time.Now().Unix(), billID,
	)
	if err != nil {
		return wrapErr("close bill", err)
	}

	return commit(tx)
}

// CoveredAmount returns the bill's covered amount in cents: the sum of
// completed transfer amounts plus completed payment amounts.
func (s *SQLiteStore) CoveredAmount(ctx context.Context, billID string) (int64, error) {
	if _, err := s.GetBill(ctx, billID); err != nil {
		return 0, err
	}
	return coveredAmount(ctx, s.db, billID)
}

// querier abstracts *sql.DB and *sql.Tx so the aggregate query can run
// both standalone and inside a transition's transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const coveredAmountQuery = `
SELECT
  COALESCE((SELECT SUM(amount_cents) FROM payment_transfers WHERE bill_id = ? AND status = 'completed'), 0) +
  COALESCE((SELECT SUM(amount_cents) FROM payments WHERE bill_id = ? AND status = 'completed'), 0)
`

func coveredAmount(ctx context.Context, q querier, billID string) (int64, error) {
	var covered int64
	if err := q.QueryRowContext(ctx, coveredAmountQuery, billID, billID).Scan(&covered); err != nil {
		return 0, wrapErr("compute covered amount", err)
	}
	return covered, nil
}

// checkBillAggregate is the bill aggregate guard. It must run inside the
// same transaction as any transition that increases the covered amount;
// on violation the caller rolls the whole transaction back.
func checkBillAggregate(ctx context.Context, tx *sql.Tx, billID string) error {
	var total int64
	err := tx.QueryRowContext(ctx, "SELECT total_cents FROM bills WHERE id = ?", billID).Scan(&total)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: bill %s", ledger.ErrNotFound, billID)
	}
	if err != nil {
		return wrapErr("get bill total", err)
	}

	covered, err := coveredAmount(ctx, tx, billID)
	if err != nil {
		return err
	}
	if covered > total {
		return fmt.Errorf("%w: covered %d exceeds total %d for bill %s",
			ledger.ErrInvariantViolation, covered, total, billID)
	}
	return nil
}
