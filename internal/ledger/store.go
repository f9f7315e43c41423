package ledger

import (
	"context"

	"github.com/roomledger/roomledger/internal/models"
)

// OfflinePaymentFilter narrows ListOfflinePayments.
type OfflinePaymentFilter struct {
	// BillID, when set, restricts results to one bill.
	BillID string

	// SyncStatus, when set, restricts results to one sync state.
	SyncStatus models.SyncStatus

	// Limit and Offset paginate; Limit <= 0 means the store default.
	Limit  int
	Offset int
}

// Store defines the persistence operations the ledger core needs.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL,
// etc.) without changing the service layer.
//
// Transition methods (CompleteTransfer, CancelTransfer, CompleteSync,
// FailSync, ResetSync) must each run as a single atomic transaction that
// re-reads the record under a write lock, checks its state, applies the
// mutation, and — where the covered amount grows — verifies the bill
// aggregate invariant before committing. They return ErrInvalidState when
// the record is not in the expected state, ErrInvariantViolation when the
// bill total would be exceeded, and ErrBusy when the lock cannot be
// acquired within the store's timeout.
type Store interface {
	// Rooms and membership.
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, roomID string) (*models.Room, error)
	AddRoomMembers(ctx context.Context, roomID string, userIDs []string) error
	IsRoomMember(ctx context.Context, roomID, userID string) (bool, error)

	// Users.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Bills. CoveredAmount returns the sum of completed transfer and
	// payment amounts for the bill, in cents.
	CreateBill(ctx context.Context, bill *models.Bill) error
	GetBill(ctx context.Context, billID string) (*models.Bill, error)
	CloseBill(ctx context.Context, billID string) error
	CoveredAmount(ctx context.Context, billID string) (int64, error)

	// Payment transfers. Transfers are never deleted.
	CreateTransfer(ctx context.Context, t *models.PaymentTransfer) error
	GetTransfer(ctx context.Context, transferID string) (*models.PaymentTransfer, error)
	ListTransfersByBill(ctx context.Context, billID string, limit, offset int) ([]*models.PaymentTransfer, error)
	CompleteTransfer(ctx context.Context, transferID, confirmedBy string) (*models.PaymentTransfer, error)
	CancelTransfer(ctx context.Context, transferID, cancelledBy string) (*models.PaymentTransfer, error)

	// Offline payments. CompleteSync atomically writes the Payment row
	// and marks the capture completed; the two never commit separately.
	CreateOfflinePayment(ctx context.Context, op *models.OfflinePayment) error
	GetOfflinePayment(ctx context.Context, id string) (*models.OfflinePayment, error)
	ListOfflinePayments(ctx context.Context, filter OfflinePaymentFilter) ([]*models.OfflinePayment, error)
	ListPendingSync(ctx context.Context, afterCapturedAt int64, afterID string, limit int) ([]*models.OfflinePayment, error)
	CompleteSync(ctx context.Context, id, transactionID, receipt string) (*models.OfflinePayment, *models.Payment, error)
	FailSync(ctx context.Context, id, reason string) (*models.OfflinePayment, error)
	ResetSync(ctx context.Context, id string) (*models.OfflinePayment, error)

	// Payments (authoritative ledger entries).
	GetPayment(ctx context.Context, paymentID string) (*models.Payment, error)
	ListPaymentsByBill(ctx context.Context, billID string, limit, offset int) ([]*models.Payment, error)

	// Close releases any resources held by the store.
	Close() error
}
