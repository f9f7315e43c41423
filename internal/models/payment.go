package models

// SyncStatus is the reconciliation state of an OfflinePayment.
// Transitions: pending -> completed (terminal), pending -> failed,
// failed -> pending (retry).
type SyncStatus string

const (
	SyncPending   SyncStatus = "pending"
	SyncFailed    SyncStatus = "failed"
	SyncCompleted SyncStatus = "completed"
)

// PaymentSource records how a Payment entered the ledger.
type PaymentSource string

const (
	// PaymentSourceDirect is a payment recorded online.
	PaymentSourceDirect PaymentSource = "direct"

	// PaymentSourceOfflineSync is a payment produced by reconciling an
	// offline capture.
	PaymentSourceOfflineSync PaymentSource = "offline_sync"
)

// PaymentCompleted is the only payment status the reconciler writes.
const PaymentCompleted = "completed"

// OfflinePayment is a payment fact captured on a client without
// connectivity. It is reconciled into the authoritative Payment ledger by
// the sync flow and retained forever as the audit trail for disputes.
type OfflinePayment struct {
	// ID is the unique identifier for the capture (UUID format).
	ID string `json:"id"`

	// BillID is the bill the payment was made against.
	BillID string `json:"billId"`

	// UserID is the member who captured the payment.
	UserID string `json:"userId"`

	// AmountCents is the captured amount in integer cents. Always > 0.
	AmountCents int64 `json:"amountCents"`

	// PaymentMethod is the upstream method (e.g. "cash", "wechat").
	// The gateway itself is out of scope; this is an opaque label.
	PaymentMethod string `json:"paymentMethod"`

	// DeviceID identifies the capturing device.
	DeviceID string `json:"deviceId"`

	// Note is an optional free-form description.
	Note string `json:"note,omitempty"`

	// IsOffline is true while the capture has not been synced.
	IsOffline bool `json:"isOffline"`

	// SyncStatus is the reconciliation state (pending, failed, completed).
	SyncStatus SyncStatus `json:"syncStatus"`

	// FailureReason is set while SyncStatus is failed, cleared on retry.
	FailureReason string `json:"failureReason,omitempty"`

	// TransactionID is the upstream transaction id recorded at sync time.
	TransactionID string `json:"transactionId,omitempty"`

	// Receipt is the upstream receipt recorded at sync time.
	Receipt string `json:"receipt,omitempty"`

	// CapturedAt is the Unix timestamp the client captured the payment.
	CapturedAt int64 `json:"capturedAt"`

	// SyncedAt is the Unix timestamp of successful sync; 0 until synced.
	SyncedAt int64 `json:"syncedAt,omitempty"`
}

// Payment is the authoritative ledger entry for money received against a
// bill. At most one Payment is ever created from a given OfflinePayment.
type Payment struct {
	// ID is the unique identifier for the payment (UUID format).
	ID string `json:"id"`

	// BillID is the bill the payment applies to.
	BillID string `json:"billId"`

	// UserID is the paying member.
	UserID string `json:"userId"`

	// AmountCents is the paid amount in integer cents.
	AmountCents int64 `json:"amountCents"`

	// Status is always "completed" for reconciler-written payments.
	Status string `json:"status"`

	// PaymentMethod is the upstream method label.
	PaymentMethod string `json:"paymentMethod"`

	// Source is direct or offline_sync.
	Source PaymentSource `json:"source"`

	// OfflinePaymentID links back to the capture for synced payments.
	OfflinePaymentID string `json:"offlinePaymentId,omitempty"`

	// CreatedAt is the Unix timestamp the ledger entry was written.
	CreatedAt int64 `json:"createdAt"`
}
