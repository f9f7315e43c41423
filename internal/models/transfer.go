package models

// TransferType classifies how a transfer moves money against a bill.
type TransferType string

const (
	// TransferSelfPay records a member covering their own share.
	// The only type where from and to may be the same user.
	TransferSelfPay TransferType = "self_pay"

	// TransferMultiplePayers records one of several members paying a
	// portion of a bill to the member who fronted it.
	TransferMultiplePayers TransferType = "multiple_payers"

	// TransferPayerTransfer records a direct member-to-member repayment.
	TransferPayerTransfer TransferType = "payer_transfer"
)

// Valid reports whether t is one of the known transfer types.
func (t TransferType) Valid() bool {
	switch t {
	case TransferSelfPay, TransferMultiplePayers, TransferPayerTransfer:
		return true
	}
	return false
}

// TransferStatus is the lifecycle state of a PaymentTransfer.
// Transitions are one-way: pending -> completed or pending -> cancelled.
type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferCompleted TransferStatus = "completed"
	TransferCancelled TransferStatus = "cancelled"
)

// PaymentTransfer is a directed money movement claim tied to a bill.
// It is created pending by the paying member and confirmed by the
// receiving member (or an admin). Completed and cancelled are terminal.
// Transfers are never deleted; they form the audit trail.
type PaymentTransfer struct {
	// ID is the unique identifier for the transfer (UUID format).
	ID string `json:"id"`

	// BillID is the bill this transfer is claimed against.
	BillID string `json:"billId"`

	// Type is the transfer type (self_pay, multiple_payers, payer_transfer).
	Type TransferType `json:"transferType"`

	// AmountCents is the transfer amount in integer cents. Always > 0.
	AmountCents int64 `json:"amountCents"`

	// FromUserID is the member claiming to have paid.
	FromUserID string `json:"fromUserId"`

	// ToUserID is the member who should receive (and confirm) the money.
	// Equal to FromUserID only for self_pay.
	ToUserID string `json:"toUserId"`

	// Note is an optional free-form description.
	Note string `json:"note,omitempty"`

	// Status is the lifecycle state (pending, completed, cancelled).
	Status TransferStatus `json:"status"`

	// CreatedAt is the Unix timestamp when the transfer was created.
	CreatedAt int64 `json:"createdAt"`

	// ConfirmedAt is the Unix timestamp of confirmation; 0 until confirmed.
	ConfirmedAt int64 `json:"confirmedAt,omitempty"`

	// ConfirmedBy is the actor who confirmed; empty until confirmed.
	ConfirmedBy string `json:"confirmedBy,omitempty"`

	// CancelledAt is the Unix timestamp of cancellation; 0 unless cancelled.
	CancelledAt int64 `json:"cancelledAt,omitempty"`

	// CancelledBy is the actor who cancelled; empty unless cancelled.
	CancelledBy string `json:"cancelledBy,omitempty"`
}

// Terminal reports whether the transfer is in a terminal state.
func (t *PaymentTransfer) Terminal() bool {
	return t.Status == TransferCompleted || t.Status == TransferCancelled
}
