package models

// BillStatus is the lifecycle state of a bill.
type BillStatus string

const (
	BillOpen   BillStatus = "open"
	BillClosed BillStatus = "closed"
)

// Bill represents a shared charge within a room. The total is the fixed
// amount to be covered by transfers and payments; it becomes immutable
// once any transfer or payment against it completes.
type Bill struct {
	// ID is the unique identifier for the bill (UUID format).
	ID string `json:"id"`

	// RoomID is the room this bill belongs to.
	RoomID string `json:"roomId"`

	// Title is the human-readable name for the bill.
	Title string `json:"title"`

	// TotalCents is the full charge in integer cents.
	TotalCents int64 `json:"totalCents"`

	// Status is open while the bill accepts new transfers and captures.
	Status BillStatus `json:"status"`

	// CreatedBy is the user ID who created the bill.
	CreatedBy string `json:"createdBy"`

	// CreatedAt is the Unix timestamp when the bill was created.
	CreatedAt int64 `json:"createdAt"`

	// UpdatedAt is the Unix timestamp of the last status change.
	UpdatedAt int64 `json:"updatedAt"`
}
