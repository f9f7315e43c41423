package models

// Room represents a dormitory room whose members share expenses.
// Bills are always owned by a room, and only room members may create
// transfers or capture payments against its bills.
type Room struct {
	// ID is the unique identifier for the room (UUID format).
	ID string `json:"id"`

	// Name is the display name of the room (e.g. "B-214").
	Name string `json:"name"`

	// Members is the list of member user IDs.
	Members []string `json:"members"`

	// CreatedAt is the Unix timestamp when the room was created.
	CreatedAt int64 `json:"createdAt"`
}
