package ledger

import "github.com/roomledger/roomledger/internal/models"

// Action names an authorization-sensitive operation on a ledger record.
type Action string

const (
	ActionConfirmTransfer Action = "transfer.confirm"
	ActionCancelTransfer  Action = "transfer.cancel"
)

// Allow is the stateless authorization policy for ledger transitions,
// evaluated before any state mutation. It is deny-by-default: any
// action/resource pairing it does not recognize is denied.
//
// Room-membership checks (create/capture) are I/O-bound and live with
// the services; this policy only covers the per-record rules.
func Allow(actor models.Actor, action Action, resource any) bool {
	switch action {
	case ActionConfirmTransfer:
		t, ok := resource.(*models.PaymentTransfer)
		if !ok {
			return false
		}
		// The receiving party attests that funds arrived; an admin may
		// override for dispute resolution.
		return actor.ID == t.ToUserID || actor.IsAdmin()

	case ActionCancelTransfer:
		t, ok := resource.(*models.PaymentTransfer)
		if !ok {
			return false
		}
		return actor.ID == t.FromUserID || actor.ID == t.ToUserID || actor.IsAdmin()
	}

	return false
}
