package ledger_test

import (
	"testing"

	"github.com/roomledger/roomledger/internal/ledger"
	"github.com/roomledger/roomledger/internal/models"
)

func TestAllow(t *testing.T) {
	transfer := &models.PaymentTransfer{
		ID:         "t1",
		FromUserID: alice.ID,
		ToUserID:   bob.ID,
	}

	tests := []struct {
		name     string
		actor    models.Actor
		action   ledger.Action
		resource any
		want     bool
	}{
		{"receiver confirms", bob, ledger.ActionConfirmTransfer, transfer, true},
		{"sender cannot confirm", alice, ledger.ActionConfirmTransfer, transfer, false},
		{"outsider cannot confirm", mallory, ledger.ActionConfirmTransfer, transfer, false},
		{"admin confirms", admin, ledger.ActionConfirmTransfer, transfer, true},

		{"sender cancels", alice, ledger.ActionCancelTransfer, transfer, true},
		{"receiver cancels", bob, ledger.ActionCancelTransfer, transfer, true},
		{"outsider cannot cancel", mallory, ledger.ActionCancelTransfer, transfer, false},
		{"admin cancels", admin, ledger.ActionCancelTransfer, transfer, true},

		{"unknown action denied", admin, ledger.Action("transfer.delete"), transfer, false},
		{"wrong resource type denied", admin, ledger.ActionConfirmTransfer, "t1", false},
		{"nil resource denied", admin, ledger.ActionConfirmTransfer, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ledger.Allow(tt.actor, tt.action, tt.resource); got != tt.want {
				t.Errorf("Allow(%s, %s) = %v, want %v", tt.actor.ID, tt.action, got, tt.want)
			}
		})
	}
}
