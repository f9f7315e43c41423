package ledger_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roomledger/roomledger/internal/ledger"
	"github.com/roomledger/roomledger/internal/models"
	"github.com/roomledger/roomledger/internal/storage/sqlite"
)

// Fixed actors reused across the service tests. alice and bob share a
// room; mallory is in no room.
var (
	alice   = models.Actor{ID: "alice", Role: models.RoleMember}
	bob     = models.Actor{ID: "bob", Role: models.RoleMember}
	mallory = models.Actor{ID: "mallory", Role: models.RoleMember}
	admin   = models.Actor{ID: "root", Role: models.RoleAdmin}
)

type testEnv struct {
	store      *sqlite.SQLiteStore
	transfers  *ledger.TransferService
	reconciler *ledger.Reconciler
	bill       *models.Bill
}

// newTestEnv builds a fresh store with one room (alice, bob) and one
// open bill of the given total.
func newTestEnv(t *testing.T, totalCents int64) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	room := &models.Room{Name: "C-303", Members: []string{alice.ID, bob.ID}}
	if err := store.CreateRoom(ctx, room); err != nil {
		t.Fatalf("CreateRoom failed: %v", err)
	}
	bill := &models.Bill{
		RoomID:     room.ID,
		Title:      "Internet",
		TotalCents: totalCents,
		CreatedBy:  alice.ID,
	}
	if err := store.CreateBill(ctx, bill); err != nil {
		t.Fatalf("CreateBill failed: %v", err)
	}

	return &testEnv{
		store:      store,
		transfers:  ledger.NewTransferService(store, nil),
		reconciler: ledger.NewReconciler(store, nil),
		bill:       bill,
	}
}

func (e *testEnv) covered(t *testing.T) int64 {
	t.Helper()
	covered, err := e.store.CoveredAmount(context.Background(), e.bill.ID)
	if err != nil {
		t.Fatalf("CoveredAmount failed: %v", err)
	}
	return covered
}
