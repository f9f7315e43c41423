package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/roomledger/roomledger/internal/ledger"
	"github.com/roomledger/roomledger/internal/models"
)

func (a *API) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	var req struct {
		Name    string   `json:"name"`
		Members []string `json:"members"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		writeErrorMessage(w, http.StatusBadRequest, "name is required")
		return
	}

	// The creator is always a member of their own room.
	members := req.Members
	found := false
	for _, m := range members {
		if m == actor.ID {
			found = true
			break
		}
	}
	if !found {
		members = append(members, actor.ID)
	}

	room := &models.Room{Name: req.Name, Members: members}
	if err := a.store.CreateRoom(r.Context(), room); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

func (a *API) handleAddRoomMembers(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	roomID := mux.Vars(r)["id"]

	var req struct {
		Members []string `json:"members"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Members) == 0 {
		writeErrorMessage(w, http.StatusBadRequest, "members is required")
		return
	}

	if err := a.requireRoomMember(r, roomID, actor); err != nil {
		writeError(w, err)
		return
	}
	if err := a.store.AddRoomMembers(r.Context(), roomID, req.Members); err != nil {
		writeError(w, err)
		return
	}

	room, err := a.store.GetRoom(r.Context(), roomID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (a *API) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	var req struct {
		RoomID     string `json:"roomId"`
		Title      string `json:"title"`
		TotalCents int64  `json:"totalCents"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Title == "" {
		writeErrorMessage(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.TotalCents <= 0 {
		writeErrorMessage(w, http.StatusBadRequest, "totalCents must be positive")
		return
	}

	if err := a.requireRoomMember(r, req.RoomID, actor); err != nil {
		writeError(w, err)
		return
	}

	bill := &models.Bill{
		RoomID:     req.RoomID,
		Title:      req.Title,
		TotalCents: req.TotalCents,
		Status:     models.BillOpen,
		CreatedBy:  actor.ID,
	}
	if err := a.store.CreateBill(r.Context(), bill); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bill)
}

func (a *API) handleGetBill(w http.ResponseWriter, r *http.Request) {
	bill, err := a.store.GetBill(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

func (a *API) handleCloseBill(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	billID := mux.Vars(r)["id"]

	bill, err := a.store.GetBill(r.Context(), billID)
	if err != nil {
		writeError(w, err)
		return
	}
	if bill.CreatedBy != actor.ID && !actor.IsAdmin() {
		writeError(w, fmt.Errorf("%w: only the bill creator or an admin may close it", ledger.ErrForbidden))
		return
	}

	if err := a.store.CloseBill(r.Context(), billID); err != nil {
		writeError(w, err)
		return
	}

	bill, err = a.store.GetBill(r.Context(), billID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bill)
}

func (a *API) handleBillCovered(w http.ResponseWriter, r *http.Request) {
	billID := mux.Vars(r)["id"]

	bill, err := a.store.GetBill(r.Context(), billID)
	if err != nil {
		writeError(w, err)
		return
	}
	covered, err := a.store.CoveredAmount(r.Context(), billID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"billId":         bill.ID,
		"totalCents":     bill.TotalCents,
		"coveredCents":   covered,
		"remainingCents": bill.TotalCents - covered,
	})
}

func (a *API) handleSplitSuggestion(w http.ResponseWriter, r *http.Request) {
	billID := mux.Vars(r)["id"]

	bill, err := a.store.GetBill(r.Context(), billID)
	if err != nil {
		writeError(w, err)
		return
	}
	room, err := a.store.GetRoom(r.Context(), bill.RoomID)
	if err != nil {
		writeError(w, err)
		return
	}

	shares, err := ledger.SuggestEqualSplit(bill.TotalCents, room.Members)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"billId": bill.ID,
		"shares": shares,
	})
}

func (a *API) requireRoomMember(r *http.Request, roomID string, actor models.Actor) error {
	if actor.IsAdmin() {
		return nil
	}
	if _, err := a.store.GetRoom(r.Context(), roomID); err != nil {
		return err
	}
	ok, err := a.store.IsRoomMember(r.Context(), roomID, actor.ID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: not a member of room %s", ledger.ErrForbidden, roomID)
	}
	return nil
}
