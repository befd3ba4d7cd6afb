package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"roomledger/internal/core"
)

type expenseResponse struct {
	ID          string  `json:"id"`
	Description string  `json:"description"`
	Amount      string  `json:"amount"`
	Category    string  `json:"category"`
	Date        string  `json:"date"`
	RoomID      string  `json:"roomId"`
	AddedBy     string  `json:"addedById"`
	AddedByName string  `json:"addedByName,omitempty"`
	Status      string  `json:"status"`
	ApprovedBy  string  `json:"approvedById,omitempty"`
	ApprovedAt  *string `json:"approvedAt,omitempty"`
}

type auditEntryResponse struct {
	ID        string `json:"id"`
	ExpenseID string `json:"expenseId"`
	RoomID    string `json:"roomId"`
	EventType string `json:"eventType"`
	Status    string `json:"status"`
	ActorID   string `json:"actorId,omitempty"`
	CreatedAt string `json:"createdAt"`
}

func toExpenseResponse(e core.Expense, memberNames map[string]string) expenseResponse {
	resp := expenseResponse{
		ID:          e.ID,
		Description: e.Description,
		Amount:      formatCents(e.Amount.Cents),
		Category:    e.Category,
		Date:        e.Date,
		RoomID:      e.RoomID,
		AddedBy:     e.AddedBy,
		Status:      string(e.Status),
		ApprovedBy:  e.ApprovedBy,
	}
	if memberNames != nil {
		resp.AddedByName = memberNames[e.AddedBy]
	}
	if e.ApprovedAt != nil {
		formatted := e.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &formatted
	}
	return resp
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Description string `json:"description"`
		Amount      string `json:"amount"`
		Category    string `json:"category"`
		Date        string `json:"date"`
		AddedBy     string `json:"addedById"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid amount: "+err.Error())
		return
	}

	expense := core.Expense{
		Description: req.Description,
		Amount:      core.Money{Cents: cents},
		Category:    req.Category,
		Date:        req.Date,
		RoomID:      chi.URLParam(r, "roomID"),
		AddedBy:     req.AddedBy,
	}

	created, err := s.expenses.CreateExpense(r.Context(), expense)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, toExpenseResponse(created, nil))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")

	expenses, err := s.expenses.ListExpenses(r.Context(), roomID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	names, err := s.memberNames(r, roomID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e, names))
	}
	respondJSON(w, http.StatusOK, out)
}

// handleSetExpenseStatus applies an approval decision. Only the room manager
// may decide; the check lives here rather than in the transition itself.
func (s *Server) handleSetExpenseStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status     string `json:"status"`
		ApproverID string `json:"approverId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	expenseID := chi.URLParam(r, "expenseID")

	expense, err := s.expenses.GetExpense(r.Context(), expenseID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	approver, err := s.rooms.GetMember(r.Context(), req.ApproverID)
	if err != nil || approver.RoomID != expense.RoomID || !approver.IsManager {
		respondError(w, http.StatusForbidden, "only the room manager can change expense status")
		return
	}

	updated, err := s.expenses.SetExpenseStatus(r.Context(), expenseID, req.Status, req.ApproverID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toExpenseResponse(updated, nil))
}

func (s *Server) handleAuditTrail(w http.ResponseWriter, r *http.Request) {
	entries, err := s.storage.ListAuditEntries(r.Context(), chi.URLParam(r, "expenseID"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	out := make([]auditEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, auditEntryResponse{
			ID:        entry.ID,
			ExpenseID: entry.ExpenseID,
			RoomID:    entry.RoomID,
			EventType: entry.EventType,
			Status:    string(entry.Status),
			ActorID:   entry.ActorID,
			CreatedAt: entry.CreatedAt.Format(time.RFC3339),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) memberNames(r *http.Request, roomID string) (map[string]string, error) {
	members, err := s.rooms.ListMembers(r.Context(), roomID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}
	return names, nil
}
