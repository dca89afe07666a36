package http

import (
	"net/http"
	"strconv"
	"time"

	"ledgerd/internal/core"
	"ledgerd/internal/log"
	"ledgerd/internal/services"
)

type createTransactionRequest struct {
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

type updateTransactionRequest struct {
	Type        *string `json:"type"`
	Amount      *string `json:"amount"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
}

type transactionResponse struct {
	ID          int64  `json:"id"`
	Type        string `json:"type"`
	Amount      string `json:"amount"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date"`
	PostedBy    string `json:"posted_by,omitempty"`
}

type summaryResponse struct {
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Net     string `json:"net"`
}

func transactionToResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		Type:        string(tx.Type),
		Amount:      tx.Amount.String(),
		Category:    tx.Category,
		Description: tx.Description,
		Date:        tx.Date.String(),
		PostedBy:    tx.PostedBy,
	}
}

func transactionsToResponse(txs []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionToResponse(tx))
	}
	return out
}

// transactionFromRequest builds an unvalidated core.Transaction; the
// service layer does the validation.
func transactionFromRequest(w http.ResponseWriter, req createTransactionRequest) (core.Transaction, bool) {
	amount, err := core.ParseMoney(req.Amount)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid amount: "+err.Error())
		return core.Transaction{}, false
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid date: expected YYYY-MM-DD")
		return core.Transaction{}, false
	}

	return core.Transaction{
		Type:        core.TxType(req.Type),
		Amount:      amount,
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
		Date:        date,
	}, true
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req createTransactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tx, ok := transactionFromRequest(w, req)
	if !ok {
		return
	}
	tx.Owner = core.UserOwner(userID)

	created, err := s.transactions.Create(r.Context(), tx)
	if err != nil {
		writeError(w, r, err)
		return
	}

	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogTransactionPosted(r.Context(), created.Owner, string(created.Type), created.Category, created.Amount.Cents)
	writeJSON(w, http.StatusCreated, transactionToResponse(created))
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	txs, err := s.transactions.List(r.Context(), core.UserOwner(userID))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, transactionsToResponse(txs))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	tx, err := s.transactions.Get(r.Context(), core.UserOwner(userID), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, transactionToResponse(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req updateTransactionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var upd services.TransactionUpdate
	if req.Type != nil {
		typ := core.TxType(*req.Type)
		upd.Type = &typ
	}
	if req.Amount != nil {
		amount, err := core.ParseMoney(*req.Amount)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid amount: "+err.Error())
			return
		}
		upd.Amount = &amount
	}
	if req.Category != nil {
		category := sanitizeInput(*req.Category)
		upd.Category = &category
	}
	if req.Description != nil {
		description := sanitizeInput(*req.Description)
		upd.Description = &description
	}
	if req.Date != nil {
		date, err := core.ParseDate(*req.Date)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid date: expected YYYY-MM-DD")
			return
		}
		upd.Date = &date
	}

	tx, err := s.transactions.Update(r.Context(), core.UserOwner(userID), id, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, transactionToResponse(tx))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := s.transactions.Delete(r.Context(), core.UserOwner(userID), id); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "deleted"})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	ref, ok := summaryRef(w, r, s.usage.Now())
	if !ok {
		return
	}

	sum, err := s.usage.MonthSummary(r.Context(), core.UserOwner(userID), ref)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		Income:  sum.Income.String(),
		Expense: sum.Expense.String(),
		Net:     sum.Net.String(),
	})
}

// summaryRef resolves the month to summarize. Without year/month query
// parameters it is the current month; with them, noon on the 15th keeps
// the reference inside the requested month in any timezone.
func summaryRef(w http.ResponseWriter, r *http.Request, now time.Time) (time.Time, bool) {
	yearStr := r.URL.Query().Get("year")
	monthStr := r.URL.Query().Get("month")
	if yearStr == "" && monthStr == "" {
		return now, true
	}

	year, err := strconv.Atoi(yearStr)
	if err != nil || year < 1 {
		writeJSONError(w, http.StatusBadRequest, "invalid year")
		return time.Time{}, false
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		writeJSONError(w, http.StatusBadRequest, "invalid month")
		return time.Time{}, false
	}

	return time.Date(year, time.Month(month), 15, 12, 0, 0, 0, now.Location()), true
}
