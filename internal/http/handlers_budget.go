package http

import (
	"net/http"

	"ledgerd/internal/core"
	"ledgerd/internal/services"
)

type createBudgetRequest struct {
	Category string `json:"category"`
	Limit    string `json:"limit"`
}

type updateBudgetRequest struct {
	Category *string `json:"category"`
	Limit    *string `json:"limit"`
}

type budgetResponse struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
	Limit    string `json:"limit"`
}

type budgetUsageResponse struct {
	budgetResponse
	UsedAmount string `json:"used_amount"`
}

func budgetToResponse(b core.Budget) budgetResponse {
	return budgetResponse{
		ID:       b.ID,
		Category: b.Category,
		Limit:    b.Limit.String(),
	}
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req createBudgetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	limit, err := core.ParseMoney(req.Limit)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid limit: "+err.Error())
		return
	}

	b, err := s.budgets.Create(r.Context(), core.UserOwner(userID), sanitizeInput(req.Category), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, budgetToResponse(b))
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	enriched, err := s.usage.EnrichBudgets(r.Context(), core.UserOwner(userID))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, budgetsToUsageResponse(enriched))
}

func budgetsToUsageResponse(enriched []core.BudgetUsage) []budgetUsageResponse {
	out := make([]budgetUsageResponse, 0, len(enriched))
	for _, bu := range enriched {
		out = append(out, budgetUsageResponse{
			budgetResponse: budgetToResponse(bu.Budget),
			UsedAmount:     bu.Used.String(),
		})
	}
	return out
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req updateBudgetRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var upd services.BudgetUpdate
	if req.Category != nil {
		category := sanitizeInput(*req.Category)
		upd.Category = &category
	}
	if req.Limit != nil {
		limit, err := core.ParseMoney(*req.Limit)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid limit: "+err.Error())
			return
		}
		upd.Limit = &limit
	}

	b, err := s.budgets.Update(r.Context(), core.UserOwner(userID), id, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, budgetToResponse(b))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := s.budgets.Delete(r.Context(), core.UserOwner(userID), id); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "deleted"})
}
