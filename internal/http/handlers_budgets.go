package http

import (
	"net/http"

	"moneta/internal/core"
	"moneta/internal/ledger"
)

type budgetRequest struct {
	Amount string `json:"amount"` // unsigned decimal, monthly target
}

type budgetResponse struct {
	CategoryID  string `json:"categoryId"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amountCents"`
}

type budgetStatusResponse struct {
	CategoryID string `json:"categoryId"`
	Name       string `json:"name"`
	Spent      string `json:"spent"`
	Budget     string `json:"budget"`
	Remaining  string `json:"remaining"`
	IsOver     bool   `json:"isOver"`
	Projected  string `json:"projected"`
	WillExceed bool   `json:"willExceed"`
}

func toBudgetStatusResponse(st ledger.BudgetStatus) budgetStatusResponse {
	return budgetStatusResponse{
		CategoryID: st.CategoryID,
		Name:       st.Name,
		Spent:      st.Spent.Decimal(),
		Budget:     st.Budget.Decimal(),
		Remaining:  st.Remaining.Decimal(),
		IsOver:     st.IsOver,
		Projected:  st.Projected.Decimal(),
		WillExceed: st.WillExceed,
	}
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.service.ListBudgets(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, budgetResponse{
			CategoryID:  b.CategoryID,
			Amount:      b.Amount.Decimal(),
			AmountCents: b.Amount.Cents,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSetBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	b := core.Budget{
		CategoryID: r.PathValue("categoryId"),
		Amount:     core.Money{Cents: cents},
	}
	if err := b.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.service.SetBudget(r.Context(), b); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, budgetResponse{
		CategoryID:  b.CategoryID,
		Amount:      b.Amount.Decimal(),
		AmountCents: b.Amount.Cents,
	})
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteBudget(r.Context(), r.PathValue("categoryId")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBudgetStatus(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.service.BudgetStatus(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]budgetStatusResponse, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, toBudgetStatusResponse(st))
	}
	writeJSON(w, http.StatusOK, out)
}
