package http

import (
	"net/http"

	"moneta/internal/core"
)

type transactionRequest struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"` // unsigned decimal magnitude, e.g. "42.50"
	CategoryID  string `json:"categoryId"`
	Type        string `json:"type"`
}

type transactionResponse struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"` // signed decimal
	AmountCents int64  `json:"amountCents"`
	CategoryID  string `json:"categoryId"`
	Type        string `json:"type"`
	IsRecurring bool   `json:"isRecurring"`
	RecurringID string `json:"recurringId,omitempty"`
}

func toTransactionResponse(tx core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		Date:        tx.Date.String(),
		Description: tx.Description,
		Amount:      tx.Amount.Decimal(),
		AmountCents: tx.Amount.Cents,
		CategoryID:  tx.CategoryID,
		Type:        string(tx.Type),
		IsRecurring: tx.IsRecurring,
		RecurringID: tx.RecurringID,
	}
}

// parseTransaction converts the wire format to a domain transaction. The
// amount arrives as an unsigned magnitude; the sign comes from the type.
func parseTransaction(req transactionRequest) (core.Transaction, error) {
	date, err := parseDate(req.Date)
	if err != nil {
		return core.Transaction{}, core.ErrInvalidDate
	}

	cents, err := core.ParseDecimalToCents(req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}

	txType := core.TxType(req.Type)
	if err := txType.Validate(); err != nil {
		return core.Transaction{}, err
	}

	return core.Transaction{
		Date:        date,
		Description: sanitizeInput(req.Description),
		Amount:      txType.Sign(core.Money{Cents: cents}),
		CategoryID:  sanitizeInput(req.CategoryID),
		Type:        txType,
	}, nil
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.service.ListTransactions(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toTransactionResponse(tx))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.service.GetTransaction(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	tx, err := parseTransaction(req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := s.service.CreateTransaction(r.Context(), tx)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(created))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := s.service.GetTransaction(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	updated, err := parseTransaction(req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	updated.ID = existing.ID
	updated.IsRecurring = existing.IsRecurring
	updated.RecurringID = existing.RecurringID

	if err := s.service.UpdateTransaction(r.Context(), updated); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(updated))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteTransaction(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
