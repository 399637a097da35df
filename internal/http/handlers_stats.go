package http

import (
	"net/http"
	"time"

	"moneta/internal/ledger"
)

type statsResponse struct {
	Income   string `json:"income"`
	Expense  string `json:"expense"`
	Balance  string `json:"balance"`
	Fixed    string `json:"fixed"`
	Variable string `json:"variable"`
}

type categoryAmountResponse struct {
	CategoryID  string `json:"categoryId"`
	Name        string `json:"name"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amountCents"`
}

type forecastMonthResponse struct {
	Year       int                      `json:"year"`
	Month      int                      `json:"month"`
	Categories []categoryAmountResponse `json:"categories"`
	Total      string                   `json:"total"`
}

func toCategoryAmountResponses(amounts []ledger.CategoryAmount) []categoryAmountResponse {
	out := make([]categoryAmountResponse, 0, len(amounts))
	for _, ca := range amounts {
		out = append(out, categoryAmountResponse{
			CategoryID:  ca.CategoryID,
			Name:        ca.Name,
			Amount:      ca.Amount.Decimal(),
			AmountCents: ca.Amount.Cents,
		})
	}
	return out
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := s.service.Stats(r.Context(), period)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Income:   stats.Income.Decimal(),
		Expense:  stats.Expense.Decimal(),
		Balance:  stats.Balance.Decimal(),
		Fixed:    stats.Fixed.Decimal(),
		Variable: stats.Variable.Decimal(),
	})
}

func (s *Server) handleCategoryDistribution(w http.ResponseWriter, r *http.Request) {
	period, err := parsePeriod(r, time.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	amounts, err := s.service.CategoryDistribution(r.Context(), period)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCategoryAmountResponses(amounts))
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	months, err := s.service.Forecast(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]forecastMonthResponse, 0, len(months))
	for _, m := range months {
		out = append(out, forecastMonthResponse{
			Year:       m.Year,
			Month:      int(m.Month),
			Categories: toCategoryAmountResponses(m.Categories),
			Total:      m.Total.Decimal(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
