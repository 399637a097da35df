package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"moneta/internal/core"
	"moneta/internal/ledger"
	"moneta/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps storage and validation errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrReservedCategory):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case isValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		core.ErrInvalidDate,
		core.ErrInvalidDay,
		core.ErrInvalidAmount,
		core.ErrInvalidType,
		core.ErrSignMismatch,
		core.ErrEmptyDescription,
		core.ErrEmptyCategory,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// parseDate parses a date string in YYYY-MM-DD format.
func parseDate(dateStr string) (core.Date, error) {
	t, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return core.Date{}, err
	}
	return core.DateOf(t), nil
}

// parsePeriod builds a ledger period from query parameters. The default is
// the current calendar month.
//
//	?period=month&year=2024&month=6
//	?period=year&year=2024
//	?period=all
//	?period=range&start=2024-01-01&end=2024-03-31
func parsePeriod(r *http.Request, now time.Time) (ledger.Period, error) {
	q := r.URL.Query()
	kind := strings.TrimSpace(q.Get("period"))
	if kind == "" {
		kind = string(ledger.PeriodMonth)
	}

	switch ledger.PeriodKind(kind) {
	case ledger.PeriodMonth:
		year, month := now.Year(), int(now.Month())
		if v := strings.TrimSpace(q.Get("year")); v != "" {
			y, err := strconv.Atoi(v)
			if err != nil {
				return ledger.Period{}, fmt.Errorf("invalid year %q", v)
			}
			year = y
		}
		if v := strings.TrimSpace(q.Get("month")); v != "" {
			m, err := strconv.Atoi(v)
			if err != nil || m < 1 || m > 12 {
				return ledger.Period{}, fmt.Errorf("invalid month %q", v)
			}
			month = m
		}
		return ledger.MonthPeriod(year, time.Month(month)), nil

	case ledger.PeriodYear:
		year := now.Year()
		if v := strings.TrimSpace(q.Get("year")); v != "" {
			y, err := strconv.Atoi(v)
			if err != nil {
				return ledger.Period{}, fmt.Errorf("invalid year %q", v)
			}
			year = y
		}
		return ledger.YearPeriod(year), nil

	case ledger.PeriodAll:
		return ledger.AllPeriod(), nil

	case ledger.PeriodRange:
		var start, end core.Date
		if v := strings.TrimSpace(q.Get("start")); v != "" {
			d, err := parseDate(v)
			if err != nil {
				return ledger.Period{}, fmt.Errorf("invalid start date %q", v)
			}
			start = d
		}
		if v := strings.TrimSpace(q.Get("end")); v != "" {
			d, err := parseDate(v)
			if err != nil {
				return ledger.Period{}, fmt.Errorf("invalid end date %q", v)
			}
			end = d
		}
		return ledger.RangePeriod(start, end), nil
	}

	return ledger.Period{}, fmt.Errorf("unknown period %q", kind)
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
