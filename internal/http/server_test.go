package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"moneta/internal/services"
	"moneta/internal/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "moneta.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	srv := NewServer(":0", services.NewLedgerService(repo, nil))
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return ts
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, url, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response body: %v", err)
	}
	return resp, raw
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	return v
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, _ := doJSON(t, http.MethodGet, ts.URL+path, nil)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s status = %d, want %d", path, resp.StatusCode, http.StatusOK)
		}
	}
}

func TestTransactionCRUD(t *testing.T) {
	ts := newTestServer(t)
	today := time.Now().Format("2006-01-02")

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/transactions", transactionRequest{
		Date:        today,
		Description: "Groceries",
		Amount:      "42.50",
		CategoryID:  "unassigned",
		Type:        "expense",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, body %s", resp.StatusCode, raw)
	}
	created := decode[transactionResponse](t, raw)
	if created.AmountCents != -4250 {
		t.Errorf("AmountCents = %d, want -4250", created.AmountCents)
	}
	if created.Amount != "-42.50" {
		t.Errorf("Amount = %s, want -42.50", created.Amount)
	}
	if !strings.HasPrefix(created.ID, "tx-") {
		t.Errorf("ID = %s, want tx- prefix", created.ID)
	}

	resp, raw = doJSON(t, http.MethodGet, ts.URL+"/api/transactions", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET list status = %d", resp.StatusCode)
	}
	if list := decode[[]transactionResponse](t, raw); len(list) != 1 {
		t.Errorf("list length = %d, want 1", len(list))
	}

	resp, raw = doJSON(t, http.MethodPut, ts.URL+"/api/transactions/"+created.ID, transactionRequest{
		Date:        today,
		Description: "Groceries and more",
		Amount:      "50.00",
		CategoryID:  "unassigned",
		Type:        "expense",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d, body %s", resp.StatusCode, raw)
	}
	updated := decode[transactionResponse](t, raw)
	if updated.AmountCents != -5000 || updated.Description != "Groceries and more" {
		t.Errorf("updated = %+v", updated)
	}

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/transactions/"+created.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/transactions/"+created.ID, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET after delete status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestTransactionValidation(t *testing.T) {
	ts := newTestServer(t)
	today := time.Now().Format("2006-01-02")

	tests := []struct {
		name string
		req  transactionRequest
		want int
	}{
		{
			name: "negative amount rejected",
			req:  transactionRequest{Date: today, Description: "x", Amount: "-5.00", CategoryID: "unassigned", Type: "expense"},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "bad type",
			req:  transactionRequest{Date: today, Description: "x", Amount: "5.00", CategoryID: "unassigned", Type: "transfer"},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "bad date",
			req:  transactionRequest{Date: "06/15/2024", Description: "x", Amount: "5.00", CategoryID: "unassigned", Type: "expense"},
			want: http.StatusUnprocessableEntity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/transactions", tt.req)
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d, body %s", resp.StatusCode, tt.want, raw)
			}
		})
	}

	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/transactions", map[string]any{"bogus": true})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown field status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestTemplateLifecycle(t *testing.T) {
	ts := newTestServer(t)

	// Bound the template to the current month so exactly one transaction
	// materializes regardless of the wall clock.
	now := time.Now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/templates", templateRequest{
		Description: "Rent",
		Amount:      "1200.00",
		CategoryID:  "unassigned",
		Type:        "expense",
		DayOfMonth:  1,
		StartDate:   first.Format("2006-01-02"),
		EndDate:     last.Format("2006-01-02"),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST template status = %d, body %s", resp.StatusCode, raw)
	}
	tpl := decode[templateResponse](t, raw)
	if !tpl.Active || tpl.AmountCents != 120000 {
		t.Errorf("template = %+v", tpl)
	}

	_, raw = doJSON(t, http.MethodGet, ts.URL+"/api/transactions", nil)
	txs := decode[[]transactionResponse](t, raw)
	if len(txs) != 1 {
		t.Fatalf("materialized %d transactions, want 1", len(txs))
	}
	wantID := fmt.Sprintf("rec-commit-%s-%d-%02d", tpl.ID, now.Year(), int(now.Month()))
	if txs[0].ID != wantID {
		t.Errorf("transaction ID = %s, want %s", txs[0].ID, wantID)
	}
	if !txs[0].IsRecurring || txs[0].RecurringID != tpl.ID {
		t.Errorf("recurring flags = %+v", txs[0])
	}

	resp, raw = doJSON(t, http.MethodPut, ts.URL+"/api/templates/"+tpl.ID+"?impactPast=true", templateRequest{
		Description: "Rent (new lease)",
		Amount:      "1300.00",
		CategoryID:  "unassigned",
		Type:        "expense",
		DayOfMonth:  1,
		StartDate:   first.Format("2006-01-02"),
		EndDate:     last.Format("2006-01-02"),
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT template status = %d, body %s", resp.StatusCode, raw)
	}

	_, raw = doJSON(t, http.MethodGet, ts.URL+"/api/transactions", nil)
	txs = decode[[]transactionResponse](t, raw)
	if len(txs) != 1 {
		t.Fatalf("transactions after edit = %d, want 1", len(txs))
	}
	if txs[0].Description != "Rent (new lease)" || txs[0].AmountCents != -130000 {
		t.Errorf("propagated transaction = %+v", txs[0])
	}

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/templates/"+tpl.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE template status = %d", resp.StatusCode)
	}

	// Materialized transactions outlive their template.
	_, raw = doJSON(t, http.MethodGet, ts.URL+"/api/transactions", nil)
	if txs := decode[[]transactionResponse](t, raw); len(txs) != 1 {
		t.Errorf("transactions after template delete = %d, want 1", len(txs))
	}
}

func TestUpdateUnknownTemplate(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPut, ts.URL+"/api/templates/missing", templateRequest{
		Description: "Ghost",
		Amount:      "10.00",
		CategoryID:  "unassigned",
		Type:        "expense",
		DayOfMonth:  1,
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestCategoryEndpoints(t *testing.T) {
	ts := newTestServer(t)

	_, raw := doJSON(t, http.MethodGet, ts.URL+"/api/categories", nil)
	cats := decode[[]categoryResponse](t, raw)
	if len(cats) != 2 {
		t.Fatalf("seeded categories = %d, want 2", len(cats))
	}

	resp, raw := doJSON(t, http.MethodPost, ts.URL+"/api/categories", categoryRequest{Name: "Groceries", Color: "#4caf50"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST category status = %d, body %s", resp.StatusCode, raw)
	}
	created := decode[categoryResponse](t, raw)
	if !strings.HasPrefix(created.ID, "cat-") {
		t.Errorf("ID = %s, want cat- prefix", created.ID)
	}

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/categories/unassigned", nil)
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("DELETE reserved status = %d, want %d", resp.StatusCode, http.StatusUnprocessableEntity)
	}

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/categories/"+created.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("DELETE category status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}
}

func TestBudgetEndpoints(t *testing.T) {
	ts := newTestServer(t)
	today := time.Now().Format("2006-01-02")

	_, raw := doJSON(t, http.MethodPost, ts.URL+"/api/categories", categoryRequest{Name: "Groceries"})
	cat := decode[categoryResponse](t, raw)

	resp, raw := doJSON(t, http.MethodPut, ts.URL+"/api/budgets/"+cat.ID, budgetRequest{Amount: "500.00"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT budget status = %d, body %s", resp.StatusCode, raw)
	}

	doJSON(t, http.MethodPost, ts.URL+"/api/transactions", transactionRequest{
		Date:        today,
		Description: "Weekly shop",
		Amount:      "120.00",
		CategoryID:  cat.ID,
		Type:        "expense",
	})

	_, raw = doJSON(t, http.MethodGet, ts.URL+"/api/budgets", nil)
	budgets := decode[[]budgetResponse](t, raw)
	if len(budgets) != 1 || budgets[0].AmountCents != 50000 {
		t.Errorf("budgets = %+v", budgets)
	}

	_, raw = doJSON(t, http.MethodGet, ts.URL+"/api/budgets/status", nil)
	statuses := decode[[]budgetStatusResponse](t, raw)
	var found bool
	for _, st := range statuses {
		if st.CategoryID == cat.ID {
			found = true
			if st.Spent != "120.00" || st.Budget != "500.00" || st.Remaining != "380.00" {
				t.Errorf("status = %+v", st)
			}
			if st.IsOver {
				t.Error("IsOver = true, want false")
			}
		}
	}
	if !found {
		t.Errorf("no budget status for %s in %+v", cat.ID, statuses)
	}

	resp, _ = doJSON(t, http.MethodDelete, ts.URL+"/api/budgets/"+cat.ID, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE budget status = %d", resp.StatusCode)
	}
}

func TestStatsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	today := time.Now().Format("2006-01-02")

	doJSON(t, http.MethodPost, ts.URL+"/api/transactions", transactionRequest{
		Date: today, Description: "Salary", Amount: "3000.00", CategoryID: "income", Type: "income",
	})
	doJSON(t, http.MethodPost, ts.URL+"/api/transactions", transactionRequest{
		Date: today, Description: "Dinner", Amount: "80.00", CategoryID: "unassigned", Type: "expense",
	})

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/api/stats", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET stats status = %d", resp.StatusCode)
	}
	stats := decode[statsResponse](t, raw)
	if stats.Income != "3000.00" || stats.Expense != "80.00" || stats.Balance != "2920.00" {
		t.Errorf("stats = %+v", stats)
	}

	resp, raw = doJSON(t, http.MethodGet, ts.URL+"/api/stats/categories", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET distribution status = %d", resp.StatusCode)
	}
	dist := decode[[]categoryAmountResponse](t, raw)
	if len(dist) != 1 || dist[0].CategoryID != "unassigned" || dist[0].AmountCents != 8000 {
		t.Errorf("distribution = %+v", dist)
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/stats?period=bogus", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad period status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
}

func TestForecastEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, raw := doJSON(t, http.MethodGet, ts.URL+"/api/forecast", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET forecast status = %d", resp.StatusCode)
	}
	months := decode[[]forecastMonthResponse](t, raw)
	if len(months) != 4 {
		t.Errorf("forecast months = %d, want 4", len(months))
	}
}

func TestRateLimitOnMutatingRequests(t *testing.T) {
	ts := newTestServer(t)

	var got429 bool
	for i := 0; i < 61; i++ {
		resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/categories", map[string]any{"bogus": true})
		if resp.StatusCode == http.StatusTooManyRequests {
			got429 = true
			if resp.Header.Get("Retry-After") != "60" {
				t.Errorf("Retry-After = %q, want 60", resp.Header.Get("Retry-After"))
			}
			break
		}
	}
	if !got429 {
		t.Error("never hit the rate limit after 61 mutating requests")
	}

	// Reads are never throttled.
	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/categories", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
}
