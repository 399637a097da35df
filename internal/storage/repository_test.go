package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"moneta/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "moneta.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testTransaction(id string, cents int64) core.Transaction {
	txType := core.Expense
	if cents > 0 {
		txType = core.Income
	}
	return core.Transaction{
		ID:          id,
		Date:        core.NewDate(2024, 6, 5),
		Description: "Groceries",
		Amount:      core.Money{Cents: cents},
		CategoryID:  "unassigned",
		Type:        txType,
	}
}

func TestMigrationsSeedReservedCategories(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	cats, err := repo.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}

	found := map[string]bool{}
	for _, c := range cats {
		found[c.ID] = true
	}
	if !found[core.UnassignedCategoryID] || !found[core.IncomeCategoryID] {
		t.Errorf("reserved categories missing, got %v", cats)
	}
}

func TestTransactionLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tx := testTransaction("tx-1", -4200)
	if err := repo.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	got, err := repo.GetTransaction(ctx, "tx-1")
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if got.Amount.Cents != -4200 || got.Date.String() != "2024-06-05" || got.Type != core.Expense {
		t.Errorf("GetTransaction() = %+v", got)
	}

	got.Description = "Weekly groceries"
	got.Amount.Cents = -5000
	if err := repo.UpdateTransaction(ctx, got); err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}

	got, err = repo.GetTransaction(ctx, "tx-1")
	if err != nil {
		t.Fatalf("GetTransaction() after update error = %v", err)
	}
	if got.Description != "Weekly groceries" || got.Amount.Cents != -5000 {
		t.Errorf("update not applied: %+v", got)
	}

	if err := repo.SoftDeleteTransaction(ctx, "tx-1"); err != nil {
		t.Fatalf("SoftDeleteTransaction() error = %v", err)
	}
	if _, err := repo.GetTransaction(ctx, "tx-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTransaction() after delete = %v, want ErrNotFound", err)
	}

	txs, err := repo.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("ListTransactions() after delete = %d rows, want 0", len(txs))
	}
}

func TestAppendTransactionsIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	batch := []core.Transaction{
		{
			ID:          "rec-commit-t1-2024-06",
			Date:        core.NewDate(2024, 6, 1),
			Description: "Rent",
			Amount:      core.Money{Cents: -120000},
			CategoryID:  "unassigned",
			Type:        core.Expense,
			IsRecurring: true,
			RecurringID: "t1",
		},
		{
			ID:          "rec-commit-t1-2024-07",
			Date:        core.NewDate(2024, 7, 1),
			Description: "Rent",
			Amount:      core.Money{Cents: -120000},
			CategoryID:  "unassigned",
			Type:        core.Expense,
			IsRecurring: true,
			RecurringID: "t1",
		},
	}

	inserted, err := repo.AppendTransactions(ctx, batch)
	if err != nil {
		t.Fatalf("AppendTransactions() error = %v", err)
	}
	if len(inserted) != 2 {
		t.Errorf("first append inserted %d, want 2", len(inserted))
	}

	inserted, err = repo.AppendTransactions(ctx, batch)
	if err != nil {
		t.Fatalf("replayed AppendTransactions() error = %v", err)
	}
	if len(inserted) != 0 {
		t.Errorf("replayed append inserted %d, want 0", len(inserted))
	}

	txs, err := repo.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("ListTransactions() = %d rows, want 2", len(txs))
	}
	if !txs[0].IsRecurring || txs[0].RecurringID != "t1" {
		t.Errorf("recurring flags not persisted: %+v", txs[0])
	}
}

func TestAppendTransactionsReportsOnlyInsertedRows(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	june := core.Transaction{
		ID:          "rec-commit-t1-2024-06",
		Date:        core.NewDate(2024, 6, 1),
		Description: "Rent",
		Amount:      core.Money{Cents: -120000},
		CategoryID:  "unassigned",
		Type:        core.Expense,
		IsRecurring: true,
		RecurringID: "t1",
	}
	july := june
	july.ID = "rec-commit-t1-2024-07"
	july.Date = core.NewDate(2024, 7, 1)

	if _, err := repo.AppendTransactions(ctx, []core.Transaction{june}); err != nil {
		t.Fatalf("AppendTransactions() error = %v", err)
	}
	// The soft-deleted row keeps its ID, so a regenerated June must be ignored.
	if err := repo.SoftDeleteTransaction(ctx, june.ID); err != nil {
		t.Fatalf("SoftDeleteTransaction() error = %v", err)
	}

	inserted, err := repo.AppendTransactions(ctx, []core.Transaction{june, july})
	if err != nil {
		t.Fatalf("AppendTransactions() error = %v", err)
	}
	if len(inserted) != 1 || inserted[0].ID != july.ID {
		t.Fatalf("inserted = %+v, want only %s", inserted, july.ID)
	}
}

func TestUpdateTransactionsBatch(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		tx := testTransaction(id, -1000)
		if err := repo.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction(%s) error = %v", id, err)
		}
	}

	edits := []core.Transaction{
		{ID: "a", Description: "Updated", Amount: core.Money{Cents: -2000}, CategoryID: "unassigned"},
		{ID: "b", Description: "Updated", Amount: core.Money{Cents: -2000}, CategoryID: "unassigned"},
	}
	if err := repo.UpdateTransactions(ctx, edits); err != nil {
		t.Fatalf("UpdateTransactions() error = %v", err)
	}

	txs, err := repo.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	for _, tx := range txs {
		if tx.Description != "Updated" || tx.Amount.Cents != -2000 {
			t.Errorf("batch edit not applied to %s: %+v", tx.ID, tx)
		}
	}
}

func TestTemplateLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	tpl := core.RecurringTemplate{
		ID:          "t1",
		Description: "Rent",
		Amount:      core.Money{Cents: 120000},
		CategoryID:  "unassigned",
		Type:        core.Expense,
		DayOfMonth:  1,
		Active:      true,
		EndDate:     core.NewDate(2025, 12, 31),
	}
	if err := repo.CreateTemplate(ctx, tpl); err != nil {
		t.Fatalf("CreateTemplate() error = %v", err)
	}

	got, err := repo.GetTemplate(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTemplate() error = %v", err)
	}
	if !got.StartDate.IsEmpty() {
		t.Errorf("StartDate = %v, want empty", got.StartDate)
	}
	if got.EndDate.String() != "2025-12-31" {
		t.Errorf("EndDate = %v, want 2025-12-31", got.EndDate)
	}

	got.Active = false
	if err := repo.UpdateTemplate(ctx, got); err != nil {
		t.Fatalf("UpdateTemplate() error = %v", err)
	}

	active, err := repo.ListActiveTemplates(ctx)
	if err != nil {
		t.Fatalf("ListActiveTemplates() error = %v", err)
	}
	if len(active) != 0 {
		t.Errorf("ListActiveTemplates() = %d, want 0 after deactivation", len(active))
	}

	all, err := repo.ListTemplates(ctx)
	if err != nil {
		t.Fatalf("ListTemplates() error = %v", err)
	}
	if len(all) != 1 {
		t.Errorf("ListTemplates() = %d, want 1", len(all))
	}

	if err := repo.DeleteTemplate(ctx, "t1"); err != nil {
		t.Fatalf("DeleteTemplate() error = %v", err)
	}
	if _, err := repo.GetTemplate(ctx, "t1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetTemplate() after delete = %v, want ErrNotFound", err)
	}
}

func TestBudgetUpsert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.CreateCategory(ctx, core.Category{ID: "food", Name: "Food"}); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	b := core.Budget{CategoryID: "food", Amount: core.Money{Cents: 50000}}
	if err := repo.UpsertBudget(ctx, b); err != nil {
		t.Fatalf("UpsertBudget() error = %v", err)
	}

	b.Amount.Cents = 60000
	if err := repo.UpsertBudget(ctx, b); err != nil {
		t.Fatalf("second UpsertBudget() error = %v", err)
	}

	budgets, err := repo.ListBudgets(ctx)
	if err != nil {
		t.Fatalf("ListBudgets() error = %v", err)
	}
	if len(budgets) != 1 || budgets[0].Amount.Cents != 60000 {
		t.Errorf("ListBudgets() = %+v, want single 60000 entry", budgets)
	}
}

func TestDeleteCategoryReassignsReferences(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.CreateCategory(ctx, core.Category{ID: "food", Name: "Food"}); err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}

	tx := testTransaction("tx-1", -4200)
	tx.CategoryID = "food"
	if err := repo.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if err := repo.UpsertBudget(ctx, core.Budget{CategoryID: "food", Amount: core.Money{Cents: 50000}}); err != nil {
		t.Fatalf("UpsertBudget() error = %v", err)
	}

	if err := repo.DeleteCategory(ctx, "food"); err != nil {
		t.Fatalf("DeleteCategory() error = %v", err)
	}

	got, err := repo.GetTransaction(ctx, "tx-1")
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if got.CategoryID != core.UnassignedCategoryID {
		t.Errorf("CategoryID = %s, want %s", got.CategoryID, core.UnassignedCategoryID)
	}
}

func TestDeleteReservedCategoryRejected(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.DeleteCategory(ctx, core.UnassignedCategoryID); err == nil {
		t.Error("DeleteCategory(unassigned) succeeded, want error")
	}
	if err := repo.DeleteCategory(ctx, core.IncomeCategoryID); err == nil {
		t.Error("DeleteCategory(income) succeeded, want error")
	}
}

func TestPendingSyncFlow(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.CreateTransaction(ctx, testTransaction("tx-1", -4200)); err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	pending, err := repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions() error = %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("pending = %d, want 1", len(pending))
	}

	if err := repo.MarkSynced(ctx, "tx-1"); err != nil {
		t.Fatalf("MarkSynced() error = %v", err)
	}

	pending, err = repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending after MarkSynced = %d, want 0", len(pending))
	}

	// An edit flips the row back to pending so the mirror picks it up again.
	tx, err := repo.GetTransaction(ctx, "tx-1")
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	tx.Description = "Edited"
	if err := repo.UpdateTransaction(ctx, tx); err != nil {
		t.Fatalf("UpdateTransaction() error = %v", err)
	}

	pending, err = repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSyncTransactions() error = %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("pending after edit = %d, want 1", len(pending))
	}
}
