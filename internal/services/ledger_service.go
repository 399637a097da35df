// Package services orchestrates the pure ledger core against storage and the
// sync message stream.
package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"moneta/internal/cache"
	"moneta/internal/core"
	"moneta/internal/ledger"
	"moneta/internal/storage"
)

const categoriesCacheKey = "all"

// Publisher sends sync requests to the mirror worker. Optional: a nil
// publisher disables mirroring and the pending rows are picked up by the
// worker's own polling.
type Publisher interface {
	PublishTransactionSync(ctx context.Context, id string) error
}

// LedgerService owns all writes to the ledger. The mutex serializes
// materialization against template edits so a concurrent edit can never see a
// half-written batch: each operation reads a consistent snapshot, computes,
// and commits before the next one starts.
type LedgerService struct {
	storage   *storage.SQLiteRepository
	publisher Publisher

	// Categories change rarely but every read model needs them; cache the
	// full list briefly and drop it on any category write.
	categories *cache.LRUCache[[]core.Category]

	mu  sync.Mutex
	now func() time.Time
}

func NewLedgerService(repo *storage.SQLiteRepository, publisher Publisher) *LedgerService {
	return &LedgerService{
		storage:    repo,
		publisher:  publisher,
		categories: cache.NewLRUCache[[]core.Category](1, time.Minute),
		now:        time.Now,
	}
}

// --- materialization ---

// RunMaterialization generates the missing recurring transactions inside the
// scan window and appends them. Safe to call from a timer, at startup, and
// after template edits; replays are absorbed by the dedup key and the
// idempotent append.
func (s *LedgerService) RunMaterialization(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.materializeLocked(ctx)
}

func (s *LedgerService) materializeLocked(ctx context.Context) (int, error) {
	templates, err := s.storage.ListActiveTemplates(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active templates: %w", err)
	}

	existing, err := s.storage.ListTransactions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list transactions: %w", err)
	}

	batch := ledger.Materialize(templates, existing, s.now())
	if len(batch) == 0 {
		return 0, nil
	}

	inserted, err := s.storage.AppendTransactions(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("append materialized batch: %w", err)
	}

	// Only rows that actually landed get announced. A generated row whose ID
	// already exists (including soft-deleted ones) was ignored by the append
	// and has nothing to mirror.
	s.publishSync(ctx, inserted)

	slog.InfoContext(ctx, "Materialization run complete",
		"templates", len(templates),
		"generated", len(batch),
		"inserted", len(inserted))
	return len(inserted), nil
}

// --- transactions ---

func (s *LedgerService) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	return s.storage.ListTransactions(ctx)
}

func (s *LedgerService) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	return s.storage.GetTransaction(ctx, id)
}

// CreateTransaction stores a manual transaction. A missing ID is generated;
// a missing category falls back to unassigned.
func (s *LedgerService) CreateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.ID == "" {
		tx.ID = newID("tx")
	}
	if tx.CategoryID == "" {
		tx.CategoryID = core.UnassignedCategoryID
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := s.storage.CreateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, err
	}

	s.publishSync(ctx, []core.Transaction{tx})

	slog.InfoContext(ctx, "Transaction created",
		"transaction_id", tx.ID,
		"amount_cents", tx.Amount.Cents,
		"category_id", tx.CategoryID)
	return tx, nil
}

func (s *LedgerService) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	if err := s.storage.UpdateTransaction(ctx, tx); err != nil {
		return err
	}
	s.publishSync(ctx, []core.Transaction{tx})
	return nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id string) error {
	return s.storage.SoftDeleteTransaction(ctx, id)
}

// --- recurring templates ---

func (s *LedgerService) ListTemplates(ctx context.Context) ([]core.RecurringTemplate, error) {
	return s.storage.ListTemplates(ctx)
}

func (s *LedgerService) GetTemplate(ctx context.Context, id string) (core.RecurringTemplate, error) {
	return s.storage.GetTemplate(ctx, id)
}

// CreateTemplate stores a template and immediately materializes it so the
// ledger reflects the new recurring transaction without waiting for the next
// worker tick.
func (s *LedgerService) CreateTemplate(ctx context.Context, tpl core.RecurringTemplate) (core.RecurringTemplate, error) {
	if tpl.ID == "" {
		tpl.ID = newID("tpl")
	}
	if tpl.CategoryID == "" {
		tpl.CategoryID = core.UnassignedCategoryID
	}
	if err := tpl.Validate(); err != nil {
		return core.RecurringTemplate{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.CreateTemplate(ctx, tpl); err != nil {
		return core.RecurringTemplate{}, err
	}

	if _, err := s.materializeLocked(ctx); err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("materialize new template: %w", err)
	}

	return tpl, nil
}

// UpdateTemplate saves the edited template. With impactPast set, every
// transaction already materialized from it is rewritten in place: description
// and category take the new values and the amount magnitude is re-signed per
// each transaction's own type. Dates stay untouched. The whole edit, the
// propagation and the follow-up materialization run under one lock.
func (s *LedgerService) UpdateTemplate(ctx context.Context, tpl core.RecurringTemplate, impactPast bool) error {
	if err := tpl.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.storage.GetTemplate(ctx, tpl.ID); err != nil {
		return err
	}

	if err := s.storage.UpdateTemplate(ctx, tpl); err != nil {
		return err
	}

	if impactPast {
		existing, err := s.storage.ListTransactions(ctx)
		if err != nil {
			return fmt.Errorf("list transactions: %w", err)
		}

		edit := ledger.ApplyTemplateEdit(tpl, existing, true)
		if len(edit.Transactions) > 0 {
			if err := s.storage.UpdateTransactions(ctx, edit.Transactions); err != nil {
				return fmt.Errorf("propagate template edit: %w", err)
			}
			s.publishSync(ctx, edit.Transactions)
		}

		slog.InfoContext(ctx, "Template edit propagated",
			"template_id", tpl.ID,
			"rewritten", len(edit.Transactions))
	}

	if _, err := s.materializeLocked(ctx); err != nil {
		return fmt.Errorf("materialize after template edit: %w", err)
	}

	return nil
}

// DeleteTemplate removes the template; its materialized transactions remain.
func (s *LedgerService) DeleteTemplate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storage.DeleteTemplate(ctx, id)
}

// --- budgets and categories ---

func (s *LedgerService) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	return s.storage.ListBudgets(ctx)
}

func (s *LedgerService) SetBudget(ctx context.Context, b core.Budget) error {
	return s.storage.UpsertBudget(ctx, b)
}

func (s *LedgerService) DeleteBudget(ctx context.Context, categoryID string) error {
	return s.storage.DeleteBudget(ctx, categoryID)
}

func (s *LedgerService) ListCategories(ctx context.Context) ([]core.Category, error) {
	if cats, ok := s.categories.Get(categoriesCacheKey); ok {
		return cats, nil
	}
	cats, err := s.storage.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	s.categories.Set(categoriesCacheKey, cats)
	return cats, nil
}

func (s *LedgerService) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = newID("cat")
	}
	if err := s.storage.CreateCategory(ctx, c); err != nil {
		return core.Category{}, err
	}
	s.categories.Delete(categoriesCacheKey)
	return c, nil
}

func (s *LedgerService) UpdateCategory(ctx context.Context, c core.Category) error {
	if err := s.storage.UpdateCategory(ctx, c); err != nil {
		return err
	}
	s.categories.Delete(categoriesCacheKey)
	return nil
}

func (s *LedgerService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.storage.DeleteCategory(ctx, id); err != nil {
		return err
	}
	s.categories.Delete(categoriesCacheKey)
	return nil
}

// --- read models ---

func (s *LedgerService) Stats(ctx context.Context, period ledger.Period) (ledger.Stats, error) {
	txs, err := s.storage.ListTransactions(ctx)
	if err != nil {
		return ledger.Stats{}, err
	}
	return ledger.ComputeStats(txs, period), nil
}

func (s *LedgerService) CategoryDistribution(ctx context.Context, period ledger.Period) ([]ledger.CategoryAmount, error) {
	txs, err := s.storage.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	cats, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.CategoryDistribution(txs, cats, period), nil
}

func (s *LedgerService) BudgetStatus(ctx context.Context) ([]ledger.BudgetStatus, error) {
	txs, err := s.storage.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	cats, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	budgets, err := s.storage.ListBudgets(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.ComputeBudgetStatus(txs, cats, budgets, s.now()), nil
}

func (s *LedgerService) Forecast(ctx context.Context) ([]ledger.ForecastMonth, error) {
	txs, err := s.storage.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	cats, err := s.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	budgets, err := s.storage.ListBudgets(ctx)
	if err != nil {
		return nil, err
	}
	return ledger.Forecast(txs, cats, budgets, s.now()), nil
}

// --- helpers ---

// publishSync notifies the mirror worker. Failures are logged, not returned:
// the rows stay sync_status=pending and the worker's polling catches up.
func (s *LedgerService) publishSync(ctx context.Context, txs []core.Transaction) {
	if s.publisher == nil {
		return
	}
	for _, tx := range txs {
		if err := s.publisher.PublishTransactionSync(ctx, tx.ID); err != nil {
			slog.WarnContext(ctx, "Failed to publish sync message",
				"transaction_id", tx.ID,
				"error", err)
			return
		}
	}
}

func newID(prefix string) string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return prefix + "-" + hex.EncodeToString(bytes)
}
