// Package storage owns the SQLite persistence for the ledger: transactions,
// recurring templates, budgets, and categories. It is the single writer; the
// computation core only ever sees in-memory snapshots read from here.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"moneta/internal/core"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

var (
	ErrNotFound         = errors.New("not found")
	ErrReservedCategory = errors.New("reserved category")
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// --- transactions ---

const transactionColumns = `id, date, description, amount_cents, category_id, type, is_recurring, COALESCE(recurring_id, '')`

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var tx core.Transaction
	var date string
	var recurring int
	if err := row.Scan(&tx.ID, &date, &tx.Description, &tx.Amount.Cents,
		&tx.CategoryID, &tx.Type, &recurring, &tx.RecurringID); err != nil {
		return core.Transaction{}, err
	}
	d, err := parseDate(date)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Date = d
	tx.IsRecurring = recurring != 0
	return tx, nil
}

// ListTransactions returns the full live transaction set, oldest first.
// Soft-deleted rows are excluded.
func (r *SQLiteRepository) ListTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE deleted_at IS NULL ORDER BY date, id`)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND deleted_at IS NULL`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return tx, nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, date, description, amount_cents, category_id, type, is_recurring, recurring_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''))`,
		tx.ID, tx.Date.String(), tx.Description, tx.Amount.Cents,
		tx.CategoryID, string(tx.Type), boolInt(tx.IsRecurring), tx.RecurringID)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

// AppendTransactions inserts a materialized batch in a single database
// transaction. INSERT OR IGNORE on the deterministic IDs makes a replayed
// batch harmless; the returned slice holds the rows that were actually
// inserted, in batch order. An ID already present, even on a soft-deleted
// row, keeps its row out of the result.
func (r *SQLiteRepository) AppendTransactions(ctx context.Context, batch []core.Transaction) ([]core.Transaction, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin append: %w", err)
	}
	defer dbTx.Rollback()

	inserted := make([]core.Transaction, 0, len(batch))
	for _, tx := range batch {
		if err := tx.Validate(); err != nil {
			return nil, fmt.Errorf("invalid transaction %s: %w", tx.ID, err)
		}
		res, err := dbTx.ExecContext(ctx,
			`INSERT OR IGNORE INTO transactions (id, date, description, amount_cents, category_id, type, is_recurring, recurring_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''))`,
			tx.ID, tx.Date.String(), tx.Description, tx.Amount.Cents,
			tx.CategoryID, string(tx.Type), boolInt(tx.IsRecurring), tx.RecurringID)
		if err != nil {
			return nil, fmt.Errorf("append transaction %s: %w", tx.ID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted = append(inserted, tx)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit append: %w", err)
	}

	slog.InfoContext(ctx, "Appended materialized transactions",
		"batch_size", len(batch),
		"inserted", len(inserted))
	return inserted, nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET date = ?, description = ?, amount_cents = ?, category_id = ?, type = ?,
		     sync_status = 'pending', updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		tx.Date.String(), tx.Description, tx.Amount.Cents, tx.CategoryID, string(tx.Type), tx.ID)
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", tx.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateTransactions applies a propagation batch atomically.
func (r *SQLiteRepository) UpdateTransactions(ctx context.Context, batch []core.Transaction) error {
	if len(batch) == 0 {
		return nil
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update batch: %w", err)
	}
	defer dbTx.Rollback()

	for _, tx := range batch {
		if _, err := dbTx.ExecContext(ctx,
			`UPDATE transactions
			 SET description = ?, amount_cents = ?, category_id = ?,
			     sync_status = 'pending', updated_at = CURRENT_TIMESTAMP
			 WHERE id = ? AND deleted_at IS NULL`,
			tx.Description, tx.Amount.Cents, tx.CategoryID, tx.ID); err != nil {
			return fmt.Errorf("update transaction %s: %w", tx.ID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit update batch: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) SoftDeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- sheets mirror bookkeeping ---

// GetPendingSyncTransactions returns live rows not yet mirrored, oldest first.
func (r *SQLiteRepository) GetPendingSyncTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE sync_status = 'pending' AND deleted_at IS NULL
		 ORDER BY date, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending sync transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'synced' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction synced: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = 'error' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction sync error: %w", err)
	}
	slog.WarnContext(ctx, "Transaction marked with sync error", "id", id)
	return nil
}

// --- recurring templates ---

const templateColumns = `id, description, amount_cents, category_id, type, day_of_month, active, COALESCE(start_date, ''), COALESCE(end_date, '')`

func scanTemplate(row interface{ Scan(...any) error }) (core.RecurringTemplate, error) {
	var tpl core.RecurringTemplate
	var active int
	var start, end string
	if err := row.Scan(&tpl.ID, &tpl.Description, &tpl.Amount.Cents, &tpl.CategoryID,
		&tpl.Type, &tpl.DayOfMonth, &active, &start, &end); err != nil {
		return core.RecurringTemplate{}, err
	}
	tpl.Active = active != 0
	if start != "" {
		d, err := parseDate(start)
		if err != nil {
			return core.RecurringTemplate{}, err
		}
		tpl.StartDate = d
	}
	if end != "" {
		d, err := parseDate(end)
		if err != nil {
			return core.RecurringTemplate{}, err
		}
		tpl.EndDate = d
	}
	return tpl, nil
}

func (r *SQLiteRepository) ListTemplates(ctx context.Context) ([]core.RecurringTemplate, error) {
	return r.listTemplates(ctx, `SELECT `+templateColumns+` FROM recurring_templates ORDER BY id`)
}

// ListActiveTemplates returns the templates eligible for materialization.
func (r *SQLiteRepository) ListActiveTemplates(ctx context.Context) ([]core.RecurringTemplate, error) {
	return r.listTemplates(ctx, `SELECT `+templateColumns+` FROM recurring_templates WHERE active = 1 ORDER BY id`)
}

func (r *SQLiteRepository) listTemplates(ctx context.Context, query string) ([]core.RecurringTemplate, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringTemplate
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, tpl)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetTemplate(ctx context.Context, id string) (core.RecurringTemplate, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM recurring_templates WHERE id = ?`, id)
	tpl, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringTemplate{}, ErrNotFound
	}
	if err != nil {
		return core.RecurringTemplate{}, fmt.Errorf("get template %s: %w", id, err)
	}
	return tpl, nil
}

func (r *SQLiteRepository) CreateTemplate(ctx context.Context, tpl core.RecurringTemplate) error {
	if err := tpl.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_templates (id, description, amount_cents, category_id, type, day_of_month, active, start_date, end_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''))`,
		tpl.ID, tpl.Description, tpl.Amount.Cents, tpl.CategoryID, string(tpl.Type),
		tpl.DayOfMonth, boolInt(tpl.Active), optionalDate(tpl.StartDate), optionalDate(tpl.EndDate))
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateTemplate(ctx context.Context, tpl core.RecurringTemplate) error {
	if err := tpl.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_templates
		 SET description = ?, amount_cents = ?, category_id = ?, type = ?, day_of_month = ?,
		     active = ?, start_date = NULLIF(?, ''), end_date = NULLIF(?, ''), updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		tpl.Description, tpl.Amount.Cents, tpl.CategoryID, string(tpl.Type), tpl.DayOfMonth,
		boolInt(tpl.Active), optionalDate(tpl.StartDate), optionalDate(tpl.EndDate), tpl.ID)
	if err != nil {
		return fmt.Errorf("update template %s: %w", tpl.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTemplate removes the template definition. Previously materialized
// transactions are left untouched; they simply stop being extended.
func (r *SQLiteRepository) DeleteTemplate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete template %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- budgets ---

func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category_id, amount_cents FROM budgets ORDER BY category_id`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.CategoryID, &b.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpsertBudget sets the monthly target for a category. The primary key on
// category_id enforces the one-budget-per-category invariant.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) error {
	if err := b.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (category_id, amount_cents) VALUES (?, ?)
		 ON CONFLICT(category_id) DO UPDATE SET amount_cents = excluded.amount_cents, updated_at = CURRENT_TIMESTAMP`,
		b.CategoryID, b.Amount.Cents)
	if err != nil {
		return fmt.Errorf("upsert budget for %s: %w", b.CategoryID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, categoryID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE category_id = ?`, categoryID); err != nil {
		return fmt.Errorf("delete budget for %s: %w", categoryID, err)
	}
	return nil
}

// --- categories ---

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, color FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) error {
	if c.ID == "" || c.Name == "" {
		return core.ErrEmptyCategory
	}
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, color) VALUES (?, ?, ?)`, c.ID, c.Name, c.Color); err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, color = ? WHERE id = ?`, c.Name, c.Color, c.ID)
	if err != nil {
		return fmt.Errorf("update category %s: %w", c.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCategory removes a category and reassigns everything that referenced
// it to the reserved "unassigned" bucket so no dangling references remain.
// The reserved categories themselves cannot be deleted.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	if id == core.UnassignedCategoryID || id == core.IncomeCategoryID {
		return fmt.Errorf("category %s: %w", id, ErrReservedCategory)
	}

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin category delete: %w", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx,
		`UPDATE transactions SET category_id = ? WHERE category_id = ?`,
		core.UnassignedCategoryID, id); err != nil {
		return fmt.Errorf("reassign transactions: %w", err)
	}
	if _, err := dbTx.ExecContext(ctx,
		`UPDATE recurring_templates SET category_id = ? WHERE category_id = ?`,
		core.UnassignedCategoryID, id); err != nil {
		return fmt.Errorf("reassign templates: %w", err)
	}
	// Budgets are keyed by category; move the target to unassigned unless one
	// is already there, in which case the orphaned budget is dropped.
	if _, err := dbTx.ExecContext(ctx,
		`UPDATE OR IGNORE budgets SET category_id = ? WHERE category_id = ?`,
		core.UnassignedCategoryID, id); err != nil {
		return fmt.Errorf("reassign budget: %w", err)
	}
	if _, err := dbTx.ExecContext(ctx, `DELETE FROM budgets WHERE category_id = ?`, id); err != nil {
		return fmt.Errorf("drop orphaned budget: %w", err)
	}

	res, err := dbTx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete category %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("commit category delete: %w", err)
	}

	slog.InfoContext(ctx, "Category deleted and references reassigned", "id", id)
	return nil
}

// --- helpers ---

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return core.DateOf(t), nil
}

func optionalDate(d core.Date) string {
	if d.IsEmpty() {
		return ""
	}
	return d.String()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
