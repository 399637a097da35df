// Package worker holds the two background loops: periodic materialization and
// the spreadsheet mirror.
package worker

import (
	"context"
	"errors"
	"fmt"

	"moneta/internal/amqp"
	applog "moneta/internal/log"
	"moneta/internal/sheets"
	"moneta/internal/storage"
)

// MirrorWorker copies ledger transactions to the spreadsheet mirror. The AMQP
// stream gives it low latency; the pending-row polling makes it catch up after
// lost messages or downtime.
type MirrorWorker struct {
	storage   *storage.SQLiteRepository
	writer    sheets.TransactionWriter
	batchSize int
	logger    *applog.Logger
}

func NewMirrorWorker(repo *storage.SQLiteRepository, writer sheets.TransactionWriter, batchSize int) *MirrorWorker {
	return &MirrorWorker{
		storage:   repo,
		writer:    writer,
		batchSize: batchSize,
		logger:    applog.ForComponent(applog.ComponentSheets),
	}
}

// HandleSyncMessage processes a single sync message from AMQP. The current
// row is always re-read from storage so a stale or replayed message cannot
// mirror outdated fields. A row that no longer exists (deleted after the
// message was published) is dropped rather than errored: redelivery cannot
// bring the row back.
func (w *MirrorWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	tx, err := w.storage.GetTransaction(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			w.logger.WarnContext(ctx, "Sync message for missing transaction, dropping", "id", msg.ID)
			return nil
		}
		return fmt.Errorf("get transaction from storage: %w", err)
	}
	return w.mirrorTransaction(ctx, tx.ID)
}

// ProcessPending mirrors a batch of rows still marked pending. Backup
// mechanism for lost AMQP messages.
func (w *MirrorWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncTransactions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	w.logger.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, tx := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.mirrorTransaction(ctx, tx.ID); err != nil {
			w.logger.ErrorContext(ctx, "Failed to mirror transaction", "id", tx.ID, "error", err)
		}
	}

	return nil
}

// StartupSyncCheck drains a larger pending backlog once at worker startup to
// recover from downtime.
func (w *MirrorWorker) StartupSyncCheck(ctx context.Context) error {
	pending, err := w.storage.GetPendingSyncTransactions(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending transactions for startup check: %w", err)
	}

	if len(pending) == 0 {
		w.logger.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}

	w.logger.InfoContext(ctx, "Found pending transactions on startup, processing...",
		"count", len(pending))

	synced := 0
	failed := 0
	for _, tx := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.mirrorTransaction(ctx, tx.ID); err != nil {
			w.logger.ErrorContext(ctx, "Failed to mirror transaction during startup",
				"id", tx.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	w.logger.InfoContext(ctx, "Startup sync completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)

	return nil
}

func (w *MirrorWorker) mirrorTransaction(ctx context.Context, id string) error {
	tx, err := w.storage.GetTransaction(ctx, id)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("get transaction: %w", err)
	}

	ref, err := w.writer.Append(ctx, tx)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			w.logger.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to mirror: %w", err)
	}

	if err := w.storage.MarkSynced(ctx, id); err != nil {
		// The append worked; the row will be re-mirrored on the next pass.
		w.logger.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	w.logger.InfoContext(ctx, "Mirrored transaction",
		"id", id,
		"row_ref", ref,
		"amount_cents", tx.Amount.Cents)

	return nil
}
