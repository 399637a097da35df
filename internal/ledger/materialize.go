// Package ledger implements the pure computation core of the personal-finance
// ledger: recurring-transaction materialization, retroactive template-edit
// propagation, and read-only aggregation over transaction snapshots.
//
// Every function here is synchronous and side-effect free. Callers hand in a
// full in-memory snapshot and apply the returned mutations themselves; the
// package never holds state across calls.
package ledger

import (
	"fmt"
	"time"

	"moneta/internal/core"
)

// Scan horizon around "today": 12 months of backfill (enough for rolling
// averages) and 13 months of future generation for advance planning.
const (
	scanMonthsBack    = 12
	scanMonthsForward = 13
)

// MaterializedID returns the deterministic identifier for the transaction a
// template generates in a given month. Re-running materialization can never
// double-insert because the ID is reproducible; the per-month existence check
// remains the primary dedup mechanism.
func MaterializedID(templateID string, year int, month time.Month) string {
	return fmt.Sprintf("rec-commit-%s-%04d-%02d", templateID, year, int(month))
}

// Materialize computes the transactions that should exist for the active
// templates but do not yet, within the bounded scan window, and returns them
// for the caller to append.
//
// Dedup key is (recurringID, calendar month) only: a month that already has a
// transaction for the template is never regenerated, regardless of any edits
// to description or amount. Calling Materialize again with the returned batch
// included in existing yields an empty result.
func Materialize(templates []core.RecurringTemplate, existing []core.Transaction, today time.Time) []core.Transaction {
	seen := make(map[string]struct{}, len(existing))
	for _, tx := range existing {
		if tx.RecurringID == "" {
			continue
		}
		seen[tx.RecurringID+"|"+monthKey(tx.Date.Time)] = struct{}{}
	}

	scanEnd := monthStart(today.AddDate(0, scanMonthsForward, 0)) // exclusive

	var out []core.Transaction
	for _, tpl := range templates {
		if !tpl.Active {
			continue
		}

		start := monthStart(today.AddDate(0, -scanMonthsBack, 0))
		if !tpl.StartDate.IsEmpty() && tpl.StartDate.After(start) {
			start = monthStart(tpl.StartDate.Time)
		}

		for m := start; m.Before(scanEnd); m = m.AddDate(0, 1, 0) {
			// Templates with an end date never generate past it. An inverted
			// start/end range fails here on the first month and yields nothing.
			if !tpl.EndDate.IsEmpty() && m.After(tpl.EndDate.Time) {
				break
			}

			if _, exists := seen[tpl.ID+"|"+monthKey(m)]; exists {
				continue
			}

			date := clampedDate(m.Year(), m.Month(), tpl.DayOfMonth)
			tx := core.Transaction{
				ID:          MaterializedID(tpl.ID, m.Year(), m.Month()),
				Date:        date,
				Description: tpl.Description,
				Amount:      tpl.Type.Sign(tpl.Amount),
				CategoryID:  tpl.CategoryID,
				Type:        tpl.Type,
				IsRecurring: true,
				RecurringID: tpl.ID,
			}
			out = append(out, tx)
			seen[tpl.ID+"|"+monthKey(m)] = struct{}{}
		}
	}
	return out
}
