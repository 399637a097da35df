package ledger

import (
	"moneta/internal/core"
)

// TemplateEdit is the result of applying a template edit: the updated template
// record plus the rewritten transactions (empty unless impactPast was set).
type TemplateEdit struct {
	Template     core.RecurringTemplate
	Transactions []core.Transaction
}

// ApplyTemplateEdit propagates an edited template to its previously
// materialized transactions.
//
// With impactPast=false no existing transaction is touched; only future
// materialization picks up the new fields. With impactPast=true every
// transaction originating from the template is rewritten: description and
// category take the new values, and the amount magnitude is re-signed
// according to each transaction's own type, so an expense row stays an
// expense. Dates are never rewritten; months are owned by the materializer.
//
// Propagation against a template with no materialized transactions is a no-op.
func ApplyTemplateEdit(tpl core.RecurringTemplate, existing []core.Transaction, impactPast bool) TemplateEdit {
	edit := TemplateEdit{Template: tpl}
	if !impactPast {
		return edit
	}

	for _, tx := range existing {
		if tx.RecurringID != tpl.ID {
			continue
		}
		updated := tx
		updated.Description = tpl.Description
		updated.CategoryID = tpl.CategoryID
		updated.Amount = updated.Type.Sign(tpl.Amount.Abs())
		edit.Transactions = append(edit.Transactions, updated)
	}
	return edit
}
