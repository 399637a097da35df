// Package sheets defines the outbound port for the spreadsheet mirror.
package sheets

import (
	"context"

	"moneta/internal/core"
)

// TransactionWriter appends one transaction row to the mirror and returns a
// reference to the written row.
type TransactionWriter interface {
	Append(ctx context.Context, tx core.Transaction) (rowRef string, err error)
}
