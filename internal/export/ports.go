// Package export defines the outbound port for mirroring approved expenses
// to an external sheet.
package export

import (
	"context"

	"roomledger/internal/core"
)

// ExpenseAppender mirrors one approved expense to an external destination and
// returns a reference to where it landed.
type ExpenseAppender interface {
	Append(ctx context.Context, e core.Expense) (rowRef string, err error)
}
