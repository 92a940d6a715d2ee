package sheets

import (
	"context"

	"conti/internal/core"
)

// ExpenseAppender writes one expense, with its splits, to an external
// spreadsheet. It returns a reference to the written row.
type ExpenseAppender interface {
	Append(ctx context.Context, e core.Expense, splits []core.Split) (rowRef string, err error)
}
