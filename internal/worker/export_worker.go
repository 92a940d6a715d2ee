// Package worker exports newly created expenses to a spreadsheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"conti/internal/amqp"
	"conti/internal/core"
	"conti/internal/sheets"
)

// ExpenseReader is the slice of the storage layer the worker needs.
type ExpenseReader interface {
	GetExpense(ctx context.Context, id int64) (*core.Expense, error)
	ListExpenseSplits(ctx context.Context, expenseID int64) ([]core.Split, error)
}

// ExportWorker consumes expense-created messages and appends the
// corresponding expense to a spreadsheet.
type ExportWorker struct {
	storage  ExpenseReader
	appender sheets.ExpenseAppender
}

func NewExportWorker(storage ExpenseReader, appender sheets.ExpenseAppender) *ExportWorker {
	return &ExportWorker{storage: storage, appender: appender}
}

// HandleExpenseCreated processes one expense-created message. Errors
// are returned so the consumer can requeue the delivery.
func (w *ExportWorker) HandleExpenseCreated(ctx context.Context, msg *amqp.ExpenseCreatedMessage) error {
	slog.InfoContext(ctx, "Processing expense-created message",
		"expense_id", msg.ExpenseID,
		"group_id", msg.GroupID,
		"version", msg.Version)

	expense, err := w.storage.GetExpense(ctx, msg.ExpenseID)
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}
	splits, err := w.storage.ListExpenseSplits(ctx, msg.ExpenseID)
	if err != nil {
		return fmt.Errorf("get splits from storage: %w", err)
	}

	rowRef, err := w.appender.Append(ctx, *expense, splits)
	if err != nil {
		return fmt.Errorf("append expense to sheet: %w", err)
	}

	slog.InfoContext(ctx, "Expense exported",
		"expense_id", msg.ExpenseID,
		"row_ref", rowRef)
	return nil
}
