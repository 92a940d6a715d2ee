package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"conti/internal/amqp"
	"conti/internal/core"
)

type fakeStorage struct {
	expenses map[int64]*core.Expense
	splits   map[int64][]core.Split
}

func (f *fakeStorage) GetExpense(_ context.Context, id int64) (*core.Expense, error) {
	e, ok := f.expenses[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return e, nil
}

func (f *fakeStorage) ListExpenseSplits(_ context.Context, expenseID int64) ([]core.Split, error) {
	return f.splits[expenseID], nil
}

type fakeAppender struct {
	appended []core.Expense
	err      error
}

func (f *fakeAppender) Append(_ context.Context, e core.Expense, _ []core.Split) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.appended = append(f.appended, e)
	return "Expenses!A2:G2", nil
}

func TestHandleExpenseCreated(t *testing.T) {
	storage := &fakeStorage{
		expenses: map[int64]*core.Expense{
			1: {
				ID: 1, GroupID: 2, PayerID: 3,
				Amount:    core.Money{Cents: 10000},
				SplitType: core.SplitEqual,
				CreatedAt: time.Now().UTC(),
			},
		},
		splits: map[int64][]core.Split{
			1: {{ExpenseID: 1, UserID: 3, Amount: core.Money{Cents: 10000}}},
		},
	}
	appender := &fakeAppender{}
	w := NewExportWorker(storage, appender)

	msg := amqp.NewExpenseCreatedMessage(1, 2)
	if err := w.HandleExpenseCreated(context.Background(), msg); err != nil {
		t.Fatalf("HandleExpenseCreated: %v", err)
	}
	if len(appender.appended) != 1 || appender.appended[0].ID != 1 {
		t.Fatalf("expected expense 1 appended, got %+v", appender.appended)
	}
}

func TestHandleExpenseCreatedUnknownExpense(t *testing.T) {
	w := NewExportWorker(&fakeStorage{}, &fakeAppender{})
	msg := amqp.NewExpenseCreatedMessage(99, 1)
	if err := w.HandleExpenseCreated(context.Background(), msg); err == nil {
		t.Fatal("expected error for unknown expense")
	}
}

func TestHandleExpenseCreatedAppendFailure(t *testing.T) {
	storage := &fakeStorage{
		expenses: map[int64]*core.Expense{
			1: {ID: 1, GroupID: 2, PayerID: 3, Amount: core.Money{Cents: 100}, SplitType: core.SplitEqual},
		},
		splits: map[int64][]core.Split{},
	}
	w := NewExportWorker(storage, &fakeAppender{err: errors.New("quota exceeded")})
	msg := amqp.NewExpenseCreatedMessage(1, 2)
	if err := w.HandleExpenseCreated(context.Background(), msg); err == nil {
		t.Fatal("expected append error to propagate for requeue")
	}
}
