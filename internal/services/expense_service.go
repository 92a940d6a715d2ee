// Package services wires the split engine to persistence and messaging.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"conti/internal/core"
)

// ExpenseRepository is the slice of the storage layer the expense
// service needs.
type ExpenseRepository interface {
	GetGroup(ctx context.Context, id int64) (*core.Group, error)
	CreateExpense(ctx context.Context, e *core.Expense, splits []core.Split) error
	GetExpense(ctx context.Context, id int64) (*core.Expense, error)
	ListGroupExpenses(ctx context.Context, groupID int64) ([]core.Expense, error)
	ListSplitsForExpenses(ctx context.Context, expenseIDs []int64) ([]core.Split, error)
}

// ExpensePublisher emits an event after an expense is persisted.
type ExpensePublisher interface {
	PublishExpenseCreated(ctx context.Context, expenseID, groupID int64) error
}

type AddExpenseRequest struct {
	GroupID     int64
	PayerID     int64
	Amount      core.Money
	Description string
	SplitType   string
	Splits      []core.SplitRequest
}

type ExpenseService struct {
	repo      ExpenseRepository
	publisher ExpensePublisher
	logger    *slog.Logger
}

// NewExpenseService builds an expense service. publisher may be nil
// when no message broker is configured.
func NewExpenseService(repo ExpenseRepository, publisher ExpensePublisher, logger *slog.Logger) *ExpenseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExpenseService{repo: repo, publisher: publisher, logger: logger}
}

// AddExpense validates the request, computes the per-user split amounts
// and persists the expense with its splits atomically. The returned
// splits reflect what was stored.
func (s *ExpenseService) AddExpense(ctx context.Context, req AddExpenseRequest) (*core.Expense, []core.Split, error) {
	splitType, err := core.ParseSplitType(req.SplitType)
	if err != nil {
		return nil, nil, err
	}

	expense := &core.Expense{
		GroupID:     req.GroupID,
		PayerID:     req.PayerID,
		Amount:      req.Amount,
		Description: req.Description,
		SplitType:   splitType,
	}
	if err := expense.Validate(); err != nil {
		return nil, nil, err
	}

	if _, err := s.repo.GetGroup(ctx, req.GroupID); err != nil {
		return nil, nil, fmt.Errorf("load group: %w", err)
	}

	splits, err := core.CalculateSplitAmounts(req.Amount, splitType, req.Splits)
	if err != nil {
		return nil, nil, err
	}

	if err := s.repo.CreateExpense(ctx, expense, splits); err != nil {
		return nil, nil, fmt.Errorf("save expense: %w", err)
	}

	// Publishing is best-effort. The expense is already committed and
	// must not be rolled back because the broker is unreachable.
	if s.publisher != nil {
		if err := s.publisher.PublishExpenseCreated(ctx, expense.ID, expense.GroupID); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish expense-created event",
				"error", err,
				"expense_id", expense.ID,
				"group_id", expense.GroupID)
		}
	}

	return expense, splits, nil
}

// GetGroupExpenses returns a group's expenses with their splits.
func (s *ExpenseService) GetGroupExpenses(ctx context.Context, groupID int64) ([]core.Expense, []core.Split, error) {
	if _, err := s.repo.GetGroup(ctx, groupID); err != nil {
		return nil, nil, fmt.Errorf("load group: %w", err)
	}

	expenses, err := s.repo.ListGroupExpenses(ctx, groupID)
	if err != nil {
		return nil, nil, fmt.Errorf("list expenses: %w", err)
	}

	ids := make([]int64, len(expenses))
	for i, e := range expenses {
		ids[i] = e.ID
	}
	splits, err := s.repo.ListSplitsForExpenses(ctx, ids)
	if err != nil {
		return nil, nil, fmt.Errorf("list splits: %w", err)
	}
	return expenses, splits, nil
}
