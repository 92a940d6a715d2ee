package services

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"golang.org/x/sync/singleflight"

	"conti/internal/core"
)

type BalanceService struct {
	repo   ExpenseRepository
	logger *slog.Logger

	// Collapses concurrent balance requests for the same group into a
	// single computation.
	group singleflight.Group
}

func NewBalanceService(repo ExpenseRepository, logger *slog.Logger) *BalanceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BalanceService{repo: repo, logger: logger}
}

// GetGroupBalance computes the minimal settlement transfers for a group
// from all of its recorded expenses.
func (s *BalanceService) GetGroupBalance(ctx context.Context, groupID int64) ([]core.Transfer, error) {
	v, err, _ := s.group.Do(strconv.FormatInt(groupID, 10), func() (any, error) {
		return s.computeBalance(ctx, groupID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]core.Transfer), nil
}

func (s *BalanceService) computeBalance(ctx context.Context, groupID int64) ([]core.Transfer, error) {
	if _, err := s.repo.GetGroup(ctx, groupID); err != nil {
		return nil, fmt.Errorf("load group: %w", err)
	}

	expenses, err := s.repo.ListGroupExpenses(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	ids := make([]int64, len(expenses))
	for i, e := range expenses {
		ids[i] = e.ID
	}
	splits, err := s.repo.ListSplitsForExpenses(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list splits: %w", err)
	}

	balances := core.AggregateBalances(expenses, splits)
	transfers, err := core.SimplifyDebts(balances)
	if err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "Computed group balance",
		"group_id", groupID,
		"expenses", len(expenses),
		"transfers", len(transfers))

	return transfers, nil
}
