package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	SplitEqual      SplitType = "EQUAL"
	SplitExact      SplitType = "EXACT"
	SplitPercentage SplitType = "PERCENTAGE"
)

type (
	// SplitType selects the strategy used to derive per-user allocations
	// from an expense total.
	SplitType string

	User struct {
		ID     int64
		Name   string
		Email  string
		Mobile string
	}

	Group struct {
		ID        int64
		Name      string
		MemberIDs []int64
	}

	// Expense is a payment made by one user on behalf of a group.
	// Expenses and their splits are immutable once created.
	Expense struct {
		ID          int64
		GroupID     int64
		PayerID     int64
		Amount      Money
		Description string
		SplitType   SplitType
		CreatedAt   time.Time
	}

	// Split is the portion of an expense attributed to one user.
	// Percentage is only meaningful for PERCENTAGE expenses.
	Split struct {
		ExpenseID  int64
		UserID     int64
		Amount     Money
		Percentage float64
	}

	// SplitRequest is one caller-supplied entry of a split computation.
	// Amount is required for EXACT, Percentage for PERCENTAGE; both are
	// ignored for EQUAL.
	SplitRequest struct {
		UserID     int64    `json:"userId"`
		Amount     *Money   `json:"amount,omitempty"`
		Percentage *float64 `json:"percentage,omitempty"`
	}

	// NetBalance is a user's aggregate position across a group's
	// expenses. Positive means the group owes the user, negative means
	// the user owes the group. Derived, never persisted.
	NetBalance struct {
		UserID int64
		Amount Money
	}

	// Transfer is a suggested settlement payment from one user to
	// another. Derived fresh on every balance query.
	Transfer struct {
		From   int64 `json:"from"`
		To     int64 `json:"to"`
		Amount Money `json:"amount"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyEmail       = errors.New("empty email")
	ErrUnknownSplitType = errors.New("unknown split type")

	// Split validation failures. All map to a 400-class response.
	ErrEmptySplits        = errors.New("at least one split is required")
	ErrMissingAmount      = errors.New("amount is required for EXACT splits")
	ErrAmountMismatch     = errors.New("split amounts do not match the expense total")
	ErrMissingPercentage  = errors.New("percentage is required for PERCENTAGE splits")
	ErrPercentageMismatch = errors.New("split percentages do not sum to 100")

	// ErrUnbalanced signals that a group's balances do not sum to zero.
	// It indicates corrupted stored data, not bad input (500-class).
	ErrUnbalanced = errors.New("group balances do not sum to zero")
)

// ParseSplitType validates a wire-level split type tag.
func ParseSplitType(s string) (SplitType, error) {
	switch SplitType(strings.ToUpper(strings.TrimSpace(s))) {
	case SplitEqual:
		return SplitEqual, nil
	case SplitExact:
		return SplitExact, nil
	case SplitPercentage:
		return SplitPercentage, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSplitType, s)
	}
}

func (u User) Validate() error {
	if strings.TrimSpace(u.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(u.Email) == "" {
		return ErrEmptyEmail
	}
	return nil
}

func (g Group) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

func (e Expense) Validate() error {
	if e.GroupID <= 0 {
		return errors.New("group id is required")
	}
	if e.PayerID <= 0 {
		return errors.New("payer id is required")
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if len(e.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if _, err := ParseSplitType(string(e.SplitType)); err != nil {
		return err
	}
	return nil
}
