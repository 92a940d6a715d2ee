package core

import (
	"fmt"
	"math"
)

// centEpsilon is the 1-cent tolerance kept from the decimal-era rules:
// EXACT split totals may deviate from the expense total by at most one
// cent, and settlement matching treats residuals of at most one cent as
// settled. All other money comparisons are exact integer comparisons.
const centEpsilon = 1

// percentEpsilon absorbs rounding in caller-supplied percentages
// (e.g. three entries of 33.33).
const percentEpsilon = 0.01

// CalculateSplitAmounts turns an expense total and the caller-supplied
// split requests into concrete per-user allocations that sum to the
// total. It is a pure function; request order is significant for EQUAL
// splits (see splitEqual).
func CalculateSplitAmounts(total Money, splitType SplitType, requests []SplitRequest) ([]Split, error) {
	if len(requests) == 0 {
		return nil, ErrEmptySplits
	}
	switch splitType {
	case SplitEqual:
		return splitEqual(total, requests), nil
	case SplitExact:
		return splitExact(total, requests)
	case SplitPercentage:
		return splitPercentage(total, requests)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSplitType, splitType)
	}
}

// splitEqual divides the total evenly, truncated to cents. The leftover
// cents are handed out one each to the first entries in caller-supplied
// order. This is the documented fairness policy: whoever is listed first
// pays the extra cent. Do not replace it with a sort.
func splitEqual(total Money, requests []SplitRequest) []Split {
	n := int64(len(requests))
	base := total.Cents / n
	rem := total.Cents - base*n

	splits := make([]Split, len(requests))
	for i, req := range requests {
		cents := base
		if int64(i) < rem {
			cents++
		}
		splits[i] = Split{UserID: req.UserID, Amount: Money{Cents: cents}}
	}
	return splits
}

// splitExact passes the supplied amounts through verbatim after checking
// that they cover the total within one cent.
func splitExact(total Money, requests []SplitRequest) ([]Split, error) {
	var sum int64
	splits := make([]Split, len(requests))
	for i, req := range requests {
		if req.Amount == nil {
			return nil, fmt.Errorf("%w (user %d)", ErrMissingAmount, req.UserID)
		}
		sum += req.Amount.Cents
		splits[i] = Split{UserID: req.UserID, Amount: *req.Amount}
	}
	if diff := sum - total.Cents; diff > centEpsilon || diff < -centEpsilon {
		return nil, fmt.Errorf("%w: splits sum %s, total %s",
			ErrAmountMismatch, Money{Cents: sum}, total)
	}
	return splits, nil
}

// splitPercentage allocates round(total * pct / 100) cents per entry and
// checks that the percentages sum to 100 within tolerance.
func splitPercentage(total Money, requests []SplitRequest) ([]Split, error) {
	var sum float64
	splits := make([]Split, len(requests))
	for i, req := range requests {
		if req.Percentage == nil {
			return nil, fmt.Errorf("%w (user %d)", ErrMissingPercentage, req.UserID)
		}
		pct := *req.Percentage
		sum += pct
		splits[i] = Split{
			UserID:     req.UserID,
			Amount:     Money{Cents: int64(math.Round(float64(total.Cents) * pct / 100))},
			Percentage: pct,
		}
	}
	if math.Abs(sum-100) > percentEpsilon {
		return nil, fmt.Errorf("%w: percentages sum %.2f", ErrPercentageMismatch, sum)
	}
	return splits, nil
}
