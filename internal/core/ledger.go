package core

import "sort"

// Summary holds the derived totals for a ledger snapshot. The identity
// BalanceCents == IncomeCents - ExpenseCents holds exactly, in integer cents.
type Summary struct {
	IncomeCents  int64
	ExpenseCents int64
	BalanceCents int64
}

// MonthBucket is the per-month income/expense aggregate. Month is the
// YYYY-MM key; months with no transactions never appear, so chart labels
// keep their gaps.
type MonthBucket struct {
	Month        string
	IncomeCents  int64
	ExpenseCents int64
}

// Summarize computes totals over a transaction snapshot. It never mutates
// its input and is idempotent for a fixed snapshot.
func Summarize(txs []Transaction) Summary {
	var s Summary
	for _, t := range txs {
		switch t.Type {
		case Income:
			s.IncomeCents += t.Amount.Cents
		case Expense:
			s.ExpenseCents += t.Amount.Cents
		}
	}
	s.BalanceCents = s.IncomeCents - s.ExpenseCents
	return s
}

// MonthlyBuckets groups transactions by calendar month and returns the
// buckets in chronological order.
func MonthlyBuckets(txs []Transaction) []MonthBucket {
	byMonth := make(map[string]*MonthBucket)
	for _, t := range txs {
		key := t.Date.MonthKey()
		b, ok := byMonth[key]
		if !ok {
			b = &MonthBucket{Month: key}
			byMonth[key] = b
		}
		switch t.Type {
		case Income:
			b.IncomeCents += t.Amount.Cents
		case Expense:
			b.ExpenseCents += t.Amount.Cents
		}
	}
	keys := make([]string, 0, len(byMonth))
	for k := range byMonth {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]MonthBucket, 0, len(keys))
	for _, k := range keys {
		out = append(out, *byMonth[k])
	}
	return out
}

// HighSpendWarning is prepended to the suggestion list when expenses exceed
// 80% of income.
const HighSpendWarning = "Warning: Expenses are high compared to income!"

var baseSuggestions = []string{
	"Review your spending on non-essentials.",
	"Try to save at least 15% of your income.",
}

// Suggestions returns the advice strings for a summary. The full static list
// is always present; the warning is prepended when expense > income*0.8 and
// income is non-zero. The comparison is exact in cents: 10*expense > 8*income.
func Suggestions(s Summary) []string {
	out := make([]string, 0, len(baseSuggestions)+1)
	if s.IncomeCents > 0 && s.ExpenseCents*10 > s.IncomeCents*8 {
		out = append(out, HighSpendWarning)
	}
	return append(out, baseSuggestions...)
}

// GoalProgress returns the savings progress as a percentage clamped to
// [0, 100]. ok is false when no goal is set (goal <= 0); the percentage is
// then 0 and callers render the no-goal sentinel instead.
func GoalProgress(balanceCents, goalCents int64) (percent float64, ok bool) {
	if goalCents <= 0 {
		return 0, false
	}
	percent = float64(balanceCents) / float64(goalCents) * 100
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return percent, true
}

// GoalStatus renders the goal status line shown next to the progress circle.
func GoalStatus(balanceCents, goalCents int64) string {
	if goalCents <= 0 {
		return "No goal set."
	}
	return "Saved " + FormatINR(balanceCents) + " of " + FormatINR(goalCents)
}
