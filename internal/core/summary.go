package core

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// RecentLimit is how many of the newest filtered transactions are exposed
// as RecentTransactions.
const RecentLimit = 5

// DailySummary is the projection of the ledger for one calendar day and an
// optional type filter. It is derived on demand and never persisted.
type DailySummary struct {
	TotalTransactions     int             `json:"totalTransactions"`
	TotalDeposits         int             `json:"totalDeposits"`
	TotalWithdrawals      int             `json:"totalWithdrawals"`
	TotalAmountProcessed  decimal.Decimal `json:"totalAmountProcessed"`
	TotalDepositAmount    decimal.Decimal `json:"totalDepositAmount"`
	TotalWithdrawalAmount decimal.Decimal `json:"totalWithdrawalAmount"`
	TotalEarnings         decimal.Decimal `json:"totalEarnings"`
	EarningsFromAccount   decimal.Decimal `json:"earningsFromAccount"`
	EarningsCash          decimal.Decimal `json:"earningsCash"`

	// AllFilteredTransactions is ordered newest first.
	AllFilteredTransactions []Transaction `json:"allFilteredTransactions"`
	// RecentTransactions shares its backing array with AllFilteredTransactions.
	RecentTransactions []Transaction `json:"recentTransactions"`

	SummaryDate time.Time `json:"summaryDate"`
}

// Summarize computes the daily summary of all for the calendar day containing
// day, restricted by filter. The window is [midnight, next midnight) in
// day's location. all is never modified.
func Summarize(all []Transaction, day time.Time, filter TypeFilter) DailySummary {
	start := StartOfDay(day)
	end := start.AddDate(0, 0, 1)

	filtered := make([]Transaction, 0)
	for _, t := range all {
		if t.Timestamp.Before(start) || !t.Timestamp.Before(end) {
			continue
		}
		if !filter.Matches(t.Type) {
			continue
		}
		filtered = append(filtered, t)
	}
	SortNewestFirst(filtered)

	s := DailySummary{
		TotalAmountProcessed:    decimal.Zero,
		TotalDepositAmount:      decimal.Zero,
		TotalWithdrawalAmount:   decimal.Zero,
		TotalEarnings:           decimal.Zero,
		EarningsFromAccount:     decimal.Zero,
		EarningsCash:            decimal.Zero,
		AllFilteredTransactions: filtered,
		RecentTransactions:      filtered[:min(RecentLimit, len(filtered))],
		SummaryDate:             start,
	}
	for _, t := range filtered {
		s.TotalTransactions++
		s.TotalAmountProcessed = s.TotalAmountProcessed.Add(t.Amount)
		switch t.Type {
		case Deposit:
			s.TotalDeposits++
			s.TotalDepositAmount = s.TotalDepositAmount.Add(t.Amount)
		case Withdrawal:
			s.TotalWithdrawals++
			s.TotalWithdrawalAmount = s.TotalWithdrawalAmount.Add(t.Amount)
		}

		s.TotalEarnings = s.TotalEarnings.Add(t.Charge)
		switch t.ChargeMode {
		case FromAccount:
			s.EarningsFromAccount = s.EarningsFromAccount.Add(t.Charge)
		case Cash:
			s.EarningsCash = s.EarningsCash.Add(t.Charge)
		}
	}
	return s
}

// SortNewestFirst orders txs by timestamp descending in place. Equal
// timestamps keep their relative order.
func SortNewestFirst(txs []Transaction) {
	slices.SortStableFunc(txs, func(a, b Transaction) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
}
