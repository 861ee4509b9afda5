package core

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var day1 = time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)

func tx(id string, typ TransactionType, amount, charge int64, mode ChargeMode, at time.Time) Transaction {
	return Transaction{
		ID:         id,
		Type:       typ,
		Amount:     decimal.NewFromInt(amount),
		Charge:     decimal.NewFromInt(charge),
		ChargeMode: mode,
		Timestamp:  at,
	}
}

func sampleLog() []Transaction {
	return []Transaction{
		tx("a", Deposit, 1000, 50, Cash, day1.Add(9*time.Hour)),
		tx("b", Withdrawal, 950, 50, FromAccount, day1.Add(11*time.Hour)),
		tx("c", Deposit, 200, 20, FromAccount, day1.Add(10*time.Hour)),
		tx("d", Withdrawal, 500, 30, Cash, day1.Add(30*time.Hour)), // next day
		tx("e", Deposit, 70, 10, Cash, day1.Add(-time.Minute)),     // previous day
	}
}

func ids(txs []Transaction) string {
	out := ""
	for _, t := range txs {
		out += t.ID
	}
	return out
}

func TestSummarizeAggregates(t *testing.T) {
	s := Summarize(sampleLog(), day1.Add(15*time.Hour), FilterAll)

	if s.TotalTransactions != 3 || s.TotalDeposits != 2 || s.TotalWithdrawals != 1 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	checks := []struct {
		name string
		got  decimal.Decimal
		want int64
	}{
		{"total amount", s.TotalAmountProcessed, 2150},
		{"deposit amount", s.TotalDepositAmount, 1200},
		{"withdrawal amount", s.TotalWithdrawalAmount, 950},
		{"earnings", s.TotalEarnings, 120},
		{"from account", s.EarningsFromAccount, 70},
		{"cash", s.EarningsCash, 50},
	}
	for _, c := range checks {
		if !c.got.Equal(decimal.NewFromInt(c.want)) {
			t.Fatalf("%s: got %s, want %d", c.name, c.got, c.want)
		}
	}
	if got := ids(s.AllFilteredTransactions); got != "bca" {
		t.Fatalf("expected newest-first order bca, got %s", got)
	}
	if !s.SummaryDate.Equal(day1) {
		t.Fatalf("summary date %v, want %v", s.SummaryDate, day1)
	}
}

func TestSummarizeTypeFilter(t *testing.T) {
	log := sampleLog()
	for _, f := range []TypeFilter{FilterDeposit, FilterWithdrawal} {
		s := Summarize(log, day1, f)
		for _, tr := range s.AllFilteredTransactions {
			if string(tr.Type) != string(f) {
				t.Fatalf("filter %s leaked %s", f, tr.Type)
			}
		}
	}

	all := Summarize(log, day1, FilterAll)
	dep := Summarize(log, day1, FilterDeposit)
	wd := Summarize(log, day1, FilterWithdrawal)
	if all.TotalTransactions != dep.TotalTransactions+wd.TotalTransactions {
		t.Fatalf("partition broken: %d != %d + %d", all.TotalTransactions, dep.TotalTransactions, wd.TotalTransactions)
	}
	if empty := Summarize(log, day1, ""); empty.TotalTransactions != all.TotalTransactions {
		t.Fatalf("empty filter should behave like all")
	}
}

func TestSummarizeMidnightBoundary(t *testing.T) {
	log := []Transaction{
		tx("start", Deposit, 1, 0, Cash, day1),
		tx("next", Deposit, 1, 0, Cash, day1.AddDate(0, 0, 1)),
	}
	s := Summarize(log, day1, FilterAll)
	if ids(s.AllFilteredTransactions) != "start" {
		t.Fatalf("expected only the midnight entry, got %s", ids(s.AllFilteredTransactions))
	}
	s = Summarize(log, day1.AddDate(0, 0, 1), FilterAll)
	if ids(s.AllFilteredTransactions) != "next" {
		t.Fatalf("expected only next-day entry, got %s", ids(s.AllFilteredTransactions))
	}
}

func TestSummarizeSeparatesDays(t *testing.T) {
	log := sampleLog()
	d1 := Summarize(log, day1, FilterAll)
	d2 := Summarize(log, day1.AddDate(0, 0, 1), FilterAll)
	seen := map[string]bool{}
	for _, tr := range d1.AllFilteredTransactions {
		seen[tr.ID] = true
	}
	for _, tr := range d2.AllFilteredTransactions {
		if seen[tr.ID] {
			t.Fatalf("transaction %s appears on both days", tr.ID)
		}
	}
	if ids(d2.AllFilteredTransactions) != "d" {
		t.Fatalf("day 2 expected d, got %s", ids(d2.AllFilteredTransactions))
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, day1, FilterAll)
	if s.TotalTransactions != 0 || !s.TotalEarnings.IsZero() || !s.TotalAmountProcessed.IsZero() {
		t.Fatalf("expected zero aggregates, got %+v", s)
	}
	if s.AllFilteredTransactions == nil || len(s.AllFilteredTransactions) != 0 || len(s.RecentTransactions) != 0 {
		t.Fatalf("expected empty non-nil listings")
	}
}

func TestSummarizeRecentAndOrdering(t *testing.T) {
	var log []Transaction
	for i := 0; i < 8; i++ {
		log = append(log, tx(fmt.Sprint(i), Deposit, 10, 1, Cash, day1.Add(time.Duration(i)*time.Hour)))
	}
	// tie with "7": stable ordering keeps log order
	log = append(log, tx("t", Deposit, 10, 1, Cash, day1.Add(7*time.Hour)))

	s := Summarize(log, day1, FilterAll)
	if len(s.RecentTransactions) != RecentLimit {
		t.Fatalf("expected %d recent, got %d", RecentLimit, len(s.RecentTransactions))
	}
	if ids(s.RecentTransactions) != "7t654" {
		t.Fatalf("unexpected recent order %s", ids(s.RecentTransactions))
	}
	for i := 1; i < len(s.AllFilteredTransactions); i++ {
		if s.AllFilteredTransactions[i].Timestamp.After(s.AllFilteredTransactions[i-1].Timestamp) {
			t.Fatalf("not sorted descending at %d", i)
		}
	}
}

func TestSummarizeIsPure(t *testing.T) {
	log := sampleLog()
	before := ids(log)

	a := Summarize(log, day1, FilterAll)
	b := Summarize(log, day1, FilterAll)

	if ids(log) != before {
		t.Fatalf("input log was reordered: %s", ids(log))
	}
	if ids(a.AllFilteredTransactions) != ids(b.AllFilteredTransactions) ||
		a.TotalTransactions != b.TotalTransactions ||
		!a.TotalAmountProcessed.Equal(b.TotalAmountProcessed) ||
		!a.TotalEarnings.Equal(b.TotalEarnings) ||
		!a.SummaryDate.Equal(b.SummaryDate) {
		t.Fatalf("repeated calls differ: %+v vs %+v", a, b)
	}
}
