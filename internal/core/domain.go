package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Deposit    TransactionType = "deposit"
	Withdrawal TransactionType = "withdrawal"
)

const (
	FromAccount ChargeMode = "from_account"
	Cash        ChargeMode = "cash"
)

const (
	FilterAll        TypeFilter = "all"
	FilterDeposit    TypeFilter = TypeFilter(Deposit)
	FilterWithdrawal TypeFilter = TypeFilter(Withdrawal)
)

type (
	TransactionType string

	// ChargeMode says whether the fee is taken out of the transaction amount
	// or collected separately in cash.
	ChargeMode string

	// TypeFilter narrows a summary to one transaction type. The empty value
	// behaves like FilterAll.
	TypeFilter string

	Transaction struct {
		ID         string          `json:"id"`
		Type       TransactionType `json:"type"`
		Amount     decimal.Decimal `json:"amount"`
		Charge     decimal.Decimal `json:"charge"`
		ChargeMode ChargeMode      `json:"chargeMode"`
		Timestamp  time.Time       `json:"timestamp"`
	}
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("transaction not found")
	ErrInvalidType       = errors.New("invalid transaction type")
	ErrInvalidChargeMode = errors.New("invalid charge mode")
	ErrInvalidFilter     = errors.New("invalid type filter")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidCharge     = errors.New("invalid charge")
	ErrInvalidTime       = errors.New("invalid time of day")
	ErrInvalidDate       = errors.New("invalid date")
	ErrEmptyID           = errors.New("empty transaction id")
)

func (t TransactionType) Validate() error {
	switch t {
	case Deposit, Withdrawal:
		return nil
	default:
		return ErrInvalidType
	}
}

// Label is the human readable form used in reports.
func (t TransactionType) Label() string {
	if t == Deposit {
		return "Deposit"
	}
	return "Withdrawal"
}

func (m ChargeMode) Validate() error {
	switch m {
	case FromAccount, Cash:
		return nil
	default:
		return ErrInvalidChargeMode
	}
}

func (m ChargeMode) Label() string {
	if m == FromAccount {
		return "From Account"
	}
	return "Cash"
}

// ParseTypeFilter accepts "all", "deposit" or "withdrawal" in any case.
// An empty string yields FilterAll.
func ParseTypeFilter(s string) (TypeFilter, error) {
	f := TypeFilter(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FilterAll, nil
	}
	switch f {
	case FilterAll, FilterDeposit, FilterWithdrawal:
		return f, nil
	default:
		return "", ErrInvalidFilter
	}
}

// Matches reports whether t passes the filter.
func (f TypeFilter) Matches(t TransactionType) bool {
	if f == "" || f == FilterAll {
		return true
	}
	return TransactionType(f) == t
}

// String returns the canonical filter name; empty becomes "all".
func (f TypeFilter) String() string {
	if f == "" {
		return string(FilterAll)
	}
	return string(f)
}

func (f TypeFilter) Label() string {
	switch f {
	case FilterDeposit:
		return "Deposits"
	case FilterWithdrawal:
		return "Withdrawals"
	default:
		return "All Transactions"
	}
}

// Validate checks the record invariants of a stored transaction.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return ErrEmptyID
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if err := t.ChargeMode.Validate(); err != nil {
		return err
	}
	if t.Charge.IsNegative() {
		return ErrInvalidCharge
	}
	if t.Timestamp.IsZero() {
		return errors.New("timestamp cannot be zero")
	}
	return nil
}

// NetAmount applies the charge-netting rule used when a transaction is first
// recorded: a withdrawal whose fee comes from the account is stored net of it.
func NetAmount(t TransactionType, mode ChargeMode, amount, charge decimal.Decimal) decimal.Decimal {
	if t == Withdrawal && mode == FromAccount {
		return amount.Sub(charge)
	}
	return amount
}
