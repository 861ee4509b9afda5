package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"posledger/internal/amqp"
	"posledger/internal/core"
)

type fakeStore struct {
	initial []core.Transaction
	saved   [][]core.Transaction
	saveErr error
}

func (f *fakeStore) Load(context.Context) []core.Transaction {
	return append([]core.Transaction(nil), f.initial...)
}

func (f *fakeStore) Save(_ context.Context, txs []core.Transaction) error {
	f.saved = append(f.saved, append([]core.Transaction(nil), txs...))
	return f.saveErr
}

type fakeNotifier struct {
	msgs []*amqp.LedgerChangedMessage
	err  error
}

func (f *fakeNotifier) PublishLedgerChanged(_ context.Context, msg *amqp.LedgerChangedMessage) error {
	f.msgs = append(f.msgs, msg)
	return f.err
}

var (
	today     = time.Date(2025, 5, 10, 16, 45, 12, 0, time.UTC)
	yesterday = time.Date(2025, 5, 9, 0, 0, 0, 0, time.UTC)
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newService(t *testing.T, store *fakeStore, opts ...Option) *LedgerService {
	t.Helper()
	opts = append([]Option{
		WithClock(func() time.Time { return today }),
		WithIDGenerator(sequentialIDs()),
	}, opts...)
	return NewLedgerService(context.Background(), store, opts...)
}

func request(typ, amount, charge, mode string) TransactionRequest {
	return TransactionRequest{Type: typ, Amount: amount, Charge: charge, ChargeMode: mode}
}

func TestCreateDepositKeepsAmount(t *testing.T) {
	store := &fakeStore{}
	svc := newService(t, store)

	res := svc.Create(context.Background(), request("deposit", "1000", "50", "cash"), "09:00")
	require.True(t, res.Success, res.Err)
	assert.Equal(t, MsgCreated, res.Message)

	txs := svc.Transactions()
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(1000)))
	assert.True(t, txs[0].Charge.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, time.Date(2025, 5, 10, 9, 0, 0, 0, time.UTC), txs[0].Timestamp)
	assert.Len(t, store.saved, 1)
}

func TestCreateWithdrawalFromAccountIsNetted(t *testing.T) {
	svc := newService(t, &fakeStore{})

	res := svc.Create(context.Background(), request("withdrawal", "1000", "50", "from_account"), "09:00")
	require.True(t, res.Success, res.Err)
	assert.True(t, res.Transaction.Amount.Equal(decimal.NewFromInt(950)), res.Transaction.Amount.String())

	s := svc.Summary()
	assert.Equal(t, 1, s.TotalWithdrawals)
	assert.True(t, s.EarningsFromAccount.Equal(decimal.NewFromInt(50)))
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name string
		req  TransactionRequest
		time string
	}{
		{"missing amount", request("deposit", "", "5", "cash"), "09:00"},
		{"bad amount", request("deposit", "abc", "5", "cash"), "09:00"},
		{"negative charge", request("deposit", "10", "-5", "cash"), "09:00"},
		{"bad type", request("refund", "10", "5", "cash"), "09:00"},
		{"bad mode", request("deposit", "10", "5", "card"), "09:00"},
		{"bad time", request("deposit", "10", "5", "cash"), "25:00"},
		{"empty time", request("deposit", "10", "5", "cash"), ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := &fakeStore{}
			svc := newService(t, store)

			res := svc.Create(context.Background(), tc.req, tc.time)
			assert.False(t, res.Success)
			assert.Equal(t, MsgInvalidInput, res.Message)
			assert.ErrorIs(t, res.Err, core.ErrValidation)
			assert.Empty(t, svc.Transactions())
			assert.Empty(t, store.saved)
			assert.Zero(t, svc.Revision())
		})
	}
}

func TestCreateAcceptsCommaDecimalAndCase(t *testing.T) {
	svc := newService(t, &fakeStore{})
	res := svc.Create(context.Background(), request(" Deposit ", "12,5", "0", "CASH"), "7:05")
	require.True(t, res.Success, res.Err)
	assert.True(t, res.Transaction.Amount.Equal(decimal.RequireFromString("12.5")))
	assert.Equal(t, core.Cash, res.Transaction.ChargeMode)
}

func TestSummarySeparatesDays(t *testing.T) {
	store := &fakeStore{initial: []core.Transaction{
		{ID: "old", Type: core.Deposit, Amount: decimal.NewFromInt(10), Charge: decimal.NewFromInt(1), ChargeMode: core.Cash, Timestamp: yesterday.Add(10 * time.Hour)},
	}}
	svc := newService(t, store)
	require.True(t, svc.Create(context.Background(), request("deposit", "20", "2", "cash"), "08:00").Success)

	s := svc.Summary()
	require.Len(t, s.AllFilteredTransactions, 1)
	assert.Equal(t, "id-1", s.AllFilteredTransactions[0].ID)

	require.True(t, svc.SelectDate("2025-05-09").Success)
	s = svc.Summary()
	require.Len(t, s.AllFilteredTransactions, 1)
	assert.Equal(t, "old", s.AllFilteredTransactions[0].ID)
	assert.Equal(t, yesterday, s.SummaryDate)
}

func TestDeleteUnknownIDDoesNotPersist(t *testing.T) {
	store := &fakeStore{}
	svc := newService(t, store)
	require.True(t, svc.Create(context.Background(), request("deposit", "20", "2", "cash"), "08:00").Success)
	saves := len(store.saved)

	res := svc.Delete(context.Background(), "missing")
	assert.False(t, res.Success)
	assert.Equal(t, MsgNotFound, res.Message)
	assert.ErrorIs(t, res.Err, core.ErrNotFound)
	assert.Len(t, svc.Transactions(), 1)
	assert.Len(t, store.saved, saves)
}

func TestDeleteRemovesAndPersists(t *testing.T) {
	store := &fakeStore{}
	svc := newService(t, store)
	require.True(t, svc.Create(context.Background(), request("deposit", "20", "2", "cash"), "08:00").Success)

	res := svc.Delete(context.Background(), "id-1")
	require.True(t, res.Success)
	assert.Equal(t, MsgDeleted, res.Message)
	assert.Empty(t, svc.Transactions())
	assert.Empty(t, store.saved[len(store.saved)-1])
	assert.Zero(t, svc.Summary().TotalTransactions)
}

func TestUpdateKeepsOriginalDate(t *testing.T) {
	original := core.Transaction{
		ID: "a", Type: core.Withdrawal, Amount: decimal.NewFromInt(950), Charge: decimal.NewFromInt(50),
		ChargeMode: core.FromAccount, Timestamp: yesterday.Add(9 * time.Hour),
	}
	svc := newService(t, &fakeStore{initial: []core.Transaction{original}})

	edited := original
	edited.Amount = decimal.NewFromInt(2000)
	res := svc.Update(context.Background(), edited, "14:30")
	require.True(t, res.Success, res.Err)
	assert.Equal(t, MsgUpdated, res.Message)

	got := svc.Transactions()[0]
	assert.Equal(t, time.Date(2025, 5, 9, 14, 30, 0, 0, time.UTC), got.Timestamp)
	// no netting on update
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(2000)))
}

func TestUpdateUnknownIDReportsSuccess(t *testing.T) {
	store := &fakeStore{}
	svc := newService(t, store)
	require.True(t, svc.Create(context.Background(), request("deposit", "20", "2", "cash"), "08:00").Success)
	before := svc.Transactions()
	rev := svc.Revision()

	ghost := core.Transaction{ID: "ghost", Type: core.Deposit, Amount: decimal.NewFromInt(1), Charge: decimal.Zero, ChargeMode: core.Cash}
	res := svc.Update(context.Background(), ghost, "10:00")
	assert.True(t, res.Success)
	assert.Nil(t, res.Transaction)
	assert.Equal(t, before, svc.Transactions())
	assert.Equal(t, rev, svc.Revision())
	assert.Len(t, store.saved, 2)
}

func TestUpdateRejectsInvalidEnums(t *testing.T) {
	svc := newService(t, &fakeStore{})
	res := svc.Update(context.Background(), core.Transaction{ID: "a", Type: "refund", ChargeMode: core.Cash}, "10:00")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, core.ErrInvalidType)

	res = svc.Update(context.Background(), core.Transaction{ID: "a", Type: core.Deposit, ChargeMode: core.Cash}, "10")
	assert.ErrorIs(t, res.Err, core.ErrInvalidTime)
}

func TestSelectTypeFiltersSummary(t *testing.T) {
	svc := newService(t, &fakeStore{})
	ctx := context.Background()
	require.True(t, svc.Create(ctx, request("deposit", "100", "5", "cash"), "08:00").Success)
	require.True(t, svc.Create(ctx, request("withdrawal", "50", "3", "cash"), "09:00").Success)

	require.True(t, svc.SelectType("withdrawal").Success)
	s := svc.Summary()
	assert.Equal(t, 1, s.TotalTransactions)
	assert.Equal(t, core.FilterWithdrawal, svc.Selection().Type)

	res := svc.SelectType("refund")
	assert.False(t, res.Success)
	assert.Equal(t, core.FilterWithdrawal, svc.Selection().Type)

	res = svc.SelectDate("not-a-date")
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, core.ErrInvalidDate)
	assert.Equal(t, time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC), svc.Selection().Date)
}

func TestSummaryForLeavesSelection(t *testing.T) {
	svc := newService(t, &fakeStore{})
	require.True(t, svc.Create(context.Background(), request("deposit", "100", "5", "cash"), "08:00").Success)

	s, f, err := svc.SummaryFor("2025-05-09", "deposit")
	require.NoError(t, err)
	assert.Equal(t, core.FilterDeposit, f)
	assert.Zero(t, s.TotalTransactions)
	assert.Equal(t, 1, svc.Summary().TotalTransactions)

	_, _, err = svc.SummaryFor("", "bogus")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestPersistenceFailureStillUpdatesSummary(t *testing.T) {
	store := &fakeStore{saveErr: errors.New("quota exceeded")}
	svc := newService(t, store)

	res := svc.Create(context.Background(), request("deposit", "100", "5", "cash"), "08:00")
	assert.True(t, res.Success)
	assert.Equal(t, 1, svc.Summary().TotalTransactions)
	assert.Equal(t, uint64(1), svc.Revision())
}

func TestMutationsPublishChanges(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("broker down")}
	svc := newService(t, &fakeStore{}, WithNotifier(notifier))
	ctx := context.Background()

	require.True(t, svc.Create(ctx, request("deposit", "100", "5", "cash"), "08:00").Success)
	require.True(t, svc.Delete(ctx, "id-1").Success)
	assert.False(t, svc.Delete(ctx, "id-1").Success)

	require.Len(t, notifier.msgs, 2)
	assert.Equal(t, "create", notifier.msgs[0].Operation)
	assert.Equal(t, "2025-05-10", notifier.msgs[0].Day)
	assert.Equal(t, uint64(2), notifier.msgs[1].Revision)
}

type slowNotifier struct {
	started chan struct{}
	release chan struct{}
}

func (n *slowNotifier) PublishLedgerChanged(context.Context, *amqp.LedgerChangedMessage) error {
	close(n.started)
	<-n.release
	return nil
}

func TestReadsDoNotWaitForPublish(t *testing.T) {
	notifier := &slowNotifier{started: make(chan struct{}), release: make(chan struct{})}
	svc := newService(t, &fakeStore{}, WithNotifier(notifier))

	done := make(chan Result)
	go func() {
		done <- svc.Create(context.Background(), request("deposit", "100", "5", "cash"), "08:00")
	}()
	<-notifier.started

	read := make(chan int)
	go func() { read <- svc.Summary().TotalTransactions }()
	select {
	case n := <-read:
		assert.Equal(t, 1, n)
	case <-time.After(time.Second):
		close(notifier.release)
		t.Fatal("Summary blocked behind the change notifier")
	}
	assert.Equal(t, uint64(1), svc.Revision())

	close(notifier.release)
	assert.True(t, (<-done).Success)
}

func TestCreateRetriesDuplicateID(t *testing.T) {
	ids := []string{"dup", "dup", "fresh"}
	i := 0
	gen := func() string { id := ids[i%len(ids)]; i++; return id }
	store := &fakeStore{initial: []core.Transaction{
		{ID: "dup", Type: core.Deposit, Amount: decimal.NewFromInt(1), Charge: decimal.Zero, ChargeMode: core.Cash, Timestamp: today},
	}}
	svc := NewLedgerService(context.Background(), store,
		WithClock(func() time.Time { return today }), WithIDGenerator(gen))

	res := svc.Create(context.Background(), request("deposit", "1", "0", "cash"), "10:00")
	require.True(t, res.Success, res.Err)
	assert.Equal(t, "fresh", res.Transaction.ID)
}

func TestTransactionsOrderedNewestFirst(t *testing.T) {
	svc := newService(t, &fakeStore{})
	ctx := context.Background()
	for _, clock := range []string{"08:00", "12:00", "10:00"} {
		require.True(t, svc.Create(ctx, request("deposit", "1", "0", "cash"), clock).Success)
	}
	txs := svc.Transactions()
	for i := 1; i < len(txs); i++ {
		assert.False(t, txs[i].Timestamp.After(txs[i-1].Timestamp))
	}
	assert.Equal(t, "id-2", txs[0].ID)
}
