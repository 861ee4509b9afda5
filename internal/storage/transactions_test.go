package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"posledger/internal/core"
	"posledger/internal/storage/memory"
)

type failingKV struct{ getErr, setErr error }

func (f failingKV) Get(context.Context, string) (string, bool, error) { return "", false, f.getErr }
func (f failingKV) Set(context.Context, string, string) error         { return f.setErr }

func sampleLog() []core.Transaction {
	at := time.Date(2025, 5, 10, 9, 30, 0, 0, time.UTC)
	return []core.Transaction{
		{ID: "b", Type: core.Withdrawal, Amount: decimal.RequireFromString("950.25"), Charge: decimal.NewFromInt(50), ChargeMode: core.FromAccount, Timestamp: at.Add(time.Hour)},
		{ID: "a", Type: core.Deposit, Amount: decimal.NewFromInt(-3), Charge: decimal.Zero, ChargeMode: core.Cash, Timestamp: at},
	}
}

func TestRoundTrip(t *testing.T) {
	kv := memory.New()
	s := NewTransactionStore(kv, "", WithLocation(time.UTC))
	ctx := context.Background()

	want := sampleLog()
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	got := s.Load(ctx)
	if len(got) != len(want) {
		t.Fatalf("expected %d transactions, got %d", len(want), len(got))
	}
	for i := range want {
		w, g := want[i], got[i]
		if g.ID != w.ID || g.Type != w.Type || g.ChargeMode != w.ChargeMode ||
			!g.Amount.Equal(w.Amount) || !g.Charge.Equal(w.Charge) || !g.Timestamp.Equal(w.Timestamp) {
			t.Fatalf("record %d: got %+v, want %+v", i, g, w)
		}
	}
	if s.Key() != DefaultKey {
		t.Fatalf("expected default key, got %q", s.Key())
	}
}

func TestLoadConvertsToLocation(t *testing.T) {
	loc := time.FixedZone("WAT", 3600)
	kv := memory.New()
	ctx := context.Background()
	if err := NewTransactionStore(kv, "k").Save(ctx, sampleLog()); err != nil {
		t.Fatalf("save: %v", err)
	}

	got := NewTransactionStore(kv, "k", WithLocation(loc)).Load(ctx)
	if got[1].Timestamp.Location() != loc || got[1].Timestamp.Hour() != 10 {
		t.Fatalf("expected 10:30 WAT, got %v", got[1].Timestamp)
	}
}

func TestLoadReadsBrowserFormat(t *testing.T) {
	kv := memory.New()
	raw := `[{"id":"x","type":"withdrawal","amount":950,"charge":50,"chargeMode":"from_account","timestamp":"2025-05-10T08:00:00.000Z"},
	         {"id":"y","type":"deposit","amount":"12.5","charge":0,"chargeMode":"cash","timestamp":"2025-05-10T07:00:00Z"}]`
	if err := kv.Set(context.Background(), DefaultKey, raw); err != nil {
		t.Fatal(err)
	}

	got := NewTransactionStore(kv, DefaultKey, WithLocation(time.UTC)).Load(context.Background())
	if len(got) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(got))
	}
	if !got[0].Amount.Equal(decimal.NewFromInt(950)) || !got[0].Timestamp.Equal(time.Date(2025, 5, 10, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected first record %+v", got[0])
	}
	if !got[1].Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected second record %+v", got[1])
	}
}

func TestLoadDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	cases := map[string]KeyValueStore{
		"missing key": memory.New(),
		"read error":  failingKV{getErr: errors.New("disk gone")},
	}
	for _, raw := range map[string]string{
		"not json":       `{nope`,
		"bad timestamp":  `[{"id":"x","type":"deposit","amount":1,"charge":0,"chargeMode":"cash","timestamp":"yesterday"}]`,
		"bad type":       `[{"id":"x","type":"refund","amount":1,"charge":0,"chargeMode":"cash","timestamp":"2025-05-10T08:00:00Z"}]`,
		"bad amount":     `[{"id":"x","type":"deposit","amount":"lots","charge":0,"chargeMode":"cash","timestamp":"2025-05-10T08:00:00Z"}]`,
		"missing charge": `[{"id":"x","type":"deposit","amount":1,"chargeMode":"cash","timestamp":"2025-05-10T08:00:00Z"}]`,
	} {
		kv := memory.New()
		_ = kv.Set(ctx, DefaultKey, raw)
		cases[raw] = kv
	}

	for name, kv := range cases {
		got := NewTransactionStore(kv, DefaultKey).Load(ctx)
		if got == nil || len(got) != 0 {
			t.Fatalf("%s: expected empty log, got %v", name, got)
		}
	}
}

func TestSaveKeepsUnreadableLog(t *testing.T) {
	ctx := context.Background()
	const corrupt = `[{"id":"x","type":"deposit","amount":1,"charge":-5,"chargeMode":"cash","timestamp":"2025-05-10T08:00:00Z"}]`
	kv := memory.New()
	_ = kv.Set(ctx, DefaultKey, corrupt)
	s := NewTransactionStore(kv, DefaultKey)

	if got := s.Load(ctx); len(got) != 0 {
		t.Fatalf("expected empty log, got %v", got)
	}
	if err := s.Save(ctx, sampleLog()); !errors.Is(err, ErrUnreadableLog) {
		t.Fatalf("expected ErrUnreadableLog, got %v", err)
	}
	if raw, _, _ := kv.Get(ctx, DefaultKey); raw != corrupt {
		t.Fatalf("stored log was overwritten: %s", raw)
	}

	_ = kv.Set(ctx, DefaultKey, "[]")
	s.Load(ctx)
	if err := s.Save(ctx, sampleLog()); err != nil {
		t.Fatalf("expected save after a good load, got %v", err)
	}
}

func TestSaveReportsWriteFailure(t *testing.T) {
	s := NewTransactionStore(failingKV{setErr: errors.New("quota exceeded")}, "k")
	err := s.Save(context.Background(), sampleLog())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestEncodeEmptyLog(t *testing.T) {
	data, err := Encode(nil)
	if err != nil || string(data) != "[]" {
		t.Fatalf("expected [], got %s (err=%v)", data, err)
	}
}
