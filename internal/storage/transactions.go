package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"posledger/internal/core"
	"posledger/internal/log"
)

// DefaultKey is the key the log is stored under unless configured otherwise.
const DefaultKey = "pos_transactions"

// TimestampLayout matches the ISO-8601 form browsers produce for dates,
// e.g. 2025-05-10T09:00:00.000Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// record is the serialised form of one transaction.
type record struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	Amount     json.Number `json:"amount"`
	Charge     json.Number `json:"charge"`
	ChargeMode string      `json:"chargeMode"`
	Timestamp  string      `json:"timestamp"`
}

// ErrUnreadableLog is returned by Save while the stored log could not be
// loaded. The stored value is left as it is rather than overwritten.
var ErrUnreadableLog = errors.New("stored transaction log is unreadable")

// TransactionStore loads and saves the whole transaction log.
type TransactionStore struct {
	kv     KeyValueStore
	key    string
	loc    *time.Location
	logger *log.Logger

	// set while the last Load failed
	unreadable atomic.Bool
}

type Option func(*TransactionStore)

// WithLocation sets the location loaded timestamps are converted to.
func WithLocation(loc *time.Location) Option {
	return func(s *TransactionStore) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger sets the logger used for absorbed load failures.
func WithLogger(l *log.Logger) Option {
	return func(s *TransactionStore) {
		if l != nil {
			s.logger = l.WithComponent(log.ComponentStorage)
		}
	}
}

func NewTransactionStore(kv KeyValueStore, key string, opts ...Option) *TransactionStore {
	if key == "" {
		key = DefaultKey
	}
	s := &TransactionStore{
		kv:     kv,
		key:    key,
		loc:    time.Local,
		logger: log.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the storage key of the log.
func (s *TransactionStore) Key() string {
	return s.key
}

// Load reads the log. A missing key or any read or decode failure yields an
// empty log; failures are logged, never returned. After a failure Save
// refuses to overwrite the key until a later Load succeeds.
func (s *TransactionStore) Load(ctx context.Context) []core.Transaction {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.unreadable.Store(true)
		s.logger.ErrorContext(ctx, "Failed to read transactions", log.FieldStorageKey, s.key, log.FieldError, err)
		return []core.Transaction{}
	}
	if !ok || raw == "" {
		s.unreadable.Store(false)
		return []core.Transaction{}
	}

	txs, err := Decode([]byte(raw), s.loc)
	if err != nil {
		s.unreadable.Store(true)
		s.logger.ErrorContext(ctx, "Failed to decode stored transactions", log.FieldStorageKey, s.key, log.FieldError, err)
		return []core.Transaction{}
	}
	s.unreadable.Store(false)

	s.logger.DebugContext(ctx, "Loaded transactions", log.FieldStorageKey, s.key, log.FieldCount, len(txs))
	return txs
}

// Save overwrites the stored log with txs in a single write.
func (s *TransactionStore) Save(ctx context.Context, txs []core.Transaction) error {
	if s.unreadable.Load() {
		return fmt.Errorf("save %s: %w", s.key, ErrUnreadableLog)
	}
	data, err := Encode(txs)
	if err != nil {
		return fmt.Errorf("encode transactions: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("write transactions: %w", err)
	}
	return nil
}

// Encode serialises txs as a JSON array with string timestamps in UTC.
func Encode(txs []core.Transaction) ([]byte, error) {
	recs := make([]record, len(txs))
	for i, t := range txs {
		recs[i] = record{
			ID:         t.ID,
			Type:       string(t.Type),
			Amount:     json.Number(t.Amount.String()),
			Charge:     json.Number(t.Charge.String()),
			ChargeMode: string(t.ChargeMode),
			Timestamp:  t.Timestamp.UTC().Format(TimestampLayout),
		}
	}
	return json.Marshal(recs)
}

// Decode parses a stored log. Timestamps are converted to loc.
func Decode(data []byte, loc *time.Location) ([]core.Transaction, error) {
	var recs []record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}

	txs := make([]core.Transaction, 0, len(recs))
	for i, r := range recs {
		t, err := r.toTransaction(loc)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		txs = append(txs, t)
	}
	return txs, nil
}

func (r record) toTransaction(loc *time.Location) (core.Transaction, error) {
	amount, err := decimal.NewFromString(r.Amount.String())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", r.Amount, core.ErrInvalidAmount)
	}
	charge, err := decimal.NewFromString(r.Charge.String())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("charge %q: %w", r.Charge, core.ErrInvalidCharge)
	}
	ts, err := time.Parse(time.RFC3339, r.Timestamp)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("timestamp %q: %w", r.Timestamp, err)
	}

	t := core.Transaction{
		ID:         r.ID,
		Type:       core.TransactionType(r.Type),
		Amount:     amount,
		Charge:     charge,
		ChargeMode: core.ChargeMode(r.ChargeMode),
		Timestamp:  ts.In(loc),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}
