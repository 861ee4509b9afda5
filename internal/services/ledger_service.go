package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"posledger/internal/amqp"
	"posledger/internal/core"
	"posledger/internal/log"
)

// User-facing result messages
const (
	MsgCreated         = "Transaction recorded successfully!"
	MsgUpdated         = "Transaction updated successfully!"
	MsgDeleted         = "Transaction deleted successfully!"
	MsgNotFound        = "Transaction not found for deletion."
	MsgInvalidInput    = "Please fill in all required fields with valid numbers and time."
	MsgInvalidDate     = "Please select a valid date."
	MsgInvalidFilter   = "Please select a valid transaction type."
	MsgSelectionUpdate = "Selection updated."
)

// Persister is the durable side of the ledger.
type Persister interface {
	Load(ctx context.Context) []core.Transaction
	Save(ctx context.Context, txs []core.Transaction) error
}

// ChangeNotifier receives an event after every committed mutation.
type ChangeNotifier interface {
	PublishLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error
}

// Result is the outcome of a user intent. Err carries a core sentinel when
// Success is false.
type Result struct {
	Success     bool
	Message     string
	Err         error
	Transaction *core.Transaction
}

func ok(msg string, tx *core.Transaction) Result {
	return Result{Success: true, Message: msg, Transaction: tx}
}

func fail(msg string, err error) Result {
	return Result{Message: msg, Err: err}
}

// Selection is the summary filter state.
type Selection struct {
	Date time.Time       `json:"date"`
	Type core.TypeFilter `json:"type"`
}

// LedgerService owns the transaction log and the summary derived from it.
// All methods are safe for concurrent use; intents are applied one at a time.
type LedgerService struct {
	mu sync.Mutex

	store    Persister
	notifier ChangeNotifier
	validate *ValidationHelper
	logger   *log.Logger
	now      func() time.Time
	newID    func() string

	log       []core.Transaction
	selection Selection
	summary   core.DailySummary
	revision  uint64
}

type Option func(*LedgerService)

// WithClock replaces time.Now. The clock's location defines calendar days.
func WithClock(now func() time.Time) Option {
	return func(s *LedgerService) { s.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *LedgerService) { s.newID = gen }
}

// WithNotifier publishes change events after each committed mutation.
func WithNotifier(n ChangeNotifier) Option {
	return func(s *LedgerService) { s.notifier = n }
}

func WithLogger(l *log.Logger) Option {
	return func(s *LedgerService) { s.logger = l.WithComponent(log.ComponentLedger) }
}

// NewLedgerService loads the persisted log and selects today with no type
// filter.
func NewLedgerService(ctx context.Context, store Persister, opts ...Option) *LedgerService {
	s := &LedgerService{
		store:    store,
		validate: NewValidationHelper(),
		logger:   log.Discard(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.log = store.Load(ctx)
	if s.log == nil {
		s.log = []core.Transaction{}
	}
	core.SortNewestFirst(s.log)
	s.selection = Selection{Date: core.StartOfDay(s.now()), Type: core.FilterAll}
	s.recompute()

	s.logger.InfoContext(ctx, "Ledger loaded",
		log.FieldCount, len(s.log),
		log.FieldSummaryDate, s.selection.Date.Format(core.DateLayout))
	return s
}

// Create records a new transaction today at timeString (HH:MM). A
// withdrawal charged from the account is stored net of the charge.
func (s *LedgerService) Create(ctx context.Context, req TransactionRequest, timeString string) Result {
	res, msg := s.create(ctx, req, timeString)
	s.publish(ctx, msg)
	return res
}

func (s *LedgerService) create(ctx context.Context, req TransactionRequest, timeString string) (Result, *amqp.LedgerChangedMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	parsed, err := s.validate.Parse(req)
	if err != nil {
		s.logRejected(ctx, log.OpCreate, err)
		return fail(MsgInvalidInput, err), nil
	}
	h, m, err := core.ParseClock(timeString)
	if err != nil {
		err = fmt.Errorf("%w: %w", core.ErrValidation, err)
		s.logRejected(ctx, log.OpCreate, err)
		return fail(MsgInvalidInput, err), nil
	}

	id, err := s.uniqueID()
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to assign transaction id", log.FieldError, err.Error())
		return fail(MsgInvalidInput, err), nil
	}

	tx := core.Transaction{
		ID:         id,
		Type:       parsed.Type,
		Amount:     core.NetAmount(parsed.Type, parsed.ChargeMode, parsed.Amount, parsed.Charge),
		Charge:     parsed.Charge,
		ChargeMode: parsed.ChargeMode,
		Timestamp:  core.AtClock(s.now(), h, m),
	}
	s.log = append(s.log, tx)
	msg := s.commit(ctx, log.OpCreate, tx)

	return ok(MsgCreated, &tx), msg
}

// Update replaces the entry with tx.ID using the supplied fields verbatim.
// The entry keeps its calendar date; only the time of day changes. An
// unknown id leaves the log untouched but is still reported as success.
func (s *LedgerService) Update(ctx context.Context, tx core.Transaction, timeString string) Result {
	res, msg := s.update(ctx, tx, timeString)
	s.publish(ctx, msg)
	return res
}

func (s *LedgerService) update(ctx context.Context, tx core.Transaction, timeString string) (Result, *amqp.LedgerChangedMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := validateUpdate(tx); err != nil {
		err = fmt.Errorf("%w: %w", core.ErrValidation, err)
		s.logRejected(ctx, log.OpUpdate, err)
		return fail(MsgInvalidInput, err), nil
	}
	h, m, err := core.ParseClock(timeString)
	if err != nil {
		err = fmt.Errorf("%w: %w", core.ErrValidation, err)
		s.logRejected(ctx, log.OpUpdate, err)
		return fail(MsgInvalidInput, err), nil
	}

	i := s.indexOf(tx.ID)
	if i < 0 {
		s.logger.WarnContext(ctx, "Update for unknown transaction id",
			log.FieldTransactionID, tx.ID)
		core.SortNewestFirst(s.log)
		s.recompute()
		s.persist(ctx, log.OpUpdate)
		return ok(MsgUpdated, nil), nil
	}

	tx.Timestamp = core.AtClock(s.log[i].Timestamp, h, m)
	s.log[i] = tx
	msg := s.commit(ctx, log.OpUpdate, tx)

	return ok(MsgUpdated, &tx), msg
}

func validateUpdate(tx core.Transaction) error {
	if tx.ID == "" {
		return core.ErrEmptyID
	}
	if err := tx.Type.Validate(); err != nil {
		return err
	}
	if err := tx.ChargeMode.Validate(); err != nil {
		return err
	}
	if tx.Charge.IsNegative() {
		return core.ErrInvalidCharge
	}
	return nil
}

// Delete removes the entry with id.
func (s *LedgerService) Delete(ctx context.Context, id string) Result {
	res, msg := s.remove(ctx, id)
	s.publish(ctx, msg)
	return res
}

func (s *LedgerService) remove(ctx context.Context, id string) (Result, *amqp.LedgerChangedMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		s.logger.InfoContext(ctx, "Delete for unknown transaction id", log.FieldTransactionID, id)
		return fail(MsgNotFound, core.ErrNotFound), nil
	}

	removed := s.log[i]
	s.log = slices.Delete(s.log, i, i+1)
	msg := s.commit(ctx, log.OpDelete, removed)

	return ok(MsgDeleted, &removed), msg
}

// SelectDate moves the summary to another calendar day. An empty string
// selects today.
func (s *LedgerService) SelectDate(dateString string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, err := core.ResolveDay(dateString, s.now())
	if err != nil {
		return fail(MsgInvalidDate, fmt.Errorf("%w: %w", core.ErrValidation, err))
	}
	s.selection.Date = day
	s.recompute()
	return ok(MsgSelectionUpdate, nil)
}

// SelectType narrows the summary to "all", "deposit" or "withdrawal".
func (s *LedgerService) SelectType(filter string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := core.ParseTypeFilter(filter)
	if err != nil {
		return fail(MsgInvalidFilter, fmt.Errorf("%w: %w", core.ErrValidation, err))
	}
	s.selection.Type = f
	s.recompute()
	return ok(MsgSelectionUpdate, nil)
}

// Summary returns the summary for the current selection.
func (s *LedgerService) Summary() core.DailySummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// SummaryFor projects the log for an arbitrary day and filter without
// touching the selection. Empty arguments fall back to the selection.
func (s *LedgerService) SummaryFor(dateString, filter string) (core.DailySummary, core.TypeFilter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	day := s.selection.Date
	if dateString != "" {
		d, err := core.ResolveDay(dateString, s.now())
		if err != nil {
			return core.DailySummary{}, "", fmt.Errorf("%w: %w", core.ErrValidation, err)
		}
		day = d
	}
	f := s.selection.Type
	if filter != "" {
		parsed, err := core.ParseTypeFilter(filter)
		if err != nil {
			return core.DailySummary{}, "", fmt.Errorf("%w: %w", core.ErrValidation, err)
		}
		f = parsed
	}
	return core.Summarize(s.log, day, f), f, nil
}

// Transactions returns a copy of the whole log, newest first.
func (s *LedgerService) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.log)
}

func (s *LedgerService) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// Revision increases with every committed mutation.
func (s *LedgerService) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// commit runs after the in-memory mutation, with s.mu held. The summary is
// refreshed before the write so a failed save never hides the change. The
// returned event is published by the caller once the lock is released.
func (s *LedgerService) commit(ctx context.Context, op string, tx core.Transaction) *amqp.LedgerChangedMessage {
	core.SortNewestFirst(s.log)
	s.revision++
	s.recompute()

	s.logger.InfoContext(ctx, "Transaction "+op+"d",
		log.NewFields().
			WithOperation(op).
			WithTransaction(tx.ID, string(tx.Type), tx.Amount.String(), tx.Charge.String(), string(tx.ChargeMode)).
			ToSlice()...)

	s.persist(ctx, op)
	if s.notifier == nil {
		return nil
	}
	return amqp.NewLedgerChangedMessage(op, tx.ID, tx.Timestamp, s.revision)
}

func (s *LedgerService) persist(ctx context.Context, op string) {
	if err := s.store.Save(ctx, s.log); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist ledger",
			log.NewFields().WithOperation(op).WithError(err).ToSlice()...)
	}
}

// publish must not be called with s.mu held: broker I/O can take seconds.
func (s *LedgerService) publish(ctx context.Context, msg *amqp.LedgerChangedMessage) {
	if msg == nil || s.notifier == nil {
		return
	}
	if err := s.notifier.PublishLedgerChanged(ctx, msg); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish ledger change",
			log.NewFields().WithOperation(log.OpPublish).WithError(err).ToSlice()...)
	}
}

func (s *LedgerService) recompute() {
	s.summary = core.Summarize(s.log, s.selection.Date, s.selection.Type)
}

func (s *LedgerService) indexOf(id string) int {
	return slices.IndexFunc(s.log, func(t core.Transaction) bool { return t.ID == id })
}

func (s *LedgerService) uniqueID() (string, error) {
	for i := 0; i < 3; i++ {
		id := s.newID()
		if id != "" && s.indexOf(id) < 0 {
			return id, nil
		}
	}
	return "", errors.New("could not generate a unique transaction id")
}

func (s *LedgerService) logRejected(ctx context.Context, op string, err error) {
	s.logger.InfoContext(ctx, "Rejected invalid input",
		log.NewFields().WithOperation(op).WithError(err).ToSlice()...)
}
