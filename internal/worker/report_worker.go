package worker

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"posledger/internal/amqp"
	"posledger/internal/core"
	"posledger/internal/log"
	"posledger/internal/report"
)

// Filters is every report variant produced for a day.
var Filters = []core.TypeFilter{core.FilterAll, core.FilterDeposit, core.FilterWithdrawal}

// LogSource provides a fresh copy of the persisted log.
type LogSource interface {
	Load(ctx context.Context) []core.Transaction
}

// ReportWorker keeps the daily PDF reports in a directory up to date.
type ReportWorker struct {
	source   LogSource
	renderer *report.Renderer
	dir      string
	loc      *time.Location
	logger   *log.Logger
}

func NewReportWorker(source LogSource, renderer *report.Renderer, dir string, loc *time.Location, logger *log.Logger) *ReportWorker {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ReportWorker{
		source:   source,
		renderer: renderer,
		dir:      dir,
		loc:      loc,
		logger:   logger.WithComponent(log.ComponentWorker),
	}
}

// HandleLedgerChanged re-renders the reports of the day named in msg.
func (w *ReportWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	day, err := time.ParseInLocation(core.DateLayout, msg.Day, w.loc)
	if err != nil {
		return fmt.Errorf("parse day %q: %w", msg.Day, err)
	}

	w.logger.InfoContext(ctx, "Processing ledger change",
		log.FieldOperation, msg.Operation,
		log.FieldTransactionID, msg.TransactionID,
		log.FieldSummaryDate, msg.Day,
		log.FieldRevision, msg.Revision)

	return w.RenderDay(ctx, day)
}

// RenderDay writes the three filter variants of day concurrently from one
// snapshot of the log.
func (w *ReportWorker) RenderDay(ctx context.Context, day time.Time) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}

	txs := w.source.Load(ctx)

	g, ctx := errgroup.WithContext(ctx)
	for _, filter := range Filters {
		filter := filter
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return w.renderOne(ctx, txs, day, filter)
		})
	}
	return g.Wait()
}

// RenderToday renders the current day once, typically at startup.
func (w *ReportWorker) RenderToday(ctx context.Context) error {
	return w.RenderDay(ctx, time.Now().In(w.loc))
}

func (w *ReportWorker) renderOne(ctx context.Context, txs []core.Transaction, day time.Time, filter core.TypeFilter) error {
	summary := core.Summarize(txs, day, filter)

	var buf bytes.Buffer
	pages, err := w.renderer.Render(&buf, summary, filter)
	if err != nil {
		return fmt.Errorf("render %s report: %w", filter, err)
	}

	path := filepath.Join(w.dir, report.Filename(summary.SummaryDate, filter))
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	w.logger.DebugContext(ctx, "Report written",
		log.FieldTypeFilter, filter.String(),
		log.FieldSummaryDate, summary.SummaryDate.Format(core.DateLayout),
		log.FieldCount, summary.TotalTransactions,
		"pages", pages,
		"path", path)
	return nil
}

// writeFileAtomic replaces path so readers never see a partial PDF.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".report-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
