// Package cache holds in-process caches for rendered artefacts.
package cache

import (
	"context"
	"time"

	"posledger/internal/core"
	"posledger/internal/log"
)

// ReportKey identifies a rendered report. Revision changes with every ledger
// mutation, so stale reports are never served.
type ReportKey struct {
	Revision uint64
	Day      string
	Filter   core.TypeFilter
}

// NewReportKey builds the key for a summary day and filter at revision.
func NewReportKey(revision uint64, day time.Time, filter core.TypeFilter) ReportKey {
	return ReportKey{Revision: revision, Day: day.Format(core.DateLayout), Filter: core.TypeFilter(filter.String())}
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Manager periodically sweeps registered caches.
type Manager struct {
	caches []Cleaner
	logger *log.Logger
	done   chan struct{}
	cancel context.CancelFunc
}

func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{logger: logger.WithComponent(log.ComponentCache)}
}

// Register must be called before Start.
func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// Sweep cleans every registered cache once.
func (m *Manager) Sweep() int {
	total := 0
	for _, c := range m.caches {
		total += c.CleanExpired()
	}
	return total
}

// Start sweeps every interval until ctx is done or Stop is called.
func (m *Manager) Start(ctx context.Context, interval time.Duration) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					m.logger.Debug("Evicted expired cache entries", log.FieldCount, n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the sweeper started by Start and waits for it to exit.
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
}
