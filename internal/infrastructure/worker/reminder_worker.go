package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/erp-requisitions/internal/domain/entity"
)

// RequisitionLister lists an organization's requisitions
type RequisitionLister interface {
	List(ctx context.Context, filter entity.RequisitionFilter) ([]*entity.Requisition, error)
}

// OrganizationLister returns the organizations to scan
type OrganizationLister interface {
	Organizations(ctx context.Context) ([]string, error)
}

// ApproverNotifier messages the approvers of a requisition's current stage
type ApproverNotifier interface {
	NotifyApprovers(ctx context.Context, organizationID, requisitionID string) error
}

// ReminderConfig holds configuration for the reminder worker
type ReminderConfig struct {
	// Interval between scans
	Interval time.Duration
	// StaleAfter is how long a requisition may sit in one stage before its
	// approvers are reminded, and the gap between repeat reminders
	StaleAfter time.Duration
	// BatchSize is the page size used to read each organization's stage
	BatchSize int
}

// DefaultReminderConfig returns default configuration
func DefaultReminderConfig() ReminderConfig {
	return ReminderConfig{
		Interval:   15 * time.Minute,
		StaleAfter: 24 * time.Hour,
		BatchSize:  100,
	}
}

// ReminderStats summarizes one scan
type ReminderStats struct {
	Scanned  int
	Reminded int
	Failed   int
}

// ReminderWorker re-notifies approvers about requisitions that have waited
// in the same stage for longer than StaleAfter
type ReminderWorker struct {
	config       ReminderConfig
	requisitions RequisitionLister
	orgs         OrganizationLister
	notifier     ApproverNotifier
	logger       *zap.Logger
	now          func() time.Time

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
	// last reminder per requisition, keyed by id and stage
	reminded map[string]time.Time
}

// NewReminderWorker creates a new reminder worker
func NewReminderWorker(
	config ReminderConfig,
	requisitions RequisitionLister,
	orgs OrganizationLister,
	notifier ApproverNotifier,
	logger *zap.Logger,
) *ReminderWorker {
	defaults := DefaultReminderConfig()
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = defaults.StaleAfter
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	return &ReminderWorker{
		config:       config,
		requisitions: requisitions,
		orgs:         orgs,
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
		reminded:     make(map[string]time.Time),
	}
}

// Name returns the worker name for identification
func (w *ReminderWorker) Name() string {
	return "ReminderWorker"
}

// Start begins the scan loop in the background
func (w *ReminderWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.isRunning {
		return fmt.Errorf("reminder worker already running")
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.isRunning = true

	w.logger.Info("ReminderWorker started",
		zap.Duration("interval", w.config.Interval),
		zap.Duration("stale_after", w.config.StaleAfter))

	go w.loop(ctx, w.done)
	return nil
}

// Stop cancels the loop and waits for an in-flight scan to finish
func (w *ReminderWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}
	w.isRunning = false
	cancel, done := w.cancel, w.done
	w.mu.Unlock()

	cancel()
	<-done
	return nil
}

func (w *ReminderWorker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := w.RunOnce(ctx)
			if err != nil {
				w.logger.Error("Reminder scan failed", zap.Error(err))
				continue
			}
			if stats.Reminded > 0 || stats.Failed > 0 {
				w.logger.Info("Reminder scan finished",
					zap.Int("scanned", stats.Scanned),
					zap.Int("reminded", stats.Reminded),
					zap.Int("failed", stats.Failed))
			}
		}
	}
}

// RunOnce scans every organization's pending requisitions and reminds the
// approvers of stale ones. A failed notification is counted and retried on
// the next scan.
func (w *ReminderWorker) RunOnce(ctx context.Context) (ReminderStats, error) {
	var stats ReminderStats

	orgs, err := w.orgs.Organizations(ctx)
	if err != nil {
		return stats, fmt.Errorf("list organizations: %w", err)
	}

	now := w.now()
	seen := make(map[string]bool)

	for _, org := range orgs {
		for _, status := range entity.PendingRequisitionStatuses {
			reqs, err := w.listStage(ctx, org, status)
			if err != nil {
				return stats, err
			}

			for _, req := range reqs {
				stats.Scanned++
				key := req.ID + "/" + string(req.Status)
				seen[key] = true

				if !w.due(key, req.UpdatedAt, now) {
					continue
				}
				if err := w.notifier.NotifyApprovers(ctx, org, req.ID); err != nil {
					stats.Failed++
					w.logger.Warn("Failed to send reminder",
						zap.String("requisition_id", req.ID),
						zap.String("status", req.Status.String()),
						zap.Error(err))
					continue
				}
				w.setReminded(key, now)
				stats.Reminded++
			}
		}
	}

	w.forgetExcept(seen)
	return stats, nil
}

// listStage reads every requisition of one stage page by page. Listings are
// newest first, so the oldest (and stalest) rows come on the last pages.
func (w *ReminderWorker) listStage(ctx context.Context, org string, status entity.RequisitionStatus) ([]*entity.Requisition, error) {
	var all []*entity.Requisition
	for offset := 0; ; {
		page, err := w.requisitions.List(ctx, entity.RequisitionFilter{
			OrganizationID: org,
			Status:         status,
			Limit:          w.config.BatchSize,
			Offset:         offset,
		})
		if err != nil {
			return nil, fmt.Errorf("list %s requisitions of %s: %w", status, org, err)
		}
		all = append(all, page...)
		if len(page) < w.config.BatchSize {
			return all, nil
		}
		offset += len(page)
	}
}

func (w *ReminderWorker) due(key string, updatedAt, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	since := updatedAt
	if last, ok := w.reminded[key]; ok && last.After(since) {
		since = last
	}
	return now.Sub(since) >= w.config.StaleAfter
}

func (w *ReminderWorker) setReminded(key string, at time.Time) {
	w.mu.Lock()
	w.reminded[key] = at
	w.mu.Unlock()
}

// forgetExcept drops requisitions that moved on since they were reminded
func (w *ReminderWorker) forgetExcept(seen map[string]bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for key := range w.reminded {
		if !seen[key] {
			delete(w.reminded, key)
		}
	}
}
