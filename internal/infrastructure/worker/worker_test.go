package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/erp-requisitions/internal/domain/entity"
)

type fakeRequisitions struct {
	byOrg map[string][]*entity.Requisition
	err   error
}

func (f *fakeRequisitions) List(ctx context.Context, filter entity.RequisitionFilter) ([]*entity.Requisition, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []*entity.Requisition
	for _, r := range f.byOrg[filter.OrganizationID] {
		if r.Status == filter.Status {
			out = append(out, r)
		}
	}
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

type fakeOrgs []string

func (f fakeOrgs) Organizations(ctx context.Context) ([]string, error) {
	return f, nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (f *fakeNotifier) NotifyApprovers(ctx context.Context, organizationID, requisitionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[requisitionID] {
		return errors.New("chat unavailable")
	}
	f.calls = append(f.calls, organizationID+"/"+requisitionID)
	return nil
}

var scanStart = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

func newReminderFixture(reqs *fakeRequisitions, notifier *fakeNotifier) (*ReminderWorker, *time.Time) {
	now := scanStart
	w := NewReminderWorker(ReminderConfig{StaleAfter: 24 * time.Hour}, reqs, fakeOrgs{"org-1", "org-2"}, notifier, zap.NewNop())
	w.now = func() time.Time { return now }
	return w, &now
}

func TestReminderWorker_RunOnce(t *testing.T) {
	reqs := &fakeRequisitions{byOrg: map[string][]*entity.Requisition{
		"org-1": {
			{ID: "stale", Status: entity.RequisitionPendingFA, UpdatedAt: scanStart.Add(-30 * time.Hour)},
			{ID: "fresh", Status: entity.RequisitionPendingGM, UpdatedAt: scanStart.Add(-time.Hour)},
			{ID: "done", Status: entity.RequisitionCompleted, UpdatedAt: scanStart.Add(-72 * time.Hour)},
		},
		"org-2": {
			{ID: "other", Status: entity.RequisitionPendingWarehouse, UpdatedAt: scanStart.Add(-25 * time.Hour)},
		},
	}}
	notifier := &fakeNotifier{}
	w, now := newReminderFixture(reqs, notifier)
	ctx := context.Background()

	stats, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, ReminderStats{Scanned: 3, Reminded: 2}, stats)
	assert.ElementsMatch(t, []string{"org-1/stale", "org-2/other"}, notifier.calls)

	// Within StaleAfter of the last reminder nothing is resent
	*now = scanStart.Add(2 * time.Hour)
	stats, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Reminded)

	// A day later both are reminded again and fresh has gone stale too
	*now = scanStart.Add(25 * time.Hour)
	stats, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Reminded)
}

func TestReminderWorker_ScansPastFirstPage(t *testing.T) {
	// newest first, like the repository: fresh rows fill the first pages
	var rows []*entity.Requisition
	for i := 0; i < 100; i++ {
		rows = append(rows, &entity.Requisition{
			ID:        fmt.Sprintf("fresh-%03d", i),
			Status:    entity.RequisitionPendingSupervisor,
			UpdatedAt: scanStart.Add(-time.Hour),
		})
	}
	for i := 0; i < 50; i++ {
		rows = append(rows, &entity.Requisition{
			ID:        fmt.Sprintf("stale-%03d", i),
			Status:    entity.RequisitionPendingSupervisor,
			UpdatedAt: scanStart.Add(-72 * time.Hour),
		})
	}

	notifier := &fakeNotifier{}
	w := NewReminderWorker(ReminderConfig{StaleAfter: 24 * time.Hour, BatchSize: 40},
		&fakeRequisitions{byOrg: map[string][]*entity.Requisition{"org-1": rows}},
		fakeOrgs{"org-1"}, notifier, zap.NewNop())
	w.now = func() time.Time { return scanStart }

	stats, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 150, stats.Scanned)
	assert.Equal(t, 50, stats.Reminded)
	assert.Len(t, w.reminded, 50)
}

func TestReminderWorker_StageChangeResetsReminder(t *testing.T) {
	req := &entity.Requisition{ID: "r-1", Status: entity.RequisitionPendingSupervisor, UpdatedAt: scanStart.Add(-48 * time.Hour)}
	reqs := &fakeRequisitions{byOrg: map[string][]*entity.Requisition{"org-1": {req}}}
	notifier := &fakeNotifier{}
	w, now := newReminderFixture(reqs, notifier)
	ctx := context.Background()

	_, err := w.RunOnce(ctx)
	require.NoError(t, err)
	require.Len(t, w.reminded, 1)

	req.Status = entity.RequisitionPendingFA
	req.UpdatedAt = scanStart.Add(time.Hour)
	*now = scanStart.Add(2 * time.Hour)

	stats, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Reminded)
	assert.Len(t, w.reminded, 0, "reminder for the previous stage is forgotten")
}

func TestReminderWorker_Failures(t *testing.T) {
	t.Run("notification failure is retried next scan", func(t *testing.T) {
		reqs := &fakeRequisitions{byOrg: map[string][]*entity.Requisition{
			"org-1": {{ID: "r-1", Status: entity.RequisitionPendingGM, UpdatedAt: scanStart.Add(-48 * time.Hour)}},
		}}
		notifier := &fakeNotifier{fail: map[string]bool{"r-1": true}}
		w, _ := newReminderFixture(reqs, notifier)

		stats, err := w.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Failed)

		notifier.fail = nil
		stats, err = w.RunOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Reminded)
	})

	t.Run("listing failure aborts the scan", func(t *testing.T) {
		w, _ := newReminderFixture(&fakeRequisitions{err: errors.New("db locked")}, &fakeNotifier{})
		_, err := w.RunOnce(context.Background())
		assert.ErrorContains(t, err, "db locked")
	})
}

func TestReminderWorker_Defaults(t *testing.T) {
	w := NewReminderWorker(ReminderConfig{}, &fakeRequisitions{}, fakeOrgs{}, &fakeNotifier{}, zap.NewNop())
	assert.Equal(t, DefaultReminderConfig(), w.config)
	assert.Equal(t, "ReminderWorker", w.Name())
}

type countingWorker struct {
	name    string
	started atomic.Int32
	stopped atomic.Int32
	failOn  string
}

func (c *countingWorker) Start(ctx context.Context) error {
	if c.failOn == "start" {
		return errors.New("boom")
	}
	c.started.Add(1)
	return nil
}

func (c *countingWorker) Stop() error {
	c.stopped.Add(1)
	if c.failOn == "stop" {
		return errors.New("boom")
	}
	return nil
}

func (c *countingWorker) Name() string { return c.name }

func TestManager_Lifecycle(t *testing.T) {
	m := NewManager(zap.NewNop())
	a := &countingWorker{name: "a"}
	b := &countingWorker{name: "b", failOn: "start"}
	m.Register(a)
	m.Register(b)
	assert.Equal(t, 2, m.Count())

	require.NoError(t, m.StartAll(context.Background()))
	assert.True(t, m.IsRunning())
	assert.Error(t, m.StartAll(context.Background()), "second start is rejected")
	assert.Equal(t, int32(1), a.started.Load())
	assert.Equal(t, int32(0), b.started.Load())

	require.NoError(t, m.StopAll())
	assert.False(t, m.IsRunning())
	assert.Equal(t, int32(1), a.stopped.Load())

	require.NoError(t, m.StopAll(), "stopping twice is a no-op")
	assert.Equal(t, int32(1), a.stopped.Load())
}

func TestManager_StopReportsFailures(t *testing.T) {
	m := NewManager(zap.NewNop())
	m.Register(&countingWorker{name: "bad", failOn: "stop"})
	require.NoError(t, m.StartAll(context.Background()))
	assert.ErrorContains(t, m.StopAll(), "failed to stop 1 workers")
}

func TestReminderWorker_StartStop(t *testing.T) {
	reqs := &fakeRequisitions{byOrg: map[string][]*entity.Requisition{
		"org-1": {{ID: "r-1", Status: entity.RequisitionPendingFA, UpdatedAt: time.Now().Add(-48 * time.Hour)}},
	}}
	notifier := &fakeNotifier{}
	w := NewReminderWorker(ReminderConfig{Interval: 5 * time.Millisecond, StaleAfter: time.Hour}, reqs, fakeOrgs{"org-1"}, notifier, zap.NewNop())

	require.NoError(t, w.Start(context.Background()))
	assert.Error(t, w.Start(context.Background()))

	assert.Eventually(t, func() bool {
		notifier.mu.Lock()
		defer notifier.mu.Unlock()
		return len(notifier.calls) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
