package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldledger/fieldledger/models"
)

// drainCounter implements SyncService for job tests; only RequestDrain is
// expected to be called.
type drainCounter struct {
	mu     sync.Mutex
	drains int
}

func (d *drainCounter) RequestDrain() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.drains++
}

func (d *drainCounter) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.drains
}

func (d *drainCounter) Start(context.Context)                     {}
func (d *drainCounter) Stop()                                     {}
func (d *drainCounter) Sync(context.Context) error                { return nil }
func (d *drainCounter) OnComplete(func(models.SyncReport)) func() { return func() {} }
func (d *drainCounter) CancelRetry(models.Identity)               {}

func TestSyncJob_RequestsDrainPeriodically(t *testing.T) {
	syncer := &drainCounter{}
	job := NewSyncJob(syncer, newFakeConnectivity(true), 10*time.Millisecond, 10*time.Millisecond)

	job.Start(context.Background())
	defer job.Stop()

	require.Eventually(t, func() bool {
		return syncer.count() >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestSyncJob_UsesShorterIntervalWhileOffline(t *testing.T) {
	syncer := &drainCounter{}
	conn := newFakeConnectivity(false)
	job := NewSyncJob(syncer, conn, time.Hour, 10*time.Millisecond)

	job.Start(context.Background())
	defer job.Stop()

	require.Eventually(t, func() bool {
		return syncer.count() >= 1
	}, time.Second, 5*time.Millisecond, "offline interval must drive the job")
}

func TestSyncJob_StopTerminates(t *testing.T) {
	syncer := &drainCounter{}
	job := NewSyncJob(syncer, newFakeConnectivity(true), 5*time.Millisecond, 5*time.Millisecond)

	job.Start(context.Background())
	job.Stop()

	drained := syncer.count()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, drained, syncer.count(), "stopped job must not request further drains")

	// Stop again must be a no-op.
	job.Stop()
}
