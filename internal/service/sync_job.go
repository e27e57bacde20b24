package service

import (
	"context"
	"sync"
	"time"
)

// syncJob periodically requests a drain pass. While online the interval is
// long (the queue drains eagerly on flush anyway); while offline it is short,
// so a restored connection is exploited quickly even if the connectivity
// probe lags behind.
type syncJob struct {
	syncer          SyncService
	conn            Connectivity
	onlineInterval  time.Duration
	offlineInterval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewSyncJob(syncer SyncService, conn Connectivity, onlineInterval, offlineInterval time.Duration) SyncJob {
	return &syncJob{
		syncer:          syncer,
		conn:            conn,
		onlineInterval:  onlineInterval,
		offlineInterval: offlineInterval,
	}
}

// Start launches the periodic job. A previously running job is stopped first.
func (j *syncJob) Start(ctx context.Context) {
	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	go func() {
		defer j.wg.Done()
		timer := time.NewTimer(j.interval())
		defer timer.Stop()

		for {
			select {
			case <-jobCtx.Done():
				return
			case <-timer.C:
				j.syncer.RequestDrain()
				timer.Reset(j.interval())
			}
		}
	}()
}

// Stop cancels the periodic job and blocks until its goroutine has exited.
// Safe to call when the job is not running.
func (j *syncJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}

func (j *syncJob) interval() time.Duration {
	if j.conn.Online() {
		return j.onlineInterval
	}
	return j.offlineInterval
}
