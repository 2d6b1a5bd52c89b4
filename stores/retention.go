package stores

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// RetentionJob periodically deletes exchanges older than MaxAge.
type RetentionJob struct {
	Store  ExchangeStore
	MaxAge time.Duration
	Logger *log.Logger

	mu        sync.Mutex
	scheduler *cron.Cron
	now       func() time.Time
}

func NewRetentionJob(store ExchangeStore, maxAge time.Duration) *RetentionJob {
	return &RetentionJob{
		Store:  store,
		MaxAge: maxAge,
		Logger: log.New(os.Stdout, "[retention] ", log.LstdFlags),
		now:    time.Now,
	}
}

// RunOnce prunes everything older than MaxAge and returns the number of deleted rows.
func (j *RetentionJob) RunOnce(ctx context.Context) (int64, error) {
	if j.MaxAge <= 0 {
		return 0, nil
	}
	now := time.Now
	if j.now != nil {
		now = j.now
	}
	cutoff := now().Add(-j.MaxAge)
	deleted, err := j.Store.PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if j.Logger != nil {
		j.Logger.Printf("Pruned %d exchange(s) created before %s", deleted, cutoff.Format(time.RFC3339))
	}
	return deleted, nil
}

// Start schedules RunOnce. schedule is a standard five-field cron expression
// or a descriptor such as "@daily" or "@every 1h".
func (j *RetentionJob) Start(schedule string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.scheduler != nil {
		return fmt.Errorf("retention job already started")
	}

	scheduler := cron.New()
	_, err := scheduler.AddFunc(schedule, func() {
		if _, err := j.RunOnce(context.Background()); err != nil && j.Logger != nil {
			j.Logger.Printf("Error pruning exchanges: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", schedule, err)
	}
	scheduler.Start()
	j.scheduler = scheduler
	return nil
}

// Stop halts scheduling and waits for a running prune to finish.
func (j *RetentionJob) Stop() {
	j.mu.Lock()
	scheduler := j.scheduler
	j.scheduler = nil
	j.mu.Unlock()

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}
}
