package queue

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/leeforge/picpipe/logging"
)

// ProcessBatch runs jobs with at most limit in flight and returns one
// Result per job in input order. A failing job does not stop the others.
// ctx only gates starting new jobs; a job that started runs to completion.
func ProcessBatch(ctx context.Context, runner Runner, jobs []Job, limit int, logger logging.Logger) []Result {
	if limit <= 0 {
		limit = 1
	}
	if logger == nil {
		logger = logging.Nop()
	}

	results := make([]Result, len(jobs))
	g := new(errgroup.Group)
	g.SetLimit(limit)

	for i, job := range jobs {
		if job.ID == "" {
			job.ID = uuid.NewString()
		}
		if err := ctx.Err(); err != nil {
			results[i] = Result{ID: job.ID, Err: err}
			continue
		}
		g.Go(func() error {
			results[i] = run(ctx, runner, job, logger)
			if job.Callback != nil {
				job.Callback(results[i])
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// ProgressTracker 进度追踪器
type ProgressTracker struct {
	total     int
	completed int
	failed    int
	mu        sync.RWMutex
}

// NewProgressTracker 创建进度追踪器
func NewProgressTracker(total int) *ProgressTracker {
	return &ProgressTracker{total: total}
}

// Observe 按结果更新进度
func (t *ProgressTracker) Observe(r Result) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if r.Success() {
		t.completed++
	} else {
		t.failed++
	}
}

// GetProgress 获取进度
func (t *ProgressTracker) GetProgress() (completed, failed, total int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.completed, t.failed, t.total
}

// GetPercentage 获取百分比
func (t *ProgressTracker) GetPercentage() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.total == 0 {
		return 0
	}
	return float64(t.completed+t.failed) / float64(t.total) * 100
}
