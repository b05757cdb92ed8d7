// Package queue runs independent image jobs concurrently.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leeforge/picpipe/logging"
	"github.com/leeforge/picpipe/media/processor"
	"github.com/leeforge/picpipe/metrics"
)

var (
	// ErrQueueFull is returned by Submit when the buffer is saturated.
	ErrQueueFull = errors.New("job queue is full")
	// ErrStopped is returned by Submit after Stop.
	ErrStopped   = errors.New("processor is shutting down")
)

// Runner runs one job end to end. *processor.Pipeline implements it.
type Runner interface {
	Process(ctx context.Context, job processor.ImageJob, steps processor.Steps) (processor.ImageJob, error)
}

// Job 处理任务
type Job struct {
	ID       string
	Image    processor.ImageJob
	Steps    processor.Steps
	Callback func(result Result)
}

// Result 任务结果
type Result struct {
	ID       string
	Image    processor.ImageJob
	Err      error
	Duration time.Duration
}

// Success 任务是否成功
func (r Result) Success() bool {
	return r.Err == nil
}

// AsyncProcessor 异步处理器：固定数量的 worker 从有界队列取任务
type AsyncProcessor struct {
	workerCount int
	jobQueue    chan Job
	runner      Runner
	logger      logging.Logger
	metrics     *metrics.Collector

	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
}

// NewAsyncProcessor 创建异步处理器
func NewAsyncProcessor(workerCount, queueSize int, runner Runner, logger logging.Logger, collector *metrics.Collector) *AsyncProcessor {
	if workerCount <= 0 {
		workerCount = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	if logger == nil {
		logger = logging.Nop()
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &AsyncProcessor{
		workerCount: workerCount,
		jobQueue:    make(chan Job, queueSize),
		runner:      runner,
		logger:      logger.Named("queue"),
		metrics:     collector,
	}
}

// Start 启动 worker
func (p *AsyncProcessor) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

func (p *AsyncProcessor) worker(id int) {
	defer p.wg.Done()
	for job := range p.jobQueue {
		p.metrics.SetGauge("queue_depth", float64(len(p.jobQueue)), nil)
		res := run(context.Background(), p.runner, job, p.logger.With(zap.Int("worker", id)))
		p.observe(res)
		if job.Callback != nil {
			job.Callback(res)
		}
	}
}

func (p *AsyncProcessor) observe(res Result) {
	status := "ok"
	if res.Err != nil {
		status = "failed"
	}
	p.metrics.IncCounter("queue_jobs_total", map[string]string{"status": status})
	p.metrics.ObserveHistogram("queue_job_duration_seconds", res.Duration.Seconds(), nil)
}

// run executes job with its ID in the context so every log line carries it.
func run(ctx context.Context, runner Runner, job Job, logger logging.Logger) Result {
	start := time.Now()
	ctx = logging.SetJobID(ctx, job.ID)
	out, err := runner.Process(ctx, job.Image, job.Steps)
	res := Result{ID: job.ID, Image: out, Err: err, Duration: time.Since(start)}
	if err != nil {
		logging.WithContext(logger, ctx).Warn("job failed", zap.Error(err))
	}
	return res
}

// Submit 提交任务，返回分配的任务 ID
func (p *AsyncProcessor) Submit(job Job) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return "", ErrStopped
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	select {
	case p.jobQueue <- job:
		return job.ID, nil
	default:
		return "", ErrQueueFull
	}
}

// Stop 停止接收新任务，并等待已入队任务完成或超时
func (p *AsyncProcessor) Stop(timeout time.Duration) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	close(p.jobQueue)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("timeout waiting for jobs to complete")
	}
}

// GetQueueSize 获取队列中等待的任务数
func (p *AsyncProcessor) GetQueueSize() int {
	return len(p.jobQueue)
}
