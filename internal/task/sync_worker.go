package task

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"lazada_sync_v1_202608/internal/service"
)

// ErrQueueFull 队列已满，调用方应提示稍后重试
var ErrQueueFull = errors.New("sync queue is full")

// SyncWorkerPool 商品同步工作池：固定 worker 数消费内存队列，
// 平台侧错误按退避重试，前置条件错误直接判终态
type SyncWorkerPool struct {
	SyncService service.SyncService

	queue      chan *service.SyncJob
	workers    int
	maxRetries int
	baseDelay  time.Duration

	wg      sync.WaitGroup
	stopped sync.Once
}

// SyncWorkerConfig 工作池配置
type SyncWorkerConfig struct {
	Workers    int
	QueueSize  int
	MaxRetries int
	BaseDelay  time.Duration
}

func NewSyncWorkerPool(syncService service.SyncService, cfg SyncWorkerConfig) *SyncWorkerPool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 2 * time.Second
	}
	return &SyncWorkerPool{
		SyncService: syncService,
		queue:       make(chan *service.SyncJob, cfg.QueueSize),
		workers:     cfg.Workers,
		maxRetries:  cfg.MaxRetries,
		baseDelay:   cfg.BaseDelay,
	}
}

// Start 启动 worker
func (p *SyncWorkerPool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(i + 1)
	}
	log.Printf("[Task] 同步工作池已启动 (worker: %d, 队列容量: %d)", p.workers, cap(p.queue))
}

// Enqueue 投递任务，队列满立即返回错误而不是阻塞请求
func (p *SyncWorkerPool) Enqueue(job *service.SyncJob) error {
	select {
	case p.queue <- job:
		return nil
	default:
		log.Printf("[Task] 队列已满，任务 %s 被拒绝", job.ID)
		return ErrQueueFull
	}
}

// QueueDepth 当前积压任务数
func (p *SyncWorkerPool) QueueDepth() int {
	return len(p.queue)
}

// Stop 关闭队列并等待在途任务处理完
func (p *SyncWorkerPool) Stop() {
	p.stopped.Do(func() {
		close(p.queue)
	})
	p.wg.Wait()
	log.Println("[Task] 同步工作池已停止")
}

func (p *SyncWorkerPool) worker(id int) {
	defer p.wg.Done()
	for job := range p.queue {
		p.process(id, job)
	}
}

// process 执行一个任务，平台侧错误按指数退避重试
func (p *SyncWorkerPool) process(workerID int, job *service.SyncJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	var lastErr error
	for attempt := 1; attempt <= p.maxRetries; attempt++ {
		lastErr = p.SyncService.Execute(ctx, job)
		if lastErr == nil {
			return
		}

		// 前置条件错误重试也不会好，直接判终态
		if !service.IsUpstreamError(lastErr) {
			p.SyncService.HandlePermanentFailure(ctx, job, lastErr)
			return
		}

		if attempt < p.maxRetries {
			delay := p.baseDelay * time.Duration(1<<(attempt-1))
			log.Printf("[Task] worker %d 任务 %s 第 %d 次失败，%v 后重试: %v",
				workerID, job.ID, attempt, delay, lastErr)

			select {
			case <-ctx.Done():
				p.SyncService.HandlePermanentFailure(ctx, job, ctx.Err())
				return
			case <-time.After(delay):
			}
		}
	}

	p.SyncService.HandlePermanentFailure(ctx, job, lastErr)
}
