package task

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"lazada_sync_v1_202608/internal/model"
	"lazada_sync_v1_202608/internal/repository"
	"lazada_sync_v1_202608/internal/service"
)

// TokenTask 连接保活任务：定时刷新临期 Token
type TokenTask struct {
	ConnRepo repository.ConnectionRepository
	Lazada   *service.LazadaService
	Cron     *cron.Cron

	// 控制并发刷新的数量，防止对平台限流触发封禁
	concurrencyLimit int
	sleepTime        time.Duration
}

func NewTokenTask(connRepo repository.ConnectionRepository, lazada *service.LazadaService) *TokenTask {
	return &TokenTask{
		ConnRepo:         connRepo,
		Lazada:           lazada,
		Cron:             cron.New(cron.WithSeconds()), // 支持秒级控制
		concurrencyLimit: 20,
		sleepTime:        50 * time.Millisecond, // 每个协程启动间隔，平滑波峰
	}
}

// Start 启动定时任务
func (t *TokenTask) Start() {
	// 首次执行
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		log.Println("[Task] 服务启动，正在执行首次 Token 检查...")
		t.refreshJob(ctx)
	}()

	_, err := t.Cron.AddFunc("0 0/40 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		t.refreshJob(ctx)
	})

	if err != nil {
		log.Fatalf("无法启动 Token 定时任务: %v", err)
	}

	t.Cron.Start()
	log.Println("Token 保活任务已启动 (每40分钟检查一次)")
}

// Stop 停止定时任务
func (t *TokenTask) Stop() {
	if t.Cron != nil {
		t.Cron.Stop()
	}
}

// refreshJob 查出窗口期内到期的连接并逐个校验刷新
func (t *TokenTask) refreshJob(ctx context.Context) {
	conns, err := t.ConnRepo.FindExpiring(ctx, model.TokenRefreshWindow)
	if err != nil {
		log.Printf("[Cron] 临期连接查询失败: %v", err)
		return
	}
	if len(conns) == 0 {
		return
	}

	// 信号量通道，容量即为并发上限
	sem := make(chan struct{}, t.concurrencyLimit)
	var wg sync.WaitGroup

	log.Printf("[Cron] 开始处理 %d 个连接的 Token 刷新，并发上限: %d", len(conns), t.concurrencyLimit)

	for _, conn := range conns {
		select {
		case <-ctx.Done():
			log.Println("[Cron] 任务超时停止")
			return
		default:
		}

		// 获取信号量（如果已满则阻塞在此，起到限流作用）
		sem <- struct{}{}
		wg.Add(1)

		// 平滑波峰
		time.Sleep(t.sleepTime)

		current := conn

		go func(c model.PlatformConnection) {
			defer wg.Done()
			defer func() { <-sem }()

			if !t.Lazada.ValidateAndRefresh(ctx, &c) {
				// 日志仅记录，不中断其他协程
				log.Printf("[Cron] 商家 %d 的 %s 连接刷新失败", c.MerchantID, c.PlatformName)
			}
		}(current)
	}

	wg.Wait()
	log.Println("[Cron] 本轮 Token 刷新任务完成")
}
