package service

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// formCloseTimeout 单次关闭任务的数据库操作上限
const formCloseTimeout = 30 * time.Second

// FormCloser 定时关闭已过截止时间的偏好表单
type FormCloser struct {
	matcher   MatcherService
	interval  time.Duration
	scheduler *gocron.Scheduler
	logger    *zap.Logger
	now       func() time.Time
}

// NewFormCloser 创建定时任务；interval <= 0 时使用 1 分钟
func NewFormCloser(matcher MatcherService, interval time.Duration, logger *zap.Logger) *FormCloser {
	if interval <= 0 {
		interval = time.Minute
	}
	return &FormCloser{
		matcher:   matcher,
		interval:  interval,
		scheduler: gocron.NewScheduler(time.UTC),
		logger:    logger,
		now:       time.Now,
	}
}

// Start 异步启动；上一次执行未结束时跳过本轮
func (c *FormCloser) Start() error {
	if _, err := c.scheduler.Every(c.interval).SingletonMode().Do(c.run); err != nil {
		return err
	}
	c.scheduler.StartAsync()
	c.logger.Info("表单定时关闭任务已启动", zap.Duration("interval", c.interval))
	return nil
}

// Stop 停止调度，等待正在执行的任务结束
func (c *FormCloser) Stop() {
	c.scheduler.Stop()
}

func (c *FormCloser) run() {
	ctx, cancel := context.WithTimeout(context.Background(), formCloseTimeout)
	defer cancel()
	// 错误已在 MatcherService 内记录，下一轮重试
	_, _ = c.CloseExpired(ctx)
}

// CloseExpired 立即执行一次
func (c *FormCloser) CloseExpired(ctx context.Context) (int64, error) {
	return c.matcher.CloseExpired(ctx, c.now())
}
