package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/dc-folding/team-comp-backend/internal/domain"
	"github.com/dc-folding/team-comp-backend/internal/epoch"
	"github.com/dc-folding/team-comp-backend/internal/mirror"
	"github.com/dc-folding/team-comp-backend/internal/repo"
	"github.com/dc-folding/team-comp-backend/internal/stats"
	"github.com/dc-folding/team-comp-backend/pkg/lifecycle"
)

// Computer 是调度器对聚合器的最小依赖。
type Computer interface {
	Compute(ctx context.Context, user domain.User) (domain.HourlyTcStats, error)
}

// EpochResetter 是调度器对赛季重置器的最小依赖。
type EpochResetter interface {
	ResetForNewEpoch(ctx context.Context) (epoch.Report, error)
}

// Config 是调度行为的配置。
type Config struct {
	// HourlyInterval 是全量重算的周期，生产环境为一小时。
	HourlyInterval time.Duration
	// Workers 是小时周期的工作协程数。
	Workers int
	// RetryCount 是单轮周期内对瞬时取数失败的有界重试次数。
	RetryCount int
}

func (c Config) withDefaults() Config {
	if c.HourlyInterval <= 0 {
		c.HourlyInterval = time.Hour
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.RetryCount < 0 {
		c.RetryCount = 0
	}
	return c
}

// Scheduler 驱动两类定时任务：每小时重算全部活跃用户，每月初执行赛季重置。
// 手动触发与定时触发复用完全相同的代码路径。
type Scheduler struct {
	repo     *repo.CachedStore
	computer Computer
	resetter EpochResetter
	mirror   *mirror.Mirror
	clock    clockwork.Clock
	gate     *Gate
	cfg      Config

	mu        sync.Mutex
	lastYear  int
	lastMonth time.Month
}

// New 组装调度器。clock注入以便测试使用假时钟。
func New(r *repo.CachedStore, computer Computer, resetter EpochResetter, m *mirror.Mirror, clock clockwork.Clock, cfg Config) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	now := clock.Now()
	return &Scheduler{
		repo:      r,
		computer:  computer,
		resetter:  resetter,
		mirror:    m,
		clock:     clock,
		gate:      NewGate(),
		cfg:       cfg.withDefaults(),
		lastYear:  now.Year(),
		lastMonth: now.Month(),
	}
}

// Run 是调度器的主循环，作为生命周期托管的后台服务运行。
func (s *Scheduler) Run(handle *lifecycle.Handle) {
	defer handle.Close()
	fmt.Printf("统计调度器已启动，周期 %v，工作协程 %d。\n", s.cfg.HourlyInterval, s.cfg.Workers)

	ticker := s.clock.NewTicker(s.cfg.HourlyInterval)
	defer ticker.Stop()

	for {
		select {
		case <-handle.Done():
			fmt.Println("统计调度器: 收到停机信号，退出。")
			return
		case <-ticker.Chan():
			s.onTick(handle.Ctx())
		}
	}
}

// onTick 处理一个定时tick：先检查月份翻转，再执行小时周期。
// 门闩被占用时定时任务顺延到下一个tick，不排队。
func (s *Scheduler) onTick(ctx context.Context) {
	now := s.clock.Now()

	if s.monthRolledOver(now) {
		if _, err := s.EpochResetNow(ctx); err != nil {
			if errors.Is(err, ErrSystemBusy) {
				fmt.Println("统计调度器: 赛季重置顺延，门闩被占用。")
			} else {
				fmt.Printf("统计调度器: 赛季重置失败: %v\n", err)
			}
			// 月份标记不前进，下一个tick重试
		} else {
			s.markMonth(now)
		}
	}

	if err := s.RecomputeAllNow(ctx); err != nil {
		if errors.Is(err, ErrSystemBusy) {
			fmt.Println("统计调度器: 跳过本轮小时周期，门闩被占用。")
		} else {
			fmt.Printf("统计调度器: 小时周期失败: %v\n", err)
		}
	}
}

func (s *Scheduler) monthRolledOver(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Year() != s.lastYear || now.Month() != s.lastMonth
}

func (s *Scheduler) markMonth(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastYear = now.Year()
	s.lastMonth = now.Month()
}

// RecomputeAllNow 同步执行一轮全量重算。定时与手动触发共用此路径。
// 有互斥任务在运行时返回ErrSystemBusy。
func (s *Scheduler) RecomputeAllNow(ctx context.Context) error {
	if !s.gate.TryEnter() {
		return ErrSystemBusy
	}
	defer s.gate.Leave()

	snaps, err := s.repo.GetAllUsers()
	if err != nil {
		return fmt.Errorf("小时周期: 无法读取用户列表: %w", err)
	}

	jobs := make(chan domain.User)
	var wg sync.WaitGroup
	var succeeded, failed atomic.Int64

	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for user := range jobs {
				if err := s.computeWithRetry(ctx, user); err != nil {
					failed.Add(1)
					fmt.Printf("小时周期: 用户 %d 计算失败: %v\n", user.ID, err)
				} else {
					succeeded.Add(1)
				}
			}
		}()
	}

	for _, snap := range snaps {
		if snap.User.IsRetired {
			continue
		}
		jobs <- snap.User
	}
	close(jobs)
	wg.Wait()

	fmt.Printf("小时周期: 完成，成功 %d，失败 %d。\n", succeeded.Load(), failed.Load())
	s.publishMirror(ctx)
	return nil
}

// computeWithRetry 为单个用户执行计算，只对瞬时取数失败做有界重试。
// 单个用户的失败彼此隔离，不会阻塞其他用户。
func (s *Scheduler) computeWithRetry(ctx context.Context, user domain.User) error {
	var err error
	for attempt := 0; attempt <= s.cfg.RetryCount; attempt++ {
		_, err = s.computer.Compute(ctx, user)
		if err == nil {
			return nil
		}
		if !stats.IsTransient(err) {
			return err
		}
	}
	return err
}

// EpochResetNow 同步执行一次赛季重置。定时与手动触发共用此路径。
// 已有重置或小时周期在运行时返回ErrSystemBusy，从不排队。
func (s *Scheduler) EpochResetNow(ctx context.Context) (epoch.Report, error) {
	if !s.gate.TryEnter() {
		return epoch.Report{}, ErrSystemBusy
	}
	defer s.gate.Leave()

	report, err := s.resetter.ResetForNewEpoch(ctx)
	if err != nil {
		return report, err
	}
	if report.Partial() {
		fmt.Printf("统计调度器: 赛季重置部分失败，%d 个条目出错。\n", len(report.Failures))
	}
	s.publishMirror(ctx)
	return report, nil
}

// ApplyOffsetNow 写入一条人工修正并立刻为该用户重算成绩。
// 这是管理接口的同步路径，按键原子，不需要全局门闩。
func (s *Scheduler) ApplyOffsetNow(ctx context.Context, offset domain.OffsetStats) error {
	if err := s.repo.CreateOrUpdateOffsetStats(offset); err != nil {
		return err
	}
	snap, err := s.repo.GetUser(offset.UserID)
	if err != nil {
		return err
	}
	if _, err := s.computer.Compute(ctx, snap.User); err != nil {
		return fmt.Errorf("修正已写入，但重算失败: %w", err)
	}
	return nil
}

// publishMirror 把最新汇总镜像到Redis热层，供只读前端消费。失败只记录不回滚。
func (s *Scheduler) publishMirror(ctx context.Context) {
	if !s.mirror.Enabled() {
		return
	}
	summary, err := s.repo.GetCompetitionSummary(s.clock.Now())
	if err != nil {
		fmt.Printf("统计调度器: 计算镜像用汇总失败: %v\n", err)
		return
	}
	if err := s.mirror.PublishSummary(ctx, summary); err != nil {
		fmt.Printf("统计调度器: 发布Redis镜像失败: %v\n", err)
	}
}
