package startup

import (
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/dc-folding/team-comp-backend/internal/cache"
	"github.com/dc-folding/team-comp-backend/internal/epoch"
	"github.com/dc-folding/team-comp-backend/internal/mirror"
	"github.com/dc-folding/team-comp-backend/internal/platform/config"
	"github.com/dc-folding/team-comp-backend/internal/platform/database"
	"github.com/dc-folding/team-comp-backend/internal/platform/health"
	"github.com/dc-folding/team-comp-backend/internal/repo"
	"github.com/dc-folding/team-comp-backend/internal/scheduler"
	"github.com/dc-folding/team-comp-backend/internal/source"
	"github.com/dc-folding/team-comp-backend/internal/stats"
	"github.com/dc-folding/team-comp-backend/internal/storage"
)

// App 持有装配完成的全部核心组件。
// 缓存、仓库与调度器都是显式构造并按引用传递的，没有环境全局量。
type App struct {
	Repo       *repo.CachedStore
	Scheduler  *scheduler.Scheduler
	Aggregator *stats.Aggregator
	Resetter   *epoch.Resetter
	Mirror     *mirror.Mirror
	Health     *health.Checker
}

// InitializeApplication 是应用首次启动时执行的总入口：
// 打开存储、迁移表结构、装配组件并预热缓存。
func InitializeApplication(cfg *config.Config) (*App, error) {
	fmt.Println("开始应用首次初始化...")

	db, err := database.OpenDB(cfg.Database.Sqlite)
	if err != nil {
		return nil, err
	}
	store := storage.NewGormStore(db)
	if err := store.Migrate(); err != nil {
		return nil, err
	}
	fmt.Println("数据库表迁移成功。")

	rdb, err := database.OpenRedis(cfg.Database.Redis)
	if err != nil {
		return nil, err
	}

	caches := cache.NewManager()
	cachedStore := repo.New(store, caches)

	statsSource := source.NewHTTPSource(cfg.Source.BaseURL, cfg.Source.Timeout)
	aggregator := stats.NewAggregator(cachedStore, statsSource)
	resetter := epoch.NewResetter(cachedStore, nil)
	rankingMirror := mirror.New(rdb)

	sched := scheduler.New(cachedStore, aggregator, resetter, rankingMirror, clockwork.NewRealClock(), scheduler.Config{
		HourlyInterval: cfg.Scheduler.HourlyInterval,
		Workers:        cfg.Scheduler.Workers,
		RetryCount:     cfg.Scheduler.RetryCount,
	})

	if err := cachedStore.PrimeCaches(); err != nil {
		return nil, err
	}

	fmt.Println("应用初始化完成！")
	return &App{
		Repo:       cachedStore,
		Scheduler:  sched,
		Aggregator: aggregator,
		Resetter:   resetter,
		Mirror:     rankingMirror,
		Health:     health.NewChecker(db, rdb),
	}, nil
}
