package health

import (
	"context"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Status 描述一次健康检查的结果。
type Status struct {
	Healthy  bool   `json:"healthy"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// Checker 检查SQLite连接与（可选的）Redis镜像的可用性。
// Redis只是热层镜像，它的故障不影响整体健康判定。
type Checker struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewChecker 创建健康检查器。rdb为nil时跳过Redis检查。
func NewChecker(db *gorm.DB, rdb *redis.Client) *Checker {
	return &Checker{db: db, rdb: rdb}
}

// Check 执行一次同步健康检查。
func (c *Checker) Check(ctx context.Context) Status {
	if c == nil {
		return Status{Healthy: true, Database: "skipped", Redis: "skipped"}
	}

	status := Status{Healthy: true, Database: "ok", Redis: "ok"}

	if c.db == nil {
		status.Database = "skipped"
	} else {
		sqlDB, err := c.db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			status.Healthy = false
			status.Database = err.Error()
		}
	}

	if c.rdb == nil {
		status.Redis = "disabled"
	} else if err := c.rdb.Ping(ctx).Err(); err != nil {
		// 镜像故障降级但不拖垮整体健康
		status.Redis = err.Error()
	}

	return status
}
