package database

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dc-folding/team-comp-backend/internal/platform/config"
)

// OpenRedis 初始化与Redis镜像的连接。未启用时返回nil客户端。
func OpenRedis(cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		fmt.Println("Redis镜像未启用。")
		return nil, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("无法连接到Redis: %w", err)
	}

	fmt.Println("Redis 连接成功！")
	return rdb, nil
}
