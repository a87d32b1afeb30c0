package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/dc-folding/team-comp-backend/internal/domain"
)

// --- Redis 键名常量 ---

const (
	// SummaryKey 存放最新竞赛汇总的JSON序列化。
	SummaryKey = "tc:summary"
	// TeamRankingKey 是按倍率后积分排序的队伍Sorted Set。
	// Score: 队伍倍率后积分, Member: 队伍ID
	TeamRankingKey = "tc:team_ranking"
	// UserStatsKey 是一个Hash，Field为用户ID，Value为该用户成绩的JSON。
	UserStatsKey = "tc:user_stats"
)

// Mirror 把竞赛汇总镜像到Redis热层，供只读前端低成本消费。
// SQLite始终是事实来源；镜像是纯发布端，核心正确性不依赖它。
// 未配置Redis时Mirror为禁用状态，所有方法都是空操作。
type Mirror struct {
	rdb *redis.Client
}

// New 创建一个镜像发布器。rdb为nil时发布器被禁用。
func New(rdb *redis.Client) *Mirror {
	return &Mirror{rdb: rdb}
}

// Enabled 判断镜像是否可用。
func (m *Mirror) Enabled() bool {
	return m != nil && m.rdb != nil
}

// PublishSummary 用一个事务管道把完整汇总原子地写入Redis。
func (m *Mirror) PublishSummary(ctx context.Context, summary domain.CompetitionSummary) error {
	if !m.Enabled() {
		return nil
	}

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("无法序列化竞赛汇总: %w", err)
	}

	ranking := make([]redis.Z, 0, len(summary.Teams))
	userFields := make(map[string]interface{})
	for _, team := range summary.Teams {
		ranking = append(ranking, redis.Z{
			Score:  float64(team.MultipliedPoints),
			Member: strconv.FormatUint(uint64(team.TeamID), 10),
		})
		for _, u := range team.ActiveUsers {
			entryJSON, err := json.Marshal(u)
			if err != nil {
				return fmt.Errorf("无法序列化用户 %d 的成绩: %w", u.UserID, err)
			}
			userFields[strconv.FormatUint(uint64(u.UserID), 10)] = entryJSON
		}
	}

	pipe := m.rdb.TxPipeline()
	pipe.Set(ctx, SummaryKey, summaryJSON, 0)
	pipe.Del(ctx, TeamRankingKey)
	if len(ranking) > 0 {
		pipe.ZAdd(ctx, TeamRankingKey, ranking...)
	}
	pipe.Del(ctx, UserStatsKey)
	if len(userFields) > 0 {
		pipe.HSet(ctx, UserStatsKey, userFields)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入Redis镜像失败: %w", err)
	}
	return nil
}

// Clear 清空镜像键。赛季重置后调用方可先清空再发布新汇总。
func (m *Mirror) Clear(ctx context.Context) error {
	if !m.Enabled() {
		return nil
	}
	if err := m.rdb.Del(ctx, SummaryKey, TeamRankingKey, UserStatsKey).Err(); err != nil {
		return fmt.Errorf("清空Redis镜像失败: %w", err)
	}
	return nil
}
