package stats

import (
	"context"
	"errors"
	"fmt"

	"github.com/dc-folding/team-comp-backend/internal/domain"
	"github.com/dc-folding/team-comp-backend/internal/repo"
	"github.com/dc-folding/team-comp-backend/internal/source"
	"github.com/dc-folding/team-comp-backend/internal/storage"
)

// Aggregator 计算单个用户的当前赛季成绩，是统计引擎的算法核心。
// 单次Compute内的步骤严格串行：取数必须先于计算，计算必须先于落盘。
type Aggregator struct {
	repo   *repo.CachedStore
	source source.Source
}

// NewAggregator 组装聚合器。
func NewAggregator(r *repo.CachedStore, s source.Source) *Aggregator {
	return &Aggregator{repo: r, source: s}
}

// Enroll 创建用户并记录其赛季基线。
// 基线取自统计源当前的终身累计：新用户从零开始为本赛季计分。
// 配置了密钥但取数失败时整个创建失败，调用方可重试；
// 未配置密钥的用户以零基线入册，配置密钥后的首轮计算即可正常进行。
func (a *Aggregator) Enroll(ctx context.Context, user *domain.User) error {
	baseline := domain.Stats{}
	if user.Passkey != "" {
		total, err := a.source.Fetch(ctx, user.Identity)
		if err != nil {
			return fmt.Errorf("无法为新用户取得基线: %w", err)
		}
		baseline = total
	}

	if err := a.repo.CreateUser(user); err != nil {
		return err
	}
	if err := a.repo.CreateInitialStats(user.ID, baseline); err != nil {
		return fmt.Errorf("用户 %d 的基线落盘失败: %w", user.ID, err)
	}
	if user.Passkey != "" {
		if err := a.repo.CreateTotalStats(user.ID, baseline); err != nil {
			return fmt.Errorf("用户 %d 的终身累计落盘失败: %w", user.ID, err)
		}
	}
	return nil
}

// Compute 为一个用户执行一轮完整的成绩计算并覆盖其小时成绩。
//
// 未配置密钥的用户被静默跳过（返回其现有成绩，不算错误）。
// 取回的终身累计无条件落盘为审计记录，即使后续步骤失败。
// 统计源的传输失败原样向上传递（可由调用方重试）；本方法不做内部重试。
func (a *Aggregator) Compute(ctx context.Context, user domain.User) (domain.HourlyTcStats, error) {
	// 1. 无密钥则跳过
	if user.Passkey == "" {
		current, err := a.repo.GetHourlyTcStats(user.ID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return domain.HourlyTcStats{}, err
		}
		return current, nil
	}

	// 2. 基线缺失是数据完整性问题，不是瞬时故障
	initial, err := a.repo.GetInitialStats(user.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.HourlyTcStats{}, fmt.Errorf("用户 %d: %w", user.ID, ErrMissingBaseline)
		}
		return domain.HourlyTcStats{}, err
	}

	// 3. 修正值缺失按零处理
	offset, err := a.repo.GetOffsetStats(user.ID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return domain.HourlyTcStats{}, err
		}
		offset = domain.OffsetStats{UserID: user.ID}
	}

	// 4. 从统计源取终身累计
	total, err := a.source.Fetch(ctx, user.Identity)
	if err != nil {
		return domain.HourlyTcStats{}, fmt.Errorf("用户 %d 取数失败: %w", user.ID, err)
	}

	// 5. 审计记录无条件落盘
	if err := a.repo.CreateTotalStats(user.ID, total); err != nil {
		return domain.HourlyTcStats{}, fmt.Errorf("用户 %d 的终身累计落盘失败: %w", user.ID, err)
	}

	// 6. 解析硬件倍率
	hw, err := a.repo.GetHardware(user.HardwareID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return domain.HourlyTcStats{}, fmt.Errorf("用户 %d: %w", user.ID, ErrMissingHardware)
		}
		return domain.HourlyTcStats{}, err
	}

	// 7-9. 计算本赛季增量、应用倍率与修正、钳制非负
	row := CalculateHourly(user.ID, initial.Stats(), total, hw.Multiplier, offset)

	// 10. 覆盖小时成绩并更新缓存
	if err := a.repo.CreateHourlyTcStats(row); err != nil {
		return domain.HourlyTcStats{}, fmt.Errorf("用户 %d 的小时成绩落盘失败: %w", user.ID, err)
	}
	return row, nil
}
