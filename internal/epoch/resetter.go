package epoch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dc-folding/team-comp-backend/internal/domain"
	"github.com/dc-folding/team-comp-backend/internal/repo"
	"github.com/dc-folding/team-comp-backend/internal/storage"
)

// Failure 记录重置过程中单个用户的失败及其所在阶段。
type Failure struct {
	UserID uint   `json:"userId"`
	Stage  string `json:"stage"`
	Error  string `json:"error"`
}

// Report 是一次赛季重置的汇总报告。
// 单个用户的失败被记录并跳过，整体重置从不因此中止。
type Report struct {
	StartedAt      time.Time `json:"startedAt"`
	ArchivedMonth  string    `json:"archivedMonth"`
	Rebaselined    int       `json:"rebaselined"`
	Retired        int       `json:"retired"`
	OffsetsCleared bool      `json:"offsetsCleared"`
	Failures       []Failure `json:"failures"`
}

// Partial 表示重置完成但存在单用户失败。
func (r Report) Partial() bool {
	return len(r.Failures) > 0
}

// Resetter 执行月度赛季重置：归档退役用户、重定基线、清空修正值。
// 它不做自己的并发控制；调度器的全局门闩保证它与小时周期以及自身互斥。
type Resetter struct {
	repo *repo.CachedStore
	now  func() time.Time
}

// NewResetter 组装重置器。now用于决定收盘月份，测试可注入固定时钟。
func NewResetter(r *repo.CachedStore, now func() time.Time) *Resetter {
	if now == nil {
		now = time.Now
	}
	return &Resetter{repo: r, now: now}
}

// closingMonth 返回被本次重置关闭的月份。
// 定时重置恰好发生在月初零点之后，回退一小时即落在收盘月份内；
// 月中的手动重置收盘的就是当前（不完整的）月份。
func closingMonth(now time.Time) (int, time.Month) {
	t := now.Add(-time.Hour)
	return t.Year(), t.Month()
}

// ResetForNewEpoch 执行一次完整的赛季重置并返回报告。
//
// 失败策略：任何单个用户/队伍的失败都被记录并跳过，
// 因为让整个竞赛卡在一个用户的错误上是不可接受的；
// 调用方通过Report.Partial判断是否部分失败。
func (r *Resetter) ResetForNewEpoch(ctx context.Context) (Report, error) {
	now := r.now()
	report := Report{StartedAt: now}

	year, month := closingMonth(now)
	report.ArchivedMonth = fmt.Sprintf("%04d-%02d", year, int(month))
	fmt.Printf("赛季重置: 开始，收盘月份 %s。\n", report.ArchivedMonth)

	// 0. 先存档收盘汇总，再做任何破坏性修改
	r.archiveMonthlyResult(now, year, int(month), &report)

	snaps, err := r.repo.GetAllUsers()
	if err != nil {
		return report, fmt.Errorf("赛季重置: 无法读取用户列表: %w", err)
	}

	// 1-2. 按队伍归档并移除退役用户
	for _, snap := range snaps {
		if !snap.User.IsRetired {
			continue
		}
		if err := r.archiveRetiredUser(snap); err != nil {
			report.Failures = append(report.Failures, Failure{
				UserID: snap.User.ID, Stage: "archive", Error: err.Error(),
			})
			fmt.Printf("赛季重置: 归档退役用户 %d 失败，跳过: %v\n", snap.User.ID, err)
			continue
		}
		report.Retired++
	}

	// 3. 为剩余活跃用户重定基线并清零当前成绩
	for _, snap := range snaps {
		if snap.User.IsRetired {
			continue
		}
		if err := r.rebaselineUser(snap.User.ID); err != nil {
			report.Failures = append(report.Failures, Failure{
				UserID: snap.User.ID, Stage: "rebaseline", Error: err.Error(),
			})
			fmt.Printf("赛季重置: 用户 %d 重定基线失败，跳过: %v\n", snap.User.ID, err)
			continue
		}
		report.Rebaselined++
	}

	// 4. 赛季内的人工修正不跨期保留
	if err := r.repo.DeleteAllOffsetStats(); err != nil {
		report.Failures = append(report.Failures, Failure{Stage: "clear_offsets", Error: err.Error()})
		fmt.Printf("赛季重置: 清空修正值失败: %v\n", err)
	} else {
		report.OffsetsCleared = true
	}

	// 5. 汇总失效，下次读取反映新赛季
	r.repo.InvalidateSummary()

	fmt.Printf("赛季重置: 完成，重定基线 %d，归档退役 %d，失败 %d。\n",
		report.Rebaselined, report.Retired, len(report.Failures))
	return report, nil
}

// archiveMonthlyResult 把收盘月份的竞赛汇总存为月度存档。已存在时跳过。
func (r *Resetter) archiveMonthlyResult(now time.Time, year, month int, report *Report) {
	if _, err := r.repo.GetMonthlyResult(year, month); err == nil {
		fmt.Printf("赛季重置: %04d-%02d 的月度存档已存在，跳过。\n", year, month)
		return
	}

	summary, err := r.repo.GetCompetitionSummary(now)
	if err != nil {
		report.Failures = append(report.Failures, Failure{Stage: "monthly_result", Error: err.Error()})
		fmt.Printf("赛季重置: 计算收盘汇总失败: %v\n", err)
		return
	}
	payload, err := json.Marshal(summary)
	if err != nil {
		report.Failures = append(report.Failures, Failure{Stage: "monthly_result", Error: err.Error()})
		return
	}
	if err := r.repo.CreateMonthlyResult(domain.MonthlyResult{Year: year, Month: month, Result: payload}); err != nil {
		report.Failures = append(report.Failures, Failure{Stage: "monthly_result", Error: err.Error()})
		fmt.Printf("赛季重置: 写入月度存档失败: %v\n", err)
	}
}

// archiveRetiredUser 把退役用户的最终成绩写入不可变归档，
// 随后删除用户（同一套缓存清洗规则会驱逐他的全部统计缓存条目）。
func (r *Resetter) archiveRetiredUser(snap domain.UserSnapshot) error {
	final, err := r.repo.GetHourlyTcStats(snap.User.ID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	archive := domain.RetiredUserStats{
		SlotID:           uuid.NewString(),
		TeamID:           snap.User.TeamID,
		UserID:           snap.User.ID,
		DisplayName:      snap.User.DisplayName,
		Points:           final.Points,
		MultipliedPoints: final.MultipliedPoints,
		Units:            final.Units,
	}
	if err := r.repo.CreateRetiredUserStats(archive); err != nil {
		return err
	}
	return r.repo.DeleteUser(snap.User.ID)
}

// rebaselineUser 把用户的基线设为其最新的终身累计（新赛季从零开始计数），
// 并写入一行全零的小时成绩使其对外成绩立即归零。
// 从未成功取过数的用户保持原基线，只做成绩清零。
func (r *Resetter) rebaselineUser(userID uint) error {
	total, err := r.repo.GetTotalStats(userID)
	if err == nil {
		if err := r.repo.CreateInitialStats(userID, total.Stats()); err != nil {
			return err
		}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return err
	}

	return r.repo.CreateHourlyTcStats(domain.HourlyTcStats{UserID: userID})
}
