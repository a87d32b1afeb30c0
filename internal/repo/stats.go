package repo

import (
	"errors"
	"time"

	"github.com/dc-folding/team-comp-backend/internal/domain"
	"github.com/dc-folding/team-comp-backend/internal/storage"
)

// --- InitialStats ---

// CreateInitialStats 写入或替换用户的赛季基线。
// 基线只在用户创建和赛季重置时被写入。
func (cs *CachedStore) CreateInitialStats(userID uint, stats domain.Stats) error {
	if err := cs.store.CreateInitialStats(userID, stats); err != nil {
		return err
	}
	cs.caches.Initial.Put(userID, domain.InitialStats{UserID: userID, Points: stats.Points, Units: stats.Units})
	cs.caches.Apply(createInitialStatsEffects)
	return nil
}

func (cs *CachedStore) GetInitialStats(userID uint) (domain.InitialStats, error) {
	if row, ok := cs.caches.Initial.Get(userID); ok {
		return row, nil
	}
	row, err := cs.store.GetInitialStats(userID)
	if err != nil {
		return domain.InitialStats{}, err
	}
	cs.caches.Initial.Put(userID, row)
	return row, nil
}

// --- OffsetStats ---

func (cs *CachedStore) CreateOrUpdateOffsetStats(offset domain.OffsetStats) error {
	if err := cs.store.CreateOrUpdateOffsetStats(offset); err != nil {
		return err
	}
	cs.caches.Offset.Put(offset.UserID, offset)
	cs.caches.Apply(writeOffsetStatsEffects)
	return nil
}

func (cs *CachedStore) GetOffsetStats(userID uint) (domain.OffsetStats, error) {
	if row, ok := cs.caches.Offset.Get(userID); ok {
		return row, nil
	}
	row, err := cs.store.GetOffsetStats(userID)
	if err != nil {
		return domain.OffsetStats{}, err
	}
	cs.caches.Offset.Put(userID, row)
	return row, nil
}

func (cs *CachedStore) DeleteOffsetStats(userID uint) error {
	if err := cs.store.DeleteOffsetStats(userID); err != nil {
		return err
	}
	cs.caches.Offset.Remove(userID)
	cs.caches.Apply(writeOffsetStatsEffects)
	return nil
}

func (cs *CachedStore) DeleteAllOffsetStats() error {
	if err := cs.store.DeleteAllOffsetStats(); err != nil {
		return err
	}
	cs.caches.Offset.RemoveAll()
	cs.caches.Apply(writeOffsetStatsEffects)
	return nil
}

// --- HourlyTcStats ---

// CreateHourlyTcStats 覆盖用户对外可见的当前成绩。
func (cs *CachedStore) CreateHourlyTcStats(row domain.HourlyTcStats) error {
	persisted, err := cs.store.CreateHourlyTcStats(row)
	if err != nil {
		return err
	}
	cs.caches.Hourly.Put(persisted.UserID, persisted)
	cs.caches.Apply(writeHourlyStatsEffects)
	return nil
}

func (cs *CachedStore) GetHourlyTcStats(userID uint) (domain.HourlyTcStats, error) {
	if row, ok := cs.caches.Hourly.Get(userID); ok {
		return row, nil
	}
	row, err := cs.store.GetHourlyTcStats(userID)
	if err != nil {
		return domain.HourlyTcStats{}, err
	}
	cs.caches.Hourly.Put(userID, row)
	return row, nil
}

// GetFirstHourlyTcStats 直接回源读取用户最早的小时成绩，不参与缓存。
func (cs *CachedStore) GetFirstHourlyTcStats(userID uint) (domain.HourlyTcStats, error) {
	return cs.store.GetFirstHourlyTcStats(userID)
}

// --- TotalStats ---

// CreateTotalStats 无条件落盘一条终身累计审计记录。
func (cs *CachedStore) CreateTotalStats(userID uint, stats domain.Stats) error {
	persisted, err := cs.store.CreateTotalStats(userID, stats)
	if err != nil {
		return err
	}
	cs.caches.Total.Put(userID, persisted)
	cs.caches.Apply(writeTotalStatsEffects)
	return nil
}

func (cs *CachedStore) GetTotalStats(userID uint) (domain.TotalStats, error) {
	if row, ok := cs.caches.Total.Get(userID); ok {
		return row, nil
	}
	row, err := cs.store.GetTotalStats(userID)
	if err != nil {
		return domain.TotalStats{}, err
	}
	cs.caches.Total.Put(userID, row)
	return row, nil
}

// --- RetiredUserStats ---

func (cs *CachedStore) CreateRetiredUserStats(row domain.RetiredUserStats) error {
	if err := cs.store.CreateRetiredUserStats(row); err != nil {
		return err
	}
	cs.caches.Retired.Put(row.SlotID, row)
	cs.caches.Apply(writeRetiredStatsEffects)
	return nil
}

func (cs *CachedStore) GetAllRetiredUserStats() ([]domain.RetiredUserStats, error) {
	if rows, ok := cs.caches.Retired.GetAll(); ok {
		return rows, nil
	}
	rows, err := cs.store.GetAllRetiredUserStats()
	if err != nil {
		return nil, err
	}
	fill := make(map[string]domain.RetiredUserStats, len(rows))
	for _, row := range rows {
		fill[row.SlotID] = row
	}
	cs.caches.Retired.Fill(fill)
	return rows, nil
}

func (cs *CachedStore) DeleteAllRetiredUserStats() error {
	if err := cs.store.DeleteAllRetiredUserStats(); err != nil {
		return err
	}
	cs.caches.Retired.RemoveAll()
	cs.caches.Apply(writeRetiredStatsEffects)
	return nil
}

// --- MonthlyResult ---

// CreateMonthlyResult 存档赛季收盘汇总。没有缓存镜像这张表。
func (cs *CachedStore) CreateMonthlyResult(result domain.MonthlyResult) error {
	if err := cs.store.CreateMonthlyResult(result); err != nil {
		return err
	}
	cs.caches.Apply(monthlyResultEffects)
	return nil
}

func (cs *CachedStore) GetMonthlyResult(year, month int) (domain.MonthlyResult, error) {
	return cs.store.GetMonthlyResult(year, month)
}

// --- CompetitionSummary ---

// InvalidateSummary 显式使汇总缓存失效。
func (cs *CachedStore) InvalidateSummary() {
	cs.caches.InvalidateSummary()
}

// GetCompetitionSummary 返回竞赛汇总：命中缓存时直接返回，
// 否则从权威的各用户行惰性重算并缓存。
// 小时周期进行到一半时读到新旧混合的数据是可接受的（见并发模型）。
func (cs *CachedStore) GetCompetitionSummary(now time.Time) (domain.CompetitionSummary, error) {
	if summary, ok := cs.caches.Summary(); ok {
		return summary, nil
	}

	teams, err := cs.GetAllTeams()
	if err != nil {
		return domain.CompetitionSummary{}, err
	}
	snaps, err := cs.GetAllUsers()
	if err != nil {
		return domain.CompetitionSummary{}, err
	}
	retired, err := cs.GetAllRetiredUserStats()
	if err != nil {
		return domain.CompetitionSummary{}, err
	}

	users := make([]domain.User, 0, len(snaps))
	hourly := make(map[uint]domain.HourlyTcStats, len(snaps))
	for _, snap := range snaps {
		users = append(users, snap.User)
		row, err := cs.GetHourlyTcStats(snap.User.ID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue // 尚未计算过的用户按零成绩处理
			}
			return domain.CompetitionSummary{}, err
		}
		hourly[snap.User.ID] = row
	}

	summary := domain.BuildCompetitionSummary(teams, users, hourly, retired, now)
	cs.caches.SetSummary(summary)
	return summary, nil
}
