package epoch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dc-folding/team-comp-backend/internal/cache"
	"github.com/dc-folding/team-comp-backend/internal/domain"
	"github.com/dc-folding/team-comp-backend/internal/repo"
	"github.com/dc-folding/team-comp-backend/internal/storage"
)

func TestClosingMonth(t *testing.T) {
	// 定时重置发生在月初零点之后：收盘的是刚结束的月份
	year, month := closingMonth(time.Date(2026, 4, 1, 0, 0, 30, 0, time.UTC))
	assert.Equal(t, 2026, year)
	assert.Equal(t, time.March, month)

	// 年初翻转
	year, month = closingMonth(time.Date(2026, 1, 1, 0, 30, 0, 0, time.UTC))
	assert.Equal(t, 2025, year)
	assert.Equal(t, time.December, month)

	// 月中的手动重置收盘当前（不完整的）月份
	year, month = closingMonth(time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, 2026, year)
	assert.Equal(t, time.April, month)
}

type fixture struct {
	repo    *repo.CachedStore
	active  domain.User
	retired domain.User
}

// newFixture 建立一个带一名活跃用户和一名退役用户的竞赛状态。
func newFixture(t *testing.T, store storage.Store) *fixture {
	t.Helper()
	cs := repo.New(store, cache.NewManager())

	hw := domain.Hardware{Name: "rtx-4090", Multiplier: decimal.RequireFromString("2.00")}
	require.NoError(t, cs.CreateHardware(&hw))
	team := domain.Team{Name: "alpha"}
	require.NoError(t, cs.CreateTeam(&team))

	active := domain.User{
		Identity:   domain.Identity{FoldingName: "alice", Passkey: "secret"},
		HardwareID: hw.ID,
		TeamID:     team.ID,
	}
	require.NoError(t, cs.CreateUser(&active))
	require.NoError(t, cs.CreateInitialStats(active.ID, domain.Stats{Points: 1000, Units: 10}))
	require.NoError(t, cs.CreateTotalStats(active.ID, domain.Stats{Points: 1050, Units: 11}))
	require.NoError(t, cs.CreateHourlyTcStats(domain.HourlyTcStats{
		UserID: active.ID, Points: 50, MultipliedPoints: 100, Units: 1,
	}))
	require.NoError(t, cs.CreateOrUpdateOffsetStats(domain.OffsetStats{UserID: active.ID, PointsOffset: 5}))

	retired := domain.User{
		Identity:    domain.Identity{FoldingName: "bob", Passkey: "secret"},
		DisplayName: "Bob",
		HardwareID:  hw.ID,
		TeamID:      team.ID,
		IsRetired:   true,
	}
	require.NoError(t, cs.CreateUser(&retired))
	require.NoError(t, cs.CreateInitialStats(retired.ID, domain.Stats{}))
	require.NoError(t, cs.CreateHourlyTcStats(domain.HourlyTcStats{
		UserID: retired.ID, Points: 30, MultipliedPoints: 60, Units: 2,
	}))

	return &fixture{repo: cs, active: active, retired: retired}
}

func fixedNow() time.Time {
	return time.Date(2026, 4, 1, 0, 0, 30, 0, time.UTC)
}

func TestResetForNewEpoch(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStore())
	resetter := NewResetter(f.repo, fixedNow)

	report, err := resetter.ResetForNewEpoch(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Partial())
	assert.Equal(t, "2026-03", report.ArchivedMonth)
	assert.Equal(t, 1, report.Rebaselined)
	assert.Equal(t, 1, report.Retired)
	assert.True(t, report.OffsetsCleared)

	// 收盘汇总已存档
	result, err := f.repo.GetMonthlyResult(2026, 3)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Result)

	// 退役用户被归档并移除，最终成绩进入不可变槽位
	rows, err := f.repo.GetAllRetiredUserStats()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bob", rows[0].DisplayName)
	assert.Equal(t, int64(30), rows[0].Points)
	assert.NotEmpty(t, rows[0].SlotID)
	_, err = f.repo.GetUser(f.retired.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// 活跃用户基线重定为最新终身累计，对外成绩立即归零
	initial, err := f.repo.GetInitialStats(f.active.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1050), initial.Points)
	assert.Equal(t, int64(11), initial.Units)

	hourly, err := f.repo.GetHourlyTcStats(f.active.ID)
	require.NoError(t, err)
	assert.Zero(t, hourly.Points)
	assert.Zero(t, hourly.MultipliedPoints)
	assert.Zero(t, hourly.Units)

	// 人工修正不跨期保留
	_, err = f.repo.GetOffsetStats(f.active.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestResetIsIdempotent(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStore())
	resetter := NewResetter(f.repo, fixedNow)

	_, err := resetter.ResetForNewEpoch(context.Background())
	require.NoError(t, err)
	report, err := resetter.ResetForNewEpoch(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Partial())

	// 第二次重置：基线不变，成绩仍为零，月度存档只有一份
	initial, err := f.repo.GetInitialStats(f.active.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1050), initial.Points)

	hourly, err := f.repo.GetHourlyTcStats(f.active.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HourlyTcStats{ID: hourly.ID, UserID: f.active.ID, CreatedAt: hourly.CreatedAt}, hourly)

	rows, err := f.repo.GetAllRetiredUserStats()
	require.NoError(t, err)
	assert.Len(t, rows, 1, "退役用户已被移除，不应重复归档")
}

func TestResetWithoutTotalKeepsBaseline(t *testing.T) {
	f := newFixture(t, storage.NewMemoryStore())
	cs := f.repo

	// 从未成功取过数的新用户：没有终身审计记录
	fresh := domain.User{
		Identity:   domain.Identity{FoldingName: "carol", Passkey: "secret"},
		HardwareID: f.active.HardwareID,
		TeamID:     f.active.TeamID,
	}
	require.NoError(t, cs.CreateUser(&fresh))
	require.NoError(t, cs.CreateInitialStats(fresh.ID, domain.Stats{Points: 7, Units: 1}))

	resetter := NewResetter(cs, fixedNow)
	report, err := resetter.ResetForNewEpoch(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Partial())

	// 原基线保留，只做成绩清零
	initial, err := cs.GetInitialStats(fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(7), initial.Points)

	hourly, err := cs.GetHourlyTcStats(fresh.ID)
	require.NoError(t, err)
	assert.Zero(t, hourly.Points)
}

// archiveFailStore 让退役归档写入确定性失败。
type archiveFailStore struct {
	storage.Store
}

func (s *archiveFailStore) CreateRetiredUserStats(domain.RetiredUserStats) error {
	return errors.New("归档表不可写")
}

func TestResetRecordsPartialFailures(t *testing.T) {
	f := newFixture(t, &archiveFailStore{Store: storage.NewMemoryStore()})
	resetter := NewResetter(f.repo, fixedNow)

	report, err := resetter.ResetForNewEpoch(context.Background())
	require.NoError(t, err, "单用户失败不应中止整个重置")
	assert.True(t, report.Partial())

	require.Len(t, report.Failures, 1)
	assert.Equal(t, f.retired.ID, report.Failures[0].UserID)
	assert.Equal(t, "archive", report.Failures[0].Stage)

	// 归档失败的退役用户被跳过，但活跃用户仍被重定基线
	assert.Equal(t, 1, report.Rebaselined)
	assert.Equal(t, 0, report.Retired)
	_, err = f.repo.GetUser(f.retired.ID)
	require.NoError(t, err, "归档失败时用户不得被删除")
}
