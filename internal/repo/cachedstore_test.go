package repo

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dc-folding/team-comp-backend/internal/cache"
	"github.com/dc-folding/team-comp-backend/internal/domain"
	"github.com/dc-folding/team-comp-backend/internal/storage"
)

func newTestStore(t *testing.T) (*CachedStore, *storage.MemoryStore) {
	t.Helper()
	mem := storage.NewMemoryStore()
	return New(mem, cache.NewManager()), mem
}

// seedRoster 建立一套硬件、一支队伍和一个用户。
func seedRoster(t *testing.T, cs *CachedStore, multiplier string) (domain.Hardware, domain.Team, domain.User) {
	t.Helper()

	hw := domain.Hardware{Name: "rtx-4090", Multiplier: decimal.RequireFromString(multiplier)}
	require.NoError(t, cs.CreateHardware(&hw))
	team := domain.Team{Name: "alpha"}
	require.NoError(t, cs.CreateTeam(&team))
	user := domain.User{
		Identity:   domain.Identity{FoldingName: "alice", Passkey: "secret"},
		Category:   "gpu",
		HardwareID: hw.ID,
		TeamID:     team.ID,
	}
	require.NoError(t, cs.CreateUser(&user))
	return hw, team, user
}

func TestGetUserReadThrough(t *testing.T) {
	cs, mem := newTestStore(t)
	_, _, user := seedRoster(t, cs, "1.50")

	// 创建已把快照放入缓存；绕过缓存直接改存储来证明命中
	require.NoError(t, mem.UpdateUser(func() domain.User {
		u, _ := mem.GetUser(user.ID)
		u.DisplayName = "changed-behind-cache"
		return u
	}()))

	snap, err := cs.GetUser(user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "changed-behind-cache", snap.User.DisplayName, "读取应命中缓存")

	// 驱逐后回源重建
	cs.caches.User.Remove(user.ID)
	snap, err = cs.GetUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "changed-behind-cache", snap.User.DisplayName)
}

func TestGetAllUsersBulkFill(t *testing.T) {
	cs, _ := newTestStore(t)
	hw, team, _ := seedRoster(t, cs, "1.00")

	second := domain.User{
		Identity:   domain.Identity{FoldingName: "bob"},
		HardwareID: hw.ID,
		TeamID:     team.ID,
	}
	require.NoError(t, cs.CreateUser(&second))

	// 清空后第一次GetAll做全表扫描整体重建
	cs.caches.User.RemoveAll()
	snaps, err := cs.GetAllUsers()
	require.NoError(t, err)
	require.Len(t, snaps, 2)

	_, primed := cs.caches.User.GetAll()
	assert.True(t, primed, "GetAll应把缓存标记为已全量填充")
	for _, snap := range snaps {
		assert.NotZero(t, snap.Hardware.ID, "快照必须带硬件副本")
		assert.NotZero(t, snap.Team.ID, "快照必须带队伍副本")
	}
}

func TestGetAllUsersSkipsDanglingReference(t *testing.T) {
	cs, mem := newTestStore(t)
	hw, team, user := seedRoster(t, cs, "1.00")

	// 绕过缓存直接写入一个引用了不存在硬件的用户
	bad := domain.User{
		Identity:   domain.Identity{FoldingName: "bob"},
		HardwareID: 999,
		TeamID:     team.ID,
	}
	require.NoError(t, mem.CreateUser(&bad))

	// 单个用户的引用悬空只影响他自己，不拖垮整张名单
	cs.caches.User.RemoveAll()
	snaps, err := cs.GetAllUsers()
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, user.ID, snaps[0].User.ID)
	assert.Equal(t, hw.ID, snaps[0].Hardware.ID)

	// 坏用户不进入缓存，名单仍标记为已全量填充
	_, primed := cs.caches.User.GetAll()
	assert.True(t, primed)
	_, ok := cs.caches.User.Get(bad.ID)
	assert.False(t, ok)
}

func TestUpdateHardwareCascadesIntoSnapshots(t *testing.T) {
	cs, _ := newTestStore(t)
	hw, _, user := seedRoster(t, cs, "1.00")

	hw.Multiplier = decimal.RequireFromString("2.00")
	require.NoError(t, cs.UpdateHardware(hw))

	// 返回后立刻读取必须观察到新倍率
	snap, err := cs.GetUser(user.ID)
	require.NoError(t, err)
	assert.True(t, snap.Hardware.Multiplier.Equal(decimal.RequireFromString("2.00")))
}

func TestUpdateTeamCascadesIntoSnapshots(t *testing.T) {
	cs, _ := newTestStore(t)
	_, team, user := seedRoster(t, cs, "1.00")

	team.Name = "bravo"
	require.NoError(t, cs.UpdateTeam(team))

	snap, err := cs.GetUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "bravo", snap.Team.Name)
}

func TestCascadeFailureFlushesUserCache(t *testing.T) {
	mem := storage.NewMemoryStore()
	fs := &failingStore{Store: mem}
	cs := New(fs, cache.NewManager())
	_, team, _ := seedRoster(t, cs, "1.00")

	// 级联重建期间存储读取失败（非“记录不存在”）
	fs.failGetUser = true
	require.NoError(t, cs.UpdateTeam(team))

	// 回退语义：用户缓存被整体清空而不是停留在部分更新状态
	assert.Equal(t, 0, cs.caches.User.Len())
	_, primed := cs.caches.User.GetAll()
	assert.False(t, primed)
}

func TestCascadeWithConcurrentDeleteEvictsUser(t *testing.T) {
	cs, mem := newTestStore(t)
	_, team, user := seedRoster(t, cs, "1.00")

	// 用户在级联发生前被绕过缓存删除：重建读到“记录不存在”，驱逐即可
	require.NoError(t, mem.DeleteUser(user.ID))
	require.NoError(t, cs.UpdateTeam(team))

	_, ok := cs.caches.User.Get(user.ID)
	assert.False(t, ok)
}

func TestDeleteUserPurgesAllStatsCaches(t *testing.T) {
	cs, _ := newTestStore(t)
	_, _, user := seedRoster(t, cs, "1.00")

	require.NoError(t, cs.CreateInitialStats(user.ID, domain.Stats{Points: 1}))
	require.NoError(t, cs.CreateOrUpdateOffsetStats(domain.OffsetStats{UserID: user.ID, PointsOffset: 2}))
	require.NoError(t, cs.CreateHourlyTcStats(domain.HourlyTcStats{UserID: user.ID, Points: 3}))
	require.NoError(t, cs.CreateTotalStats(user.ID, domain.Stats{Points: 4}))

	require.NoError(t, cs.DeleteUser(user.ID))

	_, ok := cs.caches.User.Get(user.ID)
	assert.False(t, ok)
	_, ok = cs.caches.Initial.Get(user.ID)
	assert.False(t, ok)
	_, ok = cs.caches.Offset.Get(user.ID)
	assert.False(t, ok)
	_, ok = cs.caches.Hourly.Get(user.ID)
	assert.False(t, ok)
	_, ok = cs.caches.Total.Get(user.ID)
	assert.False(t, ok)
}

// failingStore 让选定的写入路径确定性失败。
type failingStore struct {
	storage.Store
	failUpdateHardware bool
	failCreateHourly   bool
	failGetUser        bool
}

var errStoreDown = errors.New("存储故障")

func (f *failingStore) UpdateHardware(hw domain.Hardware) error {
	if f.failUpdateHardware {
		return errStoreDown
	}
	return f.Store.UpdateHardware(hw)
}

func (f *failingStore) GetUser(id uint) (domain.User, error) {
	if f.failGetUser {
		return domain.User{}, errStoreDown
	}
	return f.Store.GetUser(id)
}

func (f *failingStore) CreateHourlyTcStats(row domain.HourlyTcStats) (domain.HourlyTcStats, error) {
	if f.failCreateHourly {
		return domain.HourlyTcStats{}, errStoreDown
	}
	return f.Store.CreateHourlyTcStats(row)
}

func TestStoreFailureLeavesCacheUntouched(t *testing.T) {
	mem := storage.NewMemoryStore()
	fs := &failingStore{Store: mem}
	cs := New(fs, cache.NewManager())

	hw, _, user := seedRoster(t, cs, "1.00")
	require.NoError(t, cs.CreateHourlyTcStats(domain.HourlyTcStats{UserID: user.ID, Points: 7}))

	// 存储写入失败时，缓存必须保持旧值：缓存永不领先于存储
	fs.failUpdateHardware = true
	hw.Multiplier = decimal.RequireFromString("9.00")
	require.Error(t, cs.UpdateHardware(hw))

	cached, ok := cs.caches.Hardware.Get(hw.ID)
	require.True(t, ok)
	assert.True(t, cached.Multiplier.Equal(decimal.RequireFromString("1.00")))

	fs.failCreateHourly = true
	require.Error(t, cs.CreateHourlyTcStats(domain.HourlyTcStats{UserID: user.ID, Points: 100}))
	row, ok := cs.caches.Hourly.Get(user.ID)
	require.True(t, ok)
	assert.Equal(t, int64(7), row.Points)
}

func TestGetCompetitionSummaryLazyAndInvalidated(t *testing.T) {
	cs, _ := newTestStore(t)
	_, team, user := seedRoster(t, cs, "1.00")
	require.NoError(t, cs.CreateHourlyTcStats(domain.HourlyTcStats{
		UserID: user.ID, Points: 10, MultipliedPoints: 15, Units: 1,
	}))

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	summary, err := cs.GetCompetitionSummary(now)
	require.NoError(t, err)
	require.Len(t, summary.Teams, 1)
	assert.Equal(t, team.ID, summary.Teams[0].TeamID)
	assert.Equal(t, int64(15), summary.MultipliedPoints)

	_, cached := cs.caches.Summary()
	assert.True(t, cached, "计算后的汇总应被缓存")

	// 小时成绩写入使汇总失效，下一次读取反映新成绩
	require.NoError(t, cs.CreateHourlyTcStats(domain.HourlyTcStats{
		UserID: user.ID, Points: 20, MultipliedPoints: 30, Units: 2,
	}))
	_, cached = cs.caches.Summary()
	assert.False(t, cached)

	summary, err = cs.GetCompetitionSummary(now)
	require.NoError(t, err)
	assert.Equal(t, int64(30), summary.MultipliedPoints)
}

func TestDeclaredEffectsCoverSummaryRules(t *testing.T) {
	effects := declaredEffects()

	// 参与汇总的写入路径必须声明汇总失效
	mustInvalidate := []string{
		"CreateHardware", "UpdateHardware", "DeleteHardware",
		"CreateTeam", "UpdateTeam", "DeleteTeam",
		"CreateUser", "UpdateUser", "DeleteUser",
		"CreateOrUpdateOffsetStats", "DeleteOffsetStats", "DeleteAllOffsetStats",
		"CreateHourlyTcStats",
		"CreateRetiredUserStats", "DeleteAllRetiredUserStats",
	}
	for _, name := range mustInvalidate {
		e, ok := effects[name]
		require.True(t, ok, "方法 %s 缺少Effects声明", name)
		assert.True(t, e.Touches(cache.KindSummary), "方法 %s 应使汇总失效", name)
	}

	// 基线与终身审计不参与汇总
	for _, name := range []string{"CreateInitialStats", "CreateTotalStats", "CreateMonthlyResult"} {
		e, ok := effects[name]
		require.True(t, ok, "方法 %s 缺少Effects声明", name)
		assert.False(t, e.Touches(cache.KindSummary), "方法 %s 不应使汇总失效", name)
	}

	// DeleteUser必须触及全部四个按用户键控的统计缓存
	del := effects["DeleteUser"]
	for _, kind := range []cache.Kind{cache.KindInitial, cache.KindOffset, cache.KindHourly, cache.KindTotal} {
		assert.True(t, del.Touches(kind), "DeleteUser应触及 %s", kind)
	}
}
