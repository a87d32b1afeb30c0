package storage

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dc-folding/team-comp-backend/internal/domain"
)

func newGormStore(t *testing.T) *GormStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	store := NewGormStore(db)
	require.NoError(t, store.Migrate())
	return store
}

func TestGormHardwareCRUD(t *testing.T) {
	store := newGormStore(t)

	hw := domain.Hardware{Name: "rtx-4090", DisplayName: "RTX 4090", Multiplier: decimal.RequireFromString("2.20")}
	require.NoError(t, store.CreateHardware(&hw))
	require.NotZero(t, hw.ID)

	got, err := store.GetHardware(hw.ID)
	require.NoError(t, err)
	assert.Equal(t, "rtx-4090", got.Name)
	assert.True(t, got.Multiplier.Equal(decimal.RequireFromString("2.20")))

	got.DisplayName = "GeForce RTX 4090"
	require.NoError(t, store.UpdateHardware(got))
	got, err = store.GetHardware(hw.ID)
	require.NoError(t, err)
	assert.Equal(t, "GeForce RTX 4090", got.DisplayName)

	all, err := store.GetAllHardware()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, store.DeleteHardware(hw.ID))
	_, err = store.GetHardware(hw.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormUpdateMissingRowIsNotFound(t *testing.T) {
	store := newGormStore(t)

	// 更新不存在的ID不能悄悄变成插入
	err := store.UpdateHardware(domain.Hardware{ID: 42, Name: "ghost", Multiplier: decimal.RequireFromString("2.00")})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetHardware(42)
	assert.ErrorIs(t, err, ErrNotFound, "失败的更新不应留下幻影行")

	err = store.UpdateTeam(domain.Team{ID: 42, Name: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.UpdateUser(domain.User{ID: 42, Identity: domain.Identity{FoldingName: "ghost"}})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetUser(42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormDeleteMissingRowIsNotFound(t *testing.T) {
	store := newGormStore(t)

	assert.ErrorIs(t, store.DeleteHardware(42), ErrNotFound)
	assert.ErrorIs(t, store.DeleteTeam(42), ErrNotFound)
	assert.ErrorIs(t, store.DeleteUser(42), ErrNotFound)
}

func TestGormNotFoundMapping(t *testing.T) {
	store := newGormStore(t)

	_, err := store.GetUser(42)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetInitialStats(42)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetHourlyTcStats(42)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetTotalStats(42)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetMonthlyResult(2026, 3)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormHourlyStatsLatestWins(t *testing.T) {
	store := newGormStore(t)

	first, err := store.CreateHourlyTcStats(domain.HourlyTcStats{UserID: 7, Points: 10})
	require.NoError(t, err)
	require.NotZero(t, first.ID)
	second, err := store.CreateHourlyTcStats(domain.HourlyTcStats{UserID: 7, Points: 20})
	require.NoError(t, err)
	require.Greater(t, second.ID, first.ID)

	// 读取取最新一行，首行接口取最早一行
	latest, err := store.GetHourlyTcStats(7)
	require.NoError(t, err)
	assert.Equal(t, int64(20), latest.Points)

	earliest, err := store.GetFirstHourlyTcStats(7)
	require.NoError(t, err)
	assert.Equal(t, int64(10), earliest.Points)
}

func TestGormTotalStatsAppendOnly(t *testing.T) {
	store := newGormStore(t)

	_, err := store.CreateTotalStats(7, domain.Stats{Points: 100, Units: 1})
	require.NoError(t, err)
	_, err = store.CreateTotalStats(7, domain.Stats{Points: 150, Units: 2})
	require.NoError(t, err)

	latest, err := store.GetTotalStats(7)
	require.NoError(t, err)
	assert.Equal(t, int64(150), latest.Points)
}

func TestGormInitialStatsUpsert(t *testing.T) {
	store := newGormStore(t)

	require.NoError(t, store.CreateInitialStats(7, domain.Stats{Points: 100}))
	require.NoError(t, store.CreateInitialStats(7, domain.Stats{Points: 200}))

	row, err := store.GetInitialStats(7)
	require.NoError(t, err)
	assert.Equal(t, int64(200), row.Points)
}

func TestGormDeleteUserCleansBaselineAndOffset(t *testing.T) {
	store := newGormStore(t)

	user := domain.User{Identity: domain.Identity{FoldingName: "alice"}, HardwareID: 1, TeamID: 1}
	require.NoError(t, store.CreateUser(&user))
	require.NoError(t, store.CreateInitialStats(user.ID, domain.Stats{Points: 1}))
	require.NoError(t, store.CreateOrUpdateOffsetStats(domain.OffsetStats{UserID: user.ID, PointsOffset: 2}))
	_, err := store.CreateHourlyTcStats(domain.HourlyTcStats{UserID: user.ID, Points: 3})
	require.NoError(t, err)

	require.NoError(t, store.DeleteUser(user.ID))

	_, err = store.GetUser(user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetInitialStats(user.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetOffsetStats(user.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	// 历史表保留
	row, err := store.GetHourlyTcStats(user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), row.Points)
}

func TestGormDeleteAllOffsetStats(t *testing.T) {
	store := newGormStore(t)

	require.NoError(t, store.CreateOrUpdateOffsetStats(domain.OffsetStats{UserID: 1, PointsOffset: 1}))
	require.NoError(t, store.CreateOrUpdateOffsetStats(domain.OffsetStats{UserID: 2, PointsOffset: 2}))

	require.NoError(t, store.DeleteAllOffsetStats())
	_, err := store.GetOffsetStats(1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetOffsetStats(2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormMonthlyResultUniquePerPeriod(t *testing.T) {
	store := newGormStore(t)

	require.NoError(t, store.CreateMonthlyResult(domain.MonthlyResult{
		Year: 2026, Month: 3, Result: []byte(`{"points": 1}`),
	}))
	err := store.CreateMonthlyResult(domain.MonthlyResult{
		Year: 2026, Month: 3, Result: []byte(`{"points": 2}`),
	})
	assert.Error(t, err, "同一年月不允许重复存档")

	row, err := store.GetMonthlyResult(2026, 3)
	require.NoError(t, err)
	assert.JSONEq(t, `{"points": 1}`, string(row.Result))
}

func TestGormRetiredUserStats(t *testing.T) {
	store := newGormStore(t)

	require.NoError(t, store.CreateRetiredUserStats(domain.RetiredUserStats{
		SlotID: "slot-a", TeamID: 1, UserID: 7, DisplayName: "Bob", Points: 30,
	}))
	require.NoError(t, store.CreateRetiredUserStats(domain.RetiredUserStats{
		SlotID: "slot-b", TeamID: 1, UserID: 8, DisplayName: "Eve", Points: 40,
	}))

	rows, err := store.GetAllRetiredUserStats()
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	require.NoError(t, store.DeleteAllRetiredUserStats())
	rows, err = store.GetAllRetiredUserStats()
	require.NoError(t, err)
	assert.Empty(t, rows)
}
