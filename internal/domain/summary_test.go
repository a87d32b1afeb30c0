package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCompetitionSummary(t *testing.T) {
	teams := []Team{
		{ID: 1, Name: "alpha"},
		{ID: 2, Name: "bravo"},
	}
	users := []User{
		{ID: 10, DisplayName: "Alice", Category: "gpu", TeamID: 1, IsCaptain: true},
		{ID: 11, DisplayName: "Bob", Category: "cpu", TeamID: 1},
		{ID: 20, DisplayName: "Carol", Category: "gpu", TeamID: 2},
	}
	hourly := map[uint]HourlyTcStats{
		10: {UserID: 10, Points: 100, MultipliedPoints: 200, Units: 5},
		11: {UserID: 11, Points: 50, MultipliedPoints: 50, Units: 2},
		20: {UserID: 20, Points: 300, MultipliedPoints: 600, Units: 9},
	}
	retired := []RetiredUserStats{
		{SlotID: "slot-a", TeamID: 1, DisplayName: "Eve", Points: 40, MultipliedPoints: 80, Units: 1},
	}

	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	summary := BuildCompetitionSummary(teams, users, hourly, retired, now)

	assert.Equal(t, now, summary.GeneratedAt)
	require.Len(t, summary.Teams, 2)

	// 队伍按倍率后积分降序：bravo(600) > alpha(200+50+80=330)
	assert.Equal(t, uint(2), summary.Teams[0].TeamID)
	assert.Equal(t, 1, summary.Teams[0].Rank)
	assert.Equal(t, uint(1), summary.Teams[1].TeamID)
	assert.Equal(t, 2, summary.Teams[1].Rank)

	// 退役归档计入队伍合计
	alpha := summary.Teams[1]
	assert.Equal(t, int64(190), alpha.Points)           // 100 + 50 + 40
	assert.Equal(t, int64(330), alpha.MultipliedPoints) // 200 + 50 + 80
	assert.Equal(t, int64(8), alpha.Units)              // 5 + 2 + 1
	require.Len(t, alpha.RetiredUsers, 1)
	assert.Equal(t, "Eve", alpha.RetiredUsers[0].DisplayName)

	// 队内活跃用户按倍率后积分降序
	require.Len(t, alpha.ActiveUsers, 2)
	assert.Equal(t, "Alice", alpha.ActiveUsers[0].DisplayName)
	assert.True(t, alpha.ActiveUsers[0].IsCaptain)

	// 全局合计
	assert.Equal(t, int64(490), summary.Points)
	assert.Equal(t, int64(930), summary.MultipliedPoints)
	assert.Equal(t, int64(17), summary.Units)

	// 类别排行按类别名排序，类别内按倍率后积分降序
	require.Len(t, summary.Categories, 2)
	assert.Equal(t, "cpu", summary.Categories[0].Category)
	assert.Equal(t, "gpu", summary.Categories[1].Category)
	gpu := summary.Categories[1]
	require.Len(t, gpu.Users, 2)
	assert.Equal(t, "Carol", gpu.Users[0].DisplayName)
}

func TestBuildCompetitionSummaryMissingHourlyCountsAsZero(t *testing.T) {
	teams := []Team{{ID: 1, Name: "alpha"}}
	users := []User{
		{ID: 10, DisplayName: "Alice", Category: "gpu", TeamID: 1},
		{ID: 11, DisplayName: "Bob", Category: "gpu", TeamID: 1},
	}
	hourly := map[uint]HourlyTcStats{
		10: {UserID: 10, Points: 100, MultipliedPoints: 100, Units: 1},
	}

	summary := BuildCompetitionSummary(teams, users, hourly, nil, time.Now())
	require.Len(t, summary.Teams, 1)
	require.Len(t, summary.Teams[0].ActiveUsers, 2)
	assert.Equal(t, int64(100), summary.Teams[0].Points)

	// 尚未计算过的用户以零成绩出现在名单里
	assert.Equal(t, "Bob", summary.Teams[0].ActiveUsers[1].DisplayName)
	assert.Zero(t, summary.Teams[0].ActiveUsers[1].Points)
}

func TestBuildCompetitionSummaryEmpty(t *testing.T) {
	summary := BuildCompetitionSummary(nil, nil, nil, nil, time.Now())
	assert.Empty(t, summary.Teams)
	assert.Empty(t, summary.Categories)
	assert.Zero(t, summary.Points)
}
