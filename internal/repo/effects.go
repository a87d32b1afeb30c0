package repo

import "github.com/dc-folding/team-comp-backend/internal/cache"

// 每个修改存储的方法都在这里声明自己触及的缓存集合。
// 汇总缓存(KindSummary)在Hardware/Team/User/Hourly/Offset/Retired的任何写入上失效；
// 基线与终身审计不参与汇总，写入它们不会使汇总失效。
var (
	createHardwareEffects = cache.Effects{cache.KindHardware, cache.KindSummary}
	updateHardwareEffects = cache.Effects{cache.KindHardware, cache.KindUser, cache.KindSummary}
	deleteHardwareEffects = cache.Effects{cache.KindHardware, cache.KindSummary}

	createTeamEffects = cache.Effects{cache.KindTeam, cache.KindSummary}
	updateTeamEffects = cache.Effects{cache.KindTeam, cache.KindUser, cache.KindSummary}
	deleteTeamEffects = cache.Effects{cache.KindTeam, cache.KindSummary}

	createUserEffects = cache.Effects{cache.KindUser, cache.KindSummary}
	updateUserEffects = cache.Effects{cache.KindUser, cache.KindSummary}
	deleteUserEffects = cache.Effects{
		cache.KindUser, cache.KindInitial, cache.KindOffset,
		cache.KindHourly, cache.KindTotal, cache.KindSummary,
	}

	createInitialStatsEffects = cache.Effects{cache.KindInitial}
	writeOffsetStatsEffects   = cache.Effects{cache.KindOffset, cache.KindSummary}
	writeHourlyStatsEffects   = cache.Effects{cache.KindHourly, cache.KindSummary}
	writeTotalStatsEffects    = cache.Effects{cache.KindTotal}
	writeRetiredStatsEffects  = cache.Effects{cache.KindRetired, cache.KindSummary}
	monthlyResultEffects      = cache.Effects{}
)

// declaredEffects 按方法名枚举全部声明，供测试核对覆盖面。
func declaredEffects() map[string]cache.Effects {
	return map[string]cache.Effects{
		"CreateHardware":            createHardwareEffects,
		"UpdateHardware":            updateHardwareEffects,
		"DeleteHardware":            deleteHardwareEffects,
		"CreateTeam":                createTeamEffects,
		"UpdateTeam":                updateTeamEffects,
		"DeleteTeam":                deleteTeamEffects,
		"CreateUser":                createUserEffects,
		"UpdateUser":                updateUserEffects,
		"DeleteUser":                deleteUserEffects,
		"CreateInitialStats":        createInitialStatsEffects,
		"CreateOrUpdateOffsetStats": writeOffsetStatsEffects,
		"DeleteOffsetStats":         writeOffsetStatsEffects,
		"DeleteAllOffsetStats":      writeOffsetStatsEffects,
		"CreateHourlyTcStats":       writeHourlyStatsEffects,
		"CreateTotalStats":          writeTotalStatsEffects,
		"CreateRetiredUserStats":    writeRetiredStatsEffects,
		"DeleteAllRetiredUserStats": writeRetiredStatsEffects,
		"CreateMonthlyResult":       monthlyResultEffects,
	}
}
