package stats

import (
	"github.com/shopspring/decimal"

	"github.com/dc-folding/team-comp-backend/internal/domain"
)

// roundHalfUp 把积分与倍率的乘积四舍五入到最近的整数（0.5进位）。
func roundHalfUp(points int64, multiplier decimal.Decimal) int64 {
	return decimal.NewFromInt(points).Mul(multiplier).Round(0).IntPart()
}

func clampNonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// CalculateHourly 从基线、终身累计、硬件倍率和人工修正计算用户的当前赛季成绩。
//
// 修正值的两个积分通道各自独立：
// 倍率后通道为零而原始通道非零时，倍率后修正从倍率重新推导而不是保持为零
// （修正值可能以原始或倍率后任一形式录入）；
// 反方向不推导——原始通道为零、倍率后通道非零时，原始积分不受影响。
// 三个最终数字都被钳制为非负。
func CalculateHourly(userID uint, initial, total domain.Stats, multiplier decimal.Decimal, offset domain.OffsetStats) domain.HourlyTcStats {
	points := clampNonNegative(total.Points - initial.Points)
	units := clampNonNegative(total.Units - initial.Units)
	multipliedPoints := roundHalfUp(points, multiplier)

	multipliedOffset := offset.MultipliedPointsOffset
	if multipliedOffset == 0 && offset.PointsOffset != 0 {
		multipliedOffset = roundHalfUp(offset.PointsOffset, multiplier)
	}

	return domain.HourlyTcStats{
		UserID:           userID,
		Points:           clampNonNegative(points + offset.PointsOffset),
		MultipliedPoints: clampNonNegative(multipliedPoints + multipliedOffset),
		Units:            clampNonNegative(units + offset.UnitsOffset),
	}
}
