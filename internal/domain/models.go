package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Identity 是用户在外部统计源上的身份标识。
// Passkey为空表示该用户尚未配置密钥，统计计算会静默跳过他。
type Identity struct {
	FoldingName string `gorm:"index" json:"foldingName"`
	Passkey     string `json:"-"`
}

// Hardware 定义了硬件在SQLite数据库中的持久化模型。
// Multiplier 是该硬件的积分倍率，恒不小于1.00。
type Hardware struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	Name        string          `gorm:"uniqueIndex" json:"name"`
	DisplayName string          `json:"displayName"`
	Multiplier  decimal.Decimal `gorm:"type:decimal(10,2)" json:"multiplier"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// Team 定义了队伍的持久化模型。
type Team struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	Name        string `gorm:"uniqueIndex" json:"name"`
	Description string `json:"description"`
	ForumLink   string `json:"forumLink"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// User 定义了参赛用户的持久化模型。
// 硬件与队伍以外键引用；它们的反规范化副本只存在于缓存快照(UserSnapshot)中。
type User struct {
	ID          uint   `gorm:"primarykey" json:"id"`
	Identity    `gorm:"embedded" json:"identity"`
	DisplayName string `json:"displayName"`
	Category    string `gorm:"index" json:"category"`
	HardwareID  uint   `gorm:"index" json:"hardwareId"`
	TeamID      uint   `gorm:"index" json:"teamId"`
	IsCaptain   bool   `json:"isCaptain"`
	IsRetired   bool   `json:"isRetired"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// UserSnapshot 是用户缓存中存放的值：用户行加上其引用的硬件与队伍的副本。
// 硬件或队伍更新时，级联规则负责替换这里的副本。
type UserSnapshot struct {
	User     User     `json:"user"`
	Hardware Hardware `json:"hardware"`
	Team     Team     `json:"team"`
}

// Stats 是统计源报告的某一时刻的终身累计数据。
// Points和Units单调不减，恒非负。
type Stats struct {
	Points int64 `json:"points"`
	Units  int64 `json:"units"`
}

// InitialStats 是当前月度赛季开始时的基线快照。
// 只由用户创建和赛季重置写入，每个用户一行。
type InitialStats struct {
	UserID uint  `gorm:"primarykey" json:"userId"`
	Points int64 `json:"points"`
	Units  int64 `json:"units"`

	UpdatedAt time.Time `json:"-"`
}

// Stats 返回基线的Stats视图。
func (s InitialStats) Stats() Stats {
	return Stats{Points: s.Points, Units: s.Units}
}

// OffsetStats 是对当前赛季数据的人工修正，每个用户最多一行，赛季重置时清空。
// 两个积分通道（原始与倍率后）可独立填写，见聚合器的推导规则。
type OffsetStats struct {
	UserID                 uint  `gorm:"primarykey" json:"userId"`
	PointsOffset           int64 `json:"pointsOffset"`
	MultipliedPointsOffset int64 `json:"multipliedPointsOffset"`
	UnitsOffset            int64 `json:"unitsOffset"`

	UpdatedAt time.Time `json:"-"`
}

// HourlyTcStats 是用户在当前赛季的最新计算结果，即对外可见的“当前成绩”。
// 表按追加写入，读取时取最新一行；逻辑上每个用户只有一行。
type HourlyTcStats struct {
	ID               uint  `gorm:"primarykey" json:"-"`
	UserID           uint  `gorm:"index" json:"userId"`
	Points           int64 `json:"points"`
	MultipliedPoints int64 `json:"multipliedPoints"`
	Units            int64 `json:"units"`

	CreatedAt time.Time `json:"createdAt"`
}

// TotalStats 是从统计源取回的终身累计数据的落盘审计记录，按追加写入。
type TotalStats struct {
	ID     uint  `gorm:"primarykey" json:"-"`
	UserID uint  `gorm:"index" json:"userId"`
	Points int64 `json:"points"`
	Units  int64 `json:"units"`

	CreatedAt time.Time `json:"createdAt"`
}

// Stats 返回审计记录的Stats视图。
func (s TotalStats) Stats() Stats {
	return Stats{Points: s.Points, Units: s.Units}
}

// RetiredUserStats 是退役用户离队时最终成绩的不可变归档。
// SlotID 是归档槽位的UUID，归档后继续计入所属队伍的总分。
type RetiredUserStats struct {
	SlotID           string `gorm:"primarykey;type:varchar(36)" json:"slotId"`
	TeamID           uint   `gorm:"index" json:"teamId"`
	UserID           uint   `json:"userId"`
	DisplayName      string `json:"displayName"`
	Points           int64  `json:"points"`
	MultipliedPoints int64  `json:"multipliedPoints"`
	Units            int64  `json:"units"`

	CreatedAt time.Time `json:"createdAt"`
}

// MonthlyResult 是赛季收盘时整个竞赛汇总的JSON存档，按年月唯一。
type MonthlyResult struct {
	ID     uint           `gorm:"primarykey" json:"-"`
	Year   int            `gorm:"uniqueIndex:idx_monthly_result_period" json:"year"`
	Month  int            `gorm:"uniqueIndex:idx_monthly_result_period" json:"month"`
	Result datatypes.JSON `json:"result"`

	CreatedAt time.Time `json:"createdAt"`
}
