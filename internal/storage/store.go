package storage

import (
	"errors"

	"github.com/dc-folding/team-comp-backend/internal/domain"
)

// ErrNotFound 在查询的实体不存在时返回。
var ErrNotFound = errors.New("storage: 记录不存在")

// Store 是持久化层的CRUD契约。所有调用都是同步的：
// 返回nil即已落盘，返回错误即确定失败，不存在可被后续读取观察到的部分写入。
// 缓存层只通过这个接口访问SQLite，永远以它为事实来源。
type Store interface {
	CreateHardware(hw *domain.Hardware) error
	GetHardware(id uint) (domain.Hardware, error)
	GetAllHardware() ([]domain.Hardware, error)
	UpdateHardware(hw domain.Hardware) error
	DeleteHardware(id uint) error

	CreateTeam(team *domain.Team) error
	GetTeam(id uint) (domain.Team, error)
	GetAllTeams() ([]domain.Team, error)
	UpdateTeam(team domain.Team) error
	DeleteTeam(id uint) error

	CreateUser(user *domain.User) error
	GetUser(id uint) (domain.User, error)
	GetAllUsers() ([]domain.User, error)
	UpdateUser(user domain.User) error
	DeleteUser(id uint) error

	CreateInitialStats(userID uint, stats domain.Stats) error
	GetInitialStats(userID uint) (domain.InitialStats, error)

	CreateOrUpdateOffsetStats(offset domain.OffsetStats) error
	GetOffsetStats(userID uint) (domain.OffsetStats, error)
	DeleteOffsetStats(userID uint) error
	DeleteAllOffsetStats() error

	CreateHourlyTcStats(row domain.HourlyTcStats) (domain.HourlyTcStats, error)
	GetHourlyTcStats(userID uint) (domain.HourlyTcStats, error)
	GetFirstHourlyTcStats(userID uint) (domain.HourlyTcStats, error)

	CreateTotalStats(userID uint, stats domain.Stats) (domain.TotalStats, error)
	GetTotalStats(userID uint) (domain.TotalStats, error)

	CreateRetiredUserStats(row domain.RetiredUserStats) error
	GetAllRetiredUserStats() ([]domain.RetiredUserStats, error)
	DeleteAllRetiredUserStats() error

	CreateMonthlyResult(result domain.MonthlyResult) error
	GetMonthlyResult(year, month int) (domain.MonthlyResult, error)
}
