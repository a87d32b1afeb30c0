package storage

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/dc-folding/team-comp-backend/internal/domain"
)

// GormStore 是Store的GORM/SQLite实现。
type GormStore struct {
	db *gorm.DB
}

var _ Store = (*GormStore)(nil)

// NewGormStore 包装一个已打开的GORM连接。
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate 负责自动迁移所有表结构。
func (s *GormStore) Migrate() error {
	err := s.db.AutoMigrate(
		&domain.Hardware{},
		&domain.Team{},
		&domain.User{},
		&domain.InitialStats{},
		&domain.OffsetStats{},
		&domain.HourlyTcStats{},
		&domain.TotalStats{},
		&domain.RetiredUserStats{},
		&domain.MonthlyResult{},
	)
	if err != nil {
		return fmt.Errorf("无法迁移数据库表结构: %w", err)
	}
	return nil
}

func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

// --- Hardware ---

func (s *GormStore) CreateHardware(hw *domain.Hardware) error {
	return wrapErr("创建硬件失败", s.db.Create(hw).Error)
}

func (s *GormStore) GetHardware(id uint) (domain.Hardware, error) {
	var hw domain.Hardware
	err := s.db.First(&hw, id).Error
	return hw, wrapErr("读取硬件失败", err)
}

func (s *GormStore) GetAllHardware() ([]domain.Hardware, error) {
	var hws []domain.Hardware
	err := s.db.Order("id asc").Find(&hws).Error
	return hws, wrapErr("读取硬件列表失败", err)
}

// UpdateHardware 整体替换一行已有硬件。ID不存在时返回ErrNotFound，而不是插入新行。
func (s *GormStore) UpdateHardware(hw domain.Hardware) error {
	var existing domain.Hardware
	if err := s.db.First(&existing, hw.ID).Error; err != nil {
		return wrapErr("更新硬件失败", err)
	}
	hw.CreatedAt = existing.CreatedAt
	return wrapErr("更新硬件失败", s.db.Save(&hw).Error)
}

func (s *GormStore) DeleteHardware(id uint) error {
	res := s.db.Delete(&domain.Hardware{}, id)
	if res.Error != nil {
		return wrapErr("删除硬件失败", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- Team ---

func (s *GormStore) CreateTeam(team *domain.Team) error {
	return wrapErr("创建队伍失败", s.db.Create(team).Error)
}

func (s *GormStore) GetTeam(id uint) (domain.Team, error) {
	var team domain.Team
	err := s.db.First(&team, id).Error
	return team, wrapErr("读取队伍失败", err)
}

func (s *GormStore) GetAllTeams() ([]domain.Team, error) {
	var teams []domain.Team
	err := s.db.Order("id asc").Find(&teams).Error
	return teams, wrapErr("读取队伍列表失败", err)
}

func (s *GormStore) UpdateTeam(team domain.Team) error {
	var existing domain.Team
	if err := s.db.First(&existing, team.ID).Error; err != nil {
		return wrapErr("更新队伍失败", err)
	}
	team.CreatedAt = existing.CreatedAt
	return wrapErr("更新队伍失败", s.db.Save(&team).Error)
}

func (s *GormStore) DeleteTeam(id uint) error {
	res := s.db.Delete(&domain.Team{}, id)
	if res.Error != nil {
		return wrapErr("删除队伍失败", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// --- User ---

func (s *GormStore) CreateUser(user *domain.User) error {
	return wrapErr("创建用户失败", s.db.Create(user).Error)
}

func (s *GormStore) GetUser(id uint) (domain.User, error) {
	var user domain.User
	err := s.db.First(&user, id).Error
	return user, wrapErr("读取用户失败", err)
}

func (s *GormStore) GetAllUsers() ([]domain.User, error) {
	var users []domain.User
	err := s.db.Order("id asc").Find(&users).Error
	return users, wrapErr("读取用户列表失败", err)
}

func (s *GormStore) UpdateUser(user domain.User) error {
	var existing domain.User
	if err := s.db.First(&existing, user.ID).Error; err != nil {
		return wrapErr("更新用户失败", err)
	}
	user.CreatedAt = existing.CreatedAt
	return wrapErr("更新用户失败", s.db.Save(&user).Error)
}

// DeleteUser 删除用户行及其基线和修正值。
// 小时成绩与终身审计记录保留在历史表中。
func (s *GormStore) DeleteUser(id uint) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&domain.User{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("user_id = ?", id).Delete(&domain.InitialStats{}).Error; err != nil {
			return err
		}
		return tx.Where("user_id = ?", id).Delete(&domain.OffsetStats{}).Error
	})
	return wrapErr("删除用户失败", err)
}

// --- InitialStats ---

// CreateInitialStats 写入或替换用户的赛季基线。
func (s *GormStore) CreateInitialStats(userID uint, stats domain.Stats) error {
	row := domain.InitialStats{UserID: userID, Points: stats.Points, Units: stats.Units}
	return wrapErr("写入基线失败", s.db.Save(&row).Error)
}

func (s *GormStore) GetInitialStats(userID uint) (domain.InitialStats, error) {
	var row domain.InitialStats
	err := s.db.First(&row, "user_id = ?", userID).Error
	return row, wrapErr("读取基线失败", err)
}

// --- OffsetStats ---

func (s *GormStore) CreateOrUpdateOffsetStats(offset domain.OffsetStats) error {
	return wrapErr("写入修正值失败", s.db.Save(&offset).Error)
}

func (s *GormStore) GetOffsetStats(userID uint) (domain.OffsetStats, error) {
	var row domain.OffsetStats
	err := s.db.First(&row, "user_id = ?", userID).Error
	return row, wrapErr("读取修正值失败", err)
}

func (s *GormStore) DeleteOffsetStats(userID uint) error {
	return wrapErr("删除修正值失败", s.db.Where("user_id = ?", userID).Delete(&domain.OffsetStats{}).Error)
}

func (s *GormStore) DeleteAllOffsetStats() error {
	return wrapErr("清空修正值失败", s.db.Where("1 = 1").Delete(&domain.OffsetStats{}).Error)
}

// --- HourlyTcStats ---

// CreateHourlyTcStats 追加一行小时成绩，返回落盘后的完整行。
func (s *GormStore) CreateHourlyTcStats(row domain.HourlyTcStats) (domain.HourlyTcStats, error) {
	row.ID = 0
	err := s.db.Create(&row).Error
	return row, wrapErr("写入小时成绩失败", err)
}

// GetHourlyTcStats 返回用户最新的一行小时成绩。
func (s *GormStore) GetHourlyTcStats(userID uint) (domain.HourlyTcStats, error) {
	var row domain.HourlyTcStats
	err := s.db.Where("user_id = ?", userID).Order("id desc").First(&row).Error
	return row, wrapErr("读取小时成绩失败", err)
}

// GetFirstHourlyTcStats 返回用户最早的一行小时成绩，用于运营诊断。
func (s *GormStore) GetFirstHourlyTcStats(userID uint) (domain.HourlyTcStats, error) {
	var row domain.HourlyTcStats
	err := s.db.Where("user_id = ?", userID).Order("id asc").First(&row).Error
	return row, wrapErr("读取首条小时成绩失败", err)
}

// --- TotalStats ---

// CreateTotalStats 追加一条终身累计审计记录，返回落盘后的完整行。
func (s *GormStore) CreateTotalStats(userID uint, stats domain.Stats) (domain.TotalStats, error) {
	row := domain.TotalStats{UserID: userID, Points: stats.Points, Units: stats.Units}
	err := s.db.Create(&row).Error
	return row, wrapErr("写入终身累计失败", err)
}

// GetTotalStats 返回用户最新的终身累计记录。
func (s *GormStore) GetTotalStats(userID uint) (domain.TotalStats, error) {
	var row domain.TotalStats
	err := s.db.Where("user_id = ?", userID).Order("id desc").First(&row).Error
	return row, wrapErr("读取终身累计失败", err)
}

// --- RetiredUserStats ---

func (s *GormStore) CreateRetiredUserStats(row domain.RetiredUserStats) error {
	return wrapErr("写入退役归档失败", s.db.Create(&row).Error)
}

func (s *GormStore) GetAllRetiredUserStats() ([]domain.RetiredUserStats, error) {
	var rows []domain.RetiredUserStats
	err := s.db.Order("created_at asc").Find(&rows).Error
	return rows, wrapErr("读取退役归档失败", err)
}

func (s *GormStore) DeleteAllRetiredUserStats() error {
	return wrapErr("清空退役归档失败", s.db.Where("1 = 1").Delete(&domain.RetiredUserStats{}).Error)
}

// --- MonthlyResult ---

func (s *GormStore) CreateMonthlyResult(result domain.MonthlyResult) error {
	return wrapErr("写入月度存档失败", s.db.Create(&result).Error)
}

func (s *GormStore) GetMonthlyResult(year, month int) (domain.MonthlyResult, error) {
	var row domain.MonthlyResult
	err := s.db.First(&row, "year = ? AND month = ?", year, month).Error
	return row, wrapErr("读取月度存档失败", err)
}
