package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dc-folding/team-comp-backend/internal/domain"
)

// MemoryStore 是Store的纯内存实现，语义与GormStore一致。
// 供测试和本地开发使用，不做任何持久化。
type MemoryStore struct {
	mu sync.Mutex

	hardware map[uint]domain.Hardware
	teams    map[uint]domain.Team
	users    map[uint]domain.User

	initial map[uint]domain.InitialStats
	offset  map[uint]domain.OffsetStats
	hourly  []domain.HourlyTcStats
	total   []domain.TotalStats
	retired map[string]domain.RetiredUserStats
	monthly []domain.MonthlyResult

	nextHardwareID uint
	nextTeamID     uint
	nextUserID     uint
	nextRowID      uint
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore 创建一个空的内存存储。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hardware: make(map[uint]domain.Hardware),
		teams:    make(map[uint]domain.Team),
		users:    make(map[uint]domain.User),
		initial:  make(map[uint]domain.InitialStats),
		offset:   make(map[uint]domain.OffsetStats),
		retired:  make(map[string]domain.RetiredUserStats),
	}
}

// --- Hardware ---

func (s *MemoryStore) CreateHardware(hw *domain.Hardware) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hw.ID == 0 {
		s.nextHardwareID++
		hw.ID = s.nextHardwareID
	} else if hw.ID > s.nextHardwareID {
		s.nextHardwareID = hw.ID
	}
	s.hardware[hw.ID] = *hw
	return nil
}

func (s *MemoryStore) GetHardware(id uint) (domain.Hardware, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hw, ok := s.hardware[id]
	if !ok {
		return domain.Hardware{}, ErrNotFound
	}
	return hw, nil
}

func (s *MemoryStore) GetAllHardware() ([]domain.Hardware, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Hardware, 0, len(s.hardware))
	for _, hw := range s.hardware {
		out = append(out, hw)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdateHardware(hw domain.Hardware) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hardware[hw.ID]; !ok {
		return ErrNotFound
	}
	s.hardware[hw.ID] = hw
	return nil
}

func (s *MemoryStore) DeleteHardware(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.hardware[id]; !ok {
		return ErrNotFound
	}
	delete(s.hardware, id)
	return nil
}

// --- Team ---

func (s *MemoryStore) CreateTeam(team *domain.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if team.ID == 0 {
		s.nextTeamID++
		team.ID = s.nextTeamID
	} else if team.ID > s.nextTeamID {
		s.nextTeamID = team.ID
	}
	s.teams[team.ID] = *team
	return nil
}

func (s *MemoryStore) GetTeam(id uint) (domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	team, ok := s.teams[id]
	if !ok {
		return domain.Team{}, ErrNotFound
	}
	return team, nil
}

func (s *MemoryStore) GetAllTeams() ([]domain.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Team, 0, len(s.teams))
	for _, team := range s.teams {
		out = append(out, team)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdateTeam(team domain.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[team.ID]; !ok {
		return ErrNotFound
	}
	s.teams[team.ID] = team
	return nil
}

func (s *MemoryStore) DeleteTeam(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[id]; !ok {
		return ErrNotFound
	}
	delete(s.teams, id)
	return nil
}

// --- User ---

func (s *MemoryStore) CreateUser(user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == 0 {
		s.nextUserID++
		user.ID = s.nextUserID
	} else if user.ID > s.nextUserID {
		s.nextUserID = user.ID
	}
	s.users[user.ID] = *user
	return nil
}

func (s *MemoryStore) GetUser(id uint) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, ErrNotFound
	}
	return user, nil
}

func (s *MemoryStore) GetAllUsers() ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.User, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) UpdateUser(user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return ErrNotFound
	}
	s.users[user.ID] = user
	return nil
}

// DeleteUser 与GormStore保持一致：连同基线与修正值一起删除，历史表保留。
func (s *MemoryStore) DeleteUser(id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	delete(s.initial, id)
	delete(s.offset, id)
	return nil
}

// --- InitialStats ---

func (s *MemoryStore) CreateInitialStats(userID uint, stats domain.Stats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initial[userID] = domain.InitialStats{UserID: userID, Points: stats.Points, Units: stats.Units}
	return nil
}

func (s *MemoryStore) GetInitialStats(userID uint) (domain.InitialStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.initial[userID]
	if !ok {
		return domain.InitialStats{}, ErrNotFound
	}
	return row, nil
}

// --- OffsetStats ---

func (s *MemoryStore) CreateOrUpdateOffsetStats(offset domain.OffsetStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset[offset.UserID] = offset
	return nil
}

func (s *MemoryStore) GetOffsetStats(userID uint) (domain.OffsetStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.offset[userID]
	if !ok {
		return domain.OffsetStats{}, ErrNotFound
	}
	return row, nil
}

func (s *MemoryStore) DeleteOffsetStats(userID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.offset, userID)
	return nil
}

func (s *MemoryStore) DeleteAllOffsetStats() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset = make(map[uint]domain.OffsetStats)
	return nil
}

// --- HourlyTcStats ---

func (s *MemoryStore) CreateHourlyTcStats(row domain.HourlyTcStats) (domain.HourlyTcStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRowID++
	row.ID = s.nextRowID
	s.hourly = append(s.hourly, row)
	return row, nil
}

func (s *MemoryStore) GetHourlyTcStats(userID uint) (domain.HourlyTcStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.hourly) - 1; i >= 0; i-- {
		if s.hourly[i].UserID == userID {
			return s.hourly[i], nil
		}
	}
	return domain.HourlyTcStats{}, ErrNotFound
}

func (s *MemoryStore) GetFirstHourlyTcStats(userID uint) (domain.HourlyTcStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.hourly {
		if row.UserID == userID {
			return row, nil
		}
	}
	return domain.HourlyTcStats{}, ErrNotFound
}

// --- TotalStats ---

func (s *MemoryStore) CreateTotalStats(userID uint, stats domain.Stats) (domain.TotalStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRowID++
	row := domain.TotalStats{ID: s.nextRowID, UserID: userID, Points: stats.Points, Units: stats.Units}
	s.total = append(s.total, row)
	return row, nil
}

func (s *MemoryStore) GetTotalStats(userID uint) (domain.TotalStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.total) - 1; i >= 0; i-- {
		if s.total[i].UserID == userID {
			return s.total[i], nil
		}
	}
	return domain.TotalStats{}, ErrNotFound
}

// --- RetiredUserStats ---

func (s *MemoryStore) CreateRetiredUserStats(row domain.RetiredUserStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.retired[row.SlotID]; ok {
		return fmt.Errorf("退役归档槽位 %s 已存在", row.SlotID)
	}
	s.retired[row.SlotID] = row
	return nil
}

func (s *MemoryStore) GetAllRetiredUserStats() ([]domain.RetiredUserStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.RetiredUserStats, 0, len(s.retired))
	for _, row := range s.retired {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SlotID < out[j].SlotID })
	return out, nil
}

func (s *MemoryStore) DeleteAllRetiredUserStats() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retired = make(map[string]domain.RetiredUserStats)
	return nil
}

// --- MonthlyResult ---

func (s *MemoryStore) CreateMonthlyResult(result domain.MonthlyResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.monthly {
		if row.Year == result.Year && row.Month == result.Month {
			return fmt.Errorf("月度存档 %04d-%02d 已存在", result.Year, result.Month)
		}
	}
	s.nextRowID++
	result.ID = s.nextRowID
	s.monthly = append(s.monthly, result)
	return nil
}

func (s *MemoryStore) GetMonthlyResult(year, month int) (domain.MonthlyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.monthly {
		if row.Year == year && row.Month == month {
			return row, nil
		}
	}
	return domain.MonthlyResult{}, ErrNotFound
}
