package repo

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dc-folding/team-comp-backend/internal/cache"
	"github.com/dc-folding/team-comp-backend/internal/domain"
	"github.com/dc-folding/team-comp-backend/internal/storage"
)

// CachedStore 在Store之上实现缓存旁路(cache-aside)规则：
// 读取先查缓存，未命中时回源填充；GetAll未命中时做全表扫描整体重建。
// 每个写入先落盘再更新缓存——存储写入失败时缓存保持不动，缓存永不领先于存储。
// 硬件或队伍的更新会同步级联进所有已缓存的用户快照。
type CachedStore struct {
	store  storage.Store
	caches *cache.Manager
}

// New 组装一个CachedStore。caches应当是进程内唯一的一组缓存。
func New(store storage.Store, caches *cache.Manager) *CachedStore {
	return &CachedStore{store: store, caches: caches}
}

// Caches 暴露底层缓存管理器，仅供诊断与测试检视。
func (cs *CachedStore) Caches() *cache.Manager {
	return cs.caches
}

// DumpCacheContents 返回每个缓存当前的键集合，用于运营诊断。
func (cs *CachedStore) DumpCacheContents() map[string][]string {
	return cs.caches.DumpContents()
}

// --- Hardware ---

func (cs *CachedStore) CreateHardware(hw *domain.Hardware) error {
	if err := cs.store.CreateHardware(hw); err != nil {
		return err
	}
	cs.caches.Hardware.Put(hw.ID, *hw)
	cs.caches.Apply(createHardwareEffects)
	return nil
}

func (cs *CachedStore) GetHardware(id uint) (domain.Hardware, error) {
	if hw, ok := cs.caches.Hardware.Get(id); ok {
		return hw, nil
	}
	hw, err := cs.store.GetHardware(id)
	if err != nil {
		return domain.Hardware{}, err
	}
	cs.caches.Hardware.Put(id, hw)
	return hw, nil
}

func (cs *CachedStore) GetAllHardware() ([]domain.Hardware, error) {
	if hws, ok := cs.caches.Hardware.GetAll(); ok {
		sort.Slice(hws, func(i, j int) bool { return hws[i].ID < hws[j].ID })
		return hws, nil
	}
	hws, err := cs.store.GetAllHardware()
	if err != nil {
		return nil, err
	}
	fill := make(map[uint]domain.Hardware, len(hws))
	for _, hw := range hws {
		fill[hw.ID] = hw
	}
	cs.caches.Hardware.Fill(fill)
	return hws, nil
}

// UpdateHardware 更新硬件并把新倍率同步级联进所有引用它的用户快照。
// 调用返回后，立刻读取这些用户必须观察到新的倍率。
func (cs *CachedStore) UpdateHardware(hw domain.Hardware) error {
	if err := cs.store.UpdateHardware(hw); err != nil {
		return err
	}
	cs.caches.Hardware.Put(hw.ID, hw)
	cs.cascadeIntoUsers(func(snap domain.UserSnapshot) bool {
		return snap.User.HardwareID == hw.ID
	})
	cs.caches.Apply(updateHardwareEffects)
	return nil
}

func (cs *CachedStore) DeleteHardware(id uint) error {
	if err := cs.store.DeleteHardware(id); err != nil {
		return err
	}
	cs.caches.Hardware.Remove(id)
	cs.caches.Apply(deleteHardwareEffects)
	return nil
}

// --- Team ---

func (cs *CachedStore) CreateTeam(team *domain.Team) error {
	if err := cs.store.CreateTeam(team); err != nil {
		return err
	}
	cs.caches.Team.Put(team.ID, *team)
	cs.caches.Apply(createTeamEffects)
	return nil
}

func (cs *CachedStore) GetTeam(id uint) (domain.Team, error) {
	if team, ok := cs.caches.Team.Get(id); ok {
		return team, nil
	}
	team, err := cs.store.GetTeam(id)
	if err != nil {
		return domain.Team{}, err
	}
	cs.caches.Team.Put(id, team)
	return team, nil
}

func (cs *CachedStore) GetAllTeams() ([]domain.Team, error) {
	if teams, ok := cs.caches.Team.GetAll(); ok {
		sort.Slice(teams, func(i, j int) bool { return teams[i].ID < teams[j].ID })
		return teams, nil
	}
	teams, err := cs.store.GetAllTeams()
	if err != nil {
		return nil, err
	}
	fill := make(map[uint]domain.Team, len(teams))
	for _, team := range teams {
		fill[team.ID] = team
	}
	cs.caches.Team.Fill(fill)
	return teams, nil
}

// UpdateTeam 更新队伍并级联进所有引用它的用户快照。
func (cs *CachedStore) UpdateTeam(team domain.Team) error {
	if err := cs.store.UpdateTeam(team); err != nil {
		return err
	}
	cs.caches.Team.Put(team.ID, team)
	cs.cascadeIntoUsers(func(snap domain.UserSnapshot) bool {
		return snap.User.TeamID == team.ID
	})
	cs.caches.Apply(updateTeamEffects)
	return nil
}

func (cs *CachedStore) DeleteTeam(id uint) error {
	if err := cs.store.DeleteTeam(id); err != nil {
		return err
	}
	cs.caches.Team.Remove(id)
	cs.caches.Apply(deleteTeamEffects)
	return nil
}

// --- User ---

func (cs *CachedStore) CreateUser(user *domain.User) error {
	if err := cs.store.CreateUser(user); err != nil {
		return err
	}
	if err := cs.rebuildUserSnapshot(user.ID); err != nil {
		// 存储写入已成功；快照构建失败只意味着该键暂不缓存
		fmt.Printf("缓存层: 用户 %d 的快照构建失败: %v\n", user.ID, err)
		cs.caches.User.Remove(user.ID)
	}
	cs.caches.Apply(createUserEffects)
	return nil
}

func (cs *CachedStore) GetUser(id uint) (domain.UserSnapshot, error) {
	if snap, ok := cs.caches.User.Get(id); ok {
		return snap, nil
	}
	snap, err := cs.buildUserSnapshot(id)
	if err != nil {
		return domain.UserSnapshot{}, err
	}
	cs.caches.User.Put(id, snap)
	return snap, nil
}

func (cs *CachedStore) GetAllUsers() ([]domain.UserSnapshot, error) {
	if snaps, ok := cs.caches.User.GetAll(); ok {
		sort.Slice(snaps, func(i, j int) bool { return snaps[i].User.ID < snaps[j].User.ID })
		return snaps, nil
	}
	users, err := cs.store.GetAllUsers()
	if err != nil {
		return nil, err
	}
	fill := make(map[uint]domain.UserSnapshot, len(users))
	snaps := make([]domain.UserSnapshot, 0, len(users))
	for _, user := range users {
		snap, err := cs.assembleSnapshot(user)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				// 引用悬空是单个用户的数据完整性问题，跳过该用户，不拖垮整张名单
				fmt.Printf("缓存层: 全量扫描跳过用户 %d: %v\n", user.ID, err)
				continue
			}
			return nil, err
		}
		fill[user.ID] = snap
		snaps = append(snaps, snap)
	}
	cs.caches.User.Fill(fill)
	return snaps, nil
}

func (cs *CachedStore) UpdateUser(user domain.User) error {
	if err := cs.store.UpdateUser(user); err != nil {
		return err
	}
	if err := cs.rebuildUserSnapshot(user.ID); err != nil {
		fmt.Printf("缓存层: 用户 %d 的快照重建失败: %v\n", user.ID, err)
		cs.caches.User.Remove(user.ID)
	}
	cs.caches.Apply(updateUserEffects)
	return nil
}

// DeleteUser 删除用户并把它的ID从用户缓存和全部四个统计缓存中驱逐。
func (cs *CachedStore) DeleteUser(id uint) error {
	if err := cs.store.DeleteUser(id); err != nil {
		return err
	}
	cs.caches.User.Remove(id)
	cs.caches.PurgeUser(id)
	cs.caches.Apply(deleteUserEffects)
	return nil
}

// --- 快照构建与级联 ---

func (cs *CachedStore) assembleSnapshot(user domain.User) (domain.UserSnapshot, error) {
	hw, err := cs.GetHardware(user.HardwareID)
	if err != nil {
		return domain.UserSnapshot{}, fmt.Errorf("无法解析用户 %d 引用的硬件 %d: %w", user.ID, user.HardwareID, err)
	}
	team, err := cs.GetTeam(user.TeamID)
	if err != nil {
		return domain.UserSnapshot{}, fmt.Errorf("无法解析用户 %d 引用的队伍 %d: %w", user.ID, user.TeamID, err)
	}
	return domain.UserSnapshot{User: user, Hardware: hw, Team: team}, nil
}

func (cs *CachedStore) buildUserSnapshot(id uint) (domain.UserSnapshot, error) {
	user, err := cs.store.GetUser(id)
	if err != nil {
		return domain.UserSnapshot{}, err
	}
	return cs.assembleSnapshot(user)
}

// rebuildUserSnapshot 重新派生单个用户快照并整体替换缓存条目。
func (cs *CachedStore) rebuildUserSnapshot(id uint) error {
	snap, err := cs.buildUserSnapshot(id)
	if err != nil {
		return err
	}
	cs.caches.User.Put(id, snap)
	return nil
}

// cascadeIntoUsers 把实体更新同步传播进所有匹配的已缓存用户快照。
// 单个快照的重建失败不能让用户缓存停留在部分更新的状态：
// 此时整个用户缓存被清空，后续读取会重新从存储派生。
func (cs *CachedStore) cascadeIntoUsers(affected func(domain.UserSnapshot) bool) {
	var ids []uint
	cs.caches.User.Range(func(id uint, snap domain.UserSnapshot) bool {
		if affected(snap) {
			ids = append(ids, id)
		}
		return true
	})

	for _, id := range ids {
		if err := cs.rebuildUserSnapshot(id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				// 与删除并发：该用户已不在存储中，驱逐即可
				cs.caches.User.Remove(id)
				continue
			}
			fmt.Printf("缓存层: 级联更新用户 %d 失败，回退为清空用户缓存: %v\n", id, err)
			cs.caches.User.RemoveAll()
			return
		}
	}
}

// FlushAll 清空全部缓存。仅用于故障恢复与测试。
func (cs *CachedStore) FlushAll() {
	cs.caches.Hardware.RemoveAll()
	cs.caches.Team.RemoveAll()
	cs.caches.User.RemoveAll()
	cs.caches.Initial.RemoveAll()
	cs.caches.Offset.RemoveAll()
	cs.caches.Hourly.RemoveAll()
	cs.caches.Total.RemoveAll()
	cs.caches.Retired.RemoveAll()
	cs.caches.InvalidateSummary()
}

// PrimeCaches 在启动时把实体缓存一次性全量预热（统计缓存按需回源）。
func (cs *CachedStore) PrimeCaches() error {
	hws, err := cs.GetAllHardware()
	if err != nil {
		return fmt.Errorf("预热硬件缓存失败: %w", err)
	}
	teams, err := cs.GetAllTeams()
	if err != nil {
		return fmt.Errorf("预热队伍缓存失败: %w", err)
	}
	users, err := cs.GetAllUsers()
	if err != nil {
		return fmt.Errorf("预热用户缓存失败: %w", err)
	}
	retired, err := cs.GetAllRetiredUserStats()
	if err != nil {
		return fmt.Errorf("预热退役归档缓存失败: %w", err)
	}
	fmt.Printf("缓存层: 预热完成，硬件 %d，队伍 %d，用户 %d，退役归档 %d。\n",
		len(hws), len(teams), len(users), len(retired))
	return nil
}
