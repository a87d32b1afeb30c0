package cache

import (
	"strconv"
	"sync"

	"github.com/dc-folding/team-comp-backend/internal/domain"
)

// Manager 持有全部实体缓存与统计缓存，以及竞赛汇总的缓存槽。
// 它在进程启动时被构造一次，按引用注入到需要它的组件中；
// 测试可以为每个用例构造隔离的实例。
type Manager struct {
	Hardware *Cache[uint, domain.Hardware]
	Team     *Cache[uint, domain.Team]
	User     *Cache[uint, domain.UserSnapshot]

	Initial *Cache[uint, domain.InitialStats]
	Offset  *Cache[uint, domain.OffsetStats]
	Hourly  *Cache[uint, domain.HourlyTcStats]
	Total   *Cache[uint, domain.TotalStats]
	Retired *Cache[string, domain.RetiredUserStats]

	summaryMu    sync.RWMutex
	summary      domain.CompetitionSummary
	summaryValid bool
}

// NewManager 创建一组全空的缓存。
func NewManager() *Manager {
	return &Manager{
		Hardware: New[uint, domain.Hardware](),
		Team:     New[uint, domain.Team](),
		User:     New[uint, domain.UserSnapshot](),
		Initial:  New[uint, domain.InitialStats](),
		Offset:   New[uint, domain.OffsetStats](),
		Hourly:   New[uint, domain.HourlyTcStats](),
		Total:    New[uint, domain.TotalStats](),
		Retired:  New[string, domain.RetiredUserStats](),
	}
}

// Summary 返回缓存的竞赛汇总；未缓存或已失效时第二个返回值为false。
func (m *Manager) Summary() (domain.CompetitionSummary, bool) {
	m.summaryMu.RLock()
	defer m.summaryMu.RUnlock()
	return m.summary, m.summaryValid
}

// SetSummary 缓存一份新计算出的汇总。
func (m *Manager) SetSummary(s domain.CompetitionSummary) {
	m.summaryMu.Lock()
	defer m.summaryMu.Unlock()
	m.summary = s
	m.summaryValid = true
}

// InvalidateSummary 使汇总失效。下一次读取会从权威行重新计算。
func (m *Manager) InvalidateSummary() {
	m.summaryMu.Lock()
	defer m.summaryMu.Unlock()
	m.summaryValid = false
}

// PurgeUser 将用户ID从全部四个按用户键控的统计缓存中驱逐。
// 部分驱逐是正确性缺陷：残留的小时成绩会污染竞赛汇总。
func (m *Manager) PurgeUser(userID uint) {
	m.Initial.Remove(userID)
	m.Offset.Remove(userID)
	m.Hourly.Remove(userID)
	m.Total.Remove(userID)
}

// Apply 根据写入路径声明的Effects执行集合级的失效动作。
// 目前唯一的集合级动作是汇总失效；逐键的put/remove由调用方显式完成。
func (m *Manager) Apply(effects Effects) {
	if effects.Touches(KindSummary) {
		m.InvalidateSummary()
	}
}

// DumpContents 返回每个缓存当前的键集合（只含键名，不含值），用于运营诊断。
func (m *Manager) DumpContents() map[string][]string {
	formatUint := func(id uint) string { return strconv.FormatUint(uint64(id), 10) }
	formatString := func(id string) string { return id }

	dump := map[string][]string{
		KindHardware.String(): SortedKeys(m.Hardware, formatUint),
		KindTeam.String():     SortedKeys(m.Team, formatUint),
		KindUser.String():     SortedKeys(m.User, formatUint),
		KindInitial.String():  SortedKeys(m.Initial, formatUint),
		KindOffset.String():   SortedKeys(m.Offset, formatUint),
		KindHourly.String():   SortedKeys(m.Hourly, formatUint),
		KindTotal.String():    SortedKeys(m.Total, formatUint),
		KindRetired.String():  SortedKeys(m.Retired, formatString),
	}
	if _, ok := m.Summary(); ok {
		dump[KindSummary.String()] = []string{"cached"}
	} else {
		dump[KindSummary.String()] = []string{}
	}
	return dump
}
