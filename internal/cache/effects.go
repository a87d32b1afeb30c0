package cache

// Kind 标识管理器中的一个具体缓存。
type Kind uint8

const (
	KindHardware Kind = iota
	KindTeam
	KindUser
	KindInitial
	KindOffset
	KindHourly
	KindTotal
	KindRetired
	KindSummary
)

var kindNames = map[Kind]string{
	KindHardware: "hardware",
	KindTeam:     "team",
	KindUser:     "user",
	KindInitial:  "initial_stats",
	KindOffset:   "offset_stats",
	KindHourly:   "hourly_tc_stats",
	KindTotal:    "total_stats",
	KindRetired:  "retired_user_stats",
	KindSummary:  "competition_summary",
}

// String 返回缓存的诊断名称。
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Effects 是一个写入路径所触及的缓存集合。
// 每个修改存储的函数都必须在代码中声明自己的Effects值，
// 使各路径的缓存副作用可以被测试逐一核对，而不是藏在注解元数据里。
type Effects []Kind

// Touches 判断集合中是否包含指定缓存。
func (e Effects) Touches(k Kind) bool {
	for _, kind := range e {
		if kind == k {
			return true
		}
	}
	return false
}
