package stats

import (
	"errors"

	"github.com/dc-folding/team-comp-backend/internal/source"
)

// 数据完整性错误：不可重试，指向一个bug或与删除的竞态，只跳过该用户。
var (
	// ErrMissingBaseline 表示用户从未被记录赛季基线。
	ErrMissingBaseline = errors.New("用户缺少赛季基线")
	// ErrMissingHardware 表示用户引用的硬件不存在。外键完整性下不应出现，但必须处理。
	ErrMissingHardware = errors.New("用户引用的硬件不存在")
)

// IsTransient 判断错误是否为到统计源的瞬时传输失败，可按调用方策略有界重试。
func IsTransient(err error) bool {
	var ce *source.ConnectionError
	return errors.As(err, &ce)
}

// IsDataIntegrity 判断错误是否为数据完整性失败。
func IsDataIntegrity(err error) bool {
	return errors.Is(err, ErrMissingBaseline) || errors.Is(err, ErrMissingHardware)
}
