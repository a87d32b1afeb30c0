package scheduler

import "errors"

// ErrSystemBusy 表示有互斥任务（小时周期或赛季重置）正在运行。
// 手动触发遇到它会被直接拒绝；定时触发顺延到下一个tick，从不无限排队。
var ErrSystemBusy = errors.New("系统正在执行互斥任务")

// Gate 是小时周期与赛季重置共用的全局咨询锁。
// 重置必须与小时周期互斥，也必须与自身互斥：
// 并发的重置可能用一个更新到一半的终身累计去重定基线。
type Gate struct {
	sem chan struct{}
}

// NewGate 创建一个空闲的门闩。
func NewGate() *Gate {
	return &Gate{sem: make(chan struct{}, 1)}
}

// TryEnter 尝试立刻占用门闩，失败时返回false而不阻塞。
func (g *Gate) TryEnter() bool {
	select {
	case g.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

// Leave 释放门闩。只能在TryEnter成功后调用一次。
func (g *Gate) Leave() {
	<-g.sem
}
