package cache

import (
	"sort"
	"sync"
)

// Cache 是一个按键镜像存储读取结果的内存缓存。
// 值按值语义存放：Put整体替换条目，并发读者只会看到完整的新值或完整的旧值，
// 不存在部分更新的对象（快照替换，而非就地修改）。
//
// primed 标记表示缓存曾经历过一次全量填充：GetAll未命中时，
// 上层应执行全表扫描并通过Fill做整体重建，而不是逐键补齐。
type Cache[K comparable, V any] struct {
	mu     sync.RWMutex
	data   map[K]V
	primed bool
}

// New 创建一个空缓存。
func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{data: make(map[K]V)}
}

// Get 返回键对应的值；未命中时第二个返回值为false。
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key]
	return v, ok
}

// GetAll 返回全部缓存值；只有在缓存被全量填充过之后第二个返回值才为true。
func (c *Cache[K, V]) GetAll() ([]V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.primed {
		return nil, false
	}
	values := make([]V, 0, len(c.data))
	for _, v := range c.data {
		values = append(values, v)
	}
	return values, true
}

// Put 原子地替换单个键的值。
func (c *Cache[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

// Fill 用全表扫描的结果整体重建缓存，并标记为已全量填充。
func (c *Cache[K, V]) Fill(values map[K]V) {
	next := make(map[K]V, len(values))
	for k, v := range values {
		next[k] = v
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = next
	c.primed = true
}

// Remove 删除单个键。
func (c *Cache[K, V]) Remove(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// RemoveAll 清空缓存并撤销全量填充标记，之后的GetAll会重新触发全表扫描。
func (c *Cache[K, V]) RemoveAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[K]V)
	c.primed = false
}

// Len 返回当前缓存条目数。
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Range 在读锁下遍历所有条目，f返回false时停止。
// f不得回调本缓存的写方法。
func (c *Cache[K, V]) Range(f func(key K, value V) bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for k, v := range c.data {
		if !f(k, v) {
			return
		}
	}
}

// SortedKeys 返回排序后的键集合的字符串形式，用于诊断转储。
func SortedKeys[K comparable, V any](c *Cache[K, V], format func(K) string) []string {
	c.mu.RLock()
	keys := make([]K, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	c.mu.RUnlock()

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = format(k)
	}
	sort.Strings(out)
	return out
}
