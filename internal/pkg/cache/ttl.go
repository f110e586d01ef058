package cache

import (
	"strings"
	"sync"
	"time"
)

// TTLStore 进程内 TTL 缓存，非权威存储，重启丢失不影响正确性。
// 幂等去重、在线状态与列表读缓存共用这一实现，时钟可注入便于测试。
type TTLStore struct {
	mu  sync.RWMutex
	ttl time.Duration
	now func() time.Time

	items map[string]entry
}

type entry struct {
	value     interface{}
	expiresAt time.Time
}

func NewTTLStore(ttl time.Duration, now func() time.Time) *TTLStore {
	if now == nil {
		now = time.Now
	}
	return &TTLStore{
		ttl:   ttl,
		now:   now,
		items: make(map[string]entry),
	}
}

// Get 获取未过期的值，过期条目顺带惰性删除
func (s *TTLStore) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	e, ok := s.items[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if s.now().After(e.expiresAt) {
		s.mu.Lock()
		// 二次检查，避免删掉并发写入的新条目
		if cur, ok := s.items[key]; ok && s.now().After(cur.expiresAt) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set 写入值并刷新过期时间
func (s *TTLStore) Set(key string, value interface{}) {
	s.mu.Lock()
	s.items[key] = entry{value: value, expiresAt: s.now().Add(s.ttl)}
	s.mu.Unlock()
}

// Touch 幂等标记：首见记录并返回 false，TTL 窗口内重复返回 true
func (s *TTLStore) Touch(key string) bool {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.items[key]
	if ok && now.Before(e.expiresAt) {
		return true
	}
	s.items[key] = entry{expiresAt: now.Add(s.ttl)}
	return false
}

// Delete 删除若干键，用于写路径的主动失效
func (s *TTLStore) Delete(keys ...string) {
	s.mu.Lock()
	for _, k := range keys {
		delete(s.items, k)
	}
	s.mu.Unlock()
}

// DeletePrefix 删除指定前缀的所有键，返回删除数量。
// 范围键无法逐一枚举时的批量失效入口。
func (s *TTLStore) DeletePrefix(prefix string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for k := range s.items {
		if strings.HasPrefix(k, prefix) {
			delete(s.items, k)
			deleted++
		}
	}
	return deleted
}

// Prune 清理所有过期条目，返回清理数量，由后台 janitor 周期调用
func (s *TTLStore) Prune() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	pruned := 0
	for k, e := range s.items {
		if now.After(e.expiresAt) {
			delete(s.items, k)
			pruned++
		}
	}
	return pruned
}

// Len 当前条目数（含未清理的过期条目）
func (s *TTLStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
