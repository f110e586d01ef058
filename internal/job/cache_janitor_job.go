package job

import (
	"Lighthouse/internal/pkg/cache"
	log "log/slog"
)

// CacheJanitorJob 定期清理进程内 TTL 缓存的过期条目。
// 读路径惰性删除已覆盖热键，这里兜底不再被读到的冷键。
type CacheJanitorJob struct {
	stores []*cache.TTLStore
}

func NewCacheJanitorJob(stores ...*cache.TTLStore) *CacheJanitorJob {
	return &CacheJanitorJob{stores: stores}
}

func (s *CacheJanitorJob) Run() {
	pruned := 0
	for _, store := range s.stores {
		pruned += store.Prune()
	}
	if pruned > 0 {
		log.Info("缓存清理完成", "pruned", pruned)
	}
}
