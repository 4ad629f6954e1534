package botmgr

import (
	"sort"
	"sync"
)

// registry 持有全部活跃会话，按会话ID索引。
// 所有变更都是持锁的单步map操作，create对数量上限的检查
// 与插入在同一临界区内完成。
type registry struct {
	mu      sync.RWMutex
	bots    map[string]*ManagedBot
	maxBots int
}

func newRegistry(maxBots int) *registry {
	return &registry{
		bots:    make(map[string]*ManagedBot),
		maxBots: maxBots,
	}
}

// create 插入新会话，超过上限时返回ErrTooManyBots
func (r *registry) create(bot *ManagedBot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxBots > 0 && len(r.bots) >= r.maxBots {
		return ErrTooManyBots
	}
	r.bots[bot.ID] = bot
	return nil
}

// get 查找会话
func (r *registry) get(id string) (*ManagedBot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bot, ok := r.bots[id]
	return bot, ok
}

// list 返回全部会话，按创建时间排序
func (r *registry) list() []*ManagedBot {
	r.mu.RLock()
	bots := make([]*ManagedBot, 0, len(r.bots))
	for _, bot := range r.bots {
		bots = append(bots, bot)
	}
	r.mu.RUnlock()

	sort.Slice(bots, func(i, j int) bool {
		return bots[i].createdAt.Before(bots[j].createdAt)
	})
	return bots
}

// remove 删除会话，返回是否存在
func (r *registry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.bots[id]; !ok {
		return false
	}
	delete(r.bots, id)
	return true
}

func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bots)
}
