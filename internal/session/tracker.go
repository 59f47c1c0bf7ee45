package session

import (
	"sync"

	"anyvidow/client/internal/models"
)

// Tracker 互斥槽位管理: 单视频/纯音频共用一个槽位,
// 播放列表独立一个。由调用方持有,没有包级单例。
type Tracker struct {
	mu     sync.Mutex
	active map[models.ExclusivityClass]bool
}

// NewTracker 创建槽位管理器
func NewTracker() *Tracker {
	return &Tracker{
		active: make(map[models.ExclusivityClass]bool),
	}
}

// acquire 占用槽位,已被占用时返回false
func (t *Tracker) acquire(class models.ExclusivityClass) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active[class] {
		return false
	}
	t.active[class] = true
	return true
}

// release 释放槽位
func (t *Tracker) release(class models.ExclusivityClass) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.active, class)
}
