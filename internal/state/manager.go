package state

import (
	"sync"

	"github.com/habitflow/internal/repository"
)

// Manager 为每个已登录用户维护一个已附加会话的 HabitStore
// HTTP 层的变更与订阅流都经由同一个实例，保证列表只有一个持有者
type Manager struct {
	repo *repository.HabitRepository

	mu     sync.Mutex
	stores map[string]*HabitStore
}

// NewManager 构造 Manager
func NewManager(repo *repository.HabitRepository) *Manager {
	return &Manager{
		repo:   repo,
		stores: make(map[string]*HabitStore),
	}
}

// StoreFor 返回用户的同步存储，首次访问时创建并附加会话
func (m *Manager) StoreFor(ownerID string) *HabitStore {
	m.mu.Lock()
	hs, ok := m.stores[ownerID]
	if !ok {
		hs = NewHabitStore(m.repo)
		m.stores[ownerID] = hs
	}
	m.mu.Unlock()

	if !ok {
		hs.AttachSession(ownerID)
	}
	return hs
}

// Release 拆除用户的同步存储并释放其订阅，通常在登出时调用
func (m *Manager) Release(ownerID string) {
	m.mu.Lock()
	hs, ok := m.stores[ownerID]
	delete(m.stores, ownerID)
	m.mu.Unlock()

	if ok {
		hs.AttachSession("")
	}
}
