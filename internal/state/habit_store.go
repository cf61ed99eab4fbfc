package state

import (
	"errors"
	"sync"
	"time"

	"github.com/habitflow/internal/repository"
)

// SyncState 标识同步存储当前所处的状态
type SyncState string

const (
	SyncIdle    SyncState = "idle"
	SyncLoading SyncState = "loading"
	SyncError   SyncState = "error"
)

var (
	// ErrNotAuthenticated 在未附加会话时发起变更返回
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrHabitNotFound 在本地列表中找不到指定习惯时返回
	ErrHabitNotFound = errors.New("habit not found")
)

// Snapshot 是暴露给观察方（SSE、CLI）的只读状态副本
type Snapshot struct {
	Habits    []repository.Habit `json:"habits"`
	SyncState SyncState          `json:"sync_state"`
	Error     string             `json:"error,omitempty"`
}

type toggleKey struct {
	id   string
	date string
}

// pendingToggle 记录一次未确认切换观察到的基线成员资格
// 同一 (id, date) 的并发切换以首次观察到的基线求值，从而收敛到同一目标
type pendingToggle struct {
	baseline bool
	inflight int
}

// HabitStore 是当前会话本地可见习惯列表的唯一持有者
// 所有变更遵循乐观应用 / 远端确认 / 失败时全量重同步回滚的协议
type HabitStore struct {
	repo *repository.HabitRepository

	mu         sync.Mutex
	ownerID    string
	habits     []repository.Habit
	syncState  SyncState
	errMsg     string
	generation uint64
	release    func()
	pending    map[toggleKey]*pendingToggle

	listeners    map[int]func(Snapshot)
	nextListener int

	// emitSeq 在 mu 内随快照一起递增；lastEmitted 由 emitMu 保护
	emitSeq     uint64
	emitMu      sync.Mutex
	lastEmitted uint64
}

// NewHabitStore 构造一个未附加会话的同步存储
func NewHabitStore(repo *repository.HabitRepository) *HabitStore {
	return &HabitStore{
		repo:      repo,
		habits:    []repository.Habit{},
		syncState: SyncIdle,
		pending:   make(map[toggleKey]*pendingToggle),
		listeners: make(map[int]func(Snapshot)),
	}
}

// AttachSession 切换同步存储绑定的会话
// 先释放旧订阅（恰好一次）；ownerID 为空表示登出，清空列表；
// 否则进入 Loading 并建立新订阅，之后每个快照全量替换本地列表
func (s *HabitStore) AttachSession(ownerID string) {
	s.mu.Lock()
	prevRelease := s.release
	s.release = nil
	s.ownerID = ownerID
	s.generation++
	gen := s.generation
	s.pending = make(map[toggleKey]*pendingToggle)
	if ownerID == "" {
		s.habits = []repository.Habit{}
		s.syncState = SyncIdle
		s.errMsg = ""
	} else {
		s.syncState = SyncLoading
		s.errMsg = ""
	}
	s.mu.Unlock()

	if prevRelease != nil {
		prevRelease()
	}
	s.emit()

	if ownerID == "" {
		return
	}

	release := s.repo.Watch(ownerID, func(habits []repository.Habit) {
		s.applySnapshot(gen, habits)
	})

	s.mu.Lock()
	if s.generation != gen {
		// 建立订阅期间会话又被切换，立即释放刚建立的订阅
		s.mu.Unlock()
		release()
		return
	}
	s.release = release
	s.mu.Unlock()
}

// applySnapshot 处理订阅推送：过期代的快照静默丢弃
func (s *HabitStore) applySnapshot(gen uint64, habits []repository.Habit) {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return
	}
	s.habits = habits
	s.syncState = SyncIdle
	s.errMsg = ""
	s.mu.Unlock()
	s.emit()
}

// Create 创建习惯并在成功后乐观地插入列表头部
// 下一次快照推送会全量替换列表，自动消除短暂的重复窗口；
// 失败时不应用本地变更，仅记录错误状态并向调用方返回
func (s *HabitStore) Create(input repository.HabitInput) (*repository.Habit, error) {
	ownerID, err := s.currentOwner()
	if err != nil {
		return nil, err
	}

	habit, err := s.repo.Create(ownerID, input)
	if err != nil {
		s.fail(err)
		return nil, err
	}

	s.mu.Lock()
	if s.ownerID == ownerID {
		s.habits = append([]repository.Habit{*habit}, s.habits...)
	}
	s.mu.Unlock()
	s.emit()

	return habit, nil
}

// Update 先在本地就地合并 patch 并盖上本地时间的 updated_at，再调用远端
// 失败时记录错误、执行全量重同步回滚，完成后将错误返回给调用方
func (s *HabitStore) Update(id string, patch repository.HabitPatch) error {
	ownerID, err := s.currentOwner()
	if err != nil {
		return err
	}

	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrHabitNotFound
	}
	habits := cloneHabits(s.habits)
	applyPatch(&habits[idx], patch)
	habits[idx].UpdatedAt = time.Now()
	s.habits = habits
	s.mu.Unlock()
	s.emit()

	if err := s.repo.Update(ownerID, id, patch); err != nil {
		s.fail(err)
		s.resync(ownerID)
		return err
	}
	return nil
}

// Delete 先从本地列表移除，再调用远端；失败时重同步回滚后返回错误
func (s *HabitStore) Delete(id string) error {
	ownerID, err := s.currentOwner()
	if err != nil {
		return err
	}

	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx >= 0 {
		habits := cloneHabits(s.habits)
		s.habits = append(habits[:idx], habits[idx+1:]...)
	}
	s.mu.Unlock()
	s.emit()

	if err := s.repo.Delete(ownerID, id); err != nil {
		s.fail(err)
		s.resync(ownerID)
		return err
	}
	return nil
}

// ToggleCompletion 切换指定日期的打卡状态：已存在则移除，不存在则加入
// 目标成员资格按变更前观察到的状态求值并直接设置（而非再次翻转），
// 因此未确认前的并发切换会收敛到恰好一次翻转；
// 持久化通过仓库的合并更新提交重算后的完整日期数组
func (s *HabitStore) ToggleCompletion(id, date string) error {
	if !repository.IsValidDate(date) {
		return &repository.ValidationError{Field: "date", Message: "date must be formatted as YYYY-MM-DD"}
	}

	ownerID, err := s.currentOwner()
	if err != nil {
		return err
	}

	key := toggleKey{id: id, date: date}

	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return ErrHabitNotFound
	}

	entry, ok := s.pending[key]
	if !ok {
		entry = &pendingToggle{baseline: containsDate(s.habits[idx].CompletedDates, date)}
		s.pending[key] = entry
	}
	entry.inflight++
	target := !entry.baseline

	habits := cloneHabits(s.habits)
	dates := withMembership(habits[idx].CompletedDates, date, target)
	habits[idx].CompletedDates = dates
	habits[idx].UpdatedAt = time.Now()
	s.habits = habits
	s.mu.Unlock()
	s.emit()

	updateErr := s.repo.Update(ownerID, id, repository.HabitPatch{CompletedDates: &dates})

	s.mu.Lock()
	if entry.inflight--; entry.inflight == 0 && s.pending[key] == entry {
		delete(s.pending, key)
	}
	s.mu.Unlock()

	if updateErr != nil {
		s.fail(updateErr)
		s.resync(ownerID)
		return updateErr
	}
	return nil
}

// ClearError 将 Error 状态恢复为 Idle，其余状态下为空操作
func (s *HabitStore) ClearError() {
	s.mu.Lock()
	if s.syncState != SyncError {
		s.mu.Unlock()
		return
	}
	s.syncState = SyncIdle
	s.errMsg = ""
	s.mu.Unlock()
	s.emit()
}

// Snapshot 返回当前状态的副本
func (s *HabitStore) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Habits:    cloneHabits(s.habits),
		SyncState: s.syncState,
		Error:     s.errMsg,
	}
}

// Habit 按 ID 返回本地列表中的习惯副本
func (s *HabitStore) Habit(id string) (*repository.Habit, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexLocked(id)
	if idx < 0 {
		return nil, false
	}
	habit := s.habits[idx]
	habit.CompletedDates = append([]string{}, habit.CompletedDates...)
	return &habit, true
}

// AddListener 注册状态变更观察者，返回的移除函数可安全地重复调用
func (s *HabitStore) AddListener(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *HabitStore) currentOwner() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ownerID == "" {
		return "", ErrNotAuthenticated
	}
	return s.ownerID, nil
}

// fail 记录最近一次向调用方传播的错误，供表现层被动观察
func (s *HabitStore) fail(err error) {
	s.mu.Lock()
	s.syncState = SyncError
	s.errMsg = err.Error()
	s.mu.Unlock()
	s.emit()
}

// resync 丢弃本地乐观状态，重新拉取权威列表全量替换
// 拉取成功时恢复 Idle；拉取同样失败时保持 Error 状态
func (s *HabitStore) resync(ownerID string) {
	habits, err := s.repo.List(ownerID)
	if err != nil {
		return
	}

	s.mu.Lock()
	if s.ownerID != ownerID {
		s.mu.Unlock()
		return
	}
	s.habits = habits
	s.syncState = SyncIdle
	s.errMsg = ""
	s.mu.Unlock()
	s.emit()
}

// emit 向监听方投递当前状态
// 序号与快照在同一把锁内捕获，投递串行化并丢弃乱序到达的旧快照，
// 保证监听方最后看到的总是最新状态
func (s *HabitStore) emit() {
	s.mu.Lock()
	s.emitSeq++
	seq := s.emitSeq
	snapshot := Snapshot{
		Habits:    cloneHabits(s.habits),
		SyncState: s.syncState,
		Error:     s.errMsg,
	}
	fns := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	if seq < s.lastEmitted {
		return
	}
	s.lastEmitted = seq

	for _, fn := range fns {
		fn(snapshot)
	}
}

func (s *HabitStore) indexLocked(id string) int {
	for i := range s.habits {
		if s.habits[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneHabits(habits []repository.Habit) []repository.Habit {
	return append([]repository.Habit(nil), habits...)
}

func applyPatch(habit *repository.Habit, patch repository.HabitPatch) {
	if patch.Title != nil {
		habit.Title = *patch.Title
	}
	if patch.Description != nil {
		habit.Description = *patch.Description
	}
	if patch.Frequency != nil {
		habit.Frequency = *patch.Frequency
	}
	if patch.CompletedDates != nil {
		habit.CompletedDates = append([]string{}, *patch.CompletedDates...)
	}
	if patch.Color != nil {
		habit.Color = *patch.Color
	}
	if patch.Icon != nil {
		habit.Icon = *patch.Icon
	}
}

func containsDate(dates []string, date string) bool {
	for _, d := range dates {
		if d == date {
			return true
		}
	}
	return false
}

// withMembership 返回设置了目标成员资格的新切片，保持既有日期的原始顺序
func withMembership(dates []string, date string, present bool) []string {
	result := make([]string, 0, len(dates)+1)
	for _, d := range dates {
		if d != date {
			result = append(result, d)
		}
	}
	if present {
		result = append(result, date)
	}
	return result
}
