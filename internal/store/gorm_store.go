package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/habitflow/internal/db"
)

// GormClient 基于 GORM 实现 Client，并维护进程内的订阅分发
type GormClient struct {
	db *gorm.DB

	mu   sync.Mutex
	subs map[string][]*subscription
}

// NewGormClient 构造数据库支撑的文档存储客户端
func NewGormClient(gdb *gorm.DB) *GormClient {
	return &GormClient{
		db:   gdb,
		subs: make(map[string][]*subscription),
	}
}

// Insert 创建文档：ID 与时间戳由存储端分配
func (c *GormClient) Insert(ownerID string, doc Document) (Document, error) {
	now := time.Now()
	row := db.HabitDoc{
		ID:             uuid.New().String(),
		OwnerID:        ownerID,
		Title:          doc.Title,
		Description:    doc.Description,
		Frequency:      doc.Frequency,
		CompletedDates: encodeDates(doc.CompletedDates),
		Color:          doc.Color,
		Icon:           doc.Icon,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := c.db.Create(&row).Error; err != nil {
		return Document{}, mapDBError("insert habit document", err)
	}

	c.notify(ownerID)
	return docFromRow(row), nil
}

// Get 按 ID 获取文档，归属方不匹配时返回 permission-denied
func (c *GormClient) Get(ownerID, id string) (Document, error) {
	row, err := c.find(ownerID, id)
	if err != nil {
		return Document{}, err
	}
	return docFromRow(*row), nil
}

// List 返回归属方的全部文档，按创建时间倒序（最新在前）
func (c *GormClient) List(ownerID string) ([]Document, error) {
	var rows []db.HabitDoc
	if err := c.db.Where("owner_id = ?", ownerID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, mapDBError("list habit documents", err)
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, docFromRow(row))
	}
	return docs, nil
}

// Patch 执行合并式更新：仅覆盖提供的字段，updated_at 总是刷新为存储端时间
func (c *GormClient) Patch(ownerID, id string, patch Patch) error {
	if _, err := c.find(ownerID, id); err != nil {
		return err
	}

	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if patch.Title != nil {
		updates["title"] = *patch.Title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if patch.Frequency != nil {
		updates["frequency"] = *patch.Frequency
	}
	if patch.CompletedDates != nil {
		updates["completed_dates"] = encodeDates(*patch.CompletedDates)
	}
	if patch.Color != nil {
		updates["color"] = *patch.Color
	}
	if patch.Icon != nil {
		updates["icon"] = *patch.Icon
	}

	if err := c.db.Model(&db.HabitDoc{}).Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return mapDBError("patch habit document", err)
	}

	c.notify(ownerID)
	return nil
}

// Remove 删除文档；目标不存在时返回 not-found
func (c *GormClient) Remove(ownerID, id string) error {
	if _, err := c.find(ownerID, id); err != nil {
		return err
	}

	if err := c.db.Delete(&db.HabitDoc{}, "id = ?", id).Error; err != nil {
		return mapDBError("remove habit document", err)
	}

	c.notify(ownerID)
	return nil
}

// Subscribe 注册归属方的实时监听
func (c *GormClient) Subscribe(ownerID string, fn SnapshotFunc) func() {
	sub := &subscription{
		owner:  ownerID,
		fn:     fn,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	c.mu.Lock()
	c.subs[ownerID] = append(c.subs[ownerID], sub)
	c.mu.Unlock()

	go sub.loop()

	// 注册后立即推送一次当前状态
	if docs, err := c.List(ownerID); err == nil {
		sub.push(docs)
	}

	return func() {
		sub.release()
		c.detach(sub)
	}
}

func (c *GormClient) find(ownerID, id string) (*db.HabitDoc, error) {
	var row db.HabitDoc
	if err := c.db.First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &Error{Code: CodeNotFound, Message: fmt.Sprintf("document %s not found", id)}
		}
		return nil, mapDBError("find habit document", err)
	}
	if row.OwnerID != ownerID {
		return nil, &Error{Code: CodePermissionDenied, Message: "document belongs to another owner"}
	}
	return &row, nil
}

// notify 将归属方的最新快照压入每个订阅的待投递槽
func (c *GormClient) notify(ownerID string) {
	c.mu.Lock()
	targets := append([]*subscription(nil), c.subs[ownerID]...)
	c.mu.Unlock()

	if len(targets) == 0 {
		return
	}

	docs, err := c.List(ownerID)
	if err != nil {
		return
	}

	for _, sub := range targets {
		sub.push(docs)
	}
}

func (c *GormClient) detach(target *subscription) {
	c.mu.Lock()
	defer c.mu.Unlock()

	remaining := c.subs[target.owner][:0]
	for _, sub := range c.subs[target.owner] {
		if sub != target {
			remaining = append(remaining, sub)
		}
	}
	if len(remaining) == 0 {
		delete(c.subs, target.owner)
	} else {
		c.subs[target.owner] = remaining
	}
}

// SubscriberCount 返回归属方当前的活跃订阅数，主要服务于测试
func (c *GormClient) SubscriberCount(ownerID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs[ownerID])
}

// subscription 以单 goroutine 顺序投递快照
// 回调在投递锁内执行，release 取得同一把锁后置位 released，
// 因此 release 返回时在途投递已结束，且此后不再有任何投递
type subscription struct {
	owner  string
	fn     SnapshotFunc
	notify chan struct{}
	done   chan struct{}
	once   sync.Once

	mu      sync.Mutex
	pending []Document
	hasNext bool

	deliverMu sync.Mutex
	released  bool
}

// push 覆盖待投递槽：快照是全量状态，只需投递最新一份
func (s *subscription) push(docs []Document) {
	s.mu.Lock()
	s.pending = docs
	s.hasNext = true
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscription) loop() {
	for {
		select {
		case <-s.done:
			return
		case <-s.notify:
			s.mu.Lock()
			docs := s.pending
			ready := s.hasNext
			s.pending = nil
			s.hasNext = false
			s.mu.Unlock()

			if !ready {
				continue
			}

			s.deliver(docs)
		}
	}
}

func (s *subscription) deliver(docs []Document) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if s.released {
		return
	}
	s.fn(docs)
}

// release 等待在途投递结束后才返回
func (s *subscription) release() {
	s.once.Do(func() {
		close(s.done)
	})

	s.deliverMu.Lock()
	s.released = true
	s.deliverMu.Unlock()
}

func encodeDates(dates []string) string {
	if len(dates) == 0 {
		return "[]"
	}
	raw, err := json.Marshal(dates)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func decodeDates(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var dates []string
	if err := json.Unmarshal([]byte(raw), &dates); err != nil {
		return []string{}
	}
	return dates
}

func docFromRow(row db.HabitDoc) Document {
	return Document{
		ID:             row.ID,
		OwnerID:        row.OwnerID,
		Title:          row.Title,
		Description:    row.Description,
		Frequency:      row.Frequency,
		CompletedDates: decodeDates(row.CompletedDates),
		Color:          row.Color,
		Icon:           row.Icon,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}

func mapDBError(op string, err error) error {
	return &Error{
		Code:    CodeUnavailable,
		Message: fmt.Sprintf("%s: %v", op, err),
	}
}
