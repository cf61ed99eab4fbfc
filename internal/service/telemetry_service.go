package service

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/habitflow/internal/db"
)

// TelemetryService 记录习惯相关的遥测事件
// 记录失败只打日志、从不向调用方传播，业务路径不因遥测而失败
type TelemetryService struct {
	db *gorm.DB
}

// NewTelemetryService 构造 TelemetryService
func NewTelemetryService(gdb *gorm.DB) *TelemetryService {
	return &TelemetryService{db: gdb}
}

// Record 写入一条事件，失败时静默丢弃
func (s *TelemetryService) Record(ownerID, habitID, action, detail string) {
	event := db.HabitEvent{
		OwnerID: ownerID,
		HabitID: habitID,
		Action:  action,
		Detail:  detail,
	}
	if err := s.db.Create(&event).Error; err != nil {
		log.Printf("telemetry: failed to record %s event: %v", action, err)
	}
}

// Recent 返回归属方最近的事件，用于调试与活动视图
func (s *TelemetryService) Recent(ownerID string, limit int) ([]db.HabitEvent, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var events []db.HabitEvent
	if err := s.db.Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}
