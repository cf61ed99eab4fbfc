package db

import "gorm.io/gorm"

// HabitEvent 记录习惯相关的遥测事件
// Action 取值如 habit_created/habit_updated/habit_deleted/habit_toggled
// 写入失败只记录日志、不向上传播，因此本模型不承载业务状态
type HabitEvent struct {
	gorm.Model
	OwnerID string `gorm:"index"`
	HabitID string `gorm:"index"`
	Action  string
	Detail  string
}
