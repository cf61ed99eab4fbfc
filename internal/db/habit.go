package db

import "time"

// HabitDoc 定义了习惯文档的持久化模型
// ID 由文档存储在创建时分配（uuid），OwnerID 限定可见范围
// CompletedDates 以 JSON 数组形式序列化，保持打卡日期的原始顺序
// CreatedAt/UpdatedAt 均由存储端负责刷新，客户端本地值仅为临时近似
type HabitDoc struct {
	ID             string `gorm:"primaryKey;size:36"`
	OwnerID        string `gorm:"index;not null"`
	Title          string `gorm:"not null"`
	Description    string
	Frequency      string `gorm:"not null"`
	CompletedDates string
	Color          string
	Icon           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName 保持与订阅通知中的集合名一致
func (HabitDoc) TableName() string {
	return "habit_docs"
}
