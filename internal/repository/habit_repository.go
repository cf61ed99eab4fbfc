package repository

import (
	"strings"
	"time"

	"github.com/habitflow/internal/store"
)

const dateFormat = "2006-01-02"

// Habit 是应用内存中的习惯表示，与线上文档格式解耦
type Habit struct {
	ID             string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Frequency      string    `json:"frequency"`
	CompletedDates []string  `json:"completed_dates"`
	Color          string    `json:"color"`
	Icon           string    `json:"icon"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HabitInput 定义创建习惯时可配置的字段
type HabitInput struct {
	Title       string
	Description string
	Frequency   string
	Color       string
	Icon        string
}

// HabitPatch 描述部分更新：为 nil 的字段保持远端原值
type HabitPatch struct {
	Title          *string
	Description    *string
	Frequency      *string
	CompletedDates *[]string
	Color          *string
	Icon           *string
}

// HabitRepository 负责应用表示与线上文档之间的转换，并代理 CRUD 与订阅调用
type HabitRepository struct {
	client store.Client
}

// NewHabitRepository 构造 HabitRepository
func NewHabitRepository(client store.Client) *HabitRepository {
	return &HabitRepository{client: client}
}

// Create 校验输入后创建习惯，打卡日期初始为空
// 返回值的 ID 来自存储端，时间戳在下一次同步前为本地近似值
func (r *HabitRepository) Create(ownerID string, input HabitInput) (*Habit, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, &ValidationError{Field: "title", Message: "title must not be empty"}
	}

	frequency := strings.ToLower(strings.TrimSpace(input.Frequency))
	if !validFrequency(frequency) {
		return nil, &ValidationError{Field: "frequency", Message: "frequency must be daily, weekly or monthly"}
	}

	doc, err := r.client.Insert(ownerID, store.Document{
		OwnerID:        ownerID,
		Title:          title,
		Description:    strings.TrimSpace(input.Description),
		Frequency:      frequency,
		CompletedDates: []string{},
		Color:          input.Color,
		Icon:           input.Icon,
	})
	if err != nil {
		return nil, mapStoreError("failed to create habit", err)
	}

	habit := habitFromDoc(doc)

	// 存储端未回填时间戳时以本地时间近似，等待下一次推送纠正
	now := time.Now()
	if habit.CreatedAt.IsZero() {
		habit.CreatedAt = now
	}
	if habit.UpdatedAt.IsZero() {
		habit.UpdatedAt = now
	}

	return &habit, nil
}

// List 返回归属方的全部习惯，按创建时间倒序；无记录时返回空切片而非错误
func (r *HabitRepository) List(ownerID string) ([]Habit, error) {
	docs, err := r.client.List(ownerID)
	if err != nil {
		return nil, mapStoreError("failed to load habits", err)
	}
	return habitsFromDocs(docs), nil
}

// Update 仅更新 patch 中提供的字段，updated_at 由存储端刷新
func (r *HabitRepository) Update(ownerID, id string, patch HabitPatch) error {
	if patch.Title != nil {
		trimmed := strings.TrimSpace(*patch.Title)
		if trimmed == "" {
			return &ValidationError{Field: "title", Message: "title must not be empty"}
		}
		patch.Title = &trimmed
	}
	if patch.Frequency != nil {
		frequency := strings.ToLower(strings.TrimSpace(*patch.Frequency))
		if !validFrequency(frequency) {
			return &ValidationError{Field: "frequency", Message: "frequency must be daily, weekly or monthly"}
		}
		patch.Frequency = &frequency
	}

	if err := r.client.Patch(ownerID, id, store.Patch{
		Title:          patch.Title,
		Description:    patch.Description,
		Frequency:      patch.Frequency,
		CompletedDates: patch.CompletedDates,
		Color:          patch.Color,
		Icon:           patch.Icon,
	}); err != nil {
		return mapStoreError("failed to update habit", err)
	}
	return nil
}

// Delete 删除习惯
// 对不存在的 ID，不同后端可能返回成功或 not-found，调用方需要同时容忍两种结果
func (r *HabitRepository) Delete(ownerID, id string) error {
	if err := r.client.Remove(ownerID, id); err != nil {
		return mapStoreError("failed to delete habit", err)
	}
	return nil
}

// Watch 注册实时监听，首次立即收到当前列表，之后每次远端变更再收到一次
// 返回的释放函数可安全地重复调用
func (r *HabitRepository) Watch(ownerID string, fn func(habits []Habit)) func() {
	return r.client.Subscribe(ownerID, func(docs []store.Document) {
		fn(habitsFromDocs(docs))
	})
}

// IsValidDate 判断字符串是否为合法的 YYYY-MM-DD 日历日期
func IsValidDate(date string) bool {
	_, err := time.Parse(dateFormat, date)
	return err == nil
}

func validFrequency(frequency string) bool {
	return frequency == "daily" || frequency == "weekly" || frequency == "monthly"
}

func habitFromDoc(doc store.Document) Habit {
	dates := doc.CompletedDates
	if dates == nil {
		dates = []string{}
	}
	return Habit{
		ID:             doc.ID,
		OwnerID:        doc.OwnerID,
		Title:          doc.Title,
		Description:    doc.Description,
		Frequency:      doc.Frequency,
		CompletedDates: dates,
		Color:          doc.Color,
		Icon:           doc.Icon,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
}

func habitsFromDocs(docs []store.Document) []Habit {
	habits := make([]Habit, 0, len(docs))
	for _, doc := range docs {
		habits = append(habits, habitFromDoc(doc))
	}
	return habits
}
