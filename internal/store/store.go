package store

import (
	"fmt"
	"time"
)

// Code 标识文档存储返回的错误类别
type Code string

const (
	CodePermissionDenied  Code = "permission-denied"
	CodeNotFound          Code = "not-found"
	CodeAlreadyExists     Code = "already-exists"
	CodeResourceExhausted Code = "resource-exhausted"
	CodeUnavailable       Code = "unavailable"
	CodeInternal          Code = "internal"
)

// Error 表示文档存储拒绝操作时返回的错误
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("store: %s (%s)", e.Message, e.Code)
}

// Document 是习惯文档的线上表示
// ID/CreatedAt/UpdatedAt 均由存储端分配，调用方提交的值会被忽略
type Document struct {
	ID             string
	OwnerID        string
	Title          string
	Description    string
	Frequency      string
	CompletedDates []string
	Color          string
	Icon           string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Patch 描述合并式更新：为 nil 的字段保持远端原值不变
type Patch struct {
	Title          *string
	Description    *string
	Frequency      *string
	CompletedDates *[]string
	Color          *string
	Icon           *string
}

// SnapshotFunc 接收某归属方当前的完整有序文档列表
type SnapshotFunc func(docs []Document)

// Client 是文档存储的访问接口
// Subscribe 注册实时监听：注册后立即推送一次当前状态，之后每次变更再推送；
// 返回的释放函数可安全地重复调用，释放后不再有快照被投递
type Client interface {
	Insert(ownerID string, doc Document) (Document, error)
	Get(ownerID, id string) (Document, error)
	List(ownerID string) ([]Document, error)
	Patch(ownerID, id string, patch Patch) error
	Remove(ownerID, id string) error
	Subscribe(ownerID string, fn SnapshotFunc) (release func())
}
