package handler

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/habitflow/internal/repository"
	"github.com/habitflow/internal/state"
)

var (
	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
	sanitizer = bluemonday.UGCPolicy()
)

type habitPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Frequency   string `json:"frequency"`
	Color       string `json:"color"`
	Icon        string `json:"icon"`
}

// habitPatchPayload 的指针字段用于区分"未提供"与"置空"
type habitPatchPayload struct {
	Title          *string   `json:"title"`
	Description    *string   `json:"description"`
	Frequency      *string   `json:"frequency"`
	CompletedDates *[]string `json:"completed_dates"`
	Color          *string   `json:"color"`
	Icon           *string   `json:"icon"`
}

type togglePayload struct {
	Date string `json:"date"`
}

// GetHabits 返回当前用户的习惯列表与同步状态
func (a *API) GetHabits(c *gin.Context) {
	hs := a.habits.StoreFor(currentOwner(c))
	snapshot := hs.Snapshot()
	c.JSON(http.StatusOK, snapshot)
}

// GetHabit 返回单个习惯，描述以 Markdown 渲染并消毒为 HTML
func (a *API) GetHabit(c *gin.Context) {
	hs := a.habits.StoreFor(currentOwner(c))
	habit, ok := hs.Habit(c.Param("id"))
	if !ok {
		respondError(c, http.StatusNotFound, "habit not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"habit":            habit,
		"description_html": renderDescription(habit.Description),
	})
}

// CreateHabit 创建习惯
func (a *API) CreateHabit(c *gin.Context) {
	var payload habitPayload
	if !bindJSON(c, &payload, "invalid habit payload") {
		return
	}

	ownerID := currentOwner(c)
	hs := a.habits.StoreFor(ownerID)
	habit, err := hs.Create(repository.HabitInput{
		Title:       payload.Title,
		Description: payload.Description,
		Frequency:   payload.Frequency,
		Color:       payload.Color,
		Icon:        payload.Icon,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	a.telemetry.Record(ownerID, habit.ID, "habit_created", habit.Title)
	c.JSON(http.StatusCreated, gin.H{"habit": habit})
}

// UpdateHabit 部分更新习惯，仅请求中出现的字段会被修改
func (a *API) UpdateHabit(c *gin.Context) {
	var payload habitPatchPayload
	if !bindJSON(c, &payload, "invalid habit payload") {
		return
	}

	id := c.Param("id")
	ownerID := currentOwner(c)
	hs := a.habits.StoreFor(ownerID)

	if err := hs.Update(id, repository.HabitPatch{
		Title:          payload.Title,
		Description:    payload.Description,
		Frequency:      payload.Frequency,
		CompletedDates: payload.CompletedDates,
		Color:          payload.Color,
		Icon:           payload.Icon,
	}); err != nil {
		respondWithError(c, err)
		return
	}

	a.telemetry.Record(ownerID, id, "habit_updated", "")
	habit, _ := hs.Habit(id)
	c.JSON(http.StatusOK, gin.H{"habit": habit})
}

// DeleteHabit 删除习惯
func (a *API) DeleteHabit(c *gin.Context) {
	id := c.Param("id")
	ownerID := currentOwner(c)
	hs := a.habits.StoreFor(ownerID)

	if err := hs.Delete(id); err != nil {
		respondWithError(c, err)
		return
	}

	a.telemetry.Record(ownerID, id, "habit_deleted", "")
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// ToggleHabit 切换指定日期的打卡状态
func (a *API) ToggleHabit(c *gin.Context) {
	var payload togglePayload
	if !bindJSON(c, &payload, "invalid toggle payload") {
		return
	}

	id := c.Param("id")
	ownerID := currentOwner(c)
	hs := a.habits.StoreFor(ownerID)

	if err := hs.ToggleCompletion(id, payload.Date); err != nil {
		respondWithError(c, err)
		return
	}

	a.telemetry.Record(ownerID, id, "habit_toggled", payload.Date)
	habit, _ := hs.Habit(id)
	c.JSON(http.StatusOK, gin.H{"habit": habit})
}

// ClearSyncError 将同步状态中的错误槽复位
func (a *API) ClearSyncError(c *gin.Context) {
	hs := a.habits.StoreFor(currentOwner(c))
	hs.ClearError()
	c.JSON(http.StatusOK, hs.Snapshot())
}

// StreamHabits 以 SSE 推送每次状态变更（习惯列表 + 同步状态）
func (a *API) StreamHabits(c *gin.Context) {
	hs := a.habits.StoreFor(currentOwner(c))

	// 缓冲队列满时丢弃旧快照：每份快照都是全量状态，只有最新一份有意义
	updates := make(chan state.Snapshot, 8)
	remove := hs.AddListener(func(snapshot state.Snapshot) {
		for {
			select {
			case updates <- snapshot:
				return
			default:
				select {
				case <-updates:
				default:
				}
			}
		}
	})
	defer remove()

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// 连接建立后立即推送当前状态
	c.SSEvent("state", hs.Snapshot())
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case snapshot := <-updates:
			c.SSEvent("state", snapshot)
			return true
		}
	})
}

func renderDescription(markdown string) string {
	if markdown == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(markdown), &buf); err != nil {
		return ""
	}
	return sanitizer.Sanitize(buf.String())
}
