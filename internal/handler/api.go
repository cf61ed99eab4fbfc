package handler

import (
	"gorm.io/gorm"

	"github.com/habitflow/internal/repository"
	"github.com/habitflow/internal/service"
	"github.com/habitflow/internal/state"
	"github.com/habitflow/internal/store"
)

// API 聚合 HTTP 处理器共享的依赖
type API struct {
	db        *gorm.DB
	auth      *service.AuthService
	profiles  *service.ProfileService
	telemetry *service.TelemetryService
	habits    *state.Manager
	uploadDir string
	uploadURL string
}

// NewAPI 构造处理器集合及其共享服务
func NewAPI(gdb *gorm.DB, uploadDir, uploadURL string) *API {
	client := store.NewGormClient(gdb)
	repo := repository.NewHabitRepository(client)

	return &API{
		db:        gdb,
		auth:      service.NewAuthService(gdb),
		profiles:  service.NewProfileService(gdb),
		telemetry: service.NewTelemetryService(gdb),
		habits:    state.NewManager(repo),
		uploadDir: uploadDir,
		uploadURL: uploadURL,
	}
}

// DB 暴露底层 gorm 实例，供工具路径使用
func (a *API) DB() *gorm.DB {
	return a.db
}
