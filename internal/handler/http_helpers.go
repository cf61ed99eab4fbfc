package handler

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/habitflow/internal/repository"
	"github.com/habitflow/internal/service"
	"github.com/habitflow/internal/state"
	"github.com/habitflow/internal/store"
)

const sessionOwnerKey = "owner_id"

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

// currentOwner 从会话中取出归属方标识，未登录时返回空串
func currentOwner(c *gin.Context) string {
	session := sessions.Default(c)
	ownerID, _ := session.Get(sessionOwnerKey).(string)
	return ownerID
}

// statusForError 将核心层错误映射为 HTTP 状态码
func statusForError(err error) int {
	var validationErr *repository.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest
	}

	var storeErr *repository.StoreError
	if errors.As(err, &storeErr) {
		switch storeErr.Code {
		case store.CodePermissionDenied:
			return http.StatusForbidden
		case store.CodeNotFound:
			return http.StatusNotFound
		case store.CodeAlreadyExists:
			return http.StatusConflict
		case store.CodeResourceExhausted:
			return http.StatusTooManyRequests
		case store.CodeUnavailable:
			return http.StatusServiceUnavailable
		default:
			return http.StatusInternalServerError
		}
	}

	switch {
	case errors.Is(err, state.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, state.ErrHabitNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondWithError(c *gin.Context, err error) {
	respondError(c, statusForError(err), err.Error())
}
